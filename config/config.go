// Package config loads runtime settings from the environment (and an optional
// .env file). Every value has a development default so the server can start
// with nothing configured except the LLM key.
package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env  string
	Port string

	// DBBackend selects the persistence layer: "mysql" or "mongo".
	DBBackend  string
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     string
	DBName     string

	MongoURI      string
	MongoDatabase string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	RabbitURL string

	LLMAPIKey   string
	LLMBaseURL  string
	LLMModel    string
	VisionModel string
	OCREngine   string
	Tesseract   string

	UploadDir        string
	PublicBaseURL    string
	LegacyPublicHost string
	MaxUploadMB      int

	JWTSecret    string
	TokenTTL     time.Duration
	AuthRequired bool
	BcryptCost   int

	CORSOrigins []string
	ShareTTL    time.Duration

	RateLimit RateLimitConfig

	SeedDemoUsers bool
}

// RateLimitConfig drives the Redis token bucket placed in front of the AI routes.
type RateLimitConfig struct {
	Enabled        bool
	Capacity       int
	RefillInterval time.Duration
	TTL            time.Duration
	Prefix         string
}

// Load reads .env (if present) and then the process environment.
func Load() Config {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("[CONFIG] .env not loaded: %v", err)
	}
	port := getenv("APP_PORT", "5001")
	cfg := Config{
		Env:  getenv("APP_ENV", "dev"),
		Port: port,

		DBBackend:  strings.ToLower(getenv("DB_BACKEND", "mysql")),
		DBUser:     getenv("DB_USER", "root"),
		DBPassword: os.Getenv("DB_PASSWORD"),
		DBHost:     getenv("DB_HOST", "127.0.0.1"),
		DBPort:     getenv("DB_PORT", "3306"),
		DBName:     getenv("DB_NAME", "medivault"),

		MongoURI:      getenv("MONGODB_URI", "mongodb://localhost:27017"),
		MongoDatabase: getenv("MONGODB_DATABASE", "medivault"),

		RedisAddr:     getenv("REDIS_ADDR", ""),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envInt("REDIS_DB", 0),

		RabbitURL: os.Getenv("RABBITMQ_URL"),

		LLMAPIKey:   firstNonEmpty(os.Getenv("LLM_API_KEY"), os.Getenv("GROQ_API_KEY"), os.Getenv("OPENAI_API_KEY")),
		LLMBaseURL:  getenv("LLM_BASE_URL", "https://api.groq.com/openai/v1"),
		LLMModel:    getenv("LLM_MODEL", "llama-3.3-70b-versatile"),
		VisionModel: getenv("VISION_MODEL", "meta-llama/llama-4-scout-17b-16e-instruct"),
		OCREngine:   strings.ToLower(getenv("OCR_ENGINE", "tesseract")),
		Tesseract:   getenv("TESSERACT_BIN", "tesseract"),

		UploadDir:        getenv("UPLOAD_DIR", "uploads"),
		PublicBaseURL:    strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:"+port), "/"),
		LegacyPublicHost: getenv("LEGACY_PUBLIC_HOST", "localhost:5001"),
		MaxUploadMB:      envInt("MAX_UPLOAD_MB", 20),

		JWTSecret:    getenv("JWT_SECRET", "dev-insecure-secret"),
		TokenTTL:     envDur("TOKEN_TTL", 12*time.Hour),
		AuthRequired: envBool("AUTH_REQUIRED", false),
		BcryptCost:   envInt("BCRYPT_COST", 10),

		CORSOrigins: splitList(getenv("CORS_ORIGINS", "http://localhost:5173,http://127.0.0.1:5173")),
		ShareTTL:    envDur("SHARE_TTL", 15*time.Minute),

		RateLimit: RateLimitConfig{
			Enabled:        envBool("RATE_LIMIT_ENABLED", true),
			Capacity:       envInt("RATE_LIMIT_CAPACITY", 20),
			RefillInterval: envDur("RATE_LIMIT_REFILL_INTERVAL", 3*time.Second),
			TTL:            envDur("RATE_LIMIT_TTL", 10*time.Minute),
			Prefix:         getenv("RATE_LIMIT_PREFIX", "rl"),
		},

		SeedDemoUsers: envBool("SEED_DEMO_USERS", false),
	}
	if cfg.RateLimit.Capacity < 1 {
		cfg.RateLimit.Capacity = 1
	}
	if cfg.RateLimit.RefillInterval <= 0 {
		cfg.RateLimit.RefillInterval = time.Second
	}
	if cfg.BcryptCost < 4 {
		cfg.BcryptCost = 10
	}
	return cfg
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

func envInt(k string, d int) int {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if n, err := strconv.Atoi(v); err == nil {
		return n
	}
	return d
}

func envBool(k string, d bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func envDur(k string, d time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return d
	}
	if dur, err := time.ParseDuration(v); err == nil {
		return dur
	}
	return d
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
