package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"

	"medivault-backend/accounts"
	"medivault-backend/analyzer"
	"medivault-backend/chat"
	"medivault-backend/config"
	"medivault-backend/conn"
	"medivault-backend/email"
	"medivault-backend/files"
	"medivault-backend/login"
	"medivault-backend/migrations"
	"medivault-backend/notifications"
	"medivault-backend/openai"
	"medivault-backend/predict"
	"medivault-backend/profile"
	"medivault-backend/quota"
	"medivault-backend/records"
	"medivault-backend/share"
)

// stores groups the four persistence stores of the selected backend.
type stores struct {
	Accounts      accounts.Store
	Records       records.Store
	Notifications notifications.Store
	Shares        share.Store

	sqlDB   *sql.DB
	mongoDB *mongo.Database
}

func openStores(ctx context.Context, cfg config.Config) (*stores, error) {
	switch cfg.DBBackend {
	case "mongo", "mongodb":
		db, err := conn.NewMongo(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return &stores{
			Accounts:      accounts.NewMongoRepository(db),
			Records:       records.NewMongoRepository(db),
			Notifications: notifications.NewMongoRepository(db),
			Shares:        share.NewMongoRepository(db),
			mongoDB:       db,
		}, nil
	case "mysql", "":
		db, err := conn.NewMySQL(cfg)
		if err != nil {
			return nil, err
		}
		return &stores{
			Accounts:      accounts.NewRepository(db),
			Records:       records.NewRepository(db),
			Notifications: notifications.NewRepository(db),
			Shares:        share.NewRepository(db),
			sqlDB:         db,
		}, nil
	}
	return nil, fmt.Errorf("unknown DB_BACKEND %q (want mysql or mongo)", cfg.DBBackend)
}

func (s *stores) migrate(ctx context.Context) error {
	if s.mongoDB != nil {
		return migrations.MigrateMongo(ctx, s.mongoDB)
	}
	return migrations.Migrate(s.sqlDB)
}

func (s *stores) Close() {
	if s.sqlDB != nil {
		_ = s.sqlDB.Close()
	}
	if s.mongoDB != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.mongoDB.Client().Disconnect(ctx)
	}
}

// newOCR picks the image transcription engine.
func newOCR(cfg config.Config, ai *openai.Client) files.OCR {
	if cfg.OCREngine == "openai" || cfg.OCREngine == "vision" {
		log.Printf("[BOOT] OCR engine: vision model %s", cfg.VisionModel)
		return ai
	}
	log.Printf("[BOOT] OCR engine: tesseract (%s)", cfg.Tesseract)
	return files.NewTesseractOCR(cfg.Tesseract)
}

// aiRoutes lists the model-backed routes and the bucket each one draws from.
var aiRoutes = map[string]string{
	"/api/upload":        quota.FlowUpload,
	"/api/chat":          quota.FlowChat,
	"/api/chat/stream":   quota.FlowChat,
	"/api/chat-document": quota.FlowDocument,
	"/api/ai-predict":    quota.FlowPredict,
}

func buildRouter(cfg config.Config, st *stores, rdb *redis.Client) *gin.Engine {
	ai := openai.NewClient(cfg)
	extractor := files.NewExtractor(newOCR(cfg, ai))
	tokens := login.NewTokens(cfg.JWTSecret, cfg.TokenTTL)
	accountSvc := accounts.NewService(st.Accounts, cfg.BcryptCost)

	notifier := notifications.NewService(st.Notifications, nil)
	if cfg.RabbitURL != "" {
		notifier.Publisher = notifications.NewAMQPPublisher(cfg.RabbitURL)
	}
	notifier.MailCertificate = email.SendCertificateIssued

	recordsH := records.NewHandler(st.Records, files.NewLocalStorage(cfg.UploadDir, cfg.PublicBaseURL),
		analyzer.New(extractor, ai), notifier, cfg.LegacyPublicHost)
	recordsH.MaxUploadBytes = int64(cfg.MaxUploadMB) << 20

	shareH := share.NewHandler(share.NewService(st.Shares, st.Accounts, st.Records, cfg.ShareTTL), cfg.LegacyPublicHost)

	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Retry-After", "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.MaxMultipartMemory = int64(cfg.MaxUploadMB) << 20
	r.Static("/uploads", cfg.UploadDir)
	r.GET("/healthz", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })

	open := r.Group("/api")
	login.NewHandler(accountSvc, tokens).RegisterRoutes(open)
	shareH.RegisterPublicRoutes(open)

	api := r.Group("/api", login.Identity(tokens, cfg.AuthRequired), quota.NewLimiter(cfg.RateLimit, rdb).Routes(aiRoutes))
	recordsH.RegisterRoutes(api)
	notifications.NewHandler(st.Notifications).RegisterRoutes(api)
	profile.NewHandler(st.Accounts).RegisterRoutes(api)
	shareH.RegisterRoutes(api)
	chat.NewHandler(chat.NewAssistant(ai, st.Records, extractor, cfg.UploadDir)).RegisterRoutes(api)
	predict.NewHandler(ai).RegisterRoutes(api)

	if !cfg.AuthRequired {
		log.Printf("[BOOT][WARN] AUTH_REQUIRED=false: requests without a token are trusted with the email they send")
	}
	return r
}
