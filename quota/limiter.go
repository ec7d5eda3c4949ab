// Package quota throttles the model-backed routes with a Redis token bucket,
// one bucket per caller and flow.
package quota

import (
	"fmt"
	"log"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"medivault-backend/config"
	"medivault-backend/login"
)

// Flows guarded by the limiter. Each flow has its own bucket so a burst of
// chat messages does not block uploads.
const (
	FlowUpload   = "upload"
	FlowChat     = "chat"
	FlowDocument = "chat_document"
	FlowPredict  = "ai_predict"
)

var bucketScript = redis.NewScript(`
	local key = KEYS[1]
	local now_ms = tonumber(ARGV[1])
	local capacity = tonumber(ARGV[2])
	local interval_ms = tonumber(ARGV[3])
	local ttl_seconds = tonumber(ARGV[4])

	local state = redis.call('HMGET', key, 'tokens', 'last_refill_ms')
	local tokens = tonumber(state[1])
	local last_refill = tonumber(state[2])

	if tokens == nil or last_refill == nil then
		tokens = capacity
		last_refill = now_ms
	end

	if interval_ms > 0 then
		local elapsed = math.max(0, now_ms - last_refill)
		local intervals = math.floor(elapsed / interval_ms)
		if intervals > 0 then
			tokens = math.min(capacity, tokens + intervals)
			last_refill = last_refill + (intervals * interval_ms)
		end
	end

	local allowed = 0
	local retry_after_ms = 0
	if tokens > 0 then
		allowed = 1
		tokens = tokens - 1
	else
		retry_after_ms = math.max(0, interval_ms - (now_ms - last_refill))
	end

	redis.call('HSET', key, 'tokens', tokens, 'last_refill_ms', last_refill)
	redis.call('EXPIRE', key, ttl_seconds)

	return { allowed, tokens, retry_after_ms }
`)

type Limiter struct {
	cfg config.RateLimitConfig
	rdb *redis.Client
	now func() time.Time
}

// NewLimiter returns a limiter. With a nil client or a disabled config every
// request passes.
func NewLimiter(cfg config.RateLimitConfig, rdb *redis.Client) *Limiter {
	return &Limiter{cfg: cfg, rdb: rdb, now: time.Now}
}

func (l *Limiter) active() bool { return l != nil && l.cfg.Enabled && l.rdb != nil }

// For returns the middleware guarding one flow.
func (l *Limiter) For(flow string) gin.HandlerFunc {
	if !l.active() {
		return func(c *gin.Context) { c.Next() }
	}
	ttl := int64(l.cfg.TTL / time.Second)
	if ttl < 1 {
		ttl = 1
	}
	return func(c *gin.Context) {
		key := l.key(flow, c)
		vals, err := bucketScript.Run(c.Request.Context(), l.rdb, []string{key},
			l.now().UnixMilli(), l.cfg.Capacity, l.cfg.RefillInterval.Milliseconds(), ttl).Result()
		if err != nil {
			log.Printf("[QUOTA][REDIS][ERROR] key=%s err=%v", key, err)
			c.Next()
			return
		}
		arr, ok := vals.([]interface{})
		if !ok || len(arr) != 3 {
			log.Printf("[QUOTA][SCRIPT] unexpected result key=%s vals=%#v", key, vals)
			c.Next()
			return
		}
		allowed := fmt.Sprint(arr[0]) == "1"
		remaining := asInt64(arr[1])
		retryMs := asInt64(arr[2])

		c.Header("X-RateLimit-Limit", strconv.Itoa(l.cfg.Capacity))
		c.Header("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
		if !allowed {
			secs := retryAfterSeconds(retryMs)
			c.Header("Retry-After", strconv.Itoa(secs))
			log.Printf("[QUOTA][DENY] key=%s retry=%dms", key, retryMs)
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"success":    false,
				"message":    "Too many requests, please slow down.",
				"retryAfter": secs,
			})
			return
		}
		c.Next()
	}
}

// Routes guards the matched route paths listed in flows (full path to flow
// name) and lets every other route through.
func (l *Limiter) Routes(flows map[string]string) gin.HandlerFunc {
	guards := make(map[string]gin.HandlerFunc, len(flows))
	for path, flow := range flows {
		guards[path] = l.For(flow)
	}
	return func(c *gin.Context) {
		if g, ok := guards[c.FullPath()]; ok {
			g(c)
			return
		}
		c.Next()
	}
}

// key identifies the caller by verified email when a token was sent and by
// client IP otherwise.
func (l *Limiter) key(flow string, c *gin.Context) string {
	who := "ip:" + c.ClientIP()
	if id := login.Current(c); id != nil && id.Email != "" {
		who = "user:" + strings.ToLower(id.Email)
	}
	return strings.Join([]string{l.cfg.Prefix, flow, who}, ":")
}

func retryAfterSeconds(ms int64) int {
	secs := int(math.Ceil(float64(ms) / 1000.0))
	if secs < 1 {
		secs = 1
	}
	return secs
}

func asInt64(v interface{}) int64 {
	switch t := v.(type) {
	case int64:
		return t
	case int:
		return int64(t)
	case float64:
		return int64(t)
	case string:
		if n, err := strconv.ParseInt(t, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
