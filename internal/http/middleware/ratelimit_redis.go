package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"grot_arena/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

// RateLimiter is a fixed-window limiter on Redis INCR/EXPIRE. Without Redis,
// or when Redis errors, it counts in memory instead of failing closed.
type RateLimiter struct {
	client *redis.Client
	mem    *memoryWindow
}

// NewRateLimiter connects to Redis at addr. An empty addr or a failed ping
// leaves the limiter on the in-memory window.
func NewRateLimiter(addr, password string, db int) *RateLimiter {
	l := &RateLimiter{mem: newMemoryWindow()}
	if addr == "" {
		return l
	}

	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-memory rate limits", "addr", addr, "error", err)
		_ = client.Close()
		return l
	}

	logger.Info("redis rate limiter connected", "addr", addr)
	l.client = client
	return l
}

// Redis returns the underlying client, nil when running in memory.
func (l *RateLimiter) Redis() *redis.Client { return l.client }

func (l *RateLimiter) Close() error {
	if l.client == nil {
		return nil
	}
	return l.client.Close()
}

// PerIP limits requests per client IP.
// key format: rl:<window_seconds>:<ip>
func (l *RateLimiter) PerIP(maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := "rl:" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + c.ClientIP()
		l.limit(c, key, c.FullPath(), maxRequests, window)
	}
}

// PerUser limits requests per authenticated user; JWT must run first.
// key format: rl:<scope>:<window_seconds>:<user_id>
func (l *RateLimiter) PerUser(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID := c.GetString(CtxUserID)
		if userID == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		key := "rl:" + scope + ":" + strconv.FormatInt(int64(window.Seconds()), 10) + ":" + userID
		l.limit(c, key, scope+":"+c.FullPath(), maxRequests, window)
	}
}

func (l *RateLimiter) limit(c *gin.Context, key, endpoint string, maxRequests int, window time.Duration) {
	val := l.incr(c.Request.Context(), key, window)

	c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))
	c.Header("X-RateLimit-Remaining", strconv.FormatInt(max(0, int64(maxRequests)-val), 10))

	if val > int64(maxRequests) {
		RLBlocked.WithLabelValues(endpoint).Inc()
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
			"error":       "rate limit exceeded",
			"retry_after": int(window.Seconds()),
		})
		return
	}

	RLRequests.WithLabelValues(endpoint).Inc()
	c.Next()
}

func (l *RateLimiter) incr(ctx context.Context, key string, window time.Duration) int64 {
	if l.client == nil {
		return l.mem.incr(key, window)
	}

	val, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		logger.Warn("redis rate limit failed, counting in memory", "error", err)
		return l.mem.incr(key, window)
	}
	if val == 1 {
		// first increment, set expiry
		l.client.Expire(ctx, key, window)
	}
	return val
}
