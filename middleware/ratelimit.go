package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"vlmax-platform/internal/config"
	"vlmax-platform/internal/logger"
	"vlmax-platform/utils"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"golang.org/x/time/rate"
)

// RateLimitMiddleware implements a fixed-window limit per IP + endpoint in
// Redis. Without a Redis client it falls back to an in-process token bucket
// per IP + endpoint.
func RateLimitMiddleware(rdb *redis.Client, cfg *config.Config) gin.HandlerFunc {
	if rdb == nil {
		return InMemoryRateLimit(cfg.RateLimitReqs, time.Duration(cfg.RateLimitWindow)*time.Second)
	}

	window := time.Duration(cfg.RateLimitWindow) * time.Second
	return func(c *gin.Context) {
		if c.FullPath() == "/health" {
			c.Next()
			return
		}

		key := "ratelimit:" + c.ClientIP() + ":" + c.FullPath()

		ctx, cancel := utils.WithStoreTimeout(c.Request.Context())
		defer cancel()

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			// Fail open - don't block requests if Redis is down
			logger.Warn("Rate limit check failed", "error", err)
			c.Next()
			return
		}

		if count == 1 {
			rdb.Expire(ctx, key, window)
		}

		if count > int64(cfg.RateLimitReqs) {
			rejectRateLimited(c, cfg.RateLimitReqs, window)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(cfg.RateLimitReqs))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(cfg.RateLimitReqs-int(count)))
		c.Next()
	}
}

// InMemoryRateLimit allows limit requests per window for each IP + endpoint.
func InMemoryRateLimit(limit int, window time.Duration) gin.HandlerFunc {
	var (
		mu       sync.Mutex
		limiters = make(map[string]*rate.Limiter)
	)
	every := rate.Every(window / time.Duration(max(limit, 1)))

	return func(c *gin.Context) {
		if c.FullPath() == "/health" {
			c.Next()
			return
		}

		key := c.ClientIP() + ":" + c.FullPath()
		mu.Lock()
		limiter, ok := limiters[key]
		if !ok {
			limiter = rate.NewLimiter(every, limit)
			limiters[key] = limiter
		}
		mu.Unlock()

		if !limiter.Allow() {
			rejectRateLimited(c, limit, window)
			return
		}

		c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
		c.Next()
	}
}

func rejectRateLimited(c *gin.Context, limit int, window time.Duration) {
	c.Header("X-RateLimit-Limit", strconv.Itoa(limit))
	c.Header("X-RateLimit-Remaining", "0")
	c.Header("X-RateLimit-Reset", strconv.FormatInt(time.Now().Add(window).Unix(), 10))

	utils.RespondWithError(c, http.StatusTooManyRequests,
		"rate_limit_exceeded",
		"Too many requests. Please try again later.",
		gin.H{
			"retry_after": int(window.Seconds()),
			"limit":       limit,
		})
	c.Abort()
}
