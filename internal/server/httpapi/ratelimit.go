package httpapi

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/dmitrijs2005/guestkeeper/internal/clockx"
	"github.com/dmitrijs2005/guestkeeper/internal/logging"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Counter is the subset of *redis.Client the rate limiter needs.
type Counter interface {
	Incr(ctx context.Context, key string) *redis.IntCmd
	PExpire(ctx context.Context, key string, expiration time.Duration) *redis.BoolCmd
}

const rateLimitWindow = time.Second

// RateLimit allows at most limit requests per client IP in each one-second
// window. Redis failures let the request through.
func RateLimit(counter Counter, limit int, clock clockx.Clock, logger logging.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" || limit <= 0 {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		key := fmt.Sprintf("guestkeeper:rate_limit:%s:%d", ip, clock.Now().Unix())

		count, err := counter.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn(ctx, "rate limit counter unavailable", "error", err)
			c.Next()
			return
		}
		if count == 1 {
			if err := counter.PExpire(ctx, key, rateLimitWindow+time.Second).Err(); err != nil {
				logger.Warn(ctx, "cannot set rate limit key expiry", "key", key, "error", err)
			}
		}

		if count > int64(limit) {
			c.Header("Retry-After", "1")
			c.String(http.StatusTooManyRequests, "too many requests")
			c.Abort()
			return
		}
		c.Next()
	}
}
