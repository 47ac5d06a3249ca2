package middleware

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HitCounter counts requests per key within a fixed window.
type HitCounter interface {
	Hit(ctx context.Context, key string, window time.Duration) (int64, error)
}

// RateLimit rejects a caller once it exceeds limit requests per window. The
// caller is identified by user id when authenticated, else by client IP.
// Counter failures let the request through. onLimited writes the rejection.
func RateLimit(counter HitCounter, scope string, limit int, window time.Duration, logger *zap.Logger, onLimited gin.HandlerFunc) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *gin.Context) {
		if counter == nil || limit <= 0 {
			c.Next()
			return
		}

		caller := c.ClientIP()
		if claims := CurrentUser(c); claims != nil && claims.UserID != "" {
			caller = "user:" + claims.UserID
		}
		if caller == "" {
			caller = "unknown"
		}

		count, err := counter.Hit(c.Request.Context(), scope+":"+caller, window)
		if err != nil {
			logger.Sugar().Warnw("rate limiter unavailable", "scope", scope, "error", err)
			c.Next()
			return
		}
		if count > int64(limit) {
			logger.Sugar().Infow("rate limit exceeded", "scope", scope, "caller", caller, "count", count)
			onLimited(c)
			c.Abort()
			return
		}
		c.Next()
	}
}
