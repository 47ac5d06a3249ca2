package requestid

import (
	"github.com/gin-contrib/requestid"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	headerKey  = "X-Request-ID"
	contextKey = "request_id"
)

// Middleware assigns a unique request ID to each incoming HTTP request and
// mirrors it into the gin context for handlers and loggers.
func Middleware() gin.HandlerFunc {
	return requestid.New(
		requestid.WithGenerator(func() string { return uuid.NewString() }),
		requestid.WithCustomHeaderStrKey(headerKey),
		requestid.WithHandler(func(c *gin.Context, id string) {
			c.Set(contextKey, id)
		}),
	)
}

// Value returns the request ID stored in the Gin context.
func Value(c *gin.Context) string {
	if v, exists := c.Get(contextKey); exists {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return requestid.Get(c)
}
