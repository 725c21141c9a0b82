package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/housedesk-backend/internal/platform/logger"
)

// RequestLogger writes one access line per request once handlers finish.
// Client errors log at warn, server errors at error with the causes the
// handlers attached to the gin context.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if log == nil {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		entry := log.WithContext(c.Request.Context())
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if causes := c.Errors.ByType(gin.ErrorTypeAny); len(causes) > 0 {
			kv = append(kv, "errors", causes.Errors())
		}

		if status >= 500 {
			entry.Error("request failed", kv...)
		} else if status >= 400 {
			entry.Warn("request rejected", kv...)
		} else {
			entry.Info("request served", kv...)
		}
	}
}
