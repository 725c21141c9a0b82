package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/housedesk-backend/internal/observability"
)

// unprobed routes are hit by orchestrators every few seconds and would
// swamp the latency histogram.
var unprobed = map[string]bool{
	"/healthcheck": true,
	"/readyz":      true,
}

// Metrics records per-route latency and counts rejected credentials.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if unprobed[route] {
			c.Next()
			return
		}
		start := time.Now()
		m.ApiInflightInc()
		defer m.ApiInflightDec()

		c.Next()

		code := c.Writer.Status()
		switch code {
		case http.StatusUnauthorized:
			m.IncSecurityEvent("unauthenticated")
		case http.StatusForbidden:
			m.IncSecurityEvent("forbidden")
		}
		m.ObserveAPI(c.Request.Method, route, strconv.Itoa(code), time.Since(start))
	}
}
