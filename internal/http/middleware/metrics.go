package middleware

import (
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/nepq-coach-backend/internal/observability"
)

// streamingRoutes hold the connection open for the life of a session, so
// their duration says nothing about handler latency.
var streamingRoutes = map[string]bool{
	"/api/sse/stream":                       true,
	"/api/live/ws":                          true,
	"/api/recordings/:id/transcript/stream": true,
}

// Metrics counts every request. Latency and in-flight load are tracked for
// request/response routes only. Unmatched paths share the "unmatched" label.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	if m == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		streaming := streamingRoutes[route]
		if !streaming {
			m.ApiInflightInc()
			defer m.ApiInflightDec()
		}
		start := time.Now()

		c.Next()

		method, status := strings.ToUpper(c.Request.Method), strconv.Itoa(c.Writer.Status())
		if streaming {
			m.CountAPI(method, route, status)
			return
		}
		m.ObserveAPI(method, route, status, time.Since(start))
	}
}
