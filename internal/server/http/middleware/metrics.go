package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/polkiloo/orderboard/internal/metrics"
)

const unmatchedRoute = "unmatched"

// Metrics records request counts and latency per route template.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		path := c.FullPath()
		if path == "" {
			path = unmatchedRoute
		}
		metrics.HTTPRequest(c.Request.Method, path, c.Writer.Status(), time.Since(start))
	}
}
