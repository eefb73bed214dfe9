package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/warehouse-ops/fulfillment-service/pkg/metrics"
)

// MetricsMiddleware records request counts, durations, and the in-flight
// gauge for every route except /metrics itself.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}

		m.IncrementHTTPRequestsInFlight()
		start := time.Now()

		c.Next()

		m.DecrementHTTPRequestsInFlight()

		// Label by the route pattern so /returns/:returnId stays one series
		// regardless of how many return IDs pass through.
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

// MetricsEndpoint serves the Prometheus scrape endpoint through gin.
func MetricsEndpoint(m *metrics.Metrics) gin.HandlerFunc {
	handler := m.Handler()
	return func(c *gin.Context) {
		handler.ServeHTTP(c.Writer, c.Request)
	}
}
