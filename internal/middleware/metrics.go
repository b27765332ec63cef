package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/technician-availability-api/internal/service"
)

// unmatchedRoute labels requests that hit no registered route, keeping raw
// technician ids and tokens out of metric labels.
const unmatchedRoute = "unmatched"

var unmeasuredPaths = map[string]struct{}{
	"/metrics": {},
	"/health":  {},
	"/ready":   {},
}

// Metrics records request latency per route template. Probe and scrape endpoints are skipped.
func Metrics(metricsSvc *service.MetricsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if metricsSvc == nil {
			c.Next()
			return
		}
		route := c.FullPath()
		if _, skip := unmeasuredPaths[route]; skip {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()
		if route == "" {
			route = unmatchedRoute
		}
		metricsSvc.ObserveHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}
