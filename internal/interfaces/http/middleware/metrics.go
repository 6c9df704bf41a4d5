package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/MultiNLU/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request count and latency per route template, so path
// parameters do not create new series. Unmatched routes share one label.
func Metrics(m *prometheus.NLUMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.RecordHTTPRequest(c.Request.Method, route, c.Writer.Status(), time.Since(start))
	}
}

//Personal.AI order the ending
