package mw

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"machinery-backend/internal/metrics"
)

// Metrics records request counts and latencies by route template.
func Metrics(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		start := time.Now()
		c.Next()

		r := route(c)
		m.HTTPRequestsTotal.WithLabelValues(c.Request.Method, r, strconv.Itoa(c.Writer.Status())).Inc()
		m.HTTPRequestDuration.WithLabelValues(c.Request.Method, r).Observe(time.Since(start).Seconds())
	}
}
