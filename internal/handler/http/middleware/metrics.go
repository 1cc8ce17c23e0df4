package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/daon-network/auth-service/internal/utils/metrics"
)

// Metrics records request counters and latency histograms.
func Metrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		metrics.RequestsTotal.Inc()
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		metrics.ResponsesTotal.WithLabelValues(strconv.Itoa(c.Writer.Status())).Inc()
		metrics.RequestDuration.Observe(duration)
		metrics.RequestDurationByPath.WithLabelValues(c.Request.Method, c.FullPath()).Observe(duration)
	}
}
