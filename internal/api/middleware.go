package api

import (
	"log/slog"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/juandiegoalamohe-alt/localpix/internal/observability"
)

// RequestLogger logs every request and feeds the duration histogram.
// Metrics are labeled with the route template rather than the raw path,
// so photo ids never explode the label space. WebSocket upgrades are
// skipped: the connection outlives the request and its duration is the
// session length, not a latency.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		if c.IsWebsocket() {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path // unmatched route, usually a 404
		}
		duration := time.Since(start)
		status := c.Writer.Status()

		slog.Info("request",
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"duration", duration.String(),
			"ip", c.ClientIP(),
		)

		observability.HTTPRequestDuration.WithLabelValues(
			c.Request.Method,
			route,
			strconv.Itoa(status),
		).Observe(duration.Seconds())
	}
}
