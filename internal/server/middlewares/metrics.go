package middlewares

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/forecast-history/internal/observability"
	"go.uber.org/zap"
)

// unmatchedRoute labels requests that hit no route, so arbitrary paths do not
// explode label cardinality.
const unmatchedRoute = "unmatched"

type MetricsMiddleware struct {
	logger  *zap.Logger
	metrics *observability.Metrics
}

func NewMetricsMiddleware(logger *zap.Logger, metrics *observability.Metrics) *MetricsMiddleware {
	return &MetricsMiddleware{
		logger:  logger,
		metrics: metrics,
	}
}

func (m *MetricsMiddleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		duration := time.Since(start).Seconds()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}
		method := c.Request.Method
		status := strconv.Itoa(c.Writer.Status())

		m.metrics.HTTPRequests.WithLabelValues(method, route, status).Inc()
		m.metrics.HTTPRequestDuration.WithLabelValues(method, route).Observe(duration)

		m.logger.Debug("HTTP metrics recorded",
			zap.String("method", method),
			zap.String("route", route),
			zap.String("status", status),
			zap.Float64("duration", duration))
	}
}
