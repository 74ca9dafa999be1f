package middlewares

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// queryFields are the forecast selection parameters worth logging on every
// request that carries them.
var queryFields = []string{"region", "station", "date"}

// LoggingMiddleware writes one line per request. Requests to quietPaths (health
// probes, metrics scrapes) are logged at debug level when they succeed.
func LoggingMiddleware(logger *zap.Logger, quietPaths ...string) gin.HandlerFunc {
	quiet := make(map[string]struct{}, len(quietPaths))
	for _, p := range quietPaths {
		quiet[p] = struct{}{}
	}

	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "" {
			route = unmatchedRoute
		}

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("route", route),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if requestID := c.GetString(RequestIDKey); requestID != "" {
			fields = append(fields, zap.String("request_id", requestID))
		}
		for _, name := range queryFields {
			if v := c.Query(name); v != "" {
				fields = append(fields, zap.String(name, v))
			}
		}
		if errs := c.Errors.ByType(gin.ErrorTypePrivate).String(); errs != "" {
			fields = append(fields, zap.String("error", errs))
		}

		level := zapcore.InfoLevel
		switch _, isQuiet := quiet[route]; {
		case status >= http.StatusInternalServerError:
			level = zapcore.ErrorLevel
		case status >= http.StatusBadRequest:
			level = zapcore.WarnLevel
		case isQuiet:
			level = zapcore.DebugLevel
		}
		logger.Log(level, "HTTP request", fields...)
	}
}

// RecoveryMiddleware turns a handler panic into a 500 carrying the request id.
func RecoveryMiddleware(logger *zap.Logger, stack bool) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		requestID := c.GetString(RequestIDKey)

		fields := []zap.Field{
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.String("request_id", requestID),
			zap.Any("recovered", recovered),
		}
		if stack {
			fields = append(fields, zap.Stack("stack"))
		}
		logger.Error("HTTP panic recovered", fields...)

		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"error":      "internal server error",
			"code":       "INTERNAL_ERROR",
			"request_id": requestID,
		})
	})
}
