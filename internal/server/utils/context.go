package utils

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/vzahanych/forecast-history/internal/aggregator"
)

const (
	SpanContextKey = "span_context"
	RequestIDKey   = "request_id"
)

// GetContextFromGinContext extracts the context with span from Gin context
func GetContextFromGinContext(c *gin.Context) context.Context {
	if spanCtx, exists := c.Get(SpanContextKey); exists {
		if ctx, ok := spanCtx.(context.Context); ok {
			return ctx
		}
	}
	return c.Request.Context()
}

// GetRequestIDFromGinContext extracts request ID from Gin context
func GetRequestIDFromGinContext(c *gin.Context) string {
	return c.GetString(RequestIDKey)
}

// PipelineContext is the context a handler hands to the aggregator: the request
// span plus the request id for correlated pipeline logs.
func PipelineContext(c *gin.Context) context.Context {
	ctx := GetContextFromGinContext(c)
	if id := GetRequestIDFromGinContext(c); id != "" {
		ctx = aggregator.WithRequestID(ctx, id)
	}
	return ctx
}
