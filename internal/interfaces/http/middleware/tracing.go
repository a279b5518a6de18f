// Package middleware provides the gin middleware chain for the marketplace API.
package middleware

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// TracingConfig holds configuration for the tracing middleware
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// TracingWithConfig wraps otelgin. Spans are named after the route pattern
// and otelgin marks 5xx responses as errors.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) { c.Next() }
	}
	if cfg.ServiceName == "" {
		cfg.ServiceName = "artisanmarket"
	}
	return otelgin.Middleware(cfg.ServiceName)
}

// SpanAttributes copies request-scoped IDs onto the active span. Mount it
// after JWTAuthMiddleware so the user is known while the handler runs.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		if span := trace.SpanFromContext(c.Request.Context()); span.IsRecording() {
			enrichSpan(c, span)
		}
		c.Next()
	}
}

func enrichSpan(c *gin.Context, span trace.Span) {
	if id := c.GetString(RequestIDKey); id != "" {
		span.SetAttributes(attribute.String("request_id", id))
	}
	if id := GetJWTUserID(c); id != "" {
		span.SetAttributes(attribute.String("user_id", id))
	}
	if role := GetJWTRole(c); role != "" {
		span.SetAttributes(attribute.String("user_role", role))
	}
}
