package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/artisanmarket/backend/internal/infrastructure/auth"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()

	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	otel.SetTracerProvider(tp)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	t.Cleanup(func() {
		_ = tp.Shutdown(t.Context())
	})
	return sr
}

func spanNamed(spans []sdktrace.ReadOnlySpan, name string) sdktrace.ReadOnlySpan {
	for _, s := range spans {
		if s.Name() == name {
			return s
		}
	}
	return nil
}

func attrValue(span sdktrace.ReadOnlySpan, key string) string {
	for _, kv := range span.Attributes() {
		if kv.Key == attribute.Key(key) {
			return kv.Value.AsString()
		}
	}
	return ""
}

func TestTracingWithConfig_Disabled(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: false}))
	router.GET("/api/products", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, sr.Ended())
}

func TestTracingWithConfig_SpanPerRoute(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(RequestID(), TracingWithConfig(TracingConfig{Enabled: true}), SpanAttributes())
	router.GET("/api/products/:id", func(c *gin.Context) { c.Status(http.StatusOK) })
	router.GET("/api/boom", func(c *gin.Context) { c.Status(http.StatusInternalServerError) })

	req := httptest.NewRequest(http.MethodGet, "/api/products/42", nil)
	req.Header.Set(RequestIDHeader, "req-7")
	router.ServeHTTP(httptest.NewRecorder(), req)
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/boom", nil))

	ok := spanNamed(sr.Ended(), "GET /api/products/:id")
	require.NotNil(t, ok, "route span not found")
	assert.Equal(t, "req-7", attrValue(ok, "request_id"))
	assert.NotEqual(t, codes.Error, ok.Status().Code)

	failed := spanNamed(sr.Ended(), "GET /api/boom")
	require.NotNil(t, failed)
	assert.Equal(t, codes.Error, failed.Status().Code)
}

func TestSpanAttributes_CallerIdentity(t *testing.T) {
	sr := setupTestTracer(t)

	router := gin.New()
	router.Use(TracingWithConfig(TracingConfig{Enabled: true}))
	router.GET("/api/orders",
		func(c *gin.Context) {
			setClaims(c, &auth.Claims{UserID: "user-1", Role: "vendor"})
			c.Next()
		},
		SpanAttributes(),
		func(c *gin.Context) { c.Status(http.StatusOK) },
	)

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/orders", nil))

	span := spanNamed(sr.Ended(), "GET /api/orders")
	require.NotNil(t, span)
	assert.Equal(t, "user-1", attrValue(span, "user_id"))
	assert.Equal(t, "vendor", attrValue(span, "user_role"))
}

func TestSpanAttributes_NoSpan(t *testing.T) {
	router := gin.New()
	router.Use(SpanAttributes())
	router.GET("/api/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}
