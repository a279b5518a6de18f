package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestRateLimiter(t *testing.T) {
	t.Run("spends the burst then refuses", func(t *testing.T) {
		limiter := NewRateLimiter(3, time.Minute)
		defer limiter.Close()

		for i := 0; i < 3; i++ {
			assert.True(t, limiter.Allow("10.0.0.1"), "request %d", i+1)
		}
		assert.False(t, limiter.Allow("10.0.0.1"))
		assert.Equal(t, 0, limiter.Remaining("10.0.0.1"))
	})

	t.Run("keys are independent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		defer limiter.Close()

		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))
		assert.True(t, limiter.Allow("b"))
		assert.Equal(t, 1, limiter.Remaining("unseen"))
	})

	t.Run("refills over the window", func(t *testing.T) {
		limiter := NewRateLimiter(2, 100*time.Millisecond)
		defer limiter.Close()

		assert.True(t, limiter.Allow("a"))
		assert.True(t, limiter.Allow("a"))
		assert.False(t, limiter.Allow("a"))

		time.Sleep(120 * time.Millisecond)
		assert.True(t, limiter.Allow("a"))
	})

	t.Run("close is idempotent", func(t *testing.T) {
		limiter := NewRateLimiter(1, time.Minute)
		limiter.Close()
		limiter.Close()
	})
}

func TestRateLimitMiddleware(t *testing.T) {
	limiter := NewRateLimiter(2, time.Minute)
	defer limiter.Close()

	router := gin.New()
	router.Use(RateLimit(limiter))
	router.GET("/api/products", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	for i := 0; i < 2; i++ {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "2", w.Header().Get("X-RateLimit-Limit"))
	}

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/products", nil))
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Contains(t, w.Body.String(), "RATE_LIMIT_EXCEEDED")
	assert.Equal(t, "60", w.Header().Get("Retry-After"))
}

func TestRateLimitByKey(t *testing.T) {
	limiter := NewRateLimiter(1, time.Minute)
	defer limiter.Close()

	router := gin.New()
	router.Use(RateLimitByKey(limiter, func(c *gin.Context) string {
		return c.GetHeader("X-Forwarded-Email")
	}))
	router.POST("/api/auth/login", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	send := func(email string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.Header.Set("X-Forwarded-Email", email)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w.Code
	}

	assert.Equal(t, http.StatusOK, send("ada@example.com"))
	assert.Equal(t, http.StatusTooManyRequests, send("ada@example.com"))
	assert.Equal(t, http.StatusOK, send("grace@example.com"))
}
