package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestSwaggerProtection(t *testing.T) {
	tests := []struct {
		name       string
		cfg        SwaggerConfig
		remoteAddr string
		want       int
	}{
		{"disabled", SwaggerConfig{Enabled: false}, "127.0.0.1:5000", http.StatusNotFound},
		{"open", SwaggerConfig{Enabled: true}, "203.0.113.7:5000", http.StatusOK},
		{"exact ip allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"127.0.0.1"}}, "127.0.0.1:5000", http.StatusOK},
		{"cidr allowed", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8"}}, "10.20.30.40:5000", http.StatusOK},
		{"outside list", SwaggerConfig{Enabled: true, AllowedIPs: []string{"10.0.0.0/8", "127.0.0.1"}}, "203.0.113.7:5000", http.StatusForbidden},
		{"garbage entries only", SwaggerConfig{Enabled: true, AllowedIPs: []string{"not-an-ip"}}, "127.0.0.1:5000", http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			router := gin.New()
			router.GET("/swagger/*any", SwaggerProtection(tt.cfg), func(c *gin.Context) {
				c.String(http.StatusOK, "docs")
			})

			req := httptest.NewRequest(http.MethodGet, "/swagger/index.html", nil)
			req.RemoteAddr = tt.remoteAddr
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestIPAllowed(t *testing.T) {
	assert.False(t, ipAllowed("", nil))
	assert.False(t, ipAllowed("::1", nil))
}
