package middleware

import (
	"net/http"
	"strings"

	"github.com/artisanmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// multipartSlack covers form boundaries and part headers around an uploaded file
const multipartSlack = 64 << 10

// BodyLimitOption adjusts BodyLimit
type BodyLimitOption func(*bodyLimits)

type bodyLimits struct {
	json      int64
	multipart int64
}

// WithMultipartLimit lets multipart/form-data requests (catalog CSV imports)
// carry a file of up to fileBytes, independently of the JSON limit.
func WithMultipartLimit(fileBytes int64) BodyLimitOption {
	return func(l *bodyLimits) { l.multipart = fileBytes + multipartSlack }
}

// BodyLimit answers 413 for bodies declaring more than maxBytes and caps
// bodies of unknown length at the same size.
func BodyLimit(maxBytes int64, opts ...BodyLimitOption) gin.HandlerFunc {
	limits := bodyLimits{json: maxBytes, multipart: maxBytes}
	for _, opt := range opts {
		opt(&limits)
	}

	return func(c *gin.Context) {
		limit := limits.json
		if strings.HasPrefix(c.ContentType(), "multipart/") {
			limit = limits.multipart
		}

		if c.Request.ContentLength > limit {
			c.AbortWithStatusJSON(http.StatusRequestEntityTooLarge,
				dto.NewErrorResponseWithRequestID(dto.ErrCodeRequestTooLarge,
					"Request body exceeds maximum allowed size", c.GetString(RequestIDKey)))
			return
		}
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
		}
		c.Next()
	}
}
