package logger

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ginLoggerKey = "logger"

// GinOption configures GinMiddleware
type GinOption func(*ginOptions)

type ginOptions struct {
	quiet map[string]bool
}

// WithQuietPaths drops the access line for successful requests to paths, such
// as the /health and /ready checks. Failures are still logged.
func WithQuietPaths(paths ...string) GinOption {
	return func(o *ginOptions) {
		for _, p := range paths {
			o.quiet[p] = true
		}
	}
}

// GinMiddleware binds a request logger to the gin context and the request
// context, then writes one access line when the handler chain returns.
// It expects the request ID middleware to run first.
func GinMiddleware(base *zap.Logger, opts ...GinOption) gin.HandlerFunc {
	o := ginOptions{quiet: map[string]bool{}}
	for _, opt := range opts {
		opt(&o)
	}

	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetString("request_id")

		reqLog := base.With(zap.String("method", c.Request.Method), zap.String("path", c.Request.URL.Path))
		ctx, reqLog := WithRequestID(c.Request.Context(), reqLog, requestID)
		c.Set(ginLoggerKey, reqLog)
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		if status < http.StatusBadRequest && o.quiet[c.Request.URL.Path] {
			return
		}

		fields := make([]zap.Field, 0, 9)
		fields = append(fields,
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		)
		if route := c.FullPath(); route != "" {
			fields = append(fields, zap.String("route", route))
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if ua := c.Request.UserAgent(); ua != "" {
			fields = append(fields, zap.String("user_agent", ua))
		}
		if uid := c.GetString("jwt_user_id"); uid != "" {
			fields = append(fields, zap.String("user_id", uid))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= http.StatusInternalServerError:
			reqLog.Error("HTTP Request", fields...)
		case status >= http.StatusBadRequest:
			reqLog.Warn("HTTP Request", fields...)
		default:
			reqLog.Info("HTTP Request", fields...)
		}
	}
}

// Recovery converts a panic into the standard 500 error envelope
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			base.Error("Panic recovered",
				zap.String("request_id", c.GetString("request_id")),
				zap.String("method", c.Request.Method),
				zap.String("path", c.Request.URL.Path),
				zap.Any("panic", rec),
				zap.Stack("stacktrace"),
			)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
				"success": false,
				"message": "Internal server error",
				"error":   gin.H{"code": "INTERNAL_ERROR", "message": "Internal server error"},
			})
		}()
		c.Next()
	}
}

// GetGinLogger returns the request logger bound by GinMiddleware, or a no-op logger
func GetGinLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
