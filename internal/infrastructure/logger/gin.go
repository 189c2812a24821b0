package logger

import (
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const ginLoggerKey = "logger"

// GinMiddleware logs each request and stores a request-scoped logger in
// both the gin context and the request context
func GinMiddleware(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		ctx := c.Request.Context()

		reqLogger := Enrich(ctx, base).With(
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
		)
		c.Set(ginLoggerKey, reqLogger)
		c.Request = c.Request.WithContext(WithContext(ctx, reqLogger))

		c.Next()

		status := c.Writer.Status()
		fields := []zap.Field{
			zap.Int("status", status),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()),
			zap.Int("body_size", c.Writer.Size()),
		}
		if q := c.Request.URL.RawQuery; q != "" {
			fields = append(fields, zap.String("query", q))
		}
		if len(c.Errors) > 0 {
			fields = append(fields, zap.Strings("errors", c.Errors.Errors()))
		}

		switch {
		case status >= 500:
			reqLogger.Error("HTTP Request", fields...)
		case status >= 400:
			reqLogger.Warn("HTTP Request", fields...)
		default:
			reqLogger.Info("HTTP Request", fields...)
		}
	}
}

// Recovery converts panics into a 500 and logs them with a stack trace
func Recovery(base *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				Enrich(c.Request.Context(), base).Error("Panic recovered",
					zap.String("method", c.Request.Method),
					zap.String("path", c.Request.URL.Path),
					zap.Any("error", r),
					zap.Stack("stacktrace"),
				)
				c.AbortWithStatus(500)
			}
		}()
		c.Next()
	}
}

// GetGinLogger returns the request logger stored by GinMiddleware
func GetGinLogger(c *gin.Context) *zap.Logger {
	if v, ok := c.Get(ginLoggerKey); ok {
		if l, ok := v.(*zap.Logger); ok {
			return l
		}
	}
	return zap.NewNop()
}
