// Package middleware provides HTTP middleware for the fulfillment API.
package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// MaxRequestIDLength is the maximum length kept from a client request ID
const MaxRequestIDLength = 128

// TracingConfig holds configuration for the tracing middleware.
type TracingConfig struct {
	ServiceName string
	Enabled     bool
}

// DefaultTracingConfig returns default tracing configuration.
func DefaultTracingConfig() TracingConfig {
	return TracingConfig{
		ServiceName: "fulfillment",
		Enabled:     true,
	}
}

// Tracing returns OpenTelemetry tracing middleware with default configuration.
func Tracing() gin.HandlerFunc {
	return TracingWithConfig(DefaultTracingConfig())
}

// TracingWithConfig wraps otelgin and tags the server span with the
// request ID and operator. Place it after RequestID and Operator.
func TracingWithConfig(cfg TracingConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return otelgin.Middleware(cfg.ServiceName)
}

// TracingAttributeInjector adds request attributes to the span created by
// Tracing. It runs inside the otelgin span, so it must come after Tracing.
func TracingAttributeInjector() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if span.IsRecording() {
			if id := GetRequestID(c); id != "" {
				span.SetAttributes(attribute.String("request_id", id))
			}
			if op := GetOperator(c); op != "" {
				span.SetAttributes(attribute.String("operator", op))
			}
		}
		c.Next()
	}
}

// SpanErrorMarker marks the span as failed for 4xx and 5xx responses.
func SpanErrorMarker() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			return
		}

		statusCode := c.Writer.Status()
		if statusCode < http.StatusBadRequest {
			return
		}
		msg := "Client Error"
		switch {
		case statusCode >= http.StatusInternalServerError:
			msg = "Internal Server Error"
		case statusCode == http.StatusNotFound:
			msg = "Not Found"
		case statusCode == http.StatusConflict:
			msg = "Conflict"
		}
		span.SetStatus(codes.Error, msg)
		span.SetAttributes(attribute.Int("http.status_code", statusCode))
	}
}
