package middleware

import (
	"strconv"
	"time"

	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

type httpMetrics struct {
	requestTotal    *telemetry.Counter
	requestDuration metric.Float64Histogram
}

func newHTTPMetrics(meter metric.Meter) (*httpMetrics, error) {
	requestTotal, err := telemetry.NewCounter(meter,
		"http_server_request_total",
		"Total number of HTTP requests",
		"{request}",
	)
	if err != nil {
		return nil, err
	}
	requestDuration, err := meter.Float64Histogram(
		"http_server_request_duration_seconds",
		metric.WithDescription("HTTP request latency distribution in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10),
	)
	if err != nil {
		return nil, err
	}
	return &httpMetrics{requestTotal: requestTotal, requestDuration: requestDuration}, nil
}

// HTTPMetrics records request count and latency per route. A nil meter or
// an instrument error yields a pass-through middleware.
func HTTPMetrics(meter metric.Meter, log *zap.Logger) gin.HandlerFunc {
	if meter == nil {
		return func(c *gin.Context) { c.Next() }
	}
	m, err := newHTTPMetrics(meter)
	if err != nil {
		if log != nil {
			log.Warn("HTTP metrics disabled", zap.Error(err))
		}
		return func(c *gin.Context) { c.Next() }
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		attrs := []attribute.KeyValue{
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", routePattern(c)),
			attribute.String("http.status_group", StatusGroup(c.Writer.Status())),
		}
		ctx := c.Request.Context()
		m.requestTotal.Inc(ctx, attrs...)
		m.requestDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
	}
}

// routePattern returns the matched route, keeping IDs out of metric labels
func routePattern(c *gin.Context) string {
	if p := c.FullPath(); p != "" {
		return p
	}
	return "unmatched"
}

// StatusGroup buckets a status code as 2xx, 3xx, 4xx or 5xx
func StatusGroup(statusCode int) string {
	if statusCode < 100 || statusCode > 599 {
		return "unknown"
	}
	return strconv.Itoa(statusCode/100) + "xx"
}
