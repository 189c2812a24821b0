package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	operatorKey  contextKey = "operator"
)

// WithContext returns a context carrying logger
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the logger stored in ctx, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if l, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// WithRequestID stores the request ID in ctx
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// GetRequestID returns the request ID stored in ctx
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// WithOperator stores the name of the warehouse operator or job acting
// on stock, taken from the X-Operator header or the CLI user.
func WithOperator(ctx context.Context, operator string) context.Context {
	return context.WithValue(ctx, operatorKey, operator)
}

// GetOperator returns the operator stored in ctx
func GetOperator(ctx context.Context) string {
	op, _ := ctx.Value(operatorKey).(string)
	return op
}

// L returns the context logger enriched with trace, request and operator
// fields. Usage: logger.L(ctx).Info("parcel packed", zap.String(...))
func L(ctx context.Context) *zap.Logger {
	return Enrich(ctx, FromContext(ctx))
}

// Enrich adds the correlation fields found in ctx to l
func Enrich(ctx context.Context, l *zap.Logger) *zap.Logger {
	if l == nil {
		l = zap.NewNop()
	}
	var fields []zap.Field
	if sc := trace.SpanContextFromContext(ctx); sc.IsValid() {
		fields = append(fields,
			zap.String("trace_id", sc.TraceID().String()),
			zap.String("span_id", sc.SpanID().String()),
		)
	}
	if id := GetRequestID(ctx); id != "" {
		fields = append(fields, zap.String("request_id", id))
	}
	if op := GetOperator(ctx); op != "" {
		fields = append(fields, zap.String("operator", op))
	}
	if len(fields) == 0 {
		return l
	}
	return l.With(fields...)
}
