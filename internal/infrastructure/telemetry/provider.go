package telemetry

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.37.0"
	"go.uber.org/zap"
)

// Config holds tracing configuration
type Config struct {
	Enabled           bool
	CollectorEndpoint string
	SamplingRatio     float64
	ServiceName       string
	Insecure          bool
}

// MetricsConfig holds metrics configuration
type MetricsConfig struct {
	Enabled           bool
	CollectorEndpoint string
	ExportInterval    time.Duration // default 60s
	ServiceName       string
	Insecure          bool
}

func serviceResource(name string) (*resource.Resource, error) {
	return resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(name),
			semconv.ServiceVersion("1.0.0"),
		),
	)
}

// TracerProvider owns the SDK tracer provider. When tracing is disabled the
// global no-op provider stays in place and Shutdown does nothing.
type TracerProvider struct {
	provider *sdktrace.TracerProvider
	logger   *zap.Logger
	config   Config
}

// NewTracerProvider exports spans over OTLP gRPC and installs the provider globally
func NewTracerProvider(ctx context.Context, cfg Config, logger *zap.Logger) (*TracerProvider, error) {
	tp := &TracerProvider{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("Tracing disabled, using no-op tracer provider")
		return tp, nil
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}
	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP trace exporter: %w", err)
	}
	res, err := serviceResource(cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	var sampler sdktrace.Sampler
	switch cfg.SamplingRatio {
	case 1.0:
		sampler = sdktrace.AlwaysSample()
	case 0.0:
		sampler = sdktrace.NeverSample()
	default:
		sampler = sdktrace.TraceIDRatioBased(cfg.SamplingRatio)
	}

	tp.provider = sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sampler),
	)
	otel.SetTracerProvider(tp.provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.Info("Tracer provider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Float64("sampling_ratio", cfg.SamplingRatio))
	return tp, nil
}

// IsEnabled reports whether spans are exported
func (tp *TracerProvider) IsEnabled() bool {
	return tp.provider != nil
}

// Shutdown flushes pending spans
func (tp *TracerProvider) Shutdown(ctx context.Context) error {
	if tp.provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := tp.provider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown tracer provider: %w", err)
	}
	tp.logger.Info("Tracer provider shut down")
	return nil
}

// MeterProvider owns the SDK meter provider
type MeterProvider struct {
	provider *sdkmetric.MeterProvider
	logger   *zap.Logger
	config   MetricsConfig
}

// NewMeterProvider exports metrics over OTLP gRPC and installs the provider globally
func NewMeterProvider(ctx context.Context, cfg MetricsConfig, logger *zap.Logger) (*MeterProvider, error) {
	mp := &MeterProvider{logger: logger, config: cfg}
	if !cfg.Enabled {
		logger.Info("Metrics disabled, using no-op meter provider")
		return mp, nil
	}

	interval := cfg.ExportInterval
	if interval == 0 {
		interval = 60 * time.Second
	}
	opts := []otlpmetricgrpc.Option{otlpmetricgrpc.WithEndpoint(cfg.CollectorEndpoint)}
	if cfg.Insecure {
		opts = append(opts, otlpmetricgrpc.WithInsecure())
	}
	exporter, err := otlpmetricgrpc.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create OTLP metrics exporter: %w", err)
	}
	res, err := serviceResource(cfg.ServiceName)
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	mp.provider = sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, sdkmetric.WithInterval(interval))),
	)
	otel.SetMeterProvider(mp.provider)

	logger.Info("Meter provider initialized",
		zap.String("collector_endpoint", cfg.CollectorEndpoint),
		zap.Duration("export_interval", interval))
	return mp, nil
}

// Meter returns a named meter, falling back to the global provider when disabled
func (mp *MeterProvider) Meter(name string, opts ...metric.MeterOption) metric.Meter {
	if mp.provider == nil {
		return otel.GetMeterProvider().Meter(name, opts...)
	}
	return mp.provider.Meter(name, opts...)
}

// IsEnabled reports whether metrics are exported
func (mp *MeterProvider) IsEnabled() bool {
	return mp.provider != nil
}

// Shutdown flushes pending metrics
func (mp *MeterProvider) Shutdown(ctx context.Context) error {
	if mp.provider == nil {
		return nil
	}
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := mp.provider.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shutdown meter provider: %w", err)
	}
	mp.logger.Info("Meter provider shut down")
	return nil
}
