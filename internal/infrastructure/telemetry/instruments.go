package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys
var (
	AttrWarehouseID = attribute.Key("warehouse_id")
	AttrKind        = attribute.Key("kind")
	AttrOutcome     = attribute.Key("outcome")
	AttrErrorCode   = attribute.Key("error_code")
)

// Counter wraps a monotonically increasing int64 instrument
type Counter struct {
	counter metric.Int64Counter
}

// NewCounter creates a Counter
func NewCounter(meter metric.Meter, name, description, unit string) (*Counter, error) {
	c, err := meter.Int64Counter(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create counter %s: %w", name, err)
	}
	return &Counter{counter: c}, nil
}

// Add increments the counter by value
func (c *Counter) Add(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, value, metric.WithAttributes(attrs...))
}

// Inc increments the counter by one
func (c *Counter) Inc(ctx context.Context, attrs ...attribute.KeyValue) {
	c.counter.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// Gauge wraps a point-in-time int64 instrument
type Gauge struct {
	gauge metric.Int64Gauge
}

// NewGauge creates a Gauge
func NewGauge(meter metric.Meter, name, description, unit string) (*Gauge, error) {
	g, err := meter.Int64Gauge(name, metric.WithDescription(description), metric.WithUnit(unit))
	if err != nil {
		return nil, fmt.Errorf("failed to create gauge %s: %w", name, err)
	}
	return &Gauge{gauge: g}, nil
}

// Record sets the gauge
func (g *Gauge) Record(ctx context.Context, value int64, attrs ...attribute.KeyValue) {
	g.gauge.Record(ctx, value, metric.WithAttributes(attrs...))
}
