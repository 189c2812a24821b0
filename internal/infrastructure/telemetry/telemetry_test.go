package telemetry_test

import (
	"context"
	"errors"
	"testing"

	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.uber.org/zap"
)

// setupTestTracer installs an in-memory span recorder as the global provider
func setupTestTracer(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	sr := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(sr))
	original := otel.GetTracerProvider()
	otel.SetTracerProvider(tp)
	t.Cleanup(func() {
		otel.SetTracerProvider(original)
		_ = tp.Shutdown(context.Background())
	})
	return sr
}

func TestStartServiceSpan(t *testing.T) {
	sr := setupTestTracer(t)

	orderID := uuid.New()
	ctx, span := telemetry.StartServiceSpan(context.Background(), "fulfillment", "pack",
		telemetry.WithAttribute(telemetry.SpanAttrOrderID, orderID),
		telemetry.WithAttribute(telemetry.SpanAttrQuantity, 3))
	assert.NotEmpty(t, telemetry.GetTraceID(ctx))
	telemetry.SetAttributes(span, "parcel_count", 1, 42, "skipped")
	telemetry.AddEvent(span, "batch_locked", telemetry.SpanAttrBatchID, "b-1")
	telemetry.SetOK(span)
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "fulfillment.pack", spans[0].Name())
	assert.Equal(t, codes.Ok, spans[0].Status().Code)

	attrs := map[string]string{}
	for _, kv := range spans[0].Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, orderID.String(), attrs[telemetry.SpanAttrOrderID])
	assert.Equal(t, "3", attrs[telemetry.SpanAttrQuantity])
	assert.Equal(t, "1", attrs["parcel_count"])
	require.Len(t, spans[0].Events(), 1)
	assert.Equal(t, "batch_locked", spans[0].Events()[0].Name)
}

func TestRecordError(t *testing.T) {
	sr := setupTestTracer(t)

	_, span := telemetry.StartSpan(context.Background(), "stock_take.evaluate")
	telemetry.RecordError(span, nil)
	telemetry.RecordError(span, errors.New("insufficient stock"))
	span.End()

	spans := sr.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	assert.Equal(t, "insufficient stock", spans[0].Status().Description)
}

func TestGetTraceID_NoSpan(t *testing.T) {
	assert.Empty(t, telemetry.GetTraceID(context.Background()))
}

func TestNewFulfillmentMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{})
	assert.ErrorIs(t, err, telemetry.ErrMeterNil)
	assert.Nil(t, m)
}

func TestFulfillmentMetrics_NilReceiver(t *testing.T) {
	var m *telemetry.FulfillmentMetrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.RecordStockDeducted(ctx, uuid.New(), 3)
		m.RecordParcelPacked(ctx, uuid.New(), 3)
		m.RecordRejectedPacking(ctx, "INSUFFICIENT_STOCK")
		m.RecordDiscrepancies(ctx, "MISSING", 2)
		m.RecordImportRows(ctx, "batches", 10, 1)
		m.RecordTrackingEvents(ctx, 4, 1)
		m.StartPeriodicCollection(ctx)
		m.Stop()
	})
}

func TestFulfillmentMetrics_Counters(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	m, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{
		Meter:  provider.Meter("test"),
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)

	ctx := context.Background()
	warehouseID := uuid.New()
	m.RecordParcelPacked(ctx, warehouseID, 5)
	m.RecordParcelPacked(ctx, warehouseID, 2)
	m.RecordDiscrepancies(ctx, "EXTRA", 0)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			data, ok := metric.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range data.DataPoints {
				sums[metric.Name] += dp.Value
			}
		}
	}
	assert.Equal(t, int64(2), sums["fulfillment_parcels_packed_total"])
	assert.Equal(t, int64(7), sums["fulfillment_units_packed_total"])
	assert.Zero(t, sums["fulfillment_discrepancies_total"])
}

type stubStockProvider struct {
	calls chan struct{}
}

func (s *stubStockProvider) StockByWarehouse(context.Context) (map[uuid.UUID]int64, error) {
	select {
	case s.calls <- struct{}{}:
	default:
	}
	return map[uuid.UUID]int64{uuid.New(): 12}, nil
}

func (s *stubStockProvider) OpenDiscrepancyCount(context.Context) (int64, error) {
	return 0, errors.New("table missing")
}

func TestFulfillmentMetrics_PeriodicCollection(t *testing.T) {
	provider := &stubStockProvider{calls: make(chan struct{}, 1)}
	m, err := telemetry.NewFulfillmentMetrics(telemetry.FulfillmentMetricsConfig{
		Meter:         noop.NewMeterProvider().Meter("test"),
		StockProvider: provider,
	})
	require.NoError(t, err)

	m.StartPeriodicCollection(context.Background())
	<-provider.calls
	m.Stop()
	m.Stop()
}
