package telemetry

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when metrics are built without a meter
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// StockLevelProvider supplies the periodically sampled stock gauges
type StockLevelProvider interface {
	// StockByWarehouse returns the summed warehouse product totals per warehouse
	StockByWarehouse(ctx context.Context) (map[uuid.UUID]int64, error)
	// OpenDiscrepancyCount returns the number of unresolved stock-take discrepancies
	OpenDiscrepancyCount(ctx context.Context) (int64, error)
}

// FulfillmentMetricsConfig configures FulfillmentMetrics
type FulfillmentMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // default 5m
	StockProvider   StockLevelProvider
}

// FulfillmentMetrics records stock and fulfillment counters. All methods
// are safe on a nil receiver so services can run without metrics.
type FulfillmentMetrics struct {
	logger *zap.Logger

	stockDeducted     *Counter
	unitsPacked       *Counter
	parcelsPacked     *Counter
	packingRejected   *Counter
	discrepancies     *Counter
	importRows        *Counter
	trackingEvents    *Counter
	stockOnHand       *Gauge
	openDiscrepancies *Gauge

	provider StockLevelProvider
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewFulfillmentMetrics creates the instruments on cfg.Meter
func NewFulfillmentMetrics(cfg FulfillmentMetricsConfig) (*FulfillmentMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := cfg.CollectInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	m := &FulfillmentMetrics{
		logger:   logger,
		provider: cfg.StockProvider,
		interval: interval,
		stopCh:   make(chan struct{}),
	}

	counters := []struct {
		dst              **Counter
		name, desc, unit string
	}{
		{&m.stockDeducted, "fulfillment_stock_deducted_total", "Units deducted from batches", "{units}"},
		{&m.unitsPacked, "fulfillment_units_packed_total", "Units packed into parcels", "{units}"},
		{&m.parcelsPacked, "fulfillment_parcels_packed_total", "Parcels packed", "{parcels}"},
		{&m.packingRejected, "fulfillment_packing_rejected_total", "Rejected packing attempts by error code", "{attempts}"},
		{&m.discrepancies, "fulfillment_discrepancies_total", "Stock discrepancies found by kind", "{discrepancies}"},
		{&m.importRows, "fulfillment_import_rows_total", "Imported rows by kind and outcome", "{rows}"},
		{&m.trackingEvents, "fulfillment_tracking_events_total", "Courier tracking events by outcome", "{events}"},
	}
	for _, c := range counters {
		counter, err := NewCounter(cfg.Meter, c.name, c.desc, c.unit)
		if err != nil {
			return nil, err
		}
		*c.dst = counter
	}

	var err error
	if m.stockOnHand, err = NewGauge(cfg.Meter, "fulfillment_stock_on_hand", "Units on hand per warehouse", "{units}"); err != nil {
		return nil, err
	}
	if m.openDiscrepancies, err = NewGauge(cfg.Meter, "fulfillment_open_discrepancies", "Unresolved stock-take discrepancies", "{discrepancies}"); err != nil {
		return nil, err
	}
	return m, nil
}

// RecordStockDeducted counts units taken out of stock
func (m *FulfillmentMetrics) RecordStockDeducted(ctx context.Context, warehouseID uuid.UUID, qty int64) {
	if m == nil || qty <= 0 {
		return
	}
	m.stockDeducted.Add(ctx, qty, AttrWarehouseID.String(warehouseID.String()))
}

// RecordParcelPacked counts a packed parcel and its units
func (m *FulfillmentMetrics) RecordParcelPacked(ctx context.Context, warehouseID uuid.UUID, qty int64) {
	if m == nil {
		return
	}
	attr := AttrWarehouseID.String(warehouseID.String())
	m.parcelsPacked.Inc(ctx, attr)
	m.unitsPacked.Add(ctx, qty, attr)
	m.stockDeducted.Add(ctx, qty, attr)
}

// RecordRejectedPacking counts a packing attempt rejected with code
func (m *FulfillmentMetrics) RecordRejectedPacking(ctx context.Context, code string) {
	if m == nil {
		return
	}
	m.packingRejected.Inc(ctx, AttrErrorCode.String(code))
}

// RecordDiscrepancies counts n discrepancies of one kind
func (m *FulfillmentMetrics) RecordDiscrepancies(ctx context.Context, kind string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.discrepancies.Add(ctx, n, AttrKind.String(kind))
}

// RecordImportRows counts imported and failed rows of one import kind
func (m *FulfillmentMetrics) RecordImportRows(ctx context.Context, kind string, ok, failed int64) {
	if m == nil {
		return
	}
	m.importRows.Add(ctx, ok, AttrKind.String(kind), AttrOutcome.String("imported"))
	m.importRows.Add(ctx, failed, AttrKind.String(kind), AttrOutcome.String("failed"))
}

// RecordTrackingEvents counts applied and duplicate courier events
func (m *FulfillmentMetrics) RecordTrackingEvents(ctx context.Context, applied, duplicates int64) {
	if m == nil {
		return
	}
	m.trackingEvents.Add(ctx, applied, AttrOutcome.String("applied"))
	m.trackingEvents.Add(ctx, duplicates, AttrOutcome.String("duplicate"))
}

// StartPeriodicCollection samples the stock gauges until ctx is done or
// Stop is called. It does nothing without a StockLevelProvider.
func (m *FulfillmentMetrics) StartPeriodicCollection(ctx context.Context) {
	if m == nil || m.provider == nil {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		ticker := time.NewTicker(m.interval)
		defer ticker.Stop()
		m.collect(ctx)
		for {
			select {
			case <-ctx.Done():
				return
			case <-m.stopCh:
				return
			case <-ticker.C:
				m.collect(ctx)
			}
		}
	}()
}

func (m *FulfillmentMetrics) collect(ctx context.Context) {
	stock, err := m.provider.StockByWarehouse(ctx)
	if err != nil {
		m.logger.Warn("failed to collect stock levels", zap.Error(err))
	} else {
		for warehouseID, qty := range stock {
			m.stockOnHand.Record(ctx, qty, AttrWarehouseID.String(warehouseID.String()))
		}
	}
	open, err := m.provider.OpenDiscrepancyCount(ctx)
	if err != nil {
		m.logger.Warn("failed to collect open discrepancies", zap.Error(err))
		return
	}
	m.openDiscrepancies.Record(ctx, open)
}

// Stop ends periodic collection and waits for it to exit
func (m *FulfillmentMetrics) Stop() {
	if m == nil {
		return
	}
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
}
