package inventory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
	"gorm.io/gorm"
)

type fixture struct {
	db         *gorm.DB
	scope      *persistence.GormTransactionScope
	engine     *appinv.StockMutationEngine
	service    *appinv.InventoryService
	stockTakes *appinv.StockTakeService
	erpChecks  *appinv.ErpStockCheckService
	events     *testutil.RecordingPublisher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	scope := persistence.NewGormTransactionScope(db)
	engine := appinv.NewStockMutationEngine()
	events := &testutil.RecordingPublisher{}

	svc := appinv.NewInventoryService(
		persistence.NewGormWarehouseProductRepository(db),
		persistence.NewGormBatchItemRepository(db),
		persistence.NewGormStockTransactionRepository(db),
		scope.Inventory(), engine, nil)
	svc.SetEventPublisher(events)

	st := appinv.NewStockTakeService(
		persistence.NewGormStockTakeRepository(db),
		persistence.NewGormDiscrepancyRepository(db),
		scope.Inventory(), engine, nil)
	st.SetEventPublisher(events)

	erp := appinv.NewErpStockCheckService(persistence.NewGormErpStockCheckRepository(db), scope.Inventory(), nil)

	return &fixture{db: db, scope: scope, engine: engine, service: svc, stockTakes: st, erpChecks: erp, events: events}
}

func (f *fixture) upsert(t *testing.T, warehouseID, productID uuid.UUID, batch, location string, qty int, expiry *time.Time) *appinv.BatchResponse {
	t.Helper()
	b, err := f.service.UpsertBatch(context.Background(), appinv.UpsertBatchRequest{
		WarehouseID:   warehouseID,
		ProductID:     productID,
		BatchNumber:   batch,
		LocationLabel: location,
		Quantity:      qty,
		ExpiryDate:    expiry,
		CostPrice:     decimal.NewFromInt(2),
		Actor:         "importer",
	})
	require.NoError(t, err)
	return b
}

func date(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

func TestInventoryService_DeductFEFO(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	warehouseID, productID := uuid.New(), uuid.New()

	late := f.upsert(t, warehouseID, productID, "LOT-LATE", "A-01", 5, date(2031, 1, 1))
	early := f.upsert(t, warehouseID, productID, "LOT-EARLY", "A-02", 3, date(2030, 6, 1))
	wpID := late.WarehouseProductID

	t.Run("takes the earliest expiry first", func(t *testing.T) {
		entries, err := f.service.Deduct(ctx, appinv.DeductRequest{WarehouseProductID: wpID, Quantity: 4, Actor: "picker"})
		require.NoError(t, err)
		require.Len(t, entries, 2)
		assert.Equal(t, early.ID, *entries[0].BatchItemID)
		assert.Equal(t, -3, entries[0].Quantity)
		assert.Equal(t, late.ID, *entries[1].BatchItemID)
		assert.Equal(t, -1, entries[1].Quantity)

		wp, err := f.service.GetWarehouseProduct(ctx, wpID)
		require.NoError(t, err)
		assert.Equal(t, 4, wp.TotalQuantity)
		assert.Contains(t, f.events.Types(), inventory.EventTypeStockDeducted)
	})

	t.Run("rejects more than available without touching stock", func(t *testing.T) {
		_, err := f.service.Deduct(ctx, appinv.DeductRequest{WarehouseProductID: wpID, Quantity: 99, Actor: "picker"})
		assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

		batches, err := f.service.ListBatches(ctx, wpID)
		require.NoError(t, err)
		total := 0
		for _, b := range batches {
			total += b.Quantity
		}
		assert.Equal(t, 4, total)
	})

	t.Run("ledger stays consistent", func(t *testing.T) {
		v, err := f.service.VerifyLedger(ctx, wpID)
		require.NoError(t, err)
		assert.True(t, v.Consistent)
		assert.Equal(t, 4, v.LedgerSum)
		assert.Equal(t, 4, v.BatchSum)
	})
}

func TestInventoryService_DeductFromBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	warehouseID := uuid.New()
	b := f.upsert(t, warehouseID, uuid.New(), "LOT-1", "A-01", 5, nil)
	other := f.upsert(t, warehouseID, uuid.New(), "LOT-2", "A-01", 5, nil)

	entry, err := f.service.DeductFromBatch(ctx, appinv.DeductFromBatchRequest{
		WarehouseProductID: b.WarehouseProductID, BatchID: b.ID, Quantity: 2, Actor: "picker",
	})
	require.NoError(t, err)
	assert.Equal(t, "OUT", entry.Type)

	_, err = f.service.DeductFromBatch(ctx, appinv.DeductFromBatchRequest{
		WarehouseProductID: b.WarehouseProductID, BatchID: other.ID, Quantity: 1, Actor: "picker",
	})
	assert.ErrorIs(t, err, inventory.ErrBatchMismatch)

	_, err = f.service.DeductFromBatch(ctx, appinv.DeductFromBatchRequest{
		WarehouseProductID: b.WarehouseProductID, BatchID: b.ID, Quantity: 4, Actor: "picker",
	})
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)
}

func TestInventoryService_UpsertAndAdjust(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	warehouseID, productID := uuid.New(), uuid.New()

	b := f.upsert(t, warehouseID, productID, "LOT-1", "A-01", 10, nil)
	again := f.upsert(t, warehouseID, productID, "LOT-1", "A-01", 7, nil)
	assert.Equal(t, b.ID, again.ID, "upsert is keyed by batch and location")
	assert.Equal(t, 7, again.Quantity)

	_, err := f.service.Adjust(ctx, appinv.AdjustRequest{BatchID: b.ID, Delta: -8, Actor: "auditor"})
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	entry, err := f.service.Adjust(ctx, appinv.AdjustRequest{BatchID: b.ID, Delta: 3, Actor: "auditor", Note: "found"})
	require.NoError(t, err)
	assert.Equal(t, "ADJUST", entry.Type)

	history, err := f.service.History(ctx, b.WarehouseProductID)
	require.NoError(t, err)
	types := make([]string, 0, len(history))
	for _, h := range history {
		types = append(types, h.Type)
	}
	assert.Equal(t, []string{"IN", "ADJUST", "ADJUST"}, types)

	v, err := f.service.VerifyLedger(ctx, b.WarehouseProductID)
	require.NoError(t, err)
	assert.True(t, v.Consistent)
	assert.Equal(t, 10, v.BatchSum)
}

func TestInventoryService_SuggestBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	warehouseID, productID := uuid.New(), uuid.New()

	f.upsert(t, warehouseID, productID, "LOT-SMALL", "A-01", 2, date(2030, 1, 1))
	big := f.upsert(t, warehouseID, productID, "LOT-BIG", "A-02", 20, date(2031, 1, 1))

	got, err := f.service.SuggestBatch(ctx, big.WarehouseProductID, 5)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, big.ID, got.ID)

	none, err := f.service.SuggestBatch(ctx, big.WarehouseProductID, 500)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = f.service.SetPickPriority(ctx, big.ID, "bogus")
	assert.Error(t, err)
}

func TestInventoryService_UpsertKeepsReceiptDate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	warehouseID, productID := uuid.New(), uuid.New()

	receive := func(batch string, qty int, received time.Time) *appinv.BatchResponse {
		b, err := f.service.UpsertBatch(ctx, appinv.UpsertBatchRequest{
			WarehouseID:   warehouseID,
			ProductID:     productID,
			BatchNumber:   batch,
			LocationLabel: "A1",
			Quantity:      qty,
			DateReceived:  received,
			Actor:         "importer",
		})
		require.NoError(t, err)
		return b
	}

	old := receive("OLD", 5, *date(2024, 1, 1))
	receive("NEW", 5, *date(2024, 6, 1))

	// stock correction without a receipt date
	corrected := receive("OLD", 4, time.Time{})
	assert.Equal(t, old.ID, corrected.ID)
	assert.Equal(t, "2024-01-01", corrected.DateReceived.UTC().Format("2006-01-02"))

	batches, err := f.service.ListBatches(ctx, old.WarehouseProductID)
	require.NoError(t, err)
	for _, b := range batches {
		if b.ID == old.ID {
			assert.Equal(t, "2024-01-01", b.DateReceived.UTC().Format("2006-01-02"))
		}
	}

	entries, err := f.service.Deduct(ctx, appinv.DeductRequest{WarehouseProductID: old.WarehouseProductID, Quantity: 2, Actor: "picker"})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, old.ID, *entries[0].BatchItemID, "earlier receipt is still consumed first")
}

func TestInventoryService_PublishFailureIsLogged(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.upsert(t, uuid.New(), uuid.New(), "LOT1", "A1", 5, nil)

	core, logs := observer.New(zapcore.WarnLevel)
	failing := &testutil.RecordingPublisher{}
	failing.SetError(errors.New("broker down"))
	svc := appinv.NewInventoryService(
		persistence.NewGormWarehouseProductRepository(f.db),
		persistence.NewGormBatchItemRepository(f.db),
		persistence.NewGormStockTransactionRepository(f.db),
		f.scope.Inventory(), f.engine, zap.New(core))
	svc.SetEventPublisher(failing)

	entry, err := svc.Adjust(ctx, appinv.AdjustRequest{BatchID: b.ID, Delta: 1, Actor: "auditor"})
	require.NoError(t, err, "a failed publish does not undo the committed adjustment")
	assert.Equal(t, 1, entry.Quantity)

	warnings := logs.FilterMessage("failed to publish inventory events").All()
	require.Len(t, warnings, 1)
	assert.Equal(t, "broker down", warnings[0].ContextMap()["error"])
}
