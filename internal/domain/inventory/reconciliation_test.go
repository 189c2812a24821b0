package inventory

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func batchAt(t *testing.T, wp *WarehouseProduct, number, location string, qty int) InventoryBatchItem {
	t.Helper()
	b := newBatch(t, wp, number, qty, nil, PickPriorityNone)
	b.LocationLabel = location
	return b
}

func countAt(wp *WarehouseProduct, number, location string, qty int) StockTakeItem {
	return StockTakeItem{
		WarehouseProductID:   wp.ID,
		BatchNumberCounted:   number,
		LocationLabelCounted: location,
		CountedQuantity:      qty,
	}
}

func byType(ds []StockDiscrepancy) map[DiscrepancyType][]StockDiscrepancy {
	out := make(map[DiscrepancyType][]StockDiscrepancy)
	for _, d := range ds {
		out[d.Type] = append(out[d.Type], d)
	}
	return out
}

func TestReconcile(t *testing.T) {
	sessionID := uuid.New()

	t.Run("counted location unknown to the system", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		ds := Reconcile(sessionID, nil, []StockTakeItem{countAt(wp, "LOT1", "A1", 5)})
		require.Len(t, ds, 1)
		d := ds[0]
		assert.Equal(t, DiscrepancyMissingInSystem, d.Type)
		assert.Equal(t, 5, d.CountedQuantity)
		assert.Equal(t, 0, d.SystemQuantity)
		assert.Equal(t, 5, d.DiscrepancyQuantity)
		assert.Equal(t, sessionID, d.SessionID)
		assert.Nil(t, d.SystemBatchItemID)
	})

	t.Run("exact match yields nothing", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		ds := Reconcile(sessionID,
			[]InventoryBatchItem{batchAt(t, wp, "LOT1", "A1", 5)},
			[]StockTakeItem{countAt(wp, "lot1 ", " a1", 5)})
		assert.Empty(t, ds)
	})

	t.Run("quantity mismatch is counted minus system", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		b := batchAt(t, wp, "LOT1", "A1", 10)
		ds := Reconcile(sessionID, []InventoryBatchItem{b}, []StockTakeItem{countAt(wp, "LOT1", "A1", 7)})
		require.Len(t, ds, 1)
		assert.Equal(t, DiscrepancyQuantityMismatch, ds[0].Type)
		assert.Equal(t, -3, ds[0].DiscrepancyQuantity)
		assert.Equal(t, b.ID, *ds[0].SystemBatchItemID)
	})

	t.Run("duplicate count rows are summed", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		ds := Reconcile(sessionID,
			[]InventoryBatchItem{batchAt(t, wp, "LOT1", "A1", 10)},
			[]StockTakeItem{countAt(wp, "LOT1", "A1", 4), countAt(wp, "LOT1", "A1", 6)})
		assert.Empty(t, ds)
	})

	t.Run("uncounted batch is missing in count", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		ds := Reconcile(sessionID, []InventoryBatchItem{batchAt(t, wp, "LOT1", "A1", 4)}, nil)
		require.Len(t, ds, 1)
		assert.Equal(t, DiscrepancyMissingInCount, ds[0].Type)
		assert.Equal(t, -4, ds[0].DiscrepancyQuantity)
	})

	t.Run("empty batches are not expected in the count", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		ds := Reconcile(sessionID, []InventoryBatchItem{batchAt(t, wp, "LOT1", "A1", 0)}, nil)
		assert.Empty(t, ds)
	})

	t.Run("same batch found elsewhere is a location mismatch", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		ds := Reconcile(sessionID,
			[]InventoryBatchItem{batchAt(t, wp, "LOT1", "A1", 5)},
			[]StockTakeItem{countAt(wp, "LOT1", "B7", 5)})
		require.Len(t, ds, 1)
		assert.Equal(t, DiscrepancyLocationMismatch, ds[0].Type)
		assert.Equal(t, "A1", ds[0].SystemLocationLabel)
		assert.Equal(t, "B7", ds[0].CountedLocationLabel)
		assert.Equal(t, 0, ds[0].DiscrepancyQuantity)
	})

	t.Run("different batch at the same location is a batch mismatch", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		ds := Reconcile(sessionID,
			[]InventoryBatchItem{batchAt(t, wp, "LOT1", "A1", 5)},
			[]StockTakeItem{countAt(wp, "LOT2", "A1", 5)})
		require.Len(t, ds, 1)
		assert.Equal(t, DiscrepancyBatchMismatch, ds[0].Type)
		assert.Equal(t, "LOT1", ds[0].SystemBatchNumber)
		assert.Equal(t, "LOT2", ds[0].CountedBatchNumber)
	})

	t.Run("relaxation needs equal quantity and shared metadata", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		ds := Reconcile(sessionID,
			[]InventoryBatchItem{
				batchAt(t, wp, "LOT1", "A1", 5),
				batchAt(t, wp, "LOT3", "C1", 2),
			},
			[]StockTakeItem{
				countAt(wp, "LOT1", "B7", 4),
				countAt(wp, "LOT9", "Z9", 2),
			})
		grouped := byType(ds)
		assert.Len(t, grouped[DiscrepancyMissingInSystem], 2)
		assert.Len(t, grouped[DiscrepancyMissingInCount], 2)
		assert.Empty(t, grouped[DiscrepancyLocationMismatch])
		assert.Empty(t, grouped[DiscrepancyBatchMismatch])
	})

	t.Run("relaxation stays within a warehouse product", func(t *testing.T) {
		wp1 := testWarehouseProduct(t)
		wp2 := testWarehouseProduct(t)
		ds := Reconcile(sessionID,
			[]InventoryBatchItem{batchAt(t, wp1, "LOT1", "A1", 5)},
			[]StockTakeItem{countAt(wp2, "LOT1", "B1", 5)})
		grouped := byType(ds)
		assert.Len(t, grouped[DiscrepancyMissingInSystem], 1)
		assert.Len(t, grouped[DiscrepancyMissingInCount], 1)
	})

	t.Run("each system batch explains at most one count", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		ds := Reconcile(sessionID,
			[]InventoryBatchItem{batchAt(t, wp, "LOT1", "A1", 5)},
			[]StockTakeItem{countAt(wp, "LOT1", "B1", 5), countAt(wp, "LOT1", "C1", 5)})
		grouped := byType(ds)
		assert.Len(t, grouped[DiscrepancyLocationMismatch], 1)
		assert.Len(t, grouped[DiscrepancyMissingInSystem], 1)
		assert.Empty(t, grouped[DiscrepancyMissingInCount])
	})

	t.Run("result is deterministic", func(t *testing.T) {
		wp := testWarehouseProduct(t)
		batches := []InventoryBatchItem{
			batchAt(t, wp, "LOT1", "A1", 5),
			batchAt(t, wp, "LOT2", "A2", 6),
			batchAt(t, wp, "LOT3", "A3", 7),
		}
		items := []StockTakeItem{countAt(wp, "LOT4", "A4", 1), countAt(wp, "LOT2", "A2", 1)}
		first := Reconcile(sessionID, batches, items)
		second := Reconcile(sessionID, batches, items)
		require.Len(t, second, len(first))
		for i := range first {
			assert.Equal(t, first[i].Type, second[i].Type)
			assert.Equal(t, first[i].SystemBatchNumber, second[i].SystemBatchNumber)
			assert.Equal(t, first[i].CountedBatchNumber, second[i].CountedBatchNumber)
		}
	})
}

func TestReconcileERP(t *testing.T) {
	checkID := uuid.New()
	match, short, absent, extra, zero := uuid.New(), uuid.New(), uuid.New(), uuid.New(), uuid.New()

	system := map[uuid.UUID]int{match: 10, short: 10, absent: 4, zero: 0}
	items := []ErpStockCheckItem{
		{WarehouseProductID: match, ERPQuantity: 10},
		{WarehouseProductID: short, ERPQuantity: 7},
		{WarehouseProductID: extra, ERPQuantity: 3},
		{WarehouseProductID: zero, ERPQuantity: 0},
	}

	ds := ReconcileERP(checkID, system, items)
	got := make(map[uuid.UUID]WarehouseProductDiscrepancy)
	for _, d := range ds {
		got[d.WarehouseProductID] = d
	}

	require.Len(t, ds, 3)
	assert.Equal(t, DiscrepancyQuantityMismatch, got[short].Type)
	assert.Equal(t, -3, got[short].DiscrepancyQuantity)
	assert.Equal(t, DiscrepancyMissingInCount, got[absent].Type)
	assert.Equal(t, -4, got[absent].DiscrepancyQuantity)
	assert.Equal(t, DiscrepancyMissingInSystem, got[extra].Type)
	assert.Equal(t, 3, got[extra].DiscrepancyQuantity)
	assert.Equal(t, checkID, got[extra].CheckID)
}

func TestStockTakeSession_Lifecycle(t *testing.T) {
	wp := testWarehouseProduct(t)
	s, err := NewStockTakeSession(wp.WarehouseID, "operator", "")
	require.NoError(t, err)
	assert.Equal(t, StockTakeStatusPending, s.Status)
	assert.Len(t, s.GetDomainEvents(), 1)

	t.Run("cannot evaluate while pending", func(t *testing.T) {
		err := s.MarkEvaluated("lead", time.Now(), 0)
		assert.Error(t, err)
		assert.NotErrorIs(t, err, ErrDuplicateSessionEvaluation)
	})

	item, err := s.AddItem(CountInput{WarehouseProductID: wp.ID, LocationLabel: " A1 ", BatchNumber: "LOT1", Quantity: 3})
	require.NoError(t, err)
	assert.Equal(t, "A1", item.LocationLabelCounted)
	assert.Equal(t, s.ID, item.SessionID)

	_, err = s.AddItem(CountInput{WarehouseProductID: wp.ID, Quantity: -1})
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	require.NoError(t, s.CompleteByOperator("operator"))
	_, err = s.AddItem(CountInput{WarehouseProductID: wp.ID, Quantity: 1})
	assert.Error(t, err)

	require.NoError(t, s.MarkEvaluated("lead", time.Now(), 2))
	assert.True(t, s.IsEvaluated())

	err = s.MarkEvaluated("lead", time.Now(), 2)
	assert.ErrorIs(t, err, ErrDuplicateSessionEvaluation)
}

func TestStockDiscrepancy_CorrectiveDelta(t *testing.T) {
	wp := testWarehouseProduct(t)
	b := batchAt(t, wp, "LOT1", "A1", 10)

	ds := Reconcile(uuid.New(), []InventoryBatchItem{b}, []StockTakeItem{countAt(wp, "LOT1", "A1", 8)})
	require.Len(t, ds, 1)
	id, delta, ok := ds[0].CorrectiveDelta()
	assert.True(t, ok)
	assert.Equal(t, b.ID, id)
	assert.Equal(t, -2, delta)

	missing := Reconcile(uuid.New(), nil, []StockTakeItem{countAt(wp, "LOT1", "A1", 8)})
	_, _, ok = missing[0].CorrectiveDelta()
	assert.False(t, ok)

	ds[0].Resolve("lead", "recounted", time.Now())
	assert.True(t, ds[0].IsResolved)
	assert.Equal(t, "lead", ds[0].ResolvedBy)
	require.NotNil(t, ds[0].ResolvedAt)
}
