package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func seedBatch(t *testing.T, db *gorm.DB, wp *inventory.WarehouseProduct, number, location string, qty int, expiry *time.Time) *inventory.InventoryBatchItem {
	t.Helper()
	b, err := inventory.NewInventoryBatchItem(wp, number, location, qty, expiry, time.Now(), decimal.NewFromInt(3))
	require.NoError(t, err)
	require.NoError(t, NewGormBatchItemRepository(db).Save(context.Background(), b))
	return b
}

func TestWarehouseProductRepository_GetOrCreate(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormWarehouseProductRepository(db)
	ctx := context.Background()
	warehouseID, productID := uuid.New(), uuid.New()

	first, err := repo.GetOrCreate(ctx, warehouseID, productID)
	require.NoError(t, err)
	assert.Equal(t, 0, first.TotalQuantity)

	second, err := repo.GetOrCreate(ctx, warehouseID, productID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&inventory.WarehouseProduct{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)

	found, err := repo.FindByWarehouseAndProduct(ctx, warehouseID, productID)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	_, err = repo.FindByWarehouseAndProduct(ctx, warehouseID, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestBatchItemRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	wp, err := NewGormWarehouseProductRepository(db).GetOrCreate(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)

	expiry := time.Date(2027, 3, 1, 0, 0, 0, 0, time.UTC)
	a := seedBatch(t, db, wp, "LOT-A", "A-01", 5, &expiry)
	seedBatch(t, db, wp, "LOT-B", "B-02", 7, nil)
	repo := NewGormBatchItemRepository(db)

	t.Run("sums live quantities", func(t *testing.T) {
		sum, err := repo.SumQuantity(ctx, wp.ID)
		require.NoError(t, err)
		assert.Equal(t, 12, sum)

		empty, err := repo.SumQuantity(ctx, uuid.New())
		require.NoError(t, err)
		assert.Zero(t, empty)
	})

	t.Run("finds by natural key", func(t *testing.T) {
		got, err := repo.FindByKey(ctx, wp.ID, "LOT-A", "A-01")
		require.NoError(t, err)
		assert.Equal(t, a.ID, got.ID)
		require.NotNil(t, got.ExpiryDate)
		assert.True(t, got.ExpiryDate.Equal(expiry))

		_, err = repo.FindByKey(ctx, wp.ID, "LOT-A", "Z-99")
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("locking read returns every batch", func(t *testing.T) {
		bs, err := repo.FindByWarehouseProductForUpdate(ctx, wp.ID)
		require.NoError(t, err)
		assert.Len(t, bs, 2)
	})

	t.Run("rejects a duplicate batch key", func(t *testing.T) {
		dup, err := inventory.NewInventoryBatchItem(wp, "LOT-A", "A-01", 1, nil, time.Now(), decimal.Zero)
		require.NoError(t, err)
		assert.ErrorIs(t, repo.Save(ctx, dup), shared.ErrAlreadyExists)
	})

	t.Run("persists quantity changes", func(t *testing.T) {
		require.NoError(t, a.Deduct(2))
		require.NoError(t, repo.Save(ctx, a))
		got, err := repo.FindByID(ctx, a.ID)
		require.NoError(t, err)
		assert.Equal(t, 3, got.Quantity)
	})
}

func TestStockTransactionRepository(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	wp, err := NewGormWarehouseProductRepository(db).GetOrCreate(ctx, uuid.New(), uuid.New())
	require.NoError(t, err)
	batch := seedBatch(t, db, wp, "LOT-1", "A-01", 10, nil)
	repo := NewGormStockTransactionRepository(db)

	orderID := uuid.New()
	in, err := inventory.NewStockTransaction(batch, inventory.TransactionTypeIn, 10, inventory.LedgerLink{Reference: "opening"})
	require.NoError(t, err)
	out, err := inventory.NewStockTransaction(batch, inventory.TransactionTypeOut, -4, inventory.LedgerLink{OrderID: &orderID})
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, in))
	require.NoError(t, repo.Create(ctx, out))

	sum, err := repo.SumByWarehouseProduct(ctx, wp.ID)
	require.NoError(t, err)
	assert.Equal(t, 6, sum)

	byOrder, err := repo.FindByOrder(ctx, orderID)
	require.NoError(t, err)
	require.Len(t, byOrder, 1)
	assert.Equal(t, -4, byOrder[0].Quantity)

	all, err := repo.FindByWarehouseProduct(ctx, wp.ID)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStockLevelProvider(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	warehouseID := uuid.New()
	wpRepo := NewGormWarehouseProductRepository(db)
	for _, qty := range []int{4, 6} {
		wp, err := wpRepo.GetOrCreate(ctx, warehouseID, uuid.New())
		require.NoError(t, err)
		wp.RecomputeTotal(qty)
		require.NoError(t, wpRepo.Save(ctx, wp))
	}

	sessionID := uuid.New()
	require.NoError(t, NewGormDiscrepancyRepository(db).CreateAll(ctx, []inventory.StockDiscrepancy{
		{BaseEntity: shared.NewBaseEntity(), SessionID: sessionID, WarehouseProductID: uuid.New(), Type: inventory.DiscrepancyMissingInCount, DiscrepancyQuantity: -2},
	}))

	provider := NewGormStockLevelProvider(db)
	stock, err := provider.StockByWarehouse(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(10), stock[warehouseID])

	open, err := provider.OpenDiscrepancyCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), open)
}
