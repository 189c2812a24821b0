package inventory

import (
	"context"

	"github.com/google/uuid"
)

// WarehouseProductRepository defines persistence for warehouse products
type WarehouseProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*WarehouseProduct, error)
	FindByWarehouseAndProduct(ctx context.Context, warehouseID, productID uuid.UUID) (*WarehouseProduct, error)
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]WarehouseProduct, error)
	// GetOrCreate returns the existing row or inserts an empty one
	GetOrCreate(ctx context.Context, warehouseID, productID uuid.UUID) (*WarehouseProduct, error)
	Save(ctx context.Context, wp *WarehouseProduct) error
}

// BatchItemRepository defines persistence for inventory batches.
// The ForUpdate variants take row locks and must run inside a transaction.
type BatchItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*InventoryBatchItem, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*InventoryBatchItem, error)
	FindByWarehouseProduct(ctx context.Context, wpID uuid.UUID) ([]InventoryBatchItem, error)
	FindByWarehouseProductForUpdate(ctx context.Context, wpID uuid.UUID) ([]InventoryBatchItem, error)
	FindByKey(ctx context.Context, wpID uuid.UUID, batchNumber, locationLabel string) (*InventoryBatchItem, error)
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]InventoryBatchItem, error)
	SumQuantity(ctx context.Context, wpID uuid.UUID) (int, error)
	Save(ctx context.Context, batch *InventoryBatchItem) error
}

// StockTransactionRepository is the append-only ledger
type StockTransactionRepository interface {
	Create(ctx context.Context, entry *StockTransaction) error
	FindByWarehouseProduct(ctx context.Context, wpID uuid.UUID) ([]StockTransaction, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]StockTransaction, error)
	SumByWarehouseProduct(ctx context.Context, wpID uuid.UUID) (int, error)
}

// StockTakeRepository persists sessions and their counted items
type StockTakeRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*StockTakeSession, error)
	// FindByIDForUpdate locks the session row so concurrent evaluations serialise
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*StockTakeSession, error)
	FindByWarehouse(ctx context.Context, warehouseID uuid.UUID) ([]StockTakeSession, error)
	Save(ctx context.Context, session *StockTakeSession) error
	AddItem(ctx context.Context, item *StockTakeItem) error
	FindItems(ctx context.Context, sessionID uuid.UUID) ([]StockTakeItem, error)
}

// DiscrepancyRepository persists stock-take findings
type DiscrepancyRepository interface {
	CreateAll(ctx context.Context, discrepancies []StockDiscrepancy) error
	FindByID(ctx context.Context, id uuid.UUID) (*StockDiscrepancy, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*StockDiscrepancy, error)
	FindBySession(ctx context.Context, sessionID uuid.UUID) ([]StockDiscrepancy, error)
	Save(ctx context.Context, d *StockDiscrepancy) error
}

// ErpStockCheckRepository persists ERP checks and their findings
type ErpStockCheckRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*ErpStockCheck, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*ErpStockCheck, error)
	Create(ctx context.Context, check *ErpStockCheck) error
	Save(ctx context.Context, check *ErpStockCheck) error
	CreateDiscrepancies(ctx context.Context, discrepancies []WarehouseProductDiscrepancy) error
	FindDiscrepancies(ctx context.Context, checkID uuid.UUID) ([]WarehouseProductDiscrepancy, error)
}
