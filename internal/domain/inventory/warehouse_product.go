package inventory

import (
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// WarehouseProduct is a product's presence in one warehouse. TotalQuantity
// is a cache of the sum of its batches and is only ever written by
// RecomputeTotal.
type WarehouseProduct struct {
	shared.BaseAggregateRoot
	WarehouseID   uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_warehouse_product,priority:1"`
	ProductID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_warehouse_product,priority:2"`
	TotalQuantity int       `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (WarehouseProduct) TableName() string {
	return "warehouse_products"
}

// NewWarehouseProduct creates an empty warehouse product
func NewWarehouseProduct(warehouseID, productID uuid.UUID) (*WarehouseProduct, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_PRODUCT", "Product ID cannot be empty")
	}
	return &WarehouseProduct{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       warehouseID,
		ProductID:         productID,
	}, nil
}

// RecomputeTotal replaces the cached total with the live sum of batches.
// Returns true when the stored value changed.
func (wp *WarehouseProduct) RecomputeTotal(liveSum int) bool {
	if wp.TotalQuantity == liveSum {
		return false
	}
	wp.TotalQuantity = liveSum
	wp.IncrementVersion()
	return true
}

// SumBatchQuantities adds up the quantities of the given batches
func SumBatchQuantities(batches []InventoryBatchItem) int {
	total := 0
	for _, b := range batches {
		total += b.Quantity
	}
	return total
}
