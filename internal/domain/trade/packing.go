package trade

import (
	"fmt"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// PackAllocation assigns a quantity of one order line to one batch
type PackAllocation struct {
	OrderItemID uuid.UUID
	Quantity    int
	Batch       *inventory.InventoryBatchItem
}

// ValidatePacking checks a whole packing request before anything is
// mutated. Several allocations may target the same line or batch; their
// quantities are checked in aggregate.
func (o *Order) ValidatePacking(allocs []PackAllocation) error {
	if !o.CanPack() {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot pack an order in %s status", o.Status))
	}
	if len(allocs) == 0 {
		return shared.NewDomainError("NO_ITEMS", "Packing requires at least one allocation")
	}

	perItem := make(map[uuid.UUID]int)
	perBatch := make(map[uuid.UUID]int)
	for _, a := range allocs {
		item := o.GetItem(a.OrderItemID)
		if item == nil {
			return shared.NewDomainError("ITEM_NOT_FOUND", fmt.Sprintf("Order item %s does not belong to order %s", a.OrderItemID, o.ID))
		}
		if a.Quantity <= 0 {
			return inventory.NewInvalidQuantityError(fmt.Sprintf("Packed quantity must be positive, got %d", a.Quantity))
		}
		if a.Batch == nil {
			return shared.NewDomainError("BATCH_REQUIRED", fmt.Sprintf("No batch selected for order item %s", item.ID))
		}
		if a.Batch.WarehouseProductID != item.WarehouseProductID {
			return inventory.NewBatchMismatchError(a.Batch.ID, item.WarehouseProductID)
		}

		perBatch[a.Batch.ID] += a.Quantity
		if perBatch[a.Batch.ID] > a.Batch.Quantity {
			return inventory.NewInsufficientStockError(perBatch[a.Batch.ID], a.Batch.Quantity)
		}
		perItem[item.ID] += a.Quantity
		if balance := o.Balance(item); perItem[item.ID] > balance {
			return inventory.NewInvalidQuantityError(
				fmt.Sprintf("Packing %d of item %s exceeds its remaining balance of %d", perItem[item.ID], item.ID, balance))
		}
	}
	return nil
}
