package inventory

import (
	"fmt"

	"github.com/google/uuid"
)

// BatchDeduction is one step of a bulk deduction plan
type BatchDeduction struct {
	BatchID       uuid.UUID
	BatchNumber   string
	LocationLabel string
	Quantity      int
}

// PlanFEFODeduction splits quantity across batches in FEFO order, ignoring
// pick priority. Every batch with stock is a candidate, expired or not.
// The plan is all-or-nothing: if the batches together hold less than
// quantity, no plan is returned.
func PlanFEFODeduction(batches []InventoryBatchItem, quantity int) ([]BatchDeduction, error) {
	if quantity <= 0 {
		return nil, NewInvalidQuantityError(fmt.Sprintf("Deduction quantity must be positive, got %d", quantity))
	}

	candidates := make([]InventoryBatchItem, 0, len(batches))
	available := 0
	for _, b := range batches {
		if b.Quantity > 0 {
			candidates = append(candidates, b)
			available += b.Quantity
		}
	}
	if available < quantity {
		return nil, NewInsufficientStockError(quantity, available)
	}

	SortFEFO(candidates)

	plan := make([]BatchDeduction, 0, len(candidates))
	remaining := quantity
	for _, b := range candidates {
		if remaining == 0 {
			break
		}
		take := min(b.Quantity, remaining)
		plan = append(plan, BatchDeduction{
			BatchID:       b.ID,
			BatchNumber:   b.BatchNumber,
			LocationLabel: b.LocationLabel,
			Quantity:      take,
		})
		remaining -= take
	}
	return plan, nil
}

// TotalDeducted sums the quantities of a plan
func TotalDeducted(plan []BatchDeduction) int {
	total := 0
	for _, d := range plan {
		total += d.Quantity
	}
	return total
}
