package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BatchSpec describes a batch by its natural key plus the attributes an
// import or receipt may set
type BatchSpec struct {
	BatchNumber   string
	LocationLabel string
	ExpiryDate    *time.Time
	DateReceived  time.Time
	CostPrice     decimal.Decimal
	PickPriority  *inventory.PickPriority
}

// StockMutationEngine is the only writer of batch quantities. Every method
// takes the caller's transactional repositories, locks the batch rows it
// changes, re-validates against the locked quantity and appends exactly one
// ledger entry per batch touched.
//
// The engine never recomputes WarehouseProduct totals on its own; callers
// finish each logical action with RecomputeTotals so the cached total is
// written once, after all bookkeeping, inside the same transaction.
type StockMutationEngine struct {
	now func() time.Time
}

// NewStockMutationEngine creates a new StockMutationEngine
func NewStockMutationEngine() *StockMutationEngine {
	return &StockMutationEngine{now: time.Now}
}

// DeductFromBatch takes quantity out of one specific batch, the path used
// for every packed parcel item
func (e *StockMutationEngine) DeductFromBatch(ctx context.Context, repos LedgerRepositories, wpID, batchID uuid.UUID, quantity int, link inventory.LedgerLink) (*inventory.StockTransaction, error) {
	if quantity <= 0 {
		return nil, inventory.NewInvalidQuantityError(fmt.Sprintf("Deduction quantity must be positive, got %d", quantity))
	}
	batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if batch.WarehouseProductID != wpID {
		return nil, inventory.NewBatchMismatchError(batch.ID, wpID)
	}
	if err := batch.Deduct(quantity); err != nil {
		return nil, err
	}
	if err := repos.BatchRepo().Save(ctx, batch); err != nil {
		return nil, err
	}
	return e.writeLedger(ctx, repos, batch, inventory.TransactionTypeOut, -quantity, link)
}

// DeductFEFO consumes quantity across every batch of the warehouse product
// in first-expiry-first-out order, ignoring pick priority. Either the whole
// quantity is deducted or nothing is.
func (e *StockMutationEngine) DeductFEFO(ctx context.Context, repos LedgerRepositories, wpID uuid.UUID, quantity int, link inventory.LedgerLink) ([]inventory.StockTransaction, []inventory.BatchDeduction, error) {
	batches, err := repos.BatchRepo().FindByWarehouseProductForUpdate(ctx, wpID)
	if err != nil {
		return nil, nil, err
	}
	plan, err := inventory.PlanFEFODeduction(batches, quantity)
	if err != nil {
		return nil, nil, err
	}

	byID := make(map[uuid.UUID]*inventory.InventoryBatchItem, len(batches))
	for i := range batches {
		byID[batches[i].ID] = &batches[i]
	}

	entries := make([]inventory.StockTransaction, 0, len(plan))
	for _, step := range plan {
		batch := byID[step.BatchID]
		if err := batch.Deduct(step.Quantity); err != nil {
			return nil, nil, err
		}
		if err := repos.BatchRepo().Save(ctx, batch); err != nil {
			return nil, nil, err
		}
		entry, err := e.writeLedger(ctx, repos, batch, inventory.TransactionTypeOut, -step.Quantity, link)
		if err != nil {
			return nil, nil, err
		}
		entries = append(entries, *entry)
	}
	return entries, plan, nil
}

// Adjust applies a signed correction to one batch
func (e *StockMutationEngine) Adjust(ctx context.Context, repos LedgerRepositories, batchID uuid.UUID, delta int, link inventory.LedgerLink) (*inventory.StockTransaction, *inventory.InventoryBatchItem, error) {
	batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, batchID)
	if err != nil {
		return nil, nil, err
	}
	if err := batch.ApplyDelta(delta); err != nil {
		return nil, nil, err
	}
	if err := repos.BatchRepo().Save(ctx, batch); err != nil {
		return nil, nil, err
	}
	entry, err := e.writeLedger(ctx, repos, batch, inventory.TransactionTypeAdjust, delta, link)
	if err != nil {
		return nil, nil, err
	}
	return entry, batch, nil
}

// Restore puts quantity back into a batch, booked as CANCEL or RETURN
func (e *StockMutationEngine) Restore(ctx context.Context, repos LedgerRepositories, batchID uuid.UUID, quantity int, txType inventory.TransactionType, link inventory.LedgerLink) (*inventory.StockTransaction, error) {
	if txType != inventory.TransactionTypeCancel && txType != inventory.TransactionTypeReturn {
		return nil, shared.NewDomainError(inventory.CodeInvalidTransactionDirection,
			fmt.Sprintf("Cannot restore stock with a %s entry", txType))
	}
	if quantity <= 0 {
		return nil, inventory.NewInvalidQuantityError(fmt.Sprintf("Restored quantity must be positive, got %d", quantity))
	}
	batch, err := repos.BatchRepo().FindByIDForUpdate(ctx, batchID)
	if err != nil {
		return nil, err
	}
	if err := batch.ApplyDelta(quantity); err != nil {
		return nil, err
	}
	if err := repos.BatchRepo().Save(ctx, batch); err != nil {
		return nil, err
	}
	return e.writeLedger(ctx, repos, batch, txType, quantity, link)
}

// Receive adds quantity to the batch identified by spec, creating it on
// first receipt. Booked as IN.
func (e *StockMutationEngine) Receive(ctx context.Context, repos LedgerRepositories, wp *inventory.WarehouseProduct, spec BatchSpec, quantity int, link inventory.LedgerLink) (*inventory.InventoryBatchItem, *inventory.StockTransaction, error) {
	if quantity <= 0 {
		return nil, nil, inventory.NewInvalidQuantityError(fmt.Sprintf("Received quantity must be positive, got %d", quantity))
	}
	batch, created, err := e.lockOrCreate(ctx, repos, wp, spec)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		e.applySpec(batch, spec)
	}
	if err := batch.ApplyDelta(quantity); err != nil {
		return nil, nil, err
	}
	if err := repos.BatchRepo().Save(ctx, batch); err != nil {
		return nil, nil, err
	}
	entry, err := e.writeLedger(ctx, repos, batch, inventory.TransactionTypeIn, quantity, link)
	if err != nil {
		return nil, nil, err
	}
	return batch, entry, nil
}

// Upsert sets the batch identified by spec to an absolute quantity. A new
// batch is booked as IN, an existing one as ADJUST of the difference. No
// ledger entry is written when nothing moved.
func (e *StockMutationEngine) Upsert(ctx context.Context, repos LedgerRepositories, wp *inventory.WarehouseProduct, spec BatchSpec, quantity int, link inventory.LedgerLink) (*inventory.InventoryBatchItem, *inventory.StockTransaction, error) {
	if quantity < 0 {
		return nil, nil, inventory.NewInvalidQuantityError(fmt.Sprintf("Batch quantity cannot be negative, got %d", quantity))
	}
	batch, created, err := e.lockOrCreate(ctx, repos, wp, spec)
	if err != nil {
		return nil, nil, err
	}
	if !created {
		e.applySpec(batch, spec)
	}

	delta := quantity - batch.Quantity
	txType := inventory.TransactionTypeAdjust
	if created {
		txType = inventory.TransactionTypeIn
	}
	if delta != 0 {
		if err := batch.ApplyDelta(delta); err != nil {
			return nil, nil, err
		}
	}
	if err := repos.BatchRepo().Save(ctx, batch); err != nil {
		return nil, nil, err
	}
	if delta == 0 {
		return batch, nil, nil
	}
	entry, err := e.writeLedger(ctx, repos, batch, txType, delta, link)
	if err != nil {
		return nil, nil, err
	}
	return batch, entry, nil
}

// RecomputeTotals rewrites each warehouse product's cached total from the
// live sum of its batches
func (e *StockMutationEngine) RecomputeTotals(ctx context.Context, repos LedgerRepositories, wpIDs ...uuid.UUID) (map[uuid.UUID]*inventory.WarehouseProduct, error) {
	result := make(map[uuid.UUID]*inventory.WarehouseProduct, len(wpIDs))
	for _, id := range wpIDs {
		if _, done := result[id]; done {
			continue
		}
		wp, err := repos.WarehouseProductRepo().FindByID(ctx, id)
		if err != nil {
			return nil, err
		}
		sum, err := repos.BatchRepo().SumQuantity(ctx, id)
		if err != nil {
			return nil, err
		}
		if wp.RecomputeTotal(sum) {
			if err := repos.WarehouseProductRepo().Save(ctx, wp); err != nil {
				return nil, err
			}
		}
		result[id] = wp
	}
	return result, nil
}

func (e *StockMutationEngine) lockOrCreate(ctx context.Context, repos LedgerRepositories, wp *inventory.WarehouseProduct, spec BatchSpec) (*inventory.InventoryBatchItem, bool, error) {
	existing, err := repos.BatchRepo().FindByKey(ctx, wp.ID, spec.BatchNumber, spec.LocationLabel)
	switch {
	case err == nil:
		locked, err := repos.BatchRepo().FindByIDForUpdate(ctx, existing.ID)
		if err != nil {
			return nil, false, err
		}
		return locked, false, nil
	case !errors.Is(err, shared.ErrNotFound):
		return nil, false, err
	}

	received := spec.DateReceived
	if received.IsZero() {
		received = e.now()
	}
	batch, err := inventory.NewInventoryBatchItem(wp, spec.BatchNumber, spec.LocationLabel, 0, spec.ExpiryDate, received, spec.CostPrice)
	if err != nil {
		return nil, false, err
	}
	if spec.PickPriority != nil {
		if err := batch.SetPickPriority(*spec.PickPriority); err != nil {
			return nil, false, err
		}
	}
	return batch, true, nil
}

func (e *StockMutationEngine) applySpec(batch *inventory.InventoryBatchItem, spec BatchSpec) {
	if spec.ExpiryDate != nil {
		d := inventory.DateOnly(*spec.ExpiryDate)
		batch.ExpiryDate = &d
	}
	if !spec.DateReceived.IsZero() {
		batch.DateReceived = inventory.DateOnly(spec.DateReceived)
	}
	if !spec.CostPrice.IsZero() {
		batch.CostPrice = spec.CostPrice
	}
	if spec.PickPriority != nil && spec.PickPriority.IsValid() {
		batch.PickPriority = *spec.PickPriority
	}
}

func (e *StockMutationEngine) writeLedger(ctx context.Context, repos LedgerRepositories, batch *inventory.InventoryBatchItem, txType inventory.TransactionType, quantity int, link inventory.LedgerLink) (*inventory.StockTransaction, error) {
	entry, err := inventory.NewStockTransaction(batch, txType, quantity, link)
	if err != nil {
		return nil, err
	}
	entry.CreatedAt = e.now()
	if err := repos.TransactionRepo().Create(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to write ledger entry: %w", err)
	}
	return entry, nil
}
