package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryService handles stock queries and direct stock mutations
type InventoryService struct {
	wpRepo         inventory.WarehouseProductRepository
	batchRepo      inventory.BatchItemRepository
	txRepo         inventory.StockTransactionRepository
	txScope        TransactionScope
	engine         *StockMutationEngine
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	metrics        *telemetry.FulfillmentMetrics
	today          func() time.Time
}

// NewInventoryService creates a new InventoryService
func NewInventoryService(
	wpRepo inventory.WarehouseProductRepository,
	batchRepo inventory.BatchItemRepository,
	txRepo inventory.StockTransactionRepository,
	txScope TransactionScope,
	engine *StockMutationEngine,
	logger *zap.Logger,
) *InventoryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InventoryService{
		wpRepo:    wpRepo,
		batchRepo: batchRepo,
		txRepo:    txRepo,
		txScope:   txScope,
		engine:    engine,
		logger:    logger,
		today:     time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *InventoryService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the fulfillment metrics collector
func (s *InventoryService) SetMetrics(m *telemetry.FulfillmentMetrics) {
	s.metrics = m
}

func (s *InventoryService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish inventory events", zap.Error(err))
	}
}

// EnsureWarehouseProduct returns the warehouse product for the pair, creating it if needed
func (s *InventoryService) EnsureWarehouseProduct(ctx context.Context, warehouseID, productID uuid.UUID) (*WarehouseProductResponse, error) {
	if warehouseID == uuid.Nil || productID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Warehouse and product are required")
	}
	wp, err := s.wpRepo.GetOrCreate(ctx, warehouseID, productID)
	if err != nil {
		return nil, err
	}
	resp := ToWarehouseProductResponse(wp)
	return &resp, nil
}

// GetWarehouseProduct retrieves a warehouse product by ID
func (s *InventoryService) GetWarehouseProduct(ctx context.Context, wpID uuid.UUID) (*WarehouseProductResponse, error) {
	wp, err := s.wpRepo.FindByID(ctx, wpID)
	if err != nil {
		return nil, err
	}
	resp := ToWarehouseProductResponse(wp)
	return &resp, nil
}

// ListBatches returns every batch of a warehouse product
func (s *InventoryService) ListBatches(ctx context.Context, wpID uuid.UUID) ([]BatchResponse, error) {
	batches, err := s.batchRepo.FindByWarehouseProduct(ctx, wpID)
	if err != nil {
		return nil, err
	}
	return ToBatchResponses(batches), nil
}

// History returns the ledger of a warehouse product, oldest first
func (s *InventoryService) History(ctx context.Context, wpID uuid.UUID) ([]LedgerEntryResponse, error) {
	entries, err := s.txRepo.FindByWarehouseProduct(ctx, wpID)
	if err != nil {
		return nil, err
	}
	return ToLedgerEntryResponses(entries), nil
}

// SuggestBatch proposes the batch to pick quantity from. It returns nil
// without error when no batch qualifies.
func (s *InventoryService) SuggestBatch(ctx context.Context, wpID uuid.UUID, quantity int) (*BatchResponse, error) {
	if quantity <= 0 {
		return nil, inventory.NewInvalidQuantityError(fmt.Sprintf("Requested quantity must be positive, got %d", quantity))
	}
	batches, err := s.batchRepo.FindByWarehouseProduct(ctx, wpID)
	if err != nil {
		return nil, err
	}
	batch := inventory.SuggestBatch(batches, quantity, s.today())
	if batch == nil {
		return nil, nil
	}
	resp := ToBatchResponse(batch)
	return &resp, nil
}

// Deduct consumes quantity across all batches in FEFO order
func (s *InventoryService) Deduct(ctx context.Context, req DeductRequest) ([]LedgerEntryResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "inventory", "deduct",
		telemetry.WithAttribute("warehouse_product_id", req.WarehouseProductID.String()),
		telemetry.WithAttribute("quantity", req.Quantity))
	defer span.End()

	link := inventory.LedgerLink{Reference: req.Reference, OrderID: req.OrderID, Actor: req.Actor, Note: req.Note}
	var (
		entries []inventory.StockTransaction
		plan    []inventory.BatchDeduction
		wp      *inventory.WarehouseProduct
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entries, plan, err = s.engine.DeductFEFO(ctx, repos, req.WarehouseProductID, req.Quantity, link)
		if err != nil {
			return err
		}
		totals, err := s.engine.RecomputeTotals(ctx, repos, req.WarehouseProductID)
		if err != nil {
			return err
		}
		wp = totals[req.WarehouseProductID]
		return nil
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.logger.Warn("stock deduction rejected",
			zap.String("warehouse_product_id", req.WarehouseProductID.String()),
			zap.Int("quantity", req.Quantity),
			zap.Error(err))
		return nil, err
	}
	telemetry.SetOK(span)

	s.metrics.RecordStockDeducted(ctx, wp.WarehouseID, int64(req.Quantity))
	s.publish(ctx, inventory.NewStockDeductedEvent(wp, plan, req.OrderID))
	s.logger.Info("stock deducted",
		zap.String("warehouse_product_id", wp.ID.String()),
		zap.Int("quantity", req.Quantity),
		zap.Int("batches", len(plan)),
		zap.Int("remaining", wp.TotalQuantity))
	return ToLedgerEntryResponses(entries), nil
}

// DeductFromBatch takes quantity out of one specific batch
func (s *InventoryService) DeductFromBatch(ctx context.Context, req DeductFromBatchRequest) (*LedgerEntryResponse, error) {
	link := inventory.LedgerLink{OrderID: req.OrderID, Actor: req.Actor, Note: req.Note}
	var (
		entry *inventory.StockTransaction
		wp    *inventory.WarehouseProduct
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, err = s.engine.DeductFromBatch(ctx, repos, req.WarehouseProductID, req.BatchID, req.Quantity, link)
		if err != nil {
			return err
		}
		totals, err := s.engine.RecomputeTotals(ctx, repos, req.WarehouseProductID)
		if err != nil {
			return err
		}
		wp = totals[req.WarehouseProductID]
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.metrics.RecordStockDeducted(ctx, wp.WarehouseID, int64(req.Quantity))
	s.publish(ctx, inventory.NewStockDeductedEvent(wp, []inventory.BatchDeduction{{
		BatchID:  req.BatchID,
		Quantity: req.Quantity,
	}}, req.OrderID))
	resp := ToLedgerEntryResponse(entry)
	return &resp, nil
}

// Adjust applies a signed manual correction to a batch
func (s *InventoryService) Adjust(ctx context.Context, req AdjustRequest) (*LedgerEntryResponse, error) {
	if req.Delta == 0 {
		return nil, inventory.NewInvalidQuantityError("Adjustment delta cannot be zero")
	}
	link := inventory.LedgerLink{Actor: req.Actor, Note: req.Note}
	var (
		entry *inventory.StockTransaction
		batch *inventory.InventoryBatchItem
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		entry, batch, err = s.engine.Adjust(ctx, repos, req.BatchID, req.Delta, link)
		if err != nil {
			return err
		}
		_, err = s.engine.RecomputeTotals(ctx, repos, batch.WarehouseProductID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.publish(ctx, inventory.NewStockAdjustedEvent(batch, req.Delta, req.Actor))
	s.logger.Info("stock adjusted",
		zap.String("batch_id", batch.ID.String()),
		zap.Int("delta", req.Delta),
		zap.String("actor", req.Actor))
	resp := ToLedgerEntryResponse(entry)
	return &resp, nil
}

// UpsertBatch creates or updates a batch keyed by
// (warehouse product, batch number, location label)
func (s *InventoryService) UpsertBatch(ctx context.Context, req UpsertBatchRequest) (*BatchResponse, error) {
	spec, err := toBatchSpec(req)
	if err != nil {
		return nil, err
	}
	link := inventory.LedgerLink{Reference: req.Reference, Actor: req.Actor, Note: "batch upsert"}
	var batch *inventory.InventoryBatchItem
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		wp, err := repos.WarehouseProductRepo().GetOrCreate(ctx, req.WarehouseID, req.ProductID)
		if err != nil {
			return err
		}
		batch, _, err = s.engine.Upsert(ctx, repos, wp, spec, req.Quantity, link)
		if err != nil {
			return err
		}
		_, err = s.engine.RecomputeTotals(ctx, repos, wp.ID)
		return err
	})
	if err != nil {
		return nil, err
	}
	resp := ToBatchResponse(batch)
	return &resp, nil
}

// SetPickPriority changes which suggestion tier a batch belongs to
func (s *InventoryService) SetPickPriority(ctx context.Context, batchID uuid.UUID, priority string) (*BatchResponse, error) {
	p, err := inventory.ParsePickPriority(priority)
	if err != nil {
		return nil, err
	}
	var batch *inventory.InventoryBatchItem
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		batch, err = repos.BatchRepo().FindByIDForUpdate(ctx, batchID)
		if err != nil {
			return err
		}
		if err := batch.SetPickPriority(p); err != nil {
			return err
		}
		return repos.BatchRepo().Save(ctx, batch)
	})
	if err != nil {
		return nil, err
	}
	resp := ToBatchResponse(batch)
	return &resp, nil
}

// VerifyLedger compares the signed ledger sum with the live batch sum and
// the cached total of a warehouse product
func (s *InventoryService) VerifyLedger(ctx context.Context, wpID uuid.UUID) (*LedgerVerification, error) {
	wp, err := s.wpRepo.FindByID(ctx, wpID)
	if err != nil {
		return nil, err
	}
	ledgerSum, err := s.txRepo.SumByWarehouseProduct(ctx, wpID)
	if err != nil {
		return nil, err
	}
	batchSum, err := s.batchRepo.SumQuantity(ctx, wpID)
	if err != nil {
		return nil, err
	}
	v := &LedgerVerification{
		WarehouseProductID: wpID,
		LedgerSum:          ledgerSum,
		BatchSum:           batchSum,
		CachedTotal:        wp.TotalQuantity,
		Drift:              batchSum - ledgerSum,
	}
	v.Consistent = v.Drift == 0 && wp.TotalQuantity == batchSum
	if !v.Consistent {
		s.logger.Warn("ledger drift detected",
			zap.String("warehouse_product_id", wpID.String()),
			zap.Int("ledger_sum", ledgerSum),
			zap.Int("batch_sum", batchSum),
			zap.Int("cached_total", wp.TotalQuantity))
	}
	return v, nil
}

func toBatchSpec(req UpsertBatchRequest) (BatchSpec, error) {
	spec := BatchSpec{
		BatchNumber:   req.BatchNumber,
		LocationLabel: req.LocationLabel,
		ExpiryDate:    req.ExpiryDate,
		DateReceived:  req.DateReceived,
		CostPrice:     req.CostPrice,
	}
	if req.PickPriority != "" {
		p, err := inventory.ParsePickPriority(req.PickPriority)
		if err != nil {
			return BatchSpec{}, err
		}
		spec.PickPriority = &p
	}
	return spec, nil
}
