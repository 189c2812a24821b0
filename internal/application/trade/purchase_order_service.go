package trade

import (
	"context"
	"time"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/partner"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// PurchaseOrderService creates purchase orders and books goods received
type PurchaseOrderService struct {
	poRepo         trade.PurchaseOrderRepository
	txScope        TransactionScope
	engine         *appinv.StockMutationEngine
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	now            func() time.Time
}

// NewPurchaseOrderService creates a new PurchaseOrderService
func NewPurchaseOrderService(
	poRepo trade.PurchaseOrderRepository,
	txScope TransactionScope,
	engine *appinv.StockMutationEngine,
	logger *zap.Logger,
) *PurchaseOrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PurchaseOrderService{
		poRepo:  poRepo,
		txScope: txScope,
		engine:  engine,
		logger:  logger,
		now:     time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *PurchaseOrderService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// Create allocates the next number from the supplier's locked sequence row
// and stores an OPEN purchase order
func (s *PurchaseOrderService) Create(ctx context.Context, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	var po *trade.PurchaseOrder
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		supplier, err := repos.SupplierRepo().FindByID(ctx, req.SupplierID)
		if err != nil {
			return err
		}
		seq, err := repos.SupplierRepo().LockSequence(ctx, supplier.ID)
		if err != nil {
			return err
		}
		number := partner.FormatPurchaseOrderNumber(supplier.Code, seq.Next())
		if err := repos.SupplierRepo().SaveSequence(ctx, seq); err != nil {
			return err
		}

		lines := make([]trade.PurchaseOrderLineInput, len(req.Lines))
		for i, l := range req.Lines {
			lines[i] = trade.PurchaseOrderLineInput{ProductID: l.ProductID, Quantity: l.Quantity, UnitCost: l.UnitCost}
		}
		po, err = trade.NewPurchaseOrder(number, supplier.ID, req.WarehouseID, lines, req.CreatedBy)
		if err != nil {
			return err
		}
		return repos.PurchaseOrderRepo().Create(ctx, po)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("purchase order created",
		zap.String("purchase_order_id", po.ID.String()),
		zap.String("number", po.Number),
		zap.Int("lines", len(po.Lines)))
	resp := ToPurchaseOrderResponse(po)
	return &resp, nil
}

// GetByID returns a purchase order with its lines
func (s *PurchaseOrderService) GetByID(ctx context.Context, id uuid.UUID) (*PurchaseOrderResponse, error) {
	po, err := s.poRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	resp := ToPurchaseOrderResponse(po)
	return &resp, nil
}

// Receive books each receipt into its batch as an IN entry linked to the
// purchase order. The cost defaults to the line's unit cost.
func (s *PurchaseOrderService) Receive(ctx context.Context, req ReceivePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	var (
		po       *trade.PurchaseOrder
		received []*inventory.StockReceivedEvent
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		received = nil
		var err error
		po, err = repos.PurchaseOrderRepo().FindByIDForUpdate(ctx, req.PurchaseOrderID)
		if err != nil {
			return err
		}
		poID := po.ID
		link := inventory.LedgerLink{Reference: po.Number, PurchaseOrderID: &poID, Actor: req.Actor}

		var touched []uuid.UUID
		for _, r := range req.Receipts {
			if err := po.Receive(r.LineID, r.Quantity); err != nil {
				return err
			}
			line := po.GetLine(r.LineID)
			wp, err := repos.WarehouseProductRepo().GetOrCreate(ctx, po.WarehouseID, line.ProductID)
			if err != nil {
				return err
			}
			spec := appinv.BatchSpec{
				BatchNumber:   r.BatchNumber,
				LocationLabel: r.LocationLabel,
				ExpiryDate:    r.ExpiryDate,
				DateReceived:  inventory.DateOnly(s.now()),
				CostPrice:     line.UnitCost,
			}
			if r.CostPrice != nil {
				spec.CostPrice = *r.CostPrice
			}
			batch, _, err := s.engine.Receive(ctx, repos, wp, spec, r.Quantity, link)
			if err != nil {
				return err
			}
			received = append(received, inventory.NewStockReceivedEvent(batch, r.Quantity, &poID))
			touched = append(touched, wp.ID)
		}
		if _, err := s.engine.RecomputeTotals(ctx, repos, touched...); err != nil {
			return err
		}
		return repos.PurchaseOrderRepo().Save(ctx, po)
	})
	if err != nil {
		s.logger.Warn("purchase order receipt rejected",
			zap.String("purchase_order_id", req.PurchaseOrderID.String()),
			zap.Error(err))
		return nil, err
	}
	if s.eventPublisher != nil {
		for _, ev := range received {
			if err := s.eventPublisher.Publish(ctx, ev); err != nil {
				s.logger.Warn("failed to publish receipt event",
					zap.String("purchase_order_id", po.ID.String()),
					zap.Error(err))
			}
		}
	}
	s.logger.Info("purchase order received",
		zap.String("number", po.Number),
		zap.String("status", string(po.Status)),
		zap.Int("receipts", len(req.Receipts)))
	resp := ToPurchaseOrderResponse(po)
	return &resp, nil
}
