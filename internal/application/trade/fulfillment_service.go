package trade

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// FulfillmentService orchestrates order packing, removals and the order
// status lifecycle. Every stock movement goes through the mutation engine
// inside the same transaction as the order bookkeeping.
type FulfillmentService struct {
	orderRepo      trade.OrderRepository
	parcelRepo     trade.ParcelRepository
	txScope        TransactionScope
	engine         *appinv.StockMutationEngine
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	metrics        *telemetry.FulfillmentMetrics
	now            func() time.Time
}

// NewFulfillmentService creates a new FulfillmentService
func NewFulfillmentService(
	orderRepo trade.OrderRepository,
	parcelRepo trade.ParcelRepository,
	txScope TransactionScope,
	engine *appinv.StockMutationEngine,
	logger *zap.Logger,
) *FulfillmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FulfillmentService{
		orderRepo:  orderRepo,
		parcelRepo: parcelRepo,
		txScope:    txScope,
		engine:     engine,
		logger:     logger,
		now:        time.Now,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *FulfillmentService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the fulfillment metrics collector
func (s *FulfillmentService) SetMetrics(m *telemetry.FulfillmentMetrics) {
	s.metrics = m
}

type eventSource interface {
	GetDomainEvents() []shared.DomainEvent
	ClearDomainEvents()
}

func (s *FulfillmentService) publishDomainEvents(ctx context.Context, sources ...eventSource) {
	if s.eventPublisher == nil {
		return
	}
	for _, src := range sources {
		events := src.GetDomainEvents()
		if len(events) == 0 {
			continue
		}
		if err := s.eventPublisher.Publish(ctx, events...); err != nil {
			s.logger.Warn("failed to publish domain events", zap.Error(err))
		}
		src.ClearDomainEvents()
	}
}

func orderLink(o *trade.Order, actor, note string) inventory.LedgerLink {
	id := o.ID
	return inventory.LedgerLink{
		Reference: o.ERPOrderID,
		OrderID:   &id,
		Actor:     actor,
		Note:      note,
	}
}

// CreateOrder stores a DRAFT order. The ERP order ID is unique; each line's
// warehouse product is created on first use.
func (s *FulfillmentService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*OrderResponse, error) {
	order, err := trade.NewOrder(req.ERPOrderID, req.WarehouseID, req.Customer, req.IsCold)
	if err != nil {
		return nil, err
	}
	err = s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.OrderRepo().FindByERPOrderID(ctx, order.ERPOrderID); err == nil {
			return shared.NewDomainError(shared.ErrAlreadyExists.Code,
				fmt.Sprintf("Order %s already exists", order.ERPOrderID))
		} else if !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		for _, in := range req.Items {
			wp, err := repos.WarehouseProductRepo().GetOrCreate(ctx, req.WarehouseID, in.ProductID)
			if err != nil {
				return err
			}
			if _, err := order.AddItem(in.ProductID, wp.ID, in.Quantity); err != nil {
				return err
			}
		}
		return repos.OrderRepo().Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	s.publishDomainEvents(ctx, order)
	s.logger.Info("order created",
		zap.String("order_id", order.ID.String()),
		zap.String("erp_order_id", order.ERPOrderID),
		zap.Int("items", len(order.Items)))
	resp := ToOrderResponse(order)
	return &resp, nil
}

// GetOrder returns an order with its lines and removals
func (s *FulfillmentService) GetOrder(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	order, err := s.orderRepo.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	resp := ToOrderResponse(order)
	return &resp, nil
}

// ListOrders returns a page of orders
func (s *FulfillmentService) ListOrders(ctx context.Context, f OrderListFilter) (shared.Paginated[OrderResponse], error) {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	filter.Search = f.Search
	if f.Status != "" {
		filter.Filters["status"] = f.Status
	}
	if f.WarehouseID != nil {
		filter.Filters["warehouse_id"] = *f.WarehouseID
	}

	orders, err := s.orderRepo.FindAll(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	total, err := s.orderRepo.Count(ctx, filter)
	if err != nil {
		return shared.Paginated[OrderResponse]{}, err
	}
	items := make([]OrderResponse, len(orders))
	for i := range orders {
		items[i] = ToOrderResponse(&orders[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// ListParcels returns the parcels packed for an order
func (s *FulfillmentService) ListParcels(ctx context.Context, orderID uuid.UUID) ([]ParcelResponse, error) {
	parcels, err := s.parcelRepo.FindByOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	out := make([]ParcelResponse, len(parcels))
	for i := range parcels {
		out[i] = ToParcelResponse(&parcels[i])
	}
	return out, nil
}

// SuggestBatchesForOrder runs the selection policy for every open line and
// stores the suggested batch and allocation. No stock moves.
func (s *FulfillmentService) SuggestBatchesForOrder(ctx context.Context, orderID uuid.UUID) ([]ItemSuggestion, error) {
	today := inventory.DateOnly(s.now())
	var suggestions []ItemSuggestion
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		suggestions = nil
		order, err := repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.CanPack() {
			return shared.NewDomainError("INVALID_STATE",
				fmt.Sprintf("Cannot suggest batches for an order in %s status", order.Status))
		}
		for i := range order.Items {
			item := &order.Items[i]
			balance := order.Balance(item)
			if balance <= 0 {
				continue
			}
			batches, err := repos.BatchRepo().FindByWarehouseProduct(ctx, item.WarehouseProductID)
			if err != nil {
				return err
			}
			suggestion := ItemSuggestion{OrderItemID: item.ID, Balance: balance}
			if b := inventory.SuggestBatch(batches, balance, today); b != nil {
				id := b.ID
				suggestion.BatchID = &id
				suggestion.BatchNumber = b.BatchNumber
				suggestion.LocationLabel = b.LocationLabel
				suggestion.ExpiryDate = b.ExpiryDate
				suggestion.Available = b.Quantity
				if err := order.RecordSuggestion(item.ID, &id, balance); err != nil {
					return err
				}
			} else if err := order.RecordSuggestion(item.ID, nil, 0); err != nil {
				return err
			}
			suggestions = append(suggestions, suggestion)
		}
		return repos.OrderRepo().Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	return suggestions, nil
}

// Pack creates one parcel from a set of allocations. The order row is
// locked first, then every referenced batch in ID order, so two packers
// racing on the same batch serialise and the loser re-validates against
// the committed quantity. Either the whole request applies or nothing does.
func (s *FulfillmentService) Pack(ctx context.Context, req PackRequest) (*ParcelResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "fulfillment", "pack",
		telemetry.WithAttribute("order_id", req.OrderID.String()),
		telemetry.WithAttribute("allocations", len(req.Allocations)))
	defer span.End()

	var (
		order  *trade.Order
		parcel *trade.Parcel
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}

		batches, err := lockBatches(ctx, repos, req.Allocations)
		if err != nil {
			return err
		}
		allocs := make([]trade.PackAllocation, len(req.Allocations))
		for i, a := range req.Allocations {
			allocs[i] = trade.PackAllocation{OrderItemID: a.OrderItemID, Quantity: a.Quantity}
			if a.BatchID != nil {
				allocs[i].Batch = batches[*a.BatchID]
			}
		}
		if err := order.ValidatePacking(allocs); err != nil {
			return err
		}

		parcel = trade.NewParcel(order, allocs, req.TrackingNumber, req.PackedBy)
		link := orderLink(order, req.PackedBy, fmt.Sprintf("parcel %s", parcel.ID))
		touched := make([]uuid.UUID, 0, len(allocs))
		for _, a := range allocs {
			item := order.GetItem(a.OrderItemID)
			if _, err := s.engine.DeductFromBatch(ctx, repos, item.WarehouseProductID, a.Batch.ID, a.Quantity, link); err != nil {
				return err
			}
			if err := order.RecordPacked(item.ID, a.Quantity, a.Batch.ID); err != nil {
				return err
			}
			touched = append(touched, item.WarehouseProductID)
		}
		if err := repos.ParcelRepo().Create(ctx, parcel); err != nil {
			return err
		}

		if _, entered := order.RecomputeStatus(); entered {
			order.MarkInventoryApplied()
		}
		if err := repos.OrderRepo().Save(ctx, order); err != nil {
			return err
		}
		_, err = s.engine.RecomputeTotals(ctx, repos, touched...)
		return err
	})
	if err != nil {
		telemetry.RecordError(span, err)
		s.metrics.RecordRejectedPacking(ctx, errorCode(err))
		s.logger.Warn("packing rejected",
			zap.String("order_id", req.OrderID.String()),
			zap.Error(err))
		return nil, err
	}
	telemetry.SetOK(span)

	s.metrics.RecordParcelPacked(ctx, order.WarehouseID, int64(parcel.TotalQuantity()))
	s.publishDomainEvents(ctx, parcel, order)
	s.logger.Info("parcel packed",
		zap.String("order_id", order.ID.String()),
		zap.String("parcel_id", parcel.ID.String()),
		zap.Int("quantity", parcel.TotalQuantity()),
		zap.String("order_status", order.Status.String()))

	resp := ToParcelResponse(parcel)
	resp.OrderStatus = order.Status.String()
	return &resp, nil
}

// lockBatches locks every distinct batch referenced by the allocations in
// ascending ID order
func lockBatches(ctx context.Context, repos TransactionalRepositories, allocs []PackAllocationInput) (map[uuid.UUID]*inventory.InventoryBatchItem, error) {
	seen := make(map[uuid.UUID]bool)
	ids := make([]uuid.UUID, 0, len(allocs))
	for _, a := range allocs {
		if a.BatchID == nil || seen[*a.BatchID] {
			continue
		}
		seen[*a.BatchID] = true
		ids = append(ids, *a.BatchID)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })

	out := make(map[uuid.UUID]*inventory.InventoryBatchItem, len(ids))
	for _, id := range ids {
		b, err := repos.BatchRepo().FindByIDForUpdate(ctx, id)
		if err != nil {
			return nil, err
		}
		out[id] = b
	}
	return out, nil
}

// RemoveItemQuantity appends to the removal log and recomputes the order
// status. Removed quantity never touches stock.
func (s *FulfillmentService) RemoveItemQuantity(ctx context.Context, req RemoveItemRequest) (*OrderResponse, error) {
	var order *trade.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, req.OrderID)
		if err != nil {
			return err
		}
		removal, err := order.RecordRemoval(req.OrderItemID, req.Quantity, req.Reason, req.Actor)
		if err != nil {
			return err
		}
		if err := repos.OrderRepo().AddRemoval(ctx, removal); err != nil {
			return err
		}
		if _, entered := order.RecomputeStatus(); entered {
			order.MarkInventoryApplied()
		}
		return repos.OrderRepo().Save(ctx, order)
	})
	if err != nil {
		return nil, err
	}
	s.publishDomainEvents(ctx, order)
	s.logger.Info("order item quantity removed",
		zap.String("order_id", order.ID.String()),
		zap.String("order_item_id", req.OrderItemID.String()),
		zap.Int("quantity", req.Quantity),
		zap.String("actor", req.Actor))
	resp := ToOrderResponse(order)
	return &resp, nil
}

// Confirm moves a DRAFT order to NEW
func (s *FulfillmentService) Confirm(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, "confirmed", func(_ TransactionalRepositories, o *trade.Order) error {
		return o.Confirm()
	})
}

// MarkBilled moves a COMPLETED order to BILLED
func (s *FulfillmentService) MarkBilled(ctx context.Context, orderID uuid.UUID) (*OrderResponse, error) {
	return s.transition(ctx, orderID, "billed", func(_ TransactionalRepositories, o *trade.Order) error {
		return o.MarkBilled()
	})
}

// Complete finishes an order outside the packing flow. Any balance not yet
// packed is deducted FEFO exactly once; completing an order that already
// carries its stock effect changes nothing.
func (s *FulfillmentService) Complete(ctx context.Context, orderID uuid.UUID, actor string) (*OrderResponse, error) {
	return s.transition(ctx, orderID, "completed", func(repos TransactionalRepositories, o *trade.Order) error {
		if o.Status.IsTerminal() {
			return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot complete order in %s status", o.Status))
		}
		if o.Status == trade.OrderStatusCompleted && o.InventoryUpdated {
			return nil
		}
		if !o.InventoryUpdated {
			link := orderLink(o, actor, "order completion")
			var touched []uuid.UUID
			outstanding := o.Outstanding()
			for i := range o.Items {
				item := &o.Items[i]
				balance, open := outstanding[item.ID]
				if !open {
					continue
				}
				_, plan, err := s.engine.DeductFEFO(ctx, repos, item.WarehouseProductID, balance, link)
				if err != nil {
					return err
				}
				for _, step := range plan {
					if err := o.RecordPacked(item.ID, step.Quantity, step.BatchID); err != nil {
						return err
					}
				}
				touched = append(touched, item.WarehouseProductID)
			}
			if _, err := s.engine.RecomputeTotals(ctx, repos, touched...); err != nil {
				return err
			}
		}
		if err := o.ForceComplete(); err != nil {
			return err
		}
		o.MarkInventoryApplied()
		return nil
	})
}

// Cancel moves the order to CANCELLED and puts back every unit the order
// took out of stock. Cancelling twice is a no-op.
func (s *FulfillmentService) Cancel(ctx context.Context, orderID uuid.UUID, actor, reason string) (*OrderResponse, error) {
	return s.transition(ctx, orderID, "cancelled", func(repos TransactionalRepositories, o *trade.Order) error {
		changed, err := o.Cancel(reason)
		if err != nil || !changed {
			return err
		}
		entries, err := repos.TransactionRepo().FindByOrder(ctx, o.ID)
		if err != nil {
			return err
		}
		wpByBatch := make(map[uuid.UUID]uuid.UUID)
		for _, e := range entries {
			if e.BatchItemID != nil {
				wpByBatch[*e.BatchItemID] = e.WarehouseProductID
			}
		}
		net := inventory.NetByBatch(entries)
		batchIDs := make([]uuid.UUID, 0, len(net))
		for id := range net {
			batchIDs = append(batchIDs, id)
		}
		sort.Slice(batchIDs, func(i, j int) bool { return batchIDs[i].String() < batchIDs[j].String() })

		link := orderLink(o, actor, reason)
		var touched []uuid.UUID
		for _, id := range batchIDs {
			if net[id] >= 0 {
				continue
			}
			if _, err := s.engine.Restore(ctx, repos, id, -net[id], inventory.TransactionTypeCancel, link); err != nil {
				return err
			}
			touched = append(touched, wpByBatch[id])
		}
		if _, err := s.engine.RecomputeTotals(ctx, repos, touched...); err != nil {
			return err
		}
		o.MarkInventoryReversed()
		return nil
	})
}

func (s *FulfillmentService) transition(ctx context.Context, orderID uuid.UUID, verb string, apply func(TransactionalRepositories, *trade.Order) error) (*OrderResponse, error) {
	var order *trade.Order
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		order, err = repos.OrderRepo().FindByIDForUpdate(ctx, orderID)
		if err != nil {
			return err
		}
		if err := apply(repos, order); err != nil {
			return err
		}
		return repos.OrderRepo().Save(ctx, order)
	})
	if err != nil {
		s.logger.Warn("order transition rejected",
			zap.String("order_id", orderID.String()),
			zap.String("transition", verb),
			zap.Error(err))
		return nil, err
	}
	s.publishDomainEvents(ctx, order)
	s.logger.Info("order "+verb,
		zap.String("order_id", order.ID.String()),
		zap.String("status", order.Status.String()))
	resp := ToOrderResponse(order)
	return &resp, nil
}

func errorCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return "INTERNAL"
}
