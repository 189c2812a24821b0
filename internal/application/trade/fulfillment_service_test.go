package trade_test

import (
	"context"
	"testing"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/erp/fulfillment/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type fixture struct {
	db          *gorm.DB
	inventory   *appinv.InventoryService
	fulfillment *apptrade.FulfillmentService
	purchasing  *apptrade.PurchaseOrderService
	events      *testutil.RecordingPublisher
	warehouseID uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := testutil.NewSQLiteDB(t)
	scope := persistence.NewGormTransactionScope(db)
	engine := appinv.NewStockMutationEngine()
	events := &testutil.RecordingPublisher{}

	inv := appinv.NewInventoryService(
		persistence.NewGormWarehouseProductRepository(db),
		persistence.NewGormBatchItemRepository(db),
		persistence.NewGormStockTransactionRepository(db),
		scope.Inventory(), engine, nil)

	ful := apptrade.NewFulfillmentService(
		persistence.NewGormOrderRepository(db),
		persistence.NewGormParcelRepository(db),
		scope.Trade(), engine, nil)
	ful.SetEventPublisher(events)

	po := apptrade.NewPurchaseOrderService(persistence.NewGormPurchaseOrderRepository(db), scope.Trade(), engine, nil)
	po.SetEventPublisher(events)

	return &fixture{db: db, inventory: inv, fulfillment: ful, purchasing: po, events: events, warehouseID: uuid.New()}
}

func (f *fixture) stock(t *testing.T, productID uuid.UUID, batch string, qty int) *appinv.BatchResponse {
	t.Helper()
	b, err := f.inventory.UpsertBatch(context.Background(), appinv.UpsertBatchRequest{
		WarehouseID:   f.warehouseID,
		ProductID:     productID,
		BatchNumber:   batch,
		LocationLabel: "A-01",
		Quantity:      qty,
		CostPrice:     decimal.NewFromInt(1),
		Actor:         "seed",
	})
	require.NoError(t, err)
	return b
}

func (f *fixture) order(t *testing.T, erpID string, lines map[uuid.UUID]int) *apptrade.OrderResponse {
	t.Helper()
	req := apptrade.CreateOrderRequest{ERPOrderID: erpID, WarehouseID: f.warehouseID, Customer: "Acme Pharmacy"}
	for productID, qty := range lines {
		req.Items = append(req.Items, apptrade.CreateOrderItemInput{ProductID: productID, Quantity: qty})
	}
	o, err := f.fulfillment.CreateOrder(context.Background(), req)
	require.NoError(t, err)
	return o
}

func (f *fixture) onHand(t *testing.T, batchID uuid.UUID, wpID uuid.UUID) int {
	t.Helper()
	batches, err := f.inventory.ListBatches(context.Background(), wpID)
	require.NoError(t, err)
	for _, b := range batches {
		if b.ID == batchID {
			return b.Quantity
		}
	}
	t.Fatalf("batch %s not found", batchID)
	return 0
}

func itemFor(o *apptrade.OrderResponse, productID uuid.UUID) apptrade.OrderItemResponse {
	for _, it := range o.Items {
		if it.ProductID == productID {
			return it
		}
	}
	return apptrade.OrderItemResponse{}
}

func TestFulfillmentService_CreateOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := uuid.New()

	o := f.order(t, "ERP-100", map[uuid.UUID]int{productID: 4})
	assert.Equal(t, string(trade.OrderStatusDraft), o.Status)
	assert.NotEqual(t, uuid.Nil, itemFor(o, productID).WarehouseProductID)
	assert.Contains(t, f.events.Types(), trade.EventTypeOrderCreated)

	_, err := f.fulfillment.CreateOrder(ctx, apptrade.CreateOrderRequest{
		ERPOrderID: "ERP-100", WarehouseID: f.warehouseID, Customer: "Other",
		Items: []apptrade.CreateOrderItemInput{{ProductID: productID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, shared.ErrAlreadyExists)

	confirmed, err := f.fulfillment.Confirm(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, string(trade.OrderStatusNew), confirmed.Status)

	_, err = f.fulfillment.Confirm(ctx, o.ID)
	assert.Error(t, err)
}

func TestFulfillmentService_PackUntilCompleted(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := uuid.New()
	batch := f.stock(t, productID, "LOT-1", 10)
	o := f.order(t, "ERP-200", map[uuid.UUID]int{productID: 5})
	item := itemFor(o, productID)

	parcel, err := f.fulfillment.Pack(ctx, apptrade.PackRequest{
		OrderID: o.ID, TrackingNumber: "TRK-1", PackedBy: "packer",
		Allocations: []apptrade.PackAllocationInput{{OrderItemID: item.ID, BatchID: &batch.ID, Quantity: 3}},
	})
	require.NoError(t, err)
	assert.Equal(t, string(trade.OrderStatusPartial), parcel.OrderStatus)
	assert.Equal(t, 7, f.onHand(t, batch.ID, batch.WarehouseProductID))
	assert.Contains(t, f.events.Types(), trade.EventTypeParcelPacked)

	t.Run("over-packing is rejected atomically", func(t *testing.T) {
		_, err := f.fulfillment.Pack(ctx, apptrade.PackRequest{
			OrderID: o.ID, PackedBy: "packer",
			Allocations: []apptrade.PackAllocationInput{{OrderItemID: item.ID, BatchID: &batch.ID, Quantity: 3}},
		})
		assert.ErrorIs(t, err, inventory.ErrInvalidQuantity)
		assert.Equal(t, 7, f.onHand(t, batch.ID, batch.WarehouseProductID))
	})

	t.Run("missing batch is rejected", func(t *testing.T) {
		_, err := f.fulfillment.Pack(ctx, apptrade.PackRequest{
			OrderID: o.ID, PackedBy: "packer",
			Allocations: []apptrade.PackAllocationInput{{OrderItemID: item.ID, Quantity: 1}},
		})
		assert.Error(t, err)
	})

	parcel, err = f.fulfillment.Pack(ctx, apptrade.PackRequest{
		OrderID: o.ID, TrackingNumber: "TRK-2", PackedBy: "packer",
		Allocations: []apptrade.PackAllocationInput{{OrderItemID: item.ID, BatchID: &batch.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	assert.Equal(t, string(trade.OrderStatusCompleted), parcel.OrderStatus)

	got, err := f.fulfillment.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.True(t, got.InventoryUpdated)
	assert.Equal(t, 5, itemFor(got, productID).QuantityPacked)

	parcels, err := f.fulfillment.ListParcels(ctx, o.ID)
	require.NoError(t, err)
	assert.Len(t, parcels, 2)

	v, err := f.inventory.VerifyLedger(ctx, batch.WarehouseProductID)
	require.NoError(t, err)
	assert.True(t, v.Consistent)
	assert.Equal(t, 5, v.BatchSum)
}

func TestFulfillmentService_PackRejectsForeignBatch(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := uuid.New()
	f.stock(t, productID, "LOT-1", 10)
	other := f.stock(t, uuid.New(), "LOT-X", 10)
	o := f.order(t, "ERP-250", map[uuid.UUID]int{productID: 2})

	_, err := f.fulfillment.Pack(ctx, apptrade.PackRequest{
		OrderID: o.ID, PackedBy: "packer",
		Allocations: []apptrade.PackAllocationInput{{OrderItemID: itemFor(o, productID).ID, BatchID: &other.ID, Quantity: 1}},
	})
	assert.ErrorIs(t, err, inventory.ErrBatchMismatch)
	assert.Equal(t, 10, f.onHand(t, other.ID, other.WarehouseProductID))
}

func TestFulfillmentService_RemovalCompletesOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := uuid.New()
	batch := f.stock(t, productID, "LOT-1", 10)
	o := f.order(t, "ERP-300", map[uuid.UUID]int{productID: 5})
	item := itemFor(o, productID)

	_, err := f.fulfillment.Pack(ctx, apptrade.PackRequest{
		OrderID: o.ID, PackedBy: "packer",
		Allocations: []apptrade.PackAllocationInput{{OrderItemID: item.ID, BatchID: &batch.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	_, err = f.fulfillment.RemoveItemQuantity(ctx, apptrade.RemoveItemRequest{
		OrderID: o.ID, OrderItemID: item.ID, Quantity: 3, Actor: "clerk", Reason: "out of stock",
	})
	assert.Error(t, err, "cannot remove more than the unpacked balance")

	got, err := f.fulfillment.RemoveItemQuantity(ctx, apptrade.RemoveItemRequest{
		OrderID: o.ID, OrderItemID: item.ID, Quantity: 2, Actor: "clerk", Reason: "customer request",
	})
	require.NoError(t, err)
	assert.Equal(t, string(trade.OrderStatusCompleted), got.Status)
	assert.Equal(t, 2, itemFor(got, productID).QuantityRemoved)
	assert.Equal(t, 7, f.onHand(t, batch.ID, batch.WarehouseProductID), "removal never touches stock")
}

func TestFulfillmentService_CancelRestoresStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := uuid.New()
	batch := f.stock(t, productID, "LOT-1", 10)
	o := f.order(t, "ERP-400", map[uuid.UUID]int{productID: 6})
	item := itemFor(o, productID)

	_, err := f.fulfillment.Pack(ctx, apptrade.PackRequest{
		OrderID: o.ID, PackedBy: "packer",
		Allocations: []apptrade.PackAllocationInput{{OrderItemID: item.ID, BatchID: &batch.ID, Quantity: 4}},
	})
	require.NoError(t, err)
	assert.Equal(t, 6, f.onHand(t, batch.ID, batch.WarehouseProductID))

	cancelled, err := f.fulfillment.Cancel(ctx, o.ID, "clerk", "duplicate order")
	require.NoError(t, err)
	assert.Equal(t, string(trade.OrderStatusCancelled), cancelled.Status)
	assert.Equal(t, "duplicate order", cancelled.CancelReason)
	assert.Equal(t, 10, f.onHand(t, batch.ID, batch.WarehouseProductID))

	_, err = f.fulfillment.Cancel(ctx, o.ID, "clerk", "again")
	require.NoError(t, err)
	assert.Equal(t, 10, f.onHand(t, batch.ID, batch.WarehouseProductID), "second cancel is a no-op")

	history, err := f.inventory.History(ctx, batch.WarehouseProductID)
	require.NoError(t, err)
	cancels := 0
	for _, h := range history {
		if h.Type == string(inventory.TransactionTypeCancel) {
			cancels++
			assert.Equal(t, 4, h.Quantity)
		}
	}
	assert.Equal(t, 1, cancels)
}

func TestFulfillmentService_CompleteAndBill(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := uuid.New()
	batch := f.stock(t, productID, "LOT-1", 10)
	o := f.order(t, "ERP-500", map[uuid.UUID]int{productID: 4})

	_, err := f.fulfillment.MarkBilled(ctx, o.ID)
	assert.Error(t, err, "only completed orders can be billed")

	completed, err := f.fulfillment.Complete(ctx, o.ID, "supervisor")
	require.NoError(t, err)
	assert.Equal(t, string(trade.OrderStatusCompleted), completed.Status)
	assert.True(t, completed.InventoryUpdated)
	assert.Equal(t, 6, f.onHand(t, batch.ID, batch.WarehouseProductID))

	_, err = f.fulfillment.Complete(ctx, o.ID, "supervisor")
	require.NoError(t, err)
	assert.Equal(t, 6, f.onHand(t, batch.ID, batch.WarehouseProductID), "stock is deducted exactly once")

	billed, err := f.fulfillment.MarkBilled(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, string(trade.OrderStatusBilled), billed.Status)

	_, err = f.fulfillment.Cancel(ctx, o.ID, "clerk", "too late")
	assert.Error(t, err)
	assert.Contains(t, f.events.Types(), trade.EventTypeOrderStatusChanged)
}

func TestFulfillmentService_CompleteDeductsOutstandingOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	packedID, openID := uuid.New(), uuid.New()
	packedBatch := f.stock(t, packedID, "LOT-P", 10)
	openBatch := f.stock(t, openID, "LOT-O", 10)
	o := f.order(t, "ERP-550", map[uuid.UUID]int{packedID: 3, openID: 5})

	_, err := f.fulfillment.Pack(ctx, apptrade.PackRequest{
		OrderID: o.ID, TrackingNumber: "TRK-55", PackedBy: "packer",
		Allocations: []apptrade.PackAllocationInput{
			{OrderItemID: itemFor(o, packedID).ID, BatchID: &packedBatch.ID, Quantity: 3},
			{OrderItemID: itemFor(o, openID).ID, BatchID: &openBatch.ID, Quantity: 2},
		},
	})
	require.NoError(t, err)

	completed, err := f.fulfillment.Complete(ctx, o.ID, "supervisor")
	require.NoError(t, err)
	assert.Equal(t, 7, f.onHand(t, packedBatch.ID, packedBatch.WarehouseProductID), "fully packed line is left alone")
	assert.Equal(t, 5, f.onHand(t, openBatch.ID, openBatch.WarehouseProductID))
	assert.Equal(t, 5, itemFor(completed, openID).QuantityPacked)
}

func TestFulfillmentService_SuggestAndList(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	productID := uuid.New()
	batch := f.stock(t, productID, "LOT-1", 10)
	o := f.order(t, "ERP-600", map[uuid.UUID]int{productID: 4})
	f.order(t, "ERP-601", map[uuid.UUID]int{uuid.New(): 1})

	suggestions, err := f.fulfillment.SuggestBatchesForOrder(ctx, o.ID)
	require.NoError(t, err)
	require.Len(t, suggestions, 1)
	require.NotNil(t, suggestions[0].BatchID)
	assert.Equal(t, batch.ID, *suggestions[0].BatchID)
	assert.Equal(t, 4, suggestions[0].Balance)

	got, err := f.fulfillment.GetOrder(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, &batch.ID, itemFor(got, productID).SuggestedBatchID)
	assert.Equal(t, 10, f.onHand(t, batch.ID, batch.WarehouseProductID))

	page, err := f.fulfillment.ListOrders(ctx, apptrade.OrderListFilter{Search: "erp-60"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}
