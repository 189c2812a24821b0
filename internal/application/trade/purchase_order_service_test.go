package trade_test

import (
	"context"
	"testing"

	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/erp/fulfillment/internal/domain/partner"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/erp/fulfillment/internal/infrastructure/persistence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (f *fixture) supplier(t *testing.T, code string) *partner.Supplier {
	t.Helper()
	s, err := partner.NewSupplier(code, code+" Ltd")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormSupplierRepository(f.db).Save(context.Background(), s))
	return s
}

func TestPurchaseOrderService_NumbersAreSequentialPerSupplier(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.supplier(t, "acme")
	globex := f.supplier(t, "globex")

	create := func(s *partner.Supplier) string {
		po, err := f.purchasing.Create(ctx, apptrade.CreatePurchaseOrderRequest{
			SupplierID: s.ID, WarehouseID: f.warehouseID, CreatedBy: "buyer",
			Lines: []apptrade.PurchaseOrderLineRequest{{ProductID: uuid.New(), Quantity: 1, UnitCost: decimal.NewFromInt(3)}},
		})
		require.NoError(t, err)
		return po.Number
	}

	assert.Equal(t, "ACME-000001", create(acme))
	assert.Equal(t, "ACME-000002", create(acme))
	assert.Equal(t, "GLOBEX-000001", create(globex))

	_, err := f.purchasing.Create(ctx, apptrade.CreatePurchaseOrderRequest{
		SupplierID: uuid.New(), WarehouseID: f.warehouseID, CreatedBy: "buyer",
		Lines: []apptrade.PurchaseOrderLineRequest{{ProductID: uuid.New(), Quantity: 1}},
	})
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestPurchaseOrderService_Receive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	acme := f.supplier(t, "acme")
	productID := uuid.New()

	po, err := f.purchasing.Create(ctx, apptrade.CreatePurchaseOrderRequest{
		SupplierID: acme.ID, WarehouseID: f.warehouseID, CreatedBy: "buyer",
		Lines: []apptrade.PurchaseOrderLineRequest{{ProductID: productID, Quantity: 10, UnitCost: decimal.RequireFromString("4.25")}},
	})
	require.NoError(t, err)
	lineID := po.Lines[0].ID

	got, err := f.purchasing.Receive(ctx, apptrade.ReceivePurchaseOrderRequest{
		PurchaseOrderID: po.ID, Actor: "receiver",
		Receipts: []apptrade.ReceiptInput{{LineID: lineID, Quantity: 6, BatchNumber: "LOT-9", LocationLabel: "R-01"}},
	})
	require.NoError(t, err)
	assert.Equal(t, string(trade.PurchaseOrderStatusPartiallyReceived), got.Status)
	assert.Contains(t, f.events.Types(), inventory.EventTypeStockReceived)

	_, err = f.purchasing.Receive(ctx, apptrade.ReceivePurchaseOrderRequest{
		PurchaseOrderID: po.ID, Actor: "receiver",
		Receipts: []apptrade.ReceiptInput{{LineID: lineID, Quantity: 5, BatchNumber: "LOT-9", LocationLabel: "R-01"}},
	})
	assert.Error(t, err, "cannot receive more than ordered")

	got, err = f.purchasing.Receive(ctx, apptrade.ReceivePurchaseOrderRequest{
		PurchaseOrderID: po.ID, Actor: "receiver",
		Receipts: []apptrade.ReceiptInput{{LineID: lineID, Quantity: 4, BatchNumber: "LOT-9", LocationLabel: "R-01"}},
	})
	require.NoError(t, err)
	assert.Equal(t, string(trade.PurchaseOrderStatusReceived), got.Status)
	assert.Equal(t, 10, got.Lines[0].QuantityReceived)

	wp, err := f.inventory.EnsureWarehouseProduct(ctx, f.warehouseID, productID)
	require.NoError(t, err)
	assert.Equal(t, 10, wp.TotalQuantity)

	batches, err := f.inventory.ListBatches(ctx, wp.ID)
	require.NoError(t, err)
	require.Len(t, batches, 1)
	assert.True(t, decimal.RequireFromString("4.25").Equal(batches[0].CostPrice))

	history, err := f.inventory.History(ctx, wp.ID)
	require.NoError(t, err)
	for _, h := range history {
		assert.Equal(t, string(inventory.TransactionTypeIn), h.Type)
		require.NotNil(t, h.PurchaseOrderID)
		assert.Equal(t, po.ID, *h.PurchaseOrderID)
	}
}
