package shipping_test

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shipping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInvoiceReconciliationService_RecordInvoiceLines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	order, _ := f.packParcel(t, "TRK-500", 1)
	billed := time.Date(2026, 4, 2, 0, 0, 0, 0, time.UTC)

	result, err := f.invoices.RecordInvoiceLines(ctx, []shipping.InvoiceLine{
		{TrackingNumber: "TRK-500", InvoiceNumber: "INV-1", BilledCost: decimal.RequireFromString("12.50"), BilledWeight: decimal.RequireFromString("1.2"), BilledAt: billed},
		{TrackingNumber: "TRK-500", InvoiceNumber: "INV-2", BilledCost: decimal.RequireFromString("-2.50"), BilledWeight: decimal.RequireFromString("1.0"), BilledAt: billed.Add(24 * time.Hour)},
		{TrackingNumber: "NOPARCEL", InvoiceNumber: "INV-2", BilledCost: decimal.NewFromInt(4), BilledAt: billed},
		{TrackingNumber: "TRK-500", BilledCost: decimal.NewFromInt(-1)},
	})
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalRows)
	assert.Equal(t, 3, result.Recorded)
	assert.Equal(t, 2, result.Linked)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 4, result.Errors[0].Row)

	history, err := f.invoices.GetCostHistory(ctx, "TRK-500")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(history.TotalCost), "got %s", history.TotalCost)
	assert.True(t, decimal.RequireFromString("1.0").Equal(history.LatestWeight))
	assert.Len(t, history.Entries, 2)
	require.NotNil(t, history.ParcelID)

	parcels, err := f.fulfillment.ListParcels(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(10).Equal(parcels[0].ShippingCost))

	orphan, err := f.invoices.GetCostHistory(ctx, "NOPARCEL")
	require.NoError(t, err)
	assert.Nil(t, orphan.ParcelID)

	_, err = f.invoices.GetCostHistory(ctx, "NEVER-BILLED")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestInvoiceReconciliationService_ImportInvoices(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	csv := strings.Join([]string{
		"tracking_number,invoice_number,billed_cost,billed_weight,billed_at",
		"TRK-600,INV-9,7.25,2.0,2026-04-01",
		"TRK-600,INV-10,0.75,2.5,2026-04-03",
		"TRK-601,INV-9,not-a-number,1,2026-04-01",
		"TRK-602,INV-9,3,1,2026-13-45",
	}, "\n")

	result, err := f.invoices.ImportInvoices(ctx, strings.NewReader(csv))
	require.NoError(t, err)
	assert.Equal(t, 2, result.Recorded)
	assert.Equal(t, 4, result.TotalRows)
	assert.Len(t, result.Errors, 2)

	history, err := f.invoices.GetCostHistory(ctx, "TRK-600")
	require.NoError(t, err)
	assert.True(t, decimal.NewFromInt(8).Equal(history.TotalCost))
	assert.True(t, decimal.RequireFromString("2.5").Equal(history.LatestWeight))
}
