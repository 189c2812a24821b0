package trade

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testNow() time.Time {
	return time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
}

func TestParcel_CourierStatus(t *testing.T) {
	f := newOrderFixture(t, 5, 10)
	allocs := []PackAllocation{{OrderItemID: f.item.ID, Quantity: 2, Batch: f.batch}}

	t.Run("first event marks transit", func(t *testing.T) {
		p := NewParcel(f.order, allocs, "TRK1", "packer")
		assert.Equal(t, 2, p.TotalQuantity())
		changed, first := p.ApplyCourierStatus(ParcelStatusInTransit, testNow())
		assert.True(t, changed)
		assert.True(t, first)

		changed, first = p.ApplyCourierStatus(ParcelStatusInTransit, testNow().Add(time.Hour))
		assert.False(t, changed)
		assert.False(t, first)
		assert.Equal(t, testNow().Add(time.Hour), *p.LastEventAt)
	})

	t.Run("never moves backwards", func(t *testing.T) {
		p := NewParcel(f.order, allocs, "TRK2", "packer")
		p.ApplyCourierStatus(ParcelStatusDelivered, testNow())
		changed, _ := p.ApplyCourierStatus(ParcelStatusInTransit, testNow().Add(time.Hour))
		assert.False(t, changed)
		assert.Equal(t, ParcelStatusDelivered, p.Status)
		assert.NotNil(t, p.DeliveredAt)
	})

	t.Run("failed delivery can still be returned", func(t *testing.T) {
		p := NewParcel(f.order, allocs, "TRK3", "packer")
		p.ApplyCourierStatus(ParcelStatusInTransit, testNow())
		p.ApplyCourierStatus(ParcelStatusDeliveryFailed, testNow().Add(time.Hour))
		changed, _ := p.ApplyCourierStatus(ParcelStatusReturned, testNow().Add(2*time.Hour))
		assert.True(t, changed)
		assert.Equal(t, ParcelStatusReturned, p.Status)
	})

	t.Run("staleness is measured from first transit", func(t *testing.T) {
		p := NewParcel(f.order, allocs, "TRK4", "packer")
		maxAge := 20 * 24 * time.Hour
		assert.False(t, p.IsStale(testNow(), maxAge))
		p.ApplyCourierStatus(ParcelStatusInTransit, testNow())
		assert.False(t, p.IsStale(testNow().Add(maxAge), maxAge))
		assert.True(t, p.IsStale(testNow().Add(maxAge+time.Minute), maxAge))
	})

	t.Run("tracking number is assigned once", func(t *testing.T) {
		p := NewParcel(f.order, allocs, "", "packer")
		require.NoError(t, p.AssignTrackingNumber("TRK5"))
		require.NoError(t, p.AssignTrackingNumber("TRK5"))
		assert.Error(t, p.AssignTrackingNumber("TRK6"))
	})

	t.Run("stale parcel fails delivery", func(t *testing.T) {
		maxAge := 20 * 24 * time.Hour
		p := NewParcel(f.order, allocs, "TRK8", "packer")
		assert.False(t, p.MarkDeliveryFailed(testNow().Add(maxAge*2), maxAge))

		p.ApplyCourierStatus(ParcelStatusInTransit, testNow())
		p.ClearDomainEvents()
		assert.False(t, p.MarkDeliveryFailed(testNow().Add(maxAge), maxAge))
		assert.True(t, p.MarkDeliveryFailed(testNow().Add(maxAge+time.Hour), maxAge))
		assert.Equal(t, ParcelStatusDeliveryFailed, p.Status)
		assert.Len(t, p.GetDomainEvents(), 1)

		changed, _ := p.ApplyCourierStatus(ParcelStatusDelivered, testNow().Add(maxAge*2))
		assert.True(t, changed)
	})

	t.Run("shipping cost", func(t *testing.T) {
		p := NewParcel(f.order, allocs, "TRK7", "packer")
		p.RecordShippingCost(decimal.RequireFromString("12.50"), decimal.RequireFromString("1.2"))
		assert.True(t, p.ShippingCost.Equal(decimal.RequireFromString("12.5")))
	})
}

func TestPurchaseOrder_Receive(t *testing.T) {
	productID := uuid.New()
	po, err := NewPurchaseOrder("ACME-000001", uuid.New(), uuid.New(),
		[]PurchaseOrderLineInput{{ProductID: productID, Quantity: 10, UnitCost: decimal.NewFromInt(3)}}, "buyer")
	require.NoError(t, err)
	line := po.Lines[0]

	assert.Error(t, po.Receive(line.ID, 11))
	require.NoError(t, po.Receive(line.ID, 4))
	assert.Equal(t, PurchaseOrderStatusPartiallyReceived, po.Status)
	require.NoError(t, po.Receive(line.ID, 6))
	assert.Equal(t, PurchaseOrderStatusReceived, po.Status)
	assert.Error(t, po.Receive(line.ID, 1))

	_, err = NewPurchaseOrder("X", uuid.New(), uuid.New(), nil, "buyer")
	assert.Error(t, err)
}
