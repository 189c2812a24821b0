package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shipping"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingEventRepository_CreateIfAbsent(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormTrackingEventRepository(db)
	ctx := context.Background()

	at := time.Now().Add(-time.Hour)
	ev, err := shipping.NewTrackingEvent("evt-1", "TRK-9", "Parcel picked up", "Depot", at)
	require.NoError(t, err)

	created, err := repo.CreateIfAbsent(ctx, ev)
	require.NoError(t, err)
	assert.True(t, created)

	again, err := shipping.NewTrackingEvent("evt-1", "TRK-9", "Parcel picked up", "Depot", at)
	require.NoError(t, err)
	created, err = repo.CreateIfAbsent(ctx, again)
	require.NoError(t, err)
	assert.False(t, created)

	evs, err := repo.FindByTrackingNumber(ctx, "TRK-9")
	require.NoError(t, err)
	assert.Len(t, evs, 1)
}

func TestCourierCostRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormCourierCostRepository(db)
	ctx := context.Background()

	_, err := repo.FindByTrackingNumber(ctx, "TRK-5")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	for _, cost := range []string{"12.50", "-2.50"} {
		rec, err := repo.FindOrCreateForUpdate(ctx, "TRK-5")
		require.NoError(t, err)
		entry, err := rec.Accumulate(shipping.InvoiceLine{
			TrackingNumber: "TRK-5",
			InvoiceNumber:  "INV-1",
			BilledCost:     decimal.RequireFromString(cost),
			BilledWeight:   decimal.RequireFromString("1.2"),
		})
		require.NoError(t, err)
		require.NoError(t, repo.AddEntry(ctx, entry))
		require.NoError(t, repo.Save(ctx, rec))
	}

	got, err := repo.FindByTrackingNumber(ctx, "TRK-5")
	require.NoError(t, err)
	assert.True(t, got.TotalCost.Equal(decimal.NewFromInt(10)), got.TotalCost.String())
	assert.Len(t, got.Entries, 2)

	var records int64
	require.NoError(t, db.Model(&shipping.CourierCostRecord{}).Count(&records).Error)
	assert.Equal(t, int64(1), records)
}
