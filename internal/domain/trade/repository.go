package trade

import (
	"context"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// OrderRepository defines persistence for orders, their lines and removal log
type OrderRepository interface {
	// FindByID loads the order with its items and removals
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	// FindByIDForUpdate loads and row-locks the order; use inside a transaction
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByERPOrderID(ctx context.Context, erpOrderID string) (*Order, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Order, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// Create inserts the order with all its items
	Create(ctx context.Context, order *Order) error
	// Save updates the order row and its items
	Save(ctx context.Context, order *Order) error
	AddRemoval(ctx context.Context, removal *OrderItemRemoval) error
}

// ParcelRepository defines persistence for parcels and parcel items
type ParcelRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Parcel, error)
	FindByTrackingNumber(ctx context.Context, trackingNumber string) (*Parcel, error)
	FindByOrder(ctx context.Context, orderID uuid.UUID) ([]Parcel, error)
	// FindInTransitSince returns in-transit parcels whose first transit event is before cutoff
	FindInTransitSince(ctx context.Context, cutoff time.Time) ([]Parcel, error)
	Create(ctx context.Context, parcel *Parcel) error
	Save(ctx context.Context, parcel *Parcel) error
}

// PurchaseOrderRepository defines persistence for purchase orders
type PurchaseOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*PurchaseOrder, error)
	FindByNumber(ctx context.Context, number string) (*PurchaseOrder, error)
	Create(ctx context.Context, po *PurchaseOrder) error
	Save(ctx context.Context, po *PurchaseOrder) error
}
