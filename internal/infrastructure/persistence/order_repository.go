package persistence

import (
	"context"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOrderRepository implements trade.OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

func withOrderChildren(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") }).
		Preload("Removals", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") })
}

// FindByID loads an order with its items and removal log
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var o trade.Order
	if err := withOrderChildren(r.db.WithContext(ctx)).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

// FindByIDForUpdate row-locks the order before loading its children. The
// order row is the first lock taken by packing, removal and tracking.
func (r *GormOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.Order, error) {
	var o trade.Order
	if err := withOrderChildren(forUpdate(r.db.WithContext(ctx))).First(&o, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

// FindByERPOrderID finds an order by its ERP reference
func (r *GormOrderRepository) FindByERPOrderID(ctx context.Context, erpOrderID string) (*trade.Order, error) {
	var o trade.Order
	if err := withOrderChildren(r.db.WithContext(ctx)).
		Where("erp_order_id = ?", strings.TrimSpace(erpOrderID)).
		First(&o).Error; err != nil {
		return nil, translate(err)
	}
	return &o, nil
}

func (r *GormOrderRepository) filtered(ctx context.Context, filter shared.Filter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&trade.Order{})
	if v, ok := filter.Filters["status"]; ok {
		query = query.Where("status = ?", v)
	}
	if v, ok := filter.Filters["warehouse_id"]; ok {
		query = query.Where("warehouse_id = ?", v)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(erp_order_id) LIKE ? OR LOWER(customer) LIKE ?", like, like)
	}
	return query
}

// FindAll lists orders without their children
func (r *GormOrderRepository) FindAll(ctx context.Context, filter shared.Filter) ([]trade.Order, error) {
	var orders []trade.Order
	if err := paginate(r.filtered(ctx, filter), filter, OrderSortFields).Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// Count counts orders matching filter
func (r *GormOrderRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var n int64
	if err := r.filtered(ctx, filter).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

// Create inserts the order and its items
func (r *GormOrderRepository) Create(ctx context.Context, order *trade.Order) error {
	return translate(r.db.WithContext(ctx).Omit("Removals").Create(order).Error)
}

// Save updates the order row and every item. Removals are append-only and
// written through AddRemoval.
func (r *GormOrderRepository) Save(ctx context.Context, order *trade.Order) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(order).Error; err != nil {
		return translate(err)
	}
	for i := range order.Items {
		order.Items[i].OrderID = order.ID
		if err := db.Save(&order.Items[i]).Error; err != nil {
			return translate(err)
		}
	}
	return nil
}

// AddRemoval appends to the order's removal log
func (r *GormOrderRepository) AddRemoval(ctx context.Context, removal *trade.OrderItemRemoval) error {
	return translate(r.db.WithContext(ctx).Create(removal).Error)
}

// GormParcelRepository implements trade.ParcelRepository using GORM
type GormParcelRepository struct {
	db *gorm.DB
}

// NewGormParcelRepository creates a new GormParcelRepository
func NewGormParcelRepository(db *gorm.DB) *GormParcelRepository {
	return &GormParcelRepository{db: db}
}

// FindByID loads a parcel with its items
func (r *GormParcelRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.Parcel, error) {
	var p trade.Parcel
	if err := r.db.WithContext(ctx).Preload("Items").First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// FindByTrackingNumber finds the parcel carrying a tracking number
func (r *GormParcelRepository) FindByTrackingNumber(ctx context.Context, trackingNumber string) (*trade.Parcel, error) {
	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, shared.ErrNotFound
	}
	var p trade.Parcel
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("tracking_number = ?", trackingNumber).
		Order("created_at").
		First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// FindByOrder lists the parcels of an order in packing order
func (r *GormParcelRepository) FindByOrder(ctx context.Context, orderID uuid.UUID) ([]trade.Parcel, error) {
	var ps []trade.Parcel
	if err := r.db.WithContext(ctx).Preload("Items").
		Where("order_id = ?", orderID).
		Order("created_at, id").
		Find(&ps).Error; err != nil {
		return nil, err
	}
	return ps, nil
}

// FindInTransitSince lists in-transit parcels first scanned before cutoff
func (r *GormParcelRepository) FindInTransitSince(ctx context.Context, cutoff time.Time) ([]trade.Parcel, error) {
	var ps []trade.Parcel
	if err := r.db.WithContext(ctx).
		Where("status = ? AND first_transit_at IS NOT NULL AND first_transit_at < ?", trade.ParcelStatusInTransit, cutoff).
		Order("first_transit_at, id").
		Find(&ps).Error; err != nil {
		return nil, err
	}
	return ps, nil
}

// Create inserts a parcel with its items
func (r *GormParcelRepository) Create(ctx context.Context, parcel *trade.Parcel) error {
	return translate(r.db.WithContext(ctx).Create(parcel).Error)
}

// Save updates the parcel row; parcel items never change after packing
func (r *GormParcelRepository) Save(ctx context.Context, parcel *trade.Parcel) error {
	return translate(r.db.WithContext(ctx).Omit(clause.Associations).Save(parcel).Error)
}

// GormPurchaseOrderRepository implements trade.PurchaseOrderRepository using GORM
type GormPurchaseOrderRepository struct {
	db *gorm.DB
}

// NewGormPurchaseOrderRepository creates a new GormPurchaseOrderRepository
func NewGormPurchaseOrderRepository(db *gorm.DB) *GormPurchaseOrderRepository {
	return &GormPurchaseOrderRepository{db: db}
}

func withLines(db *gorm.DB) *gorm.DB {
	return db.Preload("Lines", func(db *gorm.DB) *gorm.DB { return db.Order("created_at, id") })
}

// FindByID loads a purchase order with its lines
func (r *GormPurchaseOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*trade.PurchaseOrder, error) {
	var po trade.PurchaseOrder
	if err := withLines(r.db.WithContext(ctx)).First(&po, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &po, nil
}

// FindByIDForUpdate row-locks a purchase order and loads its lines
func (r *GormPurchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*trade.PurchaseOrder, error) {
	var po trade.PurchaseOrder
	if err := withLines(forUpdate(r.db.WithContext(ctx))).First(&po, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &po, nil
}

// FindByNumber finds a purchase order by its number
func (r *GormPurchaseOrderRepository) FindByNumber(ctx context.Context, number string) (*trade.PurchaseOrder, error) {
	var po trade.PurchaseOrder
	if err := withLines(r.db.WithContext(ctx)).Where("number = ?", number).First(&po).Error; err != nil {
		return nil, translate(err)
	}
	return &po, nil
}

// Create inserts a purchase order and its lines
func (r *GormPurchaseOrderRepository) Create(ctx context.Context, po *trade.PurchaseOrder) error {
	return translate(r.db.WithContext(ctx).Create(po).Error)
}

// Save updates the purchase order row and its lines
func (r *GormPurchaseOrderRepository) Save(ctx context.Context, po *trade.PurchaseOrder) error {
	db := r.db.WithContext(ctx)
	if err := db.Omit(clause.Associations).Save(po).Error; err != nil {
		return translate(err)
	}
	for i := range po.Lines {
		po.Lines[i].PurchaseOrderID = po.ID
		if err := db.Save(&po.Lines[i]).Error; err != nil {
			return translate(err)
		}
	}
	return nil
}

var (
	_ trade.OrderRepository         = (*GormOrderRepository)(nil)
	_ trade.ParcelRepository        = (*GormParcelRepository)(nil)
	_ trade.PurchaseOrderRepository = (*GormPurchaseOrderRepository)(nil)
)
