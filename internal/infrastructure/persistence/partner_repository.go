package persistence

import (
	"context"
	"strings"

	"github.com/erp/fulfillment/internal/domain/partner"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormWarehouseRepository implements partner.WarehouseRepository using GORM
type GormWarehouseRepository struct {
	db *gorm.DB
}

// NewGormWarehouseRepository creates a new GormWarehouseRepository
func NewGormWarehouseRepository(db *gorm.DB) *GormWarehouseRepository {
	return &GormWarehouseRepository{db: db}
}

// FindByID finds a warehouse by its ID
func (r *GormWarehouseRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Warehouse, error) {
	var w partner.Warehouse
	if err := r.db.WithContext(ctx).First(&w, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

// FindByName finds a warehouse by its unique name
func (r *GormWarehouseRepository) FindByName(ctx context.Context, name string) (*partner.Warehouse, error) {
	var w partner.Warehouse
	if err := r.db.WithContext(ctx).Where("name = ?", strings.TrimSpace(name)).First(&w).Error; err != nil {
		return nil, translate(err)
	}
	return &w, nil
}

// FindAll lists warehouses by name
func (r *GormWarehouseRepository) FindAll(ctx context.Context) ([]partner.Warehouse, error) {
	var ws []partner.Warehouse
	if err := r.db.WithContext(ctx).Order("name").Find(&ws).Error; err != nil {
		return nil, err
	}
	return ws, nil
}

// Save creates or updates a warehouse
func (r *GormWarehouseRepository) Save(ctx context.Context, w *partner.Warehouse) error {
	return translate(r.db.WithContext(ctx).Save(w).Error)
}

// GormSupplierRepository implements partner.SupplierRepository using GORM
type GormSupplierRepository struct {
	db *gorm.DB
}

// NewGormSupplierRepository creates a new GormSupplierRepository
func NewGormSupplierRepository(db *gorm.DB) *GormSupplierRepository {
	return &GormSupplierRepository{db: db}
}

// FindByID finds a supplier by its ID
func (r *GormSupplierRepository) FindByID(ctx context.Context, id uuid.UUID) (*partner.Supplier, error) {
	var s partner.Supplier
	if err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// FindByCode finds a supplier by its code
func (r *GormSupplierRepository) FindByCode(ctx context.Context, code string) (*partner.Supplier, error) {
	var s partner.Supplier
	if err := r.db.WithContext(ctx).Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).First(&s).Error; err != nil {
		return nil, translate(err)
	}
	return &s, nil
}

// Save creates or updates a supplier
func (r *GormSupplierRepository) Save(ctx context.Context, s *partner.Supplier) error {
	return translate(r.db.WithContext(ctx).Save(s).Error)
}

// LockSequence inserts the sequence row if missing and returns it locked
func (r *GormSupplierRepository) LockSequence(ctx context.Context, supplierID uuid.UUID) (*partner.SupplierSequence, error) {
	db := r.db.WithContext(ctx)
	seed := partner.SupplierSequence{SupplierID: supplierID}
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return nil, translate(err)
	}
	var seq partner.SupplierSequence
	if err := forUpdate(db).First(&seq, "supplier_id = ?", supplierID).Error; err != nil {
		return nil, translate(err)
	}
	return &seq, nil
}

// SaveSequence writes the sequence's last value
func (r *GormSupplierRepository) SaveSequence(ctx context.Context, seq *partner.SupplierSequence) error {
	return r.db.WithContext(ctx).Model(&partner.SupplierSequence{}).
		Where("supplier_id = ?", seq.SupplierID).
		Update("last_value", seq.LastValue).Error
}

var (
	_ partner.WarehouseRepository = (*GormWarehouseRepository)(nil)
	_ partner.SupplierRepository  = (*GormSupplierRepository)(nil)
)
