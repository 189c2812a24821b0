package persistence

import (
	"context"
	"strings"

	"github.com/erp/fulfillment/internal/domain/catalog"
	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProductRepository implements catalog.ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var p catalog.Product
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// FindBySKU finds a product by its SKU
func (r *GormProductRepository) FindBySKU(ctx context.Context, sku string) (*catalog.Product, error) {
	var p catalog.Product
	if err := r.db.WithContext(ctx).Where("sku = ?", strings.TrimSpace(sku)).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

// FindByIdentifier resolves a product by SKU, then ERP code, then barcode
func (r *GormProductRepository) FindByIdentifier(ctx context.Context, identifier string) (*catalog.Product, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, shared.ErrNotFound
	}
	for _, column := range []string{"sku", "erp_code", "barcode"} {
		var p catalog.Product
		err := r.db.WithContext(ctx).Where(column+" = ?", identifier).Order("created_at").First(&p).Error
		if err == nil {
			return &p, nil
		}
		if err = translate(err); err != shared.ErrNotFound {
			return nil, err
		}
	}
	return nil, shared.ErrNotFound
}

// FindAll lists products, searching SKU and name
func (r *GormProductRepository) FindAll(ctx context.Context, filter shared.Filter) ([]catalog.Product, error) {
	query := r.db.WithContext(ctx).Model(&catalog.Product{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		query = query.Where("sku LIKE ? OR name LIKE ?", like, like)
	}
	var products []catalog.Product
	if err := paginate(query, filter, ProductSortFields).Find(&products).Error; err != nil {
		return nil, err
	}
	return products, nil
}

// Save creates or updates a product
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	return translate(r.db.WithContext(ctx).Save(product).Error)
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
