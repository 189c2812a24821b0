package catalog

import (
	"context"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// ProductRepository defines persistence for products
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindBySKU(ctx context.Context, sku string) (*Product, error)
	// FindByIdentifier resolves a product by SKU, ERP code or barcode, in that order
	FindByIdentifier(ctx context.Context, identifier string) (*Product, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Product, error)
	Save(ctx context.Context, product *Product) error
}
