package catalog

import (
	"strings"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// Product is a stock-keeping unit known to the warehouse
type Product struct {
	shared.BaseAggregateRoot
	SKU     string `gorm:"type:varchar(100);not null;uniqueIndex"`
	Name    string `gorm:"type:varchar(255);not null"`
	ERPCode string `gorm:"type:varchar(100);index"` // identifier used by the ERP order feed
	Barcode string `gorm:"type:varchar(100);index"`
}

// TableName returns the table name for GORM
func (Product) TableName() string {
	return "products"
}

// NewProduct creates a product with a normalised SKU
func NewProduct(sku, name string) (*Product, error) {
	sku = strings.ToUpper(strings.TrimSpace(sku))
	if sku == "" {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot be empty")
	}
	if len(sku) > 100 {
		return nil, shared.NewDomainError("INVALID_SKU", "SKU cannot exceed 100 characters")
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	return &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		SKU:               sku,
		Name:              name,
	}, nil
}

// SetERPCode sets the ERP identifier
func (p *Product) SetERPCode(code string) {
	p.ERPCode = strings.TrimSpace(code)
	p.IncrementVersion()
}

// SetBarcode sets the barcode
func (p *Product) SetBarcode(barcode string) {
	p.Barcode = strings.TrimSpace(barcode)
	p.IncrementVersion()
}
