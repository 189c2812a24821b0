package partner

import (
	"fmt"
	"strings"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// Supplier provides stock through purchase orders
type Supplier struct {
	shared.BaseAggregateRoot
	Code  string `gorm:"type:varchar(20);not null;uniqueIndex"`
	Name  string `gorm:"type:varchar(200);not null"`
	Email string `gorm:"type:varchar(200)"`
}

// TableName returns the table name for GORM
func (Supplier) TableName() string {
	return "suppliers"
}

// NewSupplier creates a supplier with an upper-case code
func NewSupplier(code, name string) (*Supplier, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, shared.NewDomainError("INVALID_CODE", "Supplier code cannot be empty")
	}
	if len(code) > 20 {
		return nil, shared.NewDomainError("INVALID_CODE", "Supplier code cannot exceed 20 characters")
	}
	if strings.TrimSpace(name) == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Supplier name cannot be empty")
	}
	return &Supplier{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Code:              code,
		Name:              strings.TrimSpace(name),
	}, nil
}

// SupplierSequence is the per-supplier purchase order counter. The row is
// locked for the duration of an allocation so concurrent PO creation
// never hands out the same number twice.
type SupplierSequence struct {
	SupplierID uuid.UUID `gorm:"type:uuid;primaryKey"`
	LastValue  int64     `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (SupplierSequence) TableName() string {
	return "supplier_sequences"
}

// Next advances the sequence and returns the new value
func (s *SupplierSequence) Next() int64 {
	s.LastValue++
	return s.LastValue
}

// FormatPurchaseOrderNumber renders a PO number such as "ACME-000042"
func FormatPurchaseOrderNumber(supplierCode string, seq int64) string {
	return fmt.Sprintf("%s-%06d", supplierCode, seq)
}
