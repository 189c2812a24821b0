package partner

import (
	"strings"

	"github.com/erp/fulfillment/internal/domain/shared"
)

// Warehouse is a physical stock location. Names are unique because the
// import feeds reference warehouses by name.
type Warehouse struct {
	shared.BaseAggregateRoot
	Name    string `gorm:"type:varchar(200);not null;uniqueIndex"`
	Address string `gorm:"type:text"`
	Active  bool   `gorm:"not null;default:true"`
}

// TableName returns the table name for GORM
func (Warehouse) TableName() string {
	return "warehouses"
}

// NewWarehouse creates an active warehouse
func NewWarehouse(name string) (*Warehouse, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Warehouse name cannot be empty")
	}
	if len(name) > 200 {
		return nil, shared.NewDomainError("INVALID_NAME", "Warehouse name cannot exceed 200 characters")
	}
	return &Warehouse{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Active:            true,
	}, nil
}

// Deactivate stops the warehouse from receiving new stock
func (w *Warehouse) Deactivate() {
	w.Active = false
	w.IncrementVersion()
}
