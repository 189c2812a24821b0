package partner

import (
	"context"

	"github.com/google/uuid"
)

// WarehouseRepository defines persistence for warehouses
type WarehouseRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Warehouse, error)
	FindByName(ctx context.Context, name string) (*Warehouse, error)
	FindAll(ctx context.Context) ([]Warehouse, error)
	Save(ctx context.Context, warehouse *Warehouse) error
}

// SupplierRepository defines persistence for suppliers and their PO sequences
type SupplierRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Supplier, error)
	FindByCode(ctx context.Context, code string) (*Supplier, error)
	Save(ctx context.Context, supplier *Supplier) error
	// LockSequence returns the supplier's sequence row locked for update,
	// creating it on first use. Must be called inside a transaction.
	LockSequence(ctx context.Context, supplierID uuid.UUID) (*SupplierSequence, error)
	SaveSequence(ctx context.Context, seq *SupplierSequence) error
}
