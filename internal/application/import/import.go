package importapp

import (
	"context"
	"errors"
	"fmt"

	appinv "github.com/erp/fulfillment/internal/application/inventory"
	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/domain/catalog"
	"github.com/erp/fulfillment/internal/domain/partner"
	"github.com/erp/fulfillment/internal/domain/shared"
	csvimport "github.com/erp/fulfillment/internal/infrastructure/import"
	"github.com/google/uuid"
)

// CodeImportRow marks a single rejected import row
const CodeImportRow = "IMPORT_ROW"

// ErrImportRow matches every ImportRowError under errors.Is
var ErrImportRow = shared.NewDomainError(CodeImportRow, "Import row rejected")

// ImportRowError is a per-row parse or lookup failure. It never aborts the
// surrounding import; the row is skipped and reported.
type ImportRowError struct {
	Line   int
	Column string
	Err    error
}

func (e *ImportRowError) Error() string {
	if e.Column != "" {
		return fmt.Sprintf("row %d, column '%s': %v", e.Line, e.Column, e.Err)
	}
	return fmt.Sprintf("row %d: %v", e.Line, e.Err)
}

// Unwrap returns the underlying cause
func (e *ImportRowError) Unwrap() error {
	return e.Err
}

// Is matches ErrImportRow
func (e *ImportRowError) Is(target error) bool {
	return target == ErrImportRow
}

// BatchUpserter writes one batch through the stock mutation engine
type BatchUpserter interface {
	UpsertBatch(ctx context.Context, req appinv.UpsertBatchRequest) (*appinv.BatchResponse, error)
}

// OrderCreator stores one imported order
type OrderCreator interface {
	CreateOrder(ctx context.Context, req apptrade.CreateOrderRequest) (*apptrade.OrderResponse, error)
}

// Result summarises one import run
type Result struct {
	TotalRows    int                  `json:"total_rows"`
	ImportedRows int                  `json:"imported_rows"`
	ErrorRows    int                  `json:"error_rows"`
	Created      int                  `json:"created"`
	Errors       []csvimport.RowError `json:"errors,omitempty"`
	IsTruncated  bool                 `json:"is_truncated,omitempty"`
	TotalErrors  int                  `json:"total_errors,omitempty"`
}

// RowErrors returns the reported errors as ImportRowErrors
func (r *Result) RowErrors() []*ImportRowError {
	out := make([]*ImportRowError, len(r.Errors))
	for i, e := range r.Errors {
		out[i] = &ImportRowError{Line: e.Row, Column: e.Column, Err: errors.New(e.Message)}
	}
	return out
}

func (r *Result) setErrors(ec *csvimport.ErrorCollection) {
	r.Errors = ec.Errors()
	r.IsTruncated = ec.IsTruncated()
	r.TotalErrors = ec.TotalCount()
}

// lookups resolves and memoises master data references within one run
type lookups struct {
	products   catalog.ProductRepository
	warehouses partner.WarehouseRepository
	productIDs map[string]uuid.UUID
	warehouse  map[string]uuid.UUID
}

func newLookups(products catalog.ProductRepository, warehouses partner.WarehouseRepository) *lookups {
	return &lookups{
		products:   products,
		warehouses: warehouses,
		productIDs: make(map[string]uuid.UUID),
		warehouse:  make(map[string]uuid.UUID),
	}
}

// warehouseID returns uuid.Nil and no error when the warehouse does not exist
func (l *lookups) warehouseID(ctx context.Context, name string) (uuid.UUID, error) {
	if id, ok := l.warehouse[name]; ok {
		return id, nil
	}
	w, err := l.warehouses.FindByName(ctx, name)
	if errors.Is(err, shared.ErrNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	l.warehouse[name] = w.ID
	return w.ID, nil
}

// productID resolves by SKU only when bySKU is set, otherwise by any identifier
func (l *lookups) productID(ctx context.Context, identifier string, bySKU bool) (uuid.UUID, error) {
	key := identifier
	if bySKU {
		key = "sku:" + identifier
	}
	if id, ok := l.productIDs[key]; ok {
		return id, nil
	}
	var (
		p   *catalog.Product
		err error
	)
	if bySKU {
		p, err = l.products.FindBySKU(ctx, identifier)
	} else {
		p, err = l.products.FindByIdentifier(ctx, identifier)
	}
	if errors.Is(err, shared.ErrNotFound) {
		return uuid.Nil, nil
	}
	if err != nil {
		return uuid.Nil, err
	}
	l.productIDs[key] = p.ID
	return p.ID, nil
}

// rowCode picks the row error code for a rejected write
func rowCode(err error) string {
	var de *shared.DomainError
	if errors.As(err, &de) {
		return de.Code
	}
	return csvimport.ErrCodeImportRejected
}
