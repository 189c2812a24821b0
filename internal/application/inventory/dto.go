package inventory

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// WarehouseProductResponse represents a warehouse product in API responses
type WarehouseProductResponse struct {
	ID            uuid.UUID `json:"id"`
	WarehouseID   uuid.UUID `json:"warehouse_id"`
	ProductID     uuid.UUID `json:"product_id"`
	TotalQuantity int       `json:"total_quantity"`
	UpdatedAt     time.Time `json:"updated_at"`
	Version       int       `json:"version"`
}

// BatchResponse represents an inventory batch in API responses
type BatchResponse struct {
	ID                 uuid.UUID       `json:"id"`
	WarehouseProductID uuid.UUID       `json:"warehouse_product_id"`
	WarehouseID        uuid.UUID       `json:"warehouse_id"`
	ProductID          uuid.UUID       `json:"product_id"`
	BatchNumber        string          `json:"batch_number"`
	LocationLabel      string          `json:"location_label"`
	Quantity           int             `json:"quantity"`
	ExpiryDate         *time.Time      `json:"expiry_date,omitempty"`
	DateReceived       time.Time       `json:"date_received"`
	CostPrice          decimal.Decimal `json:"cost_price"`
	PickPriority       string          `json:"pick_priority"`
}

// LedgerEntryResponse represents a stock transaction in API responses
type LedgerEntryResponse struct {
	ID                 uuid.UUID  `json:"id"`
	WarehouseProductID uuid.UUID  `json:"warehouse_product_id"`
	BatchItemID        *uuid.UUID `json:"batch_item_id,omitempty"`
	Type               string     `json:"type"`
	Quantity           int        `json:"quantity"`
	Reference          string     `json:"reference,omitempty"`
	OrderID            *uuid.UUID `json:"order_id,omitempty"`
	PurchaseOrderID    *uuid.UUID `json:"purchase_order_id,omitempty"`
	Actor              string     `json:"actor,omitempty"`
	Note               string     `json:"note,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// DeductRequest asks for a FEFO deduction across all batches
type DeductRequest struct {
	WarehouseProductID uuid.UUID  `json:"warehouse_product_id" binding:"required"`
	Quantity           int        `json:"quantity" binding:"required,gt=0"`
	Actor              string     `json:"actor" binding:"required"`
	Note               string     `json:"note"`
	Reference          string     `json:"reference"`
	OrderID            *uuid.UUID `json:"order_id"`
}

// DeductFromBatchRequest asks for a deduction from one batch
type DeductFromBatchRequest struct {
	WarehouseProductID uuid.UUID  `json:"warehouse_product_id" binding:"required"`
	BatchID            uuid.UUID  `json:"batch_id" binding:"required"`
	Quantity           int        `json:"quantity" binding:"required,gt=0"`
	Actor              string     `json:"actor" binding:"required"`
	Note               string     `json:"note"`
	OrderID            *uuid.UUID `json:"order_id"`
}

// AdjustRequest asks for a signed correction of one batch
type AdjustRequest struct {
	BatchID uuid.UUID `json:"batch_id" binding:"required"`
	Delta   int       `json:"delta" binding:"required"`
	Actor   string    `json:"actor" binding:"required"`
	Note    string    `json:"note"`
}

// UpsertBatchRequest creates or updates a batch by its natural key
type UpsertBatchRequest struct {
	WarehouseID   uuid.UUID       `json:"warehouse_id" binding:"required"`
	ProductID     uuid.UUID       `json:"product_id" binding:"required"`
	BatchNumber   string          `json:"batch_number"`
	LocationLabel string          `json:"location_label"`
	Quantity      int             `json:"quantity" binding:"min=0"`
	ExpiryDate    *time.Time      `json:"expiry_date"`
	DateReceived  time.Time       `json:"date_received"`
	CostPrice     decimal.Decimal `json:"cost_price"`
	PickPriority  string          `json:"pick_priority"`
	Actor         string          `json:"actor"`
	Reference     string          `json:"reference"`
}

// LedgerVerification reports drift between the ledger and live batches
type LedgerVerification struct {
	WarehouseProductID uuid.UUID `json:"warehouse_product_id"`
	LedgerSum          int       `json:"ledger_sum"`
	BatchSum           int       `json:"batch_sum"`
	CachedTotal        int       `json:"cached_total"`
	Drift              int       `json:"drift"`
	Consistent         bool      `json:"consistent"`
}

// ToWarehouseProductResponse converts a domain WarehouseProduct
func ToWarehouseProductResponse(wp *inventory.WarehouseProduct) WarehouseProductResponse {
	return WarehouseProductResponse{
		ID:            wp.ID,
		WarehouseID:   wp.WarehouseID,
		ProductID:     wp.ProductID,
		TotalQuantity: wp.TotalQuantity,
		UpdatedAt:     wp.UpdatedAt,
		Version:       wp.Version,
	}
}

// ToBatchResponse converts a domain batch
func ToBatchResponse(b *inventory.InventoryBatchItem) BatchResponse {
	return BatchResponse{
		ID:                 b.ID,
		WarehouseProductID: b.WarehouseProductID,
		WarehouseID:        b.WarehouseID,
		ProductID:          b.ProductID,
		BatchNumber:        b.BatchNumber,
		LocationLabel:      b.LocationLabel,
		Quantity:           b.Quantity,
		ExpiryDate:         b.ExpiryDate,
		DateReceived:       b.DateReceived,
		CostPrice:          b.CostPrice,
		PickPriority:       b.PickPriority.String(),
	}
}

// ToBatchResponses converts a slice of batches
func ToBatchResponses(batches []inventory.InventoryBatchItem) []BatchResponse {
	out := make([]BatchResponse, len(batches))
	for i := range batches {
		out[i] = ToBatchResponse(&batches[i])
	}
	return out
}

// ToLedgerEntryResponse converts a ledger entry
func ToLedgerEntryResponse(t *inventory.StockTransaction) LedgerEntryResponse {
	return LedgerEntryResponse{
		ID:                 t.ID,
		WarehouseProductID: t.WarehouseProductID,
		BatchItemID:        t.BatchItemID,
		Type:               t.Type.String(),
		Quantity:           t.Quantity,
		Reference:          t.Reference,
		OrderID:            t.OrderID,
		PurchaseOrderID:    t.PurchaseOrderID,
		Actor:              t.Actor,
		Note:               t.Note,
		CreatedAt:          t.CreatedAt,
	}
}

// ToLedgerEntryResponses converts a slice of ledger entries
func ToLedgerEntryResponses(entries []inventory.StockTransaction) []LedgerEntryResponse {
	out := make([]LedgerEntryResponse, len(entries))
	for i := range entries {
		out[i] = ToLedgerEntryResponse(&entries[i])
	}
	return out
}
