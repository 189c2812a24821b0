package inventory

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/inventory"
	"github.com/google/uuid"
)

// CreateStockTakeRequest opens a counting session
type CreateStockTakeRequest struct {
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
	InitiatedBy string    `json:"initiated_by" binding:"required"`
	Notes       string    `json:"notes"`
}

// CountItemRequest records one counted observation
type CountItemRequest struct {
	WarehouseProductID uuid.UUID  `json:"warehouse_product_id" binding:"required"`
	LocationLabel      string     `json:"location_label"`
	BatchNumber        string     `json:"batch_number"`
	ExpiryDate         *time.Time `json:"expiry_date"`
	Quantity           int        `json:"quantity" binding:"min=0"`
	Notes              string     `json:"notes"`
}

// ResolveDiscrepancyRequest marks a discrepancy resolved. With
// ApplyAdjustment the batch is corrected to the counted quantity.
type ResolveDiscrepancyRequest struct {
	DiscrepancyID   uuid.UUID `json:"-"`
	Actor           string    `json:"actor" binding:"required"`
	Note            string    `json:"note"`
	ApplyAdjustment bool      `json:"apply_adjustment"`
}

// StockTakeResponse represents a session in API responses
type StockTakeResponse struct {
	ID          uuid.UUID           `json:"id"`
	WarehouseID uuid.UUID           `json:"warehouse_id"`
	Status      string              `json:"status"`
	InitiatedBy string              `json:"initiated_by"`
	InitiatedAt time.Time           `json:"initiated_at"`
	CompletedBy string              `json:"completed_by,omitempty"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
	EvaluatedBy string              `json:"evaluated_by,omitempty"`
	EvaluatedAt *time.Time          `json:"evaluated_at,omitempty"`
	Notes       string              `json:"notes,omitempty"`
	Items       []StockTakeItemView `json:"items,omitempty"`
}

// StockTakeItemView is a counted item in API responses
type StockTakeItemView struct {
	ID                 uuid.UUID  `json:"id"`
	WarehouseProductID uuid.UUID  `json:"warehouse_product_id"`
	LocationLabel      string     `json:"location_label"`
	BatchNumber        string     `json:"batch_number"`
	ExpiryDate         *time.Time `json:"expiry_date,omitempty"`
	Quantity           int        `json:"quantity"`
	Notes              string     `json:"notes,omitempty"`
}

// DiscrepancyResponse represents a stock-take finding
type DiscrepancyResponse struct {
	ID                  uuid.UUID  `json:"id"`
	SessionID           uuid.UUID  `json:"session_id"`
	WarehouseProductID  uuid.UUID  `json:"warehouse_product_id"`
	Type                string     `json:"type"`
	SystemBatchID       *uuid.UUID `json:"system_batch_id,omitempty"`
	SystemBatchNumber   string     `json:"system_batch_number,omitempty"`
	SystemLocation      string     `json:"system_location,omitempty"`
	SystemQuantity      int        `json:"system_quantity"`
	CountedBatchNumber  string     `json:"counted_batch_number,omitempty"`
	CountedLocation     string     `json:"counted_location,omitempty"`
	CountedQuantity     int        `json:"counted_quantity"`
	DiscrepancyQuantity int        `json:"discrepancy_quantity"`
	IsResolved          bool       `json:"is_resolved"`
	ResolvedBy          string     `json:"resolved_by,omitempty"`
	ResolvedAt          *time.Time `json:"resolved_at,omitempty"`
	ResolutionNote      string     `json:"resolution_note,omitempty"`
}

// ToStockTakeResponse converts a domain session
func ToStockTakeResponse(s *inventory.StockTakeSession) StockTakeResponse {
	resp := StockTakeResponse{
		ID:          s.ID,
		WarehouseID: s.WarehouseID,
		Status:      s.Status.String(),
		InitiatedBy: s.InitiatedBy,
		InitiatedAt: s.InitiatedAt,
		CompletedBy: s.CompletedBy,
		CompletedAt: s.CompletedAt,
		EvaluatedBy: s.EvaluatedBy,
		EvaluatedAt: s.EvaluatedAt,
		Notes:       s.Notes,
	}
	for _, it := range s.Items {
		resp.Items = append(resp.Items, ToStockTakeItemView(&it))
	}
	return resp
}

// ToStockTakeItemView converts a counted item
func ToStockTakeItemView(it *inventory.StockTakeItem) StockTakeItemView {
	return StockTakeItemView{
		ID:                 it.ID,
		WarehouseProductID: it.WarehouseProductID,
		LocationLabel:      it.LocationLabelCounted,
		BatchNumber:        it.BatchNumberCounted,
		ExpiryDate:         it.ExpiryDateCounted,
		Quantity:           it.CountedQuantity,
		Notes:              it.Notes,
	}
}

// ToDiscrepancyResponse converts a stock discrepancy
func ToDiscrepancyResponse(d *inventory.StockDiscrepancy) DiscrepancyResponse {
	return DiscrepancyResponse{
		ID:                  d.ID,
		SessionID:           d.SessionID,
		WarehouseProductID:  d.WarehouseProductID,
		Type:                d.Type.String(),
		SystemBatchID:       d.SystemBatchItemID,
		SystemBatchNumber:   d.SystemBatchNumber,
		SystemLocation:      d.SystemLocationLabel,
		SystemQuantity:      d.SystemQuantity,
		CountedBatchNumber:  d.CountedBatchNumber,
		CountedLocation:     d.CountedLocationLabel,
		CountedQuantity:     d.CountedQuantity,
		DiscrepancyQuantity: d.DiscrepancyQuantity,
		IsResolved:          d.IsResolved,
		ResolvedBy:          d.ResolvedBy,
		ResolvedAt:          d.ResolvedAt,
		ResolutionNote:      d.ResolutionNote,
	}
}

// ToDiscrepancyResponses converts a slice of discrepancies
func ToDiscrepancyResponses(ds []inventory.StockDiscrepancy) []DiscrepancyResponse {
	out := make([]DiscrepancyResponse, len(ds))
	for i := range ds {
		out[i] = ToDiscrepancyResponse(&ds[i])
	}
	return out
}
