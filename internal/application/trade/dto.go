package trade

import (
	"time"

	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CreateOrderItemInput is one demand line of a new order
type CreateOrderItemInput struct {
	ProductID uuid.UUID `json:"product_id" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,gt=0"`
}

// CreateOrderRequest creates an order with its lines
type CreateOrderRequest struct {
	ERPOrderID  string                 `json:"erp_order_id" binding:"required"`
	WarehouseID uuid.UUID              `json:"warehouse_id" binding:"required"`
	Customer    string                 `json:"customer" binding:"required"`
	IsCold      bool                   `json:"is_cold"`
	Items       []CreateOrderItemInput `json:"items" binding:"required,min=1,dive"`
}

// PackAllocationInput assigns quantity of one order line to one batch
type PackAllocationInput struct {
	OrderItemID uuid.UUID  `json:"order_item_id" binding:"required"`
	BatchID     *uuid.UUID `json:"batch_id"`
	Quantity    int        `json:"quantity"`
}

// PackRequest packs allocations into one parcel
type PackRequest struct {
	OrderID        uuid.UUID             `json:"-"`
	TrackingNumber string                `json:"tracking_number"`
	PackedBy       string                `json:"packed_by" binding:"required"`
	Allocations    []PackAllocationInput `json:"allocations" binding:"required,min=1,dive"`
}

// RemoveItemRequest takes quantity off an order line
type RemoveItemRequest struct {
	OrderID     uuid.UUID `json:"-"`
	OrderItemID uuid.UUID `json:"order_item_id" binding:"required"`
	Quantity    int       `json:"quantity" binding:"required,gt=0"`
	Reason      string    `json:"reason"`
	Actor       string    `json:"actor" binding:"required"`
}

// OrderItemResponse represents an order line
type OrderItemResponse struct {
	ID                 uuid.UUID  `json:"id"`
	ProductID          uuid.UUID  `json:"product_id"`
	WarehouseProductID uuid.UUID  `json:"warehouse_product_id"`
	QuantityOrdered    int        `json:"quantity_ordered"`
	QuantityRemoved    int        `json:"quantity_removed"`
	QuantityPacked     int        `json:"quantity_packed"`
	QuantityAllocated  int        `json:"quantity_allocated"`
	QuantityShipped    int        `json:"quantity_shipped"`
	Balance            int        `json:"balance"`
	Status             string     `json:"status"`
	SuggestedBatchID   *uuid.UUID `json:"suggested_batch_id,omitempty"`
}

// OrderResponse represents an order
type OrderResponse struct {
	ID               uuid.UUID           `json:"id"`
	ERPOrderID       string              `json:"erp_order_id"`
	WarehouseID      uuid.UUID           `json:"warehouse_id"`
	Customer         string              `json:"customer"`
	IsCold           bool                `json:"is_cold"`
	Status           string              `json:"status"`
	InventoryUpdated bool                `json:"inventory_updated"`
	CompletedAt      *time.Time          `json:"completed_at,omitempty"`
	BilledAt         *time.Time          `json:"billed_at,omitempty"`
	CancelledAt      *time.Time          `json:"cancelled_at,omitempty"`
	CancelReason     string              `json:"cancel_reason,omitempty"`
	Items            []OrderItemResponse `json:"items"`
	CreatedAt        time.Time           `json:"created_at"`
	UpdatedAt        time.Time           `json:"updated_at"`
	Version          int                 `json:"version"`
}

// OrderListFilter represents filter options for the order list
type OrderListFilter struct {
	Status      string     `form:"status"`
	WarehouseID *uuid.UUID `form:"warehouse_id"`
	Search      string     `form:"search"`
	Page        int        `form:"page"`
	PageSize    int        `form:"page_size" binding:"omitempty,max=100"`
}

// ParcelItemResponse represents a parcel item
type ParcelItemResponse struct {
	ID          uuid.UUID `json:"id"`
	OrderItemID uuid.UUID `json:"order_item_id"`
	BatchItemID uuid.UUID `json:"batch_item_id"`
	Quantity    int       `json:"quantity"`
}

// ParcelResponse represents a parcel
type ParcelResponse struct {
	ID             uuid.UUID            `json:"id"`
	OrderID        uuid.UUID            `json:"order_id"`
	TrackingNumber string               `json:"tracking_number,omitempty"`
	Status         string               `json:"status"`
	PackedBy       string               `json:"packed_by"`
	ShippingCost   decimal.Decimal      `json:"shipping_cost"`
	BilledWeight   decimal.Decimal      `json:"billed_weight"`
	FirstTransitAt *time.Time           `json:"first_transit_at,omitempty"`
	DeliveredAt    *time.Time           `json:"delivered_at,omitempty"`
	Items          []ParcelItemResponse `json:"items"`
	OrderStatus    string               `json:"order_status,omitempty"`
}

// ItemSuggestion is the suggested batch for one open order line
type ItemSuggestion struct {
	OrderItemID   uuid.UUID  `json:"order_item_id"`
	Balance       int        `json:"balance"`
	BatchID       *uuid.UUID `json:"batch_id,omitempty"`
	BatchNumber   string     `json:"batch_number,omitempty"`
	LocationLabel string     `json:"location_label,omitempty"`
	ExpiryDate    *time.Time `json:"expiry_date,omitempty"`
	Available     int        `json:"available"`
}

// PurchaseOrderLineRequest is one requested purchase line
type PurchaseOrderLineRequest struct {
	ProductID uuid.UUID       `json:"product_id" binding:"required"`
	Quantity  int             `json:"quantity" binding:"required,gt=0"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// CreatePurchaseOrderRequest creates a purchase order
type CreatePurchaseOrderRequest struct {
	SupplierID  uuid.UUID                  `json:"supplier_id" binding:"required"`
	WarehouseID uuid.UUID                  `json:"warehouse_id" binding:"required"`
	CreatedBy   string                     `json:"created_by" binding:"required"`
	Lines       []PurchaseOrderLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// ReceiptInput books goods received against one purchase order line
type ReceiptInput struct {
	LineID        uuid.UUID        `json:"line_id" binding:"required"`
	Quantity      int              `json:"quantity" binding:"required,gt=0"`
	BatchNumber   string           `json:"batch_number"`
	LocationLabel string           `json:"location_label"`
	ExpiryDate    *time.Time       `json:"expiry_date"`
	CostPrice     *decimal.Decimal `json:"cost_price"`
}

// ReceivePurchaseOrderRequest receives goods on a purchase order
type ReceivePurchaseOrderRequest struct {
	PurchaseOrderID uuid.UUID      `json:"-"`
	Actor           string         `json:"actor" binding:"required"`
	Receipts        []ReceiptInput `json:"receipts" binding:"required,min=1,dive"`
}

// PurchaseOrderLineResponse represents a purchase order line
type PurchaseOrderLineResponse struct {
	ID               uuid.UUID       `json:"id"`
	ProductID        uuid.UUID       `json:"product_id"`
	QuantityOrdered  int             `json:"quantity_ordered"`
	QuantityReceived int             `json:"quantity_received"`
	UnitCost         decimal.Decimal `json:"unit_cost"`
}

// PurchaseOrderResponse represents a purchase order
type PurchaseOrderResponse struct {
	ID          uuid.UUID                   `json:"id"`
	Number      string                      `json:"number"`
	SupplierID  uuid.UUID                   `json:"supplier_id"`
	WarehouseID uuid.UUID                   `json:"warehouse_id"`
	Status      string                      `json:"status"`
	CreatedBy   string                      `json:"created_by"`
	ReceivedAt  *time.Time                  `json:"received_at,omitempty"`
	Lines       []PurchaseOrderLineResponse `json:"lines"`
}

// ToOrderResponse converts a domain order
func ToOrderResponse(o *trade.Order) OrderResponse {
	resp := OrderResponse{
		ID:               o.ID,
		ERPOrderID:       o.ERPOrderID,
		WarehouseID:      o.WarehouseID,
		Customer:         o.Customer,
		IsCold:           o.IsCold,
		Status:           o.Status.String(),
		InventoryUpdated: o.InventoryUpdated,
		CompletedAt:      o.CompletedAt,
		BilledAt:         o.BilledAt,
		CancelledAt:      o.CancelledAt,
		CancelReason:     o.CancelReason,
		Items:            make([]OrderItemResponse, 0, len(o.Items)),
		CreatedAt:        o.CreatedAt,
		UpdatedAt:        o.UpdatedAt,
		Version:          o.Version,
	}
	for i := range o.Items {
		item := &o.Items[i]
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:                 item.ID,
			ProductID:          item.ProductID,
			WarehouseProductID: item.WarehouseProductID,
			QuantityOrdered:    item.QuantityOrdered,
			QuantityRemoved:    o.RemovedQuantity(item.ID),
			QuantityPacked:     item.QuantityPacked,
			QuantityAllocated:  item.QuantityAllocated,
			QuantityShipped:    item.QuantityShipped,
			Balance:            o.Balance(item),
			Status:             string(item.Status),
			SuggestedBatchID:   item.SuggestedBatchID,
		})
	}
	return resp
}

// ToParcelResponse converts a domain parcel
func ToParcelResponse(p *trade.Parcel) ParcelResponse {
	resp := ParcelResponse{
		ID:             p.ID,
		OrderID:        p.OrderID,
		TrackingNumber: p.TrackingNumber,
		Status:         p.Status.String(),
		PackedBy:       p.PackedBy,
		ShippingCost:   p.ShippingCost,
		BilledWeight:   p.BilledWeight,
		FirstTransitAt: p.FirstTransitAt,
		DeliveredAt:    p.DeliveredAt,
		Items:          make([]ParcelItemResponse, 0, len(p.Items)),
	}
	for _, it := range p.Items {
		resp.Items = append(resp.Items, ParcelItemResponse{
			ID:          it.ID,
			OrderItemID: it.OrderItemID,
			BatchItemID: it.BatchItemID,
			Quantity:    it.Quantity,
		})
	}
	return resp
}

// ToPurchaseOrderResponse converts a domain purchase order
func ToPurchaseOrderResponse(po *trade.PurchaseOrder) PurchaseOrderResponse {
	resp := PurchaseOrderResponse{
		ID:          po.ID,
		Number:      po.Number,
		SupplierID:  po.SupplierID,
		WarehouseID: po.WarehouseID,
		Status:      string(po.Status),
		CreatedBy:   po.CreatedBy,
		ReceivedAt:  po.ReceivedAt,
		Lines:       make([]PurchaseOrderLineResponse, 0, len(po.Lines)),
	}
	for _, l := range po.Lines {
		resp.Lines = append(resp.Lines, PurchaseOrderLineResponse{
			ID:               l.ID,
			ProductID:        l.ProductID,
			QuantityOrdered:  l.QuantityOrdered,
			QuantityReceived: l.QuantityReceived,
			UnitCost:         l.UnitCost,
		})
	}
	return resp
}
