package handler

import (
	"strings"

	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// OrderHandler exposes the order fulfillment workflow
type OrderHandler struct {
	BaseHandler
	fulfillment *apptrade.FulfillmentService
}

// NewOrderHandler creates a new OrderHandler
func NewOrderHandler(fulfillment *apptrade.FulfillmentService) *OrderHandler {
	return &OrderHandler{fulfillment: fulfillment}
}

// Create stores a DRAFT order. POST /trade/orders
func (h *OrderHandler) Create(c *gin.Context) {
	var req apptrade.CreateOrderRequest
	if !h.bindJSON(c, &req) {
		return
	}
	order, err := h.fulfillment.CreateOrder(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, order)
}

// Get GET /trade/orders/:id
func (h *OrderHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.fulfillment.GetOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// List GET /trade/orders?status=&warehouse_id=&search=&page=&page_size=
func (h *OrderHandler) List(c *gin.Context) {
	filter := apptrade.OrderListFilter{
		Status: strings.ToUpper(strings.TrimSpace(c.Query("status"))),
		Search: c.Query("search"),
	}
	if raw := c.Query("warehouse_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			h.BadRequest(c, "Invalid warehouse_id query parameter")
			return
		}
		filter.WarehouseID = &id
	}
	var ok bool
	if filter.Page, ok = h.intQuery(c, "page", 1); !ok {
		return
	}
	if filter.PageSize, ok = h.intQuery(c, "page_size", 20); !ok {
		return
	}
	if filter.PageSize > 100 {
		filter.PageSize = 100
	}

	page, err := h.fulfillment.ListOrders(c.Request.Context(), filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// Confirm releases a DRAFT order for picking. POST /trade/orders/:id/confirm
func (h *OrderHandler) Confirm(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.fulfillment.Confirm(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Suggestions records and returns the suggested batch per open line
// POST /trade/orders/:id/suggestions
func (h *OrderHandler) Suggestions(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	suggestions, err := h.fulfillment.SuggestBatchesForOrder(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, suggestions)
}

// Pack records a parcel and deducts its stock. A rejected allocation
// leaves the order untouched. POST /trade/orders/:id/parcels
func (h *OrderHandler) Pack(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apptrade.PackRequest
	if !h.bindJSON(c, &req, func() {
		req.OrderID = id
		req.PackedBy = actor(c, req.PackedBy)
	}) {
		return
	}
	parcel, err := h.fulfillment.Pack(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, parcel)
}

// ListParcels GET /trade/orders/:id/parcels
func (h *OrderHandler) ListParcels(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	parcels, err := h.fulfillment.ListParcels(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, parcels)
}

// RemoveItem takes quantity off an order line. POST /trade/orders/:id/removals
func (h *OrderHandler) RemoveItem(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apptrade.RemoveItemRequest
	if !h.bindJSON(c, &req, func() {
		req.OrderID = id
		req.Actor = actor(c, req.Actor)
	}) {
		return
	}
	order, err := h.fulfillment.RemoveItemQuantity(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Complete POST /trade/orders/:id/complete
func (h *OrderHandler) Complete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ActorRequest
	if !h.bindJSON(c, &req, func() { req.Actor = actor(c, req.Actor) }) {
		return
	}
	order, err := h.fulfillment.Complete(c.Request.Context(), id, req.Actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// Cancel POST /trade/orders/:id/cancel
func (h *OrderHandler) Cancel(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.CancelOrderRequest
	if !h.bindJSON(c, &req, func() { req.Actor = actor(c, req.Actor) }) {
		return
	}
	order, err := h.fulfillment.Cancel(c.Request.Context(), id, req.Actor, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}

// MarkBilled POST /trade/orders/:id/bill
func (h *OrderHandler) MarkBilled(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	order, err := h.fulfillment.MarkBilled(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, order)
}
