package handler

import (
	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/gin-gonic/gin"
)

// PurchaseOrderHandler handles purchase orders and goods receipt
type PurchaseOrderHandler struct {
	BaseHandler
	purchasing *apptrade.PurchaseOrderService
}

// NewPurchaseOrderHandler creates a new PurchaseOrderHandler
func NewPurchaseOrderHandler(purchasing *apptrade.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{purchasing: purchasing}
}

// Create numbers and stores a purchase order. POST /trade/purchase-orders
func (h *PurchaseOrderHandler) Create(c *gin.Context) {
	var req apptrade.CreatePurchaseOrderRequest
	if !h.bindJSON(c, &req, func() { req.CreatedBy = actor(c, req.CreatedBy) }) {
		return
	}
	po, err := h.purchasing.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, po)
}

// Get GET /trade/purchase-orders/:id
func (h *PurchaseOrderHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	po, err := h.purchasing.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, po)
}

// Receive books goods into batch stock. POST /trade/purchase-orders/:id/receive
func (h *PurchaseOrderHandler) Receive(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req apptrade.ReceivePurchaseOrderRequest
	if !h.bindJSON(c, &req, func() {
		req.PurchaseOrderID = id
		req.Actor = actor(c, req.Actor)
	}) {
		return
	}
	po, err := h.purchasing.Receive(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, po)
}
