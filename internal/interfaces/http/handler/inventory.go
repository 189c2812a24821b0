package handler

import (
	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// InventoryHandler exposes batch stock and the stock ledger
type InventoryHandler struct {
	BaseHandler
	inventoryService *appinv.InventoryService
}

// NewInventoryHandler creates a new InventoryHandler
func NewInventoryHandler(inventoryService *appinv.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

// EnsureWarehouseProductRequest pairs a product with a warehouse
type EnsureWarehouseProductRequest struct {
	WarehouseID uuid.UUID `json:"warehouse_id" binding:"required"`
	ProductID   uuid.UUID `json:"product_id" binding:"required"`
}

// EnsureWarehouseProduct returns the warehouse product, creating it when missing
// POST /inventory/warehouse-products
func (h *InventoryHandler) EnsureWarehouseProduct(c *gin.Context) {
	var req EnsureWarehouseProductRequest
	if !h.bindJSON(c, &req) {
		return
	}
	wp, err := h.inventoryService.EnsureWarehouseProduct(c.Request.Context(), req.WarehouseID, req.ProductID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, wp)
}

// GetWarehouseProduct GET /inventory/warehouse-products/:id
func (h *InventoryHandler) GetWarehouseProduct(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	wp, err := h.inventoryService.GetWarehouseProduct(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, wp)
}

// ListBatches GET /inventory/warehouse-products/:id/batches
func (h *InventoryHandler) ListBatches(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	batches, err := h.inventoryService.ListBatches(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batches)
}

// History returns the ledger of a warehouse product, oldest first
// GET /inventory/warehouse-products/:id/history
func (h *InventoryHandler) History(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	entries, err := h.inventoryService.History(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// SuggestBatch names the batch to pick a quantity from. A null data field
// means no single batch can cover it.
// GET /inventory/warehouse-products/:id/suggest?quantity=n
func (h *InventoryHandler) SuggestBatch(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	qty, ok := h.intQuery(c, "quantity", 1)
	if !ok {
		return
	}
	batch, err := h.inventoryService.SuggestBatch(c.Request.Context(), id, qty)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// VerifyLedger GET /inventory/warehouse-products/:id/verify
func (h *InventoryHandler) VerifyLedger(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	v, err := h.inventoryService.VerifyLedger(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, v)
}

// UpsertBatch creates or updates a batch by warehouse product, batch
// number and location. POST /inventory/batches
func (h *InventoryHandler) UpsertBatch(c *gin.Context) {
	var req appinv.UpsertBatchRequest
	if !h.bindJSON(c, &req, func() { req.Actor = actor(c, req.Actor) }) {
		return
	}
	batch, err := h.inventoryService.UpsertBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// SetPickPriority PUT /inventory/batches/:id/pick-priority
func (h *InventoryHandler) SetPickPriority(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.SetPickPriorityRequest
	if !h.bindJSON(c, &req) {
		return
	}
	batch, err := h.inventoryService.SetPickPriority(c.Request.Context(), id, req.Priority)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, batch)
}

// Deduct takes stock first-expiry-first-out. POST /inventory/deduct
func (h *InventoryHandler) Deduct(c *gin.Context) {
	var req appinv.DeductRequest
	if !h.bindJSON(c, &req, func() { req.Actor = actor(c, req.Actor) }) {
		return
	}
	entries, err := h.inventoryService.Deduct(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entries)
}

// DeductFromBatch POST /inventory/deduct-batch
func (h *InventoryHandler) DeductFromBatch(c *gin.Context) {
	var req appinv.DeductFromBatchRequest
	if !h.bindJSON(c, &req, func() { req.Actor = actor(c, req.Actor) }) {
		return
	}
	entry, err := h.inventoryService.DeductFromBatch(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}

// Adjust POST /inventory/adjust
func (h *InventoryHandler) Adjust(c *gin.Context) {
	var req appinv.AdjustRequest
	if !h.bindJSON(c, &req, func() { req.Actor = actor(c, req.Actor) }) {
		return
	}
	entry, err := h.inventoryService.Adjust(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, entry)
}
