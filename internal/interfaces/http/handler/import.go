package handler

import (
	importapp "github.com/erp/fulfillment/internal/application/import"
	"github.com/gin-gonic/gin"
)

// ImportHandler accepts CSV uploads of ERP batch and order exports
type ImportHandler struct {
	BaseHandler
	batches *importapp.BatchImportService
	orders  *importapp.OrderImportService
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(batches *importapp.BatchImportService, orders *importapp.OrderImportService) *ImportHandler {
	return &ImportHandler{batches: batches, orders: orders}
}

// ImportBatches upserts batch stock rows. Rejected rows are reported in
// the result and do not fail the request.
// POST /inventory/imports/batches?reference=
func (h *ImportHandler) ImportBatches(c *gin.Context) {
	body, filename, err := uploadReader(c)
	if err != nil {
		h.BadRequest(c, "Import file is required: "+err.Error())
		return
	}
	defer body.Close()

	reference := c.Query("reference")
	if reference == "" {
		reference = filename
	}
	who := actor(c, c.Query("actor"))
	if who == "" {
		who = "erp-import"
	}
	result, err := h.batches.Import(c.Request.Context(), body, who, reference)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ImportOrders creates DRAFT orders grouped by ERP order ID
// POST /trade/imports/orders
func (h *ImportHandler) ImportOrders(c *gin.Context) {
	body, _, err := uploadReader(c)
	if err != nil {
		h.BadRequest(c, "Import file is required: "+err.Error())
		return
	}
	defer body.Close()

	result, err := h.orders.Import(c.Request.Context(), body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
