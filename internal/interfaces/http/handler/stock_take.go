package handler

import (
	appinv "github.com/erp/fulfillment/internal/application/inventory"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// StockTakeHandler drives counting sessions and ERP total checks
type StockTakeHandler struct {
	BaseHandler
	stockTakes *appinv.StockTakeService
	erpChecks  *appinv.ErpStockCheckService
}

// NewStockTakeHandler creates a new StockTakeHandler
func NewStockTakeHandler(stockTakes *appinv.StockTakeService, erpChecks *appinv.ErpStockCheckService) *StockTakeHandler {
	return &StockTakeHandler{stockTakes: stockTakes, erpChecks: erpChecks}
}

// Create POST /inventory/stock-takes
func (h *StockTakeHandler) Create(c *gin.Context) {
	var req appinv.CreateStockTakeRequest
	if !h.bindJSON(c, &req, func() { req.InitiatedBy = actor(c, req.InitiatedBy) }) {
		return
	}
	session, err := h.stockTakes.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, session)
}

// Get GET /inventory/stock-takes/:id
func (h *StockTakeHandler) Get(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	session, err := h.stockTakes.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// AddItem records one counted observation. POST /inventory/stock-takes/:id/items
func (h *StockTakeHandler) AddItem(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appinv.CountItemRequest
	if !h.bindJSON(c, &req) {
		return
	}
	item, err := h.stockTakes.AddItem(c.Request.Context(), id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, item)
}

// Complete POST /inventory/stock-takes/:id/complete
func (h *StockTakeHandler) Complete(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ActorRequest
	if !h.bindJSON(c, &req, func() { req.Actor = actor(c, req.Actor) }) {
		return
	}
	session, err := h.stockTakes.Complete(c.Request.Context(), id, req.Actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, session)
}

// Evaluate reconciles the counts against batch stock. A session is
// evaluated once; a second call answers 409.
// POST /inventory/stock-takes/:id/evaluate
func (h *StockTakeHandler) Evaluate(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ActorRequest
	if !h.bindJSON(c, &req, func() { req.Actor = actor(c, req.Actor) }) {
		return
	}
	findings, err := h.stockTakes.Evaluate(c.Request.Context(), id, req.Actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, findings)
}

// ListDiscrepancies GET /inventory/stock-takes/:id/discrepancies
func (h *StockTakeHandler) ListDiscrepancies(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	findings, err := h.stockTakes.ListDiscrepancies(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, findings)
}

// ResolveDiscrepancy POST /inventory/discrepancies/:id/resolve
func (h *StockTakeHandler) ResolveDiscrepancy(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req appinv.ResolveDiscrepancyRequest
	if !h.bindJSON(c, &req, func() {
		req.DiscrepancyID = id
		req.Actor = actor(c, req.Actor)
	}) {
		return
	}
	finding, err := h.stockTakes.ResolveDiscrepancy(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, finding)
}

// CreateErpCheck stores an ERP stock report. POST /inventory/erp-checks
func (h *StockTakeHandler) CreateErpCheck(c *gin.Context) {
	var req appinv.CreateErpCheckRequest
	if !h.bindJSON(c, &req, func() { req.UploadedBy = actor(c, req.UploadedBy) }) {
		return
	}
	check, err := h.erpChecks.Create(c.Request.Context(), req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, check)
}

// EvaluateErpCheck POST /inventory/erp-checks/:id/evaluate
func (h *StockTakeHandler) EvaluateErpCheck(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.ActorRequest
	if !h.bindJSON(c, &req, func() { req.Actor = actor(c, req.Actor) }) {
		return
	}
	findings, err := h.erpChecks.Evaluate(c.Request.Context(), id, req.Actor)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, findings)
}

// ListErpDiscrepancies GET /inventory/erp-checks/:id/discrepancies
func (h *StockTakeHandler) ListErpDiscrepancies(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	findings, err := h.erpChecks.ListDiscrepancies(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, findings)
}
