package handler

import (
	"strings"
	"time"

	appship "github.com/erp/fulfillment/internal/application/shipping"
	apptrade "github.com/erp/fulfillment/internal/application/trade"
	"github.com/erp/fulfillment/internal/domain/shipping"
	"github.com/erp/fulfillment/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ShippingHandler receives courier tracking feeds and invoices
type ShippingHandler struct {
	BaseHandler
	tracking *appship.TrackingService
	invoices *appship.InvoiceReconciliationService
	now      func() time.Time
}

// NewShippingHandler creates a new ShippingHandler
func NewShippingHandler(tracking *appship.TrackingService, invoices *appship.InvoiceReconciliationService) *ShippingHandler {
	return &ShippingHandler{tracking: tracking, invoices: invoices, now: time.Now}
}

// ApplyTrackingEvents POST /shipping/tracking-events
func (h *ShippingHandler) ApplyTrackingEvents(c *gin.Context) {
	var req dto.TrackingEventsRequest
	if !h.bindJSON(c, &req) {
		return
	}
	inputs := make([]appship.TrackingEventInput, len(req.Events))
	for i, e := range req.Events {
		inputs[i] = appship.TrackingEventInput{
			EventID:           e.EventID,
			TrackingNumber:    e.TrackingNumber,
			StatusDescription: e.StatusDescription,
			Location:          e.Location,
			OccurredAt:        e.OccurredAt,
		}
	}
	result, err := h.tracking.ApplyTrackingEvents(c.Request.Context(), inputs)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// TrackingHistory GET /shipping/tracking/:tracking_number/events
func (h *ShippingHandler) TrackingHistory(c *gin.Context) {
	events, err := h.tracking.History(c.Request.Context(), strings.TrimSpace(c.Param("tracking_number")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	out := make([]dto.TrackingEventResponse, len(events))
	for i, e := range events {
		out[i] = toTrackingEventResponse(e)
	}
	h.Success(c, out)
}

func toTrackingEventResponse(e shipping.TrackingEvent) dto.TrackingEventResponse {
	return dto.TrackingEventResponse{
		EventID:           e.EventID,
		TrackingNumber:    e.TrackingNumber,
		StatusDescription: e.StatusDescription,
		Location:          e.Location,
		OccurredAt:        e.OccurredAt,
		DerivedStatus:     e.DerivedStatus.String(),
	}
}

// AssignTrackingNumber POST /shipping/parcels/:id/tracking-number
func (h *ShippingHandler) AssignTrackingNumber(c *gin.Context) {
	id, ok := h.uuidParam(c, "id")
	if !ok {
		return
	}
	var req dto.AssignTrackingNumberRequest
	if !h.bindJSON(c, &req) {
		return
	}
	parcel, err := h.tracking.AssignTrackingNumber(c.Request.Context(), id, req.TrackingNumber)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, apptrade.ToParcelResponse(parcel))
}

// FlagStaleParcels POST /shipping/stale-parcels/flag
func (h *ShippingHandler) FlagStaleParcels(c *gin.Context) {
	flagged, err := h.tracking.FlagStaleParcels(c.Request.Context(), h.now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"flagged": flagged, "count": len(flagged)})
}

// RecordInvoiceLines POST /shipping/invoices
func (h *ShippingHandler) RecordInvoiceLines(c *gin.Context) {
	var req dto.InvoiceLinesRequest
	if !h.bindJSON(c, &req) {
		return
	}
	lines := make([]shipping.InvoiceLine, len(req.Lines))
	for i, l := range req.Lines {
		billedAt := l.BilledAt
		if billedAt.IsZero() {
			billedAt = h.now()
		}
		lines[i] = shipping.InvoiceLine{
			TrackingNumber: l.TrackingNumber,
			InvoiceNumber:  l.InvoiceNumber,
			BilledCost:     l.BilledCost,
			BilledWeight:   l.BilledWeight,
			BilledAt:       billedAt,
		}
	}
	result, err := h.invoices.RecordInvoiceLines(c.Request.Context(), lines)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ImportInvoices accepts a courier invoice CSV. POST /shipping/invoices/import
func (h *ShippingHandler) ImportInvoices(c *gin.Context) {
	body, _, err := uploadReader(c)
	if err != nil {
		h.BadRequest(c, "Invoice file is required: "+err.Error())
		return
	}
	defer body.Close()

	result, err := h.invoices.ImportInvoices(c.Request.Context(), body)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// CostHistory GET /shipping/costs/:tracking_number
func (h *ShippingHandler) CostHistory(c *gin.Context) {
	cost, err := h.invoices.GetCostHistory(c.Request.Context(), strings.TrimSpace(c.Param("tracking_number")))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, cost)
}
