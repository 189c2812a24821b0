package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// IDRequest represents a request with an ID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}

// ActorRequest carries who performs a state change
type ActorRequest struct {
	Actor string `json:"actor" binding:"required"`
}

// CancelOrderRequest cancels an order
type CancelOrderRequest struct {
	Actor  string `json:"actor" binding:"required"`
	Reason string `json:"reason"`
}

// SetPickPriorityRequest changes the picking priority of a batch
type SetPickPriorityRequest struct {
	Priority string `json:"priority" binding:"required"`
}

// TrackingEventsRequest is one delivery of the courier tracking feed
type TrackingEventsRequest struct {
	Events []TrackingEventRequest `json:"events" binding:"required,min=1,dive"`
}

// TrackingEventRequest is one courier scan
type TrackingEventRequest struct {
	EventID           string    `json:"event_id" binding:"required"`
	TrackingNumber    string    `json:"tracking_number" binding:"required"`
	StatusDescription string    `json:"status_description"`
	Location          string    `json:"location"`
	OccurredAt        time.Time `json:"occurred_at" binding:"required"`
}

// AssignTrackingNumberRequest sets the courier reference of a parcel
type AssignTrackingNumberRequest struct {
	TrackingNumber string `json:"tracking_number" binding:"required"`
}

// InvoiceLinesRequest is a batch of courier invoice lines
type InvoiceLinesRequest struct {
	Lines []InvoiceLineRequest `json:"lines" binding:"required,min=1,dive"`
}

// InvoiceLineRequest is one billed charge for a tracking number
type InvoiceLineRequest struct {
	TrackingNumber string          `json:"tracking_number" binding:"required"`
	InvoiceNumber  string          `json:"invoice_number"`
	BilledCost     decimal.Decimal `json:"billed_cost"`
	BilledWeight   decimal.Decimal `json:"billed_weight"`
	BilledAt       time.Time       `json:"billed_at"`
}

// TrackingEventResponse is one stored courier scan
type TrackingEventResponse struct {
	EventID           string    `json:"event_id"`
	TrackingNumber    string    `json:"tracking_number"`
	StatusDescription string    `json:"status_description"`
	Location          string    `json:"location,omitempty"`
	OccurredAt        time.Time `json:"occurred_at"`
	DerivedStatus     string    `json:"derived_status"`
}
