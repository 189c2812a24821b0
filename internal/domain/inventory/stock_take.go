package inventory

import (
	"fmt"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/google/uuid"
)

// StockTakeStatus represents where a counting session is in its lifecycle
type StockTakeStatus string

const (
	StockTakeStatusPending             StockTakeStatus = "PENDING"
	StockTakeStatusCompletedByOperator StockTakeStatus = "COMPLETED_BY_OPERATOR"
	StockTakeStatusEvaluated           StockTakeStatus = "EVALUATED"
)

// IsValid checks if the status is a valid StockTakeStatus
func (s StockTakeStatus) IsValid() bool {
	switch s {
	case StockTakeStatusPending, StockTakeStatusCompletedByOperator, StockTakeStatusEvaluated:
		return true
	}
	return false
}

// String returns the string representation of StockTakeStatus
func (s StockTakeStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status
func (s StockTakeStatus) CanTransitionTo(target StockTakeStatus) bool {
	switch s {
	case StockTakeStatusPending:
		return target == StockTakeStatusCompletedByOperator
	case StockTakeStatusCompletedByOperator:
		return target == StockTakeStatusEvaluated
	}
	return false
}

// StockTakeItem is one counted observation. Counted labels are stored as
// typed by the operator.
type StockTakeItem struct {
	shared.BaseEntity
	SessionID            uuid.UUID  `gorm:"type:uuid;not null;index"`
	WarehouseProductID   uuid.UUID  `gorm:"type:uuid;not null;index"`
	LocationLabelCounted string     `gorm:"type:varchar(100);not null;default:''"`
	BatchNumberCounted   string     `gorm:"type:varchar(100);not null;default:''"`
	ExpiryDateCounted    *time.Time `gorm:"type:date"`
	CountedQuantity      int        `gorm:"not null"`
	Notes                string     `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (StockTakeItem) TableName() string {
	return "stock_take_items"
}

// StockTakeSession is a counting event for one warehouse
type StockTakeSession struct {
	shared.BaseAggregateRoot
	WarehouseID uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status      StockTakeStatus `gorm:"type:varchar(30);not null;default:'PENDING';index"`
	InitiatedBy string          `gorm:"type:varchar(100);not null"`
	InitiatedAt time.Time       `gorm:"not null"`
	CompletedBy string          `gorm:"type:varchar(100)"`
	CompletedAt *time.Time
	EvaluatedBy string `gorm:"type:varchar(100)"`
	EvaluatedAt *time.Time
	Notes       string          `gorm:"type:text"`
	Items       []StockTakeItem `gorm:"foreignKey:SessionID;references:ID"`
}

// TableName returns the table name for GORM
func (StockTakeSession) TableName() string {
	return "stock_take_sessions"
}

// NewStockTakeSession opens a PENDING session
func NewStockTakeSession(warehouseID uuid.UUID, initiatedBy, notes string) (*StockTakeSession, error) {
	if warehouseID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE", "Warehouse ID cannot be empty")
	}
	if strings.TrimSpace(initiatedBy) == "" {
		return nil, shared.NewDomainError("INVALID_ACTOR", "Initiator cannot be empty")
	}
	s := &StockTakeSession{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		WarehouseID:       warehouseID,
		Status:            StockTakeStatusPending,
		InitiatedBy:       initiatedBy,
		InitiatedAt:       time.Now(),
		Notes:             notes,
	}
	s.AddDomainEvent(NewStockTakeStartedEvent(s))
	return s, nil
}

// CountInput carries one operator observation
type CountInput struct {
	WarehouseProductID uuid.UUID
	LocationLabel      string
	BatchNumber        string
	ExpiryDate         *time.Time
	Quantity           int
	Notes              string
}

// AddItem records a count. Only allowed while the session is PENDING.
func (s *StockTakeSession) AddItem(in CountInput) (*StockTakeItem, error) {
	if s.Status != StockTakeStatusPending {
		return nil, shared.NewDomainError(CodeInvalidStockTakeTransition,
			fmt.Sprintf("Cannot add counts to a session in %s status", s.Status))
	}
	if in.WarehouseProductID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_WAREHOUSE_PRODUCT", "Warehouse product is required")
	}
	if in.Quantity < 0 {
		return nil, NewInvalidQuantityError("Counted quantity cannot be negative")
	}
	var exp *time.Time
	if in.ExpiryDate != nil {
		d := DateOnly(*in.ExpiryDate)
		exp = &d
	}
	item := StockTakeItem{
		BaseEntity:           shared.NewBaseEntity(),
		SessionID:            s.ID,
		WarehouseProductID:   in.WarehouseProductID,
		LocationLabelCounted: strings.TrimSpace(in.LocationLabel),
		BatchNumberCounted:   strings.TrimSpace(in.BatchNumber),
		ExpiryDateCounted:    exp,
		CountedQuantity:      in.Quantity,
		Notes:                in.Notes,
	}
	s.Items = append(s.Items, item)
	s.IncrementVersion()
	return &s.Items[len(s.Items)-1], nil
}

// CompleteByOperator closes counting
func (s *StockTakeSession) CompleteByOperator(actor string) error {
	if !s.Status.CanTransitionTo(StockTakeStatusCompletedByOperator) {
		return shared.NewDomainError(CodeInvalidStockTakeTransition,
			fmt.Sprintf("Cannot complete counting of a session in %s status", s.Status))
	}
	now := time.Now()
	s.Status = StockTakeStatusCompletedByOperator
	s.CompletedBy = actor
	s.CompletedAt = &now
	s.IncrementVersion()
	return nil
}

// MarkEvaluated moves the session to its terminal state. A second
// evaluation is reported as a duplicate rather than a generic transition
// error.
func (s *StockTakeSession) MarkEvaluated(actor string, at time.Time, discrepancyCount int) error {
	if s.Status == StockTakeStatusEvaluated {
		return NewDuplicateSessionEvaluationError(s.ID)
	}
	if !s.Status.CanTransitionTo(StockTakeStatusEvaluated) {
		return shared.NewDomainError(CodeInvalidStockTakeTransition,
			fmt.Sprintf("Cannot evaluate a session in %s status", s.Status))
	}
	s.Status = StockTakeStatusEvaluated
	s.EvaluatedBy = actor
	s.EvaluatedAt = &at
	s.IncrementVersion()
	s.AddDomainEvent(NewStockTakeEvaluatedEvent(s, discrepancyCount))
	return nil
}

// IsEvaluated reports whether the session is finished
func (s *StockTakeSession) IsEvaluated() bool {
	return s.Status == StockTakeStatusEvaluated
}
