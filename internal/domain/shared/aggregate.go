package shared

// AggregateRoot is the base interface for all aggregate roots
type AggregateRoot interface {
	Entity
	GetVersion() int
	IncrementVersion()
	AddDomainEvent(event DomainEvent)
	GetDomainEvents() []DomainEvent
	ClearDomainEvents()
}

// BaseAggregateRoot provides common fields for aggregate roots
type BaseAggregateRoot struct {
	BaseEntity
	Version      int           `gorm:"not null;default:1"`
	domainEvents []DomainEvent `gorm:"-"`
}

// GetVersion returns the aggregate version
func (a *BaseAggregateRoot) GetVersion() int {
	return a.Version
}

// IncrementVersion increments the version number and touches UpdatedAt
func (a *BaseAggregateRoot) IncrementVersion() {
	a.Version++
	a.Touch()
}

// AddDomainEvent queues a domain event for publication after commit
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.domainEvents = append(a.domainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.domainEvents
}

// ClearDomainEvents clears the pending domain events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.domainEvents = nil
}

// NewBaseAggregateRoot creates a new base aggregate root
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{
		BaseEntity:   NewBaseEntity(),
		Version:      1,
		domainEvents: make([]DomainEvent, 0),
	}
}
