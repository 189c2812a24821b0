package shipping

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/erp/fulfillment/internal/domain/shared"
	"github.com/erp/fulfillment/internal/domain/shipping"
	"github.com/erp/fulfillment/internal/domain/trade"
	"github.com/erp/fulfillment/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TrackingEventInput is one event from the courier tracking feed
type TrackingEventInput struct {
	EventID           string    `json:"event_id" binding:"required"`
	TrackingNumber    string    `json:"tracking_number" binding:"required"`
	StatusDescription string    `json:"status_description"`
	Location          string    `json:"location"`
	OccurredAt        time.Time `json:"occurred_at" binding:"required"`
}

// TrackingResult summarises one batch of tracking events
type TrackingResult struct {
	Applied       int `json:"applied"`
	Duplicates    int `json:"duplicates"`
	Unmatched     int `json:"unmatched"`
	Rejected      int `json:"rejected"`
	StatusChanges int `json:"status_changes"`
}

// TrackingService applies courier events to parcels. Events are deduplicated
// by the courier's event ID, so a feed can be replayed safely.
type TrackingService struct {
	parcelRepo     trade.ParcelRepository
	eventRepo      shipping.TrackingEventRepository
	txScope        TransactionScope
	staleAfter     time.Duration
	logger         *zap.Logger
	eventPublisher shared.EventPublisher
	metrics        *telemetry.FulfillmentMetrics
}

// NewTrackingService creates a new TrackingService. A non-positive
// staleAfter falls back to shipping.DefaultStaleAfter.
func NewTrackingService(
	parcelRepo trade.ParcelRepository,
	eventRepo shipping.TrackingEventRepository,
	txScope TransactionScope,
	staleAfter time.Duration,
	logger *zap.Logger,
) *TrackingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if staleAfter <= 0 {
		staleAfter = shipping.DefaultStaleAfter
	}
	return &TrackingService{
		parcelRepo: parcelRepo,
		eventRepo:  eventRepo,
		txScope:    txScope,
		staleAfter: staleAfter,
		logger:     logger,
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *TrackingService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the fulfillment metrics collector
func (s *TrackingService) SetMetrics(m *telemetry.FulfillmentMetrics) {
	s.metrics = m
}

func (s *TrackingService) publish(ctx context.Context, p *trade.Parcel) {
	events := p.GetDomainEvents()
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Warn("failed to publish parcel events", zap.Error(err))
	}
	p.ClearDomainEvents()
}

// ApplyTrackingEvents stores and applies events in occurrence order. Each
// event commits on its own; malformed events are counted and skipped.
func (s *TrackingService) ApplyTrackingEvents(ctx context.Context, inputs []TrackingEventInput) (*TrackingResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "apply_events",
		telemetry.WithAttribute("event_count", len(inputs)))
	defer span.End()

	sorted := make([]TrackingEventInput, len(inputs))
	copy(sorted, inputs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].OccurredAt.Before(sorted[j].OccurredAt)
	})

	result := &TrackingResult{}
	for _, in := range sorted {
		ev, err := shipping.NewTrackingEvent(in.EventID, in.TrackingNumber, in.StatusDescription, in.Location, in.OccurredAt)
		if err != nil {
			s.logger.Warn("tracking event rejected",
				zap.String("event_id", in.EventID),
				zap.String("tracking_number", in.TrackingNumber),
				zap.Error(err))
			result.Rejected++
			continue
		}
		parcel, outcome, err := s.applyOne(ctx, ev)
		if err != nil {
			telemetry.RecordError(span, err)
			return result, err
		}
		switch outcome {
		case outcomeDuplicate:
			result.Duplicates++
			continue
		case outcomeUnmatched:
			result.Unmatched++
		case outcomeChanged:
			result.StatusChanges++
			s.publish(ctx, parcel)
		}
		result.Applied++
	}

	s.metrics.RecordTrackingEvents(ctx, int64(result.Applied), int64(result.Duplicates))
	s.logger.Info("tracking events applied",
		zap.Int("applied", result.Applied),
		zap.Int("duplicates", result.Duplicates),
		zap.Int("unmatched", result.Unmatched),
		zap.Int("status_changes", result.StatusChanges))
	telemetry.SetOK(span)
	return result, nil
}

type applyOutcome int

const (
	outcomeStored applyOutcome = iota
	outcomeDuplicate
	outcomeUnmatched
	outcomeChanged
)

func (s *TrackingService) applyOne(ctx context.Context, ev *shipping.TrackingEvent) (*trade.Parcel, applyOutcome, error) {
	var (
		parcel  *trade.Parcel
		outcome applyOutcome
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		found, err := repos.ParcelRepo().FindByTrackingNumber(ctx, ev.TrackingNumber)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if found != nil {
			id := found.ID
			ev.ParcelID = &id
		}
		inserted, err := repos.TrackingEventRepo().CreateIfAbsent(ctx, ev)
		if err != nil {
			return err
		}
		if !inserted {
			outcome = outcomeDuplicate
			return nil
		}
		if found == nil {
			outcome = outcomeUnmatched
			return nil
		}

		// order before parcel, the same lock order packing uses
		order, err := repos.OrderRepo().FindByIDForUpdate(ctx, found.OrderID)
		if err != nil {
			return err
		}
		parcel, err = repos.ParcelRepo().FindByID(ctx, found.ID)
		if err != nil {
			return err
		}
		changed, err := applyToParcel(ctx, repos, order, parcel, ev)
		if err != nil {
			return err
		}
		if changed {
			outcome = outcomeChanged
		}
		return repos.ParcelRepo().Save(ctx, parcel)
	})
	return parcel, outcome, err
}

// applyToParcel moves the parcel by one stored event and books the shipped
// quantities on the order at the first transit scan. The caller holds the
// order lock and saves the parcel.
func applyToParcel(ctx context.Context, repos TransactionalRepositories, order *trade.Order, parcel *trade.Parcel, ev *shipping.TrackingEvent) (bool, error) {
	if parcel.Status.IsFinal() {
		return false, nil
	}
	changed, firstTransit := parcel.ApplyCourierStatus(ev.DerivedStatus, ev.OccurredAt)
	if firstTransit {
		for _, item := range parcel.Items {
			order.RecordShipped(item.OrderItemID, item.Quantity)
		}
		if err := repos.OrderRepo().Save(ctx, order); err != nil {
			return false, err
		}
	}
	return changed, nil
}

// AssignTrackingNumber sets the courier reference of a packed parcel. Events
// and invoice lines that arrived under that number before the assignment
// are linked and applied in the same transaction.
func (s *TrackingService) AssignTrackingNumber(ctx context.Context, parcelID uuid.UUID, trackingNumber string) (*trade.Parcel, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "assign_tracking_number")
	defer span.End()

	trackingNumber = strings.TrimSpace(trackingNumber)
	if trackingNumber == "" {
		return nil, shared.NewDomainError("INVALID_TRACKING_NUMBER", "Tracking number cannot be empty")
	}
	var (
		parcel  *trade.Parcel
		applied int
	)
	err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
		current, err := repos.ParcelRepo().FindByID(ctx, parcelID)
		if err != nil {
			return err
		}
		order, err := repos.OrderRepo().FindByIDForUpdate(ctx, current.OrderID)
		if err != nil {
			return err
		}
		parcel, err = repos.ParcelRepo().FindByID(ctx, parcelID)
		if err != nil {
			return err
		}

		holder, err := repos.ParcelRepo().FindByTrackingNumber(ctx, trackingNumber)
		if err != nil && !errors.Is(err, shared.ErrNotFound) {
			return err
		}
		if holder != nil && holder.ID != parcel.ID {
			return shared.NewDomainError("TRACKING_NUMBER_IN_USE",
				fmt.Sprintf("Tracking number %s belongs to parcel %s", trackingNumber, holder.ID))
		}
		if err := parcel.AssignTrackingNumber(trackingNumber); err != nil {
			return err
		}

		pending, err := repos.TrackingEventRepo().LinkUnmatched(ctx, trackingNumber, parcel.ID)
		if err != nil {
			return err
		}
		for i := range pending {
			if _, err := applyToParcel(ctx, repos, order, parcel, &pending[i]); err != nil {
				return err
			}
		}
		applied = len(pending)

		cost, err := repos.CourierCostRepo().FindByTrackingNumber(ctx, trackingNumber)
		switch {
		case err == nil:
			if cost.LinkParcel(parcel.ID) {
				if err := repos.CourierCostRepo().Save(ctx, cost); err != nil {
					return err
				}
			}
			parcel.RecordShippingCost(cost.TotalCost, cost.LatestWeight)
		case !errors.Is(err, shared.ErrNotFound):
			return err
		}
		return repos.ParcelRepo().Save(ctx, parcel)
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	s.publish(ctx, parcel)

	s.logger.Info("tracking number assigned",
		zap.String("parcel_id", parcel.ID.String()),
		zap.String("tracking_number", trackingNumber),
		zap.Int("replayed_events", applied))
	telemetry.SetOK(span)
	return parcel, nil
}

// FlagStaleParcels moves parcels that have been in transit longer than the
// stale limit to DELIVERY_FAILED. Returns the IDs of the flagged parcels.
func (s *TrackingService) FlagStaleParcels(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "tracking", "flag_stale")
	defer span.End()

	candidates, err := s.parcelRepo.FindInTransitSince(ctx, now.Add(-s.staleAfter))
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var flagged []uuid.UUID
	for _, c := range candidates {
		var parcel *trade.Parcel
		err := s.txScope.Execute(ctx, func(repos TransactionalRepositories) error {
			if _, err := repos.OrderRepo().FindByIDForUpdate(ctx, c.OrderID); err != nil {
				return err
			}
			p, err := repos.ParcelRepo().FindByID(ctx, c.ID)
			if err != nil {
				return err
			}
			if !p.MarkDeliveryFailed(now, s.staleAfter) {
				return nil
			}
			parcel = p
			return repos.ParcelRepo().Save(ctx, p)
		})
		if err != nil {
			telemetry.RecordError(span, err)
			return flagged, err
		}
		if parcel != nil {
			flagged = append(flagged, parcel.ID)
			s.publish(ctx, parcel)
		}
	}

	if len(flagged) > 0 {
		s.logger.Info("stale parcels flagged as delivery failed", zap.Int("count", len(flagged)))
	}
	telemetry.SetOK(span)
	return flagged, nil
}

// History returns the stored events of a tracking number
func (s *TrackingService) History(ctx context.Context, trackingNumber string) ([]shipping.TrackingEvent, error) {
	return s.eventRepo.FindByTrackingNumber(ctx, trackingNumber)
}
