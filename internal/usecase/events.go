package usecase

import (
	"context"
	"time"

	"vendtrustd/internal/domain"

	"github.com/google/uuid"
)

// EventRecorder classifies and stores security anomalies. Severity comes
// from the fixed table in domain, never from the caller.
type EventRecorder struct {
	Store EventStore
	Clock Clock
}

func NewEventRecorder(store EventStore, clock Clock) *EventRecorder {
	return &EventRecorder{Store: store, Clock: clock}
}

func (r *EventRecorder) Record(ctx context.Context, eventType domain.SecurityEventType, machineID, message string) (domain.SecurityEvent, error) {
	severity, ok := domain.SeverityFor(eventType)
	if !ok {
		return domain.SecurityEvent{}, domain.ErrUnknownEventType
	}
	event := domain.SecurityEvent{
		EventID:   uuid.NewString(),
		MachineID: machineID,
		EventType: eventType,
		Severity:  severity,
		Message:   message,
		CreatedAt: r.now(),
	}
	if err := r.Store.Append(ctx, event); err != nil {
		return domain.SecurityEvent{}, err
	}
	return event, nil
}

// Resolve marks an event handled. Resolving an already-resolved event is a
// no-op success so operator retries stay safe.
func (r *EventRecorder) Resolve(ctx context.Context, eventID, actor string) error {
	_, err := r.Store.MarkResolved(ctx, eventID, actor, r.now())
	return err
}

func (r *EventRecorder) List(ctx context.Context, onlyUnresolved bool) ([]domain.SecurityEvent, error) {
	return r.Store.List(ctx, onlyUnresolved)
}

func (r *EventRecorder) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
