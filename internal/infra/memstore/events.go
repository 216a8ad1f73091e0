package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/usecase"
)

// EventLog is an in-memory security event store.
type EventLog struct {
	mu     sync.RWMutex
	events map[string]domain.SecurityEvent
	order  []string
}

func NewEventLog() *EventLog {
	return &EventLog{events: make(map[string]domain.SecurityEvent)}
}

var _ usecase.EventStore = (*EventLog)(nil)

func (l *EventLog) Append(_ context.Context, event domain.SecurityEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events[event.EventID] = event
	l.order = append(l.order, event.EventID)
	return nil
}

func (l *EventLog) Get(_ context.Context, eventID string) (*domain.SecurityEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	event, ok := l.events[eventID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := event
	return &copied, nil
}

func (l *EventLog) List(_ context.Context, onlyUnresolved bool) ([]domain.SecurityEvent, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.SecurityEvent, 0, len(l.order))
	for _, id := range l.order {
		event := l.events[id]
		if onlyUnresolved && event.IsResolved {
			continue
		}
		out = append(out, event)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (l *EventLog) MarkResolved(_ context.Context, eventID, actor string, at time.Time) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	event, ok := l.events[eventID]
	if !ok {
		return false, domain.ErrNotFound
	}
	if event.IsResolved {
		return false, nil
	}
	event.IsResolved = true
	event.ResolvedAt = &at
	event.ResolvedBy = &actor
	l.events[eventID] = event
	return true, nil
}
