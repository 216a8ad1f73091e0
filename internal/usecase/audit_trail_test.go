package usecase_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/infra/memstore"
	"vendtrustd/internal/usecase"
)

// blockingAuditStore holds every write until released, to fill the buffer.
type blockingAuditStore struct {
	mu      sync.Mutex
	release chan struct{}
	written []domain.ApiAuditLogEntry
	fail    bool
}

func (s *blockingAuditStore) Append(_ context.Context, entry domain.ApiAuditLogEntry) error {
	<-s.release
	if s.fail {
		return errors.New("disk full")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.written = append(s.written, entry)
	return nil
}

func (s *blockingAuditStore) List(_ context.Context, _ string, _ int) ([]domain.ApiAuditLogEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.ApiAuditLogEntry(nil), s.written...), nil
}

func TestAuditTrailFlushesOnClose(t *testing.T) {
	store := memstore.NewAuditLog()
	trail := usecase.NewAuditTrail(store, 16, nil, nil)

	for i := 0; i < 5; i++ {
		trail.Append(domain.ApiAuditLogEntry{MachineID: testMachine, Endpoint: "/api/v1/devices/heartbeat"})
	}
	trail.Close()

	entries, err := store.List(context.Background(), "", 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(entries) != 5 {
		t.Fatalf("entries = %d, want 5", len(entries))
	}
	for _, entry := range entries {
		if entry.RequestID == "" || entry.CreatedAt.IsZero() {
			t.Fatal("append must fill request_id and created_at")
		}
	}
	if trail.Dropped() != 0 {
		t.Fatalf("dropped = %d, want 0", trail.Dropped())
	}
}

func TestAuditTrailDropsWhenFull(t *testing.T) {
	store := &blockingAuditStore{release: make(chan struct{})}
	trail := usecase.NewAuditTrail(store, 2, nil, nil)

	// One entry occupies the consumer, two fill the buffer, the rest drop.
	for i := 0; i < 10; i++ {
		trail.Append(domain.ApiAuditLogEntry{MachineID: testMachine})
	}
	if trail.Dropped() == 0 {
		t.Fatal("a full buffer must drop entries instead of blocking")
	}
	close(store.release)
	trail.Close()
}

func TestAuditTrailCountsWriteFailures(t *testing.T) {
	store := &blockingAuditStore{release: make(chan struct{}), fail: true}
	close(store.release)
	trail := usecase.NewAuditTrail(store, 8, nil, nil)

	trail.Append(domain.ApiAuditLogEntry{MachineID: testMachine})
	trail.Close()

	if trail.Failed() != 1 {
		t.Fatalf("failed = %d, want 1", trail.Failed())
	}
}
