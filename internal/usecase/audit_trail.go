package usecase

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"vendtrustd/internal/domain"

	"github.com/google/uuid"
)

// AuditTrail is the fire-and-forget write path for the API audit log.
// Append never blocks and never fails the caller's request: entries go
// through a buffered channel to a single consumer goroutine, which preserves
// per-machine ordering, and persistence failures surface only in logs and
// the drop/error counters. This is deliberately the opposite contract from
// the strict-consistency identity and session writes.
type AuditTrail struct {
	store  AuditStore
	clock  Clock
	logger *slog.Logger

	ch      chan domain.ApiAuditLogEntry
	done    chan struct{}
	once    sync.Once
	dropped atomic.Int64
	failed  atomic.Int64
}

func NewAuditTrail(store AuditStore, bufferSize int, clock Clock, logger *slog.Logger) *AuditTrail {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	if logger == nil {
		logger = slog.Default()
	}
	t := &AuditTrail{
		store:  store,
		clock:  clock,
		logger: logger,
		ch:     make(chan domain.ApiAuditLogEntry, bufferSize),
		done:   make(chan struct{}),
	}
	go t.run()
	return t
}

// Append enqueues one entry. A full buffer drops the entry rather than
// delaying the device request that produced it.
func (t *AuditTrail) Append(entry domain.ApiAuditLogEntry) {
	if entry.RequestID == "" {
		entry.RequestID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = t.now()
	}
	select {
	case t.ch <- entry:
	default:
		t.dropped.Add(1)
		t.logger.Warn("audit trail buffer full, entry dropped",
			"machine_id", entry.MachineID, "endpoint", entry.Endpoint)
	}
}

func (t *AuditTrail) run() {
	defer close(t.done)
	for entry := range t.ch {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := t.store.Append(ctx, entry); err != nil {
			t.failed.Add(1)
			t.logger.Error("audit trail write failed",
				"machine_id", entry.MachineID, "endpoint", entry.Endpoint, "error", err)
		}
		cancel()
	}
}

// Close stops intake and flushes buffered entries.
func (t *AuditTrail) Close() {
	t.once.Do(func() { close(t.ch) })
	<-t.done
}

func (t *AuditTrail) Dropped() int64 { return t.dropped.Load() }
func (t *AuditTrail) Failed() int64  { return t.failed.Load() }

func (t *AuditTrail) List(ctx context.Context, machineID string, limit int) ([]domain.ApiAuditLogEntry, error) {
	return t.store.List(ctx, machineID, limit)
}

func (t *AuditTrail) now() time.Time {
	if t.clock != nil {
		return t.clock()
	}
	return time.Now().UTC()
}
