package memstore

import (
	"context"
	"sync"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/usecase"
)

// AuditLog is an in-memory append-only audit store.
type AuditLog struct {
	mu      sync.RWMutex
	entries []domain.ApiAuditLogEntry
}

func NewAuditLog() *AuditLog {
	return &AuditLog{}
}

var _ usecase.AuditStore = (*AuditLog)(nil)

func (l *AuditLog) Append(_ context.Context, entry domain.ApiAuditLogEntry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
	return nil
}

func (l *AuditLog) List(_ context.Context, machineID string, limit int) ([]domain.ApiAuditLogEntry, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]domain.ApiAuditLogEntry, 0, len(l.entries))
	for i := len(l.entries) - 1; i >= 0; i-- {
		if machineID != "" && l.entries[i].MachineID != machineID {
			continue
		}
		out = append(out, l.entries[i])
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}
