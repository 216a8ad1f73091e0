package memstore

import (
	"context"
	"sort"
	"time"

	"vendtrustd/internal/domain"
)

// SessionView exposes the session table of a Store.
type SessionView struct {
	store *Store
}

func (s *Store) Sessions() *SessionView {
	return &SessionView{store: s}
}

func (v *SessionView) Create(_ context.Context, session domain.DeviceSession) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	v.store.sessions[session.SessionID] = session
	return nil
}

func (v *SessionView) Get(_ context.Context, sessionID string) (*domain.DeviceSession, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	session, ok := v.store.sessions[sessionID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := session
	return &copied, nil
}

func (v *SessionView) List(_ context.Context, machineID string) ([]domain.DeviceSession, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	out := make([]domain.DeviceSession, 0, len(v.store.sessions))
	for _, session := range v.store.sessions {
		if machineID != "" && session.MachineID != machineID {
			continue
		}
		out = append(out, session)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].IssuedAt.After(out[j].IssuedAt) })
	return out, nil
}

func (v *SessionView) MarkRevoked(_ context.Context, sessionID string) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	session, ok := v.store.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	session.IsRevoked = true
	v.store.sessions[sessionID] = session
	return nil
}

func (v *SessionView) RevokeAllForMachine(_ context.Context, machineID string) (int64, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	return v.store.revokeSessionsLocked(machineID), nil
}

func (v *SessionView) Touch(_ context.Context, sessionID string, lastSeen time.Time, newExpiry *time.Time) error {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	session, ok := v.store.sessions[sessionID]
	if !ok {
		return domain.ErrNotFound
	}
	seen := lastSeen
	session.LastSeenAt = &seen
	if newExpiry != nil {
		session.ExpiresAt = *newExpiry
	}
	v.store.sessions[sessionID] = session
	return nil
}

func (v *SessionView) DeleteExpiredBefore(_ context.Context, cutoff time.Time) (int64, error) {
	v.store.mu.Lock()
	defer v.store.mu.Unlock()
	var purged int64
	for id, session := range v.store.sessions {
		if session.ExpiresAt.Before(cutoff) {
			delete(v.store.sessions, id)
			purged++
		}
	}
	return purged, nil
}
