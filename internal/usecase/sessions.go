package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"vendtrustd/internal/domain"

	"github.com/google/uuid"
)

// SessionManager issues, validates and revokes device sessions.
//
// Two policies are configuration-owned and applied uniformly:
//   - SingleActive: issuing a session revokes the machine's prior active
//     sessions, enforcing at most one live session per machine.
//   - Sliding: a valid heartbeat extends expires_at to now+TTL; otherwise
//     the lifetime is fixed at issuance.
type SessionManager struct {
	Store        SessionStore
	Identities   IdentityStore
	Events       *EventRecorder
	Clock        Clock
	TTL          time.Duration
	Sliding      bool
	SingleActive bool
	Logger       *slog.Logger
}

func (m *SessionManager) Issue(ctx context.Context, machineID, ipAddress string, ttl time.Duration) (*domain.DeviceSession, error) {
	identity, err := m.Identities.GetIdentity(ctx, machineID)
	if err != nil {
		return nil, err
	}
	if identity.Status != domain.IdentityStatusActive {
		return nil, domain.ErrIdentityNotActive
	}
	if ttl <= 0 {
		ttl = m.TTL
	}

	if m.SingleActive {
		if _, err := m.Store.RevokeAllForMachine(ctx, machineID); err != nil {
			return nil, err
		}
	}

	now := m.now()
	session := domain.DeviceSession{
		SessionID: uuid.NewString(),
		MachineID: machineID,
		IssuedAt:  now,
		ExpiresAt: now.Add(ttl),
		IPAddress: ipAddress,
	}
	if err := m.Store.Create(ctx, session); err != nil {
		return nil, err
	}
	return &session, nil
}

// Validate checks a session without mutating it. Expiry is evaluated lazily
// against the clock; no sweep has to run for an expired session to fail.
func (m *SessionManager) Validate(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
	session, err := m.Store.Get(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	switch session.StateAt(m.now()) {
	case domain.SessionStateRevoked:
		return nil, domain.ErrSessionRevoked
	case domain.SessionStateExpired:
		return nil, domain.ErrSessionExpired
	}
	return session, nil
}

// Heartbeat validates the session and records the contact. Under the
// sliding policy the expiry moves to now+TTL.
func (m *SessionManager) Heartbeat(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
	session, err := m.Validate(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	now := m.now()
	var newExpiry *time.Time
	if m.Sliding {
		extended := now.Add(m.TTL)
		newExpiry = &extended
	}
	if err := m.Store.Touch(ctx, sessionID, now, newExpiry); err != nil {
		return nil, err
	}
	session.LastSeenAt = &now
	if newExpiry != nil {
		session.ExpiresAt = *newExpiry
	}
	return session, nil
}

// Revoke is idempotent: revoking a revoked session is a no-op success.
func (m *SessionManager) Revoke(ctx context.Context, sessionID, actor string) error {
	session, err := m.Store.Get(ctx, sessionID)
	if err != nil {
		return err
	}
	if session.IsRevoked {
		return nil
	}
	if err := m.Store.MarkRevoked(ctx, sessionID); err != nil {
		return err
	}
	if m.Events != nil {
		_, _ = m.Events.Record(ctx, domain.EventSessionRevoked, session.MachineID, fmt.Sprintf("session %s revoked by %s", sessionID, actor))
	}
	return nil
}

func (m *SessionManager) RevokeAllForMachine(ctx context.Context, machineID string) (int64, error) {
	return m.Store.RevokeAllForMachine(ctx, machineID)
}

func (m *SessionManager) List(ctx context.Context, machineID string) ([]domain.DeviceSession, error) {
	return m.Store.List(ctx, machineID)
}

// Reap purges sessions expired for longer than retain. Expiry itself is
// lazy; the reaper is storage hygiene only.
func (m *SessionManager) Reap(ctx context.Context, retain time.Duration) (int64, error) {
	return m.Store.DeleteExpiredBefore(ctx, m.now().Add(-retain))
}

// RunReaper runs Reap on an interval until ctx is cancelled.
func (m *SessionManager) RunReaper(ctx context.Context, interval, retain time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if purged, err := m.Reap(ctx, retain); err != nil {
				m.logger().Warn("session reap failed", "error", err)
			} else if purged > 0 {
				m.logger().Debug("purged expired sessions", "count", purged)
			}
		}
	}
}

func (m *SessionManager) logger() *slog.Logger {
	if m.Logger != nil {
		return m.Logger
	}
	return slog.Default()
}

func (m *SessionManager) now() time.Time {
	if m.Clock != nil {
		return m.Clock()
	}
	return time.Now().UTC()
}
