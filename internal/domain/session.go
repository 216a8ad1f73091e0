package domain

import "time"

type SessionState string

const (
	SessionStateActive  SessionState = "active"
	SessionStateExpired SessionState = "expired"
	SessionStateRevoked SessionState = "revoked"
)

// DeviceSession is a time-bounded authorization issued to a machine after a
// successful signature verification. Expiry is lazy: a session past its
// expires_at is treated as expired whether or not a reaper has purged it.
type DeviceSession struct {
	SessionID  string
	MachineID  string
	IssuedAt   time.Time
	ExpiresAt  time.Time
	LastSeenAt *time.Time
	IPAddress  string
	IsRevoked  bool
}

func (s DeviceSession) StateAt(now time.Time) SessionState {
	if s.IsRevoked {
		return SessionStateRevoked
	}
	if !now.Before(s.ExpiresAt) {
		return SessionStateExpired
	}
	return SessionStateActive
}
