package domain

import "errors"

var (
	ErrInvalidMac         = errors.New("invalid mac address")
	ErrAlreadyProvisioned = errors.New("machine already provisioned")
	ErrNotFound           = errors.New("not found")
	ErrUnknownMachine     = errors.New("unknown machine")
	ErrMacMismatch        = errors.New("mac address mismatch")
	ErrBadSignature       = errors.New("bad signature")
	ErrStaleTimestamp     = errors.New("stale timestamp")
	ErrReplayDetected     = errors.New("replay detected")
	ErrIdentityRevoked    = errors.New("identity revoked")
	ErrIdentityNotActive  = errors.New("identity not active")
	ErrConcurrentRotation = errors.New("concurrent rotation")
	ErrSessionExpired     = errors.New("session expired")
	ErrSessionRevoked     = errors.New("session revoked")
	ErrAlreadyResolved    = errors.New("event already resolved")
	ErrUnknownEventType   = errors.New("unknown security event type")
)
