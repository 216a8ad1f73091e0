package usecase

import (
	"context"
	"time"

	"vendtrustd/internal/domain"
)

// Clock abstracts time for deterministic tests.
type Clock func() time.Time

// RotateSecretParams describes one atomic secret replacement. The store must
// apply the fingerprint swap, the rotation record, the secret update and the
// session cascade in a single transaction, and fail the whole operation with
// domain.ErrConcurrentRotation when the stored fingerprint no longer matches
// ExpectFingerprint.
type RotateSecretParams struct {
	MachineID         string
	ExpectFingerprint string
	Secret            []byte
	Rotation          domain.KeyRotationRecord
	// Reactivate flips a revoked identity back to active (re-provisioning).
	Reactivate bool
	// Firmware, when non-empty, updates the identity's firmware version in
	// the same transaction.
	Firmware string
}

type IdentityStore interface {
	GetIdentity(ctx context.Context, machineID string) (*domain.MachineIdentity, error)
	// GetIdentityByMac looks up the identity bound to a normalized MAC.
	// MAC addresses are unique across machines.
	GetIdentityByMac(ctx context.Context, macAddress string) (*domain.MachineIdentity, error)
	ListIdentities(ctx context.Context) ([]domain.MachineIdentity, error)
	GetSecret(ctx context.Context, machineID string) (*domain.DeviceSecret, error)
	// ProvisionIdentity creates the identity, its secret and the initial
	// rotation record in one transaction.
	ProvisionIdentity(ctx context.Context, identity domain.MachineIdentity, secret []byte, rotation domain.KeyRotationRecord) error
	RotateSecret(ctx context.Context, params RotateSecretParams) error
	// RevokeIdentity marks the identity revoked and revokes its active
	// sessions in one transaction. Idempotent.
	RevokeIdentity(ctx context.Context, machineID string, at time.Time) error
}

type SessionStore interface {
	Create(ctx context.Context, session domain.DeviceSession) error
	Get(ctx context.Context, sessionID string) (*domain.DeviceSession, error)
	// List returns sessions newest first; machineID empty lists all machines.
	List(ctx context.Context, machineID string) ([]domain.DeviceSession, error)
	// MarkRevoked is idempotent; revoking a revoked session is a no-op.
	MarkRevoked(ctx context.Context, sessionID string) error
	RevokeAllForMachine(ctx context.Context, machineID string) (int64, error)
	Touch(ctx context.Context, sessionID string, lastSeen time.Time, newExpiry *time.Time) error
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type RotationStore interface {
	// List returns rotation records oldest first; machineID empty lists all.
	List(ctx context.Context, machineID string) ([]domain.KeyRotationRecord, error)
	LastForMachine(ctx context.Context, machineID string) (*domain.KeyRotationRecord, error)
}

type EventStore interface {
	Append(ctx context.Context, event domain.SecurityEvent) error
	Get(ctx context.Context, eventID string) (*domain.SecurityEvent, error)
	// List returns events newest first.
	List(ctx context.Context, onlyUnresolved bool) ([]domain.SecurityEvent, error)
	// MarkResolved returns false when the event was already resolved.
	MarkResolved(ctx context.Context, eventID, actor string, at time.Time) (bool, error)
}

type AuditStore interface {
	Append(ctx context.Context, entry domain.ApiAuditLogEntry) error
	List(ctx context.Context, machineID string, limit int) ([]domain.ApiAuditLogEntry, error)
}
