package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"vendtrustd/internal/domain"

	"github.com/google/uuid"
)

// Rotator replaces a machine's secret. Rotation is the only path by which a
// secret changes after provisioning: the fingerprint swap, the journal
// record and the session cascade land in one transaction.
type Rotator struct {
	Identities IdentityStore
	Rotations  RotationStore
	Keys       *KeyStore
	Events     *EventRecorder
	Suite      SecretSuite
	Locks      *KeyMutex
	Clock      Clock
}

// Rotate generates a new secret and returns its fingerprint. An empty actor
// means the machine rotated its own key.
func (r *Rotator) Rotate(ctx context.Context, machineID, actor, reason string) (string, error) {
	unlock := r.Locks.Lock(machineID)
	defer unlock()

	identity, err := r.Identities.GetIdentity(ctx, machineID)
	if err != nil {
		return "", err
	}
	if identity.Status == domain.IdentityStatusRevoked {
		return "", domain.ErrIdentityRevoked
	}

	secret, err := r.Suite.GenerateSecret()
	if err != nil {
		return "", err
	}
	fingerprint := r.Suite.Fingerprint(secret)
	oldFingerprint := identity.CertFingerprint

	rotation := domain.KeyRotationRecord{
		RotationID:        uuid.NewString(),
		MachineID:         machineID,
		OldKeyFingerprint: &oldFingerprint,
		NewKeyFingerprint: fingerprint,
		RotatedAt:         r.nextRotationTime(ctx, machineID),
		Reason:            reason,
	}
	if actor != "" {
		rotation.RotatedBy = &actor
	}

	err = r.Identities.RotateSecret(ctx, RotateSecretParams{
		MachineID:         machineID,
		ExpectFingerprint: oldFingerprint,
		Secret:            secret,
		Rotation:          rotation,
	})
	if err != nil {
		return "", err
	}
	r.Keys.Invalidate(machineID)
	if r.Events != nil {
		_, _ = r.Events.Record(ctx, domain.EventKeyRotated, machineID, fmt.Sprintf("key rotated (%s)", reason))
	}
	return fingerprint, nil
}

func (r *Rotator) List(ctx context.Context, machineID string) ([]domain.KeyRotationRecord, error) {
	return r.Rotations.List(ctx, machineID)
}

func (r *Rotator) nextRotationTime(ctx context.Context, machineID string) time.Time {
	now := r.now()
	last, err := r.Rotations.LastForMachine(ctx, machineID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return now
	}
	if last != nil && !now.After(last.RotatedAt) {
		now = last.RotatedAt.Add(time.Nanosecond)
	}
	return now
}

func (r *Rotator) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
