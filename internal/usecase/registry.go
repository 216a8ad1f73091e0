package usecase

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"vendtrustd/internal/domain"

	"github.com/google/uuid"
)

// SecretSuite is the cryptographic scheme for device secrets. Verification
// must be constant-time.
type SecretSuite interface {
	GenerateSecret() ([]byte, error)
	Fingerprint(secret []byte) string
	Verify(secret, payload []byte, signature string) error
}

// ProvisionResult carries the identity plus, on a fresh or re-activated
// provisioning only, the hex-encoded device secret. The secret is returned
// exactly once and never stored in a retrievable form elsewhere.
type ProvisionResult struct {
	Identity domain.MachineIdentity
	Secret   string
}

// Registry is the authoritative record of which physical machines may
// authenticate.
type Registry struct {
	Identities IdentityStore
	Rotations  RotationStore
	Keys       *KeyStore
	Events     *EventRecorder
	Suite      SecretSuite
	Locks      *KeyMutex
	Clock      Clock
}

func (r *Registry) Provision(ctx context.Context, machineID, macAddress, proposedFingerprint, firmware string) (*ProvisionResult, error) {
	if machineID == "" {
		return nil, errors.New("machine_id is required")
	}
	normalized, err := domain.NormalizeMac(macAddress)
	if err != nil {
		return nil, err
	}

	unlock := r.Locks.Lock(machineID)
	defer unlock()

	identity, err := r.Identities.GetIdentity(ctx, machineID)
	if err != nil && !errors.Is(err, domain.ErrNotFound) {
		return nil, err
	}
	if identity == nil {
		// MAC addresses are unique across machines; a MAC bound to another
		// identity cannot be claimed by a new machine_id.
		holder, err := r.Identities.GetIdentityByMac(ctx, normalized)
		if err != nil && !errors.Is(err, domain.ErrNotFound) {
			return nil, err
		}
		if holder != nil {
			return nil, domain.ErrAlreadyProvisioned
		}
		return r.provisionFresh(ctx, machineID, normalized, firmware)
	}

	if identity.MacAddress != normalized {
		return nil, domain.ErrAlreadyProvisioned
	}

	switch identity.Status {
	case domain.IdentityStatusActive:
		// Re-registration after reboot: same MAC, same credential.
		if proposedFingerprint != "" && proposedFingerprint == identity.CertFingerprint {
			return &ProvisionResult{Identity: *identity}, nil
		}
		return nil, domain.ErrAlreadyProvisioned
	case domain.IdentityStatusRevoked:
		return r.reprovision(ctx, identity, firmware)
	default:
		return nil, domain.ErrAlreadyProvisioned
	}
}

func (r *Registry) provisionFresh(ctx context.Context, machineID, mac, firmware string) (*ProvisionResult, error) {
	secret, err := r.Suite.GenerateSecret()
	if err != nil {
		return nil, err
	}
	fingerprint := r.Suite.Fingerprint(secret)
	now := r.now()

	identity := domain.MachineIdentity{
		MachineID:       machineID,
		MacAddress:      mac,
		CertFingerprint: fingerprint,
		FirmwareVersion: firmware,
		Status:          domain.IdentityStatusActive,
		ProvisionedAt:   now,
	}
	rotation := domain.KeyRotationRecord{
		RotationID:        uuid.NewString(),
		MachineID:         machineID,
		NewKeyFingerprint: fingerprint,
		RotatedAt:         now,
		Reason:            domain.RotationReasonInitial,
	}
	if err := r.Identities.ProvisionIdentity(ctx, identity, secret, rotation); err != nil {
		return nil, err
	}
	r.Keys.Invalidate(machineID)
	return &ProvisionResult{Identity: identity, Secret: hex.EncodeToString(secret)}, nil
}

// reprovision re-activates a revoked identity with a fresh secret. The MAC
// already matched; a revoked machine with new hardware must get a new
// machine_id instead.
func (r *Registry) reprovision(ctx context.Context, identity *domain.MachineIdentity, firmware string) (*ProvisionResult, error) {
	secret, err := r.Suite.GenerateSecret()
	if err != nil {
		return nil, err
	}
	fingerprint := r.Suite.Fingerprint(secret)
	oldFingerprint := identity.CertFingerprint

	rotation := domain.KeyRotationRecord{
		RotationID:        uuid.NewString(),
		MachineID:         identity.MachineID,
		OldKeyFingerprint: &oldFingerprint,
		NewKeyFingerprint: fingerprint,
		RotatedAt:         r.nextRotationTime(ctx, identity.MachineID),
		Reason:            domain.RotationReasonReprovisioned,
	}
	err = r.Identities.RotateSecret(ctx, RotateSecretParams{
		MachineID:         identity.MachineID,
		ExpectFingerprint: oldFingerprint,
		Secret:            secret,
		Rotation:          rotation,
		Reactivate:        true,
		Firmware:          firmware,
	})
	if err != nil {
		return nil, err
	}
	r.Keys.Invalidate(identity.MachineID)
	r.recordEvent(ctx, domain.EventIdentityReprovisioned, identity.MachineID, "revoked identity re-provisioned with fresh secret")

	updated, err := r.Identities.GetIdentity(ctx, identity.MachineID)
	if err != nil {
		return nil, err
	}
	return &ProvisionResult{Identity: *updated, Secret: hex.EncodeToString(secret)}, nil
}

// Revoke disables an identity and cascades to its active sessions. Revoking
// an already-revoked identity is a no-op success.
func (r *Registry) Revoke(ctx context.Context, machineID, actor string) error {
	unlock := r.Locks.Lock(machineID)
	defer unlock()

	identity, err := r.Identities.GetIdentity(ctx, machineID)
	if err != nil {
		return err
	}
	if identity.Status == domain.IdentityStatusRevoked {
		return nil
	}
	if err := r.Identities.RevokeIdentity(ctx, machineID, r.now()); err != nil {
		return err
	}
	r.Keys.Invalidate(machineID)
	r.recordEvent(ctx, domain.EventIdentityRevoked, machineID, fmt.Sprintf("identity revoked by %s", actor))
	return nil
}

// Verify authenticates a signed device request. Every distinct failure kind
// records its own security event before the error is returned; the HTTP
// layer maps them all to a generic 403.
func (r *Registry) Verify(ctx context.Context, machineID, macAddress, signature string, payload []byte) (*domain.MachineIdentity, error) {
	identity, err := r.Identities.GetIdentity(ctx, machineID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.recordEvent(ctx, domain.EventUnknownMachine, "", fmt.Sprintf("request from unknown machine %q", machineID))
			return nil, domain.ErrUnknownMachine
		}
		return nil, err
	}
	if identity.Status == domain.IdentityStatusRevoked {
		r.recordEvent(ctx, domain.EventRevokedMachineAttempt, machineID, "revoked machine attempted authentication")
		return nil, domain.ErrIdentityRevoked
	}
	if identity.Status != domain.IdentityStatusActive {
		return nil, domain.ErrIdentityNotActive
	}

	normalized, err := domain.NormalizeMac(macAddress)
	if err != nil || normalized != identity.MacAddress {
		r.recordEvent(ctx, domain.EventMacMismatch, machineID, fmt.Sprintf("mac address %q does not match provisioned record", macAddress))
		return nil, domain.ErrMacMismatch
	}

	secret, err := r.Keys.SecretFor(ctx, machineID)
	if err != nil {
		return nil, err
	}
	if err := r.Suite.Verify(secret, payload, signature); err != nil {
		r.recordEvent(ctx, domain.EventBadSignature, machineID, "request signature did not verify against current secret")
		return nil, domain.ErrBadSignature
	}
	return identity, nil
}

func (r *Registry) Get(ctx context.Context, machineID string) (*domain.MachineIdentity, error) {
	return r.Identities.GetIdentity(ctx, machineID)
}

func (r *Registry) List(ctx context.Context) ([]domain.MachineIdentity, error) {
	return r.Identities.ListIdentities(ctx)
}

// recordEvent is a side effect of the primary operation; a failing event
// store must not mask the primary outcome.
func (r *Registry) recordEvent(ctx context.Context, eventType domain.SecurityEventType, machineID, message string) {
	if r.Events == nil {
		return
	}
	_, _ = r.Events.Record(ctx, eventType, machineID, message)
}

// nextRotationTime keeps rotated_at strictly increasing per machine even
// under clock skew. Callers hold the per-machine lock.
func (r *Registry) nextRotationTime(ctx context.Context, machineID string) time.Time {
	now := r.now()
	last, err := r.Rotations.LastForMachine(ctx, machineID)
	if err == nil && last != nil && !now.After(last.RotatedAt) {
		now = last.RotatedAt.Add(time.Nanosecond)
	}
	return now
}

func (r *Registry) now() time.Time {
	if r.Clock != nil {
		return r.Clock()
	}
	return time.Now().UTC()
}
