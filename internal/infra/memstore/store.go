// Package memstore backs the trust stores with in-process maps. It serves
// unit tests and single-node development; production deployments use the
// Postgres repositories in infra/db.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/usecase"
)

// Store holds identities, secrets, rotation records and sessions under one
// mutex so the multi-row mutations (rotation, revocation cascade) are atomic
// exactly like their transactional counterparts in infra/db.
type Store struct {
	mu         sync.RWMutex
	identities map[string]domain.MachineIdentity
	secrets    map[string]domain.DeviceSecret
	rotations  []domain.KeyRotationRecord
	sessions   map[string]domain.DeviceSession
}

func New() *Store {
	return &Store{
		identities: make(map[string]domain.MachineIdentity),
		secrets:    make(map[string]domain.DeviceSecret),
		sessions:   make(map[string]domain.DeviceSession),
	}
}

var (
	_ usecase.IdentityStore = (*Store)(nil)
	_ usecase.SessionStore  = (*SessionView)(nil)
	_ usecase.RotationStore = (*RotationView)(nil)
)

func (s *Store) GetIdentity(_ context.Context, machineID string) (*domain.MachineIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	identity, ok := s.identities[machineID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := identity
	return &copied, nil
}

func (s *Store) GetIdentityByMac(_ context.Context, macAddress string) (*domain.MachineIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, identity := range s.identities {
		if identity.MacAddress == macAddress {
			copied := identity
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListIdentities(_ context.Context) ([]domain.MachineIdentity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.MachineIdentity, 0, len(s.identities))
	for _, identity := range s.identities {
		out = append(out, identity)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MachineID < out[j].MachineID })
	return out, nil
}

func (s *Store) GetSecret(_ context.Context, machineID string) (*domain.DeviceSecret, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	secret, ok := s.secrets[machineID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	copied := secret
	copied.Secret = append([]byte(nil), secret.Secret...)
	return &copied, nil
}

func (s *Store) ProvisionIdentity(_ context.Context, identity domain.MachineIdentity, secret []byte, rotation domain.KeyRotationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.identities[identity.MachineID]; exists {
		return domain.ErrAlreadyProvisioned
	}
	// mac_address carries a unique index in the db counterpart.
	for _, other := range s.identities {
		if other.MacAddress == identity.MacAddress {
			return domain.ErrAlreadyProvisioned
		}
	}
	s.identities[identity.MachineID] = identity
	s.secrets[identity.MachineID] = domain.DeviceSecret{
		MachineID: identity.MachineID,
		Secret:    append([]byte(nil), secret...),
		UpdatedAt: identity.ProvisionedAt,
	}
	s.rotations = append(s.rotations, rotation)
	return nil
}

func (s *Store) RotateSecret(_ context.Context, params usecase.RotateSecretParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[params.MachineID]
	if !ok {
		return domain.ErrNotFound
	}
	if identity.CertFingerprint != params.ExpectFingerprint {
		return domain.ErrConcurrentRotation
	}

	identity.CertFingerprint = params.Rotation.NewKeyFingerprint
	if params.Reactivate {
		identity.Status = domain.IdentityStatusActive
		identity.RevokedAt = nil
	}
	if params.Firmware != "" {
		identity.FirmwareVersion = params.Firmware
	}
	s.identities[params.MachineID] = identity
	s.secrets[params.MachineID] = domain.DeviceSecret{
		MachineID: params.MachineID,
		Secret:    append([]byte(nil), params.Secret...),
		UpdatedAt: params.Rotation.RotatedAt,
	}
	s.rotations = append(s.rotations, params.Rotation)
	s.revokeSessionsLocked(params.MachineID)
	return nil
}

func (s *Store) RevokeIdentity(_ context.Context, machineID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	identity, ok := s.identities[machineID]
	if !ok {
		return domain.ErrNotFound
	}
	if identity.Status == domain.IdentityStatusRevoked {
		return nil
	}
	identity.Status = domain.IdentityStatusRevoked
	identity.RevokedAt = &at
	s.identities[machineID] = identity
	s.revokeSessionsLocked(machineID)
	return nil
}

func (s *Store) revokeSessionsLocked(machineID string) int64 {
	var revoked int64
	for id, session := range s.sessions {
		if session.MachineID == machineID && !session.IsRevoked {
			session.IsRevoked = true
			s.sessions[id] = session
			revoked++
		}
	}
	return revoked
}
