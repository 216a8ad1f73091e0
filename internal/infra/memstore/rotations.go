package memstore

import (
	"context"

	"vendtrustd/internal/domain"
)

// RotationView exposes the rotation journal of a Store.
type RotationView struct {
	store *Store
}

func (s *Store) Rotations() *RotationView {
	return &RotationView{store: s}
}

func (v *RotationView) List(_ context.Context, machineID string) ([]domain.KeyRotationRecord, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	out := make([]domain.KeyRotationRecord, 0, len(v.store.rotations))
	for _, record := range v.store.rotations {
		if machineID != "" && record.MachineID != machineID {
			continue
		}
		out = append(out, record)
	}
	return out, nil
}

func (v *RotationView) LastForMachine(_ context.Context, machineID string) (*domain.KeyRotationRecord, error) {
	v.store.mu.RLock()
	defer v.store.mu.RUnlock()
	for i := len(v.store.rotations) - 1; i >= 0; i-- {
		if v.store.rotations[i].MachineID == machineID {
			copied := v.store.rotations[i]
			return &copied, nil
		}
	}
	return nil, domain.ErrNotFound
}
