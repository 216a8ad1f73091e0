package db

import (
	"context"
	"errors"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/usecase"

	"gorm.io/gorm"
)

// RotationRepository reads the rotation journal. Writes happen inside the
// IdentityRepository transactions so the chain stays consistent with the
// identity's current fingerprint.
type RotationRepository struct {
	db *gorm.DB
}

func NewRotationRepository(db *gorm.DB) *RotationRepository {
	return &RotationRepository{db: db}
}

var _ usecase.RotationStore = (*RotationRepository)(nil)

func (r *RotationRepository) List(ctx context.Context, machineID string) ([]domain.KeyRotationRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Order("rotated_at ASC")
	if machineID != "" {
		query = query.Where("machine_id = ?", machineID)
	}
	var models []KeyRotationModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.KeyRotationRecord, 0, len(models))
	for _, model := range models {
		out = append(out, rotationFromModel(model))
	}
	return out, nil
}

func (r *RotationRepository) LastForMachine(ctx context.Context, machineID string) (*domain.KeyRotationRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model KeyRotationModel
	err := r.db.WithContext(ctx).
		Where("machine_id = ?", machineID).
		Order("rotated_at DESC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	record := rotationFromModel(model)
	return &record, nil
}

func rotationFromModel(model KeyRotationModel) domain.KeyRotationRecord {
	return domain.KeyRotationRecord{
		RotationID:        model.RotationID,
		MachineID:         model.MachineID,
		OldKeyFingerprint: model.OldKeyFingerprint,
		NewKeyFingerprint: model.NewKeyFingerprint,
		RotatedBy:         model.RotatedBy,
		RotatedAt:         model.RotatedAt,
		Reason:            model.Reason,
	}
}
