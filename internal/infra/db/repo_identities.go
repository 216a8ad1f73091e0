package db

import (
	"context"
	"errors"
	"time"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/usecase"

	"gorm.io/gorm"
)

type IdentityRepository struct {
	db *gorm.DB
}

func NewIdentityRepository(db *gorm.DB) *IdentityRepository {
	return &IdentityRepository{db: db}
}

var _ usecase.IdentityStore = (*IdentityRepository)(nil)

func (r *IdentityRepository) GetIdentity(ctx context.Context, machineID string) (*domain.MachineIdentity, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model MachineIdentityModel
	err := r.db.WithContext(ctx).First(&model, "machine_id = ?", machineID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	identity := identityFromModel(model)
	return &identity, nil
}

func (r *IdentityRepository) GetIdentityByMac(ctx context.Context, macAddress string) (*domain.MachineIdentity, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model MachineIdentityModel
	err := r.db.WithContext(ctx).First(&model, "mac_address = ?", macAddress).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	identity := identityFromModel(model)
	return &identity, nil
}

func (r *IdentityRepository) ListIdentities(ctx context.Context) ([]domain.MachineIdentity, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []MachineIdentityModel
	if err := r.db.WithContext(ctx).Order("machine_id").Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.MachineIdentity, 0, len(models))
	for _, model := range models {
		out = append(out, identityFromModel(model))
	}
	return out, nil
}

func (r *IdentityRepository) GetSecret(ctx context.Context, machineID string) (*domain.DeviceSecret, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model DeviceSecretModel
	err := r.db.WithContext(ctx).First(&model, "machine_id = ?", machineID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &domain.DeviceSecret{
		MachineID: model.MachineID,
		Secret:    model.Secret,
		UpdatedAt: model.UpdatedAt,
	}, nil
}

func (r *IdentityRepository) ProvisionIdentity(ctx context.Context, identity domain.MachineIdentity, secret []byte, rotation domain.KeyRotationRecord) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&MachineIdentityModel{
			MachineID:       identity.MachineID,
			MacAddress:      identity.MacAddress,
			CertFingerprint: identity.CertFingerprint,
			FirmwareVersion: identity.FirmwareVersion,
			Status:          string(identity.Status),
			ProvisionedAt:   identity.ProvisionedAt,
			RevokedAt:       identity.RevokedAt,
		}).Error; err != nil {
			return err
		}
		if err := tx.Create(&DeviceSecretModel{
			MachineID: identity.MachineID,
			Secret:    secret,
			UpdatedAt: identity.ProvisionedAt,
		}).Error; err != nil {
			return err
		}
		return tx.Create(rotationToModel(rotation)).Error
	})
}

func (r *IdentityRepository) RotateSecret(ctx context.Context, params usecase.RotateSecretParams) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]any{
			"cert_fingerprint": params.Rotation.NewKeyFingerprint,
		}
		if params.Reactivate {
			updates["status"] = string(domain.IdentityStatusActive)
			updates["revoked_at"] = nil
		}
		if params.Firmware != "" {
			updates["firmware_version"] = params.Firmware
		}
		// The fingerprint guard is the serialization point: a concurrent
		// rotation that committed first leaves a different fingerprint and
		// this update matches zero rows.
		res := tx.Model(&MachineIdentityModel{}).
			Where("machine_id = ? AND cert_fingerprint = ?", params.MachineID, params.ExpectFingerprint).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&MachineIdentityModel{}).
				Where("machine_id = ?", params.MachineID).
				Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return domain.ErrNotFound
			}
			return domain.ErrConcurrentRotation
		}

		if err := tx.Model(&DeviceSecretModel{}).
			Where("machine_id = ?", params.MachineID).
			Updates(map[string]any{
				"secret":     params.Secret,
				"updated_at": params.Rotation.RotatedAt,
			}).Error; err != nil {
			return err
		}
		if err := tx.Create(rotationToModel(params.Rotation)).Error; err != nil {
			return err
		}
		return tx.Model(&DeviceSessionModel{}).
			Where("machine_id = ? AND is_revoked = ?", params.MachineID, false).
			Update("is_revoked", true).Error
	})
}

func (r *IdentityRepository) RevokeIdentity(ctx context.Context, machineID string, at time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&MachineIdentityModel{}).
			Where("machine_id = ?", machineID).
			Updates(map[string]any{
				"status":     string(domain.IdentityStatusRevoked),
				"revoked_at": at,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrNotFound
		}
		return tx.Model(&DeviceSessionModel{}).
			Where("machine_id = ? AND is_revoked = ?", machineID, false).
			Update("is_revoked", true).Error
	})
}

func identityFromModel(model MachineIdentityModel) domain.MachineIdentity {
	return domain.MachineIdentity{
		MachineID:       model.MachineID,
		MacAddress:      model.MacAddress,
		CertFingerprint: model.CertFingerprint,
		FirmwareVersion: model.FirmwareVersion,
		Status:          domain.IdentityStatus(model.Status),
		ProvisionedAt:   model.ProvisionedAt,
		RevokedAt:       model.RevokedAt,
	}
}

func rotationToModel(rotation domain.KeyRotationRecord) *KeyRotationModel {
	return &KeyRotationModel{
		RotationID:        rotation.RotationID,
		MachineID:         rotation.MachineID,
		OldKeyFingerprint: rotation.OldKeyFingerprint,
		NewKeyFingerprint: rotation.NewKeyFingerprint,
		RotatedBy:         rotation.RotatedBy,
		RotatedAt:         rotation.RotatedAt,
		Reason:            rotation.Reason,
	}
}
