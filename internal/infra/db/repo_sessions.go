package db

import (
	"context"
	"errors"
	"time"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/usecase"

	"gorm.io/gorm"
)

type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

var _ usecase.SessionStore = (*SessionRepository)(nil)

func (r *SessionRepository) Create(ctx context.Context, session domain.DeviceSession) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Create(&DeviceSessionModel{
		SessionID:  session.SessionID,
		MachineID:  session.MachineID,
		IssuedAt:   session.IssuedAt,
		ExpiresAt:  session.ExpiresAt,
		LastSeenAt: session.LastSeenAt,
		IPAddress:  session.IPAddress,
		IsRevoked:  session.IsRevoked,
	}).Error
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*domain.DeviceSession, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model DeviceSessionModel
	err := r.db.WithContext(ctx).First(&model, "session_id = ?", sessionID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	session := sessionFromModel(model)
	return &session, nil
}

func (r *SessionRepository) List(ctx context.Context, machineID string) ([]domain.DeviceSession, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Order("issued_at DESC")
	if machineID != "" {
		query = query.Where("machine_id = ?", machineID)
	}
	var models []DeviceSessionModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.DeviceSession, 0, len(models))
	for _, model := range models {
		out = append(out, sessionFromModel(model))
	}
	return out, nil
}

func (r *SessionRepository) MarkRevoked(ctx context.Context, sessionID string) error {
	if r.db == nil {
		return errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&DeviceSessionModel{}).
		Where("session_id = ?", sessionID).
		Update("is_revoked", true)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) RevokeAllForMachine(ctx context.Context, machineID string) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&DeviceSessionModel{}).
		Where("machine_id = ? AND is_revoked = ?", machineID, false).
		Update("is_revoked", true)
	return res.RowsAffected, res.Error
}

func (r *SessionRepository) Touch(ctx context.Context, sessionID string, lastSeen time.Time, newExpiry *time.Time) error {
	if r.db == nil {
		return errDBUnavailable
	}
	updates := map[string]any{"last_seen_at": lastSeen}
	if newExpiry != nil {
		updates["expires_at"] = *newExpiry
	}
	res := r.db.WithContext(ctx).Model(&DeviceSessionModel{}).
		Where("session_id = ?", sessionID).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *SessionRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	if r.db == nil {
		return 0, errDBUnavailable
	}
	res := r.db.WithContext(ctx).
		Where("expires_at < ?", cutoff).
		Delete(&DeviceSessionModel{})
	return res.RowsAffected, res.Error
}

func sessionFromModel(model DeviceSessionModel) domain.DeviceSession {
	return domain.DeviceSession{
		SessionID:  model.SessionID,
		MachineID:  model.MachineID,
		IssuedAt:   model.IssuedAt,
		ExpiresAt:  model.ExpiresAt,
		LastSeenAt: model.LastSeenAt,
		IPAddress:  model.IPAddress,
		IsRevoked:  model.IsRevoked,
	}
}
