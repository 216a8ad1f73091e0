package db

import (
	"context"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/usecase"

	"gorm.io/gorm"
)

type AuditRepository struct {
	db *gorm.DB
}

func NewAuditRepository(db *gorm.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

var _ usecase.AuditStore = (*AuditRepository)(nil)

func (r *AuditRepository) Append(ctx context.Context, entry domain.ApiAuditLogEntry) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Create(&ApiAuditLogModel{
		RequestID:    entry.RequestID,
		MachineID:    entry.MachineID,
		Endpoint:     entry.Endpoint,
		Method:       entry.Method,
		IPAddress:    entry.IPAddress,
		ResponseCode: entry.ResponseCode,
		PayloadHash:  entry.PayloadHash,
		SignatureOK:  entry.SignatureOK,
		CreatedAt:    entry.CreatedAt,
	}).Error
}

func (r *AuditRepository) List(ctx context.Context, machineID string, limit int) ([]domain.ApiAuditLogEntry, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if limit <= 0 {
		limit = 100
	}
	query := r.db.WithContext(ctx).Order("created_at DESC").Limit(limit)
	if machineID != "" {
		query = query.Where("machine_id = ?", machineID)
	}
	var models []ApiAuditLogModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.ApiAuditLogEntry, 0, len(models))
	for _, model := range models {
		out = append(out, domain.ApiAuditLogEntry{
			RequestID:    model.RequestID,
			MachineID:    model.MachineID,
			Endpoint:     model.Endpoint,
			Method:       model.Method,
			IPAddress:    model.IPAddress,
			ResponseCode: model.ResponseCode,
			PayloadHash:  model.PayloadHash,
			SignatureOK:  model.SignatureOK,
			CreatedAt:    model.CreatedAt,
		})
	}
	return out, nil
}
