package db

import (
	"context"
	"errors"
	"time"

	"vendtrustd/internal/domain"
	"vendtrustd/internal/usecase"

	"gorm.io/gorm"
)

type EventRepository struct {
	db *gorm.DB
}

func NewEventRepository(db *gorm.DB) *EventRepository {
	return &EventRepository{db: db}
}

var _ usecase.EventStore = (*EventRepository)(nil)

func (r *EventRepository) Append(ctx context.Context, event domain.SecurityEvent) error {
	if r.db == nil {
		return errDBUnavailable
	}
	return r.db.WithContext(ctx).Create(&SecurityEventModel{
		EventID:    event.EventID,
		MachineID:  event.MachineID,
		EventType:  string(event.EventType),
		Severity:   string(event.Severity),
		Message:    event.Message,
		CreatedAt:  event.CreatedAt,
		IsResolved: event.IsResolved,
		ResolvedAt: event.ResolvedAt,
		ResolvedBy: event.ResolvedBy,
	}).Error
}

func (r *EventRepository) Get(ctx context.Context, eventID string) (*domain.SecurityEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model SecurityEventModel
	err := r.db.WithContext(ctx).First(&model, "event_id = ?", eventID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	event := eventFromModel(model)
	return &event, nil
}

func (r *EventRepository) List(ctx context.Context, onlyUnresolved bool) ([]domain.SecurityEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	query := r.db.WithContext(ctx).Order("created_at DESC")
	if onlyUnresolved {
		query = query.Where("is_resolved = ?", false)
	}
	var models []SecurityEventModel
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.SecurityEvent, 0, len(models))
	for _, model := range models {
		out = append(out, eventFromModel(model))
	}
	return out, nil
}

func (r *EventRepository) MarkResolved(ctx context.Context, eventID, actor string, at time.Time) (bool, error) {
	if r.db == nil {
		return false, errDBUnavailable
	}
	res := r.db.WithContext(ctx).Model(&SecurityEventModel{}).
		Where("event_id = ? AND is_resolved = ?", eventID, false).
		Updates(map[string]any{
			"is_resolved": true,
			"resolved_at": at,
			"resolved_by": actor,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := r.db.WithContext(ctx).Model(&SecurityEventModel{}).
			Where("event_id = ?", eventID).
			Count(&count).Error; err != nil {
			return false, err
		}
		if count == 0 {
			return false, domain.ErrNotFound
		}
		return false, nil
	}
	return true, nil
}

func eventFromModel(model SecurityEventModel) domain.SecurityEvent {
	return domain.SecurityEvent{
		EventID:    model.EventID,
		MachineID:  model.MachineID,
		EventType:  domain.SecurityEventType(model.EventType),
		Severity:   domain.EventSeverity(model.Severity),
		Message:    model.Message,
		CreatedAt:  model.CreatedAt,
		IsResolved: model.IsResolved,
		ResolvedAt: model.ResolvedAt,
		ResolvedBy: model.ResolvedBy,
	}
}
