package db

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

type AuditEventRepository struct {
	db *gorm.DB
}

func NewAuditEventRepository(db *gorm.DB) *AuditEventRepository {
	return &AuditEventRepository{db: db}
}

func (r *AuditEventRepository) Append(ctx context.Context, event domain.AuditEvent) (domain.AuditEvent, error) {
	if r.db == nil {
		return domain.AuditEvent{}, errDBUnavailable
	}
	if event.EventType == "" {
		return domain.AuditEvent{}, errors.New("event_type is required")
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}
	event.CreatedAt = event.CreatedAt.UTC().Truncate(time.Microsecond)

	var payloadJSON []byte
	if event.Payload != nil {
		encoded, err := json.Marshal(event.Payload)
		if err != nil {
			return domain.AuditEvent{}, err
		}
		payloadJSON = encoded
	}

	model := AuditEventModel{
		ID:          event.ID,
		EventType:   string(event.EventType),
		TargetID:    stringPtrIfNotEmpty(event.TargetID),
		Result:      string(event.Result),
		ErrorCode:   stringPtrIfNotEmpty(event.ErrorCode),
		PayloadJSON: payloadJSON,
		CreatedAt:   event.CreatedAt,
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditEvent{}, err
	}
	return event, nil
}

func (r *AuditEventRepository) ListByTarget(ctx context.Context, targetID string) ([]domain.AuditEvent, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []AuditEventModel
	if err := r.db.WithContext(ctx).
		Where("target_id = ?", targetID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AuditEvent, 0, len(models))
	for _, model := range models {
		event := domain.AuditEvent{
			ID:        model.ID,
			EventType: domain.AuditEventType(model.EventType),
			TargetID:  stringValue(model.TargetID),
			Result:    domain.AuditResult(model.Result),
			ErrorCode: stringValue(model.ErrorCode),
			CreatedAt: model.CreatedAt.UTC(),
		}
		if len(model.PayloadJSON) > 0 {
			if err := json.Unmarshal(model.PayloadJSON, &event.Payload); err != nil {
				return nil, err
			}
		}
		out = append(out, event)
	}
	return out, nil
}
