package db

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// AttemptRepository persists one row per verification attempt, approved or
// denied, with the full verdict document for later audit.
type AttemptRepository struct {
	db *gorm.DB
}

func NewAttemptRepository(db *gorm.DB) *AttemptRepository {
	return &AttemptRepository{db: db}
}

func (r *AttemptRepository) Save(ctx context.Context, verdict domain.Verdict) error {
	if r.db == nil {
		return errDBUnavailable
	}
	payload, err := json.Marshal(verdict)
	if err != nil {
		return err
	}
	model := VerificationAttemptModel{
		ID:          uuid.NewString(),
		RequestID:   verdict.Summary.RequestID,
		Approved:    verdict.Approved,
		VerdictJSON: payload,
		CreatedAt:   time.Now().UTC(),
	}
	if verdict.Rejection != nil {
		model.ErrorCode = stringPtrIfNotEmpty(verdict.Rejection.ErrorCode)
	}
	if verdict.Envelope != nil {
		model.SessionRef = stringPtrIfNotEmpty(verdict.Envelope.SessionRef)
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *AttemptRepository) ListByRequest(ctx context.Context, requestID string) ([]domain.Verdict, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []VerificationAttemptModel
	if err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Verdict, 0, len(models))
	for _, model := range models {
		var verdict domain.Verdict
		if err := json.Unmarshal(model.VerdictJSON, &verdict); err != nil {
			return nil, err
		}
		out = append(out, verdict)
	}
	return out, nil
}
