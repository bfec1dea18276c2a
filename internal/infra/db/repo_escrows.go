package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

// terminalStates mirrors domain.EscrowState.Terminal for the open-records
// query.
var terminalStates = []string{
	string(domain.EscrowClaimed),
	string(domain.EscrowReleased),
	string(domain.EscrowWithdrawn),
	string(domain.EscrowReverted),
}

type EscrowRepository struct {
	db *gorm.DB
}

func NewEscrowRepository(db *gorm.DB) *EscrowRepository {
	return &EscrowRepository{db: db}
}

func (r *EscrowRepository) Get(ctx context.Context, id string) (*domain.EscrowRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var model EscrowRecordModel
	err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	rec := escrowFromModel(model)
	return &rec, nil
}

func (r *EscrowRepository) Save(ctx context.Context, rec *domain.EscrowRecord) error {
	if r.db == nil {
		return errDBUnavailable
	}
	model := escrowToModel(rec)
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			UpdateAll: true,
		}).
		Create(&model).Error
}

func (r *EscrowRepository) ListOpen(ctx context.Context) ([]*domain.EscrowRecord, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	var models []EscrowRecordModel
	if err := r.db.WithContext(ctx).
		Where("state NOT IN ?", terminalStates).
		Order("created_at ASC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]*domain.EscrowRecord, 0, len(models))
	for _, model := range models {
		rec := escrowFromModel(model)
		out = append(out, &rec)
	}
	return out, nil
}

func escrowToModel(rec *domain.EscrowRecord) EscrowRecordModel {
	return EscrowRecordModel{
		ID:                  rec.ID,
		Buyer:               rec.Buyer,
		Seller:              rec.Seller,
		Amount:              rec.Amount,
		Asset:               rec.Asset,
		Nullifier:           stringPtrIfNotEmpty(rec.Nullifier),
		State:               string(rec.State),
		Lock:                rec.Lock,
		CreatedAt:           rec.CreatedAt.UTC(),
		AcceptanceDeadline:  rec.AcceptanceDeadline.UTC(),
		FulfillmentDeadline: timePtrIfNotZero(rec.FulfillmentDeadline.UTC()),
		ClaimDeadline:       timePtrIfNotZero(rec.ClaimDeadline.UTC()),
		RelockCount:         rec.RelockCount,
		DiscountIssued:      rec.DiscountIssued,
		FinalStatus:         stringPtrIfNotEmpty(string(rec.FinalStatus)),
		SettledAt:           timePtrIfNotZero(rec.SettledAt.UTC()),
		UpdatedAt:           time.Now().UTC(),
	}
}

func escrowFromModel(model EscrowRecordModel) domain.EscrowRecord {
	return domain.EscrowRecord{
		ID:                  model.ID,
		Buyer:               model.Buyer,
		Seller:              model.Seller,
		Amount:              model.Amount,
		Asset:               model.Asset,
		Nullifier:           stringValue(model.Nullifier),
		State:               domain.EscrowState(model.State),
		Lock:                model.Lock,
		CreatedAt:           model.CreatedAt.UTC(),
		AcceptanceDeadline:  model.AcceptanceDeadline.UTC(),
		FulfillmentDeadline: timeValue(model.FulfillmentDeadline),
		ClaimDeadline:       timeValue(model.ClaimDeadline),
		RelockCount:         model.RelockCount,
		DiscountIssued:      model.DiscountIssued,
		FinalStatus:         domain.FinalStatus(stringValue(model.FinalStatus)),
		SettledAt:           timeValue(model.SettledAt),
	}
}
