package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/LedgerofEarth/transaction-border-controller-sub000/internal/domain"
)

type ProfileRepository struct {
	db *gorm.DB
}

func NewProfileRepository(db *gorm.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

func (r *ProfileRepository) GetProfile(ctx context.Context, ref string) (*domain.Profile, error) {
	if r.db == nil {
		return nil, errDBUnavailable
	}
	if ref == "" {
		return nil, domain.ErrMalformedRequest
	}
	var model ProfileModel
	err := r.db.WithContext(ctx).Where("ref = ?", ref).Take(&model).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	profile := profileFromModel(model)
	return &profile, nil
}

func (r *ProfileRepository) SaveProfile(ctx context.Context, profile domain.Profile) (domain.Profile, error) {
	if r.db == nil {
		return domain.Profile{}, errDBUnavailable
	}
	if profile.Ref == "" {
		return domain.Profile{}, domain.ErrMalformedRequest
	}
	if profile.CreatedAt.IsZero() {
		profile.CreatedAt = time.Now().UTC()
	}
	model := ProfileModel{
		Ref:          profile.Ref,
		Status:       string(profile.Status),
		PublicKey:    profile.PublicKey,
		SigAlg:       profile.SigAlg,
		Jurisdiction: stringPtrIfNotEmpty(profile.Jurisdiction),
		CreatedAt:    profile.CreatedAt.UTC(),
	}
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "ref"}},
			DoUpdates: clause.AssignmentColumns([]string{"status", "public_key", "sig_alg", "jurisdiction"}),
		}).
		Create(&model).Error
	if err != nil {
		return domain.Profile{}, err
	}
	return profileFromModel(model), nil
}

func profileFromModel(model ProfileModel) domain.Profile {
	return domain.Profile{
		Ref:          model.Ref,
		Status:       domain.ProfileStatus(model.Status),
		PublicKey:    model.PublicKey,
		SigAlg:       model.SigAlg,
		Jurisdiction: stringValue(model.Jurisdiction),
		CreatedAt:    model.CreatedAt.UTC(),
	}
}
