package repository

import (
	"context"
	"errors"
	"fmt"

	"JamFM/model"

	"gorm.io/gorm"
)

// ProfileRepository defines user account data operations.
type ProfileRepository interface {
	Create(ctx context.Context, profile *model.Profile) error
	GetByID(ctx context.Context, id string) (*model.Profile, error)
	GetByEmail(ctx context.Context, email string) (*model.Profile, error)
}

type gormProfileRepository struct {
	db *gorm.DB
}

// NewGormProfileRepository creates a ProfileRepository backed by GORM.
func NewGormProfileRepository(db *gorm.DB) ProfileRepository {
	return &gormProfileRepository{db: db}
}

func (r *gormProfileRepository) Create(ctx context.Context, profile *model.Profile) error {
	if err := r.db.WithContext(ctx).Create(profile).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: profile %s", ErrDuplicate, profile.Email)
		}
		return fmt.Errorf("failed to create profile: %w", err)
	}
	return nil
}

func (r *gormProfileRepository) GetByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query profile %s: %w", id, err)
	}
	return &profile, nil
}

func (r *gormProfileRepository) GetByEmail(ctx context.Context, email string) (*model.Profile, error) {
	var profile model.Profile
	err := r.db.WithContext(ctx).First(&profile, "email = ?", email).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query profile by email: %w", err)
	}
	return &profile, nil
}
