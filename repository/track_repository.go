package repository

import (
	"context"
	"errors"
	"fmt"

	"JamFM/model"

	"gorm.io/gorm"
)

// ErrDuplicate is returned when an insert violates a unique constraint.
// Callers racing on the same (source, sourceId) recover by re-reading.
var ErrDuplicate = errors.New("duplicate record")

// TrackRepository defines catalog data operations. Tracks are insert-only.
type TrackRepository interface {
	Create(ctx context.Context, track *model.Track) error
	GetByID(ctx context.Context, id string) (*model.Track, error)
	GetBySource(ctx context.Context, source model.TrackSource, sourceID string) (*model.Track, error)
	GetByIDs(ctx context.Context, ids []string) ([]*model.Track, error)
}

type gormTrackRepository struct {
	db *gorm.DB
}

// NewGormTrackRepository creates a TrackRepository backed by GORM.
func NewGormTrackRepository(db *gorm.DB) TrackRepository {
	return &gormTrackRepository{db: db}
}

// Create inserts a new track. A unique-constraint violation on
// (source, source_id) is reported as ErrDuplicate.
func (r *gormTrackRepository) Create(ctx context.Context, track *model.Track) error {
	if err := r.db.WithContext(ctx).Create(track).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: track %s/%s", ErrDuplicate, track.Source, track.SourceID)
		}
		return fmt.Errorf("failed to create track: %w", err)
	}
	return nil
}

// GetByID retrieves a track by its ID. Returns (nil, nil) when not found.
func (r *gormTrackRepository) GetByID(ctx context.Context, id string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).First(&track, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query track %s: %w", id, err)
	}
	return &track, nil
}

// GetBySource retrieves the catalog entry for one piece of external media.
// Returns (nil, nil) when not found.
func (r *gormTrackRepository) GetBySource(ctx context.Context, source model.TrackSource, sourceID string) (*model.Track, error) {
	var track model.Track
	err := r.db.WithContext(ctx).
		First(&track, "source = ? AND source_id = ?", source, sourceID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query track %s/%s: %w", source, sourceID, err)
	}
	return &track, nil
}

// GetByIDs retrieves tracks for the given IDs. Missing IDs are skipped.
func (r *gormTrackRepository) GetByIDs(ctx context.Context, ids []string) ([]*model.Track, error) {
	tracks := make([]*model.Track, 0, len(ids))
	if len(ids) == 0 {
		return tracks, nil
	}
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&tracks).Error; err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	return tracks, nil
}
