package repository

import (
	"context"
	"fmt"
	"math/rand"

	"JamFM/model"

	"gorm.io/gorm"
)

// QueueRepository defines data operations on a session's pending queue.
//
// Positions within a session must stay a dense 1..N sequence at all times, so
// every multi-row mutation here (append, remove, pop, shuffle) runs inside a
// transaction. Two concurrent removals on one session must never leave a gap
// or a duplicate position behind.
type QueueRepository interface {
	Append(ctx context.Context, sessionID string, trackIDs []string, actorID string) ([]*model.QueueItem, error)
	ListBySession(ctx context.Context, sessionID string) ([]*model.QueueItem, error)
	Get(ctx context.Context, itemID string) (*model.QueueItem, error)
	Remove(ctx context.Context, sessionID, itemID string) error
	PopHead(ctx context.Context, sessionID string) (*model.QueueItem, error)
	Shuffle(ctx context.Context, sessionID string, rng *rand.Rand) error
}

type gormQueueRepository struct {
	db *gorm.DB
}

// NewGormQueueRepository creates a QueueRepository backed by GORM.
func NewGormQueueRepository(db *gorm.DB) QueueRepository {
	return &gormQueueRepository{db: db}
}

// Append inserts queue items at max(position)+1, +2, ... preserving the
// submission order of trackIDs.
func (r *gormQueueRepository) Append(ctx context.Context, sessionID string, trackIDs []string, actorID string) ([]*model.QueueItem, error) {
	items := make([]*model.QueueItem, 0, len(trackIDs))
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos int
		err := tx.Model(&model.QueueItem{}).
			Where("session_id = ?", sessionID).
			Select("COALESCE(MAX(position), 0)").
			Scan(&maxPos).Error
		if err != nil {
			return fmt.Errorf("failed to read max queue position: %w", err)
		}

		for i, trackID := range trackIDs {
			item := &model.QueueItem{
				SessionID: sessionID,
				TrackID:   trackID,
				AddedByID: actorID,
				Position:  maxPos + i + 1,
			}
			if err := tx.Create(item).Error; err != nil {
				return fmt.Errorf("failed to create queue item: %w", err)
			}
			items = append(items, item)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Re-read with tracks so callers get full rows back.
	for _, item := range items {
		var full model.QueueItem
		if err := r.db.WithContext(ctx).Preload("Track").First(&full, "id = ?", item.ID).Error; err == nil {
			*item = full
		}
	}
	return items, nil
}

// ListBySession returns a session's queue ordered by ascending position.
func (r *gormQueueRepository) ListBySession(ctx context.Context, sessionID string) ([]*model.QueueItem, error) {
	items := make([]*model.QueueItem, 0)
	err := r.db.WithContext(ctx).
		Preload("Track").
		Where("session_id = ?", sessionID).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list queue for session %s: %w", sessionID, err)
	}
	return items, nil
}

// Get retrieves one queue item by ID. Returns (nil, nil) when not found.
func (r *gormQueueRepository) Get(ctx context.Context, itemID string) (*model.QueueItem, error) {
	var item model.QueueItem
	err := r.db.WithContext(ctx).Preload("Track").First(&item, "id = ?", itemID).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query queue item %s: %w", itemID, err)
	}
	return &item, nil
}

// Remove deletes one item and renumbers the remaining items of the session
// to 1..N, all in one transaction.
func (r *gormQueueRepository) Remove(ctx context.Context, sessionID, itemID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND session_id = ?", itemID, sessionID).Delete(&model.QueueItem{})
		if res.Error != nil {
			return fmt.Errorf("failed to delete queue item %s: %w", itemID, res.Error)
		}
		if res.RowsAffected == 0 {
			return gorm.ErrRecordNotFound
		}
		return renumberQueue(tx, sessionID)
	})
}

// PopHead removes and returns the item with the lowest position, renumbering
// what remains. Returns (nil, nil) on an empty queue.
func (r *gormQueueRepository) PopHead(ctx context.Context, sessionID string) (*model.QueueItem, error) {
	var head *model.QueueItem
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var item model.QueueItem
		err := tx.Preload("Track").
			Where("session_id = ?", sessionID).
			Order("position ASC").
			First(&item).Error
		if err == gorm.ErrRecordNotFound {
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to query queue head: %w", err)
		}
		if err := tx.Delete(&model.QueueItem{}, "id = ?", item.ID).Error; err != nil {
			return fmt.Errorf("failed to delete queue head: %w", err)
		}
		if err := renumberQueue(tx, sessionID); err != nil {
			return err
		}
		head = &item
		return nil
	})
	if err != nil {
		return nil, err
	}
	return head, nil
}

// Shuffle applies a uniform Fisher-Yates permutation over the current queue
// order and renumbers the result 1..N, all in one transaction.
func (r *gormQueueRepository) Shuffle(ctx context.Context, sessionID string, rng *rand.Rand) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var items []*model.QueueItem
		err := tx.Where("session_id = ?", sessionID).
			Order("position ASC").
			Find(&items).Error
		if err != nil {
			return fmt.Errorf("failed to list queue for shuffle: %w", err)
		}
		if len(items) <= 1 {
			return nil
		}

		for i := len(items) - 1; i > 0; i-- {
			j := rng.Intn(i + 1)
			items[i], items[j] = items[j], items[i]
		}

		for i, item := range items {
			err := tx.Model(&model.QueueItem{}).
				Where("id = ?", item.ID).
				Update("position", i+1).Error
			if err != nil {
				return fmt.Errorf("failed to renumber shuffled item: %w", err)
			}
		}
		return nil
	})
}

// renumberQueue rewrites positions to a dense 1..N by ascending current
// position. Must run inside the caller's transaction.
func renumberQueue(tx *gorm.DB, sessionID string) error {
	var items []*model.QueueItem
	err := tx.Where("session_id = ?", sessionID).
		Order("position ASC").
		Find(&items).Error
	if err != nil {
		return fmt.Errorf("failed to list queue for renumbering: %w", err)
	}
	for i, item := range items {
		if item.Position == i+1 {
			continue
		}
		err := tx.Model(&model.QueueItem{}).
			Where("id = ?", item.ID).
			Update("position", i+1).Error
		if err != nil {
			return fmt.Errorf("failed to renumber queue item: %w", err)
		}
	}
	return nil
}
