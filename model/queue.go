package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueItem is one pending track awaiting playback within a session.
// Positions are 1-based and dense: after any removal or shuffle the remaining
// items are renumbered to 1..N with no gaps or duplicates.
type QueueItem struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID string    `json:"sessionId" gorm:"size:36;not null;index"`
	TrackID   string    `json:"trackId" gorm:"size:36;not null"`
	Track     *Track    `json:"track,omitempty" gorm:"foreignKey:TrackID"`
	AddedByID string    `json:"addedById" gorm:"size:36;not null"`
	Position  int       `json:"position" gorm:"not null"`
	CreatedAt time.Time `json:"createdAt"`
}

// TableName 指定表名
func (QueueItem) TableName() string {
	return "queue_items"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (q *QueueItem) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}
