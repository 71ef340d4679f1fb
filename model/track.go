package model

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// TrackSource identifies the external platform a track came from.
type TrackSource string

const (
	SourceYouTube    TrackSource = "YOUTUBE"
	SourceSpotify    TrackSource = "SPOTIFY"
	SourceAppleMusic TrackSource = "APPLE_MUSIC"
	SourceSoundCloud TrackSource = "SOUNDCLOUD"
	SourceUploaded   TrackSource = "UPLOADED"
)

// JSONMap 自定义类型用于 GORM JSON 字段的自动扫描
type JSONMap map[string]interface{}

// Scan 实现 sql.Scanner 接口
func (m *JSONMap) Scan(value interface{}) error {
	if value == nil {
		*m = nil
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = nil
		return nil
	}
	if len(bytes) == 0 || string(bytes) == "null" {
		*m = nil
		return nil
	}
	return json.Unmarshal(bytes, m)
}

// Value 实现 driver.Valuer 接口
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return nil, nil
	}
	return json.Marshal(m)
}

// Track is the canonical catalog record for one piece of playable media.
// A track is created on first resolution of its URL and never updated after that;
// (source, source_id) is unique so repeated resolutions reuse one row.
type Track struct {
	ID              string      `json:"id" gorm:"primaryKey;size:36"`
	Source          TrackSource `json:"source" gorm:"size:20;not null;uniqueIndex:idx_source_source_id"`
	SourceID        string      `json:"sourceId" gorm:"size:191;not null;uniqueIndex:idx_source_source_id"`
	Title           string      `json:"title" gorm:"size:255;not null"`
	Artist          string      `json:"artist" gorm:"size:255"`
	DurationMs      int64       `json:"durationMs" gorm:"not null;default:0"`
	ThumbnailURL    string      `json:"thumbnailUrl" gorm:"size:512"`
	OriginalURL     string      `json:"originalUrl" gorm:"size:512"`
	UploadedFileURL string      `json:"uploadedFileUrl,omitempty" gorm:"size:512"`
	Metadata        JSONMap     `json:"metadata,omitempty" gorm:"type:json"`
	CreatedAt       time.Time   `json:"createdAt"`
}

// TableName 指定表名
func (Track) TableName() string {
	return "tracks"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (t *Track) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}
