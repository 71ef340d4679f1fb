package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// PlaybackState is the transport state of a session.
// LOADING exists for client-side display only; server transitions never produce it.
type PlaybackState string

const (
	StateIdle    PlaybackState = "IDLE"
	StatePlaying PlaybackState = "PLAYING"
	StatePaused  PlaybackState = "PAUSED"
	StateLoading PlaybackState = "LOADING"
)

// LoopMode controls what happens when the current track ends.
type LoopMode string

const (
	LoopOff LoopMode = "OFF"
	LoopOne LoopMode = "ONE"
	LoopAll LoopMode = "ALL"
)

// ValidLoopMode reports whether m is one of OFF, ONE, ALL.
func ValidLoopMode(m LoopMode) bool {
	return m == LoopOff || m == LoopOne || m == LoopAll
}

// MusicSession is the authoritative playback state for one voice channel.
// Exactly one session exists per (server, voice channel) pair.
//
// The playback clock is stored as two numbers: OffsetMs is the accumulated
// played position at the moment StartedAt was stamped, and the live position
// is derived as OffsetMs + (now - StartedAt) while playing. The position is
// never stored as a continuously updated field.
type MusicSession struct {
	ID             string        `json:"id" gorm:"primaryKey;size:36"`
	ServerID       string        `json:"serverId" gorm:"size:36;not null;uniqueIndex:idx_server_voice_channel"`
	VoiceChannelID string        `json:"voiceChannelId" gorm:"size:36;not null;uniqueIndex:idx_server_voice_channel"`
	State          PlaybackState `json:"state" gorm:"size:20;not null;default:'IDLE'"`
	CurrentTrackID *string       `json:"currentTrackId" gorm:"size:36"`
	CurrentTrack   *Track        `json:"currentTrack,omitempty" gorm:"foreignKey:CurrentTrackID"`
	StartedAt      *time.Time    `json:"startedAt"`
	OffsetMs       int64         `json:"offsetMs" gorm:"not null;default:0"`
	Volume         int           `json:"volume" gorm:"not null;default:100"`
	LoopMode       LoopMode      `json:"loopMode" gorm:"size:10;not null;default:'OFF'"`
	Shuffle        bool          `json:"shuffle" gorm:"not null;default:false"`
	DJMode         bool          `json:"djMode" gorm:"not null;default:false"`
	CreatedByID    string        `json:"createdById" gorm:"size:36;not null;index"`
	CreatedAt      time.Time     `json:"createdAt"`
	UpdatedAt      time.Time     `json:"updatedAt"`
}

// TableName 指定表名
func (MusicSession) TableName() string {
	return "music_sessions"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (s *MusicSession) BeforeCreate(tx *gorm.DB) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	return nil
}

// SessionPermission grants one profile control over one session while the
// session is in DJ mode. Outside DJ mode entries are ignored.
type SessionPermission struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	SessionID  string    `json:"sessionId" gorm:"size:36;not null;uniqueIndex:idx_session_profile"`
	ProfileID  string    `json:"profileId" gorm:"size:36;not null;uniqueIndex:idx_session_profile"`
	CanControl bool      `json:"canControl" gorm:"not null;default:false"`
	CreatedAt  time.Time `json:"createdAt"`
}

// TableName 指定表名
func (SessionPermission) TableName() string {
	return "session_permissions"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (p *SessionPermission) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
