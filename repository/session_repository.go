package repository

import (
	"context"
	"errors"
	"fmt"

	"JamFM/model"

	"gorm.io/gorm"
)

// SessionRepository defines data operations on music sessions and their
// DJ-mode permission entries.
type SessionRepository interface {
	Create(ctx context.Context, session *model.MusicSession) error
	GetByID(ctx context.Context, id string) (*model.MusicSession, error)
	GetByChannel(ctx context.Context, serverID, voiceChannelID string) (*model.MusicSession, error)
	Save(ctx context.Context, session *model.MusicSession) error
	GetPermission(ctx context.Context, sessionID, profileID string) (*model.SessionPermission, error)
	UpsertPermission(ctx context.Context, sessionID, profileID string, canControl bool) error
}

type gormSessionRepository struct {
	db *gorm.DB
}

// NewGormSessionRepository creates a SessionRepository backed by GORM.
func NewGormSessionRepository(db *gorm.DB) SessionRepository {
	return &gormSessionRepository{db: db}
}

// Create inserts a new session. The unique (server_id, voice_channel_id)
// index makes concurrent first-start requests race into ErrDuplicate; callers
// recover by re-reading the winner's row.
func (r *gormSessionRepository) Create(ctx context.Context, session *model.MusicSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fmt.Errorf("%w: session for channel %s", ErrDuplicate, session.VoiceChannelID)
		}
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// GetByID retrieves a session with its current track. Returns (nil, nil)
// when not found.
func (r *gormSessionRepository) GetByID(ctx context.Context, id string) (*model.MusicSession, error) {
	var session model.MusicSession
	err := r.db.WithContext(ctx).
		Preload("CurrentTrack").
		First(&session, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query session %s: %w", id, err)
	}
	return &session, nil
}

// GetByChannel retrieves the session bound to a (server, voice channel) pair.
// Returns (nil, nil) when not found.
func (r *gormSessionRepository) GetByChannel(ctx context.Context, serverID, voiceChannelID string) (*model.MusicSession, error) {
	var session model.MusicSession
	err := r.db.WithContext(ctx).
		Preload("CurrentTrack").
		First(&session, "server_id = ? AND voice_channel_id = ?", serverID, voiceChannelID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query session for channel %s: %w", voiceChannelID, err)
	}
	return &session, nil
}

// Save writes all session fields back, including nil-able columns such as
// started_at and current_track_id which Updates would skip.
func (r *gormSessionRepository) Save(ctx context.Context, session *model.MusicSession) error {
	err := r.db.WithContext(ctx).
		Model(&model.MusicSession{}).
		Where("id = ?", session.ID).
		Select("state", "current_track_id", "started_at", "offset_ms", "volume", "loop_mode", "shuffle", "dj_mode").
		Updates(map[string]interface{}{
			"state":            session.State,
			"current_track_id": session.CurrentTrackID,
			"started_at":       session.StartedAt,
			"offset_ms":        session.OffsetMs,
			"volume":           session.Volume,
			"loop_mode":        session.LoopMode,
			"shuffle":          session.Shuffle,
			"dj_mode":          session.DJMode,
		}).Error
	if err != nil {
		return fmt.Errorf("failed to save session %s: %w", session.ID, err)
	}
	return nil
}

// GetPermission retrieves one DJ-mode permission entry. Returns (nil, nil)
// when not found.
func (r *gormSessionRepository) GetPermission(ctx context.Context, sessionID, profileID string) (*model.SessionPermission, error) {
	var perm model.SessionPermission
	err := r.db.WithContext(ctx).
		First(&perm, "session_id = ? AND profile_id = ?", sessionID, profileID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query permission for session %s: %w", sessionID, err)
	}
	return &perm, nil
}

// UpsertPermission creates or updates a DJ-mode permission entry.
func (r *gormSessionRepository) UpsertPermission(ctx context.Context, sessionID, profileID string, canControl bool) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var perm model.SessionPermission
		err := tx.First(&perm, "session_id = ? AND profile_id = ?", sessionID, profileID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			perm = model.SessionPermission{
				SessionID:  sessionID,
				ProfileID:  profileID,
				CanControl: canControl,
			}
			if err := tx.Create(&perm).Error; err != nil {
				return fmt.Errorf("failed to create permission: %w", err)
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("failed to query permission: %w", err)
		}
		if err := tx.Model(&perm).Update("can_control", canControl).Error; err != nil {
			return fmt.Errorf("failed to update permission: %w", err)
		}
		return nil
	})
}
