package repository

import (
	"context"
	"errors"
	"fmt"

	"JamFM/model"

	"gorm.io/gorm"
)

// ServerRepository is the read-only view of channels and memberships the
// music core consults. Server/channel CRUD itself lives outside this service.
type ServerRepository interface {
	GetChannel(ctx context.Context, channelID string) (*model.Channel, error)
	GetMember(ctx context.Context, serverID, profileID string) (*model.Member, error)
}

type gormServerRepository struct {
	db *gorm.DB
}

// NewGormServerRepository creates a ServerRepository backed by GORM.
func NewGormServerRepository(db *gorm.DB) ServerRepository {
	return &gormServerRepository{db: db}
}

// GetChannel retrieves a channel by ID. Returns (nil, nil) when not found.
func (r *gormServerRepository) GetChannel(ctx context.Context, channelID string) (*model.Channel, error) {
	var channel model.Channel
	err := r.db.WithContext(ctx).First(&channel, "id = ?", channelID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query channel %s: %w", channelID, err)
	}
	return &channel, nil
}

// GetMember retrieves a profile's membership in a server. Returns (nil, nil)
// when the profile is not a member.
func (r *gormServerRepository) GetMember(ctx context.Context, serverID, profileID string) (*model.Member, error) {
	var member model.Member
	err := r.db.WithContext(ctx).
		First(&member, "server_id = ? AND profile_id = ?", serverID, profileID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query member %s in server %s: %w", profileID, serverID, err)
	}
	return &member, nil
}
