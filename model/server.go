package model

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ChannelType distinguishes text channels from voice/video ones. Music
// sessions may only be started on AUDIO or VIDEO channels.
type ChannelType string

const (
	ChannelText  ChannelType = "TEXT"
	ChannelAudio ChannelType = "AUDIO"
	ChannelVideo ChannelType = "VIDEO"
)

// Channel is the minimal channel record the music core needs. The full chat
// feature set around channels lives outside this service.
type Channel struct {
	ID        string      `json:"id" gorm:"primaryKey;size:36"`
	ServerID  string      `json:"serverId" gorm:"size:36;not null;index"`
	Name      string      `json:"name" gorm:"size:100;not null"`
	Type      ChannelType `json:"type" gorm:"size:10;not null;default:'TEXT'"`
	CreatedAt time.Time   `json:"createdAt"`
}

// TableName 指定表名
func (Channel) TableName() string {
	return "channels"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (c *Channel) BeforeCreate(tx *gorm.DB) error {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	return nil
}

// MemberRole is a profile's role within a server.
type MemberRole string

const (
	RoleGuest     MemberRole = "GUEST"
	RoleModerator MemberRole = "MODERATOR"
	RoleAdmin     MemberRole = "ADMIN"
)

// Member links a profile to a server with a role.
type Member struct {
	ID        string     `json:"id" gorm:"primaryKey;size:36"`
	ServerID  string     `json:"serverId" gorm:"size:36;not null;uniqueIndex:idx_server_profile"`
	ProfileID string     `json:"profileId" gorm:"size:36;not null;uniqueIndex:idx_server_profile"`
	Role      MemberRole `json:"role" gorm:"size:20;not null;default:'GUEST'"`
	CreatedAt time.Time  `json:"createdAt"`
}

// TableName 指定表名
func (Member) TableName() string {
	return "members"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (m *Member) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// Profile is an authenticated user account.
type Profile struct {
	ID           string    `json:"id" gorm:"primaryKey;size:36"`
	Name         string    `json:"name" gorm:"size:100;not null"`
	Email        string    `json:"email" gorm:"size:191;not null;uniqueIndex"`
	PasswordHash string    `json:"-" gorm:"size:100;not null"`
	ImageURL     string    `json:"imageUrl" gorm:"size:512"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName 指定表名
func (Profile) TableName() string {
	return "profiles"
}

// BeforeCreate assigns a UUID primary key when none was provided.
func (p *Profile) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}
