package music

import (
	"context"

	"JamFM/model"
	"JamFM/repository"
)

// PermissionOracle decides who may control a session and who counts as
// present in a voice channel. Precedence for control is fixed: the session
// creator always may; with DJ mode on, only profiles with an explicit
// can-control grant; otherwise server admins and moderators.
type PermissionOracle struct {
	sessions repository.SessionRepository
	servers  repository.ServerRepository
}

// NewPermissionOracle creates a PermissionOracle over the given repositories.
func NewPermissionOracle(sessions repository.SessionRepository, servers repository.ServerRepository) *PermissionOracle {
	return &PermissionOracle{sessions: sessions, servers: servers}
}

// CanControl reports whether profileID may issue control actions against the
// session.
func (o *PermissionOracle) CanControl(ctx context.Context, session *model.MusicSession, profileID string) (bool, error) {
	if session.CreatedByID == profileID {
		return true, nil
	}

	if session.DJMode {
		perm, err := o.sessions.GetPermission(ctx, session.ID, profileID)
		if err != nil {
			return false, err
		}
		return perm != nil && perm.CanControl, nil
	}

	member, err := o.servers.GetMember(ctx, session.ServerID, profileID)
	if err != nil {
		return false, err
	}
	if member == nil {
		return false, nil
	}
	return member.Role == model.RoleAdmin || member.Role == model.RoleModerator, nil
}

// IsInVoiceChannel reports whether profileID is present in the voice channel.
// Presence is approximated by server membership; live voice connections are
// tracked by the media infrastructure outside this service.
func (o *PermissionOracle) IsInVoiceChannel(ctx context.Context, voiceChannelID, profileID string) (bool, error) {
	channel, err := o.servers.GetChannel(ctx, voiceChannelID)
	if err != nil {
		return false, err
	}
	if channel == nil {
		return false, nil
	}
	member, err := o.servers.GetMember(ctx, channel.ServerID, profileID)
	if err != nil {
		return false, err
	}
	return member != nil, nil
}
