package music

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"JamFM/logger"
	"JamFM/model"
	"JamFM/repository"

	"gorm.io/gorm"
)

// Action is a session control action name.
type Action string

const (
	ActionPlay    Action = "play"
	ActionPause   Action = "pause"
	ActionSkip    Action = "skip"
	ActionBack    Action = "back"
	ActionSeek    Action = "seek"
	ActionVolume  Action = "volume"
	ActionLoop    Action = "loop"
	ActionShuffle Action = "shuffle"
)

// SessionState is the full session view returned to clients: the session row,
// the ordered queue, the derived playback position and the server's own clock
// so clients can estimate skew.
type SessionState struct {
	*model.MusicSession
	Queue             []*model.QueueItem `json:"queue"`
	CurrentPositionMs int64              `json:"currentPositionMs"`
	ServerTime        int64              `json:"serverTime"`
}

// SessionService is the session state machine and queue manager. All control
// actions validate their input and the actor's permission before any state is
// mutated; multi-row queue mutations are serialized by the repository's
// transactions.
type SessionService struct {
	sessions repository.SessionRepository
	queue    repository.QueueRepository
	tracks   repository.TrackRepository
	servers  repository.ServerRepository
	oracle   *PermissionOracle

	// now is injectable so tests can pin the clock.
	now func() time.Time
}

// NewSessionService wires a SessionService over the given repositories.
func NewSessionService(
	sessions repository.SessionRepository,
	queue repository.QueueRepository,
	tracks repository.TrackRepository,
	servers repository.ServerRepository,
) *SessionService {
	return &SessionService{
		sessions: sessions,
		queue:    queue,
		tracks:   tracks,
		servers:  servers,
		oracle:   NewPermissionOracle(sessions, servers),
		now:      time.Now,
	}
}

// Oracle exposes the service's permission oracle.
func (s *SessionService) Oracle() *PermissionOracle {
	return s.oracle
}

// Start is the idempotent get-or-create for the session bound to a
// (server, voice channel) pair. The channel must be voice/video capable and
// the actor must be a member of the server.
func (s *SessionService) Start(ctx context.Context, serverID, voiceChannelID, actorID string) (*SessionState, error) {
	channel, err := s.servers.GetChannel(ctx, voiceChannelID)
	if err != nil {
		return nil, err
	}
	if channel == nil || channel.ServerID != serverID {
		return nil, fmt.Errorf("%w: channel %s", ErrNotFound, voiceChannelID)
	}
	if channel.Type != model.ChannelAudio && channel.Type != model.ChannelVideo {
		return nil, fmt.Errorf("%w: channel must be a voice/video channel", ErrInvalidArgument)
	}

	member, err := s.servers.GetMember(ctx, serverID, actorID)
	if err != nil {
		return nil, err
	}
	if member == nil {
		return nil, fmt.Errorf("%w: not a member of this server", ErrForbidden)
	}

	session, err := s.sessions.GetByChannel(ctx, serverID, voiceChannelID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		session = &model.MusicSession{
			ServerID:       serverID,
			VoiceChannelID: voiceChannelID,
			State:          model.StateIdle,
			Volume:         100,
			LoopMode:       model.LoopOff,
			CreatedByID:    actorID,
		}
		if err := s.sessions.Create(ctx, session); err != nil {
			// Concurrent first-start requests race on the unique channel
			// index; the loser re-reads the winner's row.
			if errors.Is(err, repository.ErrDuplicate) {
				session, err = s.sessions.GetByChannel(ctx, serverID, voiceChannelID)
				if err != nil {
					return nil, err
				}
			} else {
				return nil, err
			}
		}
		logger.Info("music session started",
			logger.String("sessionId", session.ID),
			logger.String("voiceChannelId", voiceChannelID),
			logger.String("createdBy", actorID))
	}

	return s.stateOf(ctx, session)
}

// State returns the full session view with the derived playback position.
func (s *SessionService) State(ctx context.Context, sessionID string) (*SessionState, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return s.stateOf(ctx, session)
}

// Control applies one control action to the session. The value argument is
// the raw decoded JSON value (number for seek/volume, string for loop) and is
// validated before any mutation; permission denial, unknown actions and bad
// values reject the whole action with no partial application.
func (s *SessionService) Control(ctx context.Context, sessionID, actorID string, action Action, value interface{}) (*SessionState, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	allowed, err := s.oracle.CanControl(ctx, session, actorID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, fmt.Errorf("%w: no permission to control this session", ErrForbidden)
	}

	now := s.now()

	switch action {
	case ActionPlay:
		session.State = model.StatePlaying
		session.StartedAt = &now

	case ActionPause:
		var elapsed int64
		if session.State == model.StatePlaying && session.StartedAt != nil {
			elapsed = now.Sub(*session.StartedAt).Milliseconds()
		}
		session.OffsetMs += elapsed
		session.State = model.StatePaused
		session.StartedAt = nil

	case ActionSeek:
		target, err := numericValue(value)
		if err != nil || target < 0 {
			return nil, fmt.Errorf("%w: seek value must be a non-negative number of milliseconds", ErrInvalidArgument)
		}
		// Seek re-anchors the clock; the transport state is untouched.
		session.OffsetMs = int64(target)
		session.StartedAt = &now

	case ActionVolume:
		v, err := numericValue(value)
		if err != nil || v < 0 || v > 100 {
			return nil, fmt.Errorf("%w: volume must be between 0-100", ErrInvalidArgument)
		}
		session.Volume = int(math.Round(v))

	case ActionLoop:
		mode, ok := value.(string)
		if !ok || !model.ValidLoopMode(model.LoopMode(mode)) {
			return nil, fmt.Errorf("%w: loop mode must be OFF, ONE, or ALL", ErrInvalidArgument)
		}
		session.LoopMode = model.LoopMode(mode)

	case ActionShuffle:
		session.Shuffle = !session.Shuffle
		if session.Shuffle {
			rng := rand.New(rand.NewSource(now.UnixNano()))
			if err := s.queue.Shuffle(ctx, session.ID, rng); err != nil {
				return nil, err
			}
		}

	case ActionSkip:
		if err := s.advance(ctx, session, now); err != nil {
			return nil, err
		}

	case ActionBack:
		// Restart of the current track, not previous-track navigation.
		session.OffsetMs = 0
		session.StartedAt = &now

	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidAction, action)
	}

	if err := s.sessions.Save(ctx, session); err != nil {
		return nil, err
	}

	logger.Debug("session control applied",
		logger.String("sessionId", session.ID),
		logger.String("action", string(action)),
		logger.String("actor", actorID),
		logger.String("state", string(session.State)))

	return s.stateOf(ctx, session)
}

// advance pops the queue head into the current slot, or winds the session
// down to IDLE when nothing is pending. Mutates session in place; the caller
// persists it.
func (s *SessionService) advance(ctx context.Context, session *model.MusicSession, now time.Time) error {
	head, err := s.queue.PopHead(ctx, session.ID)
	if err != nil {
		return err
	}
	if head == nil {
		session.State = model.StateIdle
		session.CurrentTrackID = nil
		session.CurrentTrack = nil
		session.StartedAt = nil
		session.OffsetMs = 0
		return nil
	}
	session.CurrentTrackID = &head.TrackID
	session.CurrentTrack = head.Track
	session.StartedAt = &now
	session.OffsetMs = 0
	session.State = model.StatePlaying
	return nil
}

// Enqueue appends one or more tracks to the session's queue. The actor must
// be present in the voice channel. Appending to an idle session immediately
// promotes the first added track to current and starts playback.
func (s *SessionService) Enqueue(ctx context.Context, sessionID string, trackIDs []string, actorID string) ([]*model.QueueItem, error) {
	if len(trackIDs) == 0 {
		return nil, fmt.Errorf("%w: track ID(s) required", ErrInvalidArgument)
	}

	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	inVC, err := s.oracle.IsInVoiceChannel(ctx, session.VoiceChannelID, actorID)
	if err != nil {
		return nil, err
	}
	if !inVC {
		return nil, fmt.Errorf("%w: you must be in the voice channel", ErrForbidden)
	}

	known, err := s.tracks.GetByIDs(ctx, trackIDs)
	if err != nil {
		return nil, err
	}
	if len(known) != len(uniqueStrings(trackIDs)) {
		return nil, fmt.Errorf("%w: unknown track in request", ErrNotFound)
	}

	items, err := s.queue.Append(ctx, sessionID, trackIDs, actorID)
	if err != nil {
		return nil, err
	}

	if session.State == model.StateIdle {
		now := s.now()
		if err := s.advance(ctx, session, now); err != nil {
			return nil, err
		}
		if err := s.sessions.Save(ctx, session); err != nil {
			return nil, err
		}
	}

	return items, nil
}

// Queue returns the session's pending items in playback order.
func (s *SessionService) Queue(ctx context.Context, sessionID string) ([]*model.QueueItem, error) {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	return s.queue.ListBySession(ctx, sessionID)
}

// RemoveQueueItem deletes one pending item; the remaining queue is renumbered
// back to a dense 1..N inside the repository's transaction.
func (s *SessionService) RemoveQueueItem(ctx context.Context, sessionID, itemID, actorID string) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}

	item, err := s.queue.Get(ctx, itemID)
	if err != nil {
		return err
	}
	if item == nil || item.SessionID != sessionID {
		return fmt.Errorf("%w: queue item %s", ErrNotFound, itemID)
	}

	inVC, err := s.oracle.IsInVoiceChannel(ctx, session.VoiceChannelID, actorID)
	if err != nil {
		return err
	}
	if !inVC {
		return fmt.Errorf("%w: you must be in the voice channel", ErrForbidden)
	}

	if err := s.queue.Remove(ctx, sessionID, itemID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%w: queue item %s", ErrNotFound, itemID)
		}
		return err
	}
	return nil
}

// SetPermission grants or revokes DJ-mode control for a profile. Only the
// session creator may change grants.
func (s *SessionService) SetPermission(ctx context.Context, sessionID, actorID, profileID string, canControl bool) error {
	session, err := s.sessions.GetByID(ctx, sessionID)
	if err != nil {
		return err
	}
	if session == nil {
		return fmt.Errorf("%w: session %s", ErrNotFound, sessionID)
	}
	if session.CreatedByID != actorID {
		return fmt.Errorf("%w: only the session creator can manage permissions", ErrForbidden)
	}
	return s.sessions.UpsertPermission(ctx, sessionID, profileID, canControl)
}

// stateOf assembles the full client-facing view for a session.
func (s *SessionService) stateOf(ctx context.Context, session *model.MusicSession) (*SessionState, error) {
	items, err := s.queue.ListBySession(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	now := s.now()
	return &SessionState{
		MusicSession:      session,
		Queue:             items,
		CurrentPositionMs: PositionAt(session, now),
		ServerTime:        now.UnixMilli(),
	}, nil
}

// numericValue coerces a decoded JSON value into a finite float64.
func numericValue(v interface{}) (float64, error) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	default:
		return 0, fmt.Errorf("value is not a number")
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("value is not finite")
	}
	return f, nil
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
