package music

import (
	"time"

	"JamFM/model"
)

// PositionAt derives the logical playback position of a session at the given
// wall-clock instant. This is the single derivation rule shared by server
// responses and by every client's drift-correction loop: while playing the
// position is OffsetMs plus the elapsed time since StartedAt, otherwise it is
// OffsetMs exactly.
func PositionAt(s *model.MusicSession, now time.Time) int64 {
	if s.State == model.StatePlaying && s.StartedAt != nil {
		return s.OffsetMs + now.Sub(*s.StartedAt).Milliseconds()
	}
	return s.OffsetMs
}
