package music

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"JamFM/model"
)

func TestPositionAt(t *testing.T) {
	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("playing adds elapsed to offset", func(t *testing.T) {
		s := &model.MusicSession{
			State:     model.StatePlaying,
			StartedAt: &started,
			OffsetMs:  15000,
		}
		assert.Equal(t, int64(15000), PositionAt(s, started))
		assert.Equal(t, int64(22500), PositionAt(s, started.Add(7500*time.Millisecond)))
	})

	t.Run("paused is frozen at offset", func(t *testing.T) {
		s := &model.MusicSession{
			State:    model.StatePaused,
			OffsetMs: 15000,
		}
		assert.Equal(t, int64(15000), PositionAt(s, started.Add(time.Hour)))
	})

	t.Run("idle stays at zero", func(t *testing.T) {
		s := &model.MusicSession{State: model.StateIdle}
		assert.Equal(t, int64(0), PositionAt(s, started))
	})

	t.Run("playing without anchor falls back to offset", func(t *testing.T) {
		s := &model.MusicSession{
			State:    model.StatePlaying,
			OffsetMs: 3000,
		}
		assert.Equal(t, int64(3000), PositionAt(s, started))
	})
}
