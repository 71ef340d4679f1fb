package player

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JamFM/core/music"
	"JamFM/model"
)

func TestPollerFeedsManager(t *testing.T) {
	adapter := newFakeAdapter(model.SourceYouTube)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager([]Adapter{adapter}, noSkip,
		WithSyncInterval(time.Hour),
		WithClock(func() time.Time { return now }))
	defer m.Close()

	fetch := func(ctx context.Context) (*music.SessionState, error) {
		return &music.SessionState{
			MusicSession: &model.MusicSession{
				ID:           "session-1",
				State:        model.StatePlaying,
				CurrentTrack: testTrack("t1", model.SourceYouTube),
				StartedAt:    &now,
				Volume:       100,
			},
		}, nil
	}

	p := NewPoller(fetch, m, 10*time.Millisecond)
	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool {
		return adapter.has("load:t1")
	}, time.Second, 5*time.Millisecond)
}

func TestPollerRetriesAfterFetchFailure(t *testing.T) {
	adapter := newFakeAdapter(model.SourceYouTube)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager([]Adapter{adapter}, noSkip,
		WithSyncInterval(time.Hour),
		WithClock(func() time.Time { return now }))
	defer m.Close()

	var calls atomic.Int32
	fetch := func(ctx context.Context) (*music.SessionState, error) {
		if calls.Add(1) < 3 {
			return nil, fmt.Errorf("state endpoint unavailable")
		}
		return &music.SessionState{
			MusicSession: &model.MusicSession{
				ID:           "session-1",
				State:        model.StatePlaying,
				CurrentTrack: testTrack("t1", model.SourceYouTube),
				StartedAt:    &now,
				Volume:       100,
			},
		}, nil
	}

	p := NewPoller(fetch, m, 10*time.Millisecond)
	p.Start()
	defer p.Stop()

	require.Eventually(t, func() bool {
		return adapter.has("load:t1")
	}, time.Second, 5*time.Millisecond)
	assert.GreaterOrEqual(t, calls.Load(), int32(3))
}

func TestPollerStopIsIdempotentBeforeStart(t *testing.T) {
	p := NewPoller(nil, nil, time.Second)
	p.Stop()
}

func TestFromSessionStateProjection(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	state := &music.SessionState{
		MusicSession: &model.MusicSession{
			State:        model.StatePaused,
			CurrentTrack: testTrack("t9", model.SourceSpotify),
			StartedAt:    &now,
			OffsetMs:     12345,
			Volume:       60,
		},
	}

	got := FromSessionState(state)
	assert.Equal(t, model.StatePaused, got.State)
	assert.Equal(t, "t9", got.Track.ID)
	assert.Equal(t, int64(12345), got.OffsetMs)
	assert.Equal(t, 60, got.Volume)
	assert.Equal(t, &now, got.StartedAt)
}
