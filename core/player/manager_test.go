package player

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JamFM/model"
)

// fakeAdapter records every command it receives and lets tests feed events
// back through the adapter's channel.
type fakeAdapter struct {
	source model.TrackSource
	events chan Event

	mu       sync.Mutex
	calls    []string
	position float64
}

func newFakeAdapter(source model.TrackSource) *fakeAdapter {
	return &fakeAdapter{
		source: source,
		events: make(chan Event, 8),
	}
}

func (a *fakeAdapter) record(call string) {
	a.mu.Lock()
	a.calls = append(a.calls, call)
	a.mu.Unlock()
}

func (a *fakeAdapter) recorded() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.calls))
	copy(out, a.calls)
	return out
}

func (a *fakeAdapter) has(call string) bool {
	for _, c := range a.recorded() {
		if c == call {
			return true
		}
	}
	return false
}

func (a *fakeAdapter) setPosition(seconds float64) {
	a.mu.Lock()
	a.position = seconds
	a.mu.Unlock()
}

func (a *fakeAdapter) Source() model.TrackSource { return a.source }

func (a *fakeAdapter) Load(track *model.Track) error {
	a.record("load:" + track.ID)
	return nil
}

func (a *fakeAdapter) Play() error  { a.record("play"); return nil }
func (a *fakeAdapter) Pause() error { a.record("pause"); return nil }

func (a *fakeAdapter) SeekTo(seconds float64) error {
	a.record(fmt.Sprintf("seek:%.1f", seconds))
	return nil
}

func (a *fakeAdapter) CurrentTime() (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.position, nil
}

func (a *fakeAdapter) SetVolume(percent int) error {
	a.record(fmt.Sprintf("volume:%d", percent))
	return nil
}

func (a *fakeAdapter) Events() <-chan Event { return a.events }

func (a *fakeAdapter) emitReady() {
	a.events <- Event{Source: a.source, Type: EventReady}
}

func (a *fakeAdapter) emitEnded() {
	a.events <- Event{Source: a.source, Type: EventEnded}
}

func testTrack(id string, source model.TrackSource) *model.Track {
	return &model.Track{ID: id, Source: source, SourceID: "src-" + id, Title: "Track " + id}
}

func noSkip(ctx context.Context) error { return nil }

func playingState(track *model.Track, startedAt time.Time, offsetMs int64) PlaybackState {
	return PlaybackState{
		State:     model.StatePlaying,
		Track:     track,
		StartedAt: &startedAt,
		OffsetMs:  offsetMs,
		Volume:    100,
	}
}

func TestManagerHoldsCommandsUntilReady(t *testing.T) {
	adapter := newFakeAdapter(model.SourceYouTube)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager([]Adapter{adapter}, noSkip,
		WithSyncInterval(time.Hour),
		WithClock(func() time.Time { return now }))
	defer m.Close()

	track := testTrack("t1", model.SourceYouTube)
	m.Apply(playingState(track, now, 0))

	assert.Equal(t, []string{"load:t1"}, adapter.recorded(),
		"only load may reach the adapter before readiness")

	adapter.emitReady()

	require.Eventually(t, func() bool {
		return adapter.has("play")
	}, time.Second, 5*time.Millisecond)
	assert.True(t, adapter.has("volume:100"))
	assert.True(t, adapter.has("seek:0.0"))
}

func TestManagerIgnoresUnknownSource(t *testing.T) {
	adapter := newFakeAdapter(model.SourceYouTube)
	m := NewManager([]Adapter{adapter}, noSkip, WithSyncInterval(time.Hour))
	defer m.Close()

	// no adapter registered for this platform; must not panic or call anyone
	m.Apply(PlaybackState{
		State: model.StatePlaying,
		Track: testTrack("t1", model.SourceSoundCloud),
	})

	assert.Empty(t, adapter.recorded())
}

func TestManagerAppliesPauseAfterReady(t *testing.T) {
	adapter := newFakeAdapter(model.SourceYouTube)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager([]Adapter{adapter}, noSkip,
		WithSyncInterval(time.Hour),
		WithClock(func() time.Time { return now }))
	defer m.Close()

	track := testTrack("t1", model.SourceYouTube)
	m.Apply(playingState(track, now, 0))
	adapter.emitReady()
	require.Eventually(t, func() bool { return adapter.has("play") }, time.Second, 5*time.Millisecond)

	m.Apply(PlaybackState{
		State:    model.StatePaused,
		Track:    track,
		OffsetMs: 30000,
		Volume:   100,
	})

	assert.True(t, adapter.has("pause"))
}

func TestManagerSkipsOnTrackEnd(t *testing.T) {
	adapter := newFakeAdapter(model.SourceYouTube)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	skipped := make(chan struct{}, 1)
	skip := func(ctx context.Context) error {
		skipped <- struct{}{}
		return nil
	}

	m := NewManager([]Adapter{adapter}, skip,
		WithSyncInterval(time.Hour),
		WithClock(func() time.Time { return now }))
	defer m.Close()

	m.Apply(playingState(testTrack("t1", model.SourceYouTube), now, 0))
	adapter.emitReady()
	require.Eventually(t, func() bool { return adapter.has("play") }, time.Second, 5*time.Millisecond)

	adapter.emitEnded()

	select {
	case <-skipped:
	case <-time.After(time.Second):
		t.Fatal("track end did not trigger a skip")
	}
}

func TestManagerCorrectsDrift(t *testing.T) {
	adapter := newFakeAdapter(model.SourceYouTube)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	m := NewManager([]Adapter{adapter}, noSkip,
		WithSyncInterval(10*time.Millisecond),
		WithDriftThreshold(500*time.Millisecond),
		WithClock(func() time.Time { return now }))
	defer m.Close()

	adapter.setPosition(10)
	m.Apply(playingState(testTrack("t1", model.SourceYouTube), now, 10000))
	adapter.emitReady()
	require.Eventually(t, func() bool { return adapter.has("play") }, time.Second, 5*time.Millisecond)

	// expected position is 10s; the renderer wandered to 13s
	adapter.setPosition(13)

	require.Eventually(t, func() bool {
		// the corrective seek targets the derived position
		count := 0
		for _, c := range adapter.recorded() {
			if c == "seek:10.0" {
				count++
			}
		}
		return count >= 2 // once on ready, once as drift correction
	}, time.Second, 5*time.Millisecond)
}

func TestManagerToleratesSmallDrift(t *testing.T) {
	adapter := newFakeAdapter(model.SourceYouTube)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	m := NewManager([]Adapter{adapter}, noSkip,
		WithSyncInterval(10*time.Millisecond),
		WithDriftThreshold(500*time.Millisecond),
		WithClock(func() time.Time { return now }))
	defer m.Close()

	adapter.setPosition(10)
	m.Apply(playingState(testTrack("t1", model.SourceYouTube), now, 10000))
	adapter.emitReady()
	require.Eventually(t, func() bool { return adapter.has("play") }, time.Second, 5*time.Millisecond)

	// 300ms of drift sits inside the threshold
	adapter.setPosition(10.3)
	time.Sleep(50 * time.Millisecond)

	count := 0
	for _, c := range adapter.recorded() {
		if c == "seek:10.0" {
			count++
		}
	}
	assert.Equal(t, 1, count, "in-threshold drift must not trigger a corrective seek")
}

func TestManagerIgnoresUnchangedSnapshots(t *testing.T) {
	adapter := newFakeAdapter(model.SourceYouTube)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	m := NewManager([]Adapter{adapter}, noSkip,
		WithSyncInterval(time.Hour),
		WithClock(func() time.Time { return now }))
	defer m.Close()

	track := testTrack("t1", model.SourceYouTube)
	startedAt := now
	m.Apply(playingState(track, startedAt, 5000))
	adapter.emitReady()
	require.Eventually(t, func() bool { return adapter.has("play") }, time.Second, 5*time.Millisecond)

	// a poll refresh confirming the same state must not reach the adapter
	for i := 0; i < 3; i++ {
		m.Apply(playingState(track, startedAt, 5000))
	}

	count := func(call string) int {
		n := 0
		for _, c := range adapter.recorded() {
			if c == call {
				n++
			}
		}
		return n
	}
	assert.Equal(t, 1, count("play"), "identical snapshots must not replay transport")
	assert.Equal(t, 1, count("seek:5.0"), "identical snapshots must not reseek")

	// a moved clock anchor is a real seek and goes through once
	m.Apply(playingState(track, startedAt, 90000))
	assert.Equal(t, 1, count("seek:90.0"))
	assert.Equal(t, 2, count("play"))
}

func TestManagerSwitchesAdapterOnTrackChange(t *testing.T) {
	yt := newFakeAdapter(model.SourceYouTube)
	up := newFakeAdapter(model.SourceUploaded)
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	m := NewManager([]Adapter{yt, up}, noSkip,
		WithSyncInterval(time.Hour),
		WithClock(func() time.Time { return now }))
	defer m.Close()

	m.Apply(playingState(testTrack("t1", model.SourceYouTube), now, 0))
	yt.emitReady()
	require.Eventually(t, func() bool { return yt.has("play") }, time.Second, 5*time.Millisecond)

	m.Apply(playingState(testTrack("t2", model.SourceUploaded), now, 0))

	require.Eventually(t, func() bool { return up.has("load:t2") }, time.Second, 5*time.Millisecond)

	// a stale ready from the old adapter must be ignored now
	yt.emitReady()
	up.emitReady()
	require.Eventually(t, func() bool { return up.has("play") }, time.Second, 5*time.Millisecond)
}
