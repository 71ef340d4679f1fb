package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"JamFM/core/music"
	"JamFM/model"
)

func setupTestCache(t *testing.T) (*SessionCache, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	return NewSessionCache(client, 30*time.Second), mr
}

func sampleState(sessionID string) *music.SessionState {
	startedAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	trackID := "track-1"
	return &music.SessionState{
		MusicSession: &model.MusicSession{
			ID:             sessionID,
			ServerID:       "server-1",
			VoiceChannelID: "voice-1",
			State:          model.StatePlaying,
			CurrentTrackID: &trackID,
			StartedAt:      &startedAt,
			OffsetMs:       42000,
			Volume:         80,
			LoopMode:       model.LoopOff,
			CreatedByID:    "creator-1",
		},
		Queue:             []*model.QueueItem{},
		CurrentPositionMs: 42000,
		ServerTime:        startedAt.UnixMilli(),
	}
}

func TestPutAndGetState(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	state := sampleState("session-1")
	require.NoError(t, cache.PutState(ctx, state))

	got, err := cache.GetState(ctx, "session-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, "session-1", got.ID)
	assert.Equal(t, model.StatePlaying, got.State)
	assert.Equal(t, int64(42000), got.OffsetMs)
	assert.Equal(t, 80, got.Volume)
	require.NotNil(t, got.CurrentTrackID)
	assert.Equal(t, "track-1", *got.CurrentTrackID)
	assert.Equal(t, int64(42000), got.CurrentPositionMs)
}

func TestGetStateMiss(t *testing.T) {
	cache, _ := setupTestCache(t)

	got, err := cache.GetState(context.Background(), "no-such-session")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestStateExpires(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutState(ctx, sampleState("session-1")))
	mr.FastForward(time.Minute)

	got, err := cache.GetState(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, got, "expired snapshots read as a miss")
}

func TestInvalidate(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx := context.Background()

	require.NoError(t, cache.PutState(ctx, sampleState("session-1")))
	require.NoError(t, cache.Invalidate(ctx, "session-1"))

	got, err := cache.GetState(ctx, "session-1")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestPublishStateReachesSubscriber(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := cache.Subscribe(ctx, "session-1")

	// subscription setup is asynchronous inside go-redis
	time.Sleep(50 * time.Millisecond)

	state := sampleState("session-1")
	state.OffsetMs = 99000
	cache.PublishState(ctx, state)

	select {
	case got := <-updates:
		require.NotNil(t, got)
		assert.Equal(t, "session-1", got.ID)
		assert.Equal(t, int64(99000), got.OffsetMs)
	case <-time.After(2 * time.Second):
		t.Fatal("published state never reached the subscriber")
	}

	// the snapshot is also cached for poll reads
	cached, err := cache.GetState(context.Background(), "session-1")
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, int64(99000), cached.OffsetMs)
}

func TestSubscribeScopedToSession(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := cache.Subscribe(ctx, "session-1")
	time.Sleep(50 * time.Millisecond)

	cache.PublishState(ctx, sampleState("session-2"))

	select {
	case got := <-updates:
		t.Fatalf("received state for a different session: %s", got.ID)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscribeSkipsMalformedPayload(t *testing.T) {
	cache, mr := setupTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates := cache.Subscribe(ctx, "session-1")
	time.Sleep(50 * time.Millisecond)

	mr.Publish("music:session:session-1:events", "{not json")
	cache.PublishState(ctx, sampleState("session-1"))

	select {
	case got := <-updates:
		require.NotNil(t, got, "the valid snapshot survives a garbage payload before it")
		assert.Equal(t, "session-1", got.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("valid state never arrived after a malformed payload")
	}
}

func TestSubscribeClosesOnCancel(t *testing.T) {
	cache, _ := setupTestCache(t)
	ctx, cancel := context.WithCancel(context.Background())

	updates := cache.Subscribe(ctx, "session-1")
	cancel()

	select {
	case _, ok := <-updates:
		assert.False(t, ok, "channel must close after cancellation")
	case <-time.After(2 * time.Second):
		t.Fatal("subscription channel did not close")
	}
}
