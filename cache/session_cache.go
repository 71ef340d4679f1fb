package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"JamFM/core/music"
	"JamFM/logger"
)

// SessionCache mirrors authoritative session state into Redis so state
// polls can be served without a database round trip, and fans state
// changes out to listeners over pub/sub.
type SessionCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSessionCache(client *redis.Client, ttl time.Duration) *SessionCache {
	return &SessionCache{client: client, ttl: ttl}
}

// sessionKey 生成会话状态的Redis键
func sessionKey(sessionID string) string {
	return fmt.Sprintf("music:session:%s", sessionID)
}

// sessionChannel 生成会话事件的发布频道
func sessionChannel(sessionID string) string {
	return fmt.Sprintf("music:session:%s:events", sessionID)
}

// PutState stores a state snapshot under the session key.
func (c *SessionCache) PutState(ctx context.Context, state *music.SessionState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("failed to marshal session state: %w", err)
	}

	if err := c.client.Set(ctx, sessionKey(state.ID), data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to cache session state: %w", err)
	}
	return nil
}

// GetState returns the cached snapshot, or (nil, nil) on a miss.
func (c *SessionCache) GetState(ctx context.Context, sessionID string) (*music.SessionState, error) {
	data, err := c.client.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read cached session state: %w", err)
	}

	var state music.SessionState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached session state: %w", err)
	}
	return &state, nil
}

// Invalidate drops the cached snapshot for a session.
func (c *SessionCache) Invalidate(ctx context.Context, sessionID string) error {
	return c.client.Del(ctx, sessionKey(sessionID)).Err()
}

// PublishState caches the snapshot and notifies subscribers. A publish
// failure is logged but not returned; the authoritative write already
// succeeded.
func (c *SessionCache) PublishState(ctx context.Context, state *music.SessionState) {
	if err := c.PutState(ctx, state); err != nil {
		logger.Warn("session state cache write failed",
			logger.String("sessionId", state.ID),
			logger.ErrorField(err))
	}

	data, err := json.Marshal(state)
	if err != nil {
		logger.Warn("session state marshal failed", logger.ErrorField(err))
		return
	}

	if err := c.client.Publish(ctx, sessionChannel(state.ID), data).Err(); err != nil {
		logger.Warn("session state publish failed",
			logger.String("sessionId", state.ID),
			logger.ErrorField(err))
	}
}

// Subscribe returns a channel of state snapshots for one session. The
// channel closes when ctx is cancelled. Malformed payloads are skipped.
func (c *SessionCache) Subscribe(ctx context.Context, sessionID string) <-chan *music.SessionState {
	sub := c.client.Subscribe(ctx, sessionChannel(sessionID))
	out := make(chan *music.SessionState, 8)

	go func() {
		defer close(out)
		defer sub.Close()

		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var state music.SessionState
				if err := json.Unmarshal([]byte(msg.Payload), &state); err != nil {
					logger.Warn("dropping malformed session event",
						logger.String("sessionId", sessionID),
						logger.ErrorField(err))
					continue
				}
				select {
				case out <- &state:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out
}
