package player

import (
	"context"
	"time"

	"JamFM/core/music"
	"JamFM/logger"
)

// StateFetch retrieves the authoritative session state, typically from the
// state endpoint.
type StateFetch func(ctx context.Context) (*music.SessionState, error)

// Poller periodically re-fetches authoritative session state and feeds it to
// the manager. Clients preferring push can skip the poller and call
// Manager.Apply from their websocket reader instead; both paths honor the
// same position derivation.
type Poller struct {
	fetch    StateFetch
	manager  *Manager
	interval time.Duration
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewPoller creates a poller; Start begins the loop.
func NewPoller(fetch StateFetch, manager *Manager, interval time.Duration) *Poller {
	return &Poller{
		fetch:    fetch,
		manager:  manager,
		interval: interval,
	}
}

// Start launches the polling loop. Failed fetches are logged and retried on
// the next tick; the authoritative state always wins over optimistic local
// guesses.
func (p *Poller) Start() {
	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	p.done = make(chan struct{})

	go func() {
		defer close(p.done)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				state, err := p.fetch(ctx)
				if err != nil {
					logger.Debug("session state fetch failed", logger.ErrorField(err))
					continue
				}
				p.manager.Apply(FromSessionState(state))
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop tears the polling loop down.
func (p *Poller) Stop() {
	if p.cancel == nil {
		return
	}
	p.cancel()
	<-p.done
}

// FromSessionState projects a server state response onto the slice the
// manager mirrors.
func FromSessionState(s *music.SessionState) PlaybackState {
	return PlaybackState{
		State:     s.State,
		Track:     s.CurrentTrack,
		StartedAt: s.StartedAt,
		OffsetMs:  s.OffsetMs,
		Volume:    s.Volume,
	}
}
