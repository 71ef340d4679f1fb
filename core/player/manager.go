package player

import (
	"context"
	"math"
	"sync"
	"time"

	"JamFM/logger"
	"JamFM/model"
)

// PlaybackState is the slice of authoritative session state the manager
// mirrors locally.
type PlaybackState struct {
	State     model.PlaybackState
	Track     *model.Track
	StartedAt *time.Time
	OffsetMs  int64
	Volume    int
}

// positionMsAt derives the expected logical position, the same rule the
// server uses for its state responses.
func (s PlaybackState) positionMsAt(now time.Time) int64 {
	if s.State == model.StatePlaying && s.StartedAt != nil {
		return s.OffsetMs + now.Sub(*s.StartedAt).Milliseconds()
	}
	return s.OffsetMs
}

// SkipFunc asks the session to advance to the next track (auto-advance on
// track end). Failures are logged, never retried; a retry could double-skip.
type SkipFunc func(ctx context.Context) error

// Manager routes session state transitions to the adapter matching the
// current track's platform and keeps the local renderer aligned with the
// shared playback clock.
//
// A readiness gate holds transport commands back until the active adapter
// has signalled readiness for the loaded track. While locally playing, a
// periodic reconciliation loop compares the adapter's actual position with
// the derived expected position and forces a seek when the drift exceeds the
// threshold. Drift correction only touches the local adapter, never the
// server's clock anchor.
type Manager struct {
	adapters  map[model.TrackSource]Adapter
	skip      SkipFunc
	interval  time.Duration
	threshold time.Duration
	now       func() time.Time

	mu     sync.Mutex
	state  PlaybackState
	active Adapter
	ready  bool

	events chan Event
	done   chan struct{}
	wg     sync.WaitGroup
}

// ManagerOption customizes a Manager.
type ManagerOption func(*Manager)

// WithSyncInterval overrides the reconciliation period.
func WithSyncInterval(d time.Duration) ManagerOption {
	return func(m *Manager) { m.interval = d }
}

// WithDriftThreshold overrides the tolerated drift before a corrective seek.
func WithDriftThreshold(d time.Duration) ManagerOption {
	return func(m *Manager) { m.threshold = d }
}

// WithClock overrides the wall clock, for tests.
func WithClock(now func() time.Time) ManagerOption {
	return func(m *Manager) { m.now = now }
}

// NewManager starts a playback manager over the given adapters. Close must
// be called on teardown so no timer or goroutine outlives the session view.
func NewManager(adapters []Adapter, skip SkipFunc, opts ...ManagerOption) *Manager {
	m := &Manager{
		adapters:  make(map[model.TrackSource]Adapter, len(adapters)),
		skip:      skip,
		interval:  5 * time.Second,
		threshold: 500 * time.Millisecond,
		now:       time.Now,
		events:    make(chan Event, 16),
		done:      make(chan struct{}),
	}
	for _, a := range adapters {
		m.adapters[a.Source()] = a
	}
	for _, opt := range opts {
		opt(m)
	}

	// Fan adapter events into one channel; stale sources are filtered at
	// consumption so a track change simply drops interest in the old one.
	for _, a := range m.adapters {
		m.wg.Add(1)
		go m.forward(a)
	}
	m.wg.Add(1)
	go m.run()
	return m
}

// Apply feeds the manager a fresh authoritative session state, from polling
// or a push channel.
func (m *Manager) Apply(state PlaybackState) {
	m.mu.Lock()
	defer m.mu.Unlock()

	prev := m.state
	m.state = state

	if trackID(prev.Track) != trackID(state.Track) {
		// Track changed: drop the old adapter and wait for the new one's
		// readiness before any transport command.
		m.ready = false
		m.active = nil
		if state.Track == nil {
			return
		}
		adapter, ok := m.adapters[state.Track.Source]
		if !ok {
			logger.Warn("no adapter for track source",
				logger.String("source", string(state.Track.Source)),
				logger.String("trackId", state.Track.ID))
			return
		}
		m.active = adapter
		if err := adapter.Load(state.Track); err != nil {
			logger.Warn("adapter load failed",
				logger.String("source", string(state.Track.Source)),
				logger.ErrorField(err))
		}
		return
	}

	if !m.ready || m.active == nil {
		return
	}
	if state.Volume != prev.Volume {
		if err := m.active.SetVolume(state.Volume); err != nil {
			logger.Debug("adapter volume change failed", logger.ErrorField(err))
		}
	}
	// Transport commands go out only when the transport state or the clock
	// anchor moved. A refresh that confirms the current state must not touch
	// the adapter; small drift is the reconcile loop's thresholded concern.
	if transportChanged(prev, state) {
		m.applyTransportLocked()
	}
}

// transportChanged reports whether the transport state or clock anchor
// differs between two snapshots.
func transportChanged(prev, next PlaybackState) bool {
	if prev.State != next.State || prev.OffsetMs != next.OffsetMs {
		return true
	}
	switch {
	case prev.StartedAt == nil && next.StartedAt == nil:
		return false
	case prev.StartedAt == nil || next.StartedAt == nil:
		return true
	default:
		return !prev.StartedAt.Equal(*next.StartedAt)
	}
}

// Close tears the manager down: the reconciliation ticker stops and all
// forwarder goroutines exit.
func (m *Manager) Close() {
	close(m.done)
	m.wg.Wait()
}

func (m *Manager) forward(a Adapter) {
	defer m.wg.Done()
	for {
		select {
		case ev := <-a.Events():
			select {
			case m.events <- ev:
			case <-m.done:
				return
			}
		case <-m.done:
			return
		}
	}
}

func (m *Manager) run() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case ev := <-m.events:
			m.handleEvent(ev)
		case <-ticker.C:
			m.reconcile()
		case <-m.done:
			return
		}
	}
}

func (m *Manager) handleEvent(ev Event) {
	m.mu.Lock()
	if m.active == nil || ev.Source != m.active.Source() {
		m.mu.Unlock()
		return
	}

	switch ev.Type {
	case EventReady:
		m.ready = true
		if err := m.active.SetVolume(m.state.Volume); err != nil {
			logger.Debug("adapter volume init failed", logger.ErrorField(err))
		}
		m.applyTransportLocked()
		m.mu.Unlock()

	case EventEnded:
		m.mu.Unlock()
		logger.Info("track ended, requesting skip")
		if err := m.skip(context.Background()); err != nil {
			logger.Warn("auto-skip failed", logger.ErrorField(err))
		}

	default:
		m.mu.Unlock()
	}
}

// applyTransportLocked pushes the current transport state into the active
// adapter. Callers hold m.mu.
func (m *Manager) applyTransportLocked() {
	switch m.state.State {
	case model.StatePlaying:
		seconds := float64(m.state.positionMsAt(m.now())) / 1000
		if err := m.active.SeekTo(seconds); err != nil {
			logger.Debug("adapter seek failed", logger.ErrorField(err))
		}
		if err := m.active.Play(); err != nil {
			logger.Debug("adapter play failed", logger.ErrorField(err))
		}
	case model.StatePaused:
		if err := m.active.Pause(); err != nil {
			logger.Debug("adapter pause failed", logger.ErrorField(err))
		}
	}
}

// reconcile is the periodic drift check: while playing, force the adapter
// back onto the derived position when it wandered past the threshold.
func (m *Manager) reconcile() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.ready || m.active == nil || m.state.State != model.StatePlaying {
		return
	}

	expectedMs := m.state.positionMsAt(m.now())
	actualSec, err := m.active.CurrentTime()
	if err != nil {
		return
	}
	driftMs := math.Abs(actualSec*1000 - float64(expectedMs))
	if driftMs <= float64(m.threshold.Milliseconds()) {
		return
	}

	logger.Debug("playback drift detected, resyncing",
		logger.Float64("driftMs", driftMs),
		logger.Int64("expectedMs", expectedMs))
	if err := m.active.SeekTo(float64(expectedMs) / 1000); err != nil {
		logger.Debug("drift correction seek failed", logger.ErrorField(err))
	}
}

func trackID(t *model.Track) string {
	if t == nil {
		return ""
	}
	return t.ID
}
