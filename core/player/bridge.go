package player

import (
	"sync"
	"time"

	"JamFM/model"
)

// Command is one instruction forwarded to an embedded platform player.
type Command struct {
	Action string       `json:"action"` // load, play, pause, seek, volume
	Track  *model.Track `json:"track,omitempty"`
	Value  float64      `json:"value,omitempty"`
}

// CommandSink transports commands to wherever the platform's embedded player
// actually runs (typically a websocket to the rendering client).
type CommandSink interface {
	Send(cmd Command) error
}

// BridgeAdapter drives an embedded platform player through a CommandSink and
// mirrors the player's reported state. The embedded side calls ReportReady,
// ReportPosition and ReportEnded; between position reports CurrentTime
// extrapolates using the local clock while playing.
type BridgeAdapter struct {
	source model.TrackSource
	sink   CommandSink
	events chan Event
	now    func() time.Time

	mu         sync.Mutex
	playing    bool
	position   float64 // seconds, as last reported
	reportedAt time.Time
}

// NewBridgeAdapter creates an adapter for one platform over the given sink.
func NewBridgeAdapter(source model.TrackSource, sink CommandSink) *BridgeAdapter {
	return &BridgeAdapter{
		source: source,
		sink:   sink,
		events: make(chan Event, 8),
		now:    time.Now,
	}
}

// Source identifies which platform's tracks this adapter plays.
func (a *BridgeAdapter) Source() model.TrackSource {
	return a.source
}

// Load forwards the track to the embedded player and resets local state.
func (a *BridgeAdapter) Load(track *model.Track) error {
	a.mu.Lock()
	a.playing = false
	a.position = 0
	a.reportedAt = a.now()
	a.mu.Unlock()
	return a.sink.Send(Command{Action: "load", Track: track})
}

func (a *BridgeAdapter) Play() error {
	a.mu.Lock()
	a.playing = true
	a.reportedAt = a.now()
	a.mu.Unlock()
	return a.sink.Send(Command{Action: "play"})
}

func (a *BridgeAdapter) Pause() error {
	a.mu.Lock()
	if a.playing {
		a.position += a.now().Sub(a.reportedAt).Seconds()
		a.playing = false
	}
	a.mu.Unlock()
	return a.sink.Send(Command{Action: "pause"})
}

func (a *BridgeAdapter) SeekTo(seconds float64) error {
	a.mu.Lock()
	a.position = seconds
	a.reportedAt = a.now()
	a.mu.Unlock()
	return a.sink.Send(Command{Action: "seek", Value: seconds})
}

// CurrentTime returns the playback position in seconds, extrapolated from the
// last report while playing.
func (a *BridgeAdapter) CurrentTime() (float64, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.playing {
		return a.position + a.now().Sub(a.reportedAt).Seconds(), nil
	}
	return a.position, nil
}

func (a *BridgeAdapter) SetVolume(percent int) error {
	return a.sink.Send(Command{Action: "volume", Value: float64(percent)})
}

// Events delivers readiness and ended signals for this adapter.
func (a *BridgeAdapter) Events() <-chan Event {
	return a.events
}

// ReportReady is called by the embedded player once the loaded track can be
// controlled.
func (a *BridgeAdapter) ReportReady() {
	a.emit(Event{Source: a.source, Type: EventReady})
}

// ReportEnded is called by the embedded player when the track finished.
func (a *BridgeAdapter) ReportEnded() {
	a.mu.Lock()
	a.playing = false
	a.mu.Unlock()
	a.emit(Event{Source: a.source, Type: EventEnded})
}

// ReportPosition is called by the embedded player with its actual position.
func (a *BridgeAdapter) ReportPosition(seconds float64) {
	a.mu.Lock()
	a.position = seconds
	a.reportedAt = a.now()
	a.mu.Unlock()
}

func (a *BridgeAdapter) emit(ev Event) {
	select {
	case a.events <- ev:
	default:
		// A stalled consumer must not block player callbacks.
	}
}

// UnsupportedAdapter satisfies the adapter contract for platforms without a
// feasible programmatic control surface. Every command reports
// ErrUnsupportedBackend; the session state machine never learns which
// backend is in play.
type UnsupportedAdapter struct {
	source model.TrackSource
	events chan Event
}

// NewUnsupportedAdapter creates the degraded stub for one platform.
func NewUnsupportedAdapter(source model.TrackSource) *UnsupportedAdapter {
	return &UnsupportedAdapter{
		source: source,
		events: make(chan Event, 1),
	}
}

func (a *UnsupportedAdapter) Source() model.TrackSource { return a.source }

// Load reports readiness immediately so the manager does not wait on a
// backend that will never answer.
func (a *UnsupportedAdapter) Load(track *model.Track) error {
	select {
	case a.events <- Event{Source: a.source, Type: EventReady}:
	default:
	}
	return nil
}

func (a *UnsupportedAdapter) Play() error                  { return ErrUnsupportedBackend }
func (a *UnsupportedAdapter) Pause() error                 { return ErrUnsupportedBackend }
func (a *UnsupportedAdapter) SeekTo(seconds float64) error { return ErrUnsupportedBackend }
func (a *UnsupportedAdapter) CurrentTime() (float64, error) {
	return 0, ErrUnsupportedBackend
}
func (a *UnsupportedAdapter) SetVolume(percent int) error { return ErrUnsupportedBackend }
func (a *UnsupportedAdapter) Events() <-chan Event        { return a.events }
