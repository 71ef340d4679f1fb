package player

import (
	"errors"

	"JamFM/model"
)

// ErrUnsupportedBackend is returned by adapters whose platform offers no
// programmatic control surface (e.g. requires end-user OAuth). Such adapters
// still satisfy the contract instead of crashing the manager.
var ErrUnsupportedBackend = errors.New("backend does not support programmatic playback")

// EventType classifies adapter lifecycle events.
type EventType int

const (
	// EventReady fires when the adapter can accept transport commands for
	// the currently loaded track.
	EventReady EventType = iota
	// EventEnded fires when the loaded track played to its end.
	EventEnded
)

// Event is an adapter lifecycle notification.
type Event struct {
	Source model.TrackSource
	Type   EventType
}

// Adapter is the uniform capability contract one external media backend
// implements. The playback manager is polymorphic over this set: adding a
// backend means adding one adapter, session logic never changes.
type Adapter interface {
	// Source identifies which platform's tracks this adapter plays.
	Source() model.TrackSource

	// Load prepares the adapter for a track. Readiness is signalled
	// asynchronously through Events.
	Load(track *model.Track) error

	Play() error
	Pause() error
	SeekTo(seconds float64) error
	CurrentTime() (float64, error)
	SetVolume(percent int) error

	// Events delivers readiness and ended signals for this adapter.
	Events() <-chan Event
}
