package player

import (
	"sync"
	"time"
)

// SeekFunc emits one coalesced seek control action.
type SeekFunc func(positionMs int64)

// SeekDebouncer coalesces a stream of scrub positions so at most one seek
// control action reaches the server per debounce window. Every new position
// replaces the pending one and restarts the window; the on-screen position
// is the caller's optimistic concern, only emission is suspended here.
type SeekDebouncer struct {
	window time.Duration
	emit   SeekFunc

	mu      sync.Mutex
	timer   *time.Timer
	pending int64
	armed   bool
	stopped bool
}

// NewSeekDebouncer creates a debouncer with the given window.
func NewSeekDebouncer(window time.Duration, emit SeekFunc) *SeekDebouncer {
	return &SeekDebouncer{window: window, emit: emit}
}

// Seek records the latest scrub position and restarts the window.
func (d *SeekDebouncer) Seek(positionMs int64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	d.pending = positionMs
	d.armed = true
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, d.fire)
}

// Flush emits any pending seek immediately and disarms the timer.
func (d *SeekDebouncer) Flush() {
	d.mu.Lock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	if !d.armed || d.stopped {
		d.mu.Unlock()
		return
	}
	d.armed = false
	pos := d.pending
	d.mu.Unlock()
	d.emit(pos)
}

// Stop cancels any pending emission permanently. Used on view teardown so no
// timer outlives the session panel.
func (d *SeekDebouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.armed = false
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *SeekDebouncer) fire() {
	d.mu.Lock()
	if !d.armed || d.stopped {
		d.mu.Unlock()
		return
	}
	d.armed = false
	pos := d.pending
	d.mu.Unlock()
	d.emit(pos)
}
