package player

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seekRecorder struct {
	mu        sync.Mutex
	positions []int64
}

func (r *seekRecorder) emit(positionMs int64) {
	r.mu.Lock()
	r.positions = append(r.positions, positionMs)
	r.mu.Unlock()
}

func (r *seekRecorder) emitted() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]int64, len(r.positions))
	copy(out, r.positions)
	return out
}

func TestSeekDebouncerCoalescesScrubs(t *testing.T) {
	rec := &seekRecorder{}
	d := NewSeekDebouncer(30*time.Millisecond, rec.emit)
	defer d.Stop()

	// rapid scrubbing keeps restarting the window
	d.Seek(1000)
	d.Seek(2000)
	d.Seek(5000)

	assert.Empty(t, rec.emitted(), "nothing may fire inside the window")

	require.Eventually(t, func() bool {
		return len(rec.emitted()) == 1
	}, time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{5000}, rec.emitted(), "only the final position reaches the server")
}

func TestSeekDebouncerSeparateWindows(t *testing.T) {
	rec := &seekRecorder{}
	d := NewSeekDebouncer(10*time.Millisecond, rec.emit)
	defer d.Stop()

	d.Seek(1000)
	require.Eventually(t, func() bool { return len(rec.emitted()) == 1 }, time.Second, 2*time.Millisecond)

	d.Seek(2000)
	require.Eventually(t, func() bool { return len(rec.emitted()) == 2 }, time.Second, 2*time.Millisecond)

	assert.Equal(t, []int64{1000, 2000}, rec.emitted())
}

func TestSeekDebouncerFlush(t *testing.T) {
	rec := &seekRecorder{}
	d := NewSeekDebouncer(time.Hour, rec.emit)
	defer d.Stop()

	d.Seek(7500)
	d.Flush()

	assert.Equal(t, []int64{7500}, rec.emitted())

	// flushing again with nothing pending is a no-op
	d.Flush()
	assert.Equal(t, []int64{7500}, rec.emitted())
}

func TestSeekDebouncerStopCancelsPending(t *testing.T) {
	rec := &seekRecorder{}
	d := NewSeekDebouncer(10*time.Millisecond, rec.emit)

	d.Seek(4000)
	d.Stop()

	time.Sleep(30 * time.Millisecond)
	assert.Empty(t, rec.emitted())

	// a stopped debouncer swallows further scrubs too
	d.Seek(9000)
	d.Flush()
	assert.Empty(t, rec.emitted())
}
