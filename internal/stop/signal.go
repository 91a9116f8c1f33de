// Package stop provides the shared cancellation flag polled by a typing run.
package stop

import (
	"sync/atomic"
	"time"
)

// Signal is a stop request flag. It is written by control surfaces (UI,
// API, hotkeys, tray) and read by the run goroutine at every unit boundary.
type Signal struct {
	requested atomic.Bool
}

// New creates a cleared signal
func New() *Signal {
	return &Signal{}
}

// Request asks the in-flight run to stop
func (s *Signal) Request() {
	s.requested.Store(true)
}

// Requested reports whether a stop has been requested since the last Reset
func (s *Signal) Requested() bool {
	return s.requested.Load()
}

// Reset clears the flag. Only the scheduler calls this, at the start of a run.
func (s *Signal) Reset() {
	s.requested.Store(false)
}

// Sleeper pauses the calling goroutine. Production code passes time.Sleep;
// tests substitute a virtual clock.
type Sleeper func(time.Duration)

// Wait sleeps for d in slices of at most step, checking the signal before
// each slice. It returns true if a stop was observed, which bounds the
// stop latency to a single slice.
func (s *Signal) Wait(d, step time.Duration, sleep Sleeper) bool {
	if step <= 0 {
		step = d
	}
	for d > 0 && !s.Requested() {
		slice := min(step, d)
		sleep(slice)
		d -= slice
	}
	return s.Requested()
}
