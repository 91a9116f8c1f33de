package input

import (
	"fmt"
	"sync"
)

// Recorder is an InputInjector that records key transitions instead of delivering
// them. It backs -dry-run and the engine tests.
type Recorder struct {
	mu       sync.Mutex
	events   []Event
	unmapped map[Key]bool
	onInject func(Event)
}

var _ InputInjector = (*Recorder)(nil)

// NewRecorder creates a recorder. Keys listed in unmapped fail with
// ErrNoKeyMapping, as a native injector would for a key it cannot translate.
func NewRecorder(unmapped ...Key) *Recorder {
	r := &Recorder{unmapped: make(map[Key]bool)}
	for _, k := range unmapped {
		r.unmapped[k] = true
	}
	return r
}

// OnInject registers a callback run after every recorded event
func (r *Recorder) OnInject(fn func(Event)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onInject = fn
}

// InjectKey records the transition
func (r *Recorder) InjectKey(key Key, pressed bool) error {
	r.mu.Lock()
	if r.unmapped[key] {
		r.mu.Unlock()
		return fmt.Errorf("%w: %q", ErrNoKeyMapping, key)
	}
	ev := Event{Key: key, Pressed: pressed}
	r.events = append(r.events, ev)
	fn := r.onInject
	r.mu.Unlock()

	if fn != nil {
		fn(ev)
	}
	return nil
}

// Events returns a copy of the recorded transitions
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Event, len(r.events))
	copy(out, r.events)
	return out
}

// Reset discards recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}

// Close is a no-op
func (r *Recorder) Close() error {
	return nil
}
