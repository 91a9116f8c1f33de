package input

import (
	"errors"
	"log"
	"time"

	"github.com/slimemax/keyboardsim/internal/stop"
)

const (
	// DefaultSettle is the pause after each key transition
	DefaultSettle = 30 * time.Millisecond

	// DefaultStep is the hold polling increment and the stop latency bound
	DefaultStep = 50 * time.Millisecond
)

// Emitter converts logical key actions into injected down/up pairs.
// A key that went down is always released before an Emitter call returns.
type Emitter struct {
	injector InputInjector
	stop     *stop.Signal
	logger   *log.Logger
	settle   time.Duration
	step     time.Duration
	sleep    stop.Sleeper
}

// EmitterOption configures an Emitter
type EmitterOption func(*Emitter)

// WithSleeper replaces time.Sleep, letting tests run on a virtual clock
func WithSleeper(fn stop.Sleeper) EmitterOption {
	return func(e *Emitter) { e.sleep = fn }
}

// WithSettle sets the pause after each key transition
func WithSettle(d time.Duration) EmitterOption {
	return func(e *Emitter) { e.settle = d }
}

// WithStep sets the hold polling increment
func WithStep(d time.Duration) EmitterOption {
	return func(e *Emitter) { e.step = d }
}

// NewEmitter creates an emitter delivering through injector
func NewEmitter(injector InputInjector, sig *stop.Signal, logger *log.Logger, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		injector: injector,
		stop:     sig,
		logger:   logger,
		settle:   DefaultSettle,
		step:     DefaultStep,
		sleep:    time.Sleep,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// PressAndRelease performs a quick press: down, settle, up, settle.
// It is never interrupted between the two transitions.
func (e *Emitter) PressAndRelease(key Key) {
	if err := e.injector.InjectKey(key, true); err != nil {
		e.warn(key, "down", err)
		return
	}
	e.sleep(e.settle)

	if err := e.injector.InjectKey(key, false); err != nil {
		e.warn(key, "up", err)
	}
	e.sleep(e.settle)
}

// HoldFor presses key and keeps it down for up to durationMs, polling the
// stop signal after every increment. The release is unconditional. It
// returns true if the hold was cut short by a stop request.
func (e *Emitter) HoldFor(key Key, durationMs int) bool {
	if err := e.injector.InjectKey(key, true); err != nil {
		e.warn(key, "down", err)
		return e.stop.Requested()
	}

	cancelled := e.stop.Wait(time.Duration(durationMs)*time.Millisecond, e.step, e.sleep)

	if err := e.injector.InjectKey(key, false); err != nil {
		e.warn(key, "up", err)
	}
	e.sleep(e.settle)
	return cancelled
}

// Pause sleeps for d in polled increments and reports whether a stop was
// requested meanwhile
func (e *Emitter) Pause(d time.Duration) bool {
	return e.stop.Wait(d, e.step, e.sleep)
}

func (e *Emitter) warn(key Key, edge string, err error) {
	if errors.Is(err, ErrNoKeyMapping) {
		e.logger.Printf("Emitter: WARN no native key for %q (%s), skipped", key, edge)
		return
	}
	e.logger.Printf("Emitter: WARN inject %q (%s) failed: %v", key, edge, err)
}
