// Package runner drives typing runs: the start delay, the repeated script
// iterations and the delay between them, all abortable through a shared
// stop signal.
package runner

import (
	"fmt"
	"log"
	"time"

	"github.com/slimemax/keyboardsim/internal/script"
	"github.com/slimemax/keyboardsim/internal/stop"
)

// DefaultStep is the delay polling increment
const DefaultStep = 50 * time.Millisecond

// Phase is a scheduler state. Done, Aborted and Failed are terminal.
type Phase int

const (
	Idle Phase = iota
	StartDelay
	Typing
	LoopDelay
	Done
	Aborted
	Failed
)

var phaseNames = map[Phase]string{
	Idle:       "idle",
	StartDelay: "start-delay",
	Typing:     "typing",
	LoopDelay:  "loop-delay",
	Done:       "done",
	Aborted:    "aborted",
	Failed:     "failed",
}

func (p Phase) String() string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return fmt.Sprintf("phase(%d)", int(p))
}

// MarshalText renders the phase name in JSON
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText parses a phase name
func (p *Phase) UnmarshalText(text []byte) error {
	for phase, name := range phaseNames {
		if name == string(text) {
			*p = phase
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Terminal reports whether the phase ends a run
func (p Phase) Terminal() bool {
	return p == Done || p == Aborted || p == Failed
}

// Report summarizes a finished run
type Report struct {
	Phase      Phase `json:"phase"`
	Iterations int   `json:"iterations"`
	LoopDelays int   `json:"loop_delays"`
	Err        error `json:"-"`
}

// Typist types one iteration of a script
type Typist interface {
	Run(text string) (script.Outcome, error)
}

// Scheduler runs a RunConfig against a Typist
type Scheduler struct {
	typist  Typist
	stop    *stop.Signal
	logger  *log.Logger
	step    time.Duration
	sleep   stop.Sleeper
	onPhase func(phase Phase, iteration int)
}

// Option configures a Scheduler
type Option func(*Scheduler)

// WithSleeper replaces time.Sleep for delays
func WithSleeper(fn stop.Sleeper) Option {
	return func(s *Scheduler) { s.sleep = fn }
}

// WithStep sets the delay polling increment
func WithStep(d time.Duration) Option {
	return func(s *Scheduler) { s.step = d }
}

// NewScheduler creates a scheduler
func NewScheduler(typist Typist, sig *stop.Signal, logger *log.Logger, opts ...Option) *Scheduler {
	s := &Scheduler{
		typist: typist,
		stop:   sig,
		logger: logger,
		step:   DefaultStep,
		sleep:  time.Sleep,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signal returns the stop signal the scheduler polls
func (s *Scheduler) Signal() *stop.Signal {
	return s.stop
}

// Run clears the stop signal and executes cfg to completion or abort
func (s *Scheduler) Run(cfg RunConfig) Report {
	s.stop.Reset()
	return s.execute(cfg)
}

// execute runs cfg without touching the stop signal first
func (s *Scheduler) execute(cfg RunConfig) Report {
	cfg = cfg.Normalize()
	s.logger.Printf("Scheduler: StartDelay=%d, LoopDelay=%d, Loops=%d, text=%q",
		cfg.StartDelayMs, cfg.LoopDelayMs, cfg.Loops, cfg.Script)

	var r Report
	if cfg.StartDelayMs > 0 {
		s.enter(StartDelay, 0)
		s.logger.Printf("Scheduler: Sleeping %d ms before typing...", cfg.StartDelayMs)
		if s.wait(cfg.StartDelayMs) {
			s.logger.Printf("Scheduler: Aborted before typing began.")
			return s.finish(r, Aborted)
		}
	}

	for i := 0; i < cfg.Loops; i++ {
		if s.stop.Requested() {
			break
		}

		s.enter(Typing, i)
		s.logger.Printf("Scheduler: Loop %d/%d begin", i+1, cfg.Loops)
		outcome, err := s.typist.Run(cfg.Script)
		switch outcome {
		case script.OutcomeCancelled:
			s.logger.Printf("Scheduler: Loop interrupted at loop %d/%d", i+1, cfg.Loops)
			return s.finish(r, Aborted)
		case script.OutcomeFailed:
			r.Err = err
			return s.finish(r, Failed)
		}
		r.Iterations++
		s.logger.Printf("Scheduler: Loop %d/%d done", i+1, cfg.Loops)

		if i < cfg.Loops-1 && cfg.LoopDelayMs > 0 && !s.stop.Requested() {
			s.enter(LoopDelay, i)
			s.logger.Printf("Scheduler: Sleeping %d ms before next loop...", cfg.LoopDelayMs)
			r.LoopDelays++
			if s.wait(cfg.LoopDelayMs) {
				s.logger.Printf("Scheduler: Aborted between loops at loop %d/%d", i+1, cfg.Loops)
				return s.finish(r, Aborted)
			}
		}
	}

	if s.stop.Requested() {
		return s.finish(r, Aborted)
	}
	return s.finish(r, Done)
}

func (s *Scheduler) wait(ms int) bool {
	return s.stop.Wait(time.Duration(ms)*time.Millisecond, s.step, s.sleep)
}

func (s *Scheduler) finish(r Report, phase Phase) Report {
	r.Phase = phase
	switch phase {
	case Done:
		s.logger.Printf("Scheduler: All loops completed successfully.")
	case Aborted:
		s.logger.Printf("Scheduler: Stopped by user.")
	case Failed:
		s.logger.Printf("Scheduler: Run failed: %v", r.Err)
	}
	s.enter(phase, r.Iterations)
	return r
}

func (s *Scheduler) enter(p Phase, iteration int) {
	if s.onPhase != nil {
		s.onPhase(p, iteration)
	}
}
