package runner

import (
	"errors"
	"sync"
)

// ErrBusy is returned by Start while a run is in progress
var ErrBusy = errors.New("a run is already in progress")

// Status is a snapshot of the controller
type Status struct {
	Running   bool    `json:"running"`
	Phase     Phase   `json:"phase"`
	Iteration int     `json:"iteration"`
	Loops     int     `json:"loops"`
	Last      *Report `json:"last,omitempty"`
	LastError string  `json:"last_error,omitempty"`
}

// Controller runs at most one RunConfig at a time on a background goroutine.
// Stop requests may come from any goroutine.
type Controller struct {
	sched     *Scheduler
	maxScript int

	mu       sync.Mutex
	status   Status
	done     chan struct{}
	onChange []func(Status)
}

// NewController wraps a scheduler. Scripts longer than maxScript bytes are
// refused; zero disables the limit.
func NewController(s *Scheduler, maxScript int) *Controller {
	c := &Controller{sched: s, maxScript: maxScript}
	s.onPhase = c.phaseChanged
	return c
}

// OnChange registers a callback invoked after every status change
func (c *Controller) OnChange(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Start validates cfg and begins a run. It returns ErrBusy if one is
// already running.
func (c *Controller) Start(cfg RunConfig) error {
	if err := cfg.Validate(c.maxScript); err != nil {
		return err
	}

	c.mu.Lock()
	if c.status.Running {
		c.mu.Unlock()
		return ErrBusy
	}
	// Cleared under the lock so a Stop issued right after Start returns is kept.
	c.sched.stop.Reset()
	done := make(chan struct{})
	c.done = done
	c.status = Status{Running: true, Phase: Idle, Loops: cfg.Loops, Last: c.status.Last}
	c.mu.Unlock()
	c.notify()

	go func() {
		r := c.sched.execute(cfg)
		c.mu.Lock()
		c.status.Running = false
		c.status.Phase = r.Phase
		c.status.Last = &r
		c.status.LastError = ""
		if r.Err != nil {
			c.status.LastError = r.Err.Error()
		}
		c.mu.Unlock()
		c.notify()
		close(done)
	}()
	return nil
}

// Stop requests the current run to end. It is a no-op when idle.
func (c *Controller) Stop() {
	c.sched.stop.Request()
}

// Status returns the current snapshot
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// Wait blocks until the current run, if any, has finished and returns the
// latest report.
func (c *Controller) Wait() *Report {
	c.mu.Lock()
	done := c.done
	c.mu.Unlock()
	if done != nil {
		<-done
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status.Last
}

func (c *Controller) phaseChanged(p Phase, iteration int) {
	if p.Terminal() {
		return
	}
	c.mu.Lock()
	c.status.Phase = p
	c.status.Iteration = iteration + 1
	c.mu.Unlock()
	c.notify()
}

func (c *Controller) notify() {
	c.mu.Lock()
	st := c.status
	callbacks := append([]func(Status){}, c.onChange...)
	c.mu.Unlock()
	for _, fn := range callbacks {
		fn(st)
	}
}
