package runner

import (
	"bytes"
	"errors"
	"log"
	"sync"
	"testing"
	"time"

	"github.com/slimemax/keyboardsim/internal/script"
	"github.com/slimemax/keyboardsim/internal/stop"
)

// blockingTypist holds each iteration until released or stopped
type blockingTypist struct {
	sig     *stop.Signal
	release chan struct{}
	started chan struct{}
}

func (b *blockingTypist) Run(string) (script.Outcome, error) {
	b.started <- struct{}{}
	for {
		select {
		case <-b.release:
			return script.OutcomeCompleted, nil
		case <-time.After(5 * time.Millisecond):
			if b.sig.Requested() {
				return script.OutcomeCancelled, nil
			}
		}
	}
}

func newController(t *testing.T) (*Controller, *blockingTypist) {
	t.Helper()
	sig := stop.New()
	typist := &blockingTypist{sig: sig, release: make(chan struct{}), started: make(chan struct{}, 8)}
	s := NewScheduler(typist, sig, log.New(&bytes.Buffer{}, "", 0), WithSleeper(func(time.Duration) {}))
	return NewController(s, 16), typist
}

func waitStarted(t *testing.T, b *blockingTypist) {
	t.Helper()
	select {
	case <-b.started:
	case <-time.After(2 * time.Second):
		t.Fatal("Timed out waiting for the run to start typing")
	}
}

func TestControllerRejectsConcurrentRun(t *testing.T) {
	c, typist := newController(t)

	if err := c.Start(RunConfig{Script: "a", Loops: 1}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, typist)

	if err := c.Start(RunConfig{Script: "b", Loops: 1}); !errors.Is(err, ErrBusy) {
		t.Errorf("Expected ErrBusy, got %v", err)
	}
	if st := c.Status(); !st.Running || st.Phase != Typing {
		t.Errorf("Expected running in typing phase, got %+v", st)
	}

	close(typist.release)
	r := c.Wait()
	if r == nil || r.Phase != Done {
		t.Fatalf("Expected Done report, got %+v", r)
	}
	if c.Status().Running {
		t.Error("Expected controller to be idle")
	}

	if err := c.Start(RunConfig{Script: "c", Loops: 1}); err != nil {
		t.Errorf("Expected restart to succeed, got %v", err)
	}
	c.Wait()
}

func TestControllerStop(t *testing.T) {
	c, typist := newController(t)

	if err := c.Start(RunConfig{Script: "a", Loops: 3}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, typist)
	c.Stop()

	r := c.Wait()
	if r == nil || r.Phase != Aborted {
		t.Fatalf("Expected Aborted report, got %+v", r)
	}
	if st := c.Status(); st.Running || st.Phase != Aborted {
		t.Errorf("Expected idle aborted status, got %+v", st)
	}
}

func TestControllerStartClearsStop(t *testing.T) {
	c, typist := newController(t)
	c.Stop()

	if err := c.Start(RunConfig{Script: "a", Loops: 1}); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitStarted(t, typist)
	close(typist.release)

	if r := c.Wait(); r.Phase != Done {
		t.Errorf("Expected stale stop to be cleared, got %v", r.Phase)
	}
}

func TestControllerValidates(t *testing.T) {
	c, _ := newController(t)

	if err := c.Start(RunConfig{Script: "this script is far too long", Loops: 1}); err == nil {
		t.Error("Expected validation error")
	}
	if c.Status().Running {
		t.Error("Expected no run after validation failure")
	}
	if c.Wait() != nil {
		t.Error("Expected no report before any run")
	}
}

func TestControllerOnChange(t *testing.T) {
	c, typist := newController(t)
	var mu sync.Mutex
	var seen []Status
	c.OnChange(func(st Status) {
		mu.Lock()
		seen = append(seen, st)
		mu.Unlock()
	})

	c.Start(RunConfig{Script: "a", Loops: 1})
	waitStarted(t, typist)
	close(typist.release)
	c.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(seen) < 3 {
		t.Fatalf("Expected at least 3 updates, got %d", len(seen))
	}
	if !seen[0].Running {
		t.Error("Expected first update to be running")
	}
	last := seen[len(seen)-1]
	if last.Running || last.Phase != Done || last.Last == nil {
		t.Errorf("Expected final idle Done update, got %+v", last)
	}
}
