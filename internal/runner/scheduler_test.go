package runner

import (
	"bytes"
	"encoding/json"
	"errors"
	"log"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/slimemax/keyboardsim/internal/input"
	"github.com/slimemax/keyboardsim/internal/lines"
	"github.com/slimemax/keyboardsim/internal/script"
	"github.com/slimemax/keyboardsim/internal/stop"
	"github.com/slimemax/keyboardsim/internal/token"
)

// fakeTypist returns queued outcomes, then completes
type fakeTypist struct {
	outcomes []script.Outcome
	err      error
	calls    []string
}

func (f *fakeTypist) Run(text string) (script.Outcome, error) {
	f.calls = append(f.calls, text)
	if len(f.outcomes) == 0 {
		return script.OutcomeCompleted, nil
	}
	o := f.outcomes[0]
	f.outcomes = f.outcomes[1:]
	if o == script.OutcomeFailed {
		return o, f.err
	}
	return o, nil
}

type clock struct {
	elapsed time.Duration
	onSleep func(elapsed time.Duration)
}

func (c *clock) sleep(d time.Duration) {
	c.elapsed += d
	if c.onSleep != nil {
		c.onSleep(c.elapsed)
	}
}

func newScheduler(typist Typist) (*Scheduler, *clock, *bytes.Buffer) {
	c := &clock{}
	logs := &bytes.Buffer{}
	s := NewScheduler(typist, stop.New(), log.New(logs, "", 0), WithSleeper(c.sleep))
	return s, c, logs
}

func TestSingleLoopSkipsLoopDelay(t *testing.T) {
	typist := &fakeTypist{}
	s, c, logs := newScheduler(typist)

	r := s.Run(RunConfig{Script: "abc", StartDelayMs: 3000, LoopDelayMs: 2000, Loops: 1})

	if r.Phase != Done {
		t.Errorf("Expected Done, got %v", r.Phase)
	}
	if r.Iterations != 1 || r.LoopDelays != 0 {
		t.Errorf("Expected 1 iteration and 0 loop delays, got %d and %d", r.Iterations, r.LoopDelays)
	}
	if c.elapsed != 3000*time.Millisecond {
		t.Errorf("Expected only the start delay to elapse, got %v", c.elapsed)
	}
	if !strings.Contains(logs.String(), "Scheduler: All loops completed successfully.") {
		t.Errorf("Expected completion log, got:\n%s", logs.String())
	}
}

func TestLoopDelayBetweenIterations(t *testing.T) {
	typist := &fakeTypist{}
	s, c, logs := newScheduler(typist)

	r := s.Run(RunConfig{Script: "x", LoopDelayMs: 100, Loops: 4})

	if r.Iterations != 4 {
		t.Errorf("Expected 4 iterations, got %d", r.Iterations)
	}
	if r.LoopDelays != 3 {
		t.Errorf("Expected 3 loop delays, got %d", r.LoopDelays)
	}
	if c.elapsed != 300*time.Millisecond {
		t.Errorf("Expected 300ms of loop delay, got %v", c.elapsed)
	}
	for _, want := range []string{"Loop 1/4 begin", "Loop 4/4 done"} {
		if !strings.Contains(logs.String(), want) {
			t.Errorf("Expected log %q, got:\n%s", want, logs.String())
		}
	}
}

func TestZeroLoopDelayIsSkipped(t *testing.T) {
	s, c, _ := newScheduler(&fakeTypist{})

	r := s.Run(RunConfig{Script: "x", Loops: 3})

	if r.LoopDelays != 0 || c.elapsed != 0 {
		t.Errorf("Expected no delays, got %d delays and %v elapsed", r.LoopDelays, c.elapsed)
	}
}

func TestAbortDuringStartDelay(t *testing.T) {
	typist := &fakeTypist{}
	s, c, logs := newScheduler(typist)
	c.onSleep = func(elapsed time.Duration) {
		if elapsed >= time.Second {
			s.Signal().Request()
		}
	}

	r := s.Run(RunConfig{Script: "abc", StartDelayMs: 3000, Loops: 5})

	if r.Phase != Aborted {
		t.Errorf("Expected Aborted, got %v", r.Phase)
	}
	if len(typist.calls) != 0 {
		t.Errorf("Expected no typing, got %d iterations", len(typist.calls))
	}
	if c.elapsed > time.Second+DefaultStep {
		t.Errorf("Expected abort within one step, took %v", c.elapsed)
	}
	out := logs.String()
	if !strings.Contains(out, "Scheduler: Aborted before typing began.") || !strings.Contains(out, "Scheduler: Stopped by user.") {
		t.Errorf("Expected abort logs, got:\n%s", out)
	}
}

func TestAbortDuringLoopDelay(t *testing.T) {
	typist := &fakeTypist{}
	s, c, _ := newScheduler(typist)
	c.onSleep = func(elapsed time.Duration) {
		if elapsed >= 200*time.Millisecond {
			s.Signal().Request()
		}
	}

	r := s.Run(RunConfig{Script: "x", LoopDelayMs: 1000, Loops: 3})

	if r.Phase != Aborted || r.Iterations != 1 {
		t.Errorf("Expected Aborted after 1 iteration, got %v after %d", r.Phase, r.Iterations)
	}
}

func TestCancelledIterationAborts(t *testing.T) {
	typist := &fakeTypist{outcomes: []script.Outcome{script.OutcomeCompleted, script.OutcomeCancelled}}
	s, _, logs := newScheduler(typist)

	r := s.Run(RunConfig{Script: "x", Loops: 5})

	if r.Phase != Aborted {
		t.Errorf("Expected Aborted, got %v", r.Phase)
	}
	if r.Iterations != 1 || len(typist.calls) != 2 {
		t.Errorf("Expected 1 completed of 2 started, got %d of %d", r.Iterations, len(typist.calls))
	}
	if !strings.Contains(logs.String(), "Loop interrupted at loop 2/5") {
		t.Errorf("Expected interruption log, got:\n%s", logs.String())
	}
}

func TestFailedIterationReportsError(t *testing.T) {
	boom := errors.New("boom")
	typist := &fakeTypist{outcomes: []script.Outcome{script.OutcomeFailed}, err: boom}
	s, _, logs := newScheduler(typist)

	r := s.Run(RunConfig{Script: "x", Loops: 3})

	if r.Phase != Failed {
		t.Errorf("Expected Failed, got %v", r.Phase)
	}
	if !errors.Is(r.Err, boom) {
		t.Errorf("Expected boom, got %v", r.Err)
	}
	if !strings.Contains(logs.String(), "Scheduler: Run failed: boom") {
		t.Errorf("Expected failure log, got:\n%s", logs.String())
	}
}

func TestRunClearsStaleStop(t *testing.T) {
	typist := &fakeTypist{}
	s, _, _ := newScheduler(typist)
	s.Signal().Request()

	r := s.Run(RunConfig{Script: "x", Loops: 2})

	if r.Phase != Done || r.Iterations != 2 {
		t.Errorf("Expected Done after 2 iterations, got %v after %d", r.Phase, r.Iterations)
	}
}

func TestPhaseSequence(t *testing.T) {
	s, _, _ := newScheduler(&fakeTypist{})
	var got []Phase
	s.onPhase = func(p Phase, _ int) { got = append(got, p) }

	s.Run(RunConfig{Script: "x", StartDelayMs: 10, LoopDelayMs: 10, Loops: 2})

	want := []Phase{StartDelay, Typing, LoopDelay, Typing, Done}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Phase mismatch (-want +got):\n%s", diff)
	}
}

func TestSchedulerWithInterpreter(t *testing.T) {
	rec := input.NewRecorder()
	sig := stop.New()
	logger := log.New(&bytes.Buffer{}, "", 0)
	noSleep := func(time.Duration) {}
	emitter := input.NewEmitter(rec, sig, logger, input.WithSleeper(noSleep))
	interp := script.New(token.NewLexer(lines.New(nil, 0), logger), emitter, sig, logger)
	s := NewScheduler(interp, sig, logger, WithSleeper(noSleep))

	r := s.Run(RunConfig{Script: "Hi{enter}", Loops: 2})

	if r.Phase != Done {
		t.Fatalf("Expected Done, got %v (%v)", r.Phase, r.Err)
	}
	if len(rec.Events()) != 12 {
		t.Errorf("Expected 12 events, got %d", len(rec.Events()))
	}
}

func TestSchedulerDepthFailure(t *testing.T) {
	rec := input.NewRecorder()
	sig := stop.New()
	logger := log.New(&bytes.Buffer{}, "", 0)
	noSleep := func(time.Duration) {}
	emitter := input.NewEmitter(rec, sig, logger, input.WithSleeper(noSleep))
	table := lines.New([]string{"{message1}"}, 0)
	interp := script.New(token.NewLexer(table, logger), emitter, sig, logger, script.WithMaxDepth(2))
	s := NewScheduler(interp, sig, logger, WithSleeper(noSleep))

	r := s.Run(RunConfig{Script: "{message1}", Loops: 3})

	if r.Phase != Failed || !errors.Is(r.Err, script.ErrDepthExceeded) {
		t.Errorf("Expected depth failure, got %v (%v)", r.Phase, r.Err)
	}
	if r.Iterations != 0 {
		t.Errorf("Expected no completed iterations, got %d", r.Iterations)
	}
}

func TestStopDuringFinalHoldAborts(t *testing.T) {
	rec := input.NewRecorder()
	sig := stop.New()
	logs := &bytes.Buffer{}
	logger := log.New(logs, "", 0)
	c := &clock{onSleep: func(elapsed time.Duration) {
		if elapsed >= 2000*time.Millisecond {
			sig.Request()
		}
	}}
	emitter := input.NewEmitter(rec, sig, logger, input.WithSleeper(c.sleep))
	interp := script.New(token.NewLexer(lines.New(nil, 0), logger), emitter, sig, logger)
	s := NewScheduler(interp, sig, logger, WithSleeper(c.sleep))

	r := s.Run(RunConfig{Script: "{down:5000}", Loops: 1})

	if r.Phase != Aborted {
		t.Errorf("Expected Aborted, got %v", r.Phase)
	}
	if r.Iterations != 0 {
		t.Errorf("Expected 0 iterations, got %d", r.Iterations)
	}
	if strings.Contains(logs.String(), "Loop 1/1 done") {
		t.Errorf("Expected no loop completion log, got:\n%s", logs.String())
	}
	if !strings.Contains(logs.String(), "Scheduler: Loop interrupted at loop 1/1") {
		t.Errorf("Expected interruption log, got:\n%s", logs.String())
	}
}

func TestPhaseJSON(t *testing.T) {
	data, err := json.Marshal(Report{Phase: LoopDelay, Iterations: 2})
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if string(data) != `{"phase":"loop-delay","iterations":2,"loop_delays":0}` {
		t.Errorf("Unexpected JSON: %s", data)
	}
	if Phase(42).String() != "phase(42)" {
		t.Errorf("Expected fallback name, got %s", Phase(42))
	}
}

func TestPhaseRoundTrip(t *testing.T) {
	var p Phase
	if err := p.UnmarshalText([]byte("typing")); err != nil || p != Typing {
		t.Errorf("Expected typing, got %v (%v)", p, err)
	}
	if err := p.UnmarshalText([]byte("sleeping")); err == nil {
		t.Error("Expected error for unknown phase")
	}
}
