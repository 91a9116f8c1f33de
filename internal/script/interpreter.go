// Package script walks a typing script left to right and emits its
// literal characters and control tokens as key events.
package script

import (
	"errors"
	"fmt"
	"log"
	"time"
	"unicode/utf8"

	"github.com/slimemax/keyboardsim/internal/input"
	"github.com/slimemax/keyboardsim/internal/stop"
	"github.com/slimemax/keyboardsim/internal/token"
)

const (
	// DefaultMaxDepth bounds nested {messageN} expansion
	DefaultMaxDepth = 16

	// DefaultCharDelay is the pause after each literal character
	DefaultCharDelay = 30 * time.Millisecond
)

// ErrDepthExceeded is returned when substitutions nest deeper than the
// configured ceiling, usually because a line refers back to itself
var ErrDepthExceeded = errors.New("substitution depth exceeded")

// State is the interpreter's position in its scan cycle
type State int

const (
	Scanning State = iota
	EmittingLiteral
	EmittingToken
	Expanding
	Stopped
)

func (s State) String() string {
	switch s {
	case Scanning:
		return "scanning"
	case EmittingLiteral:
		return "emitting-literal"
	case EmittingToken:
		return "emitting-token"
	case Expanding:
		return "expanding"
	case Stopped:
		return "stopped"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Outcome tells the caller how a run ended
type Outcome int

const (
	// OutcomeCompleted means the cursor reached the end of the script
	OutcomeCompleted Outcome = iota
	// OutcomeCancelled means a stop request was observed
	OutcomeCancelled
	// OutcomeFailed means the run hit the substitution depth ceiling
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeCompleted:
		return "completed"
	case OutcomeCancelled:
		return "cancelled"
	case OutcomeFailed:
		return "failed"
	}
	return fmt.Sprintf("outcome(%d)", int(o))
}

// Interpreter executes scripts against an Emitter
type Interpreter struct {
	lexer     *token.Lexer
	emitter   *input.Emitter
	stop      *stop.Signal
	logger    *log.Logger
	maxDepth  int
	charDelay time.Duration
	onState   func(state State, depth int)
}

// Option configures an Interpreter
type Option func(*Interpreter)

// WithMaxDepth sets the substitution nesting ceiling
func WithMaxDepth(n int) Option {
	return func(in *Interpreter) { in.maxDepth = n }
}

// WithCharDelay sets the pause after each literal character
func WithCharDelay(d time.Duration) Option {
	return func(in *Interpreter) { in.charDelay = d }
}

// WithStateHook registers an observer for state transitions
func WithStateHook(fn func(state State, depth int)) Option {
	return func(in *Interpreter) { in.onState = fn }
}

// New creates an interpreter
func New(lexer *token.Lexer, emitter *input.Emitter, sig *stop.Signal, logger *log.Logger, opts ...Option) *Interpreter {
	in := &Interpreter{
		lexer:     lexer,
		emitter:   emitter,
		stop:      sig,
		logger:    logger,
		maxDepth:  DefaultMaxDepth,
		charDelay: DefaultCharDelay,
	}
	for _, opt := range opts {
		opt(in)
	}
	return in
}

// Run types text. The stop signal is polled before every character and
// token; a hold or character pause in progress polls it on its own, and a
// hold still releases its key.
// The error is non-nil only for OutcomeFailed.
func (in *Interpreter) Run(text string) (Outcome, error) {
	return in.run(text, 0)
}

func (in *Interpreter) run(text string, depth int) (Outcome, error) {
	if depth > in.maxDepth {
		in.logger.Printf("Interpreter: ERROR substitution nested deeper than %d, giving up", in.maxDepth)
		return OutcomeFailed, fmt.Errorf("%w: limit %d", ErrDepthExceeded, in.maxDepth)
	}

	pos := 0
	for pos < len(text) {
		in.enter(Scanning, depth)
		if in.stop.Requested() {
			in.enter(Stopped, depth)
			return OutcomeCancelled, nil
		}

		tok, n := in.lexer.Lex(text, pos)
		if n == 0 {
			r, size := utf8.DecodeRuneInString(text[pos:])
			in.enter(EmittingLiteral, depth)
			in.typeChar(r)
			pos += size
			if in.emitter.Pause(in.charDelay) {
				in.enter(Stopped, depth)
				return OutcomeCancelled, nil
			}
			continue
		}

		switch tok.Kind {
		case token.KindKey:
			in.enter(EmittingToken, depth)
			if tok.Hold && tok.HoldMs > 0 {
				in.logger.Printf("Interpreter: Holding %s for %d ms", tok.Key, tok.HoldMs)
				if in.emitter.HoldFor(tok.Key, tok.HoldMs) {
					in.enter(Stopped, depth)
					return OutcomeCancelled, nil
				}
			} else {
				in.logger.Printf("Interpreter: Quick press %s", tok.Key)
				in.emitter.PressAndRelease(tok.Key)
			}

		case token.KindSubstitution:
			in.enter(Expanding, depth)
			in.logger.Printf("Interpreter: Insert line => %q", tok.Text)
			outcome, err := in.run(tok.Text, depth+1)
			if outcome != OutcomeCompleted {
				if outcome == OutcomeCancelled {
					in.enter(Stopped, depth)
				}
				return outcome, err
			}
		}
		pos += n
	}
	return OutcomeCompleted, nil
}

// typeChar emits one literal character, or skips it with a warning when no
// key produces it
func (in *Interpreter) typeChar(r rune) {
	in.logger.Printf("Interpreter: Sending char %q", r)
	key, ok := input.KeyForChar(r)
	if !ok {
		in.logger.Printf("Interpreter: WARN No key for %q (U+%04X), skipped", r, r)
		return
	}
	in.emitter.PressAndRelease(key)
}

func (in *Interpreter) enter(s State, depth int) {
	if in.onState != nil {
		in.onState(s, depth)
	}
}
