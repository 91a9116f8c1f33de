// Package token recognizes the bracketed control tokens of a typing script:
//
//	{up} {down} {left} {right} {enter} {shift} {ctrl} {alt} {space}
//	{<keyword>:<ms>}   hold the key for ms milliseconds
//	{message<N>}       splice in line N of the message table
//
// Anything else starting with '{' is not a token; the caller types the brace
// literally and carries on scanning from the next character.
package token

import (
	"fmt"
	"log"
	"math"
	"strconv"
	"strings"

	"github.com/slimemax/keyboardsim/internal/input"
)

// Kind distinguishes token variants
type Kind int

const (
	// KindKey presses or holds a named key
	KindKey Kind = iota + 1
	// KindSubstitution splices in a message line
	KindSubstitution
)

const (
	openDelim     = '{'
	closeDelim    = "}"
	holdSep       = ":"
	messageMarker = "message"

	// maxDigits bounds a digit run, as the fixed parse buffer did
	maxDigits = 31
)

// maxHoldMs keeps a hold within int on 32-bit targets (about 24.8 days)
const maxHoldMs = math.MaxInt32

// keywords in match priority order
var keywords = []struct {
	name string
	key  input.Key
}{
	{"up", input.KeyUp},
	{"down", input.KeyDown},
	{"left", input.KeyLeft},
	{"right", input.KeyRight},
	{"enter", input.KeyEnter},
	{"shift", input.KeyShift},
	{"ctrl", input.KeyCtrl},
	{"alt", input.KeyAlt},
	{"space", input.KeySpace},
}

// Token is a recognized control token
type Token struct {
	Kind Kind

	// Key action fields. Hold is set for the {kw:N} form; HoldMs is N.
	Key    input.Key
	Hold   bool
	HoldMs int

	// Substitution fields. Text is the resolved line.
	Index int
	Text  string
}

// String renders the token in script syntax
func (t Token) String() string {
	switch t.Kind {
	case KindKey:
		if t.Hold {
			return fmt.Sprintf("{%s:%d}", t.Key, t.HoldMs)
		}
		return fmt.Sprintf("{%s}", t.Key)
	case KindSubstitution:
		return fmt.Sprintf("{%s%d}", messageMarker, t.Index)
	}
	return ""
}

// Resolver supplies the lines named by substitution tokens
type Resolver interface {
	Lookup(n int) (string, error)
	Len() int
}

// Lexer recognizes tokens at a position in a script
type Lexer struct {
	lines  Resolver
	logger *log.Logger
}

// NewLexer creates a lexer resolving substitutions against lines
func NewLexer(lines Resolver, logger *log.Logger) *Lexer {
	return &Lexer{lines: lines, logger: logger}
}

// Lex reports whether a well-formed token starts at text[pos]. It returns
// the token and the number of bytes it spans, delimiters included, or a
// zero length when no token starts there.
func (l *Lexer) Lex(text string, pos int) (Token, int) {
	if pos < 0 || pos >= len(text) || text[pos] != openDelim {
		return Token{}, 0
	}
	rest := text[pos+1:]

	if body, ok := strings.CutPrefix(rest, messageMarker); ok {
		return l.lexSubstitution(body)
	}

	for _, kw := range keywords {
		after, ok := strings.CutPrefix(rest, kw.name)
		if !ok {
			continue
		}
		if strings.HasPrefix(after, closeDelim) {
			return Token{Kind: KindKey, Key: kw.key}, len(kw.name) + 2
		}
		if hold, ok := strings.CutPrefix(after, holdSep); ok {
			digits := digitRun(hold)
			if !validRun(digits) || !strings.HasPrefix(hold[len(digits):], closeDelim) {
				continue
			}
			ms, err := strconv.ParseInt(digits, 10, 64)
			if err != nil || ms > maxHoldMs {
				continue
			}
			return Token{Kind: KindKey, Key: kw.key, Hold: true, HoldMs: int(ms)},
				len(kw.name) + len(digits) + 3
		}
	}
	return Token{}, 0
}

// lexSubstitution handles the text after "{message"
func (l *Lexer) lexSubstitution(body string) (Token, int) {
	digits := digitRun(body)
	if !validRun(digits) || !strings.HasPrefix(body[len(digits):], closeDelim) {
		return Token{}, 0
	}
	consumed := len(messageMarker) + len(digits) + 2

	count := 0
	if l.lines != nil {
		count = l.lines.Len()
	}
	n, err := strconv.Atoi(digits)
	if err != nil || n < 1 || n > count {
		l.logger.Printf("Lexer: WARN {%s%s} out of range (1..%d)", messageMarker, digits, count)
		return Token{}, 0
	}
	line, err := l.lines.Lookup(n)
	if err != nil {
		l.logger.Printf("Lexer: WARN {%s%s} could not be resolved: %v", messageMarker, digits, err)
		return Token{}, 0
	}

	l.logger.Printf("Lexer: Found token {%s%s} => line %d: %q", messageMarker, digits, n, line)
	return Token{Kind: KindSubstitution, Index: n, Text: line}, consumed
}

// digitRun returns the leading ASCII decimal digits of s
func digitRun(s string) string {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return s[:i]
}

func validRun(digits string) bool {
	return len(digits) > 0 && len(digits) <= maxDigits
}
