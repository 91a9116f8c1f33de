// Package input provides keyboard event injection for typing runs.
package input

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// Key is a logical key identity. Named keys use the token keywords; character
// keys are the printable ASCII character itself.
type Key string

// Named keys reachable from script tokens
const (
	KeyUp    Key = "up"
	KeyDown  Key = "down"
	KeyLeft  Key = "left"
	KeyRight Key = "right"
	KeyEnter Key = "enter"
	KeySpace Key = "space"
	KeyShift Key = "shift"
	KeyCtrl  Key = "ctrl"
	KeyAlt   Key = "alt"
)

// ErrNoKeyMapping is returned by an InputInjector when a key has no native event
var ErrNoKeyMapping = errors.New("no native key mapping")

// punctuation lists the printable characters accepted besides letters and digits
const punctuation = "!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"

// KeyForChar maps a literal script character to its key identity.
// Letters of either case and digits map to themselves, space maps to KeySpace
// and both line terminators map to KeyEnter.
func KeyForChar(r rune) (Key, bool) {
	switch {
	case r == '\n' || r == '\r':
		return KeyEnter, true
	case r == ' ':
		return KeySpace, true
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return Key(string(r)), true
	case r < utf8.RuneSelf && strings.ContainsRune(punctuation, r):
		return Key(string(r)), true
	}
	return "", false
}

// Char returns the character of a character key, or false for named keys
func (k Key) Char() (byte, bool) {
	if len(k) != 1 {
		return 0, false
	}
	return k[0], true
}

// Event is a single injected key transition
type Event struct {
	Key     Key  `json:"key"`
	Pressed bool `json:"pressed"`
}

// InputInjector defines the interface for delivering key transitions to the
// graphical session. Implementations are opened once at startup.
type InputInjector interface {
	InjectKey(key Key, pressed bool) error
	Close() error
}
