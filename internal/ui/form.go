package ui

import (
	"strconv"

	"github.com/slimemax/keyboardsim/internal/config"
	"github.com/slimemax/keyboardsim/internal/runner"
)

// numericWidth is the most digits a numeric field holds
const numericWidth = 15

// Field identifies one of the four operator fields
type Field int

const (
	FieldScript Field = iota
	FieldStartDelay
	FieldLoopDelay
	FieldLoops
	fieldCount
)

var fieldLabels = [fieldCount]string{
	"Text to type:",
	"Start Delay (ms):",
	"Loop Delay (ms):",
	"Loops:",
}

// Label returns the field's caption
func (f Field) Label() string {
	if f < 0 || f >= fieldCount {
		return ""
	}
	return fieldLabels[f]
}

// Form holds the operator's field text and which field has focus
type Form struct {
	values    [fieldCount]string
	focus     Field
	defaults  config.RunDefaults
	maxScript int
}

// NewForm creates a form filled with defaults. The script field accepts at
// most maxScript bytes; zero means no limit.
func NewForm(defaults config.RunDefaults, maxScript int) *Form {
	f := &Form{defaults: defaults, maxScript: maxScript}
	f.Reset()
	return f
}

// Reset restores every field to its default. Focus is unchanged.
func (f *Form) Reset() {
	f.values = [fieldCount]string{
		f.defaults.Script,
		strconv.Itoa(f.defaults.StartDelayMs),
		strconv.Itoa(f.defaults.LoopDelayMs),
		strconv.Itoa(f.defaults.Loops),
	}
}

// Focus returns the active field
func (f *Form) Focus() Field {
	return f.focus
}

// Next moves focus forward, wrapping after the last field
func (f *Form) Next() {
	f.focus = (f.focus + 1) % fieldCount
}

// Prev moves focus backward, wrapping before the first field
func (f *Form) Prev() {
	f.focus = (f.focus + fieldCount - 1) % fieldCount
}

// Value returns a field's text
func (f *Form) Value(field Field) string {
	return f.values[field]
}

// Insert appends r to the focused field. Only printable ASCII is accepted,
// and numeric fields take digits only. It reports whether r was added.
func (f *Form) Insert(r rune) bool {
	if r < ' ' || r > '~' {
		return false
	}
	v := f.values[f.focus]
	if f.focus == FieldScript {
		if f.maxScript > 0 && len(v) >= f.maxScript {
			return false
		}
	} else if r < '0' || r > '9' || len(v) >= numericWidth {
		return false
	}
	f.values[f.focus] = v + string(r)
	return true
}

// Backspace removes the last character of the focused field
func (f *Form) Backspace() {
	if v := f.values[f.focus]; len(v) > 0 {
		f.values[f.focus] = v[:len(v)-1]
	}
}

// RunConfig converts the current field text into a run request
func (f *Form) RunConfig() runner.RunConfig {
	return runner.ParseFields(
		f.values[FieldScript],
		f.values[FieldStartDelay],
		f.values[FieldLoopDelay],
		f.values[FieldLoops],
	)
}
