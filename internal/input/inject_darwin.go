//go:build darwin

package input

/*
#cgo LDFLAGS: -framework ApplicationServices

#include <ApplicationServices/ApplicationServices.h>

// Check if we have accessibility permissions
static bool hasAccessibilityPermissions() {
    return AXIsProcessTrusted();
}
*/
import "C"
import (
	"fmt"

	"github.com/go-vgo/robotgo"
)

// macOS implementation of key injection using robotgo

// robotgo key names for the named keys
var robotgoKeys = map[Key]string{
	KeyUp:    "up",
	KeyDown:  "down",
	KeyLeft:  "left",
	KeyRight: "right",
	KeyEnter: "enter",
	KeySpace: "space",
	KeyShift: "shift",
	KeyCtrl:  "control",
	KeyAlt:   "alt",
}

var _ InputInjector = (*Injector)(nil)

// Injector delivers key events through CoreGraphics
type Injector struct{}

// NewInjector requires the accessibility permission, without which posted
// events are silently dropped
func NewInjector() (*Injector, error) {
	if !bool(C.hasAccessibilityPermissions()) {
		return nil, fmt.Errorf("accessibility permission not granted to this process")
	}
	return &Injector{}, nil
}

// InjectKey sends a single key transition
func (i *Injector) InjectKey(key Key, pressed bool) error {
	name, ok := robotgoKeys[key]
	if !ok {
		c, isChar := key.Char()
		if !isChar {
			return fmt.Errorf("%w: %q", ErrNoKeyMapping, key)
		}
		name = string(c)
	}

	state := "up"
	if pressed {
		state = "down"
	}
	if err := robotgo.KeyToggle(name, state); err != nil {
		return fmt.Errorf("%w: %q: %v", ErrNoKeyMapping, key, err)
	}
	return nil
}

// Close is a no-op
func (i *Injector) Close() error {
	return nil
}
