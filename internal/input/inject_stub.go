//go:build !linux && !windows && !darwin

package input

import (
	"fmt"
	"runtime"
)

// Stub implementation for platforms without an injection backend

var _ InputInjector = (*Injector)(nil)

// Injector represents a stub input injector
type Injector struct{}

// NewInjector always fails on this platform
func NewInjector() (*Injector, error) {
	return nil, fmt.Errorf("input injection not supported on %s", runtime.GOOS)
}

// InjectKey injects a keyboard event (stub)
func (i *Injector) InjectKey(key Key, pressed bool) error {
	return fmt.Errorf("input injection not supported on this platform")
}

// Close is a no-op
func (i *Injector) Close() error {
	return nil
}
