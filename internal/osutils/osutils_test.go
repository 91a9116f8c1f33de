//go:build !windows

package osutils

import (
	"runtime"
	"testing"
)

func TestInjectionWarningWayland(t *testing.T) {
	if runtime.GOOS != "linux" {
		t.Skip("Wayland detection is Linux only")
	}
	t.Setenv("WAYLAND_DISPLAY", "wayland-0")
	t.Setenv("DISPLAY", "")
	if InjectionWarning() == "" {
		t.Errorf("Expected warning for Wayland session without XWayland")
	}

	t.Setenv("WAYLAND_DISPLAY", "")
	t.Setenv("DISPLAY", ":0")
	if w := InjectionWarning(); w != "" {
		t.Errorf("Expected no warning under X11, got %q", w)
	}
}

func TestEnsureFirewallRuleNoop(t *testing.T) {
	if err := EnsureFirewallRule(8650); err != nil {
		t.Errorf("Expected nil, got %v", err)
	}
}
