//go:build !windows

// Package osutils holds platform checks for the service process.
package osutils

import (
	"os"
	"runtime"
)

// IsAdmin reports whether the process runs as root
func IsAdmin() bool {
	return os.Geteuid() == 0
}

// InjectionWarning reports why keystrokes may not reach some windows
func InjectionWarning() string {
	switch runtime.GOOS {
	case "linux":
		if os.Getenv("WAYLAND_DISPLAY") != "" && os.Getenv("DISPLAY") == "" {
			return "Wayland session without XWayland; X11 key injection is unavailable"
		}
		if os.Getenv("WAYLAND_DISPLAY") != "" {
			return "Wayland session; keystrokes only reach XWayland windows"
		}
	}
	return ""
}

// EnsureFirewallRule is a no-op outside Windows
func EnsureFirewallRule(port int) error {
	return nil
}
