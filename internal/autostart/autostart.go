// Package autostart registers the background service to start on login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"text/template"
)

// Label identifies the login item on every platform
const Label = "com.slimemax.keyboardsim"

const macLaunchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{.Label}}</string>
    <key>ProgramArguments</key>
    <array>
{{- range .Args}}
        <string>{{.}}</string>
{{- end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const xdgDesktopEntry = `[Desktop Entry]
Type=Application
Name=KeyboardSim
Comment=Scripted keystroke injector
Exec={{join .Args " "}}
X-GNOME-Autostart-enabled=true
NoDisplay=true
`

// Entry describes the command launched at login
type Entry struct {
	Label string
	Args  []string
}

// ServiceEntry returns the entry that starts this executable in service mode
func ServiceEntry() (Entry, error) {
	execPath, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get executable path: %w", err)
	}
	return Entry{Label: Label, Args: []string{execPath, "-serve"}}, nil
}

var templates = func() *template.Template {
	t := template.Must(template.New("plist").Parse(macLaunchAgentPlist))
	return template.Must(t.New("desktop").Funcs(template.FuncMap{"join": strings.Join}).Parse(xdgDesktopEntry))
}()

// Enable enables auto-start on login
func Enable() error {
	entry, err := ServiceEntry()
	if err != nil {
		return err
	}
	if runtime.GOOS == "windows" {
		return enableWindows(entry)
	}
	path, err := entryPath(runtime.GOOS)
	if err != nil {
		return err
	}
	return writeEntry(path, runtime.GOOS, entry)
}

// Disable disables auto-start on login
func Disable() error {
	if runtime.GOOS == "windows" {
		return disableWindows()
	}
	path, err := entryPath(runtime.GOOS)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled checks if auto-start is enabled
func IsEnabled() bool {
	if runtime.GOOS == "windows" {
		return isEnabledWindows()
	}
	path, err := entryPath(runtime.GOOS)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

// entryPath returns where the login item lives for a non-Windows platform
func entryPath(goos string) (string, error) {
	switch goos {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "LaunchAgents", Label+".plist"), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "autostart", "keyboardsim.desktop"), nil
	default:
		return "", fmt.Errorf("unsupported platform: %s", goos)
	}
}

// writeEntry renders the launchd plist (darwin) or XDG desktop entry
func writeEntry(path, goos string, entry Entry) error {
	name := "desktop"
	if goos == "darwin" {
		name = "plist"
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return templates.ExecuteTemplate(f, name, entry)
}
