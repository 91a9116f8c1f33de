// Package hotkey provides global system-wide hotkey monitoring.
package hotkey

import (
	"fmt"
	"log"
	"strings"
	"sync"
)

// Manager handles global hotkey registration and matching
type Manager struct {
	mu           sync.RWMutex
	hotkeys      []*registeredHotkey
	currentState map[string]bool // map of current keys pressed
	stopHook     func()
}

type registeredHotkey struct {
	parts    []string // e.g., ["CTRL", "ALT", "R"]
	original string
	callback func()
}

// aliases folds alternative spellings onto the names KeyName produces
var aliases = map[string]string{
	"CONTROL": "CTRL",
	"OPTION":  "ALT",
	"ESCAPE":  "ESC",
	"RETURN":  "ENTER",
	"CMD":     "META",
	"WIN":     "META",
}

// NewManager creates a new hotkey manager
func NewManager() *Manager {
	return &Manager{
		currentState: make(map[string]bool),
	}
}

// Register registers a hotkey string (e.g. "F2", "Ctrl+Alt+R") and a callback.
func (m *Manager) Register(hotkeyStr string, callback func()) (int, error) {
	if hotkeyStr == "" {
		return 0, nil
	}

	parts := strings.Split(strings.ToUpper(hotkeyStr), "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if alias, ok := aliases[p]; ok {
			p = alias
		}
		if !knownName(p) {
			return 0, fmt.Errorf("hotkey %q: unknown key %q", hotkeyStr, p)
		}
		parts[i] = p
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = append(m.hotkeys, &registeredHotkey{
		parts:    parts,
		original: hotkeyStr,
		callback: callback,
	})

	return len(m.hotkeys) - 1, nil
}

// Clear removes all registered hotkeys
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hotkeys = nil
}

// UpdateState updates the internal state of a key and checks for matches.
// Auto-repeat of a key already held does not trigger again.
func (m *Manager) UpdateState(key string, isDown bool) {
	m.mu.Lock()
	key = strings.ToUpper(key)
	wasDown := m.currentState[key]
	if isDown {
		m.currentState[key] = true
	} else {
		delete(m.currentState, key)
	}
	m.mu.Unlock()

	if isDown && !wasDown {
		m.checkMatches()
	}
}

// handleKeycode feeds a hook keycode into the key state
func (m *Manager) handleKeycode(code uint16, isDown bool) {
	if name, ok := KeyName(code); ok {
		m.UpdateState(name, isDown)
	}
}

func (m *Manager) checkMatches() {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, hk := range m.hotkeys {
		match := true
		// All parts of the hotkey must be in currentState
		for _, part := range hk.parts {
			if !m.currentState[part] {
				match = false
				break
			}
		}

		if match {
			log.Printf("Hotkey triggered: %s", hk.original)
			go hk.callback()
		}
	}
}

// Start installs the global keyboard hook
func (m *Manager) Start() error {
	return m.startPlatform()
}

// Stop removes the global keyboard hook
func (m *Manager) Stop() {
	m.mu.Lock()
	stop := m.stopHook
	m.stopHook = nil
	m.mu.Unlock()
	if stop != nil {
		stop()
	}
}
