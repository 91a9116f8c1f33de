//go:build linux || windows || darwin

package hotkey

import (
	"log"

	hook "github.com/robotn/gohook"
)

func (m *Manager) startPlatform() error {
	events := hook.Start()

	m.mu.Lock()
	m.stopHook = hook.End
	m.mu.Unlock()

	go func() {
		for ev := range events {
			switch ev.Kind {
			case hook.KeyHold:
				m.handleKeycode(ev.Keycode, true)
			case hook.KeyUp:
				m.handleKeycode(ev.Keycode, false)
			}
		}
		log.Println("Hotkey Engine: Event stream closed")
	}()

	log.Println("Hotkey Engine: Global keyboard hook started")
	return nil
}
