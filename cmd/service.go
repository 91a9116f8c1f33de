package main

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/slimemax/keyboardsim/internal/api"
	"github.com/slimemax/keyboardsim/internal/hotkey"
	"github.com/slimemax/keyboardsim/internal/osutils"
	"github.com/slimemax/keyboardsim/internal/runner"
	"github.com/slimemax/keyboardsim/internal/tray"
)

// startHotkeys installs the global stop hotkey and, when withRun is set, the
// run hotkey. Registrations follow config changes.
func startHotkeys(e *engine, withRun bool) *hotkey.Manager {
	hkMgr := hotkey.NewManager()

	// Debouncer for hotkeys
	var lastHkTime time.Time
	var hkMux sync.Mutex
	debounce := func() bool {
		hkMux.Lock()
		defer hkMux.Unlock()
		if time.Since(lastHkTime) < 500*time.Millisecond {
			return false
		}
		lastHkTime = time.Now()
		return true
	}

	register := func(combo, name string, fn func()) {
		if combo == "" {
			return
		}
		if _, err := hkMgr.Register(combo, fn); err != nil {
			log.Printf("Warning: failed to register %s hotkey: %v", name, err)
			return
		}
		// Cross-platform mapping: on macOS, also register CMD variant if CTRL is present
		if runtime.GOOS == "darwin" && strings.Contains(strings.ToUpper(combo), "CTRL") {
			hkMgr.Register(strings.ReplaceAll(strings.ToUpper(combo), "CTRL", "CMD"), fn)
		}
	}

	refreshShortcuts := func() {
		cfg := e.cfgMgr.Get()
		hkMgr.Clear()

		register(cfg.General.StopHotkey, "stop", func() {
			log.Printf("Hotkey: Stop requested")
			e.ctrl.Stop()
		})
		if withRun {
			register(cfg.General.RunHotkey, "run", func() {
				if !debounce() {
					return
				}
				log.Printf("Hotkey: Running default script...")
				if err := e.ctrl.Start(e.cfgMgr.Get().Run.RunConfig()); err != nil {
					log.Printf("Hotkey: Run rejected: %v", err)
				}
			})
		}
		log.Printf("Shortcuts: stop=%q run=%q", cfg.General.StopHotkey, cfg.General.RunHotkey)
	}

	refreshShortcuts()
	e.cfgMgr.RegisterChangeCallback(refreshShortcuts)

	if err := hkMgr.Start(); err != nil {
		log.Printf("Warning: Hotkey Engine failed to start: %v", err)
	}
	return hkMgr
}

func statusLabel(st runner.Status) string {
	switch {
	case st.Running && st.Phase == runner.Typing:
		return fmt.Sprintf("Typing loop %d/%d", st.Iteration, st.Loops)
	case st.Running:
		return fmt.Sprintf("Running: %s", st.Phase)
	case st.Last != nil:
		return fmt.Sprintf("Idle (last run %s)", st.Last.Phase)
	}
	return "Idle"
}

func runService(e *engine) {
	log.Println("KeyboardSim Service starting...")
	cfg := e.cfgMgr.Get()

	// Start API server if enabled
	var apiServer *api.Server
	if cfg.General.APIEnabled {
		apiServer = api.NewServer(e.cfgMgr, e.ctrl, e.journal, e.table)
		addr := net.JoinHostPort(cfg.General.APIListen, strconv.Itoa(cfg.General.APIPort))
		if ip := net.ParseIP(cfg.General.APIListen); ip == nil || !ip.IsLoopback() {
			if err := osutils.EnsureFirewallRule(cfg.General.APIPort); err != nil {
				log.Printf("Warning: %v", err)
			}
		}
		go func() {
			if err := apiServer.Start(addr); err != nil {
				log.Printf("API server error: %v", err)
			}
		}()
	}

	hkMgr := startHotkeys(e, true)

	shutdown := func() {
		log.Println("Shutting down...")
		hkMgr.Stop()
		if apiServer != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
			apiServer.Shutdown(ctx)
			cancel()
		}
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	if !cfg.General.TrayEnabled {
		log.Println("KeyboardSim Service running. Press Ctrl+C to stop.")
		<-sigCh
		shutdown()
		return
	}

	t := tray.New("KeyboardSim")
	runID := t.AddMenuItem("Run default script", func() {
		if err := e.ctrl.Start(e.cfgMgr.Get().Run.RunConfig()); err != nil {
			log.Printf("Tray: Run rejected: %v", err)
		}
	})
	stopID := t.AddMenuItem("Stop", func() {
		log.Printf("Tray: Stop requested")
		e.ctrl.Stop()
	})
	t.AddSeparator()
	statusID := t.AddLabel(statusLabel(e.ctrl.Status()))
	t.SetItemEnabled(stopID, false)
	t.AddSeparator()
	t.AddMenuItem("Quit", func() {
		t.Stop()
	})

	e.ctrl.OnChange(func(st runner.Status) {
		label := statusLabel(st)
		t.SetItemTitle(statusID, label)
		t.SetItemEnabled(runID, !st.Running)
		t.SetItemEnabled(stopID, st.Running)
		t.SetTooltip("KeyboardSim - " + label)
	})
	t.OnQuit(shutdown)

	go func() {
		<-sigCh
		t.Stop()
	}()

	log.Println("KeyboardSim Service running. Press Ctrl+C to stop.")
	t.Run()
}
