package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Run.StartDelayMs != 3000 || cfg.Run.LoopDelayMs != 2000 || cfg.Run.Loops != 1 {
		t.Errorf("Unexpected run defaults: %+v", cfg.Run)
	}
	if cfg.General.MessagesPath != "messages.txt" {
		t.Errorf("Expected messages.txt, got %s", cfg.General.MessagesPath)
	}
	if cfg.General.LogPath != "logsXtest.txt" {
		t.Errorf("Expected logsXtest.txt, got %s", cfg.General.LogPath)
	}
	if cfg.General.APIPort != 18080 || cfg.General.APIListen != "127.0.0.1" {
		t.Errorf("Unexpected API address %s:%d", cfg.General.APIListen, cfg.General.APIPort)
	}
	if cfg.General.StopHotkey != "F2" {
		t.Errorf("Expected F2 stop hotkey, got %s", cfg.General.StopHotkey)
	}
	if cfg.Limits.MaxMessages != 100 || cfg.Limits.MaxDepth != 16 {
		t.Errorf("Unexpected limits: %+v", cfg.Limits)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected defaults to validate, got %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"negative start delay", func(c *Config) { c.Run.StartDelayMs = -1 }},
		{"zero loops", func(c *Config) { c.Run.Loops = 0 }},
		{"bad port", func(c *Config) { c.General.APIPort = 70000 }},
		{"negative depth", func(c *Config) { c.Limits.MaxDepth = -2 }},
		{"long script", func(c *Config) {
			c.Limits.MaxScriptLength = 4
			c.Run.Script = "hello"
		}},
	}

	for _, tt := range tests {
		cfg := DefaultConfig()
		tt.mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", tt.name)
		}
	}
}

func TestManagerSaveLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	m := NewManagerAt(path)

	cfg := m.Get()
	cfg.Run.Script = "Hi{enter}"
	cfg.Run.Loops = 3
	if err := m.Set(cfg); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := m.Save(); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	other := NewManagerAt(path)
	called := false
	other.RegisterChangeCallback(func() { called = true })
	if err := other.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	got := other.Get()
	if got.Run.Script != "Hi{enter}" || got.Run.Loops != 3 {
		t.Errorf("Expected saved run defaults, got %+v", got.Run)
	}
	if !called {
		t.Error("Expected change callback on load")
	}
}

func TestLoadMissingKeepsDefaults(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "absent.json"))
	if err := m.Load(); err != nil {
		t.Fatalf("Expected no error for missing file, got %v", err)
	}
	if m.Get().General.APIPort != 18080 {
		t.Error("Expected default config")
	}
}

func TestLoadPartialFileKeepsOtherDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"run":{"script":"x","loops":2}}`), 0644)

	m := NewManagerAt(path)
	if err := m.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	cfg := m.Get()
	if cfg.Run.Loops != 2 || cfg.General.StopHotkey != "F2" {
		t.Errorf("Expected merged config, got %+v", cfg)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	os.WriteFile(path, []byte(`{"run":{"loops":0}}`), 0644)

	m := NewManagerAt(path)
	err := m.Load()
	if err == nil || !strings.Contains(err.Error(), "run.loops") {
		t.Errorf("Expected loops validation error, got %v", err)
	}
	if m.Get().Run.Loops != 1 {
		t.Error("Expected previous config to be kept")
	}
}

func TestRunDefaultsRunConfig(t *testing.T) {
	rc := RunDefaults{Script: "a", StartDelayMs: -4, Loops: 0}.RunConfig()
	if rc.StartDelayMs != 0 || rc.Loops != 1 || rc.Script != "a" {
		t.Errorf("Expected clamped run config, got %+v", rc)
	}
}
