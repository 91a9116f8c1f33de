// Package config provides configuration management for the keyboard simulator.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/slimemax/keyboardsim/internal/runner"
)

// Config represents the application configuration
type Config struct {
	// Run holds the operator field defaults
	Run RunDefaults `json:"run"`

	// General contains general application settings
	General GeneralConfig `json:"general"`

	// Limits bounds the inputs a run may use
	Limits Limits `json:"limits"`
}

// RunDefaults are the values the operator form starts with and F1 restores
type RunDefaults struct {
	Script       string `json:"script"`
	StartDelayMs int    `json:"start_delay_ms"`
	LoopDelayMs  int    `json:"loop_delay_ms"`
	Loops        int    `json:"loops"`
}

// RunConfig converts the defaults into a run request
func (d RunDefaults) RunConfig() runner.RunConfig {
	return runner.RunConfig{
		Script:       d.Script,
		StartDelayMs: d.StartDelayMs,
		LoopDelayMs:  d.LoopDelayMs,
		Loops:        d.Loops,
	}.Normalize()
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// MessagesPath is the line source file for {messageN} tokens
	MessagesPath string `json:"messages_path"`

	// LogPath is the append-only log mirror
	LogPath string `json:"log_path"`

	// APIEnabled enables the HTTP API server
	APIEnabled bool `json:"api_enabled"`

	// APIListen is the address the API binds to (default: 127.0.0.1)
	APIListen string `json:"api_listen,omitempty"`

	// APIPort is the port for the API server (default: 18080)
	APIPort int `json:"api_port"`

	// APIToken is an optional authentication token for API requests
	APIToken string `json:"api_token,omitempty"`

	StopHotkey string `json:"stop_hotkey,omitempty"`
	RunHotkey  string `json:"run_hotkey,omitempty"`

	// TrayEnabled shows the system tray menu in service mode
	TrayEnabled bool `json:"tray_enabled"`
}

// Limits bounds script length, line table size and substitution depth
type Limits struct {
	MaxScriptLength int `json:"max_script_length"`
	MaxMessages     int `json:"max_messages"`
	MaxDepth        int `json:"max_depth"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Run: RunDefaults{
			StartDelayMs: runner.DefaultStartDelayMs,
			LoopDelayMs:  runner.DefaultLoopDelayMs,
			Loops:        runner.DefaultLoops,
		},
		General: GeneralConfig{
			MessagesPath: "messages.txt",
			LogPath:      "logsXtest.txt",
			APIEnabled:   true,
			APIListen:    "127.0.0.1",
			APIPort:      18080,
			StopHotkey:   "F2",
			RunHotkey:    "Ctrl+Alt+R",
			TrayEnabled:  true,
		},
		Limits: Limits{
			MaxScriptLength: 4096,
			MaxMessages:     100,
			MaxDepth:        16,
		},
	}
}

// Validate rejects values no run could use
func (c *Config) Validate() error {
	var errs []error
	if c.Run.StartDelayMs < 0 {
		errs = append(errs, fmt.Errorf("run.start_delay_ms must not be negative"))
	}
	if c.Run.LoopDelayMs < 0 {
		errs = append(errs, fmt.Errorf("run.loop_delay_ms must not be negative"))
	}
	if c.Run.Loops < 1 {
		errs = append(errs, fmt.Errorf("run.loops must be at least 1"))
	}
	if c.General.APIPort < 0 || c.General.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("general.api_port %d out of range", c.General.APIPort))
	}
	if c.Limits.MaxScriptLength < 0 || c.Limits.MaxMessages < 0 || c.Limits.MaxDepth < 0 {
		errs = append(errs, fmt.Errorf("limits must not be negative"))
	}
	if c.Limits.MaxScriptLength > 0 && len(c.Run.Script) > c.Limits.MaxScriptLength {
		errs = append(errs, fmt.Errorf("run.script exceeds max_script_length %d", c.Limits.MaxScriptLength))
	}
	return errors.Join(errs...)
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
	onChanged  func()
}

// NewManager creates a new configuration manager
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a manager backed by an explicit file
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
}

// Path returns the backing file
func (m *Manager) Path() string {
	return m.configPath
}

// getConfigPath returns the path to the configuration file
func getConfigPath() (string, error) {
	var configDir string

	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, "Library", "Application Support", "keyboardsim")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			appData = filepath.Join(home, "AppData", "Roaming")
		}
		configDir = filepath.Join(appData, "keyboardsim")
	default:
		dir, err := os.UserConfigDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(dir, "keyboardsim")
	}

	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Load reads the configuration from disk. A missing file keeps the defaults.
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to read config: %w", err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("failed to parse config %s: %w", m.configPath, err)
	}
	if err := cfg.Validate(); err != nil {
		m.mu.Unlock()
		return fmt.Errorf("invalid config %s: %w", m.configPath, err)
	}
	m.config = cfg
	cb := m.onChanged
	m.mu.Unlock()

	if cb != nil {
		cb()
	}
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	data, err := json.MarshalIndent(m.config, "", "  ")
	if err != nil {
		return err
	}

	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns a copy of the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg := *m.config
	return &cfg
}

// Set validates and replaces the configuration
func (m *Manager) Set(config *Config) error {
	if err := config.Validate(); err != nil {
		return err
	}
	m.mu.Lock()
	m.config = config
	cb := m.onChanged
	m.mu.Unlock()
	if cb != nil {
		cb()
	}
	return nil
}

// RegisterChangeCallback registers a function to be called when config changes
func (m *Manager) RegisterChangeCallback(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onChanged = fn
}
