// Package config provides configuration management for the input receiver.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"inputrelay/internal/input"
)

// Config represents the application configuration
type Config struct {
	// Relay locates the input sender
	Relay RelayConfig `json:"relay" yaml:"relay"`

	// Target selects where received events are delivered
	Target TargetConfig `json:"target" yaml:"target"`

	// Outputs lists the known outputs touch coordinates can be mapped into
	Outputs []Output `json:"outputs" yaml:"outputs"`

	// General contains general application settings
	General GeneralConfig `json:"general" yaml:"general"`
}

// RelayConfig describes the remote input sender
type RelayConfig struct {
	// Address is the sender host; empty disables the receiver
	Address string `json:"address" yaml:"address"`

	// Port is the sender TCP port
	Port int `json:"port" yaml:"port"`

	// BackoffMillis is the pause between failed connection attempts
	BackoffMillis int `json:"backoff_ms,omitempty" yaml:"backoff_ms,omitempty"`
}

// Backoff returns the reconnect pause, or zero for the default.
func (r RelayConfig) Backoff() time.Duration {
	return time.Duration(r.BackoffMillis) * time.Millisecond
}

// TargetConfig selects the sink
type TargetConfig struct {
	// SurfaceID relays events to that surface when non-zero
	SurfaceID uint32 `json:"surface_id,omitempty" yaml:"surface_id,omitempty"`

	// OutputNumber indexes Outputs when injecting into virtual devices
	OutputNumber int `json:"output_number" yaml:"output_number"`
}

// Output is one display output
type Output struct {
	Name   string `json:"name,omitempty" yaml:"name,omitempty"`
	X      int32  `json:"x" yaml:"x"`
	Y      int32  `json:"y" yaml:"y"`
	Width  int32  `json:"width" yaml:"width"`
	Height int32  `json:"height" yaml:"height"`
}

// Geometry converts the output into the sink's mapping rectangle.
func (o Output) Geometry() input.Geometry {
	return input.Geometry{X: o.X, Y: o.Y, Width: o.Width, Height: o.Height}
}

// GeneralConfig contains general application settings
type GeneralConfig struct {
	// Verbose is the logging level; 2 logs every frame
	Verbose int `json:"verbose" yaml:"verbose"`

	// APIEnabled enables the HTTP status server
	APIEnabled bool `json:"api_enabled" yaml:"api_enabled"`

	// APIPort is the port for the status server (default: 18081)
	APIPort int `json:"api_port" yaml:"api_port"`

	// APIToken is an optional authentication token for API requests
	APIToken string `json:"api_token,omitempty" yaml:"api_token,omitempty"`

	// TrayEnabled shows a system tray icon with the connection status
	TrayEnabled bool `json:"tray_enabled" yaml:"tray_enabled"`

	// UinputPath overrides the uinput device node
	UinputPath string `json:"uinput_path,omitempty" yaml:"uinput_path,omitempty"`
}

// DefaultConfig returns a new Config with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Outputs: []Output{
			{Name: "default", Width: 1920, Height: 1080},
		},
		General: GeneralConfig{
			APIEnabled: false,
			APIPort:    18081,
		},
	}
}

// Validate checks that the configuration can drive the receiver.
func (c *Config) Validate() error {
	var errs []error
	if c.Relay.Address != "" && (c.Relay.Port <= 0 || c.Relay.Port > 65535) {
		errs = append(errs, fmt.Errorf("relay port %d out of range", c.Relay.Port))
	}
	if c.Relay.BackoffMillis < 0 {
		errs = append(errs, fmt.Errorf("negative backoff %dms", c.Relay.BackoffMillis))
	}
	if c.Target.SurfaceID == 0 {
		if _, err := c.SelectedOutput(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.General.APIEnabled && (c.General.APIPort <= 0 || c.General.APIPort > 65535) {
		errs = append(errs, fmt.Errorf("api port %d out of range", c.General.APIPort))
	}
	return errors.Join(errs...)
}

// SelectedOutput returns the output chosen by Target.OutputNumber.
func (c *Config) SelectedOutput() (Output, error) {
	n := c.Target.OutputNumber
	if n < 0 || n >= len(c.Outputs) {
		return Output{}, fmt.Errorf("output %d not configured (%d outputs)", n, len(c.Outputs))
	}
	o := c.Outputs[n]
	if o.Width <= 0 || o.Height <= 0 {
		return Output{}, fmt.Errorf("output %d has invalid size %dx%d", n, o.Width, o.Height)
	}
	return o, nil
}

// Manager handles loading and saving configuration
type Manager struct {
	mu         sync.Mutex
	configPath string
	config     *Config
}

// NewManager creates a configuration manager for the default config file
func NewManager() (*Manager, error) {
	configPath, err := getConfigPath()
	if err != nil {
		return nil, err
	}
	return NewManagerAt(configPath), nil
}

// NewManagerAt creates a configuration manager for the file at path. Files
// ending in .yaml or .yml are read and written as YAML, anything else as
// JSON.
func NewManagerAt(path string) *Manager {
	return &Manager{
		configPath: path,
		config:     DefaultConfig(),
	}
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
		configDir = filepath.Join(home, "Library", "Application Support", "inputrelay")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			configDir = filepath.Join(xdg, "inputrelay")
			break
		}
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		configDir = filepath.Join(home, ".config", "inputrelay")
	}

	return filepath.Join(configDir, "config.json"), nil
}

// Path returns the configuration file path
func (m *Manager) Path() string {
	return m.configPath
}

func (m *Manager) isYAML() bool {
	ext := strings.ToLower(filepath.Ext(m.configPath))
	return ext == ".yaml" || ext == ".yml"
}

// Load reads the configuration from disk
func (m *Manager) Load() error {
	m.mu.Lock()

	data, err := os.ReadFile(m.configPath)
	if os.IsNotExist(err) {
		// No config file, use defaults
		m.mu.Unlock()
		return nil
	}
	if err != nil {
		m.mu.Unlock()
		return err
	}

	cfg := DefaultConfig()
	if m.isYAML() {
		err = yaml.Unmarshal(data, cfg)
	} else {
		err = json.Unmarshal(data, cfg)
	}
	if err != nil {
		m.mu.Unlock()
		return fmt.Errorf("parse %s: %w", m.configPath, err)
	}
	m.config = cfg
	m.mu.Unlock()
	return nil
}

// Save writes the configuration to disk
func (m *Manager) Save() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	var (
		data []byte
		err  error
	)
	if m.isYAML() {
		data, err = yaml.Marshal(m.config)
	} else {
		data, err = json.MarshalIndent(m.config, "", "  ")
	}
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(m.configPath), 0755); err != nil {
		return err
	}

	log.Printf("Config: Saving configuration to %s (%d bytes)", m.configPath, len(data))
	return os.WriteFile(m.configPath, data, 0644)
}

// Get returns the current configuration
func (m *Manager) Get() *Config {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.config
}

// Set updates the configuration
func (m *Manager) Set(config *Config) {
	m.mu.Lock()
	m.config = config
	m.mu.Unlock()
}

// Exists reports whether the configuration file is present on disk
func (m *Manager) Exists() bool {
	_, err := os.Stat(m.configPath)
	return err == nil
}
