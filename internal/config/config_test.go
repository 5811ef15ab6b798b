package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMissingFileKeepsDefaults(t *testing.T) {
	m := NewManagerAt(filepath.Join(t.TempDir(), "missing.json"))
	if m.Exists() {
		t.Fatal("Expected missing config file")
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	cfg := m.Get()
	if cfg.General.APIPort != 18081 || len(cfg.Outputs) != 1 {
		t.Errorf("Expected defaults, got %+v", cfg)
	}
}

func TestSaveLoadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.json")
	m := NewManagerAt(path)
	cfg := DefaultConfig()
	cfg.Relay = RelayConfig{Address: "10.0.0.2", Port: 5000, BackoffMillis: 250}
	cfg.Target.OutputNumber = 1
	cfg.Outputs = append(cfg.Outputs, Output{Name: "right", X: 1920, Width: 1280, Height: 720})
	m.Set(cfg)
	if err := m.Save(); err != nil {
		t.Fatalf("Save: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(data), `"backoff_ms": 250`) {
		t.Errorf("Expected JSON output, got %s", data)
	}

	loaded := NewManagerAt(path)
	if err := loaded.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	got := loaded.Get()
	if got.Relay != cfg.Relay {
		t.Errorf("Expected relay %+v, got %+v", cfg.Relay, got.Relay)
	}
	if got.Relay.Backoff() != 250*time.Millisecond {
		t.Errorf("Expected 250ms backoff, got %v", got.Relay.Backoff())
	}
	out, err := got.SelectedOutput()
	if err != nil || out.Name != "right" || out.Geometry().X != 1920 {
		t.Errorf("Expected right output, got %+v (%v)", out, err)
	}
}

func TestLoadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `relay:
  address: sender.local
  port: 4242
target:
  surface_id: 7
general:
  verbose: 2
  api_enabled: true
  api_port: 9000
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	m := NewManagerAt(path)
	if !m.Exists() {
		t.Fatal("Expected config file to exist")
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := m.Get()
	if cfg.Relay.Address != "sender.local" || cfg.Relay.Port != 4242 {
		t.Errorf("Unexpected relay %+v", cfg.Relay)
	}
	if cfg.Target.SurfaceID != 7 || cfg.General.Verbose != 2 || cfg.General.APIPort != 9000 {
		t.Errorf("Unexpected config %+v", cfg)
	}
	if len(cfg.Outputs) != 1 {
		t.Errorf("Expected default outputs kept, got %+v", cfg.Outputs)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Expected valid config, got %v", err)
	}
}

func TestLoadInvalidFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := NewManagerAt(path).Load(); err == nil {
		t.Error("Expected parse error")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"defaults", func(*Config) {}, ""},
		{"bad port", func(c *Config) { c.Relay = RelayConfig{Address: "a", Port: 70000} }, "relay port"},
		{"missing output", func(c *Config) { c.Target.OutputNumber = 3 }, "output 3 not configured"},
		{"zero size output", func(c *Config) { c.Outputs[0].Width = 0 }, "invalid size"},
		{"surface ignores outputs", func(c *Config) { c.Target = TargetConfig{SurfaceID: 1, OutputNumber: 9} }, ""},
		{"negative backoff", func(c *Config) { c.Relay.BackoffMillis = -1 }, "negative backoff"},
		{"bad api port", func(c *Config) { c.General.APIEnabled = true; c.General.APIPort = 0 }, "api port"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Expected no error, got %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}
