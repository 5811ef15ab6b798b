// Package autostart installs a systemd user unit that starts the receiver
// on login.
package autostart

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// UnitName is the systemd user unit file name.
const UnitName = "inputrelay.service"

const systemdUnit = `[Unit]
Description=Remote input relay receiver
After=graphical-session.target

[Service]
ExecStart={{.ExecStart}}
Restart=on-failure

[Install]
WantedBy=default.target
`

// UnitDir returns the systemd user unit directory.
func UnitDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "systemd", "user"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "systemd", "user"), nil
}

// Enable writes the unit into dir so that execPath runs with args on login.
func Enable(dir, execPath string, args ...string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmpl, err := template.New("unit").Parse(systemdUnit)
	if err != nil {
		return err
	}

	f, err := os.Create(filepath.Join(dir, UnitName))
	if err != nil {
		return err
	}
	defer f.Close()

	execStart := strings.Join(append([]string{quote(execPath)}, quoteAll(args)...), " ")
	if err := tmpl.Execute(f, struct{ ExecStart string }{execStart}); err != nil {
		return fmt.Errorf("write unit: %w", err)
	}
	return nil
}

// Disable removes the unit from dir.
func Disable(dir string) error {
	if err := os.Remove(filepath.Join(dir, UnitName)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// IsEnabled checks if the unit is installed in dir.
func IsEnabled(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, UnitName))
	return err == nil
}

func quoteAll(args []string) []string {
	out := make([]string, len(args))
	for i, a := range args {
		out[i] = quote(a)
	}
	return out
}

// quote wraps values containing spaces in systemd double quotes.
func quote(s string) string {
	if !strings.ContainsAny(s, " \t\"") {
		return s
	}
	return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
}
