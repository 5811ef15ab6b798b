package autostart

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestEnableDisable(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "systemd", "user")
	if IsEnabled(dir) {
		t.Fatal("Expected not enabled in empty dir")
	}

	if err := Enable(dir, "/opt/input relay/inputrelay", "-config", "/etc/inputrelay.yaml"); err != nil {
		t.Fatalf("Enable: %v", err)
	}
	if !IsEnabled(dir) {
		t.Fatal("Expected enabled after Enable")
	}

	data, err := os.ReadFile(filepath.Join(dir, UnitName))
	if err != nil {
		t.Fatal(err)
	}
	want := `ExecStart="/opt/input relay/inputrelay" -config /etc/inputrelay.yaml`
	if !strings.Contains(string(data), want) {
		t.Errorf("Expected unit to contain %q, got:\n%s", want, data)
	}

	if err := Disable(dir); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	if IsEnabled(dir) {
		t.Error("Expected disabled after Disable")
	}
	if err := Disable(dir); err != nil {
		t.Errorf("Expected second Disable to succeed, got %v", err)
	}
}
