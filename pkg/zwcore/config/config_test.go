package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSettings_SaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")

	s := &Settings{
		SerialPort:      "/dev/ttyACM0",
		ValueStoreAddr:  "10.0.0.5:6379",
		AckTimeout:      2 * time.Second,
		NetworkKeyHex:   "00112233445566778899aabbccddeeff",
		DeviceConfigDir: "/etc/zwcore/devices",
		LogLevel:        "debug",
	}
	if err := s.SaveTo(path); err != nil {
		t.Fatalf("SaveTo error = %v", err)
	}

	got, err := LoadFrom(path)
	if err != nil {
		t.Fatalf("LoadFrom error = %v", err)
	}
	if got.SerialPort != s.SerialPort || got.ValueStoreAddr != s.ValueStoreAddr ||
		got.AckTimeout != s.AckTimeout || got.NetworkKeyHex != s.NetworkKeyHex ||
		got.DeviceConfigDir != s.DeviceConfigDir || got.LogLevel != s.LogLevel {
		t.Errorf("LoadFrom(SaveTo(s)) = %+v, want %+v", got, s)
	}
}

func TestLoadFrom_MissingFileYieldsZeroValue(t *testing.T) {
	s, err := LoadFrom(filepath.Join(t.TempDir(), "does-not-exist.yaml"))
	if err != nil {
		t.Fatalf("LoadFrom error = %v", err)
	}
	if s.GetValueStoreAddr() != DefaultValueStoreAddr {
		t.Errorf("GetValueStoreAddr() = %q, want default %q", s.GetValueStoreAddr(), DefaultValueStoreAddr)
	}
	if s.GetAckTimeout() != DefaultAckTimeout {
		t.Errorf("GetAckTimeout() = %v, want default %v", s.GetAckTimeout(), DefaultAckTimeout)
	}
}

func TestSettings_Clear(t *testing.T) {
	s := &Settings{SerialPort: "/dev/ttyACM0", LogLevel: "debug"}
	s.Clear()
	if s.SerialPort != "" || s.LogLevel != "" {
		t.Errorf("Clear left fields set: %+v", s)
	}
}

func TestLoadDeviceConfigTable(t *testing.T) {
	dir := t.TempDir()
	yamlData := `
manufacturer_id: 1
product_type: 2
product_id: 3
associations:
  1:
    label: Lifeline
    max_nodes: 1
    lifeline: true
  2:
    label: Basic Set
    max_nodes: 5
    multi_channel: true
`
	if err := os.WriteFile(filepath.Join(dir, "device.yaml"), []byte(yamlData), 0644); err != nil {
		t.Fatal(err)
	}

	table, err := LoadDeviceConfigTable(dir)
	if err != nil {
		t.Fatalf("LoadDeviceConfigTable error = %v", err)
	}

	cfg, ok := table.Lookup(1, 2, 3)
	if !ok {
		t.Fatal("Lookup(1, 2, 3) did not find the loaded device config")
	}
	g1, ok := cfg.Group(1)
	if !ok || !g1.IsLifeline || g1.Label != "Lifeline" {
		t.Errorf("group 1 = %+v, want lifeline group labeled Lifeline", g1)
	}
	g2, ok := cfg.Group(2)
	if !ok || !g2.MultiChannel || g2.MaxNodes != 5 {
		t.Errorf("group 2 = %+v, want multi-channel group with max nodes 5", g2)
	}
}

func TestLoadDeviceConfigTable_MissingDirYieldsEmptyTable(t *testing.T) {
	table, err := LoadDeviceConfigTable(filepath.Join(t.TempDir(), "missing"))
	if err != nil {
		t.Fatalf("LoadDeviceConfigTable error = %v", err)
	}
	if _, ok := table.Lookup(1, 2, 3); ok {
		t.Error("Lookup against a table built from a missing directory found an entry")
	}
}
