// Package config manages persistent controller settings, loaded from and
// saved to a YAML file the way the teacher's topology/scenario definitions
// are loaded (spec.md's "user-facing configuration parsing" is a non-goal
// for the protocol core itself, but the ambient CLI still needs settings).
package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultValueStoreAddr is used when no override is configured.
const DefaultValueStoreAddr = "127.0.0.1:6379"

// Settings holds persistent controller configuration.
type Settings struct {
	// SerialPort is the device path of the attached stick (out of scope for
	// the controller core itself, but needed to wire a real transport).
	SerialPort string `yaml:"serial_port,omitempty"`

	// ValueStoreAddr is the Redis address backing the per-node value store.
	ValueStoreAddr string `yaml:"value_store_addr,omitempty"`

	// AckTimeout/ByteTimeout are pushed to the stick by the interview
	// orchestrator when SetSerialApiTimeouts is supported (spec.md §4.1).
	AckTimeout  time.Duration `yaml:"ack_timeout,omitempty"`
	ByteTimeout time.Duration `yaml:"byte_timeout,omitempty"`

	// NetworkKeyHex is the shared S0 network key, hex-encoded (spec.md §1's
	// security manager collaborator).
	NetworkKeyHex string `yaml:"network_key_hex,omitempty"`

	// DeviceConfigDir points at a directory of device-config table entries
	// (spec.md §4.6).
	DeviceConfigDir string `yaml:"device_config_dir,omitempty"`

	LogLevel string `yaml:"log_level,omitempty"`
}

const (
	// DefaultAckTimeout/DefaultByteTimeout mirror typical Z-Wave serial API
	// timeout values.
	DefaultAckTimeout  = 1600 * time.Millisecond
	DefaultByteTimeout = 150 * time.Millisecond
)

// DefaultSettingsPath returns the default path for the settings file.
func DefaultSettingsPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return "/tmp/zwcore_settings.yaml"
	}
	return filepath.Join(home, ".zwcore", "settings.yaml")
}

// Load reads settings from the default location.
func Load() (*Settings, error) {
	return LoadFrom(DefaultSettingsPath())
}

// LoadFrom reads settings from a specific path. A missing file yields
// zero-valued settings, not an error.
func LoadFrom(path string) (*Settings, error) {
	s := &Settings{}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, err
	}
	if err := yaml.Unmarshal(data, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Save writes settings to the default location.
func (s *Settings) Save() error {
	return s.SaveTo(DefaultSettingsPath())
}

// SaveTo writes settings to a specific path, creating parent directories.
func (s *Settings) SaveTo(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	data, err := yaml.Marshal(s)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// GetValueStoreAddr returns the configured value store address, with a fallback default.
func (s *Settings) GetValueStoreAddr() string {
	if s.ValueStoreAddr != "" {
		return s.ValueStoreAddr
	}
	return DefaultValueStoreAddr
}

// GetAckTimeout returns the configured ack timeout, with a fallback default.
func (s *Settings) GetAckTimeout() time.Duration {
	if s.AckTimeout > 0 {
		return s.AckTimeout
	}
	return DefaultAckTimeout
}

// GetByteTimeout returns the configured byte timeout, with a fallback default.
func (s *Settings) GetByteTimeout() time.Duration {
	if s.ByteTimeout > 0 {
		return s.ByteTimeout
	}
	return DefaultByteTimeout
}

// Clear resets all settings to defaults.
func (s *Settings) Clear() {
	*s = Settings{}
}
