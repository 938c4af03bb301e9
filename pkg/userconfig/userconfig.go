// Package userconfig provides the configuration of the countly command.
// It is stored in ~/.config/countly/config.yaml and can be overridden from
// the environment.
package userconfig

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/natefinch/atomic"

	"github.com/countly/countly-sdk-go/pkg/paths"
)

// CurrentVersion is the current version of the config format
const CurrentVersion = "v1"

const (
	DefaultUpdateInterval = 60
	DefaultMaxQueueSize   = 1000
)

// Storage backends accepted in Storage.Backend.
const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Storage selects where queues are persisted.
type Storage struct {
	// Backend is one of "file", "sqlite" or "memory". Empty means "file".
	Backend string `yaml:"backend,omitempty"`
	// Dir overrides the storage directory (or database location).
	Dir string `yaml:"dir,omitempty"`
}

// DeviceID configures device id resolution.
type DeviceID struct {
	// PreferredMethod is tried first: machine_id, fingerprint or random.
	PreferredMethod string `yaml:"preferred_method,omitempty"`
	// Value, when set, is used as a developer supplied device id.
	Value string `yaml:"value,omitempty"`
}

// Config represents the countly configuration
type Config struct {
	mu sync.Mutex

	// Version is the config format version
	Version    string `yaml:"version,omitempty"`
	ServerURL  string `yaml:"server_url,omitempty"`
	AppKey     string `yaml:"app_key,omitempty"`
	AppVersion string `yaml:"app_version,omitempty"`
	// UpdateInterval is the heartbeat interval in seconds
	UpdateInterval int       `yaml:"update_interval,omitempty"`
	MaxQueueSize   int       `yaml:"max_queue_size,omitempty"`
	Storage        *Storage  `yaml:"storage,omitempty"`
	DeviceID       *DeviceID `yaml:"device_id,omitempty"`

	// Disabled turns off network handoff. It is only set from the
	// environment.
	Disabled bool `yaml:"-"`
}

// Path returns the path to the config file
func Path() string {
	return filepath.Join(paths.GetConfigDir(), "config.yaml")
}

// Load reads the config file, if any, and applies environment overrides.
func Load() (*Config, error) {
	config, err := readConfig(Path())
	if err != nil {
		return nil, err
	}
	config.ApplyEnv(os.Getenv)
	return config, nil
}

// LoadFile reads the config at path without environment overrides.
func LoadFile(path string) (*Config, error) {
	return readConfig(path)
}

// readConfig reads and parses the config file, returning an empty config if file doesn't exist.
func readConfig(configPath string) (*Config, error) {
	config := &Config{}

	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config file %s: %w", configPath, err)
	}
	return config, nil
}

// ApplyEnv overrides fields from COUNTLY_SERVER_URL, COUNTLY_APP_KEY and
// COUNTLY_ENABLED. Only COUNTLY_ENABLED=false disables network handoff.
func (c *Config) ApplyEnv(getenv func(string) string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if v := getenv("COUNTLY_SERVER_URL"); v != "" {
		c.ServerURL = v
	}
	if v := getenv("COUNTLY_APP_KEY"); v != "" {
		c.AppKey = v
	}
	if getenv("COUNTLY_ENABLED") == "false" {
		c.Disabled = true
	}
}

// Validate checks the fields that have a closed set of values.
func (c *Config) Validate() error {
	if c.UpdateInterval < 0 {
		return fmt.Errorf("update_interval must not be negative, got %d", c.UpdateInterval)
	}
	if c.MaxQueueSize < 0 {
		return fmt.Errorf("max_queue_size must not be negative, got %d", c.MaxQueueSize)
	}
	switch backend := c.GetStorage().Backend; backend {
	case "", BackendFile, BackendSQLite, BackendMemory:
	default:
		return fmt.Errorf("unknown storage backend %q", backend)
	}
	return nil
}

// Save saves the configuration to the config file
func (c *Config) Save() error {
	return c.SaveTo(Path())
}

func (c *Config) SaveTo(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	c.mu.Lock()
	// Ensure version is always set to current version when saving
	c.Version = CurrentVersion
	data, err := yaml.Marshal(c)
	c.mu.Unlock()
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	return atomic.WriteFile(path, bytes.NewReader(data))
}

// Keys lists the names accepted by Set.
var Keys = []string{
	"server_url",
	"app_key",
	"app_version",
	"update_interval",
	"max_queue_size",
	"storage.backend",
	"storage.dir",
	"device_id.preferred_method",
	"device_id.value",
}

// Set assigns a single field by its YAML key, e.g. "storage.backend".
func (c *Config) Set(key, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch key {
	case "server_url":
		c.ServerURL = value
	case "app_key":
		c.AppKey = value
	case "app_version":
		c.AppVersion = value
	case "update_interval", "max_queue_size":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return fmt.Errorf("%s must be a non-negative integer, got %q", key, value)
		}
		if key == "update_interval" {
			c.UpdateInterval = n
		} else {
			c.MaxQueueSize = n
		}
	case "storage.backend", "storage.dir":
		if c.Storage == nil {
			c.Storage = &Storage{}
		}
		if key == "storage.dir" {
			c.Storage.Dir = value
			return nil
		}
		switch value {
		case BackendFile, BackendSQLite, BackendMemory:
			c.Storage.Backend = value
		default:
			return fmt.Errorf("unknown storage backend %q", value)
		}
	case "device_id.preferred_method", "device_id.value":
		if c.DeviceID == nil {
			c.DeviceID = &DeviceID{}
		}
		if key == "device_id.value" {
			c.DeviceID.Value = value
		} else {
			c.DeviceID.PreferredMethod = value
		}
	case "":
		return errors.New("config key cannot be empty")
	default:
		return fmt.Errorf("unknown config key %q, expected one of: %s", key, strings.Join(Keys, ", "))
	}
	return nil
}

// Interval returns the heartbeat interval, defaulting to 60 seconds.
func (c *Config) Interval() time.Duration {
	if c.UpdateInterval <= 0 {
		return DefaultUpdateInterval * time.Second
	}
	return time.Duration(c.UpdateInterval) * time.Second
}

// QueueSize returns the per-queue bound, defaulting to 1000.
func (c *Config) QueueSize() int {
	if c.MaxQueueSize <= 0 {
		return DefaultMaxQueueSize
	}
	return c.MaxQueueSize
}

// GetStorage returns the storage settings, or an empty Storage if not set
func (c *Config) GetStorage() *Storage {
	if c.Storage == nil {
		return &Storage{}
	}
	return c.Storage
}

// GetDeviceID returns the device id settings, or an empty DeviceID if not set
func (c *Config) GetDeviceID() *DeviceID {
	if c.DeviceID == nil {
		return &DeviceID{}
	}
	return c.DeviceID
}
