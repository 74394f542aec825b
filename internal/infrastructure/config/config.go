package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for daceq.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Store   StoreConfig   `yaml:"store"`
	Devices DevicesConfig `yaml:"devices"`
	Logging LoggingConfig `yaml:"logging"`
}

// StoreConfig contains SQLite profile store settings.
type StoreConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// DevicesConfig contains device handler settings.
type DevicesConfig struct {
	// WriteDelayMs overrides the inter-packet write delay for handlers
	// that accept one. Zero keeps each protocol's hardware default.
	// Lowering this below the default risks dropped writes.
	WriteDelayMs int `yaml:"write_delay_ms"`

	Tanchjim VendorConfig `yaml:"tanchjim"`
	Qudelix  VendorConfig `yaml:"qudelix"`
	Moondrop VendorConfig `yaml:"moondrop"`
}

// VendorConfig contains per-vendor handler settings.
type VendorConfig struct {
	// Enabled controls whether the vendor's handlers are registered for
	// discovery.
	Enabled bool `yaml:"enabled"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: DACEQ_SECTION_KEY
// For example: DACEQ_STORE_PATH, DACEQ_LOGGING_LEVEL
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a Config with sensible defaults, used directly when no
// config file is given.
func Default() *Config {
	return &Config{
		Store: StoreConfig{
			Path:        "./data/daceq.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		Devices: DevicesConfig{
			Tanchjim: VendorConfig{Enabled: true},
			Qudelix:  VendorConfig{Enabled: true},
			Moondrop: VendorConfig{Enabled: true},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: DACEQ_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DACEQ_STORE_PATH"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DACEQ_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("DACEQ_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
	if v := os.Getenv("DACEQ_DEVICES_WRITE_DELAY_MS"); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.Devices.WriteDelayMs = ms
		}
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Store.Path == "" {
		errs = append(errs, "store.path is required")
	}
	if c.Store.BusyTimeout < 0 {
		errs = append(errs, "store.busy_timeout must not be negative")
	}
	if c.Devices.WriteDelayMs < 0 {
		errs = append(errs, "devices.write_delay_ms must not be negative")
	}

	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		errs = append(errs, "logging.level must be one of debug, info, warn, error")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// WriteDelay returns the configured write-delay override as a Duration,
// or zero when the protocol default should be kept.
func (c *Config) WriteDelay() time.Duration {
	return time.Duration(c.Devices.WriteDelayMs) * time.Millisecond
}
