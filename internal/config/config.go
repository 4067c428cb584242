// Package config loads credfill configuration from YAML with environment
// overrides and optional hot reload.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all credfill configuration.
type Config struct {
	// Theme selects the TUI color theme.
	Theme string `yaml:"theme"`

	// ProfilePath points at the reference profile YAML; empty means the
	// built-in demonstration profile.
	ProfilePath string `yaml:"profile_path"`

	// AttestSeedPath points at the attestation queue seed; empty means the
	// embedded demonstration queue.
	AttestSeedPath string `yaml:"attest_seed_path"`

	// Logging
	Logging LoggingConfig `yaml:"logging"`

	// Timing tunes the autofill and review delays.
	Timing TimingConfig `yaml:"timing"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level      string          `yaml:"level"`      // debug, info, warn, error
	DebugMode  bool            `yaml:"debug_mode"` // Master toggle - false = no category logging
	Categories map[string]bool `yaml:"categories"` // Per-category toggles
}

// IsCategoryEnabled returns whether logging is enabled for a category.
// Returns false if debug_mode is false. Categories absent from the map
// default to enabled.
func (c *LoggingConfig) IsCategoryEnabled(category string) bool {
	if !c.DebugMode {
		return false
	}
	if c.Categories == nil {
		return true
	}
	enabled, exists := c.Categories[category]
	if !exists {
		return true
	}
	return enabled
}

// TimingConfig holds the delays as duration strings ("300ms", "2s").
type TimingConfig struct {
	DebounceQuiet   string `yaml:"debounce_quiet"`
	Settle          string `yaml:"settle"`
	WordDelay       string `yaml:"word_delay"`
	FieldDelay      string `yaml:"field_delay"`
	UploadTick      string `yaml:"upload_tick"`
	SuccessReturn   string `yaml:"success_return"`
	PauseAbortAfter string `yaml:"pause_abort_after"`
}

// Timing is the parsed form of TimingConfig.
type Timing struct {
	DebounceQuiet   time.Duration
	Settle          time.Duration
	WordDelay       time.Duration
	FieldDelay      time.Duration
	UploadTick      time.Duration
	SuccessReturn   time.Duration
	PauseAbortAfter time.Duration
}

// DefaultConfig returns the configuration used when no file exists.
func DefaultConfig() *Config {
	return &Config{
		Theme: "light",
		Logging: LoggingConfig{
			Level:     "info",
			DebugMode: false,
		},
		Timing: TimingConfig{
			DebounceQuiet:   "400ms",
			Settle:          "250ms",
			WordDelay:       "60ms",
			FieldDelay:      "120ms",
			UploadTick:      "180ms",
			SuccessReturn:   "2s",
			PauseAbortAfter: "2s",
		},
	}
}

// DefaultPath returns the default config file location,
// ~/.credfill/config.yaml.
func DefaultPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".credfill", "config.yaml")
	}
	return filepath.Join(home, ".credfill", "config.yaml")
}

// Load reads configuration from path, falling back to defaults when the file
// does not exist, then applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			cfg.applyEnvOverrides()
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.applyEnvOverrides()
	return cfg, nil
}

// Save writes the configuration to a YAML file, creating the directory as
// needed.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// applyEnvOverrides applies CREDFILL_* environment variable overrides.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("CREDFILL_THEME"); v != "" {
		c.Theme = v
	}
	if v := os.Getenv("CREDFILL_PROFILE"); v != "" {
		c.ProfilePath = v
	}
	if v := os.Getenv("CREDFILL_ATTEST_SEED"); v != "" {
		c.AttestSeedPath = v
	}
	if v := os.Getenv("CREDFILL_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("CREDFILL_DEBUG"); v == "1" || v == "true" {
		c.Logging.DebugMode = true
	}
}

// ParseTiming resolves the duration strings, substituting the default for
// anything empty or malformed.
func (c *Config) ParseTiming() Timing {
	def := DefaultConfig().Timing
	return Timing{
		DebounceQuiet:   parseDuration(c.Timing.DebounceQuiet, def.DebounceQuiet),
		Settle:          parseDuration(c.Timing.Settle, def.Settle),
		WordDelay:       parseDuration(c.Timing.WordDelay, def.WordDelay),
		FieldDelay:      parseDuration(c.Timing.FieldDelay, def.FieldDelay),
		UploadTick:      parseDuration(c.Timing.UploadTick, def.UploadTick),
		SuccessReturn:   parseDuration(c.Timing.SuccessReturn, def.SuccessReturn),
		PauseAbortAfter: parseDuration(c.Timing.PauseAbortAfter, def.PauseAbortAfter),
	}
}

func parseDuration(s, fallback string) time.Duration {
	if d, err := time.ParseDuration(s); err == nil && d >= 0 {
		return d
	}
	d, err := time.ParseDuration(fallback)
	if err != nil {
		return 0
	}
	return d
}

// Validate checks the configuration for obvious mistakes.
func (c *Config) Validate() error {
	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level %q", c.Logging.Level)
	}
	if c.ProfilePath != "" {
		if _, err := os.Stat(c.ProfilePath); err != nil {
			return fmt.Errorf("profile_path: %w", err)
		}
	}
	return nil
}
