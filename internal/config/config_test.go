package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Theme != "light" {
		t.Errorf("Theme = %q", cfg.Theme)
	}
	if cfg.Logging.DebugMode {
		t.Error("debug mode should default off")
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
}

func TestLoadMissingFileFallsBack(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("missing file should fall back to defaults: %v", err)
	}
	if cfg.Theme != "light" {
		t.Errorf("Theme = %q", cfg.Theme)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`theme: dark
logging:
  level: debug
  debug_mode: true
  categories:
    autofill: true
    detect: false
timing:
  word_delay: 10ms
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Theme != "dark" || cfg.Logging.Level != "debug" {
		t.Errorf("unexpected config: %+v", cfg)
	}
	if !cfg.Logging.IsCategoryEnabled("autofill") {
		t.Error("autofill category should be enabled")
	}
	if cfg.Logging.IsCategoryEnabled("detect") {
		t.Error("detect category should be disabled")
	}
	// Unlisted categories default on while debug mode is on.
	if !cfg.Logging.IsCategoryEnabled("panel") {
		t.Error("unlisted category should default enabled")
	}
}

func TestCategoryDisabledWithoutDebugMode(t *testing.T) {
	lc := LoggingConfig{DebugMode: false, Categories: map[string]bool{"autofill": true}}
	if lc.IsCategoryEnabled("autofill") {
		t.Error("categories are all off when debug mode is off")
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("CREDFILL_THEME", "dark")
	t.Setenv("CREDFILL_LOG_LEVEL", "warn")
	t.Setenv("CREDFILL_DEBUG", "1")

	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Theme != "dark" {
		t.Errorf("Theme = %q", cfg.Theme)
	}
	if cfg.Logging.Level != "warn" {
		t.Errorf("Level = %q", cfg.Logging.Level)
	}
	if !cfg.Logging.DebugMode {
		t.Error("CREDFILL_DEBUG should enable debug mode")
	}
}

func TestParseTiming(t *testing.T) {
	cfg := DefaultConfig()
	timing := cfg.ParseTiming()
	if timing.DebounceQuiet != 400*time.Millisecond {
		t.Errorf("DebounceQuiet = %v", timing.DebounceQuiet)
	}
	if timing.PauseAbortAfter != 2*time.Second {
		t.Errorf("PauseAbortAfter = %v", timing.PauseAbortAfter)
	}

	// Malformed values fall back to the defaults instead of failing.
	cfg.Timing.WordDelay = "not-a-duration"
	timing = cfg.ParseTiming()
	if timing.WordDelay != 60*time.Millisecond {
		t.Errorf("malformed WordDelay should fall back, got %v", timing.WordDelay)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}

	cfg.Logging.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("bogus level should fail validation")
	}
	cfg.Logging.Level = "info"

	cfg.ProfilePath = filepath.Join(t.TempDir(), "missing.yaml")
	if err := cfg.Validate(); err == nil {
		t.Error("missing profile path should fail validation")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "config.yaml")
	cfg := DefaultConfig()
	cfg.Theme = "dark"
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got.Theme != "dark" {
		t.Errorf("round trip lost theme: %q", got.Theme)
	}
}
