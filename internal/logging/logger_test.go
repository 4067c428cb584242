package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"credfill/internal/config"
)

func resetState() {
	CloseAll()
	logsDir = ""
	cfg = config.LoggingConfig{}
}

func TestDisabledIsNoOp(t *testing.T) {
	resetState()
	ws := t.TempDir()
	if err := Initialize(ws, config.LoggingConfig{DebugMode: false}); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	l := Get(CategoryAutofill)
	l.Info("should go nowhere")

	if _, err := os.Stat(filepath.Join(ws, ".credfill", "logs")); !os.IsNotExist(err) {
		t.Error("disabled logging must not create the logs directory")
	}
}

func TestEnabledWritesCategoryFile(t *testing.T) {
	resetState()
	ws := t.TempDir()
	lc := config.LoggingConfig{DebugMode: true, Level: "debug"}
	if err := Initialize(ws, lc); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	defer resetState()

	l := Get(CategoryDetect)
	l.Info("checked %d fields", 12)
	CloseAll()

	matches, err := filepath.Glob(filepath.Join(ws, ".credfill", "logs", "*_detect.log"))
	if err != nil || len(matches) != 1 {
		t.Fatalf("expected one detect log, got %v (%v)", matches, err)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "checked 12 fields") {
		t.Errorf("log content missing message: %s", data)
	}
}

func TestCategoryToggle(t *testing.T) {
	resetState()
	ws := t.TempDir()
	lc := config.LoggingConfig{
		DebugMode:  true,
		Level:      "info",
		Categories: map[string]bool{"panel": false},
	}
	if err := Initialize(ws, lc); err != nil {
		t.Fatal(err)
	}
	defer resetState()

	if IsCategoryEnabled(CategoryPanel) {
		t.Error("panel category should be disabled")
	}
	if !IsCategoryEnabled(CategoryReview) {
		t.Error("unlisted category should default enabled")
	}

	// A disabled category yields a no-op logger, never a file.
	Get(CategoryPanel).Info("dropped")
	matches, _ := filepath.Glob(filepath.Join(ws, ".credfill", "logs", "*_panel.log"))
	if len(matches) != 0 {
		t.Errorf("disabled category wrote a file: %v", matches)
	}
}

func TestLevelFiltering(t *testing.T) {
	resetState()
	ws := t.TempDir()
	if err := Initialize(ws, config.LoggingConfig{DebugMode: true, Level: "warn"}); err != nil {
		t.Fatal(err)
	}
	defer resetState()

	l := Get(CategoryAttest)
	l.Debug("too quiet")
	l.Info("still too quiet")
	l.Warn("loud enough")
	CloseAll()

	matches, _ := filepath.Glob(filepath.Join(ws, ".credfill", "logs", "*_attest.log"))
	if len(matches) != 1 {
		t.Fatalf("expected attest log, got %v", matches)
	}
	data, _ := os.ReadFile(matches[0])
	s := string(data)
	if strings.Contains(s, "too quiet") {
		t.Error("below-level messages should be filtered")
	}
	if !strings.Contains(s, "loud enough") {
		t.Error("warn message missing")
	}
}
