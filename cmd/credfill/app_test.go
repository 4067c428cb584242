package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	"credfill/internal/config"
	"credfill/internal/logging"
	"credfill/internal/panel"
	"credfill/internal/profile"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Timing.DebounceQuiet = "1ms"
	cfg.Timing.Settle = "0s"
	app := NewApp(cfg, profile.Demo(), zap.NewNop())
	t.Cleanup(app.cancel)
	return app
}

func TestPanelCloseClearsSessionState(t *testing.T) {
	app := newTestApp(t)
	app.session.SignIn()
	key := profile.LocationKey(profile.LocCity, 0)
	app.form.MarkTouched(key)
	app.session.Show(panel.ViewChangeConfirmed, nil)

	app.session.CloseExplicit()

	if app.form.Touched(key) {
		t.Error("closing the panel must clear touch state")
	}
	if app.session.ConfirmationShown() {
		t.Error("closing the panel must reset session flags")
	}
}

func TestEditFieldDrivesReview(t *testing.T) {
	app := newTestApp(t)
	app.flow.Attach()
	defer app.flow.Detach()
	app.session.SignIn()
	app.session.Show(panel.ViewLocationPicker, nil)

	key := profile.LocationKey(profile.LocTelephone, 0)
	if err := app.EditField(key, "(412) 555-0000"); err != nil {
		t.Fatal(err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for app.session.View() != panel.ViewChangeReview {
		if time.Now().After(deadline) {
			t.Fatalf("review never opened, view = %v", app.session.View())
		}
		time.Sleep(5 * time.Millisecond)
	}

	props := app.Proposals()
	if len(props) != 1 || props[0].Change.DisplayName != "Telephone Number" {
		t.Errorf("unexpected proposals: %+v", props)
	}
}

func TestPanelViewTransitionsAreLogged(t *testing.T) {
	ws := t.TempDir()
	if err := logging.Initialize(ws, config.LoggingConfig{DebugMode: true, Level: "debug"}); err != nil {
		t.Fatal(err)
	}
	defer func() {
		logging.CloseAll()
		// Disable again so later tests do not write into the removed dir.
		_ = logging.Initialize(ws, config.LoggingConfig{})
	}()

	app := newTestApp(t)
	app.session.SignIn()
	app.session.Show(panel.ViewLocationPicker, nil)
	logging.CloseAll()

	matches, _ := filepath.Glob(filepath.Join(ws, ".credfill", "logs", "*_panel.log"))
	if len(matches) != 1 {
		t.Fatalf("expected a panel category log, got %v", matches)
	}
	data, err := os.ReadFile(matches[0])
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "location-picker") {
		t.Errorf("panel log missing the view transition: %s", data)
	}
}
