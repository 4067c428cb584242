package ui

import (
	"strings"
	"testing"
)

func TestSimpleTableRendersHeadersAndRows(t *testing.T) {
	styles := NewStyles(LightTheme())
	tbl := NewSimpleTable("Updates", []string{"Category", "Status"})
	tbl.AddRow("Practice Location", "pending")
	tbl.AddRow("Professional ID", "approved")

	out := tbl.View(styles)
	for _, want := range []string{"Updates", "Category", "Status", "Practice Location", "approved"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestSimpleTableEmpty(t *testing.T) {
	styles := NewStyles(LightTheme())
	tbl := NewSimpleTable("", []string{"A"})
	out := tbl.View(styles)
	if !strings.Contains(out, "No rows") {
		t.Errorf("empty table should say so, got %q", out)
	}
}

func TestThemeByName(t *testing.T) {
	if ThemeByName("dark").IsDark != true {
		t.Error("dark theme should be dark")
	}
	if ThemeByName("light").IsDark != false {
		t.Error("light theme should be light")
	}
}

func TestRenderBarClamps(t *testing.T) {
	if got := renderBar(-5, 10); !strings.HasPrefix(got, "░") {
		t.Errorf("negative percent should render empty, got %q", got)
	}
	full := renderBar(150, 10)
	if strings.Contains(full, "░") {
		t.Errorf("overfull percent should render full, got %q", full)
	}
}
