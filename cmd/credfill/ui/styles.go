// Package ui provides the visual styling and page models for the credfill
// interactive panel. Colors follow the provider portal palette with
// light/dark mode support.
package ui

import (
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	// Light Mode Colors (Default)
	LightBackground = lipgloss.Color("#f4f6f8")
	LightForeground = lipgloss.Color("#1f2a44")
	LightPrimary    = lipgloss.Color("#0072CE") // Portal blue
	LightAccent     = lipgloss.Color("#10B981") // Confirmation green
	LightSecondary  = lipgloss.Color("#e2e8f0")
	LightMuted      = lipgloss.Color("#8a97b1")
	LightBorder     = lipgloss.Color("#d7dde6")
	LightCard       = lipgloss.Color("#ffffff")

	// Dark Mode Colors
	DarkBackground = lipgloss.Color("#121a2a")
	DarkForeground = lipgloss.Color("#eef1f5")
	DarkPrimary    = lipgloss.Color("#3b9ae8")
	DarkAccent     = lipgloss.Color("#10B981")
	DarkSecondary  = lipgloss.Color("#1d2838")
	DarkMuted      = lipgloss.Color("#5d6b85")
	DarkBorder     = lipgloss.Color("#2a3850")
	DarkCard       = lipgloss.Color("#1a2536")

	// Semantic Colors (same in both modes)
	Destructive = lipgloss.Color("#ef4444")
	Success     = lipgloss.Color("#10B981")
	Warning     = lipgloss.Color("#F59E0B")
	Info        = lipgloss.Color("#0072CE")
)

// Theme holds the current color scheme
type Theme struct {
	Background lipgloss.Color
	Foreground lipgloss.Color
	Primary    lipgloss.Color
	Accent     lipgloss.Color
	Secondary  lipgloss.Color
	Muted      lipgloss.Color
	Border     lipgloss.Color
	Card       lipgloss.Color
	IsDark     bool
}

// LightTheme returns the light mode theme
func LightTheme() Theme {
	return Theme{
		Background: LightBackground,
		Foreground: LightForeground,
		Primary:    LightPrimary,
		Accent:     LightAccent,
		Secondary:  LightSecondary,
		Muted:      LightMuted,
		Border:     LightBorder,
		Card:       LightCard,
		IsDark:     false,
	}
}

// DarkTheme returns the dark mode theme
func DarkTheme() Theme {
	return Theme{
		Background: DarkBackground,
		Foreground: DarkForeground,
		Primary:    DarkPrimary,
		Accent:     DarkAccent,
		Secondary:  DarkSecondary,
		Muted:      DarkMuted,
		Border:     DarkBorder,
		Card:       DarkCard,
		IsDark:     true,
	}
}

// DetectTheme auto-detects based on terminal or returns light mode
func DetectTheme() Theme {
	colorTerm := os.Getenv("COLORFGBG")
	if colorTerm != "" {
		// Format is usually "foreground;background"
		parts := strings.Split(colorTerm, ";")
		if len(parts) == 2 {
			if bgIdx, err := strconv.Atoi(parts[1]); err == nil {
				if (bgIdx >= 0 && bgIdx <= 6) || bgIdx == 8 {
					return DarkTheme()
				}
			}
		}
	}
	if os.Getenv("CREDFILL_DARK_MODE") == "1" {
		return DarkTheme()
	}
	return LightTheme()
}

// ThemeByName resolves a configured theme name, falling back to detection.
func ThemeByName(name string) Theme {
	switch name {
	case "light":
		return LightTheme()
	case "dark":
		return DarkTheme()
	}
	return DetectTheme()
}

// Styles holds all the styled components
type Styles struct {
	Theme Theme

	// Layout
	App    lipgloss.Style
	Header lipgloss.Style
	Footer lipgloss.Style
	Card   lipgloss.Style

	// Text
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Bold     lipgloss.Style
	Muted    lipgloss.Style

	// Semantic
	Error   lipgloss.Style
	Ok      lipgloss.Style
	Warn    lipgloss.Style
	Primary lipgloss.Style

	// Controls
	Button       lipgloss.Style
	ButtonActive lipgloss.Style
	Checkbox     lipgloss.Style
	Selected     lipgloss.Style

	// Progress
	ProgressBar   lipgloss.Style
	ProgressLabel lipgloss.Style

	// Badges
	BadgePending  lipgloss.Style
	BadgeApproved lipgloss.Style
	BadgeReverted lipgloss.Style
}

// NewStyles builds the style set for a theme
func NewStyles(t Theme) Styles {
	s := Styles{Theme: t}

	s.App = lipgloss.NewStyle().Padding(1, 2)
	s.Header = lipgloss.NewStyle().
		Foreground(t.Card).
		Background(t.Primary).
		Bold(true).
		Padding(0, 1)
	s.Footer = lipgloss.NewStyle().Foreground(t.Muted).Padding(1, 0, 0, 0)
	s.Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.Border).
		Padding(0, 1)

	s.Title = lipgloss.NewStyle().Foreground(t.Primary).Bold(true)
	s.Subtitle = lipgloss.NewStyle().Foreground(t.Foreground).Bold(true)
	s.Body = lipgloss.NewStyle().Foreground(t.Foreground)
	s.Bold = lipgloss.NewStyle().Foreground(t.Foreground).Bold(true)
	s.Muted = lipgloss.NewStyle().Foreground(t.Muted)

	s.Error = lipgloss.NewStyle().Foreground(Destructive)
	s.Ok = lipgloss.NewStyle().Foreground(Success)
	s.Warn = lipgloss.NewStyle().Foreground(Warning)
	s.Primary = lipgloss.NewStyle().Foreground(t.Primary)

	s.Button = lipgloss.NewStyle().
		Foreground(t.Foreground).
		Background(t.Secondary).
		Padding(0, 2)
	s.ButtonActive = lipgloss.NewStyle().
		Foreground(t.Card).
		Background(t.Primary).
		Bold(true).
		Padding(0, 2)
	s.Checkbox = lipgloss.NewStyle().Foreground(t.Primary)
	s.Selected = lipgloss.NewStyle().
		Foreground(t.Primary).
		Bold(true)

	s.ProgressBar = lipgloss.NewStyle().Foreground(t.Primary)
	s.ProgressLabel = lipgloss.NewStyle().Foreground(t.Muted)

	s.BadgePending = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7a5c00")).
		Background(lipgloss.Color("#fdeec0")).
		Padding(0, 1)
	s.BadgeApproved = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#0c5132")).
		Background(lipgloss.Color("#d1fadf")).
		Padding(0, 1)
	s.BadgeReverted = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7f1d1d")).
		Background(lipgloss.Color("#fee2e2")).
		Padding(0, 1)

	return s
}
