package ui

import "credfill/internal/panel"

// ViewMsg switches the panel to a view. It is how the session's renderer
// reaches the Bubble Tea loop from other goroutines.
type ViewMsg struct {
	View    panel.View
	Payload any
}

// ProgressMsg carries an autofill progress update into the loop.
type ProgressMsg struct {
	Label   string
	Percent int
}
