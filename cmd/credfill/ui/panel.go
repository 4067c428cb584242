package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"

	"credfill/internal/panel"
	"credfill/internal/profile"
	"credfill/internal/review"
)

// Controller is the surface the panel model drives. The application wires it
// to the session, the form, the autofill host, and the review workflow.
type Controller interface {
	SignIn(username, password string)
	SignOut()
	StartAutofill(selected []int) error
	TogglePause(paused bool)
	Abort()
	RequestClose()
	Proposals() []review.Proposal
	ConfirmAll(edits map[string]string) []*review.ValidationError
	CancelReview()
	Profile() *profile.ReferenceProfile
	ShowProfile()
	BackToPicker()
	HasRunOnce() bool

	// Form access for the editor. EditField writes through the form's
	// listener path, so edits feed change detection.
	FormKeys() []profile.FieldKey
	FormValue(key profile.FieldKey) string
	EditField(key profile.FieldKey, value string) error
}

// PanelModel is the root Bubble Tea model for the interactive panel.
type PanelModel struct {
	styles Styles
	ctrl   Controller

	width  int
	height int
	view   panel.View

	// Login state
	loginInputs [2]textinput.Model
	loginFocus  int

	// Location picker state
	search     textinput.Model
	searching  bool
	cursor     int
	selected   map[int]bool
	pickerNote string

	// Form editor state
	editing    bool
	editKeys   []profile.FieldKey
	editCursor int
	editInput  textinput.Model
	editTyping bool

	// Progress state
	spin     spinner.Model
	progress ProgressMsg
	paused   bool

	// Review state
	proposals   []review.Proposal
	inputs      []textinput.Model
	reviewFocus int
	fieldErrors map[string]string

	// Confirmation state, rendered once with glamour
	confirmedBody string

	quitting bool
}

// NewPanelModel builds the panel model in the login view.
func NewPanelModel(styles Styles, ctrl Controller) PanelModel {
	m := PanelModel{
		styles:   styles,
		ctrl:     ctrl,
		view:     panel.ViewLogin,
		selected: map[int]bool{},
	}

	user := textinput.New()
	user.Placeholder = "Username"
	user.CharLimit = 64
	user.Focus()
	pass := textinput.New()
	pass.Placeholder = "Password"
	pass.EchoMode = textinput.EchoPassword
	pass.CharLimit = 64
	m.loginInputs = [2]textinput.Model{user, pass}

	m.search = textinput.New()
	m.search.Placeholder = "Search locations"
	m.search.CharLimit = 64

	m.editInput = textinput.New()
	m.editInput.CharLimit = 128

	m.spin = spinner.New()
	m.spin.Spinner = spinner.Dot
	m.spin.Style = styles.Primary

	m.confirmedBody = renderConfirmedBody()
	return m
}

func renderConfirmedBody() string {
	md := `## Changes Confirmed

Your profile has been updated with the confirmed changes.

**Next steps**

1. Review the pending updates on your attestation dashboard.
2. Approve or revert each externally sourced update.
3. Re-attest so payers receive your current information.`
	out, err := glamour.Render(md, "auto")
	if err != nil {
		return md
	}
	return out
}

// Init implements tea.Model.
func (m PanelModel) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spin.Tick)
}

// Update implements tea.Model.
func (m PanelModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case ViewMsg:
		return m.enterView(msg)

	case ProgressMsg:
		m.progress = msg
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m PanelModel) enterView(msg ViewMsg) (tea.Model, tea.Cmd) {
	m.view = msg.View
	if msg.View != panel.ViewLocationPicker {
		// Host-driven transitions leave the form editor.
		m.editing = false
		m.editTyping = false
	}
	switch msg.View {
	case panel.ViewClosed:
		m.quitting = true
		return m, tea.Quit
	case panel.ViewLocationPicker:
		m.pickerNote = ""
		if m.cursor > len(m.ctrl.Profile().Locations) {
			m.cursor = 0
		}
	case panel.ViewProgress:
		m.paused = false
		m.progress = ProgressMsg{Label: "Starting...", Percent: 0}
	case panel.ViewChangeReview:
		m.loadProposals()
	}
	return m, nil
}

func (m *PanelModel) loadProposals() {
	m.proposals = m.ctrl.Proposals()
	m.inputs = make([]textinput.Model, len(m.proposals))
	m.fieldErrors = map[string]string{}
	for i, p := range m.proposals {
		in := textinput.New()
		in.SetValue(p.Proposed)
		in.CharLimit = 128
		if i == 0 {
			in.Focus()
		}
		m.inputs[i] = in
	}
	m.reviewFocus = 0
}

func (m PanelModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.ctrl.RequestClose()
		m.quitting = true
		return m, tea.Quit
	}

	switch m.view {
	case panel.ViewLogin:
		return m.updateLogin(msg)
	case panel.ViewLocationPicker:
		if m.editing {
			return m.updateFormEditor(msg)
		}
		return m.updatePicker(msg)
	case panel.ViewProgress:
		return m.updateProgress(msg)
	case panel.ViewChangeReview:
		return m.updateReview(msg)
	case panel.ViewChangeConfirmed, panel.ViewSuccess:
		if msg.Type == tea.KeyEnter || msg.Type == tea.KeyEsc {
			m.ctrl.CancelReview()
		}
		return m, nil
	case panel.ViewProfile:
		if msg.Type == tea.KeyEsc {
			m.ctrl.BackToPicker()
		}
		return m, nil
	}
	return m, nil
}

func (m PanelModel) updateLogin(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyShiftTab, tea.KeyUp, tea.KeyDown:
		m.loginInputs[m.loginFocus].Blur()
		m.loginFocus = (m.loginFocus + 1) % 2
		m.loginInputs[m.loginFocus].Focus()
		return m, nil
	case tea.KeyEnter:
		if m.loginFocus == 0 {
			m.loginInputs[0].Blur()
			m.loginFocus = 1
			m.loginInputs[1].Focus()
			return m, nil
		}
		m.ctrl.SignIn(m.loginInputs[0].Value(), m.loginInputs[1].Value())
		return m, nil
	}
	var cmd tea.Cmd
	m.loginInputs[m.loginFocus], cmd = m.loginInputs[m.loginFocus].Update(msg)
	return m, cmd
}

// pickerRows lists the reference locations matching the search filter; index
// -1 is the select-all row.
func (m PanelModel) pickerRows() []int {
	locs := m.ctrl.Profile().Locations
	q := strings.ToLower(strings.TrimSpace(m.search.Value()))
	rows := []int{-1}
	for i, loc := range locs {
		if q == "" ||
			strings.Contains(strings.ToLower(loc.Name), q) ||
			strings.Contains(strings.ToLower(loc.Address), q) ||
			strings.Contains(strings.ToLower(loc.City), q) {
			rows = append(rows, i)
		}
	}
	return rows
}

func (m PanelModel) updatePicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searching {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.searching = false
			m.search.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.cursor = 0
		return m, cmd
	}

	rows := m.pickerRows()
	switch {
	case msg.Type == tea.KeyEsc:
		m.ctrl.RequestClose()
		return m, nil
	case msg.Type == tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
		return m, nil
	case msg.Type == tea.KeyDown:
		if m.cursor < len(rows)-1 {
			m.cursor++
		}
		return m, nil
	case msg.Type == tea.KeySpace:
		m.toggleRow(rows[m.cursor])
		return m, nil
	case msg.String() == "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case msg.String() == "a":
		m.toggleRow(-1)
		return m, nil
	case msg.String() == "e":
		m.editing = true
		m.editKeys = m.ctrl.FormKeys()
		if m.editCursor >= len(m.editKeys) {
			m.editCursor = 0
		}
		return m, nil
	case msg.String() == "p":
		m.ctrl.ShowProfile()
		return m, nil
	case msg.String() == "s":
		m.ctrl.SignOut()
		return m, nil
	case msg.Type == tea.KeyEnter:
		picked := m.pickedIndexes()
		if len(picked) == 0 {
			m.pickerNote = "Select at least one location."
			return m, nil
		}
		if err := m.ctrl.StartAutofill(picked); err != nil {
			m.pickerNote = err.Error()
		}
		return m, nil
	}
	return m, nil
}

func (m *PanelModel) toggleRow(row int) {
	locs := m.ctrl.Profile().Locations
	if row >= 0 {
		m.selected[row] = !m.selected[row]
		return
	}
	// Select-all toggles based on whether everything is already selected.
	all := true
	for i := range locs {
		if !m.selected[i] {
			all = false
			break
		}
	}
	for i := range locs {
		m.selected[i] = !all
	}
}

func (m PanelModel) pickedIndexes() []int {
	var out []int
	for i := range m.ctrl.Profile().Locations {
		if m.selected[i] {
			out = append(out, i)
		}
	}
	return out
}

// updateFormEditor drives the form editor reached from the picker: a field
// list, with enter dropping into a text input for the selected field. Commits
// go through Controller.EditField, so they feed change detection like any
// edit made on the live form.
func (m PanelModel) updateFormEditor(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.editTyping {
		switch msg.Type {
		case tea.KeyEnter:
			key := m.editKeys[m.editCursor]
			if err := m.ctrl.EditField(key, m.editInput.Value()); err != nil {
				m.pickerNote = err.Error()
			}
			m.editTyping = false
			m.editInput.Blur()
			return m, nil
		case tea.KeyEsc:
			m.editTyping = false
			m.editInput.Blur()
			return m, nil
		}
		var cmd tea.Cmd
		m.editInput, cmd = m.editInput.Update(msg)
		return m, cmd
	}

	switch msg.Type {
	case tea.KeyEsc:
		m.editing = false
		return m, nil
	case tea.KeyUp:
		if m.editCursor > 0 {
			m.editCursor--
		}
		return m, nil
	case tea.KeyDown:
		if m.editCursor < len(m.editKeys)-1 {
			m.editCursor++
		}
		return m, nil
	case tea.KeyEnter:
		if len(m.editKeys) == 0 {
			return m, nil
		}
		key := m.editKeys[m.editCursor]
		m.editInput.SetValue(m.ctrl.FormValue(key))
		m.editInput.CursorEnd()
		m.editInput.Focus()
		m.editTyping = true
		return m, textinput.Blink
	}
	return m, nil
}

func (m PanelModel) updateProgress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case msg.String() == "p":
		m.paused = !m.paused
		m.ctrl.TogglePause(m.paused)
		return m, nil
	case msg.Type == tea.KeyEsc:
		m.ctrl.Abort()
		return m, nil
	}
	return m, nil
}

func (m PanelModel) updateReview(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.Type {
	case tea.KeyTab, tea.KeyDown:
		return m.moveReviewFocus(1), nil
	case tea.KeyShiftTab, tea.KeyUp:
		return m.moveReviewFocus(-1), nil
	case tea.KeyEsc:
		m.ctrl.CancelReview()
		return m, nil
	case tea.KeyEnter:
		edits := make(map[string]string, len(m.proposals))
		for i, p := range m.proposals {
			edits[p.Change.Key.String()] = m.inputs[i].Value()
		}
		m.fieldErrors = map[string]string{}
		if errs := m.ctrl.ConfirmAll(edits); len(errs) > 0 {
			for _, e := range errs {
				m.fieldErrors[e.Key.String()] = e.Message
			}
		}
		return m, nil
	}
	if len(m.inputs) == 0 {
		return m, nil
	}
	var cmd tea.Cmd
	m.inputs[m.reviewFocus], cmd = m.inputs[m.reviewFocus].Update(msg)
	return m, cmd
}

func (m PanelModel) moveReviewFocus(delta int) PanelModel {
	if len(m.inputs) == 0 {
		return m
	}
	m.inputs[m.reviewFocus].Blur()
	m.reviewFocus = (m.reviewFocus + delta + len(m.inputs)) % len(m.inputs)
	m.inputs[m.reviewFocus].Focus()
	return m
}

// View implements tea.Model.
func (m PanelModel) View() string {
	if m.quitting {
		return ""
	}

	var body string
	switch m.view {
	case panel.ViewLogin:
		body = m.viewLogin()
	case panel.ViewLocationPicker:
		if m.editing {
			body = m.viewFormEditor()
		} else {
			body = m.viewPicker()
		}
	case panel.ViewProgress:
		body = m.viewProgress()
	case panel.ViewSuccess:
		body = m.viewSuccess()
	case panel.ViewChangeReview:
		body = m.viewReview()
	case panel.ViewChangeConfirmed:
		body = m.confirmedBody
	case panel.ViewProfile:
		body = m.viewProfile()
	}

	header := m.styles.Header.Render("credfill")
	if h := m.view.Header(); h != "" {
		header = m.styles.Header.Render("credfill - " + h)
	}
	return m.styles.App.Render(lipgloss.JoinVertical(lipgloss.Left, header, "", body))
}

func (m PanelModel) viewLogin() string {
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render("Sign in to your provider account"))
	b.WriteString("\n\n")
	b.WriteString(m.loginInputs[0].View())
	b.WriteString("\n")
	b.WriteString(m.loginInputs[1].View())
	b.WriteString("\n\n")
	b.WriteString(m.styles.Footer.Render("enter: sign in - tab: switch field - ctrl+c: quit"))
	return b.String()
}

func (m PanelModel) viewPicker() string {
	var b strings.Builder
	ref := m.ctrl.Profile()
	b.WriteString(m.styles.Subtitle.Render("Hi, " + ref.Name))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Choose the practice locations to fill in."))
	b.WriteString("\n\n")

	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n\n")
	}

	rows := m.pickerRows()
	for pos, row := range rows {
		cursor := "  "
		if pos == m.cursor {
			cursor = m.styles.Selected.Render("> ")
		}
		if row == -1 {
			b.WriteString(cursor + m.styles.Bold.Render("[ Select all locations ]"))
			b.WriteString("\n")
			continue
		}
		loc := ref.Locations[row]
		mark := "[ ]"
		if m.selected[row] {
			mark = m.styles.Checkbox.Render("[x]")
		}
		b.WriteString(fmt.Sprintf("%s%s %s\n", cursor, mark, m.styles.Body.Render(loc.Name)))
		b.WriteString("       " + m.styles.Muted.Render(loc.StreetLine()+", "+loc.City+", "+loc.State+" "+loc.Zip))
		b.WriteString("\n")
	}

	label := "Autofill"
	if m.ctrl.HasRunOnce() {
		label = "Autofill Again"
	}
	b.WriteString("\n")
	b.WriteString(m.styles.ButtonActive.Render(label))
	if m.pickerNote != "" {
		b.WriteString("\n" + m.styles.Error.Render(m.pickerNote))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render("space: toggle - a: select all - /: search - e: edit form - p: profile - s: sign out - enter: autofill - esc: close"))
	return b.String()
}

func (m PanelModel) viewFormEditor() string {
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render("Edit form fields"))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Edits are compared against your profile once you stop typing."))
	b.WriteString("\n\n")

	for i, key := range m.editKeys {
		cursor := "  "
		if i == m.editCursor {
			cursor = m.styles.Selected.Render("> ")
		}
		label := profile.DisplayName(key)
		if !key.IsScalar() {
			label = fmt.Sprintf("%s (location %d)", label, key.Index+1)
		}
		if i == m.editCursor && m.editTyping {
			b.WriteString(cursor + m.styles.Bold.Render(label) + "\n")
			b.WriteString("    " + m.editInput.View() + "\n")
			continue
		}
		b.WriteString(fmt.Sprintf("%s%s: %s\n", cursor, m.styles.Body.Render(label),
			m.ctrl.FormValue(key)))
	}

	if m.pickerNote != "" {
		b.WriteString("\n" + m.styles.Error.Render(m.pickerNote))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render("enter: edit field - esc: back"))
	return b.String()
}

func (m PanelModel) viewProgress() string {
	var b strings.Builder
	bar := renderBar(m.progress.Percent, 32)
	if m.paused {
		b.WriteString(m.styles.Warn.Render("Paused"))
	} else {
		b.WriteString(m.spin.View() + m.styles.Body.Render(m.progress.Label))
	}
	b.WriteString("\n\n")
	b.WriteString(m.styles.ProgressBar.Render(bar))
	b.WriteString(fmt.Sprintf(" %d%%", m.progress.Percent))
	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render("p: pause/resume - esc: cancel"))
	return b.String()
}

func renderBar(percent, width int) string {
	if percent < 0 {
		percent = 0
	}
	if percent > 100 {
		percent = 100
	}
	filled := percent * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

func (m PanelModel) viewSuccess() string {
	var b strings.Builder
	b.WriteString(m.styles.Ok.Render("✓ Autofill complete"))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Muted.Render("Review the form and submit when ready."))
	return b.String()
}

func (m PanelModel) viewReview() string {
	var b strings.Builder
	b.WriteString(m.styles.Subtitle.Render("We noticed some updates"))
	b.WriteString("\n")
	b.WriteString(m.styles.Muted.Render("Confirm the changes below to keep your profile current."))
	b.WriteString("\n\n")

	for i, p := range m.proposals {
		title := p.Change.DisplayName
		if p.Change.NewLocation {
			title += " (new location)"
		} else if !p.Change.Key.IsScalar() {
			title += fmt.Sprintf(" (location %d)", p.Change.LocationIndex+1)
		}
		var card strings.Builder
		card.WriteString(m.styles.Bold.Render(title))
		card.WriteString("\n")
		if p.Previous != "" {
			card.WriteString(m.styles.Muted.Render("Previous: " + p.Previous))
			card.WriteString("\n")
		}
		card.WriteString(m.inputs[i].View())
		if msg, ok := m.fieldErrors[p.Change.Key.String()]; ok {
			card.WriteString("\n" + m.styles.Error.Render(msg))
		}
		b.WriteString(m.styles.Card.Render(card.String()))
		b.WriteString("\n")
	}

	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render("tab: next field - enter: confirm all - esc: discard"))
	return b.String()
}

func (m PanelModel) viewProfile() string {
	ref := m.ctrl.Profile()
	t := NewSimpleTable("Account Information", []string{"Field", "Value"})
	t.AddRow("Name", ref.Name)
	t.AddRow("Specialty", ref.Specialty)
	t.AddRow("Provider ID", ref.ProviderID)
	t.AddRow("NPI", ref.NPI)
	t.AddRow("License", ref.License+"  exp "+ref.LicenseExp)
	t.AddRow("DEA", ref.DEA+"  exp "+ref.DEAExp)
	for i, loc := range ref.Locations {
		t.AddRow(fmt.Sprintf("Location %d", i+1),
			loc.Name+"\n"+loc.StreetLine()+"\n"+loc.City+", "+loc.State+" "+loc.Zip+"\n"+loc.Phone)
	}
	return t.View(m.styles) + "\n" + m.styles.Footer.Render("esc: back")
}
