package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"credfill/internal/attest"
)

// AttestModel is the Bubble Tea model for the attestation dashboard.
type AttestModel struct {
	styles Styles
	queue  *attest.Queue

	filter attest.Filter
	sort   attest.Sort

	// catTabs holds "" (all) followed by the distinct categories.
	catTabs []string
	catIdx  int

	windows []attest.Window
	winIdx  int

	search    textinput.Model
	searching bool

	cursor int
	detail *attest.Item
	status string

	width  int
	height int

	quitting bool
}

// NewAttestModel builds the dashboard model over a loaded queue.
func NewAttestModel(styles Styles, q *attest.Queue) AttestModel {
	search := textinput.New()
	search.Placeholder = "Search updates"
	search.CharLimit = 64

	return AttestModel{
		styles:  styles,
		queue:   q,
		catTabs: append([]string{""}, q.Categories()...),
		windows: []attest.Window{attest.WindowAll, attest.Window24h, attest.WindowWeek, attest.WindowMonth},
		search:  search,
	}
}

func (m AttestModel) currentFilter() attest.Filter {
	f := m.filter
	f.Search = m.search.Value()
	if m.catTabs[m.catIdx] != "" {
		f.Categories = []string{m.catTabs[m.catIdx]}
	} else {
		f.Categories = nil
	}
	f.Window = m.windows[m.winIdx]
	return f
}

// Init implements tea.Model.
func (m AttestModel) Init() tea.Cmd {
	return textinput.Blink
}

// Update implements tea.Model.
func (m AttestModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m AttestModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if msg.Type == tea.KeyCtrlC {
		m.quitting = true
		return m, tea.Quit
	}

	if m.searching {
		switch msg.Type {
		case tea.KeyEnter, tea.KeyEsc:
			m.searching = false
			m.search.Blur()
			m.cursor = 0
			return m, nil
		}
		var cmd tea.Cmd
		m.search, cmd = m.search.Update(msg)
		m.cursor = 0
		return m, cmd
	}

	if m.detail != nil {
		if msg.Type == tea.KeyEsc || msg.Type == tea.KeyEnter {
			m.detail = nil
		}
		return m, nil
	}

	items := m.queue.Items(m.currentFilter(), m.sort)
	switch {
	case msg.Type == tea.KeyEsc || msg.String() == "q":
		m.quitting = true
		return m, tea.Quit
	case msg.Type == tea.KeyUp:
		if m.cursor > 0 {
			m.cursor--
		}
	case msg.Type == tea.KeyDown:
		if m.cursor < len(items)-1 {
			m.cursor++
		}
	case msg.Type == tea.KeyLeft:
		m.catIdx = (m.catIdx - 1 + len(m.catTabs)) % len(m.catTabs)
		m.cursor = 0
	case msg.Type == tea.KeyRight:
		m.catIdx = (m.catIdx + 1) % len(m.catTabs)
		m.cursor = 0
	case msg.String() == "/":
		m.searching = true
		m.search.Focus()
		return m, textinput.Blink
	case msg.String() == "t":
		m.winIdx = (m.winIdx + 1) % len(m.windows)
		m.cursor = 0
	case msg.String() == "s":
		m.sort = nextSort(m.sort)
	case msg.String() == "o":
		m.sort.Asc = !m.sort.Asc
	case msg.String() == "a":
		if m.cursor < len(items) {
			if err := m.queue.Approve(items[m.cursor].ID); err == nil {
				m.status = "Approved " + items[m.cursor].Category
			}
		}
	case msg.String() == "r":
		if m.cursor < len(items) {
			if err := m.queue.Revert(items[m.cursor].ID); err == nil {
				m.status = "Reverted " + items[m.cursor].Category
			}
		}
	case msg.String() == "A":
		n := m.queue.ApproveAll(m.currentFilter())
		m.status = fmt.Sprintf("Approved %d update(s)", n)
	case msg.Type == tea.KeyEnter:
		if m.cursor < len(items) {
			m.detail = items[m.cursor]
		}
	}
	return m, nil
}

func nextSort(s attest.Sort) attest.Sort {
	order := []string{"", attest.ColCategory, attest.ColSource, attest.ColDate}
	for i, col := range order {
		if s.Column == col {
			s.Column = order[(i+1)%len(order)]
			return s
		}
	}
	s.Column = ""
	return s
}

// View implements tea.Model.
func (m AttestModel) View() string {
	if m.quitting {
		return ""
	}
	if m.detail != nil {
		return m.styles.App.Render(m.viewDetail(m.detail))
	}

	var b strings.Builder
	b.WriteString(m.styles.Header.Render("credfill - Attestation Dashboard"))
	b.WriteString("\n\n")

	if m.queue.AllResolved() {
		b.WriteString(m.styles.Ok.Render("All updates resolved. You may re-attest."))
	} else {
		b.WriteString(m.styles.Warn.Render(fmt.Sprintf(
			"%d update(s) need your review before you can re-attest.", m.queue.PendingCount())))
	}
	b.WriteString("\n\n")

	b.WriteString(m.viewTabs())
	b.WriteString("\n")
	if m.searching || m.search.Value() != "" {
		b.WriteString(m.search.View())
		b.WriteString("\n")
	}
	if w := m.windows[m.winIdx]; w != attest.WindowAll {
		b.WriteString(m.styles.Muted.Render("Time filter: " + string(w)))
		b.WriteString("\n")
	}
	b.WriteString("\n")

	b.WriteString(m.viewTable())

	if m.status != "" {
		b.WriteString("\n" + m.styles.Primary.Render(m.status))
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render(
		"a: approve - r: revert - A: approve all - enter: history - arrows: move/tabs - /: search - t: time - s/o: sort - q: quit"))
	return m.styles.App.Render(b.String())
}

func (m AttestModel) viewTabs() string {
	counts := m.queue.CategoryCounts()
	tabs := make([]string, 0, len(m.catTabs))
	for i, cat := range m.catTabs {
		label := "All"
		if cat != "" {
			label = fmt.Sprintf("%s (%d)", cat, counts[cat])
		}
		if i == m.catIdx {
			tabs = append(tabs, m.styles.ButtonActive.Render(label))
		} else {
			tabs = append(tabs, m.styles.Button.Render(label))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, tabs...)
}

func (m AttestModel) viewTable() string {
	items := m.queue.Items(m.currentFilter(), m.sort)
	t := NewSimpleTable("", []string{"Category", "New Value", "Old Value", "Date", "Source", "Status"})
	t.Cursor = m.cursor
	for _, it := range items {
		t.AddRow(it.Category, it.NewValue, it.OldValue, it.ShortDate(), it.Source, m.badge(it.Status))
	}
	return t.View(m.styles)
}

func (m AttestModel) badge(st attest.Status) string {
	switch st {
	case attest.StatusApproved:
		return m.styles.BadgeApproved.Render("approved")
	case attest.StatusReverted:
		return m.styles.BadgeReverted.Render("reverted")
	}
	return m.styles.BadgePending.Render("pending")
}

func (m AttestModel) viewDetail(it *attest.Item) string {
	var b strings.Builder
	b.WriteString(m.styles.Title.Render(it.Category))
	b.WriteString("  " + m.badge(it.Status))
	b.WriteString("\n\n")
	b.WriteString(m.styles.Bold.Render("New value"))
	b.WriteString("\n" + m.styles.Body.Render(it.NewValue) + "\n\n")
	b.WriteString(m.styles.Bold.Render("Old value"))
	b.WriteString("\n" + m.styles.Muted.Render(it.OldValue) + "\n\n")

	b.WriteString(m.styles.Bold.Render("Source"))
	src := it.Source
	if link := attest.SourceLink(it.Source); link != "" {
		src += "  " + m.styles.Muted.Render(link)
	}
	b.WriteString("\n" + src + "\n\n")

	b.WriteString(m.styles.Bold.Render("Update history"))
	b.WriteString("\n")
	if len(it.History) == 0 {
		b.WriteString(m.styles.Muted.Render("No update history available."))
	}
	for _, h := range it.History {
		b.WriteString(m.styles.Primary.Render(h.Date+" "+h.Time) + "\n")
		b.WriteString(m.styles.Body.Render(h.Text) + "\n")
	}
	b.WriteString("\n")
	b.WriteString(m.styles.Footer.Render("esc: back"))
	return b.String()
}
