package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// SimpleTable is a simple table component for rendering static data.
type SimpleTable struct {
	Title   string
	Headers []string
	Rows    [][]string
	// Cursor highlights one row; -1 disables highlighting.
	Cursor int
}

// NewSimpleTable creates a new SimpleTable with the given title and headers.
func NewSimpleTable(title string, headers []string) *SimpleTable {
	return &SimpleTable{
		Title:   title,
		Headers: headers,
		Rows:    make([][]string, 0),
		Cursor:  -1,
	}
}

// AddRow adds a row to the table. Multi-line cells are allowed; the row grows
// to its tallest cell.
func (t *SimpleTable) AddRow(row ...string) {
	t.Rows = append(t.Rows, row)
}

// View renders the table using the provided styles.
func (t *SimpleTable) View(styles Styles) string {
	if len(t.Rows) == 0 {
		return styles.Muted.Render("No rows to display.")
	}

	var sb strings.Builder

	if t.Title != "" {
		sb.WriteString(styles.Title.Render(t.Title))
		sb.WriteString("\n")
	}

	colWidths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		colWidths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) {
				if w := lipgloss.Width(cell); w > colWidths[i] {
					colWidths[i] = w
				}
			}
		}
	}
	for i := range colWidths {
		colWidths[i] += 2
	}

	headerStyle := styles.Bold.Padding(0, 1)
	rowStyle := styles.Body.Padding(0, 1)
	cursorStyle := styles.Selected.Padding(0, 1)
	sepStyle := styles.Muted

	for i, h := range t.Headers {
		sb.WriteString(headerStyle.Width(colWidths[i]).Render(h))
		if i < len(t.Headers)-1 {
			sb.WriteString(sepStyle.Render("|"))
		}
	}
	sb.WriteString("\n")
	sb.WriteString(sepStyle.Render(strings.Repeat("-", total(colWidths)+len(t.Headers)-1)))
	sb.WriteString("\n")

	for r, row := range t.Rows {
		style := rowStyle
		if r == t.Cursor {
			style = cursorStyle
		}
		cells := make([]string, 0, len(row))
		for i, cell := range row {
			if i < len(colWidths) {
				cells = append(cells, style.Width(colWidths[i]).Render(cell))
			}
		}
		sb.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, joinWithSep(cells, sepStyle.Render("|"))...))
		sb.WriteString("\n")
	}

	return sb.String()
}

func total(widths []int) int {
	n := 0
	for _, w := range widths {
		n += w
	}
	return n
}

func joinWithSep(cells []string, sep string) []string {
	out := make([]string, 0, len(cells)*2)
	for i, c := range cells {
		out = append(out, c)
		if i < len(cells)-1 {
			out = append(out, sep)
		}
	}
	return out
}
