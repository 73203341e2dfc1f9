package cli

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.Korean)

// FormatWon renders a whole-won amount with digit grouping, e.g. "-1,234,500".
func FormatWon(amount int64) string {
	return amountPrinter.Sprintf("%d", amount)
}

// StyleAmount formats and colors an amount.
func StyleAmount(amount int64) string {
	s := FormatWon(amount)
	if amount < 0 {
		return NegativeStyle.Render(s)
	}
	return s
}

// Align is a column alignment for Table.
type Align int

// Column alignments.
const (
	AlignLeft Align = iota
	AlignRight
)

// Table is a plain column layout measured in terminal cells, so wide
// Hangul text lines up with ASCII.
type Table struct {
	Headers []string
	Rows    [][]string
	Align   []Align
}

// Render lays the table out with two spaces between columns.
func (t Table) Render() string {
	widths := make([]int, len(t.Headers))
	for i, h := range t.Headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(widths) {
				widths[i] = max(widths[i], lipgloss.Width(cell))
			}
		}
	}

	var b strings.Builder
	b.WriteString(t.line(t.Headers, widths, TableHeaderStyle))
	for _, row := range t.Rows {
		b.WriteString("\n")
		b.WriteString(t.line(row, widths, lipgloss.NewStyle()))
	}
	return b.String()
}

func (t Table) line(cells []string, widths []int, style lipgloss.Style) string {
	parts := make([]string, len(widths))
	for i := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		pad := strings.Repeat(" ", widths[i]-lipgloss.Width(cell))
		if i < len(t.Align) && t.Align[i] == AlignRight {
			parts[i] = pad + style.Render(cell)
		} else {
			parts[i] = style.Render(cell) + pad
		}
	}
	return strings.TrimRight(strings.Join(parts, "  "), " ")
}
