package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/term"

	"github.com/charlieadamsdev/tasktickr/internal/board"
	"github.com/charlieadamsdev/tasktickr/internal/reconcile"
)

const (
	defaultTermWidth = 100
	minColumnWidth   = 20
)

var (
	columnTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	columnStyle      = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("8")).
				Padding(0, 1)
	taskIDStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	doneTaskStyle  = lipgloss.NewStyle().Strikethrough(true).Foreground(lipgloss.Color("8"))
	priceUpStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	priceDownStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// terminalWidth reports the stdout width, falling back to a fixed width
// when stdout is not a terminal (pipes, CI).
func terminalWidth() int {
	w, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultTermWidth
	}
	return w
}

func shortID(id uuid.UUID) string {
	return id.String()[:8]
}

func formatDelta(d decimal.Decimal) string {
	if d.IsNegative() {
		return priceDownStyle.Render(d.StringFixed(2))
	}
	return priceUpStyle.Render("+" + d.StringFixed(2))
}

// renderBoard lays the three columns out side by side, sized to the
// terminal.
func renderBoard(snap board.Snapshot, width int) string {
	colWidth := (width - 8) / 3
	if colWidth < minColumnWidth {
		colWidth = minColumnWidth
	}

	cols := make([]string, 0, 3)
	for _, col := range board.Columns() {
		cols = append(cols, renderColumn(col, columnTasks(snap, col), colWidth))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cols...)
}

func renderColumn(col board.Column, tasks []board.Task, width int) string {
	var sb strings.Builder
	sb.WriteString(columnTitleStyle.Render(fmt.Sprintf("%s (%d)", strings.ToUpper(string(col)), len(tasks))))
	sb.WriteString("\n")

	if len(tasks) == 0 {
		sb.WriteString(taskIDStyle.Render("empty"))
	}
	for i, t := range tasks {
		if i > 0 {
			sb.WriteString("\n")
		}
		title := truncate(t.Title, width-11)
		if col == board.ColumnDone {
			title = doneTaskStyle.Render(title)
		}
		sb.WriteString(taskIDStyle.Render(shortID(t.ID)) + " " + title)
	}
	return columnStyle.Width(width).Render(sb.String())
}

// renderPrice formats the shared price with its movement since the
// previous value.
func renderPrice(ps reconcile.PriceSnapshot) string {
	line := fmt.Sprintf("Price: $%s", ps.Current.StringFixed(2))
	if !ps.Delta.IsZero() {
		line += fmt.Sprintf("  %s", formatDelta(ps.Delta))
	}
	return line
}

func truncate(s string, max int) string {
	if max <= 3 {
		return "..."
	}
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
