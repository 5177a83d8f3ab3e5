package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205")).MarginBottom(1)
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Width(18)
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("42"))
	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	errorStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("196"))
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

// table renders rows as aligned columns under a styled header.
type table struct {
	headers []string
	rows    [][]string
}

func (t *table) add(cols ...string) {
	t.rows = append(t.rows, cols)
}

func (t *table) render(w io.Writer) error {
	widths := make([]int, len(t.headers))
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range t.rows {
		for i, c := range row {
			if i < len(widths) && lipgloss.Width(c) > widths[i] {
				widths[i] = lipgloss.Width(c)
			}
		}
	}

	line := func(cols []string, style *lipgloss.Style) string {
		cells := make([]string, len(cols))
		for i, c := range cols {
			cell := lipgloss.NewStyle().Width(widths[i]).Render(c)
			if style != nil {
				cell = style.Render(cell)
			}
			cells[i] = cell
		}
		return strings.TrimRight(strings.Join(cells, "  "), " ")
	}

	if _, err := fmt.Fprintln(w, line(t.headers, &headerStyle)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	sep := make([]string, len(widths))
	for i, n := range widths {
		sep[i] = strings.Repeat("─", n)
	}
	if _, err := fmt.Fprintln(w, mutedStyle.Render(strings.Join(sep, "  "))); err != nil {
		return fmt.Errorf("failed to write separator: %w", err)
	}
	for _, row := range t.rows {
		if _, err := fmt.Fprintln(w, line(row, nil)); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	return nil
}

// keyValue renders "label  value" with a fixed-width muted label.
func keyValue(label, value string) string {
	return lipgloss.JoinHorizontal(lipgloss.Top, labelStyle.Render(label), value)
}
