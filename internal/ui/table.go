package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Reading states shown in the STATUS column.
const (
	ReadingOK     = "ok"
	ReadingAlert  = "ALERT"
	ReadingAbsent = "absent"
	ReadingError  = "error"
)

// ReadingRow is one metric in the 'vigil check' table.
type ReadingRow struct {
	Metric    string
	Value     string
	Threshold string
	Status    string
}

// RenderReadings renders one-shot metric readings as a bordered table.
func RenderReadings(rows []ReadingRow) string {
	if len(rows) == 0 {
		return "No metrics enabled"
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(MutedStyle()).
		Headers("METRIC", "VALUE", "THRESHOLD", "STATUS").
		StyleFunc(func(row, col int) lipgloss.Style {
			base := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return base.Bold(true)
			}
			if col != 3 || row < 0 || row >= len(rows) {
				return base
			}
			return base.Inherit(ReadingStyle(rows[row].Status))
		})

	for _, r := range rows {
		t.Row(r.Metric, r.Value, r.Threshold, r.Status)
	}
	return t.Render()
}

// ReadingStyle colors a reading status.
func ReadingStyle(status string) lipgloss.Style {
	switch status {
	case ReadingAlert, ReadingError:
		return ErrorStyle().Bold(true)
	case ReadingOK:
		return SuccessStyle()
	default:
		return MutedStyle()
	}
}

// Indent prefixes every line of s with n spaces.
func Indent(s string, n int) string {
	pad := strings.Repeat(" ", n)
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		if l != "" {
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}
