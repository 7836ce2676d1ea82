package ui

import (
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
)

// Table Styles
var (
	TableHeaderStyle = lipgloss.NewStyle().
				Bold(true).
				Foreground(ColorAccent).
				Align(lipgloss.Center)

	TableHintStyle = lipgloss.NewStyle().
			Foreground(ColorMuted)

	TableBorderStyle = lipgloss.NewStyle().
				Foreground(ColorMuted)
)

// TaskRow is one row of a task listing table.
type TaskRow struct {
	ID       string
	Status   string
	Priority int
	Type     string
	Title    string
	Labels   []string
}

// RenderTaskTable renders task rows as a bordered table sized to the
// terminal.
func RenderTaskTable(rows []TaskRow, width int) string {
	if len(rows) == 0 {
		return TableHintStyle.Render("No tasks found.")
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(TableBorderStyle).
		Width(width).
		Headers("ID", "PRI", "STATUS", "TYPE", "TITLE", "LABELS").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	for _, row := range rows {
		t.Row(
			RenderID(row.ID),
			RenderPriority(row.Priority),
			RenderStatus(row.Status),
			row.Type,
			row.Title,
			RenderLabels(row.Labels),
		)
	}
	return t.String()
}
