package live

import (
	"time"

	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/lipgloss"
)

// defaultColumns returns the table columns for a standard terminal.
func defaultColumns() []table.Column {
	return columnsForWidth(100)
}

// columnsForWidth gives the detail column whatever the fixed columns leave.
func columnsForWidth(width int) []table.Column {
	detail := width - 14 - 12 - 10 - 8
	if detail < 20 {
		detail = 20
	}
	return []table.Column{
		{Title: "Step", Width: 14},
		{Title: "Status", Width: 12},
		{Title: "Elapsed", Width: 10},
		{Title: "Detail", Width: detail},
	}
}

// tableStyles returns table styles for the UI.
func tableStyles(noColor bool) table.Styles {
	if noColor {
		return table.DefaultStyles()
	}
	styles := table.DefaultStyles()
	styles.Header = styles.Header.Foreground(lipgloss.Color("252"))
	return styles
}

// rowsForState converts UI state into table rows.
func rowsForState(state State, now time.Time, noColor bool) []table.Row {
	rows := make([]table.Row, 0, len(state.Rows))
	for _, row := range state.Rows {
		rows = append(rows, table.Row{
			row.Name,
			stylizeStatus(row.Status, noColor),
			formatRowDuration(row, now),
			row.Detail,
		})
	}
	return rows
}
