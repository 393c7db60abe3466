package live

import (
	"time"

	"github.com/charmbracelet/lipgloss"
)

// renderHeader renders the run header line.
func renderHeader(state State, now time.Time, noColor bool) string {
	line := "Run " + state.RunID
	if state.Product != "" {
		line += " | " + state.Product
	}
	if state.RunState != "" {
		line += " | " + string(state.RunState)
	}
	if !state.StartedAt.IsZero() {
		line += " | Elapsed: " + now.Sub(state.StartedAt).Round(100*time.Millisecond).String()
	}
	return stylize(line, noColor, lipgloss.Color("33"))
}

// renderSummary renders fix attempts and the latest issue counts.
func renderSummary(state State, noColor bool) string {
	line := "Fix attempts: " + fmtInt(state.FixAttempts) + "/" + fmtInt(state.MaxFixAttempts) +
		" Blockers: " + fmtInt(state.Blockers) +
		" Warnings: " + fmtInt(state.Warnings)
	return stylize(line, noColor, lipgloss.Color("242"))
}

// renderFooter renders the last event and any failure.
func renderFooter(state State, noColor bool) string {
	if state.Failure != "" {
		return stylize("Failed: "+state.Failure, noColor, lipgloss.Color("196"))
	}
	if state.LastEvent == "" {
		return ""
	}
	return stylize("Last event: "+state.LastEvent, noColor, lipgloss.Color("244"))
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
