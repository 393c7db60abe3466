package live

import (
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"docpilot/internal/eventlog"
	"docpilot/internal/snapshot"
)

// fmtInt converts an int to string.
func fmtInt(value int) string {
	return strconv.Itoa(value)
}

func formatOutputs(outputs []string) string {
	switch len(outputs) {
	case 0:
		return ""
	case 1:
		return outputs[0]
	default:
		return outputs[0] + " +" + fmtInt(len(outputs)-1)
	}
}

// formatCounts renders severity counts in a stable order.
func formatCounts(counts map[string]int) string {
	if len(counts) == 0 {
		return "no issues"
	}
	keys := make([]string, 0, len(counts))
	for key := range counts {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, key := range keys {
		parts = append(parts, key+"="+fmtInt(counts[key]))
	}
	return strings.Join(parts, " ")
}

// formatRowDuration returns elapsed or total time for a row.
func formatRowDuration(row StepRow, now time.Time) string {
	if !row.FinishedAt.IsZero() && !row.StartedAt.IsZero() {
		return row.FinishedAt.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	if !row.StartedAt.IsZero() && row.Status == StepRunning {
		return now.Sub(row.StartedAt).Round(100 * time.Millisecond).String()
	}
	return ""
}

// FormatEvent renders a one-line description of a run event.
func FormatEvent(event eventlog.Event) string {
	line := formatLastEvent(event)
	if line == "" {
		line = string(event.Type)
	}
	return "#" + strconv.FormatInt(event.Seq, 10) + " " + line
}

// formatLastEvent describes events worth showing in the footer.
func formatLastEvent(event eventlog.Event) string {
	switch event.Type {
	case eventlog.TypeRunCreated:
		var p snapshot.RunCreatedPayload
		if event.Decode(&p) == nil {
			return "run created for " + p.Product + "@" + p.GitRef + " (" + p.Profile + ")"
		}
	case eventlog.TypeRunStateChanged:
		var p snapshot.RunStateChangedPayload
		if event.Decode(&p) == nil {
			line := string(p.From) + " -> " + string(p.To)
			if p.Reason != "" {
				line += " (" + p.Reason + ")"
			}
			return line
		}
	case eventlog.TypeStageStarted:
		var p snapshot.StageStartedPayload
		if event.Decode(&p) == nil {
			return "stage " + p.Stage + " started"
		}
	case eventlog.TypeStageCompleted:
		var p snapshot.StageCompletedPayload
		if event.Decode(&p) == nil {
			return "stage " + p.Stage + " completed"
		}
	case eventlog.TypeStageNotReady:
		var p snapshot.StageNotReadyPayload
		if event.Decode(&p) == nil {
			return "stage " + p.Stage + " not ready: " + p.Reason
		}
	case eventlog.TypeValidationCompleted:
		var p snapshot.ValidationCompletedPayload
		if event.Decode(&p) == nil {
			return "validation #" + fmtInt(p.Pass) + ": " + formatCounts(p.Counts)
		}
	case eventlog.TypeFixSelected:
		var p snapshot.FixSelectedPayload
		if event.Decode(&p) == nil {
			return "fix #" + fmtInt(p.Attempt) + " selected " + p.Issue.IssueID
		}
	case eventlog.TypeFixApplied:
		var p snapshot.FixAppliedPayload
		if event.Decode(&p) == nil {
			return "fix #" + fmtInt(p.Attempt) + " applied"
		}
	case eventlog.TypeFixRejected:
		var p snapshot.FixRejectedPayload
		if event.Decode(&p) == nil {
			return "fix #" + fmtInt(p.Attempt) + " rejected: " + p.Reason
		}
	case eventlog.TypeBudgetExceeded:
		var p snapshot.BudgetExceededPayload
		if event.Decode(&p) == nil {
			return "budget " + p.Budget + " exceeded (" + strconv.FormatInt(p.Used, 10) + "/" + strconv.FormatInt(p.Limit, 10) + ")"
		}
	case eventlog.TypeSubmissionCompleted:
		var p snapshot.SubmissionCompletedPayload
		if event.Decode(&p) == nil {
			if p.Skipped {
				return "submission skipped"
			}
			return "submitted " + p.Reference
		}
	}
	return ""
}

// stylizeStatus applies status coloring when enabled.
func stylizeStatus(status StepStatus, noColor bool) string {
	if noColor {
		return string(status)
	}
	return statusStyle(status).Render(string(status))
}

// statusStyle selects a style for a given status.
func statusStyle(status StepStatus) lipgloss.Style {
	color := lipgloss.Color("244")
	switch status {
	case StepCompleted, StepPassed, StepApplied:
		color = lipgloss.Color("42")
	case StepBlocked, StepRejected, StepNotReady:
		color = lipgloss.Color("220")
	case StepFailed:
		color = lipgloss.Color("196")
	case StepRunning:
		color = lipgloss.Color("33")
	case StepPending:
		color = lipgloss.Color("246")
	}
	return lipgloss.NewStyle().Foreground(color)
}
