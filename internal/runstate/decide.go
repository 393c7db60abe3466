package runstate

import (
	"docpilot/internal/gates"
)

type Decision string

const (
	DecisionReadyForPR Decision = "ready_for_pr"
	DecisionFix        Decision = "fix"
	DecisionFailed     Decision = "failed"
)

// Outcome is the result of DecideAfterValidation. On DecisionFix, Issue is
// the selected blocker and FixAttempts is the incremented counter.
type Outcome struct {
	Decision    Decision
	Issue       *gates.Issue
	FixAttempts int
}

// DecideAfterValidation chooses what follows a validation pass. Only issue
// severities matter; the report's passed flag is ignored so that warn and
// info findings never block. The selected issue is the first blocker in
// report order.
func DecideAfterValidation(issues []gates.Issue, fixAttempts, maxFixAttempts int) Outcome {
	blocker, ok := gates.FirstAtLeast(issues, gates.SeverityBlocker)
	if !ok {
		return Outcome{Decision: DecisionReadyForPR, FixAttempts: fixAttempts}
	}
	if fixAttempts < maxFixAttempts {
		selected := blocker
		if blocker.Location != nil {
			location := *blocker.Location
			selected.Location = &location
		}
		return Outcome{Decision: DecisionFix, Issue: &selected, FixAttempts: fixAttempts + 1}
	}
	return Outcome{Decision: DecisionFailed, FixAttempts: fixAttempts}
}
