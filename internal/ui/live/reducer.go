package live

import (
	"fmt"
	"strings"

	"docpilot/internal/eventlog"
	"docpilot/internal/gates"
	"docpilot/internal/runstate"
	"docpilot/internal/snapshot"
	"docpilot/internal/spec"
)

// NewState seeds the rows with the fixed worker stages.
func NewState(runID, runDir string) State {
	rows := make([]StepRow, 0, len(spec.PipelineStages))
	for _, stage := range spec.PipelineStages {
		rows = append(rows, StepRow{Name: stage, Status: StepPending})
	}
	return State{RunID: runID, RunDir: runDir, Rows: rows}
}

// Reduce applies one committed event and the snapshot it produced.
func Reduce(state State, event eventlog.Event, snap snapshot.Snapshot) State {
	if state.Rows == nil {
		state = NewState(event.RunID, state.RunDir)
	}
	if state.StartedAt.IsZero() {
		state.StartedAt = event.Timestamp
	}
	state.RunID = snap.RunID
	state.Product = snap.Product
	state.RunState = snap.RunState
	state.FixAttempts = snap.FixAttempts
	state.MaxFixAttempts = snap.MaxFixAttempts
	state.Rows = append([]StepRow(nil), state.Rows...)

	switch event.Type {
	case eventlog.TypeStageStarted:
		var p snapshot.StageStartedPayload
		if event.Decode(&p) == nil {
			state = updateRow(state, p.Stage, func(row *StepRow) {
				row.Status = StepRunning
				row.StartedAt = event.Timestamp
			})
		}
	case eventlog.TypeStageCompleted:
		var p snapshot.StageCompletedPayload
		if event.Decode(&p) == nil {
			state = updateRow(state, p.Stage, func(row *StepRow) {
				row.Status = StepCompleted
				row.Detail = formatOutputs(p.Outputs)
				row.FinishedAt = event.Timestamp
			})
		}
	case eventlog.TypeStageNotReady:
		var p snapshot.StageNotReadyPayload
		if event.Decode(&p) == nil {
			state = updateRow(state, p.Stage, func(row *StepRow) {
				row.Status = StepNotReady
				row.Detail = p.Reason
				row.FinishedAt = event.Timestamp
			})
		}
	case eventlog.TypeRunStateChanged:
		var p snapshot.RunStateChangedPayload
		if event.Decode(&p) == nil {
			state = applyTransition(state, p, event)
		}
	case eventlog.TypeValidationCompleted:
		var p snapshot.ValidationCompletedPayload
		if event.Decode(&p) == nil {
			state.Blockers = p.Counts[string(gates.SeverityBlocker)]
			state.Warnings = p.Counts[string(gates.SeverityWarn)]
			state = updateRow(state, validationRow(p.Pass), func(row *StepRow) {
				row.Status = StepPassed
				if state.Blockers > 0 {
					row.Status = StepBlocked
				}
				row.Detail = formatCounts(p.Counts)
				row.FinishedAt = event.Timestamp
			})
		}
	case eventlog.TypeFixSelected:
		var p snapshot.FixSelectedPayload
		if event.Decode(&p) == nil {
			state.Rows = append(state.Rows, StepRow{
				Name:      fixRow(p.Attempt),
				Status:    StepRunning,
				Detail:    p.Issue.IssueID + " " + p.Issue.Message,
				StartedAt: event.Timestamp,
			})
		}
	case eventlog.TypeFixApplied:
		var p snapshot.FixAppliedPayload
		if event.Decode(&p) == nil {
			state = updateRow(state, fixRow(p.Attempt), func(row *StepRow) {
				row.Status = StepApplied
				row.Detail = fmt.Sprintf("%d file(s)", len(p.Files))
				row.FinishedAt = event.Timestamp
			})
		}
	case eventlog.TypeFixRejected:
		var p snapshot.FixRejectedPayload
		if event.Decode(&p) == nil {
			state = updateRow(state, fixRow(p.Attempt), func(row *StepRow) {
				row.Status = StepRejected
				row.Detail = fmt.Sprintf("%s (%d violation(s))", p.Reason, len(p.Violations))
				row.FinishedAt = event.Timestamp
			})
		}
	}
	if message := formatLastEvent(event); message != "" {
		state.LastEvent = message
	}
	return state
}

func applyTransition(state State, p snapshot.RunStateChangedPayload, event eventlog.Event) State {
	switch p.To {
	case runstate.Validating:
		state.Rows = append(state.Rows, StepRow{
			Name:      validationRow(countRows(state, "validate") + 1),
			Status:    StepRunning,
			StartedAt: event.Timestamp,
		})
	case runstate.Failed:
		state.Failure = p.Reason
		if p.Message != "" {
			state.Failure += ": " + p.Message
		}
		for i := range state.Rows {
			if state.Rows[i].Status == StepRunning {
				state.Rows[i].Status = StepFailed
				state.Rows[i].FinishedAt = event.Timestamp
			}
		}
	}
	return state
}

func updateRow(state State, name string, fn func(row *StepRow)) State {
	for i := len(state.Rows) - 1; i >= 0; i-- {
		if state.Rows[i].Name == name {
			fn(&state.Rows[i])
			return state
		}
	}
	return state
}

func countRows(state State, prefix string) int {
	count := 0
	for _, row := range state.Rows {
		if strings.HasPrefix(row.Name, prefix) {
			count++
		}
	}
	return count
}

func validationRow(pass int) string {
	return fmt.Sprintf("validate #%d", pass)
}

func fixRow(attempt int) string {
	return fmt.Sprintf("fix #%d", attempt)
}
