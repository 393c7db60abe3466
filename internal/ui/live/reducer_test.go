package live

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"docpilot/internal/eventlog"
	"docpilot/internal/gates"
	"docpilot/internal/runner"
	"docpilot/internal/runstate"
	"docpilot/internal/snapshot"
	"docpilot/internal/spec"
	"docpilot/internal/testutil"
)

// TestReduceStageLifecycle verifies stage rows move from pending to completed.
func TestReduceStageLifecycle(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
		state := NewState("run-1", "/tmp/run-1")
		snap := snapshot.Snapshot{RunID: "run-1", Product: "docs", RunState: runstate.Scouting}
		state = Reduce(state, event(1, eventlog.TypeStageStarted, snapshot.StageStartedPayload{Stage: spec.StageScout}, start), snap)
		if state.Rows[0].Status != StepRunning {
			t.Fatalf("expected running scout row, got %s", state.Rows[0].Status)
		}
		done := event(2, eventlog.TypeStageCompleted, snapshot.StageCompletedPayload{
			Stage:   spec.StageScout,
			Outputs: []string{"scout.json", "notes.md"},
		}, start.Add(1500*time.Millisecond))
		state = Reduce(state, done, snap)

		row := state.Rows[0]
		if row.Status != StepCompleted {
			t.Fatalf("expected completed status, got %s", row.Status)
		}
		if row.Detail != "scout.json +1" {
			t.Fatalf("unexpected detail %q", row.Detail)
		}
		if got := formatRowDuration(row, start); got != "1.5s" {
			t.Fatalf("expected 1.5s duration, got %q", got)
		}
		if state.Product != "docs" || state.RunState != runstate.Scouting {
			t.Fatalf("expected snapshot fields copied, got %+v", state)
		}
		if state.Rows[1].Status != StepPending {
			t.Fatalf("expected later stages pending")
		}
	})
}

// TestReduceValidationAndFixRows verifies validation passes and fix attempts append rows.
func TestReduceValidationAndFixRows(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		now := time.Now()
		state := NewState("run-1", "")
		snap := snapshot.Snapshot{RunID: "run-1", RunState: runstate.Validating, MaxFixAttempts: 2}
		state = Reduce(state, event(1, eventlog.TypeRunStateChanged, snapshot.RunStateChangedPayload{
			From: runstate.Drafting, To: runstate.Validating,
		}, now), snap)
		state = Reduce(state, event(2, eventlog.TypeValidationCompleted, snapshot.ValidationCompletedPayload{
			Pass:   1,
			Counts: map[string]int{string(gates.SeverityBlocker): 1, string(gates.SeverityWarn): 2},
		}, now), snap)

		validation := findRow(t, state, "validate #1")
		if validation.Status != StepBlocked {
			t.Fatalf("expected blocked validation, got %s", validation.Status)
		}
		if validation.Detail != "blocker=1 warn=2" {
			t.Fatalf("unexpected counts %q", validation.Detail)
		}
		if state.Blockers != 1 || state.Warnings != 2 {
			t.Fatalf("expected counts on state, got %d/%d", state.Blockers, state.Warnings)
		}

		snap.FixAttempts = 1
		state = Reduce(state, event(3, eventlog.TypeFixSelected, snapshot.FixSelectedPayload{
			Attempt: 1,
			Issue:   gates.Issue{IssueID: "links-001", Message: "broken link"},
		}, now), snap)
		state = Reduce(state, event(4, eventlog.TypeFixRejected, snapshot.FixRejectedPayload{
			Attempt: 1,
			Reason:  "change_budget_exceeded",
		}, now), snap)
		fix := findRow(t, state, "fix #1")
		if fix.Status != StepRejected {
			t.Fatalf("expected rejected fix, got %s", fix.Status)
		}
		if !strings.HasPrefix(fix.Detail, "change_budget_exceeded") {
			t.Fatalf("unexpected fix detail %q", fix.Detail)
		}

		state = Reduce(state, event(5, eventlog.TypeRunStateChanged, snapshot.RunStateChangedPayload{
			From: runstate.Fixing, To: runstate.Validating,
		}, now), snap)
		if findRow(t, state, "validate #2").Status != StepRunning {
			t.Fatalf("expected second validation row running")
		}
		if state.FixAttempts != 1 || state.MaxFixAttempts != 2 {
			t.Fatalf("expected attempts 1/2, got %d/%d", state.FixAttempts, state.MaxFixAttempts)
		}
	})
}

// TestReduceFailureMarksRunningRows verifies failure details and row status.
func TestReduceFailureMarksRunningRows(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		now := time.Now()
		state := NewState("run-1", "")
		snap := snapshot.Snapshot{RunID: "run-1", RunState: runstate.Extracting}
		state = Reduce(state, event(1, eventlog.TypeStageStarted, snapshot.StageStartedPayload{Stage: spec.StageExtract}, now), snap)
		snap.RunState = runstate.Failed
		state = Reduce(state, event(2, eventlog.TypeRunStateChanged, snapshot.RunStateChangedPayload{
			From: runstate.Extracting, To: runstate.Failed, Reason: "stage_error", Message: "boom",
		}, now), snap)

		if state.Failure != "stage_error: boom" {
			t.Fatalf("unexpected failure %q", state.Failure)
		}
		if findRow(t, state, spec.StageExtract).Status != StepFailed {
			t.Fatalf("expected extract row failed")
		}
		if state.RunState != runstate.Failed {
			t.Fatalf("expected failed run state, got %s", state.RunState)
		}
	})
}

// TestReduceDoesNotMutateInput verifies rows are copied before updates.
func TestReduceDoesNotMutateInput(t *testing.T) {
	runWithTimeout(t, time.Second, func() {
		before := NewState("run-1", "")
		after := Reduce(before, event(1, eventlog.TypeStageStarted, snapshot.StageStartedPayload{Stage: spec.StageScout}, time.Now()), snapshot.Snapshot{RunID: "run-1"})
		if before.Rows[0].Status != StepPending {
			t.Fatalf("expected original state untouched, got %s", before.Rows[0].Status)
		}
		if after.Rows[0].Status != StepRunning {
			t.Fatalf("expected reduced state updated")
		}
	})
}

// TestFormatEventPlainLines verifies plain mode output.
func TestFormatEventPlainLines(t *testing.T) {
	got := FormatEvent(event(7, eventlog.TypeBudgetExceeded, snapshot.BudgetExceededPayload{Budget: "llm_calls", Used: 11, Limit: 10}, time.Now()))
	if got != "#7 budget llm_calls exceeded (11/10)" {
		t.Fatalf("unexpected line %q", got)
	}
	got = FormatEvent(eventlog.Event{Seq: 3, Type: eventlog.TypeFixApplied})
	if got != "#3 fix #0 applied" {
		t.Fatalf("unexpected line %q", got)
	}
}

// TestPlainObserverWritesLines verifies the plain observer prints every event.
func TestPlainObserverWritesLines(t *testing.T) {
	var buf bytes.Buffer
	plain := NewPlain(&buf)
	plain.OnRunStart("run-1", "/runs/run-1")
	plain.OnEvent(event(1, eventlog.TypeStageStarted, snapshot.StageStartedPayload{Stage: spec.StageDraft}, time.Now()), snapshot.Snapshot{})
	plain.OnRunEnd(runner.Result{RunID: "run-1", Snapshot: snapshot.Snapshot{RunState: runstate.Done}})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 3 {
		t.Fatalf("expected 3 lines, got %q", buf.String())
	}
	if lines[1] != "#1 stage draft started" {
		t.Fatalf("unexpected event line %q", lines[1])
	}
	if lines[2] != "run run-1 finished: DONE" {
		t.Fatalf("unexpected end line %q", lines[2])
	}
}

// TestModelAppliesEvents verifies the Bubble Tea model reduces streamed events.
func TestModelAppliesEvents(t *testing.T) {
	model := NewModel(nil, Options{NoColor: true})
	model = applyEvent(model, Event{Kind: EventRunStart, RunID: "run-1", RunDir: "/runs/run-1"})
	model = applyEvent(model, Event{
		Kind:     EventLogged,
		Log:      event(1, eventlog.TypeStageStarted, snapshot.StageStartedPayload{Stage: spec.StageScout}, time.Now()),
		Snapshot: snapshot.Snapshot{RunID: "run-1", RunState: runstate.Scouting},
	})
	if model.State().Rows[0].Status != StepRunning {
		t.Fatalf("expected scout running")
	}
	if !strings.Contains(model.View(), "run-1") {
		t.Fatalf("expected run id in view")
	}
}

func findRow(t *testing.T, state State, name string) StepRow {
	t.Helper()
	for _, row := range state.Rows {
		if row.Name == name {
			return row
		}
	}
	t.Fatalf("row %q not found in %+v", name, state.Rows)
	return StepRow{}
}

// event builds a committed log event for testing.
func event(seq int64, kind eventlog.Type, payload any, when time.Time) eventlog.Event {
	raw, err := json.Marshal(payload)
	if err != nil {
		panic(err)
	}
	return eventlog.Event{
		EventID:   "evt",
		Seq:       seq,
		Type:      kind,
		RunID:     "run-1",
		Timestamp: when,
		Payload:   raw,
	}
}

// runWithTimeout executes a test body with a timeout.
func runWithTimeout(t *testing.T, timeout time.Duration, fn func()) {
	t.Helper()
	ctx := testutil.Context(t, timeout)
	done := make(chan struct{})
	go func() {
		defer close(done)
		fn()
	}()
	select {
	case <-done:
	case <-ctx.Done():
		t.Fatalf("test timed out")
	}
}
