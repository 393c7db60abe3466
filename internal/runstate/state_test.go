package runstate

import (
	"testing"

	"docpilot/internal/gates"
)

func TestValidateTransition(t *testing.T) {
	valid := [][2]State{
		{Created, Scouting},
		{Drafting, Validating},
		{Validating, Fixing},
		{Fixing, Validating},
		{Validating, ReadyForPR},
		{ReadyForPR, Done},
		{Scouting, Failed},
	}
	for _, pair := range valid {
		if err := ValidateTransition(pair[0], pair[1]); err != nil {
			t.Fatalf("expected %s -> %s to be valid: %v", pair[0], pair[1], err)
		}
	}
	invalid := [][2]State{
		{Created, Validating},
		{Done, Failed},
		{Failed, Created},
		{Fixing, ReadyForPR},
		{State("PAUSED"), Done},
	}
	for _, pair := range invalid {
		if err := ValidateTransition(pair[0], pair[1]); err == nil {
			t.Fatalf("expected %s -> %s to be rejected", pair[0], pair[1])
		}
	}
}

func TestTerminalAndForStage(t *testing.T) {
	if !Done.Terminal() || !Failed.Terminal() || Validating.Terminal() {
		t.Fatalf("unexpected terminal classification")
	}
	if state, ok := ForStage("extract"); !ok || state != Extracting {
		t.Fatalf("unexpected stage state %s %v", state, ok)
	}
	if _, ok := ForStage("publish"); ok {
		t.Fatalf("expected unknown stage")
	}
}

func TestDecideAfterValidationSelectsFirstBlocker(t *testing.T) {
	issues := []gates.Issue{
		{IssueID: "w", Severity: gates.SeverityWarn},
		{IssueID: "b1", Severity: gates.SeverityBlocker},
		{IssueID: "e", Severity: gates.SeverityError},
		{IssueID: "b2", Severity: gates.SeverityBlocker},
	}
	for call := 0; call < 3; call++ {
		outcome := DecideAfterValidation(issues, call, 5)
		if outcome.Decision != DecisionFix {
			t.Fatalf("call %d: expected fix, got %s", call, outcome.Decision)
		}
		if outcome.Issue == nil || outcome.Issue.IssueID != "b1" {
			t.Fatalf("call %d: expected b1, got %+v", call, outcome.Issue)
		}
		if outcome.FixAttempts != call+1 {
			t.Fatalf("call %d: expected attempts %d, got %d", call, call+1, outcome.FixAttempts)
		}
	}
}

func TestDecideAfterValidationExhausted(t *testing.T) {
	issues := []gates.Issue{{IssueID: "b", Severity: gates.SeverityBlocker}}
	for _, max := range []int{0, 1, 3} {
		outcome := DecideAfterValidation(issues, max, max)
		if outcome.Decision != DecisionFailed || outcome.Issue != nil {
			t.Fatalf("max %d: expected failed, got %+v", max, outcome)
		}
	}
}

func TestDecideAfterValidationNoBlockers(t *testing.T) {
	cases := [][]gates.Issue{
		nil,
		{{Severity: gates.SeverityInfo}, {Severity: gates.SeverityWarn}, {Severity: gates.SeverityError}},
	}
	for _, issues := range cases {
		outcome := DecideAfterValidation(issues, 0, 0)
		if outcome.Decision != DecisionReadyForPR {
			t.Fatalf("expected ready_for_pr, got %s", outcome.Decision)
		}
	}
}
