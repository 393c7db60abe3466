package snapshot

import (
	"errors"
	"fmt"

	"docpilot/internal/eventlog"
	"docpilot/internal/runstate"
)

// ErrInvalidHistory reports an event sequence that no run could produce.
var ErrInvalidHistory = errors.New("invalid run history")

type reducer func(Snapshot, eventlog.Event) (Snapshot, error)

var reducers = map[eventlog.Type]reducer{
	eventlog.TypeRunCreated:          reduceRunCreated,
	eventlog.TypeRunStateChanged:     reduceStateChanged,
	eventlog.TypeStageStarted:        reduceNoop,
	eventlog.TypeStageCompleted:      reduceStageCompleted,
	eventlog.TypeStageNotReady:       reduceNoop,
	eventlog.TypeValidationCompleted: reduceValidationCompleted,
	eventlog.TypeFixSelected:         reduceFixSelected,
	eventlog.TypeFixApplied:          reduceFixApplied,
	eventlog.TypeFixRejected:         reduceFixRejected,
	eventlog.TypeBudgetExceeded:      reduceBudgetExceeded,
	eventlog.TypeSubmissionCompleted: reduceSubmission,
}

// Replay folds events from an empty state. Each call starts fresh, so
// replays never share state.
func Replay(events []eventlog.Event) (Snapshot, error) {
	if len(events) == 0 {
		return Snapshot{}, fmt.Errorf("%w: no events", ErrInvalidHistory)
	}
	var snap Snapshot
	for _, event := range events {
		next, err := Apply(snap, event)
		if err != nil {
			return Snapshot{}, err
		}
		snap = next
	}
	return snap, nil
}

// Apply folds one event into snap and returns the new projection. snap is
// not modified.
func Apply(snap Snapshot, event eventlog.Event) (Snapshot, error) {
	reduce, ok := reducers[event.Type]
	if !ok {
		return Snapshot{}, fmt.Errorf("%w: no reducer for %s", ErrInvalidHistory, event.Type)
	}
	if event.Type != eventlog.TypeRunCreated {
		if snap.RunID == "" {
			return Snapshot{}, fmt.Errorf("%w: %s before %s", ErrInvalidHistory, event.Type, eventlog.TypeRunCreated)
		}
		if event.RunID != snap.RunID {
			return Snapshot{}, fmt.Errorf("%w: event for run %s applied to %s", ErrInvalidHistory, event.RunID, snap.RunID)
		}
		if event.Seq != snap.LastSeq+1 {
			return Snapshot{}, fmt.Errorf("%w: seq %d follows %d", ErrInvalidHistory, event.Seq, snap.LastSeq)
		}
	}
	next, err := reduce(snap.clone(), event)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: seq %d %s: %v", ErrInvalidHistory, event.Seq, event.Type, err)
	}
	next.LastSeq = event.Seq
	next.UpdatedAt = event.Timestamp
	return next, nil
}

func (s Snapshot) clone() Snapshot {
	out := s
	if s.CompletedStages != nil {
		out.CompletedStages = append([]string(nil), s.CompletedStages...)
	}
	if s.CurrentIssue != nil {
		issue := *s.CurrentIssue
		if issue.Location != nil {
			location := *issue.Location
			issue.Location = &location
		}
		out.CurrentIssue = &issue
	}
	if s.LastValidation != nil {
		summary := *s.LastValidation
		summary.Counts = copyCounts(s.LastValidation.Counts)
		out.LastValidation = &summary
	}
	if s.Failure != nil {
		failure := *s.Failure
		out.Failure = &failure
	}
	return out
}

func reduceRunCreated(s Snapshot, e eventlog.Event) (Snapshot, error) {
	if s.RunID != "" {
		return s, fmt.Errorf("run already created")
	}
	if e.Seq != 1 {
		return s, fmt.Errorf("run must be created by the first event")
	}
	var p RunCreatedPayload
	if err := e.Decode(&p); err != nil {
		return s, err
	}
	return Snapshot{
		RunID:           e.RunID,
		RunState:        runstate.Created,
		SchemaVersion:   SchemaVersion,
		Product:         p.Product,
		GitRef:          p.GitRef,
		ConfigHash:      p.ConfigHash,
		Profile:         p.Profile,
		MaxFixAttempts:  p.MaxFixAttempts,
		CompletedStages: []string{},
	}, nil
}

func reduceStateChanged(s Snapshot, e eventlog.Event) (Snapshot, error) {
	var p RunStateChangedPayload
	if err := e.Decode(&p); err != nil {
		return s, err
	}
	if p.From != s.RunState {
		return s, fmt.Errorf("transition from %s but run is %s", p.From, s.RunState)
	}
	if err := runstate.ValidateTransition(p.From, p.To); err != nil {
		return s, err
	}
	s.RunState = p.To
	switch p.To {
	case runstate.Failed:
		s.Failure = &Failure{Reason: p.Reason, Message: p.Message}
	case runstate.ReadyForPR:
		s.CurrentIssue = nil
	}
	return s, nil
}

func reduceStageCompleted(s Snapshot, e eventlog.Event) (Snapshot, error) {
	var p StageCompletedPayload
	if err := e.Decode(&p); err != nil {
		return s, err
	}
	s.CompletedStages = append(s.CompletedStages, p.Stage)
	return s, nil
}

func reduceValidationCompleted(s Snapshot, e eventlog.Event) (Snapshot, error) {
	var p ValidationCompletedPayload
	if err := e.Decode(&p); err != nil {
		return s, err
	}
	s.LastValidation = &ValidationSummary{
		Pass:       p.Pass,
		Passed:     p.Passed,
		Counts:     copyCounts(p.Counts),
		IssueCount: p.IssueCount,
		ReportHash: p.ReportHash,
	}
	return s, nil
}

func reduceFixSelected(s Snapshot, e eventlog.Event) (Snapshot, error) {
	var p FixSelectedPayload
	if err := e.Decode(&p); err != nil {
		return s, err
	}
	if p.Attempt != s.FixAttempts+1 {
		return s, fmt.Errorf("fix attempt %d follows %d", p.Attempt, s.FixAttempts)
	}
	issue := p.Issue
	s.FixAttempts = p.Attempt
	s.CurrentIssue = &issue
	return s, nil
}

func reduceFixApplied(s Snapshot, e eventlog.Event) (Snapshot, error) {
	s.LastFix = "applied"
	return s, nil
}

func reduceFixRejected(s Snapshot, e eventlog.Event) (Snapshot, error) {
	s.LastFix = "rejected"
	return s, nil
}

func reduceBudgetExceeded(s Snapshot, e eventlog.Event) (Snapshot, error) {
	var p BudgetExceededPayload
	if err := e.Decode(&p); err != nil {
		return s, err
	}
	s.ExceededBudget = p.Budget
	return s, nil
}

func reduceSubmission(s Snapshot, e eventlog.Event) (Snapshot, error) {
	var p SubmissionCompletedPayload
	if err := e.Decode(&p); err != nil {
		return s, err
	}
	s.Submission = p.Reference
	if p.Skipped {
		s.Submission = "skipped"
	}
	return s, nil
}

func reduceNoop(s Snapshot, _ eventlog.Event) (Snapshot, error) {
	return s, nil
}

func copyCounts(in map[string]int) map[string]int {
	if in == nil {
		return nil
	}
	out := make(map[string]int, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}
