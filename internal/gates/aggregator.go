package gates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"docpilot/internal/logging"
)

const (
	// CodeGateError marks an issue synthesized from a gate that returned an error.
	CodeGateError = "gate_error"
	// CodeGatePanic marks an issue synthesized from a gate that panicked.
	CodeGatePanic = "gate_panic"
	// CodeGateTimeout marks a gate that did not finish within the profile timeout.
	CodeGateTimeout = "gate_timeout"
)

// AggregatorOptions configures an Aggregator.
type AggregatorOptions struct {
	Now    func() time.Time
	Logger *slog.Logger
}

// Aggregator runs an ordered set of gates and merges their findings.
type Aggregator struct {
	gates  []Gate
	now    func() time.Time
	logger *slog.Logger
}

// NewAggregator keeps gates in the given order; that order is the issue order
// of every report it produces.
func NewAggregator(gates []Gate, opts AggregatorOptions) *Aggregator {
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ordered := make([]Gate, len(gates))
	copy(ordered, gates)
	return &Aggregator{gates: ordered, now: now, logger: logging.OrDiscard(opts.Logger)}
}

// Names lists the registered gates in execution order.
func (a *Aggregator) Names() []string {
	names := make([]string, 0, len(a.gates))
	for _, gate := range a.gates {
		names = append(names, gate.Name())
	}
	return names
}

// Run executes every gate against runDir. A failing gate never aborts the
// pass; it contributes one error issue and the next gate runs.
func (a *Aggregator) Run(ctx context.Context, runID, runDir string, profile Profile) Report {
	report := Report{
		RunID:   runID,
		Profile: profile.Name,
		Passed:  true,
		Gates:   make([]GateOutcome, 0, len(a.gates)),
		Issues:  []Issue{},
	}
	ids := newIDAllocator()
	for _, gate := range a.gates {
		name := gate.Name()
		result := a.runOne(ctx, gate, runDir, profile)
		issues := make([]Issue, 0, len(result.Issues))
		for index, issue := range result.Issues {
			issues = append(issues, normalizeIssue(issue, name, index, ids))
		}
		report.Gates = append(report.Gates, GateOutcome{Name: name, Passed: result.Passed, IssueCount: len(issues)})
		report.Issues = append(report.Issues, issues...)
		if !result.Passed {
			report.Passed = false
		}
		a.logger.Debug("gate finished", "gate", name, "passed", result.Passed, "issues", len(issues))
	}
	report.GeneratedAt = a.now().UTC()
	return report
}

func (a *Aggregator) runOne(ctx context.Context, gate Gate, runDir string, profile Profile) Result {
	gateCtx := ctx
	cancel := func() {}
	if profile.GateTimeout > 0 {
		gateCtx, cancel = context.WithTimeout(ctx, profile.GateTimeout)
	}
	defer cancel()

	type outcome struct {
		result   Result
		err      error
		panicked any
		stack    []byte
	}
	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if recovered := recover(); recovered != nil {
				done <- outcome{panicked: recovered, stack: debug.Stack()}
			}
		}()
		result, err := gate.Check(gateCtx, runDir, profile)
		done <- outcome{result: result, err: err}
	}()

	var out outcome
	select {
	case out = <-done:
	case <-gateCtx.Done():
		out = outcome{err: gateCtx.Err()}
	}

	name := gate.Name()
	switch {
	case out.panicked != nil:
		a.logger.Error("gate panicked", "gate", name, "panic", fmt.Sprint(out.panicked), "stack", string(out.stack))
		return failureResult(name, CodeGatePanic, fmt.Sprintf("gate %s panicked: %v", name, out.panicked))
	case out.err != nil:
		code := CodeGateError
		if errors.Is(out.err, context.DeadlineExceeded) {
			code = CodeGateTimeout
		}
		a.logger.Warn("gate failed", "gate", name, "error", out.err)
		return failureResult(name, code, fmt.Sprintf("gate %s failed: %v", name, out.err))
	}
	return out.result
}

func failureResult(gate, code, message string) Result {
	return Result{
		Passed: false,
		Issues: []Issue{{
			Gate:      gate,
			Severity:  SeverityError,
			Message:   message,
			Status:    StatusOpen,
			ErrorCode: code,
		}},
	}
}

func normalizeIssue(issue Issue, gate string, index int, ids *idAllocator) Issue {
	if issue.Gate == "" {
		issue.Gate = gate
	}
	if !issue.Severity.Valid() {
		issue.Severity = SeverityError
	}
	if issue.Status == "" {
		issue.Status = StatusOpen
	}
	if issue.Location != nil {
		location := *issue.Location
		issue.Location = &location
	}
	id := issue.IssueID
	if id == "" {
		id = fmt.Sprintf("%s-%03d", gate, index+1)
	}
	issue.IssueID = ids.claim(id)
	return issue
}

type idAllocator struct {
	seen map[string]int
}

func newIDAllocator() *idAllocator {
	return &idAllocator{seen: map[string]int{}}
}

func (a *idAllocator) claim(id string) string {
	count := a.seen[id]
	a.seen[id] = count + 1
	if count == 0 {
		return id
	}
	for {
		count++
		candidate := fmt.Sprintf("%s-%d", id, count)
		if _, taken := a.seen[candidate]; !taken {
			a.seen[candidate] = 1
			a.seen[id] = count
			return candidate
		}
	}
}
