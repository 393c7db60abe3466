package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"docpilot/internal/budget"
	"docpilot/internal/canonical"
	"docpilot/internal/changebudget"
	"docpilot/internal/eventlog"
	"docpilot/internal/fsutil"
	"docpilot/internal/gates"
	"docpilot/internal/golden"
	"docpilot/internal/rundir"
	"docpilot/internal/runstate"
	"docpilot/internal/snapshot"
	"docpilot/internal/spec"
	"docpilot/internal/stages"
)

// rejectedByChangeBudget is the FIX_REJECTED reason for oversized bundles.
const rejectedByChangeBudget = "change_budget_exceeded"

// orchestrator owns the event log, the snapshot and the budget tracker of
// one run. Every state change goes through commit.
type orchestrator struct {
	cfg        spec.Config
	layout     rundir.Layout
	log        *eventlog.Log
	snap       snapshot.Snapshot
	tracker    *budget.Tracker
	aggregator *gates.Aggregator
	profile    gates.Profile
	deps       RunDependencies
	logger     *slog.Logger
	observer   RunObserver
	upstream   []string
	pass       int
}

// commit appends the event durably, then folds it into the in-memory
// snapshot and persists the snapshot.
func (o *orchestrator) commit(eventType eventlog.Type, payload any) error {
	event, err := o.log.Append(eventType, payload)
	if err != nil {
		return fmt.Errorf("record %s: %w", eventType, err)
	}
	next, err := snapshot.Apply(o.snap, event)
	if err != nil {
		return fmt.Errorf("apply %s: %w", eventType, err)
	}
	o.snap = next
	if err := snapshot.Save(o.layout.SnapshotPath(), next); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	o.observer.OnEvent(event, next)
	return nil
}

func (o *orchestrator) transition(to runstate.State, reason, message string, issue *gates.Issue) error {
	from := o.snap.RunState
	if err := runstate.ValidateTransition(from, to); err != nil {
		return err
	}
	payload := snapshot.RunStateChangedPayload{From: from, To: to, Reason: reason, Message: message, Issue: issue}
	if err := o.commit(eventlog.TypeRunStateChanged, payload); err != nil {
		return err
	}
	o.logger.Info("run transition", "run_id", o.snap.RunID, "from", from, "to", to)
	return nil
}

func (o *orchestrator) fail(reason, message string, issue *gates.Issue) error {
	o.logger.Error("run failed", "run_id", o.snap.RunID, "state", o.snap.RunState, "reason", reason, "error", message)
	return o.transition(runstate.Failed, reason, message, issue)
}

// budgetFail records which budget was crossed before failing the run.
// Errors that are not budget violations fail the run with fallback.
func (o *orchestrator) budgetFail(err error, fallback string) error {
	var exceeded *budget.ExceededError
	if !errors.As(err, &exceeded) {
		return o.fail(fallback, err.Error(), nil)
	}
	payload := snapshot.BudgetExceededPayload{Budget: exceeded.Budget, Used: exceeded.Used, Limit: exceeded.Limit}
	if commitErr := o.commit(eventlog.TypeBudgetExceeded, payload); commitErr != nil {
		return commitErr
	}
	return o.fail(snapshot.ReasonBudgetExceeded, err.Error(), nil)
}

// checkBoundary runs between steps. It reports true when the run was
// stopped by cancellation or the runtime budget.
func (o *orchestrator) checkBoundary(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return true, o.fail(snapshot.ReasonCanceled, err.Error(), nil)
	}
	if err := o.tracker.CheckRuntime(); err != nil {
		return true, o.budgetFail(err, snapshot.ReasonBudgetExceeded)
	}
	return false, nil
}

func (o *orchestrator) recordUsage(usage stages.Usage, fallback string) (bool, error) {
	for _, call := range usage.LLMCalls {
		if err := o.tracker.RecordLLMCall(call.InputTokens, call.OutputTokens); err != nil {
			return true, o.budgetFail(err, fallback)
		}
	}
	for _, path := range usage.FilesWritten {
		if err := o.tracker.RecordFileWrite(path); err != nil {
			return true, o.budgetFail(err, fallback)
		}
	}
	return false, nil
}

func (o *orchestrator) execute(ctx context.Context) error {
	for _, stage := range spec.PipelineStages {
		if err := o.runStage(ctx, stage); err != nil {
			return err
		}
		if o.snap.Terminal() {
			return nil
		}
	}
	for !o.snap.Terminal() {
		if err := o.validate(ctx); err != nil {
			return err
		}
	}
	return nil
}

func (o *orchestrator) runStage(ctx context.Context, stage string) error {
	if stop, err := o.checkBoundary(ctx); stop || err != nil {
		return err
	}
	state, ok := runstate.ForStage(stage)
	if !ok {
		return fmt.Errorf("unknown stage %q", stage)
	}
	if err := o.transition(state, "", "", nil); err != nil {
		return err
	}
	if err := o.commit(eventlog.TypeStageStarted, snapshot.StageStartedPayload{Stage: stage}); err != nil {
		return err
	}
	worker, ok := o.deps.Workers[stage]
	if !ok || worker == nil {
		worker = stages.MissingWorker(stage)
	}
	req := stages.Request{
		RunID:    o.snap.RunID,
		Stage:    stage,
		Layout:   o.layout,
		Config:   o.cfg,
		Upstream: append([]string(nil), o.upstream...),
	}
	result, err := protect(func() (stages.Result, error) { return worker.Run(ctx, req) })
	if err != nil {
		return o.fail(snapshot.ReasonStageError, fmt.Sprintf("stage %s: %v", stage, err), nil)
	}
	if result.Status == stages.StatusNotReady {
		payload := snapshot.StageNotReadyPayload{Stage: stage, Reason: result.Reason}
		if err := o.commit(eventlog.TypeStageNotReady, payload); err != nil {
			return err
		}
		return o.fail(snapshot.ReasonStageNotReady, fmt.Sprintf("stage %s not ready: %s", stage, result.Reason), nil)
	}
	payload := snapshot.StageCompletedPayload{Stage: stage, Outputs: result.Outputs, Usage: result.Usage}
	if err := o.commit(eventlog.TypeStageCompleted, payload); err != nil {
		return err
	}
	if stop, err := o.recordUsage(result.Usage, snapshot.ReasonStageError); stop || err != nil {
		return err
	}
	o.upstream = append(o.upstream, result.Outputs...)
	return nil
}

func (o *orchestrator) validate(ctx context.Context) error {
	if stop, err := o.checkBoundary(ctx); stop || err != nil {
		return err
	}
	if err := o.transition(runstate.Validating, "", "", nil); err != nil {
		return err
	}
	o.pass++
	report := o.aggregator.Run(ctx, o.snap.RunID, o.layout.Dir(), o.profile)
	if err := gates.WriteReport(o.layout.ReportPath(), report); err != nil {
		return o.fail(snapshot.ReasonValidationError, err.Error(), nil)
	}
	hash, err := reportHash(o.layout.Dir(), report)
	if err != nil {
		return o.fail(snapshot.ReasonValidationError, err.Error(), nil)
	}
	payload := snapshot.ValidationCompletedPayload{
		Pass:       o.pass,
		Passed:     report.Passed,
		Counts:     report.Counts(),
		IssueCount: len(report.Issues),
		ReportHash: hash,
	}
	if err := o.commit(eventlog.TypeValidationCompleted, payload); err != nil {
		return err
	}
	o.logger.Info("validation completed", "run_id", o.snap.RunID, "pass", o.pass,
		"issues", len(report.Issues), "blockers", len(report.Blockers()))

	outcome := runstate.DecideAfterValidation(report.Issues, o.snap.FixAttempts, o.snap.MaxFixAttempts)
	switch outcome.Decision {
	case runstate.DecisionReadyForPR:
		if err := o.transition(runstate.ReadyForPR, "", "", nil); err != nil {
			return err
		}
		return o.submit(ctx)
	case runstate.DecisionFix:
		return o.fix(ctx, outcome)
	default:
		blocker, _ := gates.FirstAtLeast(report.Issues, gates.SeverityBlocker)
		message := fmt.Sprintf("%d blocker(s) remain after %d fix attempt(s): %s",
			len(report.Blockers()), o.snap.FixAttempts, blocker.String())
		return o.fail(snapshot.ReasonAttemptsExceeded, message, &blocker)
	}
}

// reportHash digests the report after removing the run directory and
// timestamps, so identical runs in different places hash the same.
func reportHash(runDir string, report gates.Report) (string, error) {
	data, err := golden.NewNormalizer(runDir).Value(report)
	if err != nil {
		return "", fmt.Errorf("normalize report: %w", err)
	}
	return canonical.Digest(data), nil
}

func (o *orchestrator) fix(ctx context.Context, outcome runstate.Outcome) error {
	issue := *outcome.Issue
	attempt := outcome.FixAttempts
	if err := o.commit(eventlog.TypeFixSelected, snapshot.FixSelectedPayload{Attempt: attempt, Issue: issue}); err != nil {
		return err
	}
	if err := o.transition(runstate.Fixing, "", "", &issue); err != nil {
		return err
	}
	if err := o.tracker.RecordPatchAttempt(); err != nil {
		return o.budgetFail(err, snapshot.ReasonFixerError)
	}
	if o.deps.Fixer == nil {
		return o.fail(snapshot.ReasonFixerError, "no fixer configured", &issue)
	}
	req := stages.FixRequest{RunID: o.snap.RunID, Attempt: attempt, Issue: issue, Layout: o.layout, Config: o.cfg}
	proposal, err := protect(func() (stages.Proposal, error) { return o.deps.Fixer.Propose(ctx, req) })
	if err != nil {
		return o.fail(snapshot.ReasonFixerError, fmt.Sprintf("fix attempt %d: %v", attempt, err), &issue)
	}
	if stop, err := o.recordUsage(stages.Usage{LLMCalls: proposal.Usage.LLMCalls}, snapshot.ReasonFixerError); stop || err != nil {
		return err
	}
	bundle, err := stages.Bundle(proposal.Edits, o.readWorkFile)
	if err != nil {
		return o.fail(snapshot.ReasonFixerError, fmt.Sprintf("fix attempt %d: %v", attempt, err), &issue)
	}

	analysis, err := changebudget.Analyze(bundle, o.cfg.ChangeBudget)
	var exceeded *changebudget.ExceededError
	if errors.As(err, &exceeded) {
		o.writePatch(fmt.Sprintf("attempt-%d.rejected.diff", attempt), bundle)
		o.logger.Warn("fix rejected", "run_id", o.snap.RunID, "attempt", attempt, "violations", len(exceeded.Violations))
		payload := snapshot.FixRejectedPayload{Attempt: attempt, Reason: rejectedByChangeBudget, Violations: exceeded.Violations}
		return o.commit(eventlog.TypeFixRejected, payload)
	}
	if err != nil {
		return o.fail(snapshot.ReasonFixerError, err.Error(), &issue)
	}

	for _, change := range bundle {
		if err := o.tracker.RecordFileWrite("work/" + change.Path); err != nil {
			return o.budgetFail(err, snapshot.ReasonFixerError)
		}
		target := filepath.Join(o.layout.WorkDir(), filepath.FromSlash(change.Path))
		if err := fsutil.WriteFileAtomic(target, []byte(change.Modified)); err != nil {
			return o.fail(snapshot.ReasonFixerError, fmt.Sprintf("apply %s: %v", change.Path, err), &issue)
		}
	}
	o.writePatch(fmt.Sprintf("attempt-%d.diff", attempt), bundle)
	return o.commit(eventlog.TypeFixApplied, snapshot.FixAppliedPayload{Attempt: attempt, Files: analysis.Files})
}

// readWorkFile returns the current content of a work tree file; a file that
// does not exist yet reads as empty.
func (o *orchestrator) readWorkFile(path string) (string, error) {
	data, err := os.ReadFile(filepath.Join(o.layout.WorkDir(), filepath.FromSlash(path)))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return string(data), nil
}

// writePatch keeps a unified diff of a bundle for review. Failures are only
// logged; the event log already records the outcome.
func (o *orchestrator) writePatch(name string, bundle []changebudget.FileChange) {
	var b strings.Builder
	for _, change := range bundle {
		diff, err := changebudget.UnifiedDiff(change)
		if err != nil {
			o.logger.Warn("render patch", "path", change.Path, "error", err)
			continue
		}
		b.WriteString(diff)
	}
	if err := fsutil.WriteFileAtomic(filepath.Join(o.layout.PatchesDir(), name), []byte(b.String())); err != nil {
		o.logger.Warn("write patch", "name", name, "error", err)
	}
}

func (o *orchestrator) submit(ctx context.Context) error {
	payload := snapshot.SubmissionCompletedPayload{Skipped: true}
	if o.deps.Submitter != nil {
		req := stages.SubmitRequest{RunID: o.snap.RunID, Layout: o.layout, Config: o.cfg}
		submission, err := protect(func() (stages.Submission, error) { return o.deps.Submitter.Submit(ctx, req) })
		if err != nil {
			return o.fail(snapshot.ReasonSubmissionError, err.Error(), nil)
		}
		if stop, err := o.recordUsage(submission.Usage, snapshot.ReasonSubmissionError); stop || err != nil {
			return err
		}
		payload = snapshot.SubmissionCompletedPayload{Reference: submission.Reference}
	}
	if err := o.commit(eventlog.TypeSubmissionCompleted, payload); err != nil {
		return err
	}
	return o.transition(runstate.Done, "", "", nil)
}

// protect converts a collaborator panic into an error.
func protect[T any](fn func() (T, error)) (result T, err error) {
	defer func() {
		if recovered := recover(); recovered != nil {
			err = fmt.Errorf("panic: %v", recovered)
		}
	}()
	return fn()
}
