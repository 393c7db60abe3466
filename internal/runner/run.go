package runner

import (
	"context"
	"fmt"
	"time"

	"docpilot/internal/budget"
	"docpilot/internal/eventlog"
	"docpilot/internal/gates"
	"docpilot/internal/logging"
	"docpilot/internal/rundir"
	"docpilot/internal/snapshot"
)

// Run executes one pipeline run to a terminal state. Configuration problems
// are returned before anything is recorded; once RUN_CREATED is durable,
// every failure ends as a FAILED transition in the log.
func Run(ctx context.Context, params RunParams) (Result, error) {
	cfg := params.Config
	deps := params.Deps
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	logger := logging.OrDiscard(deps.Logger)
	var observer RunObserver = noopObserver{}
	if deps.Observer != nil {
		observer = deps.Observer
	}

	profile, err := gates.ProfileFor(cfg.Profile)
	if err != nil {
		return Result{}, err
	}
	tracker, err := budget.New(cfg.Budgets, budget.Options{Now: now})
	if err != nil {
		return Result{}, err
	}
	configHash, err := ConfigHash(cfg)
	if err != nil {
		return Result{}, err
	}
	runID, err := ensureRunID(deps.RunID, func() string {
		return FormatRunID(now(), configHash, params.Source.ShortCommit(refLen))
	})
	if err != nil {
		return Result{}, err
	}
	layout, err := rundir.New(cfg.OutputDir, runID)
	if err != nil {
		return Result{}, err
	}
	if err := layout.Create(); err != nil {
		return Result{}, err
	}
	log, existing, err := eventlog.Open(layout.EventsPath(), runID, eventlog.Options{Now: now, NewID: deps.NewID, Logger: logger})
	if err != nil {
		return Result{}, err
	}
	if len(existing) > 0 {
		return Result{}, fmt.Errorf("run %s already has %d recorded events", runID, len(existing))
	}

	o := &orchestrator{
		cfg:        cfg,
		layout:     layout,
		log:        log,
		tracker:    tracker,
		aggregator: gates.NewAggregator(deps.Gates, gates.AggregatorOptions{Now: now, Logger: logger}),
		profile:    profile,
		deps:       deps,
		logger:     logger.With("run_id", runID),
		observer:   observer,
	}
	observer.OnRunStart(runID, layout.Dir())

	gitRef := cfg.Source.GitRef
	if gitRef == "" {
		gitRef = params.Source.Ref
	}
	created := snapshot.RunCreatedPayload{
		Product:        cfg.Product,
		GitRef:         gitRef,
		ConfigHash:     configHash,
		Profile:        profile.Name,
		MaxFixAttempts: cfg.MaxFixAttempts,
		Budgets:        cfg.Budgets,
	}
	if err := o.commit(eventlog.TypeRunCreated, created); err != nil {
		return Result{}, err
	}
	logger.Info("run created", "run_id", runID, "dir", layout.Dir(), "product", cfg.Product, "profile", profile.Name)

	if err := o.execute(ctx); err != nil {
		return Result{}, err
	}
	result := Result{
		RunID:    runID,
		RunDir:   layout.Dir(),
		Snapshot: o.snap,
		Budget:   tracker.Summary(),
	}
	if err := writeSummary(layout.SummaryPath(), result); err != nil {
		return result, err
	}
	logger.Info("run finished", "run_id", runID, "state", o.snap.RunState, "fix_attempts", o.snap.FixAttempts)
	observer.OnRunEnd(result)
	return result, nil
}

func ensureRunID(factory func() (string, error), fallback func() string) (string, error) {
	if factory == nil {
		return fallback(), nil
	}
	runID, err := factory()
	if err != nil {
		return "", fmt.Errorf("run id: %w", err)
	}
	return runID, nil
}
