package runner

import (
	"log/slog"
	"time"

	"docpilot/internal/budget"
	"docpilot/internal/gates"
	"docpilot/internal/snapshot"
	"docpilot/internal/spec"
	"docpilot/internal/stages"
	"docpilot/internal/vcs"
)

// RunDependencies allows injecting collaborators and clocks for a run.
type RunDependencies struct {
	// Workers maps stage names to workers. Missing stages are not ready.
	Workers   map[string]stages.Worker
	Fixer     stages.Fixer
	Submitter stages.Submitter
	Gates     []gates.Gate
	RunID     func() (string, error)
	Now       func() time.Time
	NewID     func() string
	Logger    *slog.Logger
	Observer  RunObserver
}

// RunParams configures a run invocation.
type RunParams struct {
	Config spec.Config
	Source vcs.Source
	Deps   RunDependencies
}

// Result describes a finished run. A FAILED run is a result, not an error;
// errors are reserved for runs whose history could not be recorded.
type Result struct {
	RunID    string            `json:"run_id"`
	RunDir   string            `json:"run_dir"`
	Snapshot snapshot.Snapshot `json:"snapshot"`
	Budget   budget.Summary    `json:"budget"`
}

// Failed reports whether the run ended in FAILED.
func (r Result) Failed() bool {
	return r.Snapshot.Failure != nil
}
