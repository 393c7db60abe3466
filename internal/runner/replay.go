package runner

import (
	"errors"
	"fmt"
	"os"

	"docpilot/internal/eventlog"
	"docpilot/internal/rundir"
	"docpilot/internal/snapshot"
)

// ReplayResult compares the snapshot rebuilt from the event log with the
// one persisted during execution.
type ReplayResult struct {
	RunDir    string
	Events    int
	Rebuilt   snapshot.Snapshot
	Persisted *snapshot.Snapshot
	// Drift lists the snapshot fields that differ.
	Drift []string
	// Warning is set when the log ended in a torn record that was skipped.
	Warning error
}

// Consistent reports whether a persisted snapshot exists and matches.
func (r ReplayResult) Consistent() bool {
	return r.Persisted != nil && len(r.Drift) == 0
}

// Replay rebuilds a run's snapshot from events.jsonl without modifying
// anything in the run directory.
func Replay(runDir string) (ReplayResult, error) {
	layout, err := rundir.Open(runDir)
	if err != nil {
		return ReplayResult{}, err
	}
	result := ReplayResult{RunDir: layout.Dir()}
	events, err := eventlog.ReadAll(layout.EventsPath())
	if err != nil {
		if !eventlog.IsRecoverable(err) {
			return ReplayResult{}, err
		}
		result.Warning = err
	}
	if len(events) == 0 {
		return ReplayResult{}, fmt.Errorf("run %s has no events", layout.RunID)
	}
	rebuilt, err := snapshot.Replay(events)
	if err != nil {
		return ReplayResult{}, err
	}
	result.Events = len(events)
	result.Rebuilt = rebuilt

	persisted, err := snapshot.Load(layout.SnapshotPath())
	switch {
	case err == nil:
		result.Persisted = &persisted
		drift, err := snapshot.Diff(rebuilt, persisted)
		if err != nil {
			return ReplayResult{}, err
		}
		result.Drift = drift
	case errors.Is(err, os.ErrNotExist):
	default:
		return ReplayResult{}, err
	}
	return result, nil
}

// Rebuild replays the log and overwrites snapshot.json with the result.
func Rebuild(runDir string) (ReplayResult, error) {
	result, err := Replay(runDir)
	if err != nil {
		return ReplayResult{}, err
	}
	if err := snapshot.Save(snapshot.PathFor(result.RunDir), result.Rebuilt); err != nil {
		return ReplayResult{}, err
	}
	rebuilt := result.Rebuilt
	result.Persisted = &rebuilt
	result.Drift = nil
	return result, nil
}
