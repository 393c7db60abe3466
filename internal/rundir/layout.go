// Package rundir describes the files inside one run directory.
package rundir

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Layout describes filesystem locations for one run.
type Layout struct {
	Root  string
	RunID string
}

// New validates and constructs a layout under outputDir.
func New(outputDir, runID string) (Layout, error) {
	if strings.TrimSpace(outputDir) == "" {
		return Layout{}, fmt.Errorf("output dir is empty")
	}
	if strings.TrimSpace(runID) == "" {
		return Layout{}, fmt.Errorf("run ID is empty")
	}
	if strings.ContainsAny(runID, `/\`) || runID == "." || runID == ".." {
		return Layout{}, fmt.Errorf("run ID %q is not a single path segment", runID)
	}
	return Layout{Root: outputDir, RunID: runID}, nil
}

// Open returns the layout of an existing run directory.
func Open(runDir string) (Layout, error) {
	info, err := os.Stat(runDir)
	if err != nil {
		return Layout{}, err
	}
	if !info.IsDir() {
		return Layout{}, fmt.Errorf("%s is not a directory", runDir)
	}
	abs, err := filepath.Abs(runDir)
	if err != nil {
		return Layout{}, err
	}
	return New(filepath.Dir(abs), filepath.Base(abs))
}

// Dir returns the directory for the run.
func (l Layout) Dir() string {
	return filepath.Join(l.Root, l.RunID)
}

// EventsPath returns the append-only event log.
func (l Layout) EventsPath() string {
	return filepath.Join(l.Dir(), "events.jsonl")
}

// SnapshotPath returns the materialized state file.
func (l Layout) SnapshotPath() string {
	return filepath.Join(l.Dir(), "snapshot.json")
}

// ArtifactsDir holds worker outputs.
func (l Layout) ArtifactsDir() string {
	return filepath.Join(l.Dir(), "artifacts")
}

// WorkDir is the working tree gates validate and fixes edit.
func (l Layout) WorkDir() string {
	return filepath.Join(l.Dir(), "work")
}

// LogsDir holds captured collaborator output.
func (l Layout) LogsDir() string {
	return filepath.Join(l.Dir(), "logs")
}

// PatchesDir holds unified diffs of applied and rejected fixes.
func (l Layout) PatchesDir() string {
	return filepath.Join(l.Dir(), "patches")
}

// ReportPath returns the latest validation report.
func (l Layout) ReportPath() string {
	return filepath.Join(l.Dir(), "validation_report.json")
}

// SummaryPath returns the run summary.
func (l Layout) SummaryPath() string {
	return filepath.Join(l.Dir(), "summary.json")
}

// Create makes the run directory and its fixed subdirectories. It fails if
// the run directory already holds an event log.
func (l Layout) Create() error {
	if _, err := os.Stat(l.EventsPath()); err == nil {
		return fmt.Errorf("run %s already exists in %s", l.RunID, l.Root)
	}
	for _, dir := range []string{l.ArtifactsDir(), l.WorkDir(), l.LogsDir()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return nil
}
