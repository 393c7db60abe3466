package runner

import (
	"encoding/json"
	"fmt"
	"os"

	"docpilot/internal/budget"
	"docpilot/internal/canonical"
	"docpilot/internal/fsutil"
	"docpilot/internal/gates"
	"docpilot/internal/runstate"
	"docpilot/internal/snapshot"
)

// Summary is the human-facing digest written next to the event log.
type Summary struct {
	RunID          string                      `json:"run_id"`
	RunState       runstate.State              `json:"run_state"`
	Product        string                      `json:"product"`
	GitRef         string                      `json:"git_ref"`
	FixAttempts    int                         `json:"fix_attempts"`
	MaxFixAttempts int                         `json:"max_fix_attempts"`
	LastIssue      *gates.Issue                `json:"last_issue,omitempty"`
	Validation     *snapshot.ValidationSummary `json:"validation,omitempty"`
	Failure        *snapshot.Failure           `json:"failure,omitempty"`
	Submission     string                      `json:"submission,omitempty"`
	Events         int64                       `json:"events"`
	Budget         budget.Summary              `json:"budget"`
}

func summarize(result Result) Summary {
	snap := result.Snapshot
	return Summary{
		RunID:          snap.RunID,
		RunState:       snap.RunState,
		Product:        snap.Product,
		GitRef:         snap.GitRef,
		FixAttempts:    snap.FixAttempts,
		MaxFixAttempts: snap.MaxFixAttempts,
		LastIssue:      snap.CurrentIssue,
		Validation:     snap.LastValidation,
		Failure:        snap.Failure,
		Submission:     snap.Submission,
		Events:         snap.LastSeq,
		Budget:         result.Budget,
	}
}

func writeSummary(path string, result Result) error {
	data, err := canonical.IndentJSON(summarize(result))
	if err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	if err := fsutil.WriteFileAtomic(path, data); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// ReadSummary loads summary.json from a finished run.
func ReadSummary(path string) (Summary, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Summary{}, err
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return Summary{}, fmt.Errorf("parse summary %s: %w", path, err)
	}
	return summary, nil
}
