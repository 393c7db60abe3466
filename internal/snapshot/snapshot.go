// Package snapshot projects a run's event log into its current state.
package snapshot

import (
	"time"

	"docpilot/internal/gates"
	"docpilot/internal/runstate"
)

// SchemaVersion is bumped whenever the projection changes shape.
const SchemaVersion = 1

type ValidationSummary struct {
	Pass       int            `json:"pass"`
	Passed     bool           `json:"passed"`
	Counts     map[string]int `json:"counts"`
	IssueCount int            `json:"issue_count"`
	ReportHash string         `json:"report_hash"`
}

type Failure struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type Snapshot struct {
	RunID           string             `json:"run_id"`
	RunState        runstate.State     `json:"run_state"`
	SchemaVersion   int                `json:"schema_version"`
	Product         string             `json:"product"`
	GitRef          string             `json:"git_ref"`
	ConfigHash      string             `json:"config_hash"`
	Profile         string             `json:"profile"`
	FixAttempts     int                `json:"fix_attempts"`
	MaxFixAttempts  int                `json:"max_fix_attempts"`
	CurrentIssue    *gates.Issue       `json:"current_issue"`
	CompletedStages []string           `json:"completed_stages"`
	LastValidation  *ValidationSummary `json:"last_validation"`
	LastFix         string             `json:"last_fix,omitempty"`
	ExceededBudget  string             `json:"exceeded_budget,omitempty"`
	Submission      string             `json:"submission,omitempty"`
	Failure         *Failure           `json:"failure"`
	LastSeq         int64              `json:"last_seq"`
	UpdatedAt       time.Time          `json:"updated_at"`
}

// Terminal reports whether the run has finished.
func (s Snapshot) Terminal() bool {
	return s.RunState.Terminal()
}
