package snapshot

import (
	"docpilot/internal/changebudget"
	"docpilot/internal/gates"
	"docpilot/internal/runstate"
	"docpilot/internal/spec"
	"docpilot/internal/stages"
)

// Failure reasons recorded on transitions to FAILED.
const (
	ReasonStageError       = "stage_error"
	ReasonStageNotReady    = "stage_not_ready"
	ReasonBudgetExceeded   = "budget_exceeded"
	ReasonAttemptsExceeded = "fix_attempts_exhausted"
	ReasonFixerError       = "fixer_error"
	ReasonValidationError  = "validation_error"
	ReasonSubmissionError  = "submission_error"
	ReasonCanceled         = "canceled"
)

type RunCreatedPayload struct {
	Product        string       `json:"product"`
	GitRef         string       `json:"git_ref"`
	ConfigHash     string       `json:"config_hash"`
	Profile        string       `json:"profile"`
	MaxFixAttempts int          `json:"max_fix_attempts"`
	Budgets        spec.Budgets `json:"budgets"`
}

type RunStateChangedPayload struct {
	From    runstate.State `json:"from"`
	To      runstate.State `json:"to"`
	Reason  string         `json:"reason,omitempty"`
	Message string         `json:"message,omitempty"`
	Issue   *gates.Issue   `json:"issue,omitempty"`
}

type StageStartedPayload struct {
	Stage string `json:"stage"`
}

type StageCompletedPayload struct {
	Stage   string       `json:"stage"`
	Outputs []string     `json:"outputs,omitempty"`
	Usage   stages.Usage `json:"usage"`
}

type StageNotReadyPayload struct {
	Stage  string `json:"stage"`
	Reason string `json:"reason"`
}

type ValidationCompletedPayload struct {
	Pass       int            `json:"pass"`
	Passed     bool           `json:"passed"`
	Counts     map[string]int `json:"counts"`
	IssueCount int            `json:"issue_count"`
	ReportHash string         `json:"report_hash"`
}

type FixSelectedPayload struct {
	Attempt int         `json:"attempt"`
	Issue   gates.Issue `json:"issue"`
}

type FixAppliedPayload struct {
	Attempt int                      `json:"attempt"`
	Files   []changebudget.FileStats `json:"files"`
}

type FixRejectedPayload struct {
	Attempt    int                      `json:"attempt"`
	Reason     string                   `json:"reason"`
	Violations []changebudget.Violation `json:"violations,omitempty"`
}

type BudgetExceededPayload struct {
	Budget string `json:"budget"`
	Used   int64  `json:"used"`
	Limit  int64  `json:"limit"`
}

type SubmissionCompletedPayload struct {
	Skipped   bool   `json:"skipped"`
	Reference string `json:"reference,omitempty"`
}
