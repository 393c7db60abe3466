package live

import (
	"time"

	"docpilot/internal/runstate"
)

// StepStatus is the display status of one pipeline step.
type StepStatus string

const (
	StepPending   StepStatus = "pending"
	StepRunning   StepStatus = "running"
	StepCompleted StepStatus = "completed"
	StepNotReady  StepStatus = "not ready"
	StepPassed    StepStatus = "passed"
	StepBlocked   StepStatus = "blocked"
	StepApplied   StepStatus = "applied"
	StepRejected  StepStatus = "rejected"
	StepFailed    StepStatus = "failed"
)

// StepRow holds UI state for one stage, validation pass or fix attempt.
type StepRow struct {
	Name       string
	Status     StepStatus
	Detail     string
	StartedAt  time.Time
	FinishedAt time.Time
}

// State captures the live UI state for a run.
type State struct {
	RunID          string
	RunDir         string
	Product        string
	RunState       runstate.State
	StartedAt      time.Time
	FixAttempts    int
	MaxFixAttempts int
	Blockers       int
	Warnings       int
	LastEvent      string
	Failure        string
	Rows           []StepRow
}
