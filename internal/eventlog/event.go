// Package eventlog stores the append-only, newline-delimited event history of
// a run. The log is the only durable source of truth for run state.
package eventlog

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Type tags an event.
type Type string

const (
	TypeRunCreated          Type = "RUN_CREATED"
	TypeRunStateChanged     Type = "RUN_STATE_CHANGED"
	TypeStageStarted        Type = "STAGE_STARTED"
	TypeStageCompleted      Type = "STAGE_COMPLETED"
	TypeStageNotReady       Type = "STAGE_NOT_READY"
	TypeValidationCompleted Type = "VALIDATION_COMPLETED"
	TypeFixSelected         Type = "FIX_SELECTED"
	TypeFixApplied          Type = "FIX_APPLIED"
	TypeFixRejected         Type = "FIX_REJECTED"
	TypeBudgetExceeded      Type = "BUDGET_EXCEEDED"
	TypeSubmissionCompleted Type = "SUBMISSION_COMPLETED"
)

var validTypes = map[Type]struct{}{
	TypeRunCreated:          {},
	TypeRunStateChanged:     {},
	TypeStageStarted:        {},
	TypeStageCompleted:      {},
	TypeStageNotReady:       {},
	TypeValidationCompleted: {},
	TypeFixSelected:         {},
	TypeFixApplied:          {},
	TypeFixRejected:         {},
	TypeBudgetExceeded:      {},
	TypeSubmissionCompleted: {},
}

// ErrInvalidEvent marks a record that parsed but violates the envelope contract.
var ErrInvalidEvent = errors.New("invalid event")

// Event is one immutable fact in a run's history.
type Event struct {
	EventID   string          `json:"event_id"`
	Seq       int64           `json:"seq"`
	Type      Type            `json:"type"`
	RunID     string          `json:"run_id"`
	Timestamp time.Time       `json:"timestamp"`
	Payload   json.RawMessage `json:"payload,omitempty"`
}

// Decode unmarshals the payload into v.
func (e Event) Decode(v any) error {
	if len(e.Payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload (seq %d): %w", e.Type, e.Seq, err)
	}
	return nil
}

// Validate checks the envelope fields.
func Validate(event Event) error {
	if strings.TrimSpace(event.EventID) == "" {
		return fmt.Errorf("%w: event_id is required", ErrInvalidEvent)
	}
	if strings.TrimSpace(event.RunID) == "" {
		return fmt.Errorf("%w: run_id is required", ErrInvalidEvent)
	}
	if event.Seq <= 0 {
		return fmt.Errorf("%w: seq must be > 0", ErrInvalidEvent)
	}
	if event.Timestamp.IsZero() {
		return fmt.Errorf("%w: timestamp is required", ErrInvalidEvent)
	}
	if _, ok := validTypes[event.Type]; !ok {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidEvent, event.Type)
	}
	return nil
}
