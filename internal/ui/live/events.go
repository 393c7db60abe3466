package live

import (
	"docpilot/internal/eventlog"
	"docpilot/internal/runner"
	"docpilot/internal/snapshot"
)

// EventKind identifies the type of live UI event.
type EventKind int

const (
	// EventRunStart signals the start of a run.
	EventRunStart EventKind = iota
	// EventLogged delivers one committed run event.
	EventLogged
	// EventRunEnd signals run completion.
	EventRunEnd
)

// Event carries a UI update payload.
type Event struct {
	Kind     EventKind
	RunID    string
	RunDir   string
	Log      eventlog.Event
	Snapshot snapshot.Snapshot
	Result   runner.Result
}
