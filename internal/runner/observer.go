package runner

import (
	"docpilot/internal/eventlog"
	"docpilot/internal/snapshot"
)

// RunObserver receives every committed event together with the snapshot it
// produced, for the live view or plain progress output.
type RunObserver interface {
	OnRunStart(runID, runDir string)
	OnEvent(event eventlog.Event, snap snapshot.Snapshot)
	OnRunEnd(result Result)
}

type noopObserver struct{}

func (noopObserver) OnRunStart(string, string)                 {}
func (noopObserver) OnEvent(eventlog.Event, snapshot.Snapshot) {}
func (noopObserver) OnRunEnd(Result)                           {}

// ObserverFuncs adapts optional callbacks to RunObserver.
type ObserverFuncs struct {
	Start func(runID, runDir string)
	Event func(event eventlog.Event, snap snapshot.Snapshot)
	End   func(result Result)
}

func (o ObserverFuncs) OnRunStart(runID, runDir string) {
	if o.Start != nil {
		o.Start(runID, runDir)
	}
}

func (o ObserverFuncs) OnEvent(event eventlog.Event, snap snapshot.Snapshot) {
	if o.Event != nil {
		o.Event(event, snap)
	}
}

func (o ObserverFuncs) OnRunEnd(result Result) {
	if o.End != nil {
		o.End(result)
	}
}
