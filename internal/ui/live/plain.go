package live

import (
	"fmt"
	"io"
	"sync"

	"docpilot/internal/eventlog"
	"docpilot/internal/runner"
	"docpilot/internal/snapshot"
)

// Plain prints one line per run event, for pipes and CI logs.
type Plain struct {
	mu  sync.Mutex
	out io.Writer
}

func NewPlain(out io.Writer) *Plain {
	return &Plain{out: out}
}

func (p *Plain) OnRunStart(runID, runDir string) {
	p.printf("run %s started in %s\n", runID, runDir)
}

func (p *Plain) OnEvent(event eventlog.Event, _ snapshot.Snapshot) {
	p.printf("%s\n", FormatEvent(event))
}

func (p *Plain) OnRunEnd(result runner.Result) {
	p.printf("run %s finished: %s\n", result.RunID, result.Snapshot.RunState)
}

func (p *Plain) printf(format string, args ...any) {
	if p == nil || p.out == nil {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintf(p.out, format, args...)
}

var _ runner.RunObserver = (*Plain)(nil)
