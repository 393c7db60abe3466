package live

import (
	"io"
	"os"
	"sync"

	tea "github.com/charmbracelet/bubbletea"

	"docpilot/internal/eventlog"
	"docpilot/internal/runner"
	"docpilot/internal/snapshot"
)

// Controller runs the live UI and implements runner.RunObserver.
type Controller struct {
	events    chan Event
	program   *tea.Program
	done      chan struct{}
	closeOnce sync.Once
}

// Start launches a live UI controller that writes to stdout.
func Start(stdout io.Writer, opts Options) *Controller {
	if stdout == nil {
		stdout = os.Stdout
	}
	events := make(chan Event, 256)
	model := NewModel(events, opts)
	program := tea.NewProgram(model, tea.WithOutput(stdout), tea.WithAltScreen())
	controller := &Controller{
		events:  events,
		program: program,
		done:    make(chan struct{}),
	}
	go func() {
		_, _ = program.Run()
		close(controller.done)
	}()
	return controller
}

// Close signals the UI to stop.
func (c *Controller) Close() {
	if c == nil {
		return
	}
	c.closeOnce.Do(func() {
		close(c.events)
	})
}

// Wait blocks until the UI has exited.
func (c *Controller) Wait() {
	if c == nil {
		return
	}
	<-c.done
}

// OnRunStart forwards run start events to the UI.
func (c *Controller) OnRunStart(runID, runDir string) {
	c.send(Event{Kind: EventRunStart, RunID: runID, RunDir: runDir})
}

// OnEvent forwards committed run events to the UI.
func (c *Controller) OnEvent(event eventlog.Event, snap snapshot.Snapshot) {
	c.send(Event{Kind: EventLogged, Log: event, Snapshot: snap})
}

// OnRunEnd forwards run completion events to the UI and closes it.
func (c *Controller) OnRunEnd(result runner.Result) {
	c.send(Event{Kind: EventRunEnd, Result: result})
	c.Close()
}

// send enqueues an event without blocking the caller. The UI is advisory; a
// full buffer drops the update.
func (c *Controller) send(event Event) {
	if c == nil {
		return
	}
	select {
	case c.events <- event:
	default:
	}
}

var _ runner.RunObserver = (*Controller)(nil)
