// Package stages defines the collaborator boundary of the orchestrator:
// worker stages, the fixer and the submitter. Command-backed
// implementations run configured shell commands.
package stages

import (
	"context"
	"fmt"

	"docpilot/internal/changebudget"
	"docpilot/internal/gates"
	"docpilot/internal/rundir"
	"docpilot/internal/spec"
)

// Status tags a stage result.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusNotReady  Status = "not_ready"
)

// LLMCall is one model invocation made by a collaborator.
type LLMCall struct {
	InputTokens  int64 `json:"input_tokens"`
	OutputTokens int64 `json:"output_tokens"`
}

// Usage is what a collaborator consumed. The orchestrator records it against
// the run budget; collaborators never see the tracker.
type Usage struct {
	LLMCalls     []LLMCall `json:"llm_calls,omitempty"`
	FilesWritten []string  `json:"files_written,omitempty"`
}

// Request is the input of one worker stage.
type Request struct {
	RunID    string
	Stage    string
	Layout   rundir.Layout
	Config   spec.Config
	Upstream []string
}

// Result is a worker's tagged outcome. NotReady is not an error: the stage
// declined to run.
type Result struct {
	Status  Status   `json:"status"`
	Outputs []string `json:"outputs,omitempty"`
	Reason  string   `json:"reason,omitempty"`
	Usage   Usage    `json:"usage"`
}

func Completed(outputs []string, usage Usage) Result {
	return Result{Status: StatusCompleted, Outputs: outputs, Usage: usage}
}

func NotReady(reason string) Result {
	return Result{Status: StatusNotReady, Reason: reason}
}

// Worker produces one stage's artifacts.
type Worker interface {
	Run(ctx context.Context, req Request) (Result, error)
}

// WorkerFunc adapts a function to Worker.
type WorkerFunc func(ctx context.Context, req Request) (Result, error)

func (f WorkerFunc) Run(ctx context.Context, req Request) (Result, error) {
	return f(ctx, req)
}

// FixRequest asks the fixer to remediate one issue.
type FixRequest struct {
	RunID   string
	Attempt int
	Issue   gates.Issue
	Layout  rundir.Layout
	Config  spec.Config
}

// Edit is a proposed replacement of one work tree file.
type Edit struct {
	Path     string `json:"path"`
	Modified string `json:"modified"`
}

// Proposal is the fixer's answer. Edits are not applied by the fixer.
type Proposal struct {
	Edits []Edit `json:"edits"`
	Usage Usage  `json:"usage"`
}

type Fixer interface {
	Propose(ctx context.Context, req FixRequest) (Proposal, error)
}

type FixerFunc func(ctx context.Context, req FixRequest) (Proposal, error)

func (f FixerFunc) Propose(ctx context.Context, req FixRequest) (Proposal, error) {
	return f(ctx, req)
}

// SubmitRequest hands a validated run to the submitter.
type SubmitRequest struct {
	RunID  string
	Layout rundir.Layout
	Config spec.Config
}

type Submission struct {
	Reference string `json:"reference"`
	Usage     Usage  `json:"usage"`
}

type Submitter interface {
	Submit(ctx context.Context, req SubmitRequest) (Submission, error)
}

type SubmitterFunc func(ctx context.Context, req SubmitRequest) (Submission, error)

func (f SubmitterFunc) Submit(ctx context.Context, req SubmitRequest) (Submission, error) {
	return f(ctx, req)
}

// Bundle pairs proposed edits with the current work tree contents. Every
// edit path must stay inside the work tree; the run's event log and snapshot
// live one level above it.
func Bundle(edits []Edit, original func(path string) (string, error)) ([]changebudget.FileChange, error) {
	changes := make([]changebudget.FileChange, 0, len(edits))
	for i, edit := range edits {
		path, err := CleanWorkPath(edit.Path)
		if err != nil {
			return nil, fmt.Errorf("edit %d: %w", i, err)
		}
		before, err := original(path)
		if err != nil {
			return nil, err
		}
		changes = append(changes, changebudget.FileChange{Path: path, Original: before, Modified: edit.Modified})
	}
	return changes, nil
}
