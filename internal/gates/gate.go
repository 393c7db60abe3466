package gates

import "context"

// Result is a gate's verdict.
type Result struct {
	Passed bool
	Issues []Issue
}

// Gate is one validation predicate. Check must only read the filesystem under
// runDir; it never touches run state.
type Gate interface {
	Name() string
	Check(ctx context.Context, runDir string, profile Profile) (Result, error)
}

// Func adapts a function to the Gate interface.
type Func func(ctx context.Context, runDir string, profile Profile) (Result, error)

type funcGate struct {
	name string
	fn   Func
}

// New wraps fn as a named gate.
func New(name string, fn Func) Gate {
	return funcGate{name: name, fn: fn}
}

func (g funcGate) Name() string {
	return g.name
}

func (g funcGate) Check(ctx context.Context, runDir string, profile Profile) (Result, error) {
	return g.fn(ctx, runDir, profile)
}
