// Package budget enforces per-run resource ceilings.
package budget

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"docpilot/internal/spec"
)

// Budget names used in ExceededError and reports.
const (
	Runtime       = "runtime"
	LLMCalls      = "llm_calls"
	LLMTokens     = "llm_tokens"
	FileWrites    = "file_writes"
	PatchAttempts = "patch_attempts"
)

// ErrBudgetExceeded matches every *ExceededError.
var ErrBudgetExceeded = errors.New("budget exceeded")

// ExceededError identifies the budget that was crossed.
type ExceededError struct {
	Budget string
	Used   int64
	Limit  int64
}

func (e *ExceededError) Error() string {
	return fmt.Sprintf("%s: %s used %d of %d", ErrBudgetExceeded, e.Budget, e.Used, e.Limit)
}

func (e *ExceededError) Is(target error) bool {
	return target == ErrBudgetExceeded
}

// Limits is the immutable threshold set a Tracker checks against.
type Limits struct {
	MaxRuntime       time.Duration
	MaxLLMCalls      int64
	MaxLLMTokens     int64
	MaxFileWrites    int64
	MaxPatchAttempts int64
}

// LimitsFrom converts the configured budgets, failing on any absent key.
func LimitsFrom(b spec.Budgets) (Limits, error) {
	var missing []string
	pick := func(name string, value *int64) int64 {
		if value == nil {
			missing = append(missing, name)
			return 0
		}
		return *value
	}
	limits := Limits{
		MaxRuntime:       time.Duration(pick("max_runtime_s", b.MaxRuntimeSeconds)) * time.Second,
		MaxLLMCalls:      pick("max_llm_calls", b.MaxLLMCalls),
		MaxLLMTokens:     pick("max_llm_tokens", b.MaxLLMTokens),
		MaxFileWrites:    pick("max_file_writes", b.MaxFileWrites),
		MaxPatchAttempts: pick("max_patch_attempts", b.MaxPatchAttempts),
	}
	if len(missing) > 0 {
		return Limits{}, fmt.Errorf("budgets missing required keys: %s", strings.Join(missing, ", "))
	}
	return limits, nil
}

// Options customizes a Tracker.
type Options struct {
	Now func() time.Time
}

// Tracker holds the monotonic counters for one run.
type Tracker struct {
	mu            sync.Mutex
	limits        Limits
	now           func() time.Time
	startedAt     time.Time
	llmCalls      int64
	llmTokens     int64
	fileWrites    int64
	patchAttempts int64
	writtenPaths  map[string]int
}

// New builds a tracker from configured budgets. The clock starts now.
func New(b spec.Budgets, opts Options) (*Tracker, error) {
	limits, err := LimitsFrom(b)
	if err != nil {
		return nil, err
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	return &Tracker{limits: limits, now: now, startedAt: now(), writtenPaths: map[string]int{}}, nil
}

// Limits returns the configured thresholds.
func (t *Tracker) Limits() Limits {
	return t.limits
}

// StartedAt is when the tracker began counting runtime.
func (t *Tracker) StartedAt() time.Time {
	return t.startedAt
}

// RecordLLMCall counts one call and its tokens. The call budget is checked
// before the token budget.
func (t *Tracker) RecordLLMCall(inputTokens, outputTokens int64) error {
	if inputTokens < 0 || outputTokens < 0 {
		return fmt.Errorf("token counts must be >= 0")
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.llmCalls++
	t.llmTokens += inputTokens + outputTokens
	if err := check(LLMCalls, t.llmCalls, t.limits.MaxLLMCalls); err != nil {
		return err
	}
	return check(LLMTokens, t.llmTokens, t.limits.MaxLLMTokens)
}

// RecordFileWrite counts one write to path.
func (t *Tracker) RecordFileWrite(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.fileWrites++
	t.writtenPaths[path]++
	return check(FileWrites, t.fileWrites, t.limits.MaxFileWrites)
}

// RecordPatchAttempt counts one fix attempt.
func (t *Tracker) RecordPatchAttempt() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.patchAttempts++
	return check(PatchAttempts, t.patchAttempts, t.limits.MaxPatchAttempts)
}

// CheckRuntime compares elapsed wall time with max_runtime_s. It never
// interrupts work; callers check it between stages.
func (t *Tracker) CheckRuntime() error {
	elapsed := t.Elapsed()
	if elapsed > t.limits.MaxRuntime {
		return &ExceededError{
			Budget: Runtime,
			Used:   int64(elapsed / time.Second),
			Limit:  int64(t.limits.MaxRuntime / time.Second),
		}
	}
	return nil
}

// Elapsed is the wall time since the tracker was created.
func (t *Tracker) Elapsed() time.Duration {
	return t.now().Sub(t.startedAt)
}

func check(name string, used, limit int64) error {
	if used > limit {
		return &ExceededError{Budget: name, Used: used, Limit: limit}
	}
	return nil
}

// Usage is one budget's utilization.
type Usage struct {
	Budget string  `json:"budget"`
	Used   int64   `json:"used"`
	Limit  int64   `json:"limit"`
	Ratio  float64 `json:"ratio"`
}

// Summary is a side-effect-free view of utilization.
type Summary struct {
	StartedAt time.Time `json:"started_at"`
	Budgets   []Usage   `json:"budgets"`
	// Files lists written paths with their write counts.
	Files map[string]int `json:"files,omitempty"`
}

// Summary reports counters against thresholds in a fixed budget order.
func (t *Tracker) Summary() Summary {
	elapsed := t.Elapsed()
	t.mu.Lock()
	defer t.mu.Unlock()
	files := make(map[string]int, len(t.writtenPaths))
	for path, count := range t.writtenPaths {
		files[path] = count
	}
	return Summary{
		StartedAt: t.startedAt,
		Budgets: []Usage{
			usage(Runtime, int64(elapsed/time.Second), int64(t.limits.MaxRuntime/time.Second)),
			usage(LLMCalls, t.llmCalls, t.limits.MaxLLMCalls),
			usage(LLMTokens, t.llmTokens, t.limits.MaxLLMTokens),
			usage(FileWrites, t.fileWrites, t.limits.MaxFileWrites),
			usage(PatchAttempts, t.patchAttempts, t.limits.MaxPatchAttempts),
		},
		Files: files,
	}
}

// Get returns the usage row for name.
func (s Summary) Get(name string) (Usage, bool) {
	for _, row := range s.Budgets {
		if row.Budget == name {
			return row, true
		}
	}
	return Usage{}, false
}

// Paths lists written paths alphabetically.
func (s Summary) Paths() []string {
	paths := make([]string, 0, len(s.Files))
	for path := range s.Files {
		paths = append(paths, path)
	}
	sort.Strings(paths)
	return paths
}

func usage(name string, used, limit int64) Usage {
	ratio := 0.0
	switch {
	case limit > 0:
		ratio = float64(used) / float64(limit)
	case used > 0:
		ratio = 1
	}
	return Usage{Budget: name, Used: used, Limit: limit, Ratio: ratio}
}
