package budget

import (
	"errors"
	"strings"
	"testing"
	"time"

	"docpilot/internal/spec"
	"docpilot/internal/testutil"
)

func fullBudgets() spec.Budgets {
	return spec.Budgets{
		MaxRuntimeSeconds: spec.Int64(60),
		MaxLLMCalls:       spec.Int64(3),
		MaxLLMTokens:      spec.Int64(1000),
		MaxFileWrites:     spec.Int64(2),
		MaxPatchAttempts:  spec.Int64(1),
	}
}

func newTracker(t *testing.T, clock *testutil.FakeClock) *Tracker {
	t.Helper()
	tracker, err := New(fullBudgets(), Options{Now: clock.Now})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return tracker
}

func TestNewFailsFastOnMissingKeys(t *testing.T) {
	budgets := fullBudgets()
	budgets.MaxLLMTokens = nil
	budgets.MaxPatchAttempts = nil
	_, err := New(budgets, Options{})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "max_llm_tokens, max_patch_attempts") {
		t.Fatalf("expected missing keys named, got %v", err)
	}
}

func TestFourthLLMCallExceedsBudget(t *testing.T) {
	tracker := newTracker(t, testutil.NewFakeClock(time.Unix(0, 0)))
	for i := 0; i < 3; i++ {
		if err := tracker.RecordLLMCall(10, 10); err != nil {
			t.Fatalf("call %d: %v", i+1, err)
		}
	}
	err := tracker.RecordLLMCall(10, 10)
	if !errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected budget exceeded, got %v", err)
	}
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) || exceeded.Budget != LLMCalls {
		t.Fatalf("expected llm_calls, got %+v", exceeded)
	}
	if exceeded.Used != 4 || exceeded.Limit != 3 {
		t.Fatalf("unexpected counters %+v", exceeded)
	}
}

func TestTokenBudget(t *testing.T) {
	tracker := newTracker(t, testutil.NewFakeClock(time.Unix(0, 0)))
	if err := tracker.RecordLLMCall(600, 400); err != nil {
		t.Fatalf("at limit should pass: %v", err)
	}
	err := tracker.RecordLLMCall(1, 0)
	var exceeded *ExceededError
	if !errors.As(err, &exceeded) || exceeded.Budget != LLMTokens {
		t.Fatalf("expected llm_tokens, got %v", err)
	}
	if err := tracker.RecordLLMCall(-1, 0); err == nil || errors.Is(err, ErrBudgetExceeded) {
		t.Fatalf("expected argument error, got %v", err)
	}
}

func TestFileWritesAndPatchAttempts(t *testing.T) {
	tracker := newTracker(t, testutil.NewFakeClock(time.Unix(0, 0)))
	for _, path := range []string{"a.md", "a.md"} {
		if err := tracker.RecordFileWrite(path); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
	}
	var exceeded *ExceededError
	if err := tracker.RecordFileWrite("b.md"); !errors.As(err, &exceeded) || exceeded.Budget != FileWrites {
		t.Fatalf("expected file_writes, got %v", err)
	}
	if err := tracker.RecordPatchAttempt(); err != nil {
		t.Fatalf("first attempt: %v", err)
	}
	if err := tracker.RecordPatchAttempt(); !errors.As(err, &exceeded) || exceeded.Budget != PatchAttempts {
		t.Fatalf("expected patch_attempts, got %v", err)
	}
}

func TestCheckRuntime(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(1000, 0))
	tracker := newTracker(t, clock)
	clock.Advance(60 * time.Second)
	if err := tracker.CheckRuntime(); err != nil {
		t.Fatalf("at limit should pass: %v", err)
	}
	clock.Advance(time.Second)
	var exceeded *ExceededError
	if err := tracker.CheckRuntime(); !errors.As(err, &exceeded) || exceeded.Budget != Runtime {
		t.Fatalf("expected runtime, got %v", err)
	}
}

func TestSummaryReportsRatiosWithoutSideEffects(t *testing.T) {
	clock := testutil.NewFakeClock(time.Unix(0, 0))
	tracker := newTracker(t, clock)
	if err := tracker.RecordLLMCall(100, 150); err != nil {
		t.Fatalf("record: %v", err)
	}
	if err := tracker.RecordFileWrite("docs/a.md"); err != nil {
		t.Fatalf("record: %v", err)
	}
	clock.Advance(30 * time.Second)

	first := tracker.Summary()
	second := tracker.Summary()
	calls, _ := first.Get(LLMCalls)
	if calls.Used != 1 || calls.Ratio != 1.0/3.0 {
		t.Fatalf("unexpected calls usage %+v", calls)
	}
	tokens, _ := first.Get(LLMTokens)
	if tokens.Ratio != 0.25 {
		t.Fatalf("unexpected token ratio %+v", tokens)
	}
	runtime, _ := first.Get(Runtime)
	if runtime.Used != 30 || runtime.Ratio != 0.5 {
		t.Fatalf("unexpected runtime %+v", runtime)
	}
	again, _ := second.Get(LLMCalls)
	if again.Used != 1 {
		t.Fatalf("summary must not change counters")
	}
	if paths := first.Paths(); len(paths) != 1 || paths[0] != "docs/a.md" {
		t.Fatalf("unexpected paths %v", paths)
	}
}
