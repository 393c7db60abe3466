//go:build cucumber
// +build cucumber

package cucumber

import (
	"errors"
	"fmt"
	"strings"

	"docpilot/internal/budget"
	"docpilot/internal/spec"
)

func generousBudgets() spec.Budgets {
	return spec.Budgets{
		MaxRuntimeSeconds: spec.Int64(3600),
		MaxLLMCalls:       spec.Int64(1000),
		MaxLLMTokens:      spec.Int64(1_000_000),
		MaxFileWrites:     spec.Int64(1000),
		MaxPatchAttempts:  spec.Int64(100),
	}
}

func (s *featureState) newTracker() error {
	tracker, err := budget.New(s.budgets, budget.Options{})
	if err != nil {
		return err
	}
	s.tracker = tracker
	return nil
}

func (s *featureState) aTrackerAllowingCalls(limit int) error {
	s.budgets = generousBudgets()
	s.budgets.MaxLLMCalls = spec.Int64(int64(limit))
	return s.newTracker()
}

func (s *featureState) aTrackerAllowingTokens(limit int) error {
	s.budgets = generousBudgets()
	s.budgets.MaxLLMTokens = spec.Int64(int64(limit))
	return s.newTracker()
}

func (s *featureState) llmCallsRecorded(count int) error {
	for i := 0; i < count; i++ {
		if err := s.tracker.RecordLLMCall(1, 1); err != nil {
			s.budgetErr = err
			return nil
		}
	}
	return nil
}

func (s *featureState) llmCallWithTokensRecorded(input, output int) error {
	s.budgetErr = s.tracker.RecordLLMCall(int64(input), int64(output))
	return nil
}

func (s *featureState) noBudgetIsExceeded() error {
	if s.budgetErr != nil {
		return fmt.Errorf("unexpected budget error: %w", s.budgetErr)
	}
	return nil
}

func (s *featureState) theBudgetIsExceeded(name string) error {
	var exceeded *budget.ExceededError
	if !errors.As(s.budgetErr, &exceeded) {
		return fmt.Errorf("expected a budget exceeded error, got %v", s.budgetErr)
	}
	if exceeded.Budget != name {
		return fmt.Errorf("expected budget %s, got %s", name, exceeded.Budget)
	}
	if !errors.Is(s.budgetErr, budget.ErrBudgetExceeded) {
		return fmt.Errorf("expected error to match ErrBudgetExceeded")
	}
	return nil
}

func (s *featureState) budgetsWithout(key string) error {
	s.budgets = generousBudgets()
	switch key {
	case "max_runtime_s":
		s.budgets.MaxRuntimeSeconds = nil
	case "max_llm_calls":
		s.budgets.MaxLLMCalls = nil
	case "max_llm_tokens":
		s.budgets.MaxLLMTokens = nil
	case "max_file_writes":
		s.budgets.MaxFileWrites = nil
	case "max_patch_attempts":
		s.budgets.MaxPatchAttempts = nil
	default:
		return fmt.Errorf("unknown budget key %q", key)
	}
	return nil
}

func (s *featureState) creatingTrackerFails(key string) error {
	s.trackerErr = s.newTracker()
	if s.trackerErr == nil {
		return fmt.Errorf("expected tracker creation to fail")
	}
	if !strings.Contains(s.trackerErr.Error(), key) {
		return fmt.Errorf("expected error to mention %s, got %v", key, s.trackerErr)
	}
	return nil
}
