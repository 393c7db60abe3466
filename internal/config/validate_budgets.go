package config

import (
	"docpilot/internal/spec"
)

// validateBudgets requires every budget key and rejects negative limits.
func validateBudgets(budgets spec.Budgets, add issueAdder) {
	fields := []struct {
		name  string
		value *int64
	}{
		{"budgets.max_runtime_s", budgets.MaxRuntimeSeconds},
		{"budgets.max_llm_calls", budgets.MaxLLMCalls},
		{"budgets.max_llm_tokens", budgets.MaxLLMTokens},
		{"budgets.max_file_writes", budgets.MaxFileWrites},
		{"budgets.max_patch_attempts", budgets.MaxPatchAttempts},
	}
	for _, field := range fields {
		if field.value == nil {
			add(field.name, "is required")
			continue
		}
		if *field.value < 0 {
			add(field.name, "must be >= 0")
		}
	}
}

// validateChangeBudget rejects non-positive diff limits.
func validateChangeBudget(cfg spec.ChangeBudgetConfig, add issueAdder) {
	if cfg.MaxLinesPerFile <= 0 {
		add("change_budget.max_lines_per_file", "must be > 0")
	}
	if cfg.MaxFilesChanged <= 0 {
		add("change_budget.max_files_changed", "must be > 0")
	}
}
