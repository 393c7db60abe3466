package config

import (
	"fmt"
	"strings"

	"docpilot/internal/spec"
)

// Validate checks a config for correctness and referenced files.
func Validate(cfg *spec.Config, baseDir string) error {
	collector := &issueCollector{}

	if cfg.Version == 0 {
		collector.add("version", "is required")
	} else if cfg.Version != 1 {
		collector.add("version", fmt.Sprintf("unsupported version %d", cfg.Version))
	}
	if strings.TrimSpace(cfg.Product) == "" {
		collector.add("product", "is required")
	} else if strings.ContainsAny(cfg.Product, `/\`) {
		collector.add("product", "must not contain path separators")
	}
	if strings.TrimSpace(cfg.OutputDir) == "" {
		collector.add("output_dir", "is required")
	}
	if cfg.MaxFixAttempts < 0 {
		collector.add("max_fix_attempts", "must be >= 0")
	}
	switch cfg.Profile {
	case spec.ProfileLocal, spec.ProfileCI, spec.ProfileProd:
	default:
		collector.add("profile", fmt.Sprintf("unsupported profile %q (expected local|ci|prod)", cfg.Profile))
	}

	if baseDir == "" {
		baseDir = "."
	}

	validateBudgets(cfg.Budgets, collector.add)
	validateChangeBudget(cfg.ChangeBudget, collector.add)
	validateStages(cfg, collector.add)
	validateGates(cfg, baseDir, collector.add)

	return collector.result()
}
