package config

import (
	"fmt"
	"strings"

	"docpilot/internal/spec"
)

// validateStages checks stage bindings against the fixed pipeline stages.
func validateStages(cfg *spec.Config, add issueAdder) {
	known := map[string]struct{}{}
	for _, name := range spec.PipelineStages {
		known[name] = struct{}{}
	}
	seen := map[string]struct{}{}
	for i, stage := range cfg.Stages {
		fieldPrefix := fmt.Sprintf("stages[%d]", i)
		if stage.Name == "" {
			add(fieldPrefix+".name", "is required")
			continue
		}
		if _, ok := known[stage.Name]; !ok {
			add(fieldPrefix+".name", fmt.Sprintf("unknown stage %q (expected one of %s)", stage.Name, strings.Join(spec.PipelineStages, ", ")))
		}
		if _, dup := seen[stage.Name]; dup {
			add("stages.name", fmt.Sprintf("duplicate stage %q", stage.Name))
		}
		seen[stage.Name] = struct{}{}
		if strings.TrimSpace(stage.Command) == "" {
			add(fieldPrefix+".command", "is required")
		}
		for j, output := range stage.Outputs {
			if strings.TrimSpace(output) == "" {
				add(fmt.Sprintf("%s.outputs[%d]", fieldPrefix, j), "is required")
			}
		}
	}
}
