package config

import (
	"fmt"

	"docpilot/internal/gates/builtin"
	"docpilot/internal/spec"
)

// validateGates checks gate names and their options.
func validateGates(cfg *spec.Config, baseDir string, add issueAdder) {
	seen := map[string]struct{}{}
	for i, gate := range cfg.Gates {
		fieldPrefix := fmt.Sprintf("gates[%d]", i)
		if gate.Name == "" {
			add(fieldPrefix+".name", "is required")
			continue
		}
		if !builtin.Known(gate.Name) {
			add(fieldPrefix+".name", fmt.Sprintf("unknown gate %q", gate.Name))
			continue
		}
		if _, dup := seen[gate.Name]; dup {
			add("gates.name", fmt.Sprintf("duplicate gate %q", gate.Name))
		}
		seen[gate.Name] = struct{}{}
		for _, problem := range builtin.CheckOptions(gate, baseDir) {
			add(fieldPrefix+".options", problem)
		}
	}
}
