// Package builtin provides the gates that can be enabled from docpilot.yml.
package builtin

import (
	"fmt"
	"sort"
	"strings"

	"docpilot/internal/gates"
	"docpilot/internal/spec"
)

const (
	GateFrontmatter = "frontmatter"
	GateSchema      = "schema"
	GateLinks       = "links"
	GateSecurity    = "security"
)

type definition struct {
	check   func(opts map[string]any, baseDir string) []string
	resolve func(opts map[string]any, baseDir string) map[string]any
	build   func(opts map[string]any) (gates.Gate, error)
}

var registry = map[string]definition{
	GateFrontmatter: {check: checkFrontmatterOptions, build: buildFrontmatter},
	GateSchema:      {check: checkSchemaOptions, resolve: resolveSchemaOptions, build: buildSchema},
	GateLinks:       {check: checkScanOptions, build: buildLinks},
	GateSecurity:    {check: checkSecurityOptions, build: buildSecurity},
}

// Names lists built-in gate names alphabetically.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Known reports whether name is a built-in gate.
func Known(name string) bool {
	_, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	return ok
}

// CheckOptions returns human-readable problems with a gate's options.
func CheckOptions(cfg spec.GateConfig, baseDir string) []string {
	def, ok := registry[cfg.Name]
	if !ok || def.check == nil {
		return nil
	}
	return def.check(cfg.Options, baseDir)
}

// ResolveOptions rewrites path-valued options relative to baseDir.
func ResolveOptions(cfg spec.GateConfig, baseDir string) spec.GateConfig {
	def, ok := registry[strings.ToLower(strings.TrimSpace(cfg.Name))]
	if !ok || def.resolve == nil || cfg.Options == nil {
		return cfg
	}
	cfg.Options = def.resolve(cloneOptions(cfg.Options), baseDir)
	return cfg
}

// Build instantiates the configured gates in configuration order.
func Build(cfgs []spec.GateConfig) ([]gates.Gate, error) {
	out := make([]gates.Gate, 0, len(cfgs))
	for _, cfg := range cfgs {
		def, ok := registry[cfg.Name]
		if !ok {
			return nil, fmt.Errorf("unknown gate %q", cfg.Name)
		}
		gate, err := def.build(cfg.Options)
		if err != nil {
			return nil, fmt.Errorf("gate %s: %w", cfg.Name, err)
		}
		out = append(out, gate)
	}
	return out, nil
}

func cloneOptions(opts map[string]any) map[string]any {
	out := make(map[string]any, len(opts))
	for key, value := range opts {
		out[key] = value
	}
	return out
}
