package config

import (
	"path/filepath"
	"strings"

	"docpilot/internal/gates/builtin"
	"docpilot/internal/spec"
)

// Normalize fills defaults and resolves relative paths against baseDir.
func Normalize(cfg *spec.Config, baseDir string) {
	cfg.Product = strings.TrimSpace(cfg.Product)
	cfg.Profile = strings.ToLower(strings.TrimSpace(cfg.Profile))
	if cfg.Profile == "" {
		cfg.Profile = spec.ProfileLocal
	}
	if strings.TrimSpace(cfg.Source.GitRef) == "" {
		cfg.Source.GitRef = "HEAD"
	}
	if strings.TrimSpace(cfg.GoldenDir) == "" && strings.TrimSpace(cfg.OutputDir) != "" {
		cfg.GoldenDir = filepath.Join(cfg.OutputDir, DefaultGoldenDirName)
	}
	cfg.OutputDir = resolvePath(baseDir, cfg.OutputDir)
	cfg.GoldenDir = resolvePath(baseDir, cfg.GoldenDir)
	cfg.Source.Repo = resolvePath(baseDir, cfg.Source.Repo)
	cfg.Warehouse.Path = resolvePath(baseDir, cfg.Warehouse.Path)
	for i := range cfg.Stages {
		cfg.Stages[i].Name = strings.ToLower(strings.TrimSpace(cfg.Stages[i].Name))
	}
	for i := range cfg.Gates {
		cfg.Gates[i].Name = strings.ToLower(strings.TrimSpace(cfg.Gates[i].Name))
		cfg.Gates[i] = builtin.ResolveOptions(cfg.Gates[i], baseDir)
	}
}

func resolvePath(baseDir, path string) string {
	path = strings.TrimSpace(path)
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	if baseDir == "" {
		baseDir = "."
	}
	return filepath.Join(baseDir, path)
}
