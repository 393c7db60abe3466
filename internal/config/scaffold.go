package config

import (
	"fmt"
	"os"
	"path/filepath"
)

const defaultConfig = `version: 1
product: "my-product"
source:
  repo: "."
  git_ref: "HEAD"
output_dir: "./.docpilot/runs"
max_fix_attempts: 3
profile: local

budgets:
  max_runtime_s: 1800
  max_llm_calls: 200
  max_llm_tokens: 2000000
  max_file_writes: 500
  max_patch_attempts: 10

change_budget:
  max_lines_per_file: 80
  max_files_changed: 10
  reject_formatting_only: false

stages:
  - name: scout
    command: "./scripts/scout.sh"
  - name: extract
    command: "./scripts/extract.sh"
  - name: draft
    command: "./scripts/draft.sh"

fixer:
  command: "./scripts/fix.sh"

gates:
  - name: frontmatter
    options:
      required: [title, description]
  - name: links
  - name: security
`

// ScaffoldResult describes files created by Scaffold.
type ScaffoldResult struct {
	ConfigPath string
}

// Scaffold writes a starter config into dir. Existing files are never overwritten.
func Scaffold(dir string) (ScaffoldResult, error) {
	path := filepath.Join(dir, ConfigFileName)
	if _, err := os.Stat(path); err == nil {
		return ScaffoldResult{}, fmt.Errorf("%s already exists", path)
	} else if !os.IsNotExist(err) {
		return ScaffoldResult{}, fmt.Errorf("stat %s: %w", path, err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ScaffoldResult{}, fmt.Errorf("create dir: %w", err)
	}
	if err := os.WriteFile(path, []byte(defaultConfig), 0o644); err != nil {
		return ScaffoldResult{}, fmt.Errorf("write config: %w", err)
	}
	return ScaffoldResult{ConfigPath: path}, nil
}
