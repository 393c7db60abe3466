package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docpilot/internal/vcs"
)

const testConfig = `version: 1
product: handbook
source:
  git_ref: main
output_dir: runs
golden_dir: golden
max_fix_attempts: 1
profile: local
budgets:
  max_runtime_s: 600
  max_llm_calls: 10
  max_llm_tokens: 10000
  max_file_writes: 20
  max_patch_attempts: 5
change_budget:
  max_lines_per_file: 40
  max_files_changed: 4
stages:
  - name: scout
    command: |
      echo sources > "$DOCPILOT_ARTIFACTS_DIR/scout.txt"
    outputs: [scout.txt]
  - name: extract
    command: |
      echo facts > "$DOCPILOT_ARTIFACTS_DIR/facts.txt"
    outputs: [facts.txt]
  - name: draft
    command: |
      cat > "$DOCPILOT_WORK_DIR/guide.md" <<'DOC'
      ---
      title: Guide
      ---
      body
      DOC
fixer:
  command: "exit 1"
gates:
  - name: frontmatter
    options:
      required: [title]
`

// writeConfig writes docpilot.yml into a temp dir, applying replacements.
func writeConfig(t *testing.T, replacements ...string) string {
	t.Helper()
	dir := t.TempDir()
	content := testConfig
	for i := 0; i+1 < len(replacements); i += 2 {
		content = strings.Replace(content, replacements[i], replacements[i+1], 1)
	}
	path := filepath.Join(dir, "docpilot.yml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

// stubEnvironment pins the clock and source description for a test.
func stubEnvironment(t *testing.T) {
	t.Helper()
	originalNow, originalDescribe := now, describeSource
	t.Cleanup(func() {
		now = originalNow
		describeSource = originalDescribe
	})
	now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }
	describeSource = func(_ context.Context, dir, ref string) vcs.Source {
		return vcs.Source{Root: dir, Ref: ref, Commit: "abcdef0123456789"}
	}
}

// runCLI invokes Run and returns exit code, stdout and stderr.
func runCLI(args ...string) (int, string, string) {
	var out, err bytes.Buffer
	code := Run(args, &out, &err)
	return code, out.String(), err.String()
}

// runDirFrom extracts the run directory printed by the run command.
func runDirFrom(t *testing.T, stdout string) string {
	t.Helper()
	for _, line := range strings.Split(stdout, "\n") {
		if dir, ok := strings.CutPrefix(line, "Run dir: "); ok {
			return strings.TrimSpace(dir)
		}
	}
	t.Fatalf("no run dir in output %q", stdout)
	return ""
}
