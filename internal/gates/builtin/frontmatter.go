package builtin

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"docpilot/internal/gates"
)

var defaultRequiredKeys = []string{"title"}

type frontmatterGate struct {
	dir      string
	required []string
}

func checkFrontmatterOptions(opts map[string]any, _ string) []string {
	problems := unknownKeys(opts, "dir", "required")
	if _, err := scanDirOption(opts); err != nil {
		problems = append(problems, err.Error())
	}
	if _, err := stringListOption(opts, "required", defaultRequiredKeys); err != nil {
		problems = append(problems, err.Error())
	}
	return problems
}

func buildFrontmatter(opts map[string]any) (gates.Gate, error) {
	dir, err := scanDirOption(opts)
	if err != nil {
		return nil, err
	}
	required, err := stringListOption(opts, "required", defaultRequiredKeys)
	if err != nil {
		return nil, err
	}
	return &frontmatterGate{dir: dir, required: required}, nil
}

func (g *frontmatterGate) Name() string {
	return GateFrontmatter
}

func (g *frontmatterGate) Check(ctx context.Context, runDir string, profile gates.Profile) (gates.Result, error) {
	files, err := walkFiles(ctx, runDir, g.dir, markdownExts)
	if err != nil {
		return gates.Result{}, err
	}
	var issues []gates.Issue
	for _, rel := range files {
		data, err := os.ReadFile(filepath.Join(runDir, filepath.FromSlash(rel)))
		if err != nil {
			return gates.Result{}, err
		}
		issues = append(issues, g.checkFile(rel, data, profile)...)
	}
	return gates.Result{Passed: !anyAtLeast(issues, gates.SeverityError), Issues: issues}, nil
}

func (g *frontmatterGate) checkFile(rel string, data []byte, profile gates.Profile) []gates.Issue {
	block, ok := splitFrontmatter(data)
	if !ok {
		return []gates.Issue{frontmatterIssue(rel, gates.SeverityBlocker, "missing_frontmatter", "document has no YAML frontmatter")}
	}
	fields := map[string]any{}
	if err := yaml.Unmarshal(block, &fields); err != nil {
		return []gates.Issue{frontmatterIssue(rel, gates.SeverityBlocker, "invalid_frontmatter", fmt.Sprintf("frontmatter is not valid YAML: %v", err))}
	}
	var issues []gates.Issue
	for _, key := range g.required {
		value, present := fields[key]
		switch {
		case !present:
			issues = append(issues, frontmatterIssue(rel, gates.SeverityBlocker, "missing_key", fmt.Sprintf("frontmatter is missing required key %q", key)))
		case isBlank(value):
			severity := gates.SeverityWarn
			if profile.Strict {
				severity = gates.SeverityBlocker
			}
			issues = append(issues, frontmatterIssue(rel, severity, "empty_key", fmt.Sprintf("frontmatter key %q is empty", key)))
		}
	}
	return issues
}

// splitFrontmatter returns the YAML between a leading "---" line and the next
// "---" line.
func splitFrontmatter(data []byte) ([]byte, bool) {
	text := strings.ReplaceAll(string(data), "\r\n", "\n")
	if !strings.HasPrefix(text, "---\n") {
		return nil, false
	}
	rest := text[len("---\n"):]
	if strings.HasPrefix(rest, "---\n") || rest == "---" {
		return []byte{}, true
	}
	end := strings.Index(rest, "\n---\n")
	if end < 0 {
		if strings.HasSuffix(rest, "\n---") {
			end = len(rest) - len("\n---")
		} else {
			return nil, false
		}
	}
	return bytes.TrimSpace([]byte(rest[:end])), true
}

func isBlank(value any) bool {
	switch typed := value.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(typed) == ""
	case []any:
		return len(typed) == 0
	case map[string]any:
		return len(typed) == 0
	}
	return false
}

func frontmatterIssue(rel string, severity gates.Severity, code, message string) gates.Issue {
	return gates.Issue{
		Gate:      GateFrontmatter,
		Severity:  severity,
		Message:   message,
		Location:  &gates.Location{Path: rel, Line: 1},
		Status:    gates.StatusOpen,
		ErrorCode: code,
	}
}

func anyAtLeast(issues []gates.Issue, min gates.Severity) bool {
	_, ok := gates.FirstAtLeast(issues, min)
	return ok
}
