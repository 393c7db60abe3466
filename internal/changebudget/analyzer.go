// Package changebudget bounds the size of proposed file changes.
package changebudget

import (
	"errors"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"docpilot/internal/spec"
)

// ErrChangeBudgetExceeded matches every *ExceededError.
var ErrChangeBudgetExceeded = errors.New("change budget exceeded")

const (
	KindLinesPerFile   = "lines_per_file"
	KindFilesChanged   = "files_changed"
	KindFormattingOnly = "formatting_only"
)

// FileChange is one proposed edit. Path is relative to the run working tree.
type FileChange struct {
	Path     string `json:"path"`
	Original string `json:"original"`
	Modified string `json:"modified"`
}

// FileStats describes one analysed change.
type FileStats struct {
	Path           string `json:"path"`
	Added          int    `json:"added"`
	Deleted        int    `json:"deleted"`
	FormattingOnly bool   `json:"formatting_only"`
}

// Changed is the raw changed-line count used against max_lines_per_file.
func (s FileStats) Changed() int {
	return s.Added + s.Deleted
}

// Analysis is the per-file breakdown of a bundle.
type Analysis struct {
	Files        []FileStats `json:"files"`
	TotalAdded   int         `json:"total_added"`
	TotalDeleted int         `json:"total_deleted"`
}

type Violation struct {
	Kind    string `json:"kind"`
	Path    string `json:"path,omitempty"`
	Actual  int    `json:"actual"`
	Limit   int    `json:"limit"`
	Message string `json:"message"`
}

// ExceededError carries every violation found in a bundle.
type ExceededError struct {
	Violations []Violation
}

func (e *ExceededError) Error() string {
	parts := make([]string, 0, len(e.Violations))
	for _, violation := range e.Violations {
		parts = append(parts, violation.Message)
	}
	return fmt.Sprintf("%s: %s", ErrChangeBudgetExceeded, strings.Join(parts, "; "))
}

func (e *ExceededError) Is(target error) bool {
	return target == ErrChangeBudgetExceeded
}

// Analyze diffs every change in the bundle and checks it against cfg. The
// analysis is returned even when the budget is exceeded.
func Analyze(bundle []FileChange, cfg spec.ChangeBudgetConfig) (Analysis, error) {
	analysis := Analysis{Files: make([]FileStats, 0, len(bundle))}
	var violations []Violation
	for _, change := range bundle {
		stats := Stat(change)
		analysis.Files = append(analysis.Files, stats)
		analysis.TotalAdded += stats.Added
		analysis.TotalDeleted += stats.Deleted
		if cfg.MaxLinesPerFile > 0 && stats.Changed() > cfg.MaxLinesPerFile {
			violations = append(violations, Violation{
				Kind:    KindLinesPerFile,
				Path:    change.Path,
				Actual:  stats.Changed(),
				Limit:   cfg.MaxLinesPerFile,
				Message: fmt.Sprintf("%s changes %d lines (limit %d)", change.Path, stats.Changed(), cfg.MaxLinesPerFile),
			})
		}
		if cfg.RejectFormattingOnly && stats.FormattingOnly && stats.Changed() > 0 {
			violations = append(violations, Violation{
				Kind:    KindFormattingOnly,
				Path:    change.Path,
				Actual:  stats.Changed(),
				Message: fmt.Sprintf("%s only changes formatting", change.Path),
			})
		}
	}
	if cfg.MaxFilesChanged > 0 && len(bundle) > cfg.MaxFilesChanged {
		violations = append(violations, Violation{
			Kind:    KindFilesChanged,
			Actual:  len(bundle),
			Limit:   cfg.MaxFilesChanged,
			Message: fmt.Sprintf("bundle changes %d files (limit %d)", len(bundle), cfg.MaxFilesChanged),
		})
	}
	if len(violations) > 0 {
		return analysis, &ExceededError{Violations: violations}
	}
	return analysis, nil
}

// Stat counts added and deleted lines with a line diff and classifies the
// change as formatting-only when whitespace normalization makes both sides
// equal.
func Stat(change FileChange) FileStats {
	stats := FileStats{Path: change.Path}
	matcher := difflib.NewMatcherWithJunk(splitLines(change.Original), splitLines(change.Modified), false, nil)
	for _, op := range matcher.GetOpCodes() {
		switch op.Tag {
		case 'r':
			stats.Deleted += op.I2 - op.I1
			stats.Added += op.J2 - op.J1
		case 'd':
			stats.Deleted += op.I2 - op.I1
		case 'i':
			stats.Added += op.J2 - op.J1
		}
	}
	stats.FormattingOnly = DetectFormattingOnlyChanges(change.Original, change.Modified)
	return stats
}

// DetectFormattingOnlyChanges reports whether original and modified differ
// only in line endings, trailing whitespace, or leading and trailing blank
// lines.
func DetectFormattingOnlyChanges(original, modified string) bool {
	return normalizeWhitespace(original) == normalizeWhitespace(modified)
}

// UnifiedDiff renders a change as a unified diff for patch artifacts.
func UnifiedDiff(change FileChange) (string, error) {
	return difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(change.Original),
		B:        difflib.SplitLines(change.Modified),
		FromFile: "a/" + change.Path,
		ToFile:   "b/" + change.Path,
		Context:  3,
	})
}

func normalizeWhitespace(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t")
	}
	return strings.Trim(strings.Join(lines, "\n"), "\n")
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.SplitAfter(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}
