//go:build cucumber
// +build cucumber

package cucumber

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"docpilot/internal/changebudget"
	"docpilot/internal/spec"
)

func (s *featureState) originalAndModifiedText(original, modified string) error {
	var err error
	if s.original, err = strconv.Unquote(`"` + original + `"`); err != nil {
		return fmt.Errorf("original text: %w", err)
	}
	if s.modified, err = strconv.Unquote(`"` + modified + `"`); err != nil {
		return fmt.Errorf("modified text: %w", err)
	}
	return nil
}

func (s *featureState) theChangeIsFormattingOnly() error {
	if !changebudget.DetectFormattingOnlyChanges(s.original, s.modified) {
		return fmt.Errorf("expected %q -> %q to be formatting only", s.original, s.modified)
	}
	return nil
}

func (s *featureState) theChangeIsNotFormattingOnly() error {
	if changebudget.DetectFormattingOnlyChanges(s.original, s.modified) {
		return fmt.Errorf("expected %q -> %q to change content", s.original, s.modified)
	}
	return nil
}

func (s *featureState) aChangeBudget(lines, files int) error {
	s.changeBudget = spec.ChangeBudgetConfig{MaxLinesPerFile: lines, MaxFilesChanged: files}
	return nil
}

func (s *featureState) filesThatEachChange(count, lines int) error {
	for i := 0; i < count; i++ {
		var modified strings.Builder
		for j := 0; j < lines; j++ {
			fmt.Fprintf(&modified, "line %d\n", j)
		}
		s.bundle = append(s.bundle, changebudget.FileChange{
			Path:     fmt.Sprintf("page-%d.md", i),
			Modified: modified.String(),
		})
	}
	return nil
}

func (s *featureState) theBundleIsAnalyzed() error {
	_, s.analyzeErr = changebudget.Analyze(s.bundle, s.changeBudget)
	return nil
}

func (s *featureState) theChangeBudgetIsExceededWith(count int) error {
	var exceeded *changebudget.ExceededError
	if !errors.As(s.analyzeErr, &exceeded) {
		return fmt.Errorf("expected change budget error, got %v", s.analyzeErr)
	}
	if len(exceeded.Violations) != count {
		return fmt.Errorf("expected %d violations, got %d", count, len(exceeded.Violations))
	}
	return nil
}
