package gates

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"docpilot/internal/canonical"
	"docpilot/internal/fsutil"
)

// ReportFileName is the validation report written into the run directory.
const ReportFileName = "validation_report.json"

// GateOutcome is one gate's verdict within a report.
type GateOutcome struct {
	Name       string `json:"name"`
	Passed     bool   `json:"passed"`
	IssueCount int    `json:"issue_count"`
}

// Report is the merged result of one validation pass.
type Report struct {
	RunID       string        `json:"run_id"`
	Profile     string        `json:"profile"`
	Passed      bool          `json:"passed"`
	Gates       []GateOutcome `json:"gates"`
	Issues      []Issue       `json:"issues"`
	GeneratedAt time.Time     `json:"generated_at"`
}

// Blockers returns blocker-or-worse issues in report order.
func (r Report) Blockers() []Issue {
	var out []Issue
	for _, issue := range r.Issues {
		if issue.Severity.AtLeast(SeverityBlocker) {
			out = append(out, issue)
		}
	}
	return out
}

// HasBlockers reports whether any issue is blocker or worse.
func (r Report) HasBlockers() bool {
	_, ok := FirstAtLeast(r.Issues, SeverityBlocker)
	return ok
}

// Counts tallies issues per severity.
func (r Report) Counts() map[string]int {
	return CountBySeverity(r.Issues)
}

// ReportPath returns the report location inside runDir.
func ReportPath(runDir string) string {
	return filepath.Join(runDir, ReportFileName)
}

// WriteReport persists report with sorted keys and replaces any earlier pass.
func WriteReport(path string, report Report) error {
	data, err := canonical.IndentJSON(report)
	if err != nil {
		return fmt.Errorf("encode validation report: %w", err)
	}
	return fsutil.WriteFileAtomic(path, data)
}

// ReadReport loads a report written by WriteReport.
func ReadReport(path string) (Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Report{}, err
	}
	var report Report
	if err := json.Unmarshal(data, &report); err != nil {
		return Report{}, fmt.Errorf("parse validation report %s: %w", path, err)
	}
	return report, nil
}
