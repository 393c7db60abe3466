// Package gates runs pluggable validation predicates against a run's working
// tree and merges their findings into one report.
package gates

import (
	"fmt"
	"strings"
)

// Severity orders issues: info < warn < error < blocker.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarn    Severity = "warn"
	SeverityError   Severity = "error"
	SeverityBlocker Severity = "blocker"
)

var severityRank = map[Severity]int{
	SeverityInfo:    0,
	SeverityWarn:    1,
	SeverityError:   2,
	SeverityBlocker: 3,
}

// Severities lists all severities from lowest to highest.
var Severities = []Severity{SeverityInfo, SeverityWarn, SeverityError, SeverityBlocker}

// Rank returns the ordinal of s, or -1 when s is not a known severity.
func (s Severity) Rank() int {
	if rank, ok := severityRank[s]; ok {
		return rank
	}
	return -1
}

// AtLeast reports whether s is at or above min.
func (s Severity) AtLeast(min Severity) bool {
	return s.Rank() >= 0 && s.Rank() >= min.Rank()
}

// Valid reports whether s is a known severity.
func (s Severity) Valid() bool {
	return s.Rank() >= 0
}

// ParseSeverity parses a severity name case-insensitively.
func ParseSeverity(value string) (Severity, error) {
	s := Severity(strings.ToLower(strings.TrimSpace(value)))
	if !s.Valid() {
		return "", fmt.Errorf("unknown severity %q", value)
	}
	return s, nil
}

type IssueStatus string

const (
	StatusOpen     IssueStatus = "OPEN"
	StatusResolved IssueStatus = "RESOLVED"
	StatusWaived   IssueStatus = "WAIVED"
)

// Location points at a file and optional 1-based line.
type Location struct {
	Path string `json:"path"`
	Line int    `json:"line,omitempty"`
}

// Issue is one validation finding.
type Issue struct {
	IssueID   string      `json:"issue_id"`
	Gate      string      `json:"gate"`
	Severity  Severity    `json:"severity"`
	Message   string      `json:"message"`
	Location  *Location   `json:"location,omitempty"`
	Status    IssueStatus `json:"status"`
	ErrorCode string      `json:"error_code,omitempty"`
}

// String renders an issue for logs and CLI output.
func (i Issue) String() string {
	where := ""
	if i.Location != nil {
		where = " " + i.Location.Path
		if i.Location.Line > 0 {
			where = fmt.Sprintf("%s:%d", where, i.Location.Line)
		}
	}
	return fmt.Sprintf("[%s] %s:%s %s", i.Severity, i.Gate, where, i.Message)
}

// FirstAtLeast returns the first issue in input order whose severity is at or
// above min. The list is never re-sorted.
func FirstAtLeast(issues []Issue, min Severity) (Issue, bool) {
	for _, issue := range issues {
		if issue.Severity.AtLeast(min) {
			return issue, true
		}
	}
	return Issue{}, false
}

// CountBySeverity tallies issues per severity name.
func CountBySeverity(issues []Issue) map[string]int {
	counts := make(map[string]int, len(Severities))
	for _, severity := range Severities {
		counts[string(severity)] = 0
	}
	for _, issue := range issues {
		counts[string(issue.Severity)]++
	}
	return counts
}
