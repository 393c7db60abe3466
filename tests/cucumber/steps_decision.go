//go:build cucumber
// +build cucumber

package cucumber

import (
	"fmt"

	"github.com/cucumber/godog"

	"docpilot/internal/gates"
	"docpilot/internal/runstate"
)

func (s *featureState) aValidationReportWithIssues(table *godog.Table) error {
	rows, err := tableRows(table)
	if err != nil {
		return err
	}
	for _, row := range rows {
		severity, err := gates.ParseSeverity(row["severity"])
		if err != nil {
			return err
		}
		s.issues = append(s.issues, gates.Issue{IssueID: row["id"], Gate: "test", Severity: severity, Message: row["id"], Status: gates.StatusOpen})
	}
	return nil
}

func (s *featureState) fixAttemptsUsed(used, max int) error {
	s.fixAttempts = used
	s.maxFixAttempts = max
	return nil
}

func (s *featureState) theRunDecides() error {
	return s.theRunDecidesTimes(1)
}

func (s *featureState) theRunDecidesTimes(times int) error {
	for i := 0; i < times; i++ {
		s.outcomes = append(s.outcomes, runstate.DecideAfterValidation(s.issues, s.fixAttempts, s.maxFixAttempts))
	}
	return nil
}

func (s *featureState) lastOutcome() (runstate.Outcome, error) {
	if len(s.outcomes) == 0 {
		return runstate.Outcome{}, fmt.Errorf("no decision was made")
	}
	return s.outcomes[len(s.outcomes)-1], nil
}

func (s *featureState) theDecisionIs(expected string) error {
	outcome, err := s.lastOutcome()
	if err != nil {
		return err
	}
	if string(outcome.Decision) != expected {
		return fmt.Errorf("expected decision %s, got %s", expected, outcome.Decision)
	}
	return nil
}

func (s *featureState) theSelectedIssueIs(id string) error {
	outcome, err := s.lastOutcome()
	if err != nil {
		return err
	}
	if outcome.Issue == nil || outcome.Issue.IssueID != id {
		return fmt.Errorf("expected issue %s, got %+v", id, outcome.Issue)
	}
	return nil
}

func (s *featureState) theFixAttemptCounterIs(expected int) error {
	outcome, err := s.lastOutcome()
	if err != nil {
		return err
	}
	if outcome.FixAttempts != expected {
		return fmt.Errorf("expected fix attempts %d, got %d", expected, outcome.FixAttempts)
	}
	return nil
}

func (s *featureState) everyDecisionSelected(id string) error {
	if len(s.outcomes) == 0 {
		return fmt.Errorf("no decision was made")
	}
	for i, outcome := range s.outcomes {
		if outcome.Decision != runstate.DecisionFix || outcome.Issue == nil || outcome.Issue.IssueID != id {
			return fmt.Errorf("decision %d selected %+v", i+1, outcome.Issue)
		}
	}
	return nil
}

// tableRows maps each data row to its header cells.
func tableRows(table *godog.Table) ([]map[string]string, error) {
	if table == nil || len(table.Rows) == 0 {
		return nil, fmt.Errorf("expected a table with a header row")
	}
	header := table.Rows[0].Cells
	rows := make([]map[string]string, 0, len(table.Rows)-1)
	for _, row := range table.Rows[1:] {
		if len(row.Cells) != len(header) {
			return nil, fmt.Errorf("row has %d cells, header has %d", len(row.Cells), len(header))
		}
		values := map[string]string{}
		for i, cell := range row.Cells {
			values[header[i].Value] = cell.Value
		}
		rows = append(rows, values)
	}
	return rows, nil
}
