//go:build cucumber
// +build cucumber

package cucumber

import (
	"fmt"

	"github.com/cucumber/godog"

	"docpilot/internal/golden"
)

func artifactTable(table *godog.Table) (map[string]string, error) {
	rows, err := tableRows(table)
	if err != nil {
		return nil, err
	}
	out := make(map[string]string, len(rows))
	for _, row := range rows {
		out[row["path"]] = row["hash"]
	}
	return out, nil
}

func (s *featureState) goldenArtifacts(table *godog.Table) error {
	set, err := artifactTable(table)
	s.goldenSet = set
	return err
}

func (s *featureState) candidateArtifacts(table *godog.Table) error {
	set, err := artifactTable(table)
	s.candidateSet = set
	return err
}

func (s *featureState) theCandidateIsVerified() error {
	s.verification = golden.Compare(s.goldenSet, s.candidateSet)
	return nil
}

func (s *featureState) artifactHasStatus(path, status string) error {
	for _, outcome := range s.verification.Outcomes {
		if outcome.Path == path {
			if string(outcome.Status) != status {
				return fmt.Errorf("expected %s to be %s, got %s", path, status, outcome.Status)
			}
			return nil
		}
	}
	return fmt.Errorf("no outcome for %s", path)
}

func (s *featureState) thereAreArtifactsWithStatus(count int, status string) error {
	if got := len(s.verification.Paths(golden.Status(status))); got != count {
		return fmt.Errorf("expected %d %s artifacts, got %d", count, status, got)
	}
	return nil
}

func (s *featureState) verificationDidNotPass() error {
	if s.verification.Passed {
		return fmt.Errorf("expected verification to fail")
	}
	return nil
}

func (s *featureState) verificationPassed() error {
	if !s.verification.Passed {
		return fmt.Errorf("expected verification to pass, got %+v", s.verification.Outcomes)
	}
	return nil
}
