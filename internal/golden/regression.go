package golden

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"docpilot/internal/canonical"
	"docpilot/internal/fsutil"
	"docpilot/internal/logging"
)

// RegressionReportFileName is written into the candidate run directory.
const RegressionReportFileName = "regression_report.json"

// RegressionRequest selects the candidate and, optionally, the reference.
type RegressionRequest struct {
	RunDir         string
	CandidateRunID string
	Product        string
	GitRef         string
	// GoldenRunID pins the reference; empty means the latest capture.
	GoldenRunID string
}

// RegressionReport is the CI-facing result of a regression check.
type RegressionReport struct {
	Product         string            `json:"product"`
	GitRef          string            `json:"git_ref"`
	GoldenRunID     string            `json:"golden_run_id"`
	CandidateRunID  string            `json:"candidate_run_id"`
	Passed          bool              `json:"passed"`
	ContentMismatch []string          `json:"content_mismatch"`
	Missing         []string          `json:"missing"`
	Unexpected      []string          `json:"unexpected"`
	Outcomes        []ArtifactOutcome `json:"outcomes"`
	GeneratedAt     time.Time         `json:"generated_at"`
}

// Checker locates a reference run and verifies candidates against it.
type Checker struct {
	Store  *Store
	Roots  []string
	Now    func() time.Time
	Logger *slog.Logger
}

// Check fails with ErrGoldenRunNotFound when no reference exists.
func (c *Checker) Check(req RegressionRequest) (RegressionReport, error) {
	if c.Store == nil {
		return RegressionReport{}, errors.New("golden store is required")
	}
	key := Key{Product: req.Product, GitRef: req.GitRef}
	var (
		reference Metadata
		err       error
	)
	if req.GoldenRunID != "" {
		reference, err = c.Store.Load(key, req.GoldenRunID)
	} else {
		reference, err = c.Store.Latest(key)
	}
	if err != nil {
		return RegressionReport{}, err
	}
	verification, err := VerifyRun(reference, req.RunDir, c.Roots)
	if err != nil {
		return RegressionReport{}, fmt.Errorf("verify %s: %w", req.RunDir, err)
	}
	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	report := RegressionReport{
		Product:         req.Product,
		GitRef:          req.GitRef,
		GoldenRunID:     reference.RunID,
		CandidateRunID:  req.CandidateRunID,
		Passed:          verification.Passed,
		ContentMismatch: nonNil(verification.Paths(StatusContentMismatch)),
		Missing:         nonNil(verification.Paths(StatusMissing)),
		Unexpected:      nonNil(verification.Paths(StatusUnexpected)),
		Outcomes:        verification.Outcomes,
		GeneratedAt:     now().UTC(),
	}
	logging.OrDiscard(c.Logger).Info("regression check",
		"product", req.Product,
		"git_ref", req.GitRef,
		"golden_run_id", reference.RunID,
		"passed", report.Passed,
		"content_mismatch", len(report.ContentMismatch),
		"missing", len(report.Missing),
		"unexpected", len(report.Unexpected),
	)
	return report, nil
}

// WriteRegressionReport persists a report with sorted keys.
func WriteRegressionReport(path string, report RegressionReport) error {
	data, err := canonical.IndentJSON(report)
	if err != nil {
		return err
	}
	return fsutil.WriteFileAtomic(path, data)
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
