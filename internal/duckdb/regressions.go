package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"docpilot/internal/canonical"
	"docpilot/internal/golden"
)

// InsertRegression stores a regression report. The report's canonical
// fingerprint is its natural key, so re-ingesting the same report is a
// no-op that returns the existing ID.
func InsertRegression(ctx context.Context, db *sql.DB, report golden.RegressionReport) (string, error) {
	if db == nil {
		return "", errors.New("duckdb: db is nil")
	}
	data, err := canonical.JSON(report)
	if err != nil {
		return "", err
	}
	key := canonical.Digest(data)
	id := uuid.NewString()
	if _, err := db.ExecContext(ctx,
		`INSERT INTO regressions (regression_id, report_key, product, git_ref, golden_run_id, candidate_run_id,
		   passed, content_mismatch, missing, unexpected, report, generated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (report_key) DO NOTHING`,
		id,
		key,
		report.Product,
		report.GitRef,
		report.GoldenRunID,
		report.CandidateRunID,
		report.Passed,
		len(report.ContentMismatch),
		len(report.Missing),
		len(report.Unexpected),
		string(data),
		report.GeneratedAt.UTC(),
	); err != nil {
		return "", fmt.Errorf("insert regression: %w", err)
	}
	outID, err := lookupID(ctx, db, "regressions", "regression_id", "report_key", key)
	if err != nil {
		return "", fmt.Errorf("lookup regression id: %w", err)
	}
	return outID, nil
}

// RegressionRow summarizes one stored regression check.
type RegressionRow struct {
	RegressionID    string
	Product         string
	GitRef          string
	GoldenRunID     string
	CandidateRunID  string
	Passed          bool
	ContentMismatch int
	Missing         int
	Unexpected      int
	GeneratedAt     time.Time
}

// ListRegressions returns checks for product, newest first.
func ListRegressions(ctx context.Context, db *sql.DB, product string, limit int) ([]RegressionRow, error) {
	if db == nil {
		return nil, errors.New("duckdb: db is nil")
	}
	query := `SELECT regression_id, product, git_ref, golden_run_id, candidate_run_id, passed,
		content_mismatch, missing, unexpected, generated_at
		FROM regressions WHERE product = ? ORDER BY generated_at DESC, candidate_run_id DESC`
	if limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", limit)
	}
	rows, err := db.QueryContext(ctx, query, product)
	if err != nil {
		return nil, fmt.Errorf("list regressions: %w", err)
	}
	defer rows.Close()
	var out []RegressionRow
	for rows.Next() {
		var row RegressionRow
		if err := rows.Scan(&row.RegressionID, &row.Product, &row.GitRef, &row.GoldenRunID, &row.CandidateRunID,
			&row.Passed, &row.ContentMismatch, &row.Missing, &row.Unexpected, &row.GeneratedAt); err != nil {
			return nil, fmt.Errorf("scan regression: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
