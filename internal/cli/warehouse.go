package cli

import (
	"context"

	"docpilot/internal/duckdb"
	"docpilot/internal/golden"
	"docpilot/internal/runner"
)

// recordRun upserts a finished run into the DuckDB warehouse.
func recordRun(ctx context.Context, path string, result runner.Result) error {
	db, err := duckdb.Open(ctx, path)
	if err != nil {
		return err
	}
	defer db.Close()
	return duckdb.UpsertRun(ctx, db, duckdb.RunRecordFrom(result.Snapshot, result.Budget), now().UTC())
}

// recordRegression stores a regression report in the warehouse.
func recordRegression(ctx context.Context, path string, report golden.RegressionReport) (string, error) {
	db, err := duckdb.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer db.Close()
	return duckdb.InsertRegression(ctx, db, report)
}
