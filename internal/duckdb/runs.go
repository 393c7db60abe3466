package duckdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"docpilot/internal/budget"
	"docpilot/internal/canonical"
	"docpilot/internal/snapshot"
)

// RunRecord is one finished run as stored in the runs table.
type RunRecord struct {
	RunID          string
	Product        string
	GitRef         string
	ConfigHash     string
	Profile        string
	RunState       string
	FailureReason  string
	FailureMessage string
	FixAttempts    int
	MaxFixAttempts int
	Events         int64
	ReportHash     string
	IssueCounts    map[string]int
	FinishedAt     time.Time
	Budgets        []budget.Usage
}

// RunRecordFrom flattens a run's final snapshot and budget usage.
func RunRecordFrom(snap snapshot.Snapshot, usage budget.Summary) RunRecord {
	record := RunRecord{
		RunID:          snap.RunID,
		Product:        snap.Product,
		GitRef:         snap.GitRef,
		ConfigHash:     snap.ConfigHash,
		Profile:        snap.Profile,
		RunState:       string(snap.RunState),
		FixAttempts:    snap.FixAttempts,
		MaxFixAttempts: snap.MaxFixAttempts,
		Events:         snap.LastSeq,
		FinishedAt:     snap.UpdatedAt,
		Budgets:        usage.Budgets,
	}
	if snap.Failure != nil {
		record.FailureReason = snap.Failure.Reason
		record.FailureMessage = snap.Failure.Message
	}
	if snap.LastValidation != nil {
		record.ReportHash = snap.LastValidation.ReportHash
		record.IssueCounts = snap.LastValidation.Counts
	}
	return record
}

// UpsertRun stores a run and its budget rows. Ingesting the same run twice
// leaves one row per table key.
func UpsertRun(ctx context.Context, db *sql.DB, record RunRecord, now time.Time) error {
	if db == nil {
		return errors.New("duckdb: db is nil")
	}
	if strings.TrimSpace(record.RunID) == "" {
		return errors.New("duckdb: run id is required")
	}
	counts := "{}"
	if len(record.IssueCounts) > 0 {
		data, err := canonical.JSON(record.IssueCounts)
		if err != nil {
			return err
		}
		counts = string(data)
	}
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, product, git_ref, config_hash, profile, run_state, failure_reason,
		   failure_message, fix_attempts, max_fix_attempts, events, report_hash, issue_counts,
		   finished_at, ingested_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id) DO UPDATE SET
		   run_state = excluded.run_state,
		   failure_reason = excluded.failure_reason,
		   failure_message = excluded.failure_message,
		   fix_attempts = excluded.fix_attempts,
		   events = excluded.events,
		   report_hash = excluded.report_hash,
		   issue_counts = excluded.issue_counts,
		   finished_at = excluded.finished_at,
		   ingested_at = excluded.ingested_at`,
		record.RunID,
		record.Product,
		record.GitRef,
		nullableString(record.ConfigHash),
		nullableString(record.Profile),
		record.RunState,
		nullableString(record.FailureReason),
		nullableString(record.FailureMessage),
		record.FixAttempts,
		record.MaxFixAttempts,
		record.Events,
		nullableString(record.ReportHash),
		counts,
		nullableTime(record.FinishedAt),
		now.UTC(),
	); err != nil {
		return fmt.Errorf("upsert run: %w", err)
	}
	for _, row := range record.Budgets {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO run_budgets (run_id, budget, used, limit_value, ratio) VALUES (?, ?, ?, ?, ?)
			 ON CONFLICT (run_id, budget) DO UPDATE SET
			   used = excluded.used,
			   limit_value = excluded.limit_value,
			   ratio = excluded.ratio`,
			record.RunID, row.Budget, row.Used, row.Limit, row.Ratio,
		); err != nil {
			return fmt.Errorf("insert run budget %s: %w", row.Budget, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// RunFilter narrows ListRuns. Empty fields match everything.
type RunFilter struct {
	Product string
	GitRef  string
	State   string
	Limit   int
}

// RunRow is a runs table row as listed by history.
type RunRow struct {
	RunID         string
	Product       string
	GitRef        string
	RunState      string
	FailureReason string
	FixAttempts   int
	Events        int64
	FinishedAt    time.Time
}

// ListRuns returns matching runs, newest run ID first.
func ListRuns(ctx context.Context, db *sql.DB, filter RunFilter) ([]RunRow, error) {
	if db == nil {
		return nil, errors.New("duckdb: db is nil")
	}
	var where []string
	var args []any
	for _, cond := range []struct {
		column string
		value  string
	}{
		{"product", filter.Product},
		{"git_ref", filter.GitRef},
		{"run_state", filter.State},
	} {
		if cond.value == "" {
			continue
		}
		where = append(where, cond.column+" = ?")
		args = append(args, cond.value)
	}
	query := `SELECT run_id, product, git_ref, run_state, COALESCE(failure_reason, ''), fix_attempts, events, finished_at
		FROM runs`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY run_id DESC"
	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
	}
	rows, err := db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	var out []RunRow
	for rows.Next() {
		var row RunRow
		var finished sql.NullTime
		if err := rows.Scan(&row.RunID, &row.Product, &row.GitRef, &row.RunState, &row.FailureReason,
			&row.FixAttempts, &row.Events, &finished); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		if finished.Valid {
			row.FinishedAt = finished.Time
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

// RunBudgets returns the stored budget rows of one run in budget order.
func RunBudgets(ctx context.Context, db *sql.DB, runID string) ([]budget.Usage, error) {
	rows, err := db.QueryContext(ctx,
		`SELECT budget, used, limit_value, ratio FROM run_budgets WHERE run_id = ? ORDER BY budget`, runID)
	if err != nil {
		return nil, fmt.Errorf("list run budgets: %w", err)
	}
	defer rows.Close()
	var out []budget.Usage
	for rows.Next() {
		var row budget.Usage
		if err := rows.Scan(&row.Budget, &row.Used, &row.Limit, &row.Ratio); err != nil {
			return nil, fmt.Errorf("scan run budget: %w", err)
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
