package duckdb_test

import (
	"testing"
	"time"

	"docpilot/internal/budget"
	"docpilot/internal/duckdb"
	"docpilot/internal/runstate"
	"docpilot/internal/snapshot"
)

var ingestTime = time.Date(2025, 2, 3, 4, 5, 6, 0, time.UTC)

func sampleSnapshot(runID string, state runstate.State) snapshot.Snapshot {
	snap := snapshot.Snapshot{
		RunID:          runID,
		RunState:       state,
		Product:        "docs",
		GitRef:         "main",
		ConfigHash:     "abc123",
		Profile:        "ci",
		FixAttempts:    1,
		MaxFixAttempts: 2,
		LastValidation: &snapshot.ValidationSummary{Pass: 2, Passed: true, Counts: map[string]int{"warn": 1}, ReportHash: "feed"},
		LastSeq:        17,
		UpdatedAt:      ingestTime.Add(-time.Minute),
	}
	if state == runstate.Failed {
		snap.Failure = &snapshot.Failure{Reason: snapshot.ReasonAttemptsExceeded, Message: "still broken"}
	}
	return snap
}

func sampleUsage() budget.Summary {
	return budget.Summary{Budgets: []budget.Usage{
		{Budget: budget.LLMCalls, Used: 3, Limit: 10, Ratio: 0.3},
		{Budget: budget.FileWrites, Used: 1, Limit: 4, Ratio: 0.25},
	}}
}

func TestRunRecordFrom(t *testing.T) {
	record := duckdb.RunRecordFrom(sampleSnapshot("r1", runstate.Failed), sampleUsage())
	if record.FailureReason != snapshot.ReasonAttemptsExceeded || record.ReportHash != "feed" {
		t.Fatalf("unexpected record: %+v", record)
	}
	if record.RunState != "FAILED" || record.Events != 17 || len(record.Budgets) != 2 {
		t.Fatalf("unexpected record: %+v", record)
	}
}

func TestUpsertRunIsIdempotent(t *testing.T) {
	db, ctx := openTestDB(t)
	record := duckdb.RunRecordFrom(sampleSnapshot("r1", runstate.Done), sampleUsage())
	for i := 0; i < 2; i++ {
		if err := duckdb.UpsertRun(ctx, db, record, ingestTime); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}
	if got := queryInt(t, ctx, db, "SELECT COUNT(*) FROM runs"); got != 1 {
		t.Fatalf("expected 1 run row, got %d", got)
	}
	if got := queryInt(t, ctx, db, "SELECT COUNT(*) FROM run_budgets WHERE run_id = 'r1'"); got != 2 {
		t.Fatalf("expected 2 budget rows, got %d", got)
	}

	record.FixAttempts = 2
	record.Budgets = []budget.Usage{{Budget: budget.LLMCalls, Used: 5, Limit: 10, Ratio: 0.5}}
	if err := duckdb.UpsertRun(ctx, db, record, ingestTime); err != nil {
		t.Fatalf("update: %v", err)
	}
	if got := queryInt(t, ctx, db, "SELECT fix_attempts FROM runs WHERE run_id = 'r1'"); got != 2 {
		t.Fatalf("expected updated fix attempts, got %d", got)
	}
	budgets, err := duckdb.RunBudgets(ctx, db, "r1")
	if err != nil {
		t.Fatalf("budgets: %v", err)
	}
	if len(budgets) != 2 || budgets[1].Budget != budget.LLMCalls || budgets[1].Used != 5 {
		t.Fatalf("unexpected budgets: %+v", budgets)
	}
}

func TestUpsertRunRequiresID(t *testing.T) {
	db, ctx := openTestDB(t)
	if err := duckdb.UpsertRun(ctx, db, duckdb.RunRecord{}, ingestTime); err == nil {
		t.Fatalf("expected missing run id error")
	}
}

func TestListRunsFiltersAndOrders(t *testing.T) {
	db, ctx := openTestDB(t)
	records := []duckdb.RunRecord{
		duckdb.RunRecordFrom(sampleSnapshot("20250101T000000Z-a", runstate.Done), sampleUsage()),
		duckdb.RunRecordFrom(sampleSnapshot("20250102T000000Z-b", runstate.Failed), sampleUsage()),
		duckdb.RunRecordFrom(sampleSnapshot("20250103T000000Z-c", runstate.Done), sampleUsage()),
	}
	other := duckdb.RunRecordFrom(sampleSnapshot("20250104T000000Z-d", runstate.Done), sampleUsage())
	other.Product = "api"
	records = append(records, other)
	for _, record := range records {
		if err := duckdb.UpsertRun(ctx, db, record, ingestTime); err != nil {
			t.Fatalf("upsert %s: %v", record.RunID, err)
		}
	}

	rows, err := duckdb.ListRuns(ctx, db, duckdb.RunFilter{Product: "docs"})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(rows) != 3 || rows[0].RunID != "20250103T000000Z-c" || rows[2].RunID != "20250101T000000Z-a" {
		t.Fatalf("unexpected rows: %+v", rows)
	}
	if rows[1].FailureReason != snapshot.ReasonAttemptsExceeded {
		t.Fatalf("expected failure reason on failed run, got %q", rows[1].FailureReason)
	}
	if !rows[0].FinishedAt.Equal(ingestTime.Add(-time.Minute)) {
		t.Fatalf("unexpected finished_at %v", rows[0].FinishedAt)
	}

	failed, err := duckdb.ListRuns(ctx, db, duckdb.RunFilter{Product: "docs", State: "FAILED"})
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(failed) != 1 {
		t.Fatalf("expected 1 failed run, got %d", len(failed))
	}
	limited, err := duckdb.ListRuns(ctx, db, duckdb.RunFilter{Limit: 2})
	if err != nil {
		t.Fatalf("list limited: %v", err)
	}
	if len(limited) != 2 || limited[0].Product != "api" {
		t.Fatalf("unexpected limited rows: %+v", limited)
	}

	if got := queryInt(t, ctx, db, "SELECT failed FROM v_product_health WHERE product = 'docs'"); got != 1 {
		t.Fatalf("expected 1 failed run in health view, got %d", got)
	}
}
