package runner

import (
	"os"
	"path/filepath"
	"testing"

	"docpilot/internal/eventlog"
	"docpilot/internal/snapshot"
	"docpilot/internal/testutil"
)

func TestReplayDetectsDriftAndRebuilds(t *testing.T) {
	result, err := Run(testutil.Context(t, 0), RunParams{Config: testConfig(t), Deps: testDeps(testutil.NewFakeClock(testStart))})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	tampered := result.Snapshot
	tampered.FixAttempts = 9
	if err := snapshot.Save(snapshot.PathFor(result.RunDir), tampered); err != nil {
		t.Fatalf("save: %v", err)
	}

	replayed, err := Replay(result.RunDir)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed.Consistent() || len(replayed.Drift) != 1 || replayed.Drift[0] != "fix_attempts" {
		t.Fatalf("expected fix_attempts drift, got %v", replayed.Drift)
	}

	if _, err := Rebuild(result.RunDir); err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	replayed, err = Replay(result.RunDir)
	if err != nil {
		t.Fatalf("replay after rebuild: %v", err)
	}
	if !replayed.Consistent() {
		t.Fatalf("expected consistent snapshot after rebuild, drift %v", replayed.Drift)
	}
}

func TestReplayWithoutSnapshot(t *testing.T) {
	result, err := Run(testutil.Context(t, 0), RunParams{Config: testConfig(t), Deps: testDeps(testutil.NewFakeClock(testStart))})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if err := os.Remove(snapshot.PathFor(result.RunDir)); err != nil {
		t.Fatalf("remove: %v", err)
	}
	replayed, err := Replay(result.RunDir)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed.Persisted != nil || replayed.Consistent() {
		t.Fatalf("expected missing snapshot to be reported")
	}
	if replayed.Rebuilt.RunState != result.Snapshot.RunState {
		t.Fatalf("unexpected rebuilt state %s", replayed.Rebuilt.RunState)
	}
}

func TestReplayToleratesTornTail(t *testing.T) {
	result, err := Run(testutil.Context(t, 0), RunParams{Config: testConfig(t), Deps: testDeps(testutil.NewFakeClock(testStart))})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	file, err := os.OpenFile(filepath.Join(result.RunDir, eventlog.FileName), os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := file.WriteString(`{"event_id":"x","seq":`); err != nil {
		t.Fatalf("write: %v", err)
	}
	file.Close()

	replayed, err := Replay(result.RunDir)
	if err != nil {
		t.Fatalf("replay: %v", err)
	}
	if replayed.Warning == nil {
		t.Fatalf("expected a torn-tail warning")
	}
	if !replayed.Consistent() {
		t.Fatalf("expected valid prefix to match, drift %v", replayed.Drift)
	}
}
