package golden

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"docpilot/internal/canonical"
	"docpilot/internal/testutil"
)

var captureTime = time.Date(2026, 4, 5, 6, 7, 8, 0, time.UTC)

func reportJSON(runDir, generatedAt string) string {
	return fmt.Sprintf(`{
  "run_id": %q,
  "generated_at": %q,
  "passed": false,
  "issues": [
    {"issue_id": "links-001", "severity": "blocker", "message": "broken link in %s/work/site/test.md",
     "location": {"path": "%s/work/site/test.md", "line": 3}}
  ]
}`, filepath.Base(runDir), generatedAt, runDir, runDir)
}

func TestNormalizationIgnoresRunDirAndTimestamps(t *testing.T) {
	tmp1 := t.TempDir()
	tmp2 := t.TempDir()
	a, err := NewNormalizer(tmp1).JSON([]byte(reportJSON(tmp1, "2026-01-01T00:00:00Z")))
	if err != nil {
		t.Fatalf("normalize a: %v", err)
	}
	b, err := NewNormalizer(tmp2).JSON([]byte(reportJSON(tmp2, "2026-06-30T23:59:59Z")))
	if err != nil {
		t.Fatalf("normalize b: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected identical normalized forms:\n%s\n%s", a, b)
	}
	if canonical.Digest(a) != canonical.Digest(b) {
		t.Fatalf("expected identical digests")
	}
	if strings.Contains(string(a), "generated_at") || strings.Contains(string(a), tmp1) {
		t.Fatalf("expected path and timestamp removed: %s", a)
	}
	if !strings.Contains(string(a), `"path":"work/site/test.md"`) {
		t.Fatalf("expected run-relative path kept: %s", a)
	}
}

func TestNormalizationIgnoresRunID(t *testing.T) {
	runsDir := t.TempDir()
	first := filepath.Join(runsDir, "20240506T070809Z-e9cccacd-abcdef0")
	second := filepath.Join(runsDir, "20240506T080000Z-e9cccacd-abcdef0")
	document := func(runDir string) string {
		return fmt.Sprintf(`{"run_id":%q,"source":{"run":%q},"passed":true}`, filepath.Base(runDir), filepath.Base(runDir))
	}
	a, err := NewNormalizer(first).JSON([]byte(document(first)))
	if err != nil {
		t.Fatalf("normalize a: %v", err)
	}
	b, err := NewNormalizer(second).JSON([]byte(document(second)))
	if err != nil {
		t.Fatalf("normalize b: %v", err)
	}
	if string(a) != string(b) {
		t.Fatalf("expected run ids neutralized:\n%s\n%s", a, b)
	}
	if strings.Contains(string(a), "20240506T") || !strings.Contains(string(a), RunIDPlaceholder) {
		t.Fatalf("unexpected normalized form %s", a)
	}
}

func TestNormalizationKeepsSiblingDirectories(t *testing.T) {
	runDir := filepath.Join(t.TempDir(), "runs", "X")
	n := NewNormalizer(runDir)
	sibling := runDir + "-abcdef0" + string(filepath.Separator) + "page.md"
	if got := n.String(sibling); got != sibling {
		t.Fatalf("sibling path rewritten to %q", got)
	}
	inside := runDir + string(filepath.Separator) + "work" + string(filepath.Separator) + "page.md"
	if got := n.String(inside); got != filepath.Join("work", "page.md") {
		t.Fatalf("expected run-relative path, got %q", got)
	}
	if got := n.String("see " + runDir); got != "see " {
		t.Fatalf("expected trailing run dir removed, got %q", got)
	}
}

func TestNormalizationKeepsRealDifferences(t *testing.T) {
	runDir := t.TempDir()
	n := NewNormalizer(runDir)
	a, _ := n.JSON([]byte(`{"message":"one","generated_at":"x"}`))
	b, _ := n.JSON([]byte(`{"message":"two","generated_at":"x"}`))
	if string(a) == string(b) {
		t.Fatalf("expected content differences to survive normalization")
	}
}

func TestHashRunMatchesAcrossRunDirectories(t *testing.T) {
	tmp1 := filepath.Join(t.TempDir(), "run-a")
	tmp2 := filepath.Join(t.TempDir(), "run-b")
	for i, dir := range []string{tmp1, tmp2} {
		testutil.WriteTree(t, dir, map[string]string{
			"artifacts/facts.json":   `{"facts":["a"],"timestamp":"` + fmt.Sprint(i) + `"}`,
			"work/site/index.md":     "# Index\n",
			"validation_report.json": reportJSON(dir, fmt.Sprintf("2026-01-0%dT00:00:00Z", i+1)),
			"events.jsonl":           fmt.Sprintf("{\"seq\":%d}\n", i),
		})
	}
	first, err := HashRun(tmp1, nil)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	second, err := HashRun(tmp2, nil)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	if len(first) != 3 {
		t.Fatalf("expected artifacts, pages and report hashed, got %v", first)
	}
	if _, ok := first["events.jsonl"]; ok {
		t.Fatalf("event log must not be part of the artifact set")
	}
	verification := Compare(first, second)
	if !verification.Passed {
		t.Fatalf("expected identical hashes, got %+v", verification.Outcomes)
	}
}

func TestCompareThreeWayClassification(t *testing.T) {
	golden := map[string]string{"a.md": "h1", "b.md": "h2"}
	candidate := map[string]string{"a.md": "h1", "c.md": "h3"}
	result := Compare(golden, candidate)
	if result.Passed {
		t.Fatalf("expected failure")
	}
	if got := result.Paths(StatusMissing); len(got) != 1 || got[0] != "b.md" {
		t.Fatalf("unexpected missing %v", got)
	}
	if got := result.Paths(StatusUnexpected); len(got) != 1 || got[0] != "c.md" {
		t.Fatalf("unexpected unexpected %v", got)
	}
	if got := result.Paths(StatusContentMismatch); len(got) != 0 {
		t.Fatalf("expected no content mismatch, got %v", got)
	}
	if len(result.Outcomes) != 3 || result.Outcomes[0].Status != StatusMatch {
		t.Fatalf("expected every artifact recorded, got %+v", result.Outcomes)
	}

	changed := Compare(golden, map[string]string{"a.md": "h9", "b.md": "h2"})
	if changed.Passed || len(changed.Paths(StatusContentMismatch)) != 1 {
		t.Fatalf("expected one content mismatch, got %+v", changed)
	}
}

func TestStoreLifecycle(t *testing.T) {
	store := NewStore(t.TempDir())
	key := Key{Product: "widgets", GitRef: "refs/heads/main"}
	if _, err := store.Latest(key); !errors.Is(err, ErrGoldenRunNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	for _, runID := range []string{"20260102T000000Z-aa-bb", "20260301T000000Z-aa-bb", "20260201T000000Z-aa-bb"} {
		path, err := store.Save(Metadata{RunID: runID, ProductName: key.Product, GitRef: key.GitRef,
			Artifacts: map[string]string{"a.md": runID}, CapturedAt: captureTime})
		if err != nil {
			t.Fatalf("save: %v", err)
		}
		if !strings.Contains(path, "refs%2Fheads%2Fmain") {
			t.Fatalf("expected escaped ref in %s", path)
		}
	}
	latest, err := store.Latest(key)
	if err != nil || latest.RunID != "20260301T000000Z-aa-bb" {
		t.Fatalf("unexpected latest %+v %v", latest, err)
	}
	all, err := store.ListAll()
	if err != nil || len(all) != 3 {
		t.Fatalf("unexpected list all %d %v", len(all), err)
	}
	if err := store.Delete(key, latest.RunID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := store.Delete(key, latest.RunID); !errors.Is(err, ErrGoldenRunNotFound) {
		t.Fatalf("expected not found on second delete, got %v", err)
	}
	latest, err = store.Latest(key)
	if err != nil || latest.RunID != "20260201T000000Z-aa-bb" {
		t.Fatalf("unexpected latest after delete %+v %v", latest, err)
	}
	if _, err := store.Save(Metadata{RunID: "x", ProductName: "../escape", GitRef: "main"}); err == nil {
		t.Fatalf("expected product validation error")
	}
}

func TestStoreRejectsRunIDsOutsideTheStore(t *testing.T) {
	root := filepath.Join(t.TempDir(), "golden")
	store := NewStore(root)
	key := Key{Product: "widgets", GitRef: "main"}
	outside := filepath.Join(root, "x.json")
	testutil.WriteTree(t, root, map[string]string{"x.json": "{}"})

	for _, runID := range []string{"../../x", `..\x`, ".."} {
		if err := store.Delete(key, runID); err == nil || errors.Is(err, ErrGoldenRunNotFound) {
			t.Fatalf("delete %q: expected validation error, got %v", runID, err)
		}
		if _, err := store.Load(key, runID); err == nil || errors.Is(err, ErrGoldenRunNotFound) {
			t.Fatalf("load %q: expected validation error, got %v", runID, err)
		}
	}
	if _, err := os.Stat(outside); err != nil {
		t.Fatalf("file outside the key directory was touched: %v", err)
	}
}

func TestListAllOnMissingRoot(t *testing.T) {
	runs, err := NewStore(filepath.Join(t.TempDir(), "absent")).ListAll()
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected empty list, got %v %v", runs, err)
	}
}

func TestRegressionChecker(t *testing.T) {
	store := NewStore(t.TempDir())
	golden := filepath.Join(t.TempDir(), "golden-run")
	testutil.WriteTree(t, golden, map[string]string{
		"artifacts/a.md": "alpha",
		"artifacts/b.md": "beta",
	})
	meta, err := Capture(CaptureRequest{RunDir: golden, RunID: "20260101T000000Z-1-2", Product: "widgets", GitRef: "main"}, captureTime)
	if err != nil {
		t.Fatalf("capture: %v", err)
	}
	if _, err := store.Save(meta); err != nil {
		t.Fatalf("save: %v", err)
	}

	candidate := filepath.Join(t.TempDir(), "candidate")
	testutil.WriteTree(t, candidate, map[string]string{
		"artifacts/a.md": "alpha",
		"artifacts/c.md": "gamma",
	})
	clock := testutil.NewFakeClock(captureTime.Add(time.Hour))
	checker := &Checker{Store: store, Now: clock.Now}
	report, err := checker.Check(RegressionRequest{RunDir: candidate, CandidateRunID: "cand", Product: "widgets", GitRef: "main"})
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if report.Passed || report.GoldenRunID != meta.RunID {
		t.Fatalf("unexpected report %+v", report)
	}
	if len(report.Missing) != 1 || report.Missing[0] != "artifacts/b.md" {
		t.Fatalf("unexpected missing %v", report.Missing)
	}
	if len(report.Unexpected) != 1 || report.Unexpected[0] != "artifacts/c.md" {
		t.Fatalf("unexpected unexpected %v", report.Unexpected)
	}
	if len(report.ContentMismatch) != 0 || !report.GeneratedAt.Equal(captureTime.Add(time.Hour)) {
		t.Fatalf("unexpected report %+v", report)
	}

	path := filepath.Join(candidate, RegressionReportFileName)
	if err := WriteRegressionReport(path, report); err != nil {
		t.Fatalf("write: %v", err)
	}
	if !strings.Contains(testutil.ReadFile(t, path), `"content_mismatch": []`) {
		t.Fatalf("expected empty category serialized as a list")
	}

	if _, err := checker.Check(RegressionRequest{RunDir: candidate, Product: "widgets", GitRef: "release"}); !errors.Is(err, ErrGoldenRunNotFound) {
		t.Fatalf("expected ErrGoldenRunNotFound, got %v", err)
	}
	if _, err := checker.Check(RegressionRequest{RunDir: candidate, Product: "widgets", GitRef: "main", GoldenRunID: "nope"}); !errors.Is(err, ErrGoldenRunNotFound) {
		t.Fatalf("expected ErrGoldenRunNotFound for pinned run, got %v", err)
	}
}
