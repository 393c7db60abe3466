package rundir

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLayoutPaths(t *testing.T) {
	layout, err := New("/tmp/runs", "run-1")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if layout.Dir() != filepath.Join("/tmp/runs", "run-1") {
		t.Fatalf("unexpected dir %s", layout.Dir())
	}
	if layout.EventsPath() != filepath.Join("/tmp/runs", "run-1", "events.jsonl") {
		t.Fatalf("unexpected events path %s", layout.EventsPath())
	}
	if layout.ReportPath() != filepath.Join("/tmp/runs", "run-1", "validation_report.json") {
		t.Fatalf("unexpected report path %s", layout.ReportPath())
	}
}

func TestLayoutErrors(t *testing.T) {
	cases := []struct{ root, runID string }{
		{"", "run"},
		{"/tmp", ""},
		{"/tmp", "a/b"},
		{"/tmp", ".."},
	}
	for _, tc := range cases {
		if _, err := New(tc.root, tc.runID); err == nil {
			t.Fatalf("expected error for %q %q", tc.root, tc.runID)
		}
	}
}

func TestCreateAndOpen(t *testing.T) {
	layout, err := New(t.TempDir(), "run-1")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if err := layout.Create(); err != nil {
		t.Fatalf("create: %v", err)
	}
	for _, dir := range []string{layout.ArtifactsDir(), layout.WorkDir(), layout.LogsDir()} {
		if info, err := os.Stat(dir); err != nil || !info.IsDir() {
			t.Fatalf("expected %s to exist", dir)
		}
	}
	if err := os.WriteFile(layout.EventsPath(), []byte("{}\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := layout.Create(); err == nil {
		t.Fatalf("expected error creating an existing run")
	}
	opened, err := Open(layout.Dir())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if opened.RunID != "run-1" || opened.EventsPath() != layout.EventsPath() {
		t.Fatalf("unexpected opened layout %+v", opened)
	}
}
