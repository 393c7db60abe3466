package cli

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestHistoryListsWarehouseRunsAndRegressions(t *testing.T) {
	stubEnvironment(t)
	configPath := writeConfig(t, "gates:\n", "warehouse:\n  path: warehouse.duckdb\ngates:\n")

	code, stdout, stderr := runCLI("run", "--config", configPath, "--ui", "plain")
	if code != ExitOK {
		t.Fatalf("run: expected exit %d, got %d (stderr %q)", ExitOK, code, stderr)
	}
	runDir := runDirFrom(t, stdout)
	runID := filepath.Base(runDir)

	code, stdout, stderr = runCLI("history", "--config", configPath)
	if code != ExitOK {
		t.Fatalf("history: expected exit %d, got %d (stderr %q)", ExitOK, code, stderr)
	}
	if !strings.Contains(stdout, runID) || !strings.Contains(stdout, "DONE") {
		t.Fatalf("expected run in history, got %q", stdout)
	}

	code, stdout, _ = runCLI("history", "--config", configPath, "--state", "FAILED")
	if code != ExitOK || !strings.Contains(stdout, "No runs recorded") {
		t.Fatalf("expected empty filtered history, got %d %q", code, stdout)
	}

	if code, _, stderr := runCLI("golden", "capture", "--config", configPath, "--run", runDir); code != ExitOK {
		t.Fatalf("capture failed: %q", stderr)
	}
	if code, _, stderr := runCLI("regress", "--config", configPath, "--run", runDir); code != ExitOK {
		t.Fatalf("regress failed: %q", stderr)
	}
	code, stdout, _ = runCLI("history", "--config", configPath, "--regressions")
	if code != ExitOK {
		t.Fatalf("expected exit %d, got %d", ExitOK, code)
	}
	if !strings.Contains(stdout, runID) || !strings.Contains(stdout, "pass") {
		t.Fatalf("expected regression row, got %q", stdout)
	}
}

func TestHistoryRequiresWarehouse(t *testing.T) {
	code, _, stderr := runCLI("history", "--config", writeConfig(t))
	if code != ExitError {
		t.Fatalf("expected exit %d, got %d", ExitError, code)
	}
	if !strings.Contains(stderr, "No warehouse configured") {
		t.Fatalf("unexpected stderr %q", stderr)
	}
}
