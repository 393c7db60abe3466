package stages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"docpilot/internal/rundir"
)

// ExitNotReady is the exit status a stage command uses to decline running.
const ExitNotReady = 75

// Environment passed to collaborator commands.
const (
	EnvRunID        = "DOCPILOT_RUN_ID"
	EnvRunDir       = "DOCPILOT_RUN_DIR"
	EnvStage        = "DOCPILOT_STAGE"
	EnvArtifactsDir = "DOCPILOT_ARTIFACTS_DIR"
	EnvWorkDir      = "DOCPILOT_WORK_DIR"
	EnvSourceRepo   = "DOCPILOT_SOURCE_REPO"
	EnvGitRef       = "DOCPILOT_GIT_REF"
	EnvUpstream     = "DOCPILOT_UPSTREAM"
	EnvResultFile   = "DOCPILOT_RESULT_FILE"
	EnvIssueFile    = "DOCPILOT_ISSUE_FILE"
	EnvAttempt      = "DOCPILOT_FIX_ATTEMPT"
)

// ErrCommandFailed wraps a non-zero exit of a collaborator command.
var ErrCommandFailed = errors.New("command failed")

type shellCommand struct {
	command string
	dir     string
	env     []string
	logPath string
}

// run executes the command through sh, appending its output to logPath.
// The returned exit code is -1 when the process did not start or was killed.
func (c shellCommand) run(ctx context.Context) (int, error) {
	if strings.TrimSpace(c.command) == "" {
		return -1, fmt.Errorf("command is empty")
	}
	cmd := exec.CommandContext(ctx, "sh", "-c", c.command)
	cmd.Dir = c.dir
	cmd.Env = append(os.Environ(), c.env...)
	if c.logPath != "" {
		if err := os.MkdirAll(filepath.Dir(c.logPath), 0o755); err != nil {
			return -1, err
		}
		logFile, err := os.OpenFile(c.logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return -1, err
		}
		defer logFile.Close()
		cmd.Stdout = logFile
		cmd.Stderr = logFile
	}
	err := cmd.Run()
	if err == nil {
		return 0, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return -1, ctxErr
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		code := exitErr.ExitCode()
		return code, fmt.Errorf("%w: %q exited with status %d", ErrCommandFailed, c.command, code)
	}
	return -1, fmt.Errorf("%w: %q: %v", ErrCommandFailed, c.command, err)
}

func baseEnv(runID string, layout rundir.Layout) []string {
	return []string{
		EnvRunID + "=" + runID,
		EnvRunDir + "=" + layout.Dir(),
		EnvArtifactsDir + "=" + layout.ArtifactsDir(),
		EnvWorkDir + "=" + layout.WorkDir(),
	}
}

// readJSONFile decodes path into v. A missing file reports false.
func readJSONFile(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	if strings.TrimSpace(string(data)) == "" {
		return false, nil
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}
	return true, nil
}

// scratchFile returns a path under the logs dir, removing any stale copy.
func scratchFile(layout rundir.Layout, name string) (string, error) {
	path := filepath.Join(layout.LogsDir(), name)
	if err := os.MkdirAll(layout.LogsDir(), 0o755); err != nil {
		return "", err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return "", err
	}
	return path, nil
}
