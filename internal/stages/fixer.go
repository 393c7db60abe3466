package stages

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// CommandFixer runs the configured fixer command. The selected issue is
// written to $DOCPILOT_ISSUE_FILE and the command answers with a JSON
// Proposal in $DOCPILOT_RESULT_FILE.
type CommandFixer struct {
	Command string
}

func (f CommandFixer) Propose(ctx context.Context, req FixRequest) (Proposal, error) {
	issuePath, err := scratchFile(req.Layout, fmt.Sprintf("fix-%d.issue.json", req.Attempt))
	if err != nil {
		return Proposal{}, err
	}
	data, err := json.MarshalIndent(req.Issue, "", "  ")
	if err != nil {
		return Proposal{}, err
	}
	if err := os.WriteFile(issuePath, data, 0o644); err != nil {
		return Proposal{}, err
	}
	resultPath, err := scratchFile(req.Layout, fmt.Sprintf("fix-%d.proposal.json", req.Attempt))
	if err != nil {
		return Proposal{}, err
	}
	env := append(baseEnv(req.RunID, req.Layout),
		EnvIssueFile+"="+issuePath,
		EnvResultFile+"="+resultPath,
		EnvAttempt+"="+strconv.Itoa(req.Attempt),
	)
	if _, err := (shellCommand{
		command: f.Command,
		dir:     req.Layout.Dir(),
		env:     env,
		logPath: filepath.Join(req.Layout.LogsDir(), "fixer.log"),
	}).run(ctx); err != nil {
		return Proposal{}, err
	}
	var proposal Proposal
	found, err := readJSONFile(resultPath, &proposal)
	if err != nil {
		return Proposal{}, err
	}
	if !found {
		return Proposal{}, fmt.Errorf("fixer wrote no proposal")
	}
	for i, edit := range proposal.Edits {
		clean, err := CleanWorkPath(edit.Path)
		if err != nil {
			return Proposal{}, fmt.Errorf("edit %d: %w", i, err)
		}
		proposal.Edits[i].Path = clean
	}
	return proposal, nil
}

// CleanWorkPath validates a slash-separated path relative to the work tree.
func CleanWorkPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is required")
	}
	if filepath.IsAbs(trimmed) || strings.HasPrefix(trimmed, "/") {
		return "", fmt.Errorf("path %q must be relative to the work tree", path)
	}
	native := filepath.Clean(filepath.FromSlash(trimmed))
	if !filepath.IsLocal(native) || native == "." {
		return "", fmt.Errorf("path %q escapes the work tree", path)
	}
	return filepath.ToSlash(native), nil
}
