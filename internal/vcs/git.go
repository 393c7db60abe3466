// Package vcs reads just enough git state to stamp runs with their source.
package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// Source identifies the content a run was generated from.
type Source struct {
	Root   string
	Ref    string
	Commit string
	Dirty  bool
}

// ShortCommit returns the first n characters of the commit, or of the ref
// when the commit is unknown.
func (s Source) ShortCommit(n int) string {
	value := s.Commit
	if value == "" {
		value = s.Ref
	}
	if len(value) > n {
		return value[:n]
	}
	return value
}

// gitRunner executes git commands.
type gitRunner interface {
	Run(ctx context.Context, dir string, args ...string) (string, error)
}

// execGitRunner invokes git via the system binary.
type execGitRunner struct{}

// Run executes a git command and returns trimmed stdout.
func (execGitRunner) Run(ctx context.Context, dir string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = dir
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = "no stderr"
		}
		return "", fmt.Errorf("git %s: %w (%s)", strings.Join(args, " "), err, msg)
	}
	return strings.TrimSpace(stdout.String()), nil
}

// Client coordinates git operations and allows dependency injection.
type Client struct {
	runner gitRunner
}

// NewClient constructs a git client with an optional runner override.
func NewClient(runner gitRunner) Client {
	if runner == nil {
		runner = execGitRunner{}
	}
	return Client{runner: runner}
}

var defaultClient = NewClient(nil)

// Describe resolves ref inside the repository containing dir.
func Describe(ctx context.Context, dir, ref string) (Source, error) {
	return defaultClient.Describe(ctx, dir, ref)
}

// DescribeOrLiteral falls back to the literal ref when dir is not a git
// checkout or git is unavailable.
func DescribeOrLiteral(ctx context.Context, dir, ref string) Source {
	return defaultClient.DescribeOrLiteral(ctx, dir, ref)
}

// DiscoverRepoRoot resolves the git root for a starting directory.
func (c Client) DiscoverRepoRoot(ctx context.Context, startDir string) (string, error) {
	dir := strings.TrimSpace(startDir)
	if dir == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", fmt.Errorf("get working directory: %w", err)
		}
		dir = wd
	}
	root, err := c.runner.Run(ctx, dir, "rev-parse", "--show-toplevel")
	if err != nil {
		return "", fmt.Errorf("discover git root: %w", err)
	}
	return root, nil
}

// ResolveRef returns the commit a ref points at.
func (c Client) ResolveRef(ctx context.Context, repoRoot, ref string) (string, error) {
	if strings.TrimSpace(ref) == "" {
		return "", fmt.Errorf("ref is empty")
	}
	commit, err := c.runner.Run(ctx, repoRoot, "rev-parse", "--verify", ref+"^{commit}")
	if err != nil {
		return "", fmt.Errorf("resolve ref %q: %w", ref, err)
	}
	return commit, nil
}

// Describe resolves ref and the dirty state of the working tree.
func (c Client) Describe(ctx context.Context, dir, ref string) (Source, error) {
	root, err := c.DiscoverRepoRoot(ctx, dir)
	if err != nil {
		return Source{}, err
	}
	commit, err := c.ResolveRef(ctx, root, ref)
	if err != nil {
		return Source{}, err
	}
	status, err := c.runner.Run(ctx, root, "status", "--porcelain")
	if err != nil {
		return Source{}, fmt.Errorf("check dirty state: %w", err)
	}
	return Source{
		Root:   root,
		Ref:    ref,
		Commit: commit,
		Dirty:  strings.TrimSpace(status) != "",
	}, nil
}

// DescribeOrLiteral is Describe with a literal fallback.
func (c Client) DescribeOrLiteral(ctx context.Context, dir, ref string) Source {
	source, err := c.Describe(ctx, dir, ref)
	if err != nil {
		return Source{Root: dir, Ref: ref}
	}
	return source
}
