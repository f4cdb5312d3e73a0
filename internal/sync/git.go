package sync

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"time"
)

// DefaultExportFile is the file name used when a destination has none.
const DefaultExportFile = "sessions.jsonl"

// GitDestination writes the session export to a file in a git repo,
// commits and pushes.
type GitDestination struct {
	repo   string // path to the local clone
	file   string // file path within the repo
	branch string // branch to commit and push to
	output io.Writer
}

// NewGitDestination creates a git destination. repo is the path to an
// existing local clone with an origin remote.
func NewGitDestination(repo, file, branch string) *GitDestination {
	if file == "" {
		file = DefaultExportFile
	}
	if branch == "" {
		branch = "main"
	}
	return &GitDestination{
		repo:   repo,
		file:   file,
		branch: branch,
		output: os.Stderr,
	}
}

// Name returns the repo-relative target path.
func (d *GitDestination) Name() string {
	return "git:" + filepath.Join(d.repo, d.file) + "@" + d.branch
}

// Write writes data to the configured file, commits, and pushes. Writing
// unchanged data makes no commit.
func (d *GitDestination) Write(ctx context.Context, data []byte) error {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return fmt.Errorf("git checkout: %w", err)
	}

	// The remote might not have the branch yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	filePath := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(filePath), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(filePath, data, 0o644); err != nil {
		return fmt.Errorf("write file: %w", err)
	}

	if err := d.git(ctx, "add", d.file); err != nil {
		return fmt.Errorf("git add: %w", err)
	}

	// diff --quiet exits 0 when nothing is staged.
	if err := d.git(ctx, "diff", "--cached", "--quiet"); err == nil {
		return nil
	}

	msg := "dojolog: export training log " + time.Now().UTC().Format("2006-01-02")
	if err := d.git(ctx, "commit", "-m", msg); err != nil {
		return fmt.Errorf("git commit: %w", err)
	}

	if err := d.git(ctx, "push", "origin", d.branch); err != nil {
		return fmt.Errorf("git push: %w", err)
	}
	return nil
}

func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	cmd.Stdout = d.output
	cmd.Stderr = d.output
	return cmd.Run()
}
