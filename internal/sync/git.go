package sync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// GitDestination commits each backup to a file in a local clone and pushes
// it. A backup identical to the committed file makes no commit.
type GitDestination struct {
	repo   string
	file   string
	branch string
}

// NewGitDestination writes to file (relative to repo) on branch. repo must
// be an existing clone with an "origin" remote.
func NewGitDestination(repo, file, branch string) *GitDestination {
	return &GitDestination{repo: repo, file: file, branch: branch}
}

func (d *GitDestination) Name() string { return fmt.Sprintf("git:%s/%s@%s", d.repo, d.file, d.branch) }

func (d *GitDestination) Write(ctx context.Context, b Backup) error {
	if err := d.git(ctx, "checkout", d.branch); err != nil {
		return err
	}
	// The remote may not have the branch yet.
	_ = d.git(ctx, "pull", "--ff-only", "origin", d.branch)

	path := filepath.Join(d.repo, d.file)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	if err := os.WriteFile(path, b.Data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", d.file, err)
	}
	if err := d.git(ctx, "add", d.file); err != nil {
		return err
	}

	// Exit status 1 means there is something staged.
	err := d.git(ctx, "diff", "--cached", "--quiet")
	if err == nil {
		return nil
	}
	var exitErr *exec.ExitError
	if !errors.As(err, &exitErr) {
		return err
	}

	if err := d.git(ctx, "commit", "-m", commitMessage(b.Summary)); err != nil {
		return err
	}
	err = d.git(ctx, "push", "origin", d.branch)
	return err
}

func commitMessage(s Summary) string {
	return fmt.Sprintf("backup: %d questions, %d answered", s.Questions, s.Answered)
}

// git runs a git subcommand in the clone. Failures carry git's own output.
func (d *GitDestination) git(ctx context.Context, args ...string) error {
	cmd := exec.CommandContext(ctx, "git", args...)
	cmd.Dir = d.repo
	var out bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &out
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(out.String()))
	}
	return nil
}
