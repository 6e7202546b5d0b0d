package vcs

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/oshokin/update-packager/internal/logger"
)

// exitCodeDiffFound is the status of `git diff --quiet` when there are differences.
const exitCodeDiffFound = 1

// CLI implements Client by running the git executable.
type CLI struct {
	// binary is the git executable name or path.
	binary string
	// remote is the push remote; empty pushes to the upstream.
	remote string
	// branch is the pushed branch; empty pushes the current branch.
	branch string
}

// NewCLI returns a Client that runs binary (default "git").
func NewCLI(binary, remote, branch string) *CLI {
	if binary == "" {
		binary = "git"
	}

	return &CLI{
		binary: binary,
		remote: remote,
		branch: branch,
	}
}

// ListStagedFiles runs `git diff --cached --name-only` in root.
// Paths are NUL-separated on the wire so unusual names survive unquoted.
func (c *CLI) ListStagedFiles(ctx context.Context, root string) ([]string, error) {
	out, err := c.run(ctx, root, "diff", "--cached", "--name-only", "--relative", "-z")
	if err != nil {
		return nil, err
	}

	var files []string

	for _, name := range strings.Split(string(out), "\x00") {
		if name != "" {
			files = append(files, name)
		}
	}

	return files, nil
}

// IsRepository compares the top level reported by git with path.
func (c *CLI) IsRepository(ctx context.Context, path string) (bool, error) {
	out, err := c.run(ctx, path, "rev-parse", "--show-toplevel")
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return false, nil
		}

		return false, err
	}

	topLevel := filepath.FromSlash(strings.TrimSpace(string(out)))

	return samePath(topLevel, path), nil
}

// StageAll runs `git add --all .` in dir.
func (c *CLI) StageAll(ctx context.Context, dir string) error {
	_, err := c.run(ctx, dir, "add", "--all", ".")

	return err
}

// HasStagedChanges runs `git diff --cached --quiet` in dir.
func (c *CLI) HasStagedChanges(ctx context.Context, dir string) (bool, error) {
	_, err := c.run(ctx, dir, "diff", "--cached", "--quiet")
	if err == nil {
		return false, nil
	}

	var exitErr *ExitError
	if errors.As(err, &exitErr) && exitErr.Code == exitCodeDiffFound {
		return true, nil
	}

	return false, err
}

// CommitAndPush runs `git commit -m message` and `git push` in dir.
func (c *CLI) CommitAndPush(ctx context.Context, dir, message string) error {
	if _, err := c.run(ctx, dir, "commit", "--quiet", "-m", message); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	args := []string{"push"}
	if c.remote != "" {
		args = append(args, c.remote)

		if c.branch != "" {
			args = append(args, c.branch)
		}
	}

	if _, err := c.run(ctx, dir, args...); err != nil {
		return fmt.Errorf("push: %w", err)
	}

	return nil
}

// run executes git with args in dir and returns its standard output.
func (c *CLI) run(ctx context.Context, dir string, args ...string) ([]byte, error) {
	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, c.binary, args...)
	cmd.Dir = dir
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	logger.DebugKV(ctx, "Running git", "dir", dir, "args", args)

	err := cmd.Run()
	if err == nil {
		return stdout.Bytes(), nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return nil, &ExitError{
			Args:   args,
			Code:   exitErr.ExitCode(),
			Stderr: strings.TrimSpace(stderr.String()),
		}
	}

	if errors.Is(err, exec.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, c.binary)
	}

	// An absolute binary path that does not exist fails at fork/exec,
	// a missing dir fails at chdir.
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) && pathErr.Op != "chdir" && errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrToolMissing, c.binary)
	}

	return nil, fmt.Errorf("run git %s: %w", strings.Join(args, " "), err)
}
