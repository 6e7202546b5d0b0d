package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// Client is the version-control contract consumed by the packager.
type Client interface {
	// ListStagedFiles returns the paths staged for commit, relative to root.
	ListStagedFiles(ctx context.Context, root string) ([]string, error)
	// IsRepository reports whether path is the top level of a working tree.
	IsRepository(ctx context.Context, path string) (bool, error)
	// StageAll stages every change in the working tree at dir.
	StageAll(ctx context.Context, dir string) error
	// HasStagedChanges reports whether the index differs from the last commit.
	HasStagedChanges(ctx context.Context, dir string) (bool, error)
	// CommitAndPush commits the index with message and pushes it.
	CommitAndPush(ctx context.Context, dir, message string) error
}

// ErrToolMissing reports that the git executable could not be started.
var ErrToolMissing = errors.New("git executable not found")

// ExitError reports a git command that ran and exited with a non-zero status.
type ExitError struct {
	// Args are the arguments passed to git.
	Args []string
	// Code is the process exit status.
	Code int
	// Stderr is the trimmed standard error output.
	Stderr string
}

// Error implements the error interface.
func (e *ExitError) Error() string {
	msg := fmt.Sprintf("git %s: exit status %d", strings.Join(e.Args, " "), e.Code)
	if e.Stderr != "" {
		msg += ": " + e.Stderr
	}

	return msg
}

// samePath compares two directories after resolving symlinks.
func samePath(a, b string) bool {
	return canonical(a) == canonical(b)
}

// canonical returns an absolute, symlink-free form of path when possible.
func canonical(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}

	if resolved, err := filepath.EvalSymlinks(path); err == nil {
		path = resolved
	}

	return filepath.Clean(path)
}
