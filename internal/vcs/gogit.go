package vcs

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing/object"

	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/logger"
)

// DefaultRemote is pushed to when no remote is configured.
const DefaultRemote = "origin"

// GoGitOptions configures the go-git backend.
type GoGitOptions struct {
	// Remote is the push remote, DefaultRemote when empty.
	Remote string
	// Branch restricts the push to one branch when set.
	Branch string
	// Author signs commits when set; otherwise the repository config is used.
	Author *release.Author
	// FallbackAuthor supplies an author when neither Author nor git config has one.
	FallbackAuthor func() (release.Author, error)
	// Now returns the commit time, time.Now when nil.
	Now func() time.Time
}

// GoGit implements Client with go-git, without a git executable.
type GoGit struct {
	// opts holds the push and signature settings.
	opts GoGitOptions
}

// NewGoGit returns a go-git backed Client.
func NewGoGit(opts GoGitOptions) *GoGit {
	if opts.Remote == "" {
		opts.Remote = DefaultRemote
	}

	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &GoGit{opts: opts}
}

// ListStagedFiles returns index entries that differ from HEAD, relative to root.
// root may be a subdirectory of the working tree.
func (g *GoGit) ListStagedFiles(_ context.Context, root string) ([]string, error) {
	repo, err := git.PlainOpenWithOptions(root, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", root, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return nil, fmt.Errorf("worktree status: %w", err)
	}

	prefix, err := filepath.Rel(canonical(worktree.Filesystem.Root()), canonical(root))
	if err != nil {
		return nil, fmt.Errorf("resolve %s in worktree: %w", root, err)
	}

	prefix = filepath.ToSlash(prefix)

	var files []string

	for name, fileStatus := range status {
		if !isStaged(fileStatus) {
			continue
		}

		if prefix != "." {
			rest, found := strings.CutPrefix(name, prefix+"/")
			if !found {
				continue
			}

			name = rest
		}

		files = append(files, name)
	}

	sort.Strings(files)

	return files, nil
}

// IsRepository reports whether path itself holds a repository.
func (g *GoGit) IsRepository(_ context.Context, path string) (bool, error) {
	_, err := git.PlainOpen(path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, git.ErrRepositoryNotExists):
		return false, nil
	default:
		return false, fmt.Errorf("open repository %s: %w", path, err)
	}
}

// StageAll is the equivalent of `git add --all`.
func (g *GoGit) StageAll(_ context.Context, dir string) error {
	worktree, err := g.worktree(dir)
	if err != nil {
		return err
	}

	if err = worktree.AddWithOptions(&git.AddOptions{All: true}); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}

	return nil
}

// HasStagedChanges reports whether any index entry differs from HEAD.
func (g *GoGit) HasStagedChanges(_ context.Context, dir string) (bool, error) {
	worktree, err := g.worktree(dir)
	if err != nil {
		return false, err
	}

	status, err := worktree.Status()
	if err != nil {
		return false, fmt.Errorf("worktree status: %w", err)
	}

	for _, fileStatus := range status {
		if isStaged(fileStatus) {
			return true, nil
		}
	}

	return false, nil
}

// CommitAndPush commits the index and pushes to the configured remote.
func (g *GoGit) CommitAndPush(ctx context.Context, dir, message string) error {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("open repository %s: %w", dir, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("open worktree: %w", err)
	}

	hash, err := g.commit(worktree, message)
	if err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	logger.InfoKV(ctx, "Committed update", "commit", hash)

	pushOptions := &git.PushOptions{RemoteName: g.opts.Remote}
	if g.opts.Branch != "" {
		ref := "refs/heads/" + g.opts.Branch
		pushOptions.RefSpecs = []gitconfig.RefSpec{gitconfig.RefSpec(ref + ":" + ref)}
	}

	err = repo.PushContext(ctx, pushOptions)
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("push to %s: %w", g.opts.Remote, err)
	}

	return nil
}

// commit signs with the configured author, then git config, then the fallback.
func (g *GoGit) commit(worktree *git.Worktree, message string) (string, error) {
	options := &git.CommitOptions{}
	if g.opts.Author != nil {
		options.Author = g.signature(*g.opts.Author)
	}

	hash, err := worktree.Commit(message, options)
	if errors.Is(err, git.ErrMissingAuthor) && g.opts.FallbackAuthor != nil {
		author, authorErr := g.opts.FallbackAuthor()
		if authorErr != nil {
			return "", fmt.Errorf("detect author: %w", authorErr)
		}

		hash, err = worktree.Commit(message, &git.CommitOptions{Author: g.signature(author)})
	}

	if err != nil {
		return "", err
	}

	return hash.String(), nil
}

// signature converts an author into a go-git signature stamped now.
func (g *GoGit) signature(author release.Author) *object.Signature {
	return &object.Signature{
		Name:  author.Name,
		Email: author.Email,
		When:  g.opts.Now(),
	}
}

// worktree opens the working tree rooted exactly at dir.
func (g *GoGit) worktree(dir string) (*git.Worktree, error) {
	repo, err := git.PlainOpen(dir)
	if err != nil {
		return nil, fmt.Errorf("open repository %s: %w", dir, err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	return worktree, nil
}

// isStaged reports an index entry that differs from HEAD.
func isStaged(fileStatus *git.FileStatus) bool {
	return fileStatus.Staging != git.Unmodified && fileStatus.Staging != git.Untracked
}
