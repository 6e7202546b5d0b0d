package vcs

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/stretchr/testify/require"

	"github.com/oshokin/update-packager/internal/domain/release"
)

// testAuthor signs commits created by the go-git tests.
var testAuthor = release.Author{Name: "Packager Test", Email: "packager@example.com"}

// newGoGitRepo initializes a repository with one commit, without the git executable.
func newGoGitRepo(t *testing.T) (string, *git.Repository) {
	t.Helper()

	dir := t.TempDir()

	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	writeFile(t, filepath.Join(dir, "README"), "seed\n")

	_, err = worktree.Add("README")
	require.NoError(t, err)

	_, err = worktree.Commit("seed", &git.CommitOptions{
		Author: &object.Signature{Name: testAuthor.Name, Email: testAuthor.Email, When: time.Now()},
	})
	require.NoError(t, err)

	return dir, repo
}

// TestGoGit_ListStagedFilesIsRelative verifies only staged paths under root are listed, relative to it.
func TestGoGit_ListStagedFilesIsRelative(t *testing.T) {
	t.Parallel()

	dir, repo := newGoGitRepo(t)
	writeFile(t, filepath.Join(dir, "update", "bin", "app.exe"), "binary")
	writeFile(t, filepath.Join(dir, "update", "notes.txt"), "text")
	writeFile(t, filepath.Join(dir, "update", "unstaged.txt"), "ignored")
	writeFile(t, filepath.Join(dir, "outside.txt"), "outside")

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	for _, name := range []string{"update/bin/app.exe", "update/notes.txt", "outside.txt"} {
		_, err = worktree.Add(name)
		require.NoError(t, err)
	}

	client := NewGoGit(GoGitOptions{})

	files, err := client.ListStagedFiles(context.Background(), filepath.Join(dir, "update"))
	require.NoError(t, err)
	require.Equal(t, []string{"bin/app.exe", "notes.txt"}, files)

	files, err = client.ListStagedFiles(context.Background(), dir)
	require.NoError(t, err)
	require.Equal(t, []string{"outside.txt", "update/bin/app.exe", "update/notes.txt"}, files)
}

// TestGoGit_IsRepository verifies only a working tree's top level counts as a repository.
func TestGoGit_IsRepository(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	client := NewGoGit(GoGitOptions{})

	dir, _ := newGoGitRepo(t)
	sub := filepath.Join(dir, "update")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	ok, err := client.IsRepository(ctx, dir)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = client.IsRepository(ctx, sub)
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = client.IsRepository(ctx, t.TempDir())
	require.NoError(t, err)
	require.False(t, ok)
}

// TestGoGit_StageAllAndCommit verifies staging picks up new files and commits clear the index.
func TestGoGit_StageAllAndCommit(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	dir, repo := newGoGitRepo(t)

	client := NewGoGit(GoGitOptions{Author: &testAuthor})

	staged, err := client.HasStagedChanges(ctx, dir)
	require.NoError(t, err)
	require.False(t, staged)

	writeFile(t, filepath.Join(dir, "2024050110", "file_list.txt"), "a.txt\n")
	require.NoError(t, client.StageAll(ctx, dir))

	staged, err = client.HasStagedChanges(ctx, dir)
	require.NoError(t, err)
	require.True(t, staged)

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	hash, err := client.commit(worktree, "Add update package 2024050110")
	require.NoError(t, err)

	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	require.NoError(t, err)
	require.Equal(t, "Add update package 2024050110", commit.Message)
	require.Equal(t, testAuthor.Name, commit.Author.Name)
	require.Equal(t, testAuthor.Email, commit.Author.Email)

	staged, err = client.HasStagedChanges(ctx, dir)
	require.NoError(t, err)
	require.False(t, staged)
}

// TestGoGit_CommitFallsBackToDetectedAuthor verifies the fallback signs when no git identity exists.
func TestGoGit_CommitFallsBackToDetectedAuthor(t *testing.T) {
	if _, err := os.Stat("/etc/gitconfig"); err == nil {
		t.Skip("system git config may carry an identity")
	}

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", home)

	dir, repo := newGoGitRepo(t)
	writeFile(t, filepath.Join(dir, "new.txt"), "new")

	client := NewGoGit(GoGitOptions{
		FallbackAuthor: func() (release.Author, error) {
			return release.Author{Name: "builder", Email: "builder@buildhost"}, nil
		},
	})
	require.NoError(t, client.StageAll(context.Background(), dir))

	worktree, err := repo.Worktree()
	require.NoError(t, err)

	hash, err := client.commit(worktree, "fallback")
	require.NoError(t, err)

	commit, err := repo.CommitObject(plumbing.NewHash(hash))
	require.NoError(t, err)
	require.Equal(t, "builder", commit.Author.Name)
	require.Equal(t, "builder@buildhost", commit.Author.Email)
}

// TestGoGit_CommitAndPush pushes to a bare repository over the file transport.
func TestGoGit_CommitAndPush(t *testing.T) {
	t.Parallel()
	requireGit(t)

	ctx := context.Background()

	remoteDir := t.TempDir()
	remote, err := git.PlainInit(remoteDir, true)
	require.NoError(t, err)

	dir, repo := newGoGitRepo(t)
	_, err = repo.CreateRemote(&gitconfig.RemoteConfig{Name: DefaultRemote, URLs: []string{remoteDir}})
	require.NoError(t, err)

	head, err := repo.Head()
	require.NoError(t, err)

	client := NewGoGit(GoGitOptions{Author: &testAuthor, Branch: head.Name().Short()})

	writeFile(t, filepath.Join(dir, "2024050110", "a.txt"), "a")
	require.NoError(t, client.StageAll(ctx, dir))
	require.NoError(t, client.CommitAndPush(ctx, dir, "Add update package 2024050110"))

	local, err := repo.Head()
	require.NoError(t, err)

	pushed, err := remote.Reference(head.Name(), true)
	require.NoError(t, err)
	require.Equal(t, local.Hash(), pushed.Hash())
}
