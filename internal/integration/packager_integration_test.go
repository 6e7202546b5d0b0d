package integration

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/update-packager/internal/config"
	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/service/applier"
	"github.com/oshokin/update-packager/internal/service/packager"
	"github.com/oshokin/update-packager/internal/service/publisher"
)

// requireGit skips tests that need the git executable.
func requireGit(t *testing.T) {
	t.Helper()

	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git executable is not available")
	}
}

// git runs git in dir and returns its trimmed output.
func git(t *testing.T, dir string, args ...string) string {
	t.Helper()

	cmd := exec.Command("git", args...)
	cmd.Dir = dir

	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %s: %s", strings.Join(args, " "), out)

	return strings.TrimSpace(string(out))
}

// initRepo creates a repository on branch main with a local identity.
func initRepo(t *testing.T, dir string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(dir, 0o755))
	git(t, dir, "init", "--quiet")
	git(t, dir, "symbolic-ref", "HEAD", "refs/heads/main")
	git(t, dir, "config", "user.name", "Release Bot")
	git(t, dir, "config", "user.email", "release@example.com")
	git(t, dir, "config", "commit.gpgsign", "false")
}

// writeFile creates path with its parents.
func writeFile(t *testing.T, path, contents string) {
	t.Helper()

	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
}

// packagingFixture is a project repository, its update repository and the update remote.
type packagingFixture struct {
	project string
	update  string
	remote  string
}

// newPackagingFixture stages two files in a fresh project and prepares an update repository at update.
func newPackagingFixture(t *testing.T, update string) *packagingFixture {
	t.Helper()

	f := &packagingFixture{
		project: filepath.Join(t.TempDir(), "project"),
		remote:  filepath.Join(t.TempDir(), "remote.git"),
		update:  update,
	}

	initRepo(t, f.project)
	writeFile(t, filepath.Join(f.project, "README"), "seed")
	git(t, f.project, "add", "README")
	git(t, f.project, "commit", "--quiet", "-m", "seed")

	writeFile(t, filepath.Join(f.project, "apps", "admin", "Upgrade.php"), "<?php // v2")
	writeFile(t, filepath.Join(f.project, "static", "app.js"), "console.log(2)")
	writeFile(t, filepath.Join(f.project, "update_apply.txt"), "2024010100\n")
	git(t, f.project, "add", "apps/admin/Upgrade.php", "static/app.js", "update_apply.txt")

	if f.update == "" {
		f.update = filepath.Join(f.project, "update")
	}

	require.NoError(t, os.MkdirAll(f.remote, 0o755))
	git(t, f.remote, "init", "--quiet", "--bare")

	initRepo(t, f.update)
	git(t, f.update, "remote", "add", "origin", f.remote)

	t.Chdir(f.project)

	return f
}

// requirePackaged checks the version directory, registry and remote after a run.
func (f *packagingFixture) requirePackaged(t *testing.T, summary *packager.Summary) {
	t.Helper()

	require.Equal(t, 1, summary.Succeeded())
	require.Equal(t, publisher.StatusPublished, summary.Publish)

	manifest, err := os.ReadFile(filepath.Join(f.update, "2024050110", release.ManifestFilename))
	require.NoError(t, err)
	require.Equal(t, "apps/admin/Upgrade.php\nstatic/app.js\n", string(manifest))

	registry, err := os.ReadFile(filepath.Join(f.update, release.RegistryFilename))
	require.NoError(t, err)
	require.Equal(t, "2024050110\n", string(registry))

	require.Equal(t, git(t, f.update, "rev-parse", "HEAD"), git(t, f.remote, "rev-parse", "refs/heads/main"))
	require.Equal(t, "Add update package 2024050110", git(t, f.remote, "log", "-1", "--format=%s", "main"))
}

// fixedNow is 2024-05-01 10:00 in UTC+8.
func fixedNow() time.Time {
	return time.Date(2024, 5, 1, 2, 0, 0, 0, time.UTC)
}

// TestPackager_GitCLIEndToEnd packages staged files, publishes them and applies them to a target.
func TestPackager_GitCLIEndToEnd(t *testing.T) {
	requireGit(t)

	f := newPackagingFixture(t, "")

	settings := config.Default()
	settings.VCS.Remote = "origin"
	settings.VCS.Branch = "main"

	configPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(configPath, settings))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := packager.Run(ctx, &packager.Options{ConfigPath: configPath, Now: fixedNow})
	require.NoError(t, err)
	f.requirePackaged(t, summary)

	// A second run regenerates the existing version and has nothing new to commit.
	summary, err = packager.Run(ctx, &packager.Options{ConfigPath: configPath, Version: "2024050110", Now: fixedNow})
	require.NoError(t, err)
	require.Equal(t, release.StepRegenerate, summary.Results[0].Path)
	require.Equal(t, publisher.StatusNothingToCommit, summary.Publish)

	target := t.TempDir()
	writeFile(t, filepath.Join(target, "static", "app.js"), "console.log(1)")

	report, err := applier.Run(ctx, &applier.Options{ConfigPath: configPath, Target: target})
	require.NoError(t, err)
	require.Equal(t, []release.Version{"2024050110"}, report.Applied)

	contents, err := os.ReadFile(filepath.Join(target, "static", "app.js"))
	require.NoError(t, err)
	require.Equal(t, "console.log(2)", string(contents))

	backup, err := os.ReadFile(filepath.Join(target, release.BackupDirName, "2024050110", "static", "app.js"))
	require.NoError(t, err)
	require.Equal(t, "console.log(1)", string(backup))
}

// TestPackager_GoGitEndToEnd runs the same workflow through the go-git backend.
func TestPackager_GoGitEndToEnd(t *testing.T) {
	requireGit(t)

	f := newPackagingFixture(t, filepath.Join(t.TempDir(), "update"))

	settings := config.Default()
	settings.UpdateDir = f.update
	settings.VCS.Backend = config.BackendGoGit
	settings.VCS.Remote = "origin"
	settings.VCS.Branch = "main"
	settings.VCS.AuthorName = "Release Bot"
	settings.VCS.AuthorEmail = "release@example.com"

	configPath := filepath.Join(t.TempDir(), config.DefaultConfigFilename)
	require.NoError(t, config.Save(configPath, settings))

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	summary, err := packager.Run(ctx, &packager.Options{ConfigPath: configPath, Now: fixedNow})
	require.NoError(t, err)
	f.requirePackaged(t, summary)
	require.Equal(t, "Release Bot", git(t, f.update, "log", "-1", "--format=%an"))
}

// TestPackager_EmptyStagingFails verifies nothing is created when nothing is staged.
func TestPackager_EmptyStagingFails(t *testing.T) {
	requireGit(t)

	f := newPackagingFixture(t, "")
	git(t, f.project, "reset", "--quiet")

	summary, err := packager.Run(context.Background(), &packager.Options{Version: "2024050110"})
	require.ErrorIs(t, err, release.ErrNoStagedFiles)
	require.Equal(t, 1, summary.Failed())
	require.NoDirExists(t, filepath.Join(f.update, "2024050110"))
}
