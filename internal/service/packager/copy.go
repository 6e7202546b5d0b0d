package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/oshokin/update-packager/internal/logger"
)

const (
	// dirMode is used for directories created inside a version directory.
	dirMode = 0o755
	// tempPattern names in-progress copies.
	tempPattern = ".copy-*"
)

// copyFiles copies staged paths from the project root into versionDir.
// Unusable paths are logged and returned as skipped. When nothing is copied
// versionDir is removed so the next run inspects staging again.
func (a *Assembler) copyFiles(ctx context.Context, staged []string, versionDir string) (copied, skipped []string) {
	for _, name := range staged {
		if err := a.copyFile(name, versionDir); err != nil {
			logger.WarnKV(ctx, "Skipping staged file", "path", name, "reason", err)

			skipped = append(skipped, name)

			continue
		}

		logger.InfoKV(ctx, "Copied", "path", name)

		copied = append(copied, name)
	}

	if len(copied) == 0 {
		if err := a.fs.RemoveAll(versionDir); err != nil {
			logger.WarnKV(ctx, "Failed to remove version directory", "dir", versionDir, "reason", err)
		}
	}

	return copied, skipped
}

var (
	// errOutsideProject is returned for staged paths that escape the project root.
	errOutsideProject = errors.New("path is outside the project root")
	// errInsideUpdateRoot is returned for staged paths that belong to the update root.
	errInsideUpdateRoot = errors.New("path is inside the update directory")
	// errNotRegular is returned for staged paths that are not regular files.
	errNotRegular = errors.New("not a regular file")
)

// copyFile copies one staged path, keeping its permission bits and modification time.
func (a *Assembler) copyFile(name, versionDir string) (err error) {
	rel := filepath.FromSlash(name)
	if !filepath.IsLocal(rel) {
		return errOutsideProject
	}

	if a.insideUpdateRoot(rel) {
		return errInsideUpdateRoot
	}

	source := filepath.Join(a.projectRoot, rel)

	info, err := a.fs.Stat(source)
	if err != nil {
		return fmt.Errorf("stat source: %w", err)
	}

	if !info.Mode().IsRegular() {
		return errNotRegular
	}

	in, err := a.fs.Open(source)
	if err != nil {
		return fmt.Errorf("open source: %w", err)
	}

	defer func() {
		err = multierr.Append(err, in.Close())
	}()

	target := filepath.Join(versionDir, rel)

	if err = a.fs.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	return a.writeTarget(in, target, info)
}

// writeTarget writes in to a temporary file next to target and renames it
// into place once contents, mode and times are set. The temporary file is
// removed on any failure, so target is either complete or absent.
func (a *Assembler) writeTarget(in io.Reader, target string, info fs.FileInfo) (err error) {
	out, err := afero.TempFile(a.fs, filepath.Dir(target), tempPattern)
	if err != nil {
		return fmt.Errorf("create target: %w", err)
	}

	temp := out.Name()

	defer func() {
		if err != nil {
			err = multierr.Append(err, a.fs.Remove(temp))
		}
	}()

	if _, err = io.Copy(out, in); err != nil {
		return multierr.Append(fmt.Errorf("copy: %w", err), out.Close())
	}

	if err = out.Close(); err != nil {
		return fmt.Errorf("close target: %w", err)
	}

	if err = a.fs.Chmod(temp, info.Mode().Perm()); err != nil {
		return fmt.Errorf("set mode: %w", err)
	}

	if err = a.fs.Chtimes(temp, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("set times: %w", err)
	}

	if err = a.fs.Rename(temp, target); err != nil {
		return fmt.Errorf("rename target: %w", err)
	}

	return nil
}

// insideUpdateRoot reports whether a project-relative path lies in the update root.
func (a *Assembler) insideUpdateRoot(rel string) bool {
	updateRel, err := filepath.Rel(a.projectRoot, a.updateRoot)
	if err != nil || !filepath.IsLocal(updateRel) {
		return false
	}

	return rel == updateRel || strings.HasPrefix(rel, updateRel+string(filepath.Separator))
}
