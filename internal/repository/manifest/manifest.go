package manifest

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"

	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/logger"
)

// FileMode is the permission of written manifests.
const FileMode os.FileMode = 0o644

// Scan lists every regular file under root as a slash-separated path relative
// to root, sorted, leaving out the manifest at the top of root.
func Scan(ctx context.Context, fsys afero.Fs, root string) ([]string, error) {
	info, err := fsys.Stat(root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%s: %w", root, release.ErrNotFound)
		}

		return nil, fmt.Errorf("stat %s: %w", root, err)
	}

	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory: %w", root, release.ErrNotFound)
	}

	var files []string

	err = afero.Walk(fsys, root, func(path string, fi fs.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}

		if !fi.Mode().IsRegular() {
			return nil
		}

		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return relErr
		}

		rel = filepath.ToSlash(rel)
		if rel == release.ManifestFilename {
			return nil
		}

		logger.DebugKV(ctx, "Found file", "path", rel)

		files = append(files, rel)

		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	// Walk order is per directory; slash-joined paths need a global sort.
	sort.Strings(files)

	return files, nil
}

// Write regenerates the manifest of versionDir and returns its entries.
// A directory without files is reported as release.ErrEmptyManifest and
// leaves any previous manifest untouched.
func Write(ctx context.Context, fsys afero.Fs, versionDir string) ([]string, error) {
	files, err := Scan(ctx, fsys, versionDir)
	if err != nil {
		return nil, err
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%s: %w", versionDir, release.ErrEmptyManifest)
	}

	var buf bytes.Buffer
	for _, name := range files {
		buf.WriteString(name)
		buf.WriteByte('\n')
	}

	path := filepath.Join(versionDir, release.ManifestFilename)
	if err = afero.WriteFile(fsys, path, buf.Bytes(), FileMode); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	logger.InfoKV(ctx, "Manifest written", "path", path, "files", len(files))

	return files, nil
}

// Read returns the entries of the manifest in versionDir, falling back to a
// scan when the directory has no manifest.
func Read(ctx context.Context, fsys afero.Fs, versionDir string) ([]string, error) {
	path := filepath.Join(versionDir, release.ManifestFilename)

	contents, err := afero.ReadFile(fsys, path)
	if errors.Is(err, fs.ErrNotExist) {
		logger.WarnKV(ctx, "Manifest missing, scanning directory", "path", path)

		return Scan(ctx, fsys, versionDir)
	}

	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}

	var files []string

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			files = append(files, line)
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}

	return files, nil
}
