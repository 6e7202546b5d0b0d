package registry

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/afero"

	"github.com/oshokin/update-packager/internal/domain/release"
)

const (
	// FileMode is the permission of written version lists.
	FileMode os.FileMode = 0o644

	// dirMode is used when the parent directory has to be created.
	dirMode os.FileMode = 0o755
)

// File is a one-version-per-line list kept sorted and without duplicates.
type File struct {
	// fs is the filesystem holding the list.
	fs afero.Fs
	// path is the location of the list within fs.
	path string
}

// New returns a list stored at path on fsys.
func New(fsys afero.Fs, path string) *File {
	return &File{
		fs:   fsys,
		path: filepath.Clean(path),
	}
}

// Path returns the location of the list.
func (f *File) Path() string {
	return f.path
}

// Load returns the sorted entries. A missing file is an empty list.
func (f *File) Load() ([]string, error) {
	contents, err := afero.ReadFile(f.fs, f.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}

		return nil, fmt.Errorf("read %s: %w", f.path, err)
	}

	set := make(map[string]struct{})

	scanner := bufio.NewScanner(bytes.NewReader(contents))
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			set[line] = struct{}{}
		}
	}

	if err = scanner.Err(); err != nil {
		return nil, fmt.Errorf("parse %s: %w", f.path, err)
	}

	return sortedKeys(set), nil
}

// Add merges versions into the list and rewrites it in full.
// Adding an already listed version leaves the file content unchanged.
func (f *File) Add(versions ...string) ([]string, error) {
	entries, err := f.Load()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", release.ErrRegistryWrite, err)
	}

	set := make(map[string]struct{}, len(entries)+len(versions))
	for _, entry := range entries {
		set[entry] = struct{}{}
	}

	for _, version := range versions {
		if version = strings.TrimSpace(version); version != "" {
			set[version] = struct{}{}
		}
	}

	merged := sortedKeys(set)

	var buf bytes.Buffer
	for _, entry := range merged {
		buf.WriteString(entry)
		buf.WriteByte('\n')
	}

	if err = f.fs.MkdirAll(filepath.Dir(f.path), dirMode); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", release.ErrRegistryWrite, err)
	}

	if err = afero.WriteFile(f.fs, f.path, buf.Bytes(), FileMode); err != nil {
		return nil, fmt.Errorf("%w: %w", release.ErrRegistryWrite, err)
	}

	return merged, nil
}

// sortedKeys returns the set members in ascending string order.
// Identifiers are fixed-width digits, so this is also chronological order.
func sortedKeys(set map[string]struct{}) []string {
	keys := make([]string, 0, len(set))
	for key := range set {
		keys = append(keys, key)
	}

	slices.Sort(keys)

	return keys
}
