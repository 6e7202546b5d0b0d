// Package staging reports which files are staged for the next package.
package staging

import (
	"context"
	"fmt"

	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/logger"
)

// Lister is the part of the version-control client the inspector needs.
type Lister interface {
	// ListStagedFiles returns the paths staged for commit, relative to root.
	ListStagedFiles(ctx context.Context, root string) ([]string, error)
}

// Inspector lists staged files, dropping reserved names.
type Inspector struct {
	// lister queries the version-control staging area.
	lister Lister
	// excluded holds exact paths never packaged.
	excluded map[string]struct{}
}

// NewInspector returns an Inspector. With no excluded names the apply log is excluded.
func NewInspector(lister Lister, excluded ...string) *Inspector {
	if len(excluded) == 0 {
		excluded = []string{release.ApplyLogFilename}
	}

	set := make(map[string]struct{}, len(excluded))
	for _, name := range excluded {
		set[name] = struct{}{}
	}

	return &Inspector{
		lister:   lister,
		excluded: set,
	}
}

// Inspect returns the staged paths under root in the order the backend reports them.
// An empty result is not an error; callers decide what it means.
func (i *Inspector) Inspect(ctx context.Context, root string) ([]string, error) {
	staged, err := i.lister.ListStagedFiles(ctx, root)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", release.ErrStagingQuery, err)
	}

	files := make([]string, 0, len(staged))

	for _, name := range staged {
		if _, skip := i.excluded[name]; skip {
			logger.DebugKV(ctx, "Ignoring reserved file", "path", name)
			continue
		}

		logger.InfoKV(ctx, "Staged file", "path", name)

		files = append(files, name)
	}

	if len(files) == 0 {
		logger.Warn(ctx, "No staged files found")
	}

	return files, nil
}
