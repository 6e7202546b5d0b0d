//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"fmt"

	"github.com/oshokin/update-packager/internal/config"
	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/vcs"
)

// NewVCSClient returns the version-control backend selected by cfg.
func NewVCSClient(cfg config.VCS) (vcs.Client, error) {
	switch cfg.Backend {
	case "", config.BackendCLI:
		return vcs.NewCLI(cfg.Binary, cfg.Remote, cfg.Branch), nil
	case config.BackendGoGit:
		options := vcs.GoGitOptions{
			Remote:         cfg.Remote,
			Branch:         cfg.Branch,
			FallbackAuthor: DetectAuthor,
		}

		if cfg.AuthorName != "" && cfg.AuthorEmail != "" {
			options.Author = &release.Author{Name: cfg.AuthorName, Email: cfg.AuthorEmail}
		}

		return vcs.NewGoGit(options), nil
	default:
		return nil, fmt.Errorf("unknown vcs backend %q", cfg.Backend)
	}
}
