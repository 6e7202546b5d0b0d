//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/update-packager/internal/config"
	"github.com/oshokin/update-packager/internal/vcs"
)

// TestNewVCSClient verifies the backend is chosen from settings.
func TestNewVCSClient(t *testing.T) {
	t.Parallel()

	client, err := NewVCSClient(config.VCS{})
	require.NoError(t, err)
	require.IsType(t, &vcs.CLI{}, client)

	client, err = NewVCSClient(config.VCS{Backend: config.BackendGoGit, AuthorName: "a", AuthorEmail: "a@b"})
	require.NoError(t, err)
	require.IsType(t, &vcs.GoGit{}, client)

	_, err = NewVCSClient(config.VCS{Backend: "svn"})
	require.Error(t, err)
}
