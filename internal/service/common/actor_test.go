//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestDetectAuthor ensures name and a user@host email are detected.
func TestDetectAuthor(t *testing.T) {
	t.Parallel()

	author, err := DetectAuthor()
	require.NoError(t, err)
	require.NotEmpty(t, author.Name)
	require.Contains(t, author.Email, "@")
	require.False(t, strings.HasPrefix(author.Email, "@"))
	require.False(t, strings.HasSuffix(author.Email, "@"))
}
