//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common

import (
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestCountOtherInstances_ExcludesSelf verifies the current process is never counted.
func TestCountOtherInstances_ExcludesSelf(t *testing.T) {
	t.Parallel()

	count, err := CountOtherInstances("update-packager-no-such-process")
	require.NoError(t, err)
	require.Zero(t, count)
}

// TestSameExecutable covers exact and truncated process names.
func TestSameExecutable(t *testing.T) {
	t.Parallel()

	if runtime.GOOS == "windows" {
		t.Skip("windows names are not truncated")
	}

	require.True(t, sameExecutable("update-packager", "update-packager"))
	require.True(t, sameExecutable("update-packager", "update-packager-dev"))
	require.False(t, sameExecutable("update-packag", "update-packager"))
	require.False(t, sameExecutable("git", "update-packager"))
}
