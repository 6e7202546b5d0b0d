package cmd

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/service/packager"
	"github.com/oshokin/update-packager/internal/service/publisher"
)

// TestValidateArgs verifies the version argument is checked before anything runs.
func TestValidateArgs(t *testing.T) {
	require.NoError(t, validateArgs(rootCmd, nil))
	require.NoError(t, validateArgs(rootCmd, []string{"2024010112"}))
	require.ErrorIs(t, validateArgs(rootCmd, []string{"abc"}), release.ErrInvalidVersion)
	require.ErrorIs(t, validateArgs(rootCmd, []string{"12345"}), release.ErrInvalidVersion)
	require.Error(t, validateArgs(rootCmd, []string{"2024010112", "2024010113"}))

	packagerOptions.All = true
	t.Cleanup(func() { packagerOptions.All = false })

	require.ErrorIs(t, validateArgs(rootCmd, []string{"2024010112"}), errVersionWithAll)
	require.NoError(t, validateArgs(rootCmd, nil))
}

// TestRenderSummary verifies each version and the totals are printed.
func TestRenderSummary(t *testing.T) {
	t.Parallel()

	summary := &packager.Summary{
		Results: []*packager.Result{
			{
				Version:  "2024010112",
				Path:     release.StepCollectStaged,
				Manifest: []string{"a.txt", "b.txt"},
				Publish:  publisher.StatusSkipped,
				Warning:  fmt.Errorf("%w: /srv/update", release.ErrNotARepository),
			},
			{
				Version: "2024010113",
				Path:    release.StepCollectStaged,
				Err:     release.NewStepError("2024010113", release.StepCopyFiles, release.ErrCopyFailed),
			},
		},
	}

	var out bytes.Buffer

	renderSummary(&out, summary)

	text := out.String()
	require.Contains(t, text, "2024010112 collect_staged, 2 files, skipped")
	require.Contains(t, text, "warning: not a version-controlled directory: /srv/update")
	require.Contains(t, text, "2024010113 failed at copy_files: no files were copied")
	require.Contains(t, text, "Succeeded: 1, failed: 1")
}
