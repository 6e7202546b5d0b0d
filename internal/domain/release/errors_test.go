package release

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestStepError keeps sentinels reachable and names version and step.
func TestStepError(t *testing.T) {
	t.Parallel()

	require.NoError(t, NewStepError("2024010112", StepCopyFiles, nil))

	err := NewStepError("2024010112", StepCopyFiles, fmt.Errorf("copy: %w", ErrCopyFailed))
	require.ErrorIs(t, err, ErrCopyFailed)
	require.EqualError(t, err, "version 2024010112: copy_files: copy: no files were copied")

	var stepErr *StepError
	require.True(t, errors.As(err, &stepErr))
	require.Equal(t, StepCopyFiles, stepErr.Step)

	err = NewStepError("", StepValidate, ErrInvalidVersion)
	require.Contains(t, err.Error(), "validate: invalid version identifier")
}
