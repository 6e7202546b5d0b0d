package release

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidVersion reports input that is not a 10-digit identifier.
	ErrInvalidVersion = errors.New("invalid version identifier, expected 10 digits (YYYYMMDDHH)")
	// ErrNotFound reports a missing directory.
	ErrNotFound = errors.New("directory not found")
	// ErrEmptyManifest reports a version directory without files.
	ErrEmptyManifest = errors.New("no files found for manifest")
	// ErrStagingQuery reports a failure of the version-control staging query.
	ErrStagingQuery = errors.New("staging area query failed")
	// ErrNoStagedFiles reports an empty staging area.
	ErrNoStagedFiles = errors.New("no staged files to package")
	// ErrNothingToPackage reports that there is neither staged input nor an existing version directory.
	ErrNothingToPackage = errors.New("nothing to package")
	// ErrCopyFailed reports that no staged file could be copied.
	ErrCopyFailed = errors.New("no files were copied")
	// ErrRegistryWrite reports a failure to rewrite the version registry.
	ErrRegistryWrite = errors.New("version registry write failed")
	// ErrPublish reports a failed commit or push.
	ErrPublish = errors.New("publish failed")
	// ErrNotARepository reports an update root outside version control.
	ErrNotARepository = errors.New("not a version-controlled directory")
)

// StepError attaches the version and the failing step to an error.
type StepError struct {
	// Version is the package being assembled, empty when it could not be determined.
	Version Version
	// Step is the stage that failed.
	Step Step
	// Err is the underlying failure.
	Err error
}

// NewStepError wraps err with the version and step, returning nil for a nil error.
func NewStepError(version Version, step Step, err error) error {
	if err == nil {
		return nil
	}

	return &StepError{
		Version: version,
		Step:    step,
		Err:     err,
	}
}

// Error implements the error interface.
func (e *StepError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("%s: %v", e.Step, e.Err)
	}

	return fmt.Sprintf("version %s: %s: %v", e.Version, e.Step, e.Err)
}

// Unwrap exposes the underlying error to errors.Is and errors.As.
func (e *StepError) Unwrap() error {
	return e.Err
}
