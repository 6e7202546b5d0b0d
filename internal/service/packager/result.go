package packager

import (
	"go.uber.org/multierr"

	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/service/publisher"
)

// Result describes how one version was assembled.
type Result struct {
	// Version is the package identifier, empty when it could not be determined.
	Version release.Version
	// Path is the entry step taken: collect_staged or regenerate.
	Path release.Step
	// Dir is the version directory.
	Dir string
	// Copied lists staged files copied into the version directory.
	Copied []string
	// Skipped lists staged files that could not be copied.
	Skipped []string
	// Manifest holds the entries written to the manifest.
	Manifest []string
	// Publish is the publish outcome, empty when publishing did not run.
	Publish publisher.Status
	// Warning is a non-fatal problem, such as an update root outside git.
	Warning error
	// Err is the failure, a *release.StepError, or nil on success.
	Err error
}

// OK reports whether the version was assembled without failure.
func (r *Result) OK() bool {
	return r != nil && r.Err == nil
}

// Summary aggregates the results of a run.
type Summary struct {
	// Results holds one entry per processed version, ascending.
	Results []*Result
	// Publish is the outcome of the run's publish step.
	Publish publisher.Status
	// PublishWarning is a non-fatal publish problem.
	PublishWarning error
	// PublishErr is a publish failure not attributed to a single version.
	PublishErr error
}

// Succeeded returns the number of versions assembled without failure.
func (s *Summary) Succeeded() int {
	count := 0

	for _, result := range s.Results {
		if result.OK() {
			count++
		}
	}

	return count
}

// Failed returns the number of versions that failed.
func (s *Summary) Failed() int {
	return len(s.Results) - s.Succeeded()
}

// Err joins every failure of the run, nil when all succeeded.
func (s *Summary) Err() error {
	var err error

	for _, result := range s.Results {
		err = multierr.Append(err, result.Err)
	}

	return multierr.Append(err, s.PublishErr)
}

// summaryOf wraps a single result.
func summaryOf(result *Result) *Summary {
	return &Summary{
		Results:        []*Result{result},
		Publish:        result.Publish,
		PublishWarning: result.Warning,
	}
}
