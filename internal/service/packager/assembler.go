package packager

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/afero"

	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/logger"
	"github.com/oshokin/update-packager/internal/metrics"
	"github.com/oshokin/update-packager/internal/repository/manifest"
	"github.com/oshokin/update-packager/internal/repository/registry"
	"github.com/oshokin/update-packager/internal/service/publisher"
)

// StagingInspector lists the staged files under a root.
type StagingInspector interface {
	Inspect(ctx context.Context, root string) ([]string, error)
}

// Publisher records the update root remotely.
type Publisher interface {
	Publish(ctx context.Context) (publisher.Status, error)
}

// Request selects what Assemble builds.
type Request struct {
	// Version is the package identifier; empty derives one from the clock.
	Version string
	// SkipStagingCheck skips the staging query; only an existing version directory can be packaged.
	SkipStagingCheck bool
}

// Assembler runs the packaging steps for a project and its update root.
type Assembler struct {
	// fs is where version directories, manifests and the registry live.
	fs afero.Fs
	// projectRoot is the working tree staged files are copied from.
	projectRoot string
	// updateRoot holds version directories and the registry.
	updateRoot string
	// inspector lists staged files.
	inspector StagingInspector
	// publisher commits the update root; nil disables publishing.
	publisher Publisher
	// registry is the version registry of the update root.
	registry *registry.File
	// metrics records outcomes; nil records nothing.
	metrics *metrics.Recorder
	// now is the clock used to derive versions.
	now func() time.Time
}

// Option configures an Assembler.
type Option func(*Assembler)

// WithClock replaces the clock used for derived versions.
func WithClock(now func() time.Time) Option {
	return func(a *Assembler) {
		if now != nil {
			a.now = now
		}
	}
}

// WithMetrics records step durations and outcomes in recorder.
func WithMetrics(recorder *metrics.Recorder) Option {
	return func(a *Assembler) {
		a.metrics = recorder
	}
}

// WithPublisher publishes the update root after the registry is updated.
func WithPublisher(p Publisher) Option {
	return func(a *Assembler) {
		a.publisher = p
	}
}

// NewAssembler returns an Assembler. Without WithPublisher the publish step is skipped.
func NewAssembler(fsys afero.Fs, projectRoot, updateRoot string, inspector StagingInspector, opts ...Option) *Assembler {
	a := &Assembler{
		fs:          fsys,
		projectRoot: projectRoot,
		updateRoot:  updateRoot,
		inspector:   inspector,
		registry:    registry.New(fsys, filepath.Join(updateRoot, release.RegistryFilename)),
		now:         time.Now,
	}

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Assemble builds the package for req.Version, or for the current hour when empty.
func (a *Assembler) Assemble(ctx context.Context, req Request) *Result {
	result := &Result{}

	version, err := a.resolveVersion(req.Version)
	if err != nil {
		result.Err = release.NewStepError("", release.StepValidate, err)

		return result
	}

	result.Version = version
	result.Dir = a.versionDir(version)
	ctx = logger.WithKV(ctx, "version", version.String())

	exists, err := a.dirExists(result.Dir)
	if err != nil {
		result.Err = release.NewStepError(version, release.StepValidate, err)

		return result
	}

	if exists {
		logger.InfoKV(ctx, "Version directory exists, regenerating", "dir", result.Dir)

		return a.finish(ctx, result, release.StepRegenerate)
	}

	result.Path = release.StepCollectStaged

	if req.SkipStagingCheck {
		logger.Info(ctx, "Skipping staging check")

		a.fail(result, release.StepCollectStaged,
			fmt.Errorf("%w: %s does not exist and staging check is skipped", release.ErrNothingToPackage, result.Dir))

		return result
	}

	var staged []string

	err = a.step(ctx, release.StepCollectStaged, func() error {
		staged, err = a.inspector.Inspect(ctx, a.projectRoot)
		if err != nil {
			return err
		}

		if len(staged) == 0 {
			return release.ErrNoStagedFiles
		}

		return nil
	})
	if err != nil {
		a.fail(result, release.StepCollectStaged, err)

		return result
	}

	err = a.step(ctx, release.StepCopyFiles, func() error {
		result.Copied, result.Skipped = a.copyFiles(ctx, staged, result.Dir)

		a.metrics.AddFiles(len(result.Copied), len(result.Skipped))

		if len(result.Copied) == 0 {
			return fmt.Errorf("%w: %d staged, %d skipped", release.ErrCopyFailed, len(staged), len(result.Skipped))
		}

		logger.InfoKV(ctx, "Copied staged files", "copied", len(result.Copied), "dir", result.Dir)

		return nil
	})
	if err != nil {
		a.fail(result, release.StepCopyFiles, err)

		return result
	}

	return a.finish(ctx, result, release.StepCollectStaged)
}

// Regenerate rewrites the manifest of an existing version, registers and publishes it.
func (a *Assembler) Regenerate(ctx context.Context, version string) *Result {
	result := &Result{Path: release.StepRegenerate}

	parsed, err := release.ParseVersion(version)
	if err != nil {
		result.Err = release.NewStepError("", release.StepValidate, err)

		return result
	}

	result.Version = parsed
	result.Dir = a.versionDir(parsed)
	ctx = logger.WithKV(ctx, "version", parsed.String())

	exists, err := a.dirExists(result.Dir)
	if err == nil && !exists {
		err = fmt.Errorf("%w: %s", release.ErrNotFound, result.Dir)
	}

	if err != nil {
		a.fail(result, release.StepRegenerate, err)

		return result
	}

	return a.finish(ctx, result, release.StepRegenerate)
}

// AssembleAll regenerates the manifest and registry entry of every version
// directory in the update root, then publishes once if any version succeeded.
// A failing version does not stop the others.
func (a *Assembler) AssembleAll(ctx context.Context) *Summary {
	summary := &Summary{}

	versions, err := a.listVersions()
	if err != nil {
		summary.Results = append(summary.Results, &Result{
			Path: release.StepRegenerate,
			Err:  release.NewStepError("", release.StepRegenerate, err),
		})

		return summary
	}

	logger.InfoKV(ctx, "Processing all versions", "count", len(versions))

	for _, version := range versions {
		result := &Result{
			Version: version,
			Path:    release.StepRegenerate,
			Dir:     a.versionDir(version),
		}

		ok := a.writeAndRegister(logger.WithKV(ctx, "version", version.String()), result)
		a.metrics.IncPackage(string(result.Path), ok)

		summary.Results = append(summary.Results, result)
	}

	if summary.Succeeded() == 0 {
		return summary
	}

	outcome := a.publish(ctx, "")
	summary.Publish, summary.PublishWarning, summary.PublishErr = outcome.status, outcome.warning, outcome.err

	if outcome.err == nil {
		a.metrics.SetLastSuccess(a.now())
	}

	return summary
}

// finish runs the steps shared by both paths and records the outcome.
func (a *Assembler) finish(ctx context.Context, result *Result, path release.Step) *Result {
	result.Path = path

	if !a.writeAndRegister(ctx, result) {
		a.metrics.IncPackage(string(path), false)

		return result
	}

	outcome := a.publish(ctx, result.Version)
	result.Publish, result.Warning, result.Err = outcome.status, outcome.warning, outcome.err

	if result.Err != nil {
		a.metrics.IncPackage(string(path), false)

		return result
	}

	a.metrics.IncPackage(string(path), true)
	a.metrics.SetLastSuccess(a.now())

	logger.InfoKV(ctx, "Update package ready",
		"step", string(release.StepDone), "dir", result.Dir, "files", len(result.Manifest))

	return result
}

// writeAndRegister writes the manifest and registers the version, reporting success.
func (a *Assembler) writeAndRegister(ctx context.Context, result *Result) bool {
	err := a.step(ctx, release.StepWriteManifest, func() error {
		entries, err := manifest.Write(ctx, a.fs, result.Dir)
		if err != nil {
			return err
		}

		result.Manifest = entries
		a.metrics.SetManifestEntries(len(entries))

		return nil
	})
	if err != nil {
		a.fail(result, release.StepWriteManifest, err)

		return false
	}

	err = a.step(ctx, release.StepUpdateRegistry, func() error {
		versions, err := a.registry.Add(result.Version.String())
		if err != nil {
			return err
		}

		logger.DebugKV(ctx, "Registry updated", "path", a.registry.Path(), "versions", len(versions))

		return nil
	})
	if err != nil {
		a.fail(result, release.StepUpdateRegistry, err)

		return false
	}

	return true
}

// publishOutcome is the result of the publish step.
type publishOutcome struct {
	status  publisher.Status
	warning error
	err     error
}

// publish runs the publisher, turning "not a repository" into a warning.
func (a *Assembler) publish(ctx context.Context, version release.Version) publishOutcome {
	if a.publisher == nil {
		logger.Info(ctx, "Publishing disabled")

		return publishOutcome{}
	}

	var status publisher.Status

	err := a.step(ctx, release.StepPublish, func() error {
		var err error

		status, err = a.publisher.Publish(ctx)

		return err
	})

	switch {
	case err == nil:
		return publishOutcome{status: status}
	case errors.Is(err, release.ErrNotARepository):
		return publishOutcome{status: status, warning: err}
	default:
		logger.ErrorKV(ctx, "Publish failed", "status", string(status), "error", err)

		return publishOutcome{status: status, err: release.NewStepError(version, release.StepPublish, err)}
	}
}

// step times fn under the step name.
func (a *Assembler) step(ctx context.Context, step release.Step, fn func() error) error {
	logger.DebugKV(ctx, "Step started", "step", string(step))

	started := time.Now()
	err := fn()

	a.metrics.ObserveStep(string(step), time.Since(started))

	return err
}

// fail records err as the failure of step.
func (a *Assembler) fail(result *Result, step release.Step, err error) {
	result.Err = release.NewStepError(result.Version, step, err)
}

// resolveVersion validates raw or derives the current version.
func (a *Assembler) resolveVersion(raw string) (release.Version, error) {
	if strings.TrimSpace(raw) == "" {
		return release.VersionAt(a.now()), nil
	}

	return release.ParseVersion(raw)
}

// versionDir returns the directory of version.
func (a *Assembler) versionDir(version release.Version) string {
	return filepath.Join(a.updateRoot, version.String())
}

// dirExists reports whether dir is an existing directory.
func (a *Assembler) dirExists(dir string) (bool, error) {
	info, err := a.fs.Stat(dir)

	switch {
	case errors.Is(err, fs.ErrNotExist):
		return false, nil
	case err != nil:
		return false, fmt.Errorf("stat %s: %w", dir, err)
	case !info.IsDir():
		return false, fmt.Errorf("%w: %s is not a directory", release.ErrNotFound, dir)
	default:
		return true, nil
	}
}

// listVersions returns the version directories of the update root, ascending.
func (a *Assembler) listVersions() ([]release.Version, error) {
	entries, err := afero.ReadDir(a.fs, a.updateRoot)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read %s: %w", a.updateRoot, err)
	}

	var versions []release.Version

	// ReadDir sorts by name, which is chronological for identifiers.
	for _, entry := range entries {
		if entry.IsDir() && release.IsVersion(entry.Name()) {
			versions = append(versions, release.Version(entry.Name()))
		}
	}

	if len(versions) == 0 {
		return nil, fmt.Errorf("%w: no version directories in %s", release.ErrNothingToPackage, a.updateRoot)
	}

	return versions, nil
}
