package packager

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/oshokin/update-packager/internal/config"
	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/logger"
	"github.com/oshokin/update-packager/internal/metrics"
	"github.com/oshokin/update-packager/internal/service/common"
	"github.com/oshokin/update-packager/internal/service/publisher"
	"github.com/oshokin/update-packager/internal/service/staging"
	"github.com/oshokin/update-packager/internal/vcs"
)

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional settings file (defaults to update-packager.yaml when present).
	ConfigPath string
	// Version is the package identifier; empty derives one from the current hour in UTC+8.
	Version string
	// SkipStagingCheck packages an existing version directory without querying git.
	SkipStagingCheck bool
	// All regenerates every version directory in the update root.
	All bool
	// ProjectRoot overrides the configured project root.
	ProjectRoot string
	// NoPublish stops after the registry update.
	NoPublish bool
	// LogLevel overrides the configured log level.
	LogLevel string
	// MetricsFile overrides the configured metrics textfile.
	MetricsFile string

	// FS replaces the filesystem; the OS filesystem when nil.
	FS afero.Fs
	// Client replaces the version-control backend built from settings.
	Client vcs.Client
	// Now replaces the clock.
	Now func() time.Time
}

// errVersionWithAll is returned when a version is combined with All.
var errVersionWithAll = errors.New("a version cannot be combined with processing all versions")

// Run builds an update package, or regenerates every package when opts.All is set.
// The returned summary is non-nil whenever assembly started; its failures are
// also returned as the error.
func Run(ctx context.Context, opts *Options) (*Summary, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "update-packager")

	if opts.Version != "" {
		if opts.All {
			return nil, errVersionWithAll
		}

		if _, err := release.ParseVersion(opts.Version); err != nil {
			return nil, release.NewStepError("", release.StepValidate, err)
		}
	}

	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	if level, ok := logger.ParseLogLevel(cfg.LogLevel); ok {
		logger.SetLevel(level)
	}

	warnOtherInstances(ctx)

	ctx = logger.WithKV(ctx, "run_id", uuid.NewString())

	assembler, recorder, err := newAssembler(cfg, opts)
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Starting update packager",
		"project_root", cfg.ProjectRoot,
		"update_root", cfg.UpdateRoot(),
		"backend", cfg.VCS.Backend)

	var summary *Summary

	if opts.All {
		summary = assembler.AssembleAll(ctx)
	} else {
		summary = summaryOf(assembler.Assemble(ctx, Request{
			Version:          opts.Version,
			SkipStagingCheck: opts.SkipStagingCheck,
		}))
	}

	if err = recorder.WriteTextfile(cfg.MetricsFile); err != nil {
		logger.WarnKV(ctx, "Unable to write metrics", "path", cfg.MetricsFile, "error", err)
	}

	logger.InfoKV(ctx, "Update packager finished", "succeeded", summary.Succeeded(), "failed", summary.Failed())

	return summary, summary.Err()
}

// loadConfig reads settings and applies the command-line overrides.
func loadConfig(opts *Options) (*config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.ProjectRoot != "" {
		cfg.ProjectRoot = opts.ProjectRoot
	}

	if opts.LogLevel != "" {
		cfg.LogLevel = opts.LogLevel
	}

	if opts.MetricsFile != "" {
		cfg.MetricsFile = opts.MetricsFile
	}

	if err = config.Validate(cfg); err != nil {
		return nil, err
	}

	projectRoot, err := filepath.Abs(cfg.ProjectRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve project root: %w", err)
	}

	cfg.ProjectRoot = projectRoot

	return cfg, nil
}

// newAssembler builds the assembler and its collaborators from settings.
func newAssembler(cfg *config.Config, opts *Options) (*Assembler, *metrics.Recorder, error) {
	fsys := opts.FS
	if fsys == nil {
		fsys = afero.NewOsFs()
	}

	client := opts.Client
	if client == nil {
		var err error

		client, err = common.NewVCSClient(cfg.VCS)
		if err != nil {
			return nil, nil, err
		}
	}

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	recorder := metrics.NewRecorder(nil)
	updateRoot := cfg.UpdateRoot()

	assemblerOptions := []Option{
		WithClock(now),
		WithMetrics(recorder),
	}

	if !opts.NoPublish {
		assemblerOptions = append(assemblerOptions,
			WithPublisher(publisher.New(client, updateRoot, publisher.WithClock(now))))
	}

	assembler := NewAssembler(
		fsys,
		cfg.ProjectRoot,
		updateRoot,
		staging.NewInspector(client, cfg.ApplyLog),
		assemblerOptions...,
	)

	return assembler, recorder, nil
}

// warnOtherInstances logs when another packager process is running.
// Concurrent runs against one update root race; nothing is locked.
func warnOtherInstances(ctx context.Context) {
	name := common.CurrentExecutable()

	count, err := common.CountOtherInstances(name)
	if err != nil {
		logger.DebugKV(ctx, "Unable to list processes", "error", err)

		return
	}

	if count > 0 {
		logger.WarnKV(ctx, "Another packager process is running, results may race", "executable", name, "count", count)
	}
}
