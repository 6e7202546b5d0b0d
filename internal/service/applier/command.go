package applier

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"slices"

	goupdate "github.com/doitdistributed/go-update"
	"github.com/spf13/afero"
	"go.uber.org/multierr"

	"github.com/oshokin/update-packager/internal/config"
	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/logger"
	"github.com/oshokin/update-packager/internal/repository/manifest"
	"github.com/oshokin/update-packager/internal/repository/registry"
)

// dirMode is used for directories created in the target tree.
const dirMode = 0o755

// Options contains inputs for the apply entry point.
type Options struct {
	// ConfigPath is an optional settings file.
	ConfigPath string
	// ProjectRoot overrides the configured project root that holds the update root.
	ProjectRoot string
	// UpdateRoot overrides the update root entirely.
	UpdateRoot string
	// Target is the tree packages are installed into.
	Target string
	// DryRun only reports pending versions.
	DryRun bool
}

// Report describes an apply run.
type Report struct {
	// Pending lists the versions newer than the target's newest applied version.
	Pending []release.Version
	// Applied lists the versions installed by this run.
	Applied []release.Version
	// Files is the number of files installed.
	Files int
}

// applier installs packages from updateRoot into target.
type applier struct {
	// fs holds the update root and the target tree. go-update swaps target
	// files on the operating system filesystem, so fs must be backed by it.
	fs afero.Fs
	// updateRoot holds the version directories and the registry.
	updateRoot string
	// target is the tree being updated.
	target string
	// applyLog records the versions installed into target.
	applyLog *registry.File
}

var (
	// errTargetRequired is returned when no target directory is given.
	errTargetRequired = errors.New("target directory must be provided")
	// errUnsafePath is returned for manifest entries that escape the version directory.
	errUnsafePath = errors.New("manifest entry is not a local path")
)

// newApplier returns an applier recording installed versions in target/applyLog.
func newApplier(fsys afero.Fs, updateRoot, target, applyLog string) *applier {
	return &applier{
		fs:         fsys,
		updateRoot: updateRoot,
		target:     target,
		applyLog:   registry.New(fsys, filepath.Join(target, applyLog)),
	}
}

// Run installs every pending version into opts.Target, stopping at the first failure.
func Run(ctx context.Context, opts *Options) (*Report, error) {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "update-applier")

	if opts.Target == "" {
		return nil, errTargetRequired
	}

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	if opts.ProjectRoot != "" {
		cfg.ProjectRoot = opts.ProjectRoot
	}

	updateRoot := opts.UpdateRoot
	if updateRoot == "" {
		updateRoot = cfg.UpdateRoot()
	}

	target, err := filepath.Abs(opts.Target)
	if err != nil {
		return nil, fmt.Errorf("resolve target: %w", err)
	}

	a := newApplier(afero.NewOsFs(), updateRoot, target, cfg.ApplyLog)

	report := &Report{}

	report.Pending, err = a.pending()
	if err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Pending versions", "count", len(report.Pending), "target", target)

	if opts.DryRun {
		for _, version := range report.Pending {
			logger.InfoKV(ctx, "Would apply", "version", version.String())
		}

		return report, nil
	}

	for _, version := range report.Pending {
		files, err := a.apply(logger.WithKV(ctx, "version", version.String()), version)
		report.Files += files

		if err != nil {
			return report, err
		}

		report.Applied = append(report.Applied, version)
	}

	logger.InfoKV(ctx, "Apply finished", "applied", len(report.Applied), "files", report.Files)

	return report, nil
}

// pending returns registry versions newer than the newest applied one, ascending.
func (a *applier) pending() ([]release.Version, error) {
	available, err := registry.New(a.fs, filepath.Join(a.updateRoot, release.RegistryFilename)).Load()
	if err != nil {
		return nil, err
	}

	applied, err := a.applyLog.Load()
	if err != nil {
		return nil, err
	}

	newest := ""

	for _, entry := range applied {
		if release.IsVersion(entry) && entry > newest {
			newest = entry
		}
	}

	var pending []release.Version

	for _, entry := range available {
		if release.IsVersion(entry) && entry > newest {
			pending = append(pending, release.Version(entry))
		}
	}

	slices.Sort(pending)

	return pending, nil
}

// apply installs one version and records it, returning the number of installed files.
func (a *applier) apply(ctx context.Context, version release.Version) (int, error) {
	versionDir := filepath.Join(a.updateRoot, version.String())

	entries, err := manifest.Read(ctx, a.fs, versionDir)
	if err != nil {
		return 0, release.NewStepError(version, release.StepInstall, err)
	}

	backupDir := filepath.Join(a.target, release.BackupDirName, version.String())
	installed := 0

	for _, entry := range entries {
		if err = a.install(versionDir, backupDir, entry); err != nil {
			return installed, release.NewStepError(version, release.StepInstall, fmt.Errorf("%s: %w", entry, err))
		}

		logger.InfoKV(ctx, "Installed", "path", entry)

		installed++
	}

	if _, err = a.applyLog.Add(version.String()); err != nil {
		return installed, release.NewStepError(version, release.StepRecordApply, err)
	}

	logger.InfoKV(ctx, "Version applied", "files", installed)

	return installed, nil
}

// install swaps one packaged file into the target, backing up the file it replaces.
func (a *applier) install(versionDir, backupDir, entry string) (err error) {
	rel := filepath.FromSlash(entry)
	if !filepath.IsLocal(rel) {
		return errUnsafePath
	}

	source := filepath.Join(versionDir, rel)

	info, err := a.fs.Stat(source)
	if err != nil {
		return fmt.Errorf("stat package file: %w", err)
	}

	in, err := a.fs.Open(source)
	if err != nil {
		return fmt.Errorf("open package file: %w", err)
	}

	defer func() {
		err = multierr.Append(err, in.Close())
	}()

	target := filepath.Join(a.target, rel)
	if err = a.fs.MkdirAll(filepath.Dir(target), dirMode); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	options := goupdate.Options{
		TargetPath: target,
		TargetMode: info.Mode().Perm(),
	}

	_, err = a.fs.Stat(target)

	switch {
	case err == nil:
		options.OldSavePath = filepath.Join(backupDir, rel)
		if err = a.fs.MkdirAll(filepath.Dir(options.OldSavePath), dirMode); err != nil {
			return fmt.Errorf("create backup directory: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
		// go-update renames the previous file away, so a placeholder must exist.
		placeholder, createErr := a.fs.Create(target)
		if createErr != nil {
			return fmt.Errorf("create target: %w", createErr)
		}

		if err = placeholder.Close(); err != nil {
			return fmt.Errorf("create target: %w", err)
		}
	default:
		return fmt.Errorf("stat target: %w", err)
	}

	if err = goupdate.Apply(in, options); err != nil {
		return fmt.Errorf("apply: %w", err)
	}

	return nil
}
