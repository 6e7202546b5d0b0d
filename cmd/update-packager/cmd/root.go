package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-packager/internal/domain/release"
	"github.com/oshokin/update-packager/internal/service/packager"
	"github.com/oshokin/update-packager/internal/version"
)

var (
	// configPath to the configuration YAML file.
	configPath string
	// packagerOptions collects the root command flags.
	packagerOptions packager.Options

	// errVersionWithAll is returned when a version argument is combined with --all.
	errVersionWithAll = errors.New("a version argument cannot be combined with --all")

	// rootCmd represents the base command for assembling update packages.
	rootCmd = &cobra.Command{
		Use:   "update-packager [version]",
		Short: "Build an update package from the git staging area",
		Long: "Copies the files staged in git into update/<version>, writes the version's file_list.txt,\n" +
			"adds the version to update/update_list.txt and publishes the update directory.\n" +
			"The version defaults to the current hour in UTC+8 (YYYYMMDDHH). An existing version\n" +
			"directory is regenerated instead of rebuilt.",
		Args:          validateArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := packagerOptions
			options.ConfigPath = configPath

			if len(args) > 0 {
				options.Version = args[0]
			}

			summary, err := packager.Run(ctx, &options)
			if summary != nil {
				renderSummary(cmd.OutOrStdout(), summary)
			}

			return err
		},
	}
)

// Execute runs the update-packager CLI and exits with non-zero status on error.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		renderError(rootCmd.ErrOrStderr(), err)
		os.Exit(1)
	}
}

// validateArgs accepts at most one argument, a 10-digit version.
func validateArgs(cmd *cobra.Command, args []string) error {
	if err := cobra.MaximumNArgs(1)(cmd, args); err != nil {
		return err
	}

	if len(args) == 0 {
		return nil
	}

	if packagerOptions.All {
		return errVersionWithAll
	}

	_, err := release.ParseVersion(args[0])

	return err
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	// Setup command flags with consistent naming and descriptions.
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "",
		"path to configuration file (default update-packager.yaml when present)")

	flags := rootCmd.Flags()
	flags.BoolVar(&packagerOptions.SkipStagingCheck, "skip-git", false,
		"skip the git staging check and package an existing version directory")
	flags.BoolVar(&packagerOptions.All, "all", false,
		"regenerate the manifest and registry entry of every version directory")
	flags.StringVar(&packagerOptions.ProjectRoot, "project-root", "", "project root directory")
	flags.BoolVar(&packagerOptions.NoPublish, "no-publish", false, "stop after updating the version registry")
	flags.StringVar(&packagerOptions.LogLevel, "log-level", "", "log level: debug, info, warn or error")
	flags.StringVar(&packagerOptions.MetricsFile, "metrics-file", "", "write Prometheus metrics to this textfile")
}
