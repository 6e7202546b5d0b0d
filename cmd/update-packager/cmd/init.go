package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-packager/internal/config"
)

var (
	// forceInit overwrites an existing settings file.
	forceInit bool

	// errSettingsExist is returned when init would overwrite a settings file.
	errSettingsExist = errors.New("settings file already exists, use --force to overwrite")

	// initCmd writes a settings file with default values.
	initCmd = &cobra.Command{
		Use:           "init",
		Short:         "Write a settings file with default values",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configPath
			if path == "" {
				path = config.DefaultConfigFilename
			}

			if _, err := os.Stat(path); err == nil && !forceInit {
				return fmt.Errorf("%s: %w", path, errSettingsExist)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return fmt.Errorf("stat %s: %w", path, err)
			}

			if err := config.Save(path, config.Default()); err != nil {
				return err
			}

			_, _ = fmt.Fprintln(cmd.OutOrStdout(), successStyle.Render("Wrote "+path))

			return nil
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "overwrite an existing settings file")

	rootCmd.AddCommand(initCmd)
}
