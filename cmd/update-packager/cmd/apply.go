package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/oshokin/update-packager/internal/service/applier"
)

var (
	// applyOptions collects the apply command flags.
	applyOptions applier.Options

	// applyCmd installs published packages into a target tree.
	applyCmd = &cobra.Command{
		Use:   "apply",
		Short: "Install pending update packages into a target directory",
		Long: "Installs every version in update_list.txt that is newer than the newest version recorded\n" +
			"in the target's update_apply.txt, oldest first. Replaced files are kept under\n" +
			"<target>/.update-backup/<version>/.",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			options := applyOptions
			options.ConfigPath = configPath

			report, err := applier.Run(ctx, &options)
			if report != nil {
				out := cmd.OutOrStdout()

				if options.DryRun {
					_, _ = fmt.Fprintln(out, titleStyle.Render(fmt.Sprintf("Pending versions: %d", len(report.Pending))))

					for _, version := range report.Pending {
						_, _ = fmt.Fprintln(out, "  "+version.String())
					}
				} else {
					_, _ = fmt.Fprintln(out, successStyle.Render(
						fmt.Sprintf("Applied %d of %d versions, %d files", len(report.Applied), len(report.Pending), report.Files)))
				}
			}

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	flags := applyCmd.Flags()
	flags.StringVarP(&applyOptions.Target, "target", "t", "", "directory to install packages into")
	flags.StringVar(&applyOptions.ProjectRoot, "project-root", "", "project root holding the update directory")
	flags.StringVar(&applyOptions.UpdateRoot, "update-root", "", "update directory to install from")
	flags.BoolVar(&applyOptions.DryRun, "dry-run", false, "list pending versions without installing")

	_ = applyCmd.MarkFlagRequired("target")

	rootCmd.AddCommand(applyCmd)
}
