package main

import (
	"github.com/spf13/cobra"

	"vodbridge/internal/daemonrun"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	var opts daemonrun.Options

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the upload loop in the foreground",
		Long: "Run recovers any interrupted uploads, then polls the watch folder every\n" +
			"workflow.check_interval seconds until interrupted with Ctrl+C or SIGTERM.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			return daemonrun.Run(cmd.Context(), cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "Log intended uploads without transferring or changing state")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "Run a single cycle and exit")
	cmd.Flags().StringVar(&opts.LogLevel, "log-level", "", "Override logging.level")
	cmd.Flags().BoolVar(&opts.Development, "dev", false, "Include source locations in log output")
	return cmd
}
