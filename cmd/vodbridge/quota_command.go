package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vodbridge/internal/quota"
)

func newQuotaCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "quota",
		Short: "Show when the upload quota next resets",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			loc, err := cfg.QuotaLocation()
			if err != nil {
				return err
			}
			governor, err := quota.New(loc, cfg.Quota.ResetHour, cfg.Quota.ResetMinute)
			if err != nil {
				return err
			}
			now := time.Now()
			next := governor.NextReset(now)
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Next reset: %s (%s)\n",
				next.In(governor.Location()).Format("2006-01-02 15:04 MST"),
				next.Local().Format("2006-01-02 15:04 MST"))
			fmt.Fprintf(out, "A paused upload would sleep %s\n", governor.SleepUntilReset(now).Round(time.Minute))
			return nil
		},
	}
}
