package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vodbridge/internal/recordings"
	"vodbridge/internal/vod"
)

func newVODsCommand(ctx *commandContext) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "vods",
		Short: "List archived Twitch VODs and their matching windows",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			lister := &vod.CommandLister{
				Args:    cfg.Twitch.Command,
				UserID:  cfg.Twitch.UserID,
				Timeout: cfg.CommandTimeout(),
			}
			records, err := lister.ListVideos(cmd.Context())
			if err != nil {
				return err
			}
			if !all {
				records = vod.Filter(records, cfg.DurationThreshold())
			}
			out := cmd.OutOrStdout()
			if len(records) == 0 {
				fmt.Fprintln(out, "No VODs found")
				return nil
			}
			rows := make([][]string, 0, len(records))
			for _, rec := range records {
				window := recordings.WindowFor(rec, cfg.StartDelta(), cfg.EndDelta())
				rows = append(rows, []string{
					rec.ID,
					rec.Title,
					rec.CreatedAt.Local().Format("2006-01-02 15:04"),
					rec.Duration.Round(time.Second).String(),
					window.Start.Local().Format("01-02 15:04") + " → " + window.End.Local().Format("01-02 15:04"),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Header: "VOD"},
				{Header: "Title", MaxWidth: 50},
				{Header: "Started"},
				{Header: "Length", Align: alignRight},
				{Header: "Match Window"},
			}, rows))
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include VODs shorter than twitch.duration_threshold")
	return cmd
}
