package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"vodbridge/internal/archive"
	"vodbridge/internal/history"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int
	var idsOnly bool

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show completed uploads",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if idsOnly {
				ids, err := history.Open(cfg.HistoryPath()).List()
				if err != nil {
					return fmt.Errorf("read history: %w", err)
				}
				if limit > 0 && len(ids) > limit {
					ids = ids[len(ids)-limit:]
				}
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
				return nil
			}

			store, err := archive.Open(cmd.Context(), cfg.ArchivePath())
			if err != nil {
				return fmt.Errorf("open upload archive: %w", err)
			}
			defer store.Close()

			entries, err := store.List(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				fmt.Fprintln(out, "No uploads recorded")
				return nil
			}
			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				rows = append(rows, []string{
					entry.UploadedAt.Local().Format("2006-01-02 15:04"),
					entry.VOD.ID,
					entry.Result.Title,
					entry.Link(),
					entry.Result.Privacy,
					entry.UploadElapsed.Round(time.Second).String(),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Header: "Uploaded"},
				{Header: "VOD"},
				{Header: "Title", MaxWidth: 40},
				{Header: "Link"},
				{Header: "Privacy"},
				{Header: "Took", Align: alignRight},
			}, rows))
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum entries to show (0 for all)")
	cmd.Flags().BoolVar(&idsOnly, "ids", false, "Print completed VOD ids from the history log")
	return cmd
}
