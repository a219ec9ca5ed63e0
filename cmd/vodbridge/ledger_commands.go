package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"vodbridge/internal/ledger"
)

func newLedgerCommand(ctx *commandContext) *cobra.Command {
	ledgerCmd := &cobra.Command{
		Use:   "ledger",
		Short: "Inspect or repair in-flight uploads",
	}
	ledgerCmd.AddCommand(newLedgerListCommand(ctx))
	ledgerCmd.AddCommand(newLedgerRemoveCommand(ctx))
	return ledgerCmd
}

func newLedgerListCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List uploads that will resume on the next cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			entries, err := ledger.Open(cfg.LedgerPath(), nil).LoadAll()
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintln(out, "No uploads in flight")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, id := range ledger.IDs(entries) {
				entry := entries[id]
				_, statErr := os.Stat(entry.FilePath)
				rows = append(rows, []string{
					id,
					entry.VOD.Title,
					entry.FilePath,
					yesNo(statErr == nil),
					yesNo(strings.TrimSpace(entry.ResumeEndpoint) != ""),
				})
			}
			fmt.Fprintln(out, renderTable([]column{
				{Header: "VOD"},
				{Header: "Title", MaxWidth: 40},
				{Header: "File", MaxWidth: 60},
				{Header: "File Present"},
				{Header: "Resumable"},
			}, rows))
			return nil
		},
	}
}

func newLedgerRemoveCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <vod-id>...",
		Short: "Drop in-flight entries so their recordings are matched afresh",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			l := ledger.Open(cfg.LedgerPath(), nil)
			entries, err := l.LoadAll()
			if err != nil {
				return fmt.Errorf("read ledger: %w", err)
			}
			out := cmd.OutOrStdout()
			for _, id := range args {
				id = strings.TrimSpace(id)
				if _, ok := entries[id]; !ok {
					fmt.Fprintf(out, "VOD %s is not in the ledger\n", id)
					continue
				}
				if err := l.Remove(cmd.Context(), id); err != nil {
					return fmt.Errorf("remove %s: %w", id, err)
				}
				fmt.Fprintf(out, "Removed VOD %s\n", id)
			}
			return nil
		},
	}
}
