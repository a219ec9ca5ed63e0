package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"vodbridge/internal/auth"
	"vodbridge/internal/logging"
)

func newAuthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "auth",
		Short: "Authorize vodbridge to upload to your YouTube channel",
		Long: "Auth opens a browser consent flow using youtube.client_secrets and stores\n" +
			"the refresh token at youtube.token_path. Run it once before `vodbridge run`.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			logger, err := logging.NewFromConfig(cfg)
			if err != nil {
				return err
			}
			manager, err := auth.Load(cfg.YouTube.ClientSecrets, cfg.YouTube.TokenPath, logger)
			if err != nil {
				return err
			}
			if _, err := manager.Authorize(cmd.Context(), cmd.OutOrStdout()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved token to %s\n", cfg.YouTube.TokenPath)
			return nil
		},
	}
}
