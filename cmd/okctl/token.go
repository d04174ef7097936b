package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/imrishuroy/go-omnikassa-orderflow/internal/app"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/client"
	"github.com/imrishuroy/go-omnikassa-orderflow/internal/config"
)

func tokenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "token",
		Short: "Force an access token refresh and print its expiry",
		Long: `Exchanges the refresh token for a new access token. When redis_addr is
configured the new token is also stored for the API and worker.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath(cmd))
			if err != nil {
				return err
			}
			cache, err := app.NewTokenCache(cmd.Context(), cfg, client.New(cfg.ClientOptions()))
			if err != nil {
				return err
			}
			token, err := cache.Refresh(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "access token valid until %s (%s)\n",
				token.ValidUntil.Format(time.RFC3339), time.Until(token.ValidUntil).Round(time.Second))
			return nil
		},
	}
}
