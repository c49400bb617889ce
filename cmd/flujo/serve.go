package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/flujo/flujo/internal/api"
	"github.com/flujo/flujo/internal/common"
	"github.com/flujo/flujo/internal/ingest"
	"github.com/flujo/flujo/internal/mailbox"
	"github.com/flujo/flujo/internal/model"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Expose the sync and promote triggers over HTTP",
		Long: `Serve starts an HTTP server with POST /api/v1/sync and
POST /api/v1/promote trigger endpoints. Requests authenticate with the
X-Auth-Token shared-secret header (server.token) and carry
{owner, limit, days, debug} in the body. Responses are structured run
reports suitable for auditing without re-deriving state.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", "", "listen address (defaults to server.addr)")

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = viper.GetString("server.addr")
	}

	token := viper.GetString("server.token")
	if token == "" {
		return fmt.Errorf("%w: server.token", common.ErrMissingConfig)
	}

	imapCfg, err := mailboxConfig()
	if err != nil {
		return err
	}

	store, err := createStorage()
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	if err := store.Migrate(cmd.Context()); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	server := &api.Server{
		Token: token,
		Sync: func(ctx context.Context, req api.RunRequest) (*model.RunReport, error) {
			cfg, cfgErr := syncConfig(req.Owner, req.Days, req.Limit)
			if cfgErr != nil {
				return nil, cfgErr
			}
			syncer := ingest.NewSyncer(store, mailbox.NewClient(imapCfg), cfg)
			report, runErr := syncer.Run(ctx)
			logReport("sync", report)
			return report, runErr
		},
		Promote: func(ctx context.Context, req api.RunRequest) (*model.RunReport, error) {
			cfg, cfgErr := promoteConfig(req.Owner, req.Limit)
			if cfgErr != nil {
				return nil, cfgErr
			}
			promoter := ingest.NewPromoter(store, mailbox.NewClient(imapCfg), cfg)
			report, runErr := promoter.Run(ctx)
			logReport("promote", report)
			return report, runErr
		},
	}

	slog.Info("Starting trigger server", "addr", addr)
	return server.ListenAndServe(cmd.Context(), addr)
}
