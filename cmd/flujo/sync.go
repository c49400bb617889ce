package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flujo/flujo/internal/ingest"
	"github.com/flujo/flujo/internal/mailbox"
)

func syncCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Pull new mailbox messages into the staging store",
		Long: `Sync connects to the configured IMAP account, searches messages newer
than the stored cursor within the date window, filters out non-alert mail,
and stages each surviving message with a content-derived idempotency hash.
The cursor advances only after the batch is staged, so an interrupted run
safely reprocesses the same messages next time.`,
		RunE: runSync,
	}

	cmd.Flags().String("owner", "", "owner to sync for (defaults to the owner config key)")
	cmd.Flags().Int("days", 0, "search window in days (defaults to sync.days)")
	cmd.Flags().Int("limit", 0, "max messages per run (defaults to sync.limit)")
	cmd.Flags().Bool("json", false, "print the full run report as JSON")

	return cmd
}

func runSync(cmd *cobra.Command, _ []string) error {
	ownerFlag, _ := cmd.Flags().GetString("owner")
	days, _ := cmd.Flags().GetInt("days")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	owner, err := requireOwner(ownerFlag)
	if err != nil {
		return err
	}

	cfg, err := syncConfig(owner, days, limit)
	if err != nil {
		return err
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

	syncer := ingest.NewSyncer(store, mailbox.NewClient(imapCfg), cfg)
	report, err := syncer.Run(cmd.Context())
	logReport("sync", report)
	if err != nil {
		return err
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return nil
}
