package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/flujo/flujo/internal/ingest"
	"github.com/flujo/flujo/internal/mailbox"
)

func promoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "promote",
		Short: "Promote staged messages into the ledger",
		Long: `Promote drains unprocessed staged messages, extracting transaction
fields from the staged content or, when incomplete, from the mailbox via a
targeted re-fetch. Usable results are categorized with the owner's merchant
rules and upserted into the ledger keyed by content hash; a conflict means
the event was already promoted and counts as success.

A wall-clock budget bounds the batch. Rows still unprocessed at cutoff are
picked up by the next run.`,
		RunE: runPromote,
	}

	cmd.Flags().String("owner", "", "owner to promote for (defaults to the owner config key)")
	cmd.Flags().Int("limit", 0, "max staged rows per run (defaults to promote.limit)")
	cmd.Flags().Bool("json", false, "print the full run report as JSON")

	return cmd
}

func runPromote(cmd *cobra.Command, _ []string) error {
	ownerFlag, _ := cmd.Flags().GetString("owner")
	limit, _ := cmd.Flags().GetInt("limit")
	asJSON, _ := cmd.Flags().GetBool("json")

	owner, err := requireOwner(ownerFlag)
	if err != nil {
		return err
	}

	cfg, err := promoteConfig(owner, limit)
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

	promoter := ingest.NewPromoter(store, mailbox.NewClient(imapCfg), cfg)
	report, err := promoter.Run(cmd.Context())
	logReport("promote", report)
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
