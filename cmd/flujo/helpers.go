package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/flujo/flujo/internal/common"
	"github.com/flujo/flujo/internal/ingest"
	"github.com/flujo/flujo/internal/mailbox"
	"github.com/flujo/flujo/internal/model"
	"github.com/flujo/flujo/internal/storage"
)

// createStorage opens the configured SQLite database.
func createStorage() (*storage.SQLiteStorage, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		dbPath = filepath.Join(home, ".local", "share", "flujo", "flujo.db")
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}
	return store, nil
}

// mailboxConfig builds the IMAP settings from configuration.
func mailboxConfig() (mailbox.Config, error) {
	cfg := mailbox.Config{
		Host:     viper.GetString("imap.host"),
		Username: viper.GetString("imap.username"),
		Password: viper.GetString("imap.password"),
		Mailbox:  viper.GetString("imap.mailbox"),
	}
	if err := cfg.Validate(); err != nil {
		return mailbox.Config{}, err
	}
	return cfg, nil
}

// businessLocation loads the configured business timezone.
func businessLocation() (*time.Location, error) {
	name := viper.GetString("defaults.timezone")
	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid timezone %q: %v", common.ErrInvalidConfig, name, err)
	}
	return loc, nil
}

// requireOwner resolves the owner from flag or config.
func requireOwner(flagValue string) (string, error) {
	owner := flagValue
	if owner == "" {
		owner = viper.GetString("owner")
	}
	if owner == "" {
		return "", common.NewUserError("no owner configured; pass --owner or set the owner config key", common.ErrMissingConfig)
	}
	return owner, nil
}

// syncConfig assembles a sync run configuration.
func syncConfig(owner string, days, limit int) (ingest.SyncConfig, error) {
	loc, err := businessLocation()
	if err != nil {
		return ingest.SyncConfig{}, err
	}
	if days <= 0 {
		days = viper.GetInt("sync.days")
	}
	if limit <= 0 {
		limit = viper.GetInt("sync.limit")
	}
	return ingest.SyncConfig{
		Owner:           owner,
		Mailbox:         viper.GetString("imap.mailbox"),
		Days:            days,
		Limit:           limit,
		FromFilter:      viper.GetString("filter.from"),
		SubjectFilter:   viper.GetString("filter.subject"),
		DefaultCurrency: viper.GetString("defaults.currency"),
		Location:        loc,
	}, nil
}

// promoteConfig assembles a promote run configuration.
func promoteConfig(owner string, limit int) (ingest.PromoteConfig, error) {
	loc, err := businessLocation()
	if err != nil {
		return ingest.PromoteConfig{}, err
	}
	if limit <= 0 {
		limit = viper.GetInt("promote.limit")
	}
	return ingest.PromoteConfig{
		Owner:             owner,
		Mailbox:           viper.GetString("imap.mailbox"),
		Limit:             limit,
		Budget:            viper.GetDuration("promote.budget"),
		FallbackScanLimit: viper.GetInt("promote.fallback_scan"),
		FromFilter:        viper.GetString("filter.from"),
		DefaultCurrency:   viper.GetString("defaults.currency"),
		Location:          loc,
	}, nil
}

// logReport emits the run summary operators audit runs with.
func logReport(stage string, report *model.RunReport) {
	if report == nil {
		return
	}
	slog.Info("Run finished",
		"stage", stage,
		"attempted", report.Attempted,
		"succeeded", report.Succeeded,
		"errored", report.Errored,
		"budget_exceeded", report.BudgetExceeded,
		"duration", report.FinishedAt.Sub(report.StartedAt))
}
