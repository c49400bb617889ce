package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flujo/flujo/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func testAmount(t *testing.T, s string) *decimal.Decimal {
	t.Helper()
	d, err := decimal.NewFromString(s)
	if err != nil {
		t.Fatalf("invalid test amount %q: %v", s, err)
	}
	return &d
}

func createTestMessage(t *testing.T, owner string, uid uint32, merchant string) *model.StagedMessage {
	t.Helper()
	msg := &model.StagedMessage{
		Owner:         owner,
		Provider:      "imap",
		Mailbox:       "INBOX",
		ProviderUID:   uid,
		Subject:       "Compra aprobada en " + merchant,
		ArrivalTime:   time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC),
		LocalDate:     "2024-03-15",
		Source:        "email",
		SenderName:    "Alertas Banco",
		SenderAddress: "alertas@banco.example",
		Merchant:      merchant,
		Amount:        testAmount(t, "1234.56"),
		Currency:      "ARS",
		CardLast4:     "1234",
	}
	msg.ComputeHash()
	return msg
}

func TestMigrate_Idempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second migrate failed: %v", err)
	}

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("failed to get schema version: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, ExpectedSchemaVersion)
	}
}
