package ingest

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flujo/flujo/internal/common"
	"github.com/flujo/flujo/internal/model"
	"github.com/flujo/flujo/internal/service"
	"github.com/flujo/flujo/internal/storage"
)

func createTestStorage(t *testing.T) *storage.SQLiteStorage {
	t.Helper()
	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	require.NoError(t, store.Migrate(context.Background()))
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func testSyncConfig() SyncConfig {
	return SyncConfig{
		Owner:           "user1",
		Mailbox:         "INBOX",
		Days:            7,
		Limit:           50,
		FromFilter:      "alertas@banco",
		SubjectFilter:   "compra",
		DefaultCurrency: "ARS",
		Location:        time.UTC,
	}
}

func TestSyncer_Run_StagesNewMessages(t *testing.T) {
	store := createTestStorage(t)
	now := time.Now().UTC()

	mail := newMockMailbox(
		alertMessage(101, now.Add(-2*time.Hour), "RAPPI ARGENTINA", "1.234,56"),
		alertMessage(102, now.Add(-1*time.Hour), "PEDIDOS YA", "500,00"),
		&service.MailMessage{
			UID:           103,
			Subject:       "Fwd: Compra aprobada en RAPPI por ARS 10,00",
			SenderAddress: "alertas@banco.example",
			ArrivalTime:   now,
		},
		&service.MailMessage{
			UID:           104,
			Subject:       "Compra aprobada en TIENDA por ARS 10,00",
			SenderAddress: "promos@otro.example",
			ArrivalTime:   now,
		},
	)

	syncer := NewSyncer(store, mail, testSyncConfig())
	report, err := syncer.Run(context.Background())
	require.NoError(t, err)

	statuses := map[model.ItemStatus]int{}
	for _, item := range report.Items {
		statuses[item.Status]++
	}
	assert.Equal(t, 2, statuses[model.StatusStaged])
	assert.Equal(t, 2, statuses[model.StatusFiltered])
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 1, mail.closes, "mailbox session must be released")

	// Fields extracted at sync time land on the staged rows.
	staged, err := store.GetUnprocessedMessages(context.Background(), "user1", 10)
	require.NoError(t, err)
	require.Len(t, staged, 2)
	assert.Equal(t, "RAPPI ARGENTINA", staged[0].Merchant)
	require.NotNil(t, staged[0].Amount)
	assert.Equal(t, "1234.56", staged[0].Amount.StringFixed(2))

	cursor, err := store.GetSyncCursor(context.Background(), "user1", "INBOX")
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, uint32(104), cursor.LastUID)
}

func TestSyncer_Run_Idempotent(t *testing.T) {
	store := createTestStorage(t)
	now := time.Now().UTC()
	mail := newMockMailbox(
		alertMessage(101, now.Add(-2*time.Hour), "RAPPI ARGENTINA", "1.234,56"),
		alertMessage(102, now.Add(-1*time.Hour), "PEDIDOS YA", "500,00"),
	)

	first, err := NewSyncer(store, mail, testSyncConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, first.Succeeded)

	// Unchanged mailbox, no cursor reset: nothing new to stage.
	second, err := NewSyncer(store, mail, testSyncConfig()).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.Attempted)

	staged, err := store.GetUnprocessedMessages(context.Background(), "user1", 10)
	require.NoError(t, err)
	assert.Len(t, staged, 2)

	cursor, err := store.GetSyncCursor(context.Background(), "user1", "INBOX")
	require.NoError(t, err)
	assert.Equal(t, uint32(102), cursor.LastUID, "cursor must not move on an empty run")
}

func TestSyncer_Run_DuplicateContentAdvancesCursor(t *testing.T) {
	store := createTestStorage(t)
	now := time.Now().UTC()

	// Two mailbox copies of the same alert: distinct UIDs, identical content.
	a := alertMessage(101, now.Add(-2*time.Hour), "RAPPI ARGENTINA", "1.234,56")
	b := alertMessage(205, now.Add(-2*time.Hour), "RAPPI ARGENTINA", "1.234,56")
	b.Subject = a.Subject
	mail := newMockMailbox(a, b)

	report, err := NewSyncer(store, mail, testSyncConfig()).Run(context.Background())
	require.NoError(t, err)

	statuses := map[model.ItemStatus]int{}
	for _, item := range report.Items {
		statuses[item.Status]++
	}
	assert.Equal(t, 1, statuses[model.StatusStaged])
	assert.Equal(t, 1, statuses[model.StatusDuplicate])

	staged, err := store.GetUnprocessedMessages(context.Background(), "user1", 10)
	require.NoError(t, err)
	assert.Len(t, staged, 1, "one logical message stages once")

	cursor, err := store.GetSyncCursor(context.Background(), "user1", "INBOX")
	require.NoError(t, err)
	assert.Equal(t, uint32(205), cursor.LastUID, "duplicate still advances the cursor")
}

func TestSyncer_Run_ConnectFailureIsFatal(t *testing.T) {
	store := createTestStorage(t)
	mail := newMockMailbox()
	mail.connectErr = common.ErrMailboxAuth

	report, err := NewSyncer(store, mail, testSyncConfig()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrMailboxAuth))
	assert.Empty(t, report.Items)
}

func TestSyncer_Run_BatchLimitNewestFirst(t *testing.T) {
	store := createTestStorage(t)
	now := time.Now().UTC()
	mail := newMockMailbox(
		alertMessage(101, now.Add(-3*time.Hour), "MERCHANT A", "10,00"),
		alertMessage(102, now.Add(-2*time.Hour), "MERCHANT B", "20,00"),
		alertMessage(103, now.Add(-1*time.Hour), "MERCHANT C", "30,00"),
	)

	cfg := testSyncConfig()
	cfg.Limit = 2
	report, err := NewSyncer(store, mail, cfg).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, report.Attempted)

	// Newest UIDs are taken first when the batch is capped.
	assert.Equal(t, uint32(103), report.Items[0].UID)
	assert.Equal(t, uint32(102), report.Items[1].UID)
}
