package storage

import (
	"context"
	"testing"
)

func TestSyncCursor_Lifecycle(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	cursor, err := store.GetSyncCursor(ctx, "user1", "INBOX")
	if err != nil {
		t.Fatalf("get cursor failed: %v", err)
	}
	if cursor != nil {
		t.Fatal("expected nil cursor before first sync")
	}

	if err := store.AdvanceSyncCursor(ctx, "user1", "INBOX", 150); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	cursor, err = store.GetSyncCursor(ctx, "user1", "INBOX")
	if err != nil {
		t.Fatalf("get cursor failed: %v", err)
	}
	if cursor == nil || cursor.LastUID != 150 {
		t.Fatalf("cursor = %+v, want last_uid 150", cursor)
	}
}

func TestSyncCursor_Monotonic(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.AdvanceSyncCursor(ctx, "user1", "INBOX", 200); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	// A stale caller trying to move backwards must not rewind.
	if err := store.AdvanceSyncCursor(ctx, "user1", "INBOX", 100); err != nil {
		t.Fatalf("stale advance failed: %v", err)
	}

	cursor, err := store.GetSyncCursor(ctx, "user1", "INBOX")
	if err != nil {
		t.Fatalf("get cursor failed: %v", err)
	}
	if cursor.LastUID != 200 {
		t.Errorf("cursor rewound to %d, want 200", cursor.LastUID)
	}
}

func TestSyncCursor_ScopedPerMailbox(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.AdvanceSyncCursor(ctx, "user1", "INBOX", 50); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if err := store.AdvanceSyncCursor(ctx, "user1", "Alerts", 10); err != nil {
		t.Fatalf("advance failed: %v", err)
	}
	if err := store.AdvanceSyncCursor(ctx, "user2", "INBOX", 90); err != nil {
		t.Fatalf("advance failed: %v", err)
	}

	cursor, err := store.GetSyncCursor(ctx, "user1", "Alerts")
	if err != nil {
		t.Fatalf("get cursor failed: %v", err)
	}
	if cursor.LastUID != 10 {
		t.Errorf("cursor for (user1, Alerts) = %d, want 10", cursor.LastUID)
	}
}
