package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/flujo/flujo/internal/model"
)

// GetSyncCursor returns the cursor for an (owner, mailbox) pair, or nil when
// no sync has run yet.
func (s *SQLiteStorage) GetSyncCursor(ctx context.Context, owner, mailbox string) (*model.SyncCursor, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}
	if err := validateString(mailbox, "mailbox"); err != nil {
		return nil, err
	}

	var cursor model.SyncCursor
	err := s.db.QueryRowContext(ctx,
		"SELECT owner, mailbox, last_uid, updated_at FROM sync_cursors WHERE owner = ? AND mailbox = ?",
		owner, mailbox,
	).Scan(&cursor.Owner, &cursor.Mailbox, &cursor.LastUID, &cursor.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get sync cursor: %w", err)
	}

	return &cursor, nil
}

// AdvanceSyncCursor moves the cursor forward to uid. The MAX guard makes the
// operation monotonic: a stale caller can never rewind the cursor.
func (s *SQLiteStorage) AdvanceSyncCursor(ctx context.Context, owner, mailbox string, uid uint32) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(owner, "owner"); err != nil {
		return err
	}
	if err := validateString(mailbox, "mailbox"); err != nil {
		return err
	}

	query := `
		INSERT INTO sync_cursors (owner, mailbox, last_uid, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(owner, mailbox) DO UPDATE SET
			last_uid = MAX(last_uid, excluded.last_uid),
			updated_at = CURRENT_TIMESTAMP
	`

	if _, err := s.db.ExecContext(ctx, query, owner, mailbox, uid); err != nil {
		return fmt.Errorf("failed to advance sync cursor: %w", err)
	}

	return nil
}
