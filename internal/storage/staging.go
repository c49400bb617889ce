package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flujo/flujo/internal/model"
)

// UpsertStagedMessage inserts a staged message keyed on (owner, hash).
// A conflict means the same logical message was already staged and is
// treated as a no-op; the return value reports whether a new row was
// actually inserted.
func (s *SQLiteStorage) UpsertStagedMessage(ctx context.Context, msg *model.StagedMessage) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateStagedMessage(msg); err != nil {
		return false, err
	}

	query := `
		INSERT INTO staged_messages (
			owner, provider, mailbox, provider_uid, message_id, gmail_message_id,
			subject, arrival_time, local_date, source, sender_name, sender_address,
			merchant, amount, currency, card_last4, processed, processed_at, hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(owner, hash) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		msg.Owner, msg.Provider, msg.Mailbox, msg.ProviderUID, nullable(msg.MessageID), nullable(msg.GmailMessageID),
		msg.Subject, msg.ArrivalTime, msg.LocalDate, msg.Source, nullable(msg.SenderName), nullable(msg.SenderAddress),
		nullable(msg.Merchant), amountString(msg.Amount), nullable(msg.Currency), nullable(msg.CardLast4),
		msg.Processed, msg.ProcessedAt, msg.Hash,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert staged message: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected > 0 {
		if id, idErr := result.LastInsertId(); idErr == nil {
			msg.ID = id
		}
	}

	return affected > 0, nil
}

// GetUnprocessedMessages returns unprocessed staged rows for an owner,
// oldest arrival first, capped at limit.
func (s *SQLiteStorage) GetUnprocessedMessages(ctx context.Context, owner string, limit int) ([]model.StagedMessage, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, owner, provider, mailbox, provider_uid, message_id, gmail_message_id,
			subject, arrival_time, local_date, source, sender_name, sender_address,
			merchant, amount, currency, card_last4, processed, processed_at, hash
		FROM staged_messages
		WHERE owner = ? AND processed = 0
		ORDER BY arrival_time ASC, id ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed messages: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var messages []model.StagedMessage
	for rows.Next() {
		msg, scanErr := scanStagedMessage(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		messages = append(messages, *msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating staged messages: %w", err)
	}

	return messages, nil
}

// MarkMessageProcessed persists the enriched fields and flips processed.
// "Processed" means a ledger decision was made for the row, not that a new
// ledger row was created.
func (s *SQLiteStorage) MarkMessageProcessed(ctx context.Context, msg *model.StagedMessage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if msg == nil || msg.ID == 0 {
		return fmt.Errorf("staged message must have an ID")
	}

	now := time.Now().UTC()
	query := `
		UPDATE staged_messages
		SET merchant = ?, amount = ?, currency = ?, card_last4 = ?,
			processed = 1, processed_at = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query,
		nullable(msg.Merchant), amountString(msg.Amount), nullable(msg.Currency), nullable(msg.CardLast4),
		now, msg.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to mark message processed: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("staged message %d not found", msg.ID)
	}

	msg.Processed = true
	msg.ProcessedAt = &now
	return nil
}

func scanStagedMessage(rows *sql.Rows) (*model.StagedMessage, error) {
	var msg model.StagedMessage
	var messageID, gmailMessageID, senderName, senderAddress sql.NullString
	var merchant, amount, currency, cardLast4 sql.NullString
	var processedAt sql.NullTime

	err := rows.Scan(
		&msg.ID, &msg.Owner, &msg.Provider, &msg.Mailbox, &msg.ProviderUID, &messageID, &gmailMessageID,
		&msg.Subject, &msg.ArrivalTime, &msg.LocalDate, &msg.Source, &senderName, &senderAddress,
		&merchant, &amount, &currency, &cardLast4, &msg.Processed, &processedAt, &msg.Hash,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan staged message: %w", err)
	}

	msg.MessageID = messageID.String
	msg.GmailMessageID = gmailMessageID.String
	msg.SenderName = senderName.String
	msg.SenderAddress = senderAddress.String
	msg.Merchant = merchant.String
	msg.Currency = currency.String
	msg.CardLast4 = cardLast4.String
	if processedAt.Valid {
		t := processedAt.Time
		msg.ProcessedAt = &t
	}
	if amount.Valid && amount.String != "" {
		d, derr := decimal.NewFromString(amount.String)
		if derr != nil {
			return nil, fmt.Errorf("corrupt amount on staged message %d: %w", msg.ID, derr)
		}
		msg.Amount = &d
	}

	return &msg, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func amountString(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.StringFixed(2)
}
