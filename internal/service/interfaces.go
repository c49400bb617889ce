// Package service defines the interfaces for the pipeline's collaborators.
package service

import (
	"context"
	"time"

	"github.com/flujo/flujo/internal/model"
)

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Staging operations
	UpsertStagedMessage(ctx context.Context, msg *model.StagedMessage) (inserted bool, err error)
	GetUnprocessedMessages(ctx context.Context, owner string, limit int) ([]model.StagedMessage, error)
	MarkMessageProcessed(ctx context.Context, msg *model.StagedMessage) error

	// Ledger operations
	UpsertLedgerTransaction(ctx context.Context, txn *model.LedgerTransaction) (inserted bool, err error)

	// Cursor operations
	GetSyncCursor(ctx context.Context, owner, mailbox string) (*model.SyncCursor, error)
	AdvanceSyncCursor(ctx context.Context, owner, mailbox string, uid uint32) error

	// Rule operations
	GetActiveMerchantRules(ctx context.Context, owner string) ([]model.MerchantRule, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// MailMessage is one fetched mailbox message, already reduced to the fields
// the pipeline consumes.
type MailMessage struct {
	ArrivalTime   time.Time
	MessageID     string
	Subject       string
	SenderName    string
	SenderAddress string
	TextBody      string
	HTMLBody      string
	UID           uint32
}

// Body returns the best available plain text for extraction: the text part,
// falling back to the tag-stripped HTML part.
func (m *MailMessage) Body() string {
	if m.TextBody != "" {
		return m.TextBody
	}
	return m.HTMLBody
}

// Mailbox is a stateful session against a single mailbox. Connect fails
// fatally on auth or network errors; Close must run on every exit path.
// Sessions are not safe for concurrent use.
type Mailbox interface {
	Connect(ctx context.Context) error
	SearchWindow(ctx context.Context, since, before time.Time) ([]uint32, error)
	FetchMessage(ctx context.Context, uid uint32) (*MailMessage, error)
	Close() error
}
