// Package model defines the core data structures for the flujo pipeline.
package model

import (
	"crypto/sha256"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/flujo/flujo/internal/normalize"
)

// StagedMessage is one mailbox message observed during a sync run. Rows are
// created by Sync, enriched and flipped to processed by Promote, and never
// deleted.
type StagedMessage struct {
	ArrivalTime    time.Time
	ProcessedAt    *time.Time
	Amount         *decimal.Decimal
	Owner          string
	Provider       string
	Mailbox        string
	MessageID      string
	GmailMessageID string
	Subject        string
	LocalDate      string
	Source         string
	SenderName     string
	SenderAddress  string
	Merchant       string
	Currency       string
	CardLast4      string
	Hash           string
	ID             int64
	ProviderUID    uint32
	Processed      bool
}

// HasExtractedFields reports whether the message already carries everything
// Promote needs, letting it skip the mailbox fallback.
func (m *StagedMessage) HasExtractedFields() bool {
	return m.Merchant != "" && m.Amount != nil && m.Currency != ""
}

// ContentHash computes the idempotency key for a message. It is derived from
// business fields rather than the provider UID, because UIDs are not stable
// across mailbox copies or moves.
func ContentHash(owner, localDate, merchant string, amount *decimal.Decimal, currency, subject string) string {
	amountStr := ""
	if amount != nil {
		amountStr = amount.Round(2).StringFixed(2)
	}
	data := fmt.Sprintf("%s:%s:%s:%s:%s:%s",
		owner,
		localDate,
		normalize.ForMatch(merchant),
		amountStr,
		currency,
		normalize.ForMatch(subject),
	)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeHash fills the Hash field from the message's own content.
func (m *StagedMessage) ComputeHash() {
	m.Hash = ContentHash(m.Owner, m.LocalDate, m.Merchant, m.Amount, m.Currency, m.Subject)
}
