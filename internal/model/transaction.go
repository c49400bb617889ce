package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionSource identifies where a ledger row came from.
type TransactionSource string

// Known transaction sources.
const (
	SourceEmail  TransactionSource = "email"
	SourceManual TransactionSource = "manual"
	SourceOther  TransactionSource = "other"
)

// LedgerTransaction represents a single financial event in the ledger.
// LocalDate carries date-only semantics in the business timezone; the
// arrival timestamp never reaches the ledger.
type LedgerTransaction struct {
	CreatedAt      time.Time
	CategoryID     *int64
	SubcategoryID  *int64
	Owner          string
	Currency       string
	LocalDate      string
	Description    string
	Merchant       string
	RawDescription string
	PaymentType    string
	ExpenseMode    string
	Hash           string
	Source         TransactionSource
	Tags           []string
	Amount         decimal.Decimal
	ID             int64
}

// Category is a user-defined classification bucket. Subcategories are
// categories with a parent.
type Category struct {
	CreatedAt time.Time
	ParentID  *int64
	Name      string
	ID        int64
	IsActive  bool
}
