package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/flujo/flujo/internal/model"
)

// UpsertLedgerTransaction inserts a ledger row keyed on the content hash.
// Hitting an existing hash is success, not an error: the same logical event
// was already promoted. Returns whether a new row was inserted.
func (s *SQLiteStorage) UpsertLedgerTransaction(ctx context.Context, txn *model.LedgerTransaction) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateLedgerTransaction(txn); err != nil {
		return false, err
	}

	tagsJSON := ""
	if len(txn.Tags) > 0 {
		tagsBytes, marshalErr := json.Marshal(txn.Tags)
		if marshalErr == nil {
			tagsJSON = string(tagsBytes)
		}
	}

	query := `
		INSERT INTO ledger_transactions (
			owner, amount, currency, local_date, description, merchant,
			raw_description, category_id, subcategory_id, payment_type,
			expense_mode, source, tags, hash
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(hash) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		txn.Owner, txn.Amount.StringFixed(2), txn.Currency, txn.LocalDate, txn.Description, nullable(txn.Merchant),
		nullable(txn.RawDescription), txn.CategoryID, txn.SubcategoryID, nullable(txn.PaymentType),
		nullable(txn.ExpenseMode), string(txn.Source), nullable(tagsJSON), txn.Hash,
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert ledger transaction: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	if affected > 0 {
		if id, idErr := result.LastInsertId(); idErr == nil {
			txn.ID = id
		}
	}

	return affected > 0, nil
}

// ListLedgerTransactions returns an owner's ledger rows, newest date first.
func (s *SQLiteStorage) ListLedgerTransactions(ctx context.Context, owner string, limit int) ([]model.LedgerTransaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT id, owner, amount, currency, local_date, description, merchant,
			raw_description, category_id, subcategory_id, payment_type,
			expense_mode, source, tags, hash, created_at
		FROM ledger_transactions
		WHERE owner = ?
		ORDER BY local_date DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, owner, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger transactions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var txns []model.LedgerTransaction
	for rows.Next() {
		var txn model.LedgerTransaction
		var amount, source string
		var merchant, rawDescription, paymentType, expenseMode, tags sql.NullString
		err := rows.Scan(
			&txn.ID, &txn.Owner, &amount, &txn.Currency, &txn.LocalDate, &txn.Description, &merchant,
			&rawDescription, &txn.CategoryID, &txn.SubcategoryID, &paymentType,
			&expenseMode, &source, &tags, &txn.Hash, &txn.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger transaction: %w", err)
		}

		amt, derr := decimal.NewFromString(amount)
		if derr != nil {
			return nil, fmt.Errorf("corrupt amount on ledger transaction %d: %w", txn.ID, derr)
		}
		txn.Amount = amt
		txn.Merchant = merchant.String
		txn.RawDescription = rawDescription.String
		txn.PaymentType = paymentType.String
		txn.ExpenseMode = expenseMode.String
		txn.Source = model.TransactionSource(source)
		if tags.Valid && tags.String != "" {
			if err := json.Unmarshal([]byte(tags.String), &txn.Tags); err != nil {
				return nil, fmt.Errorf("corrupt tags on ledger transaction %d: %w", txn.ID, err)
			}
		}
		txns = append(txns, txn)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger transactions: %w", err)
	}

	return txns, nil
}

// LedgerTransactionCount returns the number of ledger rows for an owner.
func (s *SQLiteStorage) LedgerTransactionCount(ctx context.Context, owner string) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM ledger_transactions WHERE owner = ?", owner).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count ledger transactions: %w", err)
	}
	return count, nil
}
