package storage

import (
	"context"
	"fmt"

	"github.com/flujo/flujo/internal/model"
)

func validateContext(ctx context.Context) error {
	if ctx == nil {
		return fmt.Errorf("context cannot be nil")
	}
	return nil
}

func validateString(value, name string) error {
	if value == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

func validateStagedMessage(msg *model.StagedMessage) error {
	if msg == nil {
		return fmt.Errorf("staged message cannot be nil")
	}
	if msg.Owner == "" {
		return fmt.Errorf("staged message owner cannot be empty")
	}
	if msg.Mailbox == "" {
		return fmt.Errorf("staged message mailbox cannot be empty")
	}
	if msg.Hash == "" {
		return fmt.Errorf("staged message hash cannot be empty")
	}
	if msg.LocalDate == "" {
		return fmt.Errorf("staged message local date cannot be empty")
	}
	return nil
}

func validateLedgerTransaction(txn *model.LedgerTransaction) error {
	if txn == nil {
		return fmt.Errorf("ledger transaction cannot be nil")
	}
	if txn.Owner == "" {
		return fmt.Errorf("ledger transaction owner cannot be empty")
	}
	if txn.Currency == "" {
		return fmt.Errorf("ledger transaction currency cannot be empty")
	}
	if txn.LocalDate == "" {
		return fmt.Errorf("ledger transaction local date cannot be empty")
	}
	if txn.Hash == "" {
		return fmt.Errorf("ledger transaction hash cannot be empty")
	}
	return nil
}
