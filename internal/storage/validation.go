// Package storage provides the data persistence layer for the household ledger.
package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Veraticus/household-ledger/internal/model"
)

// Validation errors.
var (
	ErrNilContext         = errors.New("context cannot be nil")
	ErrEmptyString        = errors.New("string parameter cannot be empty")
	ErrInvalidDateRange   = errors.New("start date must not be after end date")
	ErrInvalidTransaction = errors.New("invalid transaction")
	ErrInvalidSnapshot    = errors.New("invalid asset snapshot")
	ErrInvalidBudget      = errors.New("invalid budget")
	ErrInvalidLimit       = errors.New("limit must be positive")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

func validateDateRange(r model.DateRange) error {
	if r.Start.IsZero() || r.End.IsZero() {
		return fmt.Errorf("%w: range is unset", ErrInvalidDateRange)
	}
	if r.Start.After(r.End) {
		return fmt.Errorf("%w: %s", ErrInvalidDateRange, r)
	}
	return nil
}

func validateTransaction(txn *model.Transaction) error {
	if txn.Date.IsZero() {
		return fmt.Errorf("%w: missing date", ErrInvalidTransaction)
	}
	if !txn.Type.Valid() {
		return fmt.Errorf("%w: unknown type %q", ErrInvalidTransaction, txn.Type)
	}
	return nil
}

func validateSnapshot(row *model.AssetSnapshot) error {
	switch row.BalanceType {
	case model.BalanceAsset, model.BalanceLiability:
	default:
		return fmt.Errorf("%w: unknown balance type %q", ErrInvalidSnapshot, row.BalanceType)
	}
	if strings.TrimSpace(row.AccountName) == "" {
		return fmt.Errorf("%w: missing account name", ErrInvalidSnapshot)
	}
	if row.Amount < 0 {
		return fmt.Errorf("%w: negative amount for %s", ErrInvalidSnapshot, row.AccountName)
	}
	return nil
}

func validateBudget(b *model.Budget) error {
	if strings.TrimSpace(b.Category) == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidBudget)
	}
	if b.MonthlyAmount < 0 {
		return fmt.Errorf("%w: negative monthly amount for %s", ErrInvalidBudget, b.Category)
	}
	return nil
}
