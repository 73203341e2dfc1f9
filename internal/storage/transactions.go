package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
)

// TransactionFilter narrows GetTransactions. Zero fields match everything.
type TransactionFilter struct {
	// Range bounds are inclusive; a zero Start or End leaves that side open.
	Range     model.DateRange
	Owner     string
	Category1 string
	Type      model.TransactionType
	Limit     int
}

// ReplaceTransactions removes the owner's stored rows between the earliest
// and latest date of txs and inserts txs in their place, all in one SQL
// transaction. Rows outside that span, and rows of other owners, are left
// alone. An empty batch is a no-op.
func (s *SQLiteStorage) ReplaceTransactions(ctx context.Context, owner string, txs []model.Transaction) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}
	if err := validateString(owner, "owner"); err != nil {
		return 0, err
	}
	if len(txs) == 0 {
		return 0, nil
	}

	for i := range txs {
		if err := validateTransaction(&txs[i]); err != nil {
			return 0, fmt.Errorf("transaction at index %d: %w", i, err)
		}
	}
	span := model.Span(txs)

	var deleted int64
	err := s.withTx(ctx, "replace transactions", func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`DELETE FROM transactions WHERE owner = ? AND date >= ? AND date <= ?`,
			owner, span.Start.Format(model.DateLayout), span.End.Format(model.DateLayout))
		if err != nil {
			return fmt.Errorf("failed to delete existing rows: %w", err)
		}
		deleted, _ = res.RowsAffected()

		return insertTransactions(ctx, tx, owner, txs)
	})
	if err != nil {
		return 0, err
	}

	slog.Info("Replaced transactions",
		"owner", owner,
		"range", span.String(),
		"deleted", deleted,
		"inserted", len(txs))

	return len(txs), nil
}

func insertTransactions(ctx context.Context, tx *sql.Tx, owner string, txs []model.Transaction) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO transactions (
			date, time, tx_type, category_1, category_2, description,
			amount, currency, payment_source, memo, owner, source_file
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer func() { _ = stmt.Close() }()

	for i := range txs {
		txn := &txs[i]
		clock := txn.Time
		if clock == "" {
			clock = model.DefaultTime
		}
		if _, err := stmt.ExecContext(ctx,
			txn.Date.Format(model.DateLayout),
			clock,
			string(txn.Type),
			txn.Category1,
			txn.Category2,
			txn.Description,
			txn.Amount,
			txn.Currency,
			txn.PaymentSource,
			txn.Memo,
			owner,
			txn.SourceFile,
		); err != nil {
			return fmt.Errorf("failed to insert transaction dated %s: %w", txn.Date.Format(model.DateLayout), err)
		}
	}
	return nil
}

// HasTransactionsInRange reports whether the owner has any stored row in r.
func (s *SQLiteStorage) HasTransactionsInRange(ctx context.Context, owner string, r model.DateRange) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateDateRange(r); err != nil {
		return false, err
	}

	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM transactions WHERE owner = ? AND date >= ? AND date <= ?)`,
		owner, r.Start.Format(model.DateLayout), r.End.Format(model.DateLayout),
	).Scan(&exists)
	if err != nil {
		return false, common.NewStorageError("check coverage", err)
	}
	return exists, nil
}

// CountTransactions counts the owner's rows in r. A zero range counts all rows.
func (s *SQLiteStorage) CountTransactions(ctx context.Context, owner string, r model.DateRange) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	where, args := buildTransactionWhere(TransactionFilter{Owner: owner, Range: r})

	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM transactions"+where, args...).Scan(&count); err != nil {
		return 0, common.NewStorageError("count transactions", err)
	}
	return count, nil
}

// GetTransactions returns matching rows, newest first.
func (s *SQLiteStorage) GetTransactions(ctx context.Context, filter TransactionFilter) ([]model.Transaction, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if filter.Limit < 0 {
		return nil, ErrInvalidLimit
	}

	where, args := buildTransactionWhere(filter)
	query := `SELECT id, date, time, tx_type, category_1, category_2, description,
			amount, currency, payment_source, memo, owner, source_file
		FROM transactions` + where + ` ORDER BY date DESC, time DESC, id DESC`
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, common.NewStorageError("get transactions", err)
	}
	defer func() { _ = rows.Close() }()

	var txs []model.Transaction
	for rows.Next() {
		var (
			txn    model.Transaction
			date   string
			txType string
		)
		if err := rows.Scan(
			&txn.ID, &date, &txn.Time, &txType, &txn.Category1, &txn.Category2, &txn.Description,
			&txn.Amount, &txn.Currency, &txn.PaymentSource, &txn.Memo, &txn.Owner, &txn.SourceFile,
		); err != nil {
			return nil, common.NewStorageError("get transactions", fmt.Errorf("failed to scan row: %w", err))
		}
		if txn.Date, err = model.ParseDate(date); err != nil {
			return nil, common.NewStorageError("get transactions", fmt.Errorf("bad stored date %q: %w", date, err))
		}
		txn.Type = model.TransactionType(txType)
		txs = append(txs, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("get transactions", err)
	}
	return txs, nil
}

func buildTransactionWhere(f TransactionFilter) (string, []any) {
	var (
		clauses []string
		args    []any
	)
	if f.Owner != "" {
		clauses = append(clauses, "owner = ?")
		args = append(args, f.Owner)
	}
	if !f.Range.Start.IsZero() {
		clauses = append(clauses, "date >= ?")
		args = append(args, f.Range.Start.Format(model.DateLayout))
	}
	if !f.Range.End.IsZero() {
		clauses = append(clauses, "date <= ?")
		args = append(args, f.Range.End.Format(model.DateLayout))
	}
	if f.Category1 != "" {
		clauses = append(clauses, "category_1 = ?")
		args = append(args, f.Category1)
	}
	if f.Type != "" {
		clauses = append(clauses, "tx_type = ?")
		args = append(args, string(f.Type))
	}
	if len(clauses) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(clauses, " AND "), args
}
