package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
)

// MarkFileProcessed records that an auto-discovered file was ingested.
// A marker is written once; marking the same filename again keeps the first.
func (s *SQLiteStorage) MarkFileProcessed(ctx context.Context, f model.ProcessedFile) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(f.Filename, "filename"); err != nil {
		return err
	}
	if f.ProcessedAt.IsZero() {
		f.ProcessedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO processed_files (filename, owner, snapshot_date, processed_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(filename) DO NOTHING
	`, f.Filename, f.Owner, model.TruncateDate(f.SnapshotDate).Format(model.DateLayout), f.ProcessedAt.UTC())
	if err != nil {
		return common.NewStorageError("mark file processed", err)
	}
	return nil
}

// GetProcessedFilenames returns the set of filenames already ingested.
func (s *SQLiteStorage) GetProcessedFilenames(ctx context.Context) (map[string]bool, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `SELECT filename FROM processed_files`)
	if err != nil {
		return nil, common.NewStorageError("get processed files", err)
	}
	defer func() { _ = rows.Close() }()

	names := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, common.NewStorageError("get processed files", fmt.Errorf("failed to scan row: %w", err))
		}
		names[name] = true
	}
	if err := rows.Err(); err != nil {
		return nil, common.NewStorageError("get processed files", err)
	}
	return names, nil
}

// ClearAllData deletes transactions, asset snapshots and processed-file
// markers. Budgets and the schema are kept.
func (s *SQLiteStorage) ClearAllData(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	return s.withTx(ctx, "clear data", func(tx *sql.Tx) error {
		for _, table := range []string{"transactions", "asset_snapshots", "processed_files"} {
			res, err := tx.ExecContext(ctx, "DELETE FROM "+table)
			if err != nil {
				return fmt.Errorf("failed to clear %s: %w", table, err)
			}
			n, _ := res.RowsAffected()
			slog.Info("Cleared table", "table", table, "rows", n)
		}
		return nil
	})
}
