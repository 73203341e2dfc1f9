package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application expects.
// If the database cannot be migrated to this version, it's a fatal error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Transactions and asset snapshots",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS transactions (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					date TEXT NOT NULL,
					time TEXT NOT NULL DEFAULT '00:00',
					tx_type TEXT NOT NULL,
					category_1 TEXT NOT NULL DEFAULT '',
					category_2 TEXT NOT NULL DEFAULT '',
					description TEXT NOT NULL DEFAULT '',
					amount INTEGER NOT NULL,
					currency TEXT NOT NULL DEFAULT '',
					payment_source TEXT NOT NULL DEFAULT '',
					memo TEXT NOT NULL DEFAULT '',
					owner TEXT NOT NULL,
					source_file TEXT NOT NULL DEFAULT '',
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_transactions_owner_date ON transactions(owner, date)`,
				`CREATE INDEX idx_transactions_category ON transactions(category_1)`,

				`CREATE TABLE IF NOT EXISTS asset_snapshots (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					snapshot_date TEXT NOT NULL,
					balance_type TEXT NOT NULL CHECK (balance_type IN ('asset', 'liability')),
					asset_type TEXT NOT NULL DEFAULT '',
					account_name TEXT NOT NULL,
					amount INTEGER NOT NULL CHECK (amount >= 0),
					owner TEXT NOT NULL,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_asset_snapshots_owner_date ON asset_snapshots(owner, snapshot_date)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Category budgets",
		Up: func(tx *sql.Tx) error {
			_, err := tx.Exec(`CREATE TABLE IF NOT EXISTS budgets (
				category TEXT PRIMARY KEY,
				monthly_amount INTEGER NOT NULL DEFAULT 0 CHECK (monthly_amount >= 0),
				is_fixed_cost INTEGER NOT NULL DEFAULT 0,
				sort_order INTEGER NOT NULL DEFAULT 0,
				updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
			)`)
			if err != nil {
				return fmt.Errorf("failed to create budgets table: %w", err)
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Processed file markers",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS processed_files (
					filename TEXT PRIMARY KEY,
					owner TEXT NOT NULL,
					snapshot_date TEXT NOT NULL,
					processed_at DATETIME NOT NULL
				)`,
				`CREATE INDEX idx_processed_files_owner ON processed_files(owner)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// SchemaVersion returns the database's current user_version.
func (s *SQLiteStorage) SchemaVersion(ctx context.Context) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("failed to get schema version: %w", err)
	}
	return version, nil
}

// Migrate applies all pending database migrations.
func (s *SQLiteStorage) Migrate(ctx context.Context) error {
	currentVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return err
	}

	for _, migration := range migrations {
		if migration.Version <= currentVersion {
			continue
		}

		tx, txErr := s.db.BeginTx(ctx, nil)
		if txErr != nil {
			return fmt.Errorf("failed to begin transaction: %w", txErr)
		}

		if upErr := migration.Up(tx); upErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d failed: %w", migration.Version, upErr)
		}

		if _, execErr := tx.Exec(fmt.Sprintf("PRAGMA user_version = %d", migration.Version)); execErr != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to update schema version: %w", execErr)
		}

		if commitErr := tx.Commit(); commitErr != nil {
			return fmt.Errorf("failed to commit migration %d: %w", migration.Version, commitErr)
		}

		slog.Info("Applied migration",
			"version", migration.Version,
			"description", migration.Description)
	}

	finalVersion, err := s.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("failed to verify final schema version: %w", err)
	}

	if finalVersion != ExpectedSchemaVersion {
		return fmt.Errorf("database schema version mismatch: expected %d, got %d", ExpectedSchemaVersion, finalVersion)
	}

	return nil
}
