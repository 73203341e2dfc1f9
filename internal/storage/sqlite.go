package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Veraticus/household-ledger/internal/common"

	_ "github.com/mattn/go-sqlite3" // SQLite driver
)

// SQLiteStorage persists ledger data in a single SQLite file.
type SQLiteStorage struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStorage opens (creating if needed) the database at dbPath.
func NewSQLiteStorage(dbPath string) (*SQLiteStorage, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on")
	if err != nil {
		return nil, common.NewStorageError("open", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, common.NewStorageError("open", fmt.Errorf("failed to ping database: %w", err))
	}

	return &SQLiteStorage{db: db, dbPath: dbPath}, nil
}

// newWithDB wraps an existing handle. Used by tests with sqlmock.
func newWithDB(db *sql.DB) *SQLiteStorage {
	return &SQLiteStorage{db: db}
}

// Close closes the database connection.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *SQLiteStorage) Path() string {
	return s.dbPath
}

// NewBackupManager creates a backup manager for this storage instance.
func (s *SQLiteStorage) NewBackupManager() (*BackupManager, error) {
	return NewBackupManager(s.db, s.dbPath)
}

// withTx runs fn in one SQL transaction, committing only when fn succeeds.
// Every failure comes back as a StorageError tagged with op.
func (s *SQLiteStorage) withTx(ctx context.Context, op string, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return common.NewStorageError(op, fmt.Errorf("failed to begin transaction: %w", err))
	}
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return common.NewStorageError(op, err)
	}

	if err := tx.Commit(); err != nil {
		return common.NewStorageError(op, fmt.Errorf("failed to commit: %w", err))
	}
	return nil
}
