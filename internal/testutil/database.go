// Package testutil provides shared test helpers: throwaway databases and
// in-memory vendor export fixtures.
package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/Veraticus/household-ledger/internal/storage"
)

// SetupTestDB creates a migrated SQLite database in a temp dir.
// It is closed automatically when the test finishes.
func SetupTestDB(t *testing.T) *storage.SQLiteStorage {
	t.Helper()

	store, err := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("failed to close test database: %v", err)
		}
	})

	return store
}
