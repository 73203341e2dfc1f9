package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// BackupManager snapshots the database file before destructive operations.
type BackupManager struct {
	db         *sql.DB
	dbPath     string
	backupsDir string
}

// BackupInfo describes one stored backup.
type BackupInfo struct {
	CreatedAt     time.Time      `json:"created_at"`
	RowCounts     map[string]int `json:"row_counts"`
	ID            string         `json:"id"`
	Reason        string         `json:"reason"`
	FileSize      int64          `json:"file_size"`
	SchemaVersion int            `json:"schema_version"`
}

// Backup errors.
var (
	ErrBackupNotFound = errors.New("backup not found")
	ErrBackupExists   = errors.New("backup already exists")
	ErrInvalidTag     = errors.New("invalid backup tag")
)

var backupTables = []string{"transactions", "asset_snapshots", "budgets", "processed_files"}

// NewBackupManager creates a manager writing to a backups dir beside the database.
func NewBackupManager(db *sql.DB, dbPath string) (*BackupManager, error) {
	backupsDir := filepath.Join(filepath.Dir(dbPath), "backups")
	if err := os.MkdirAll(backupsDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create backups directory: %w", err)
	}

	return &BackupManager{db: db, dbPath: dbPath, backupsDir: backupsDir}, nil
}

// Create writes a consistent copy of the database. An empty tag is
// generated from the current time.
func (bm *BackupManager) Create(ctx context.Context, tag, reason string) (*BackupInfo, error) {
	if tag == "" {
		tag = fmt.Sprintf("backup-%s", time.Now().Format("2006-01-02-150405"))
	}
	if strings.ContainsAny(tag, `/\'";`) || strings.Contains(tag, "..") {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTag, tag)
	}

	dest := filepath.Join(bm.backupsDir, tag+".db")
	if _, err := os.Stat(dest); err == nil {
		return nil, ErrBackupExists
	}

	info := &BackupInfo{ID: tag, Reason: reason, CreatedAt: time.Now(), RowCounts: make(map[string]int)}

	if err := bm.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&info.SchemaVersion); err != nil {
		return nil, fmt.Errorf("failed to get schema version: %w", err)
	}
	for _, table := range backupTables {
		var n int
		// #nosec G202 - table names come from a fixed list
		if err := bm.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
			return nil, fmt.Errorf("failed to count %s: %w", table, err)
		}
		info.RowCounts[table] = n
	}

	absDest, err := filepath.Abs(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve backup path: %w", err)
	}
	// #nosec G201 - tag is validated above and contains no quotes
	if _, err := bm.db.ExecContext(ctx, fmt.Sprintf("VACUUM INTO '%s'", absDest)); err != nil {
		return nil, fmt.Errorf("failed to write backup: %w", err)
	}

	stat, err := os.Stat(dest)
	if err != nil {
		return nil, fmt.Errorf("failed to stat backup: %w", err)
	}
	info.FileSize = stat.Size()

	if err := bm.saveMetadata(tag, info); err != nil {
		if rmErr := os.Remove(dest); rmErr != nil {
			slog.Error("failed to remove backup after metadata save failure", "error", rmErr)
		}
		return nil, err
	}

	slog.Info("Created backup", "id", tag, "reason", reason, "size", info.FileSize)
	return info, nil
}

// List returns backups, newest first. Unreadable metadata files are skipped.
func (bm *BackupManager) List() ([]BackupInfo, error) {
	entries, err := os.ReadDir(bm.backupsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to read backups directory: %w", err)
	}

	var backups []BackupInfo
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".meta.json") {
			continue
		}
		info, err := bm.loadMetadata(filepath.Join(bm.backupsDir, entry.Name()))
		if err != nil {
			slog.Warn("Skipping unreadable backup metadata", "file", entry.Name(), "error", err)
			continue
		}
		backups = append(backups, *info)
	}

	sort.Slice(backups, func(i, j int) bool {
		return backups[i].CreatedAt.After(backups[j].CreatedAt)
	})
	return backups, nil
}

// Restore copies a backup over the database file. The storage handle must
// be closed first and reopened afterwards.
func (bm *BackupManager) Restore(id string) error {
	src := filepath.Join(bm.backupsDir, id+".db")
	if _, err := os.Stat(src); err != nil {
		return fmt.Errorf("%w: %s", ErrBackupNotFound, id)
	}
	if err := copyFile(src, bm.dbPath); err != nil {
		return err
	}
	// Stale WAL files would be replayed over the restored copy.
	for _, suffix := range []string{"-wal", "-shm"} {
		if err := os.Remove(bm.dbPath + suffix); err != nil && !os.IsNotExist(err) {
			return fmt.Errorf("failed to remove %s file: %w", suffix, err)
		}
	}
	return nil
}

func (bm *BackupManager) saveMetadata(tag string, info *BackupInfo) error {
	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metadata: %w", err)
	}
	path := filepath.Join(bm.backupsDir, tag+".meta.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to save metadata: %w", err)
	}
	return nil
}

func (bm *BackupManager) loadMetadata(path string) (*BackupInfo, error) {
	data, err := os.ReadFile(path) // #nosec G304 - path is built from the backups dir listing
	if err != nil {
		return nil, err
	}
	var info BackupInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// copyFile writes through a temp file so dst is never left half-written.
func copyFile(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 - src is inside the backups dir
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer func() { _ = in.Close() }()

	tmp := dst + ".tmp"
	out, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600) // #nosec G304
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", tmp, err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to copy backup: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close %s: %w", tmp, err)
	}
	return os.Rename(tmp, dst)
}
