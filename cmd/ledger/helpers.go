package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/config"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/storage"
)

// loadConfig reads the typed settings. Invalid settings are user errors.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(viper.GetViper())
	if err != nil {
		return nil, common.NewUserError("invalid configuration", err)
	}
	return cfg, nil
}

// openStorage opens and migrates the database. The returned cleanup closes it.
func openStorage(ctx context.Context, cfg *config.Config) (*storage.SQLiteStorage, func(), error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	cleanup := func() {
		if err := store.Close(); err != nil {
			slog.Error("failed to close database", "error", err)
		}
	}
	return store, cleanup, nil
}

// parseDateFlag parses an optional YYYY-MM-DD flag value.
func parseDateFlag(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}
	d, err := model.ParseDate(value)
	if err != nil {
		return time.Time{}, common.NewUserError(fmt.Sprintf("--%s must be YYYY-MM-DD", name), err)
	}
	return d, nil
}

// ownerFlag checks an --owner value against the configured household.
func ownerFlag(cfg *config.Config, owner string) (string, error) {
	owner = strings.TrimSpace(owner)
	if owner == "" {
		return "", nil
	}
	for _, name := range cfg.OwnerNames() {
		if name == owner {
			return owner, nil
		}
	}
	return "", common.NewUserError(fmt.Sprintf("unknown owner %q (configured: %s)", owner, strings.Join(cfg.OwnerNames(), ", ")), nil)
}

func writeLine(w io.Writer, s string) {
	if _, err := fmt.Fprintln(w, s); err != nil {
		slog.Error("failed to write output", "error", err)
	}
}
