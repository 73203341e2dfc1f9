package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/cli"
	"github.com/Veraticus/household-ledger/internal/storage"
)

func migrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		Long: `Initialize or update the database schema to the latest version.
Every other command migrates on open; this one reports what it did.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			before, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if status {
				writeLine(out, fmt.Sprintf("Database:       %s", cfg.DatabasePath))
				writeLine(out, fmt.Sprintf("Schema version: %d (latest %d)", before, storage.ExpectedSchemaVersion))
				return nil
			}

			slog.Info("Running database migrations", "database", cfg.DatabasePath, "from", before)
			if err := store.Migrate(ctx); err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			after, err := store.SchemaVersion(ctx)
			if err != nil {
				return err
			}

			if after == before {
				writeLine(out, cli.FormatInfo(fmt.Sprintf("Schema already at version %d.", after)))
				return nil
			}
			writeLine(out, cli.FormatSuccess(fmt.Sprintf("Migrated schema from version %d to %d.", before, after)))
			return nil
		},
	}

	cmd.Flags().BoolVar(&status, "status", false, "show the schema version without migrating")
	return cmd
}
