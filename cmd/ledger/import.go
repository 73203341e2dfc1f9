package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/cli"
	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/config"
	"github.com/Veraticus/household-ledger/internal/discovery"
	"github.com/Veraticus/household-ledger/internal/ingest"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/reconcile"
	"github.com/Veraticus/household-ledger/internal/storage"
)

func importCmd() *cobra.Command {
	var (
		owner    string
		from     string
		to       string
		noSync   bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "import <files...>",
		Short: "Import finance app exports",
		Long: `Import one or more exports (.zip protected by the owner's password,
or a bare .xlsx). The owner and date range are read from each filename
unless given as flags. Files are processed oldest snapshot first; a file
that fails is reported and the rest continue.`,
		Example: `  # Import a monthly export
  ledger import "2024-01-01~2024-07-31 alice.zip"

  # Import a file whose name carries no owner or range
  ledger import export.xlsx --owner bob --from 2024-06-01 --to 2024-06-30`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			owner, err = ownerFlag(cfg, owner)
			if err != nil {
				return err
			}
			start, err := parseDateFlag("from", from)
			if err != nil {
				return err
			}
			end, err := parseDateFlag("to", to)
			if err != nil {
				return err
			}
			if start.IsZero() != end.IsZero() {
				return common.NewUserError("--from and --to must be given together", nil)
			}
			if !start.IsZero() && start.After(end) {
				return common.NewUserError("--from must not be after --to", nil)
			}

			items := importItems(args, cfg.DiscoveryOwners(), owner, model.NewDateRange(start, end), time.Now())

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			batch := runIngest(ctx, cmd.ErrOrStderr(), cfg, store, items, !noSync, progress)
			writeLine(cmd.OutOrStdout(), cli.BatchSummary(batch))
			return batchError(batch)
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "owner of every file (overrides the filename)")
	cmd.Flags().StringVar(&from, "from", "", "start of the export range (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "end of the export range and asset snapshot date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&noSync, "no-sync", false, "do not add budget rows for new categories")
	cmd.Flags().BoolVar(&progress, "progress", true, "show a progress bar")

	return cmd
}

// importItems turns command-line paths into pipeline items. An explicit
// owner or range replaces what the filename says.
func importItems(paths []string, owners []discovery.Owner, owner string, r model.DateRange, now time.Time) []ingest.Item {
	items := make([]ingest.Item, 0, len(paths))
	for _, path := range paths {
		item := discovery.ParseFilename(filepath.Base(path), owners, now)
		item.Path = path
		if owner != "" {
			item.Owner = owner
		}
		if !r.IsZero() {
			item.FileRange = r
		}
		items = append(items, item)
	}
	return items
}

// runIngest runs items through the pipeline with the configured passwords
// and reconciliation window.
func runIngest(ctx context.Context, w io.Writer, cfg *config.Config, store *storage.SQLiteStorage, items []ingest.Item, syncCategories, showProgress bool) ingest.BatchResult {
	pipeline := &ingest.Pipeline{
		Store:     store,
		Passwords: cfg.Passwords(),
		Policy: reconcile.Policy{
			Coverage:           store,
			RecentWindowMonths: cfg.RecentWindowMonths,
		},
		Clock: time.Now,
	}
	if showProgress {
		pipeline.Progress = cli.NewBatchProgress(w)
	}

	batch := pipeline.Run(ctx, items, ingest.Options{
		ReferenceOwner:   cfg.ReferenceOwner,
		SkipCategorySync: !syncCategories,
	})

	if interrupts.WasInterrupted() {
		writeLine(w, cli.FormatWarning("Files finished before the interrupt are saved. Run the command again for the rest."))
	}
	return batch
}

// batchError turns a batch with failures into a non-zero exit.
func batchError(batch ingest.BatchResult) error {
	if n := batch.Failed(); n > 0 {
		return fmt.Errorf("%d of %d files failed", n, len(batch.Files))
	}
	if batch.SyncErr != nil {
		return fmt.Errorf("category sync failed: %w", batch.SyncErr)
	}
	return nil
}
