package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/cli"
	"github.com/Veraticus/household-ledger/internal/config"
	"github.com/Veraticus/household-ledger/internal/discovery"
)

func scanCmd() *cobra.Command {
	var (
		dir      string
		dryRun   bool
		progress bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Import new exports from the documents folder",
		Long: `Scan the documents folder (ingest.docs_dir) for .zip and .xlsx exports
that have not been imported yet and import them. A file is only marked
as processed after it is stored, so failed files are retried next time.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.DocsDir
			}
			dir = config.ExpandPath(dir)

			scanner := &discovery.Scanner{Dir: dir, Owners: cfg.DiscoveryOwners(), Clock: time.Now}
			found, err := scanner.Scan()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			processed, err := store.GetProcessedFilenames(ctx)
			if err != nil {
				return err
			}
			pending := discovery.Pending(found, processed)

			out := cmd.OutOrStdout()
			if len(pending) == 0 {
				writeLine(out, cli.FormatInfo(fmt.Sprintf("No new files in %s (%d already imported).", dir, len(found))))
				return nil
			}

			if dryRun {
				writeLine(out, cli.FormatTitle(fmt.Sprintf("%d new files", len(pending))))
				table := cli.Table{Headers: []string{"File", "Owner", "Range"}}
				for _, item := range pending {
					table.Rows = append(table.Rows, []string{item.Name, item.Owner, item.FileRange.String()})
				}
				writeLine(out, table.Render())
				return nil
			}

			batch := runIngest(ctx, cmd.ErrOrStderr(), cfg, store, pending, true, progress)
			writeLine(out, cli.BatchSummary(batch))
			return batchError(batch)
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "folder to scan (default: ingest.docs_dir)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "list new files without importing them")
	cmd.Flags().BoolVar(&progress, "progress", true, "show a progress bar")

	return cmd
}
