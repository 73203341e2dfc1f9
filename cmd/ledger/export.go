package main

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/cli"
	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/export"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/report"
	"github.com/Veraticus/household-ledger/internal/sheets"
	"github.com/Veraticus/household-ledger/internal/storage"
)

func exportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the ledger to a workbook or Google Sheets",
	}

	cmd.AddCommand(exportXLSXCmd())
	cmd.AddCommand(exportSheetsCmd())

	return cmd
}

func exportXLSXCmd() *cobra.Command {
	var (
		owner string
		from  string
		to    string
	)

	cmd := &cobra.Command{
		Use:   "xlsx <file>",
		Short: "Write transactions, budgets and assets to an .xlsx file",
		Long: `Write a workbook with the budget report, the stored transactions and
every owner's latest asset statement. The transaction sheet uses the
same columns as the finance app, so it can be imported again.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			filter := storage.TransactionFilter{}
			if filter.Owner, err = ownerFlag(cfg, owner); err != nil {
				return err
			}
			if filter.Range.Start, err = parseDateFlag("from", from); err != nil {
				return err
			}
			if filter.Range.End, err = parseDateFlag("to", to); err != nil {
				return err
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := report.Build(ctx, store, cfg.ReferenceOwner, cfg.AverageMonths, time.Now())
			if err != nil {
				return err
			}
			txs, err := store.GetTransactions(ctx, filter)
			if err != nil {
				return err
			}
			latest, err := store.GetLatestAssets(ctx)
			if err != nil {
				return err
			}
			if filter.Owner != "" {
				latest = assetsOf(latest, filter.Owner)
			}

			f, err := os.Create(args[0])
			if err != nil {
				return fmt.Errorf("failed to create %s: %w", args[0], err)
			}
			if err := export.Write(f, export.Data{Budget: summary, Transactions: txs, Assets: latest}); err != nil {
				_ = f.Close()
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("failed to close %s: %w", args[0], err)
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Wrote %d transactions to %s", len(txs), args[0])))
			return nil
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "only this owner")
	cmd.Flags().StringVar(&from, "from", "", "earliest transaction date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "latest transaction date (YYYY-MM-DD)")
	return cmd
}

func assetsOf(rows []model.AssetSnapshot, owner string) []model.AssetSnapshot {
	var out []model.AssetSnapshot
	for _, r := range rows {
		if r.Owner == owner {
			out = append(out, r)
		}
	}
	return out
}

func exportSheetsCmd() *cobra.Command {
	var spreadsheetID string

	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Push the budget report to Google Sheets",
		Long: `Write the budget vs average report and the household net worth to a
Google Sheets tab. Authentication uses sheets.service_account_path, or
an OAuth2 client with a refresh token.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			sheetsCfg := cfg.Sheets
			if spreadsheetID != "" {
				sheetsCfg.SpreadsheetID = spreadsheetID
			}
			if err := sheetsCfg.Validate(); err != nil {
				return common.NewUserError("Google Sheets is not configured", err)
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := report.Build(ctx, store, cfg.ReferenceOwner, cfg.AverageMonths, time.Now())
			if err != nil {
				return err
			}

			writer, err := sheets.NewWriter(ctx, sheetsCfg, slog.Default())
			if err != nil {
				return err
			}
			id, err := writer.Write(ctx, summary)
			if err != nil {
				return err
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess("Budget report written to https://docs.google.com/spreadsheets/d/"+id))
			return nil
		},
	}

	cmd.Flags().StringVar(&spreadsheetID, "spreadsheet-id", "", "target spreadsheet (default: sheets.spreadsheet_id)")
	return cmd
}
