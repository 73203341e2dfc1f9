package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/cli"
	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/storage"
)

func transactionsCmd() *cobra.Command {
	var (
		owner    string
		from     string
		to       string
		category string
		txType   string
		limit    int
	)

	cmd := &cobra.Command{
		Use:     "transactions",
		Aliases: []string{"tx"},
		Short:   "List stored transactions",
		Example: `  ledger transactions --owner alice --from 2024-06-01 --to 2024-06-30
  ledger tx --category 식비 --type expense --limit 20`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			filter := storage.TransactionFilter{Category1: category, Limit: limit}
			if filter.Owner, err = ownerFlag(cfg, owner); err != nil {
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
			filter.Range = model.DateRange{Start: start, End: end}
			if txType != "" {
				filter.Type = model.TransactionType(txType)
				if !filter.Type.Valid() {
					return common.NewUserError(fmt.Sprintf("--type must be income, expense or transfer, not %q", txType), nil)
				}
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			txs, err := store.GetTransactions(ctx, filter)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(txs) == 0 {
				writeLine(out, cli.FormatInfo("No matching transactions."))
				return nil
			}
			writeLine(out, renderTransactions(txs))

			var net int64
			for _, t := range txs {
				net += t.Amount
			}
			writeLine(out, fmt.Sprintf("\n%d transactions, net %s", len(txs), cli.StyleAmount(net)))
			return nil
		},
	}

	cmd.Flags().StringVarP(&owner, "owner", "o", "", "only this owner")
	cmd.Flags().StringVar(&from, "from", "", "earliest date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&to, "to", "", "latest date (YYYY-MM-DD)")
	cmd.Flags().StringVarP(&category, "category", "c", "", "major category")
	cmd.Flags().StringVarP(&txType, "type", "t", "", "income, expense or transfer")
	cmd.Flags().IntVarP(&limit, "limit", "n", 50, "maximum rows (0 for all)")
	return cmd
}

func renderTransactions(txs []model.Transaction) string {
	table := cli.Table{
		Headers: []string{"Date", "Owner", "Type", "Category", "Description", "Amount", "Source"},
		Align:   []cli.Align{cli.AlignLeft, cli.AlignLeft, cli.AlignLeft, cli.AlignLeft, cli.AlignLeft, cli.AlignRight, cli.AlignLeft},
	}
	for _, t := range txs {
		category := t.Category1
		if t.Category2 != "" {
			category += " > " + t.Category2
		}
		table.Rows = append(table.Rows, []string{
			t.Date.Format(model.DateLayout) + " " + t.Time,
			t.Owner,
			string(t.Type),
			category,
			t.Description,
			cli.StyleAmount(t.Amount),
			t.PaymentSource,
		})
	}
	return table.Render()
}
