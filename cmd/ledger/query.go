package main

import (
	"strings"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/query"
)

func queryCmd() *cobra.Command {
	var maxRows int

	cmd := &cobra.Command{
		Use:   "query <sql>",
		Short: "Run a read-only SQL query",
		Long: `Run a single SELECT (or WITH) statement against the ledger database.
Statements that could modify data are refused. Large results are cut
off at query.max_rows.`,
		Example: `  ledger query "SELECT category_1, SUM(amount) FROM transactions WHERE tx_type = 'expense' GROUP BY 1"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if maxRows <= 0 {
				maxRows = cfg.QueryMaxRows
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			guard := &query.Guard{Runner: store, MaxRows: maxRows}
			writeLine(cmd.OutOrStdout(), guard.Execute(ctx, strings.Join(args, " ")))
			return nil
		},
	}

	cmd.Flags().IntVar(&maxRows, "max-rows", 0, "row cap (default: query.max_rows)")
	return cmd
}
