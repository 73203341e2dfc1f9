package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/household-ledger/internal/cli"
	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/report"
)

func budgetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "budgets",
		Short: "Manage monthly category budgets",
		Long: `Budgets hold one monthly target per major expense category. New
categories are added automatically after each import with a zero budget;
amounts and the fixed/variable flag are yours to edit.`,
	}

	cmd.AddCommand(listBudgetsCmd())
	cmd.AddCommand(setBudgetCmd())
	cmd.AddCommand(syncBudgetsCmd())

	return cmd
}

func listBudgetsCmd() *cobra.Command {
	var months int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show budgets against average spending",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if months <= 0 {
				months = cfg.AverageMonths
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			summary, err := report.Build(ctx, store, cfg.ReferenceOwner, months, time.Now())
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if len(summary.Lines) == 0 {
				writeLine(out, cli.FormatInfo("No budgets yet. Import an export or run 'ledger budgets sync'."))
				return nil
			}
			writeLine(out, cli.FormatTitle(fmt.Sprintf("Budget vs %d-month average", summary.Months)))
			writeLine(out, renderBudgets(summary))
			return nil
		},
	}

	cmd.Flags().IntVar(&months, "months", 0, "months to average (default: budget.average_months)")
	return cmd
}

func renderBudgets(summary *report.Summary) string {
	table := cli.Table{
		Headers: []string{"Category", "Type", "Budget", "Average", "Variance"},
		Align:   []cli.Align{cli.AlignLeft, cli.AlignLeft, cli.AlignRight, cli.AlignRight, cli.AlignRight},
	}
	for _, l := range summary.Lines {
		table.Rows = append(table.Rows, []string{
			l.Category,
			report.CostType(l.IsFixedCost),
			cli.FormatWon(l.MonthlyAmount),
			cli.FormatWon(l.AvgMonthly),
			cli.StyleAmount(l.Variance()),
		})
	}
	t := summary.Totals
	table.Rows = append(table.Rows,
		[]string{"", "", "", "", ""},
		[]string{"Fixed", "", cli.FormatWon(t.Fixed), cli.FormatWon(t.AvgFixed), cli.StyleAmount(t.Fixed - t.AvgFixed)},
		[]string{"Variable", "", cli.FormatWon(t.Variable), cli.FormatWon(t.AvgVariable), cli.StyleAmount(t.Variable - t.AvgVariable)},
		[]string{"Total", "", cli.FormatWon(t.Total), cli.FormatWon(t.AvgTotal), cli.StyleAmount(t.Total - t.AvgTotal)},
	)
	return table.Render()
}

func setBudgetCmd() *cobra.Command {
	var (
		fixed    bool
		variable bool
	)

	cmd := &cobra.Command{
		Use:   "set <category> <amount>",
		Short: "Set a category's monthly budget",
		Example: `  ledger budgets set 식비 600,000
  ledger budgets set 주거/통신 1200000 --fixed`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if fixed && variable {
				return common.NewUserError("--fixed and --variable are mutually exclusive", nil)
			}
			amount, ok := model.ParseAmount(args[1])
			if !ok || amount < 0 {
				return common.NewUserError(fmt.Sprintf("invalid amount %q", args[1]), nil)
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			budgets, err := store.GetBudgets(ctx)
			if err != nil {
				return err
			}
			budget, found := findBudget(budgets, args[0])
			if !found {
				return common.NewUserError(fmt.Sprintf("no budget for category %q; run 'ledger budgets sync' after importing", args[0]), common.ErrNotFound)
			}

			budget.MonthlyAmount = amount
			switch {
			case fixed:
				budget.IsFixedCost = true
			case variable:
				budget.IsFixedCost = false
			}
			if err := store.UpdateBudget(ctx, budget); err != nil {
				return err
			}

			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("%s: %s per month (%s)",
				budget.Category, cli.FormatWon(budget.MonthlyAmount), strings.ToLower(report.CostType(budget.IsFixedCost)))))
			return nil
		},
	}

	cmd.Flags().BoolVar(&fixed, "fixed", false, "mark the category as a fixed cost")
	cmd.Flags().BoolVar(&variable, "variable", false, "mark the category as a variable cost")
	return cmd
}

func findBudget(budgets []model.Budget, category string) (model.Budget, bool) {
	category = strings.TrimSpace(category)
	for _, b := range budgets {
		if b.Category == category {
			return b, true
		}
	}
	return model.Budget{}, false
}

func syncBudgetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Add budgets for newly seen categories",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}

			ctx := cmd.Context()
			store, cleanup, err := openStorage(ctx, cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			added, err := store.SyncCategories(ctx, cfg.ReferenceOwner)
			if err != nil {
				return err
			}
			writeLine(cmd.OutOrStdout(), cli.FormatSuccess(fmt.Sprintf("Added %d new categories.", added)))
			return nil
		},
	}
}
