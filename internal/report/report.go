// Package report assembles the budget-versus-spending summary shared by
// the terminal, xlsx and Google Sheets outputs.
package report

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/Veraticus/household-ledger/internal/model"
)

// DefaultAverageMonths is the spending window averaged against budgets.
const DefaultAverageMonths = 3

// Source is the storage the report reads from.
type Source interface {
	GetBudgets(ctx context.Context) ([]model.Budget, error)
	GetCategoryAverages(ctx context.Context, referenceOwner string, months int, now time.Time) ([]model.CategoryAverage, error)
	GetAssetHistory(ctx context.Context, owner string) ([]model.NetWorthPoint, error)
}

// Summary is a point-in-time budget report.
type Summary struct {
	GeneratedAt time.Time
	Owner       string
	Lines       []model.BudgetLine
	NetWorth    []model.NetWorthPoint
	Totals      model.BudgetTotals
	Months      int
}

// Build reads budgets, averages and the latest net worth of every owner.
// An empty referenceOwner averages everyone's spending.
func Build(ctx context.Context, src Source, referenceOwner string, months int, now time.Time) (*Summary, error) {
	if months <= 0 {
		months = DefaultAverageMonths
	}

	budgets, err := src.GetBudgets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load budgets: %w", err)
	}
	averages, err := src.GetCategoryAverages(ctx, referenceOwner, months, now)
	if err != nil {
		return nil, fmt.Errorf("failed to load category averages: %w", err)
	}
	history, err := src.GetAssetHistory(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("failed to load asset history: %w", err)
	}

	lines := model.BudgetReport(budgets, averages)
	return &Summary{
		GeneratedAt: now,
		Owner:       referenceOwner,
		Months:      months,
		Lines:       lines,
		Totals:      model.Totals(lines),
		NetWorth:    LatestPerOwner(history),
	}, nil
}

// LatestPerOwner keeps each owner's most recent point, ordered by owner.
// history must be sorted by date, as storage returns it.
func LatestPerOwner(history []model.NetWorthPoint) []model.NetWorthPoint {
	latest := make(map[string]int)
	var out []model.NetWorthPoint
	for _, p := range history {
		if i, ok := latest[p.Owner]; ok {
			out[i] = p
			continue
		}
		latest[p.Owner] = len(out)
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Owner < out[j].Owner })
	return out
}

// CostType labels a budget line for display.
func CostType(fixed bool) string {
	if fixed {
		return "Fixed"
	}
	return "Variable"
}

// Rows renders the summary as spreadsheet rows: a title block, one row per
// category, fixed/variable/total subtotals and a net worth block.
func (s *Summary) Rows() [][]any {
	scope := "all owners"
	if s.Owner != "" {
		scope = s.Owner
	}

	values := make([][]any, 0, len(s.Lines)+len(s.NetWorth)+12)
	values = append(values,
		[]any{"Household Budget", s.GeneratedAt.Format(model.DateLayout)},
		[]any{fmt.Sprintf("Average of the last %d months, %s", s.Months, scope)},
		[]any{},
		[]any{"Category", "Type", "Monthly Budget", "Monthly Average", "Variance"},
	)
	for _, l := range s.Lines {
		values = append(values, []any{l.Category, CostType(l.IsFixedCost), l.MonthlyAmount, l.AvgMonthly, l.Variance()})
	}

	t := s.Totals
	values = append(values,
		[]any{},
		[]any{"Fixed costs", "", t.Fixed, t.AvgFixed, t.Fixed - t.AvgFixed},
		[]any{"Variable costs", "", t.Variable, t.AvgVariable, t.Variable - t.AvgVariable},
		[]any{"Total", "", t.Total, t.AvgTotal, t.Total - t.AvgTotal},
	)

	if len(s.NetWorth) > 0 {
		values = append(values,
			[]any{},
			[]any{"Owner", "Snapshot", "Assets", "Liabilities", "Net Worth"},
		)
		for _, p := range s.NetWorth {
			values = append(values, []any{p.Owner, p.SnapshotDate.Format(model.DateLayout), p.TotalAssets, p.TotalLiabilities, p.NetWorth})
		}
	}
	return values
}
