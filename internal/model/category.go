package model

import "time"

// Budget is the monthly target for one major category. The category set is
// derived from observed transactions; the remaining fields belong to the user.
type Budget struct {
	Category      string
	MonthlyAmount int64
	SortOrder     int
	IsFixedCost   bool
}

// CategoryAverage is the average monthly spend for a category over a window.
type CategoryAverage struct {
	Category     string
	AvgMonthly   int64
	Transactions int
}

// ProcessedFile marks an auto-discovered input file as ingested.
type ProcessedFile struct {
	ProcessedAt  time.Time
	SnapshotDate time.Time
	Filename     string
	Owner        string
}

// BudgetLine pairs a budget with observed spending for reporting.
type BudgetLine struct {
	Budget
	AvgMonthly int64
}

// Variance is the budget minus the observed monthly average.
func (l BudgetLine) Variance() int64 {
	return l.MonthlyAmount - l.AvgMonthly
}

// BudgetReport joins budgets with averages by category, keeping budget order.
// Categories without observed spending report an average of zero.
func BudgetReport(budgets []Budget, averages []CategoryAverage) []BudgetLine {
	avg := make(map[string]int64, len(averages))
	for _, a := range averages {
		avg[a.Category] = a.AvgMonthly
	}

	lines := make([]BudgetLine, 0, len(budgets))
	for _, b := range budgets {
		lines = append(lines, BudgetLine{Budget: b, AvgMonthly: avg[b.Category]})
	}
	return lines
}

// BudgetTotals splits a report into fixed and variable sums.
type BudgetTotals struct {
	Total       int64
	Fixed       int64
	Variable    int64
	AvgTotal    int64
	AvgFixed    int64
	AvgVariable int64
}

// Totals sums a budget report.
func Totals(lines []BudgetLine) BudgetTotals {
	var t BudgetTotals
	for _, l := range lines {
		t.Total += l.MonthlyAmount
		t.AvgTotal += l.AvgMonthly
		if l.IsFixedCost {
			t.Fixed += l.MonthlyAmount
			t.AvgFixed += l.AvgMonthly
		}
	}
	t.Variable = t.Total - t.Fixed
	t.AvgVariable = t.AvgTotal - t.AvgFixed
	return t
}
