package report

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/testutil"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestBuild(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()

	txs := []model.Transaction{
		{Date: day(2024, 5, 10), Time: "12:00", Type: model.TypeExpense, Category1: "식비", Amount: -30000},
		{Date: day(2024, 6, 10), Time: "12:00", Type: model.TypeExpense, Category1: "식비", Amount: -60000},
		{Date: day(2024, 6, 11), Time: "12:00", Type: model.TypeExpense, Category1: "주거비", Amount: -900000},
		{Date: day(2024, 6, 12), Time: "12:00", Type: model.TypeIncome, Category1: "급여", Amount: 3000000},
	}
	_, err := store.ReplaceTransactions(ctx, "alice", txs)
	require.NoError(t, err)
	_, err = store.SyncCategories(ctx, "")
	require.NoError(t, err)
	require.NoError(t, store.SaveBudgets(ctx, []model.Budget{
		{Category: "주거비", MonthlyAmount: 1000000, IsFixedCost: true},
		{Category: "식비", MonthlyAmount: 50000},
	}))

	for _, snap := range []struct {
		date   time.Time
		amount int64
	}{{day(2024, 5, 31), 100}, {day(2024, 6, 30), 200}} {
		_, err = store.ReplaceAssetSnapshot(ctx, "alice", snap.date, []model.AssetSnapshot{
			{BalanceType: model.BalanceAsset, AssetType: "현금", AccountName: "Checking", Amount: snap.amount},
		})
		require.NoError(t, err)
	}

	summary, err := Build(ctx, store, "", 3, day(2024, 6, 30))
	require.NoError(t, err)

	require.Len(t, summary.Lines, 2)
	assert.Equal(t, "주거비", summary.Lines[0].Category)
	assert.Equal(t, int64(300000), summary.Lines[0].AvgMonthly)
	assert.Equal(t, "식비", summary.Lines[1].Category)
	assert.Equal(t, int64(30000), summary.Lines[1].AvgMonthly)
	assert.Equal(t, int64(20000), summary.Lines[1].Variance())

	assert.Equal(t, int64(1050000), summary.Totals.Total)
	assert.Equal(t, int64(1000000), summary.Totals.Fixed)
	assert.Equal(t, int64(50000), summary.Totals.Variable)

	require.Len(t, summary.NetWorth, 1)
	assert.Equal(t, int64(200), summary.NetWorth[0].NetWorth)
}

func TestBuild_DefaultMonths(t *testing.T) {
	summary, err := Build(context.Background(), testutil.SetupTestDB(t), "bob", 0, day(2024, 6, 30))
	require.NoError(t, err)
	assert.Equal(t, DefaultAverageMonths, summary.Months)
	assert.Empty(t, summary.Lines)
}

func TestLatestPerOwner(t *testing.T) {
	history := []model.NetWorthPoint{
		{Owner: "bob", SnapshotDate: day(2024, 1, 31)},
		{Owner: "alice", SnapshotDate: day(2024, 2, 29)},
		{Owner: "bob", SnapshotDate: day(2024, 3, 31)},
	}
	latest := LatestPerOwner(history)
	require.Len(t, latest, 2)
	assert.Equal(t, "alice", latest[0].Owner)
	assert.Equal(t, "bob", latest[1].Owner)
	assert.Equal(t, day(2024, 3, 31), latest[1].SnapshotDate)
}

func TestSummary_Rows(t *testing.T) {
	lines := []model.BudgetLine{
		{Budget: model.Budget{Category: "주거비", MonthlyAmount: 1000, IsFixedCost: true}, AvgMonthly: 900},
		{Budget: model.Budget{Category: "식비", MonthlyAmount: 500}, AvgMonthly: 700},
	}
	s := &Summary{
		GeneratedAt: day(2024, 7, 2),
		Months:      3,
		Lines:       lines,
		Totals:      model.Totals(lines),
		NetWorth: []model.NetWorthPoint{{
			Owner:          "alice",
			SnapshotDate:   day(2024, 6, 30),
			BalanceSummary: model.BalanceSummary{TotalAssets: 10, TotalLiabilities: 4, NetWorth: 6},
		}},
	}

	rows := s.Rows()
	assert.Equal(t, []any{"Household Budget", "2024-07-02"}, rows[0])
	assert.Equal(t, []any{"Average of the last 3 months, all owners"}, rows[1])
	assert.Equal(t, []any{"주거비", "Fixed", int64(1000), int64(900), int64(100)}, rows[4])
	assert.Equal(t, []any{"식비", "Variable", int64(500), int64(700), int64(-200)}, rows[5])
	assert.Equal(t, []any{"Total", "", int64(1500), int64(1600), int64(-100)}, rows[9])
	assert.Equal(t, []any{"alice", "2024-06-30", int64(10), int64(4), int64(6)}, rows[len(rows)-1])
}
