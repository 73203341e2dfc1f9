package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/household-ledger/internal/ledger"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/report"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func openWritten(t *testing.T, data Data) *excelize.File {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Write(&buf, data))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestWrite_TransactionsReadBack(t *testing.T) {
	txs := []model.Transaction{
		{Date: day(2024, 6, 2), Time: "12:30", Type: model.TypeExpense, Category1: "식비", Category2: "카페",
			Description: "Coffee", Amount: -4500, Currency: "KRW", PaymentSource: "Card", Owner: "alice"},
		{Date: day(2024, 6, 1), Time: "09:00", Type: model.TypeIncome, Category1: "급여",
			Description: "Salary", Amount: 3000000, Currency: "KRW", Owner: "alice"},
	}

	f := openWritten(t, Data{Transactions: txs})
	assert.Equal(t, []string{TransactionsSheet}, f.GetSheetList())

	rows, err := f.GetRows(TransactionsSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "owner", rows[0][10])

	got, err := ledger.Normalize(rows, ledger.Options{
		Range: model.NewDateRange(day(2024, 6, 1), day(2024, 6, 30)),
		Owner: "alice",
	})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "Coffee", got[0].Description)
	assert.Equal(t, int64(-4500), got[0].Amount)
	assert.Equal(t, model.TypeExpense, got[0].Type)
	assert.Equal(t, "카페", got[0].Category2)
	assert.Equal(t, model.TypeIncome, got[1].Type)
}

func TestWrite_EmptyTransactionsStillHasHeader(t *testing.T) {
	f := openWritten(t, Data{})
	rows, err := f.GetRows(TransactionsSheet)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, TransactionHeader, rows[0])
}

func TestWrite_BudgetAndAssets(t *testing.T) {
	lines := []model.BudgetLine{{Budget: model.Budget{Category: "식비", MonthlyAmount: 500000}, AvgMonthly: 420000}}
	summary := &report.Summary{
		GeneratedAt: day(2024, 7, 2),
		Months:      3,
		Lines:       lines,
		Totals:      model.Totals(lines),
	}
	assets := []model.AssetSnapshot{
		{Owner: "alice", SnapshotDate: day(2024, 6, 30), BalanceType: model.BalanceAsset, AssetType: "현금", AccountName: "Checking", Amount: 100},
		{Owner: "alice", SnapshotDate: day(2024, 6, 30), BalanceType: model.BalanceLiability, AssetType: "카드", AccountName: "Card", Amount: 30},
	}

	f := openWritten(t, Data{Budget: summary, Assets: assets})
	assert.Equal(t, []string{TransactionsSheet, BudgetSheet, AssetsSheet}, f.GetSheetList())

	budget, err := f.GetRows(BudgetSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	assert.Equal(t, "Household Budget", budget[0][0])
	assert.Equal(t, []string{"식비", "Variable", "500000", "420000", "80000"}, budget[4])

	assetRows, err := f.GetRows(AssetsSheet, excelize.Options{RawCellValue: true})
	require.NoError(t, err)
	require.Len(t, assetRows, 3)
	assert.Equal(t, "-30", assetRows[2][4])
}
