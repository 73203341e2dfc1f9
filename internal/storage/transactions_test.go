package storage

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-ledger/internal/model"
)

func TestReplaceTransactions_IdempotentReupload(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	batch := []model.Transaction{
		expense(day(2024, 3, 1), "식비", "Lunch", -9000),
		expense(day(2024, 3, 2), "교통", "Taxi", -15000),
		expense(day(2024, 3, 31), "식비", "Dinner", -32000),
	}

	for i := 0; i < 3; i++ {
		n, err := store.ReplaceTransactions(ctx, "alice", batch)
		require.NoError(t, err)
		assert.Equal(t, 3, n)
	}

	count, err := store.CountTransactions(ctx, "alice", model.DateRange{})
	require.NoError(t, err)
	assert.Equal(t, 3, count, "re-uploading the same batch must not duplicate rows")
}

func TestReplaceTransactions_ScopedToOwnerAndSpan(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.ReplaceTransactions(ctx, "alice", []model.Transaction{
		expense(day(2024, 1, 10), "식비", "January", -1000),
		expense(day(2024, 2, 10), "식비", "February", -2000),
		expense(day(2024, 3, 10), "식비", "March", -3000),
	})
	require.NoError(t, err)
	_, err = store.ReplaceTransactions(ctx, "bob", []model.Transaction{
		expense(day(2024, 2, 10), "식비", "Bob February", -5000),
	})
	require.NoError(t, err)

	// Alice re-uploads February only, with a corrected row.
	_, err = store.ReplaceTransactions(ctx, "alice", []model.Transaction{
		expense(day(2024, 2, 1), "식비", "February fixed", -2500),
		expense(day(2024, 2, 29), "식비", "Leap day", -100),
	})
	require.NoError(t, err)

	alice, err := store.GetTransactions(ctx, TransactionFilter{Owner: "alice"})
	require.NoError(t, err)
	var descs []string
	for _, txn := range alice {
		descs = append(descs, txn.Description)
	}
	assert.Equal(t, []string{"March", "Leap day", "February fixed", "January"}, descs)

	bob, err := store.GetTransactions(ctx, TransactionFilter{Owner: "bob"})
	require.NoError(t, err)
	require.Len(t, bob, 1)
	assert.Equal(t, "Bob February", bob[0].Description)
}

func TestReplaceTransactions_StampsOwnerAndRoundTrips(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	in := model.Transaction{
		Date:          day(2024, 5, 4),
		Type:          model.TypeIncome,
		Category1:     "급여",
		Category2:     "월급",
		Description:   "Salary",
		Amount:        3500000,
		Currency:      "KRW",
		PaymentSource: "Bank",
		Memo:          "May",
		Owner:         "someone-else",
		SourceFile:    "alice.zip",
	}
	_, err := store.ReplaceTransactions(ctx, "alice", []model.Transaction{in})
	require.NoError(t, err)

	got, err := store.GetTransactions(ctx, TransactionFilter{})
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.NotZero(t, got[0].ID)
	assert.Equal(t, "alice", got[0].Owner)
	assert.Equal(t, model.DefaultTime, got[0].Time)
	got[0].ID = 0
	in.Owner = "alice"
	in.Time = model.DefaultTime
	assert.Equal(t, in, got[0])
}

func TestReplaceTransactions_Validation(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	n, err := store.ReplaceTransactions(ctx, "alice", nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = store.ReplaceTransactions(ctx, "", []model.Transaction{expense(day(2024, 1, 1), "", "", 1)})
	assert.ErrorIs(t, err, ErrEmptyString)

	_, err = store.ReplaceTransactions(ctx, "alice", []model.Transaction{{Type: model.TypeExpense}})
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	_, err = store.ReplaceTransactions(ctx, "alice", []model.Transaction{{Date: day(2024, 1, 1), Type: "refund"}})
	assert.ErrorIs(t, err, ErrInvalidTransaction)

	//nolint:staticcheck // exercising the nil guard
	_, err = store.ReplaceTransactions(nil, "alice", nil)
	assert.ErrorIs(t, err, ErrNilContext)
}

func TestHasTransactionsInRange(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	_, err := store.ReplaceTransactions(ctx, "alice", []model.Transaction{
		expense(day(2024, 3, 15), "식비", "Lunch", -9000),
	})
	require.NoError(t, err)

	tests := []struct {
		name  string
		owner string
		r     model.DateRange
		want  bool
	}{
		{name: "covers row", owner: "alice", r: model.NewDateRange(day(2024, 3, 1), day(2024, 3, 31)), want: true},
		{name: "inclusive end", owner: "alice", r: model.NewDateRange(day(2024, 3, 1), day(2024, 3, 15)), want: true},
		{name: "inclusive start", owner: "alice", r: model.NewDateRange(day(2024, 3, 15), day(2024, 4, 1)), want: true},
		{name: "before row", owner: "alice", r: model.NewDateRange(day(2024, 1, 1), day(2024, 3, 14)), want: false},
		{name: "other owner", owner: "bob", r: model.NewDateRange(day(2024, 1, 1), day(2024, 12, 31)), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.HasTransactionsInRange(ctx, tt.owner, tt.r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = store.HasTransactionsInRange(ctx, "alice", model.DateRange{Start: day(2024, 2, 1), End: day(2024, 1, 1)})
	assert.ErrorIs(t, err, ErrInvalidDateRange)
}

func TestGetTransactions_Filters(t *testing.T) {
	store := createTestStorage(t)
	ctx := context.Background()

	income := expense(day(2024, 4, 25), "급여", "Salary", 3000000)
	income.Type = model.TypeIncome
	_, err := store.ReplaceTransactions(ctx, "alice", []model.Transaction{
		expense(day(2024, 4, 1), "식비", "Groceries", -50000),
		expense(day(2024, 4, 2), "교통", "Subway", -1400),
		expense(day(2024, 4, 3), "식비", "Cafe", -5500),
		income,
	})
	require.NoError(t, err)

	food, err := store.GetTransactions(ctx, TransactionFilter{Category1: "식비"})
	require.NoError(t, err)
	assert.Len(t, food, 2)

	incomes, err := store.GetTransactions(ctx, TransactionFilter{Type: model.TypeIncome})
	require.NoError(t, err)
	require.Len(t, incomes, 1)
	assert.Equal(t, "Salary", incomes[0].Description)

	ranged, err := store.GetTransactions(ctx, TransactionFilter{Range: model.NewDateRange(day(2024, 4, 2), day(2024, 4, 3))})
	require.NoError(t, err)
	assert.Len(t, ranged, 2)

	since, err := store.GetTransactions(ctx, TransactionFilter{Range: model.DateRange{Start: day(2024, 4, 3)}})
	require.NoError(t, err)
	assert.Len(t, since, 2, "open-ended range keeps everything from the start date")

	until, err := store.GetTransactions(ctx, TransactionFilter{Range: model.DateRange{End: day(2024, 4, 1)}})
	require.NoError(t, err)
	assert.Len(t, until, 1)

	limited, err := store.GetTransactions(ctx, TransactionFilter{Limit: 1})
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, "Salary", limited[0].Description, "newest first")

	_, err = store.GetTransactions(ctx, TransactionFilter{Limit: -1})
	assert.ErrorIs(t, err, ErrInvalidLimit)

	count, err := store.CountTransactions(ctx, "alice", model.NewDateRange(day(2024, 4, 1), day(2024, 4, 2)))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}
