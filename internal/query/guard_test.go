package query

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/testutil"
)

func seededGuard(t *testing.T, n int) *Guard {
	t.Helper()
	store := testutil.SetupTestDB(t)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	txs := make([]model.Transaction, 0, n)
	for i := 0; i < n; i++ {
		txs = append(txs, model.Transaction{
			Date:        start.AddDate(0, 0, i%300),
			Time:        model.DefaultTime,
			Type:        model.TypeExpense,
			Category1:   "식비",
			Description: fmt.Sprintf("meal %d", i),
			Amount:      -int64(1000 + i),
			Currency:    "KRW",
		})
	}
	_, err := store.ReplaceTransactions(context.Background(), "alice", txs)
	require.NoError(t, err)

	return &Guard{Runner: store}
}

func TestCheck(t *testing.T) {
	tests := []struct {
		name    string
		sql     string
		want    string
		keyword string
	}{
		{name: "select", sql: "  SELECT 1;  ", want: "SELECT 1"},
		{name: "lowercase with", sql: "with t as (select 1) select * from t", want: "with t as (select 1) select * from t"},
		{name: "column named like keyword", sql: "SELECT created_at, updated FROM transactions", want: "SELECT created_at, updated FROM transactions"},
		{name: "drop", sql: "DROP TABLE transactions", keyword: "DROP"},
		{name: "stacked delete", sql: "SELECT 1; delete from budgets", keyword: "DELETE"},
		{name: "pragma", sql: "pragma table_info(transactions)", keyword: "PRAGMA"},
		{name: "attach", sql: "SELECT 1 FROM x; ATTACH DATABASE 'x' AS y", keyword: "ATTACH"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Check(tt.sql)
			if tt.keyword != "" {
				require.ErrorIs(t, err, common.ErrQueryRejected)
				assert.Contains(t, err.Error(), tt.keyword)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCheck_MustBeginWithSelect(t *testing.T) {
	for _, sql := range []string{"", " ; ", "EXPLAIN SELECT 1", "SELECTION"} {
		_, err := Check(sql)
		assert.ErrorIs(t, err, common.ErrQueryRejected, sql)
	}
}

func TestGuard_RejectsDrop(t *testing.T) {
	g := seededGuard(t, 3)
	out := g.Execute(context.Background(), "DROP TABLE transactions")
	assert.True(t, strings.HasPrefix(out, "Error:"), out)
	assert.Contains(t, out, "DROP")

	still := g.Execute(context.Background(), "SELECT COUNT(*) AS n FROM transactions")
	assert.Contains(t, still, "3")
}

func TestGuard_Limit(t *testing.T) {
	g := seededGuard(t, 20)
	out := g.Execute(context.Background(), "SELECT description, amount FROM transactions ORDER BY id LIMIT 5")

	lines := strings.Split(out, "\n")
	require.Len(t, lines, 7, out)
	assert.Equal(t, "description  amount", strings.TrimSpace(lines[0]))
	assert.True(t, strings.HasPrefix(lines[1], "-----------"))
	assert.Contains(t, lines[2], "meal 0")
	assert.Contains(t, lines[2], "-1000")
	assert.NotContains(t, out, "showing the first")
}

func TestGuard_CapsRows(t *testing.T) {
	g := seededGuard(t, 500)
	out := g.Execute(context.Background(), "SELECT id FROM transactions")

	lines := strings.Split(out, "\n")
	assert.Len(t, lines, 2+DefaultMaxRows+1)
	assert.Contains(t, lines[len(lines)-1], "showing the first 200 rows")
}

func TestGuard_CustomCap(t *testing.T) {
	g := seededGuard(t, 10)
	g.MaxRows = 4
	out := g.Execute(context.Background(), "SELECT id FROM transactions;")
	assert.Contains(t, out, "showing the first 4 rows")
}

func TestGuard_NoRowsAndErrors(t *testing.T) {
	g := seededGuard(t, 1)

	assert.Equal(t, "The query returned no rows.",
		g.Execute(context.Background(), "SELECT * FROM transactions WHERE owner = 'nobody'"))

	out := g.Execute(context.Background(), "SELECT * FROM no_such_table")
	assert.True(t, strings.HasPrefix(out, "Query error:"), out)
	assert.Contains(t, out, "no_such_table")
}

type stubRunner struct {
	result model.QueryResult
	err    error
	limit  int
}

func (s *stubRunner) QueryReadOnly(_ context.Context, _ string, limit int) (model.QueryResult, error) {
	s.limit = limit
	return s.result, s.err
}

func TestGuard_PassesCapToRunner(t *testing.T) {
	runner := &stubRunner{err: errors.New("boom")}
	g := &Guard{Runner: runner}
	assert.Equal(t, "Query error: boom", g.Execute(context.Background(), "select 1"))
	assert.Equal(t, DefaultMaxRows, runner.limit)
}

func TestRender(t *testing.T) {
	out := Render(model.QueryResult{
		Columns: []string{"category_1", "total"},
		Rows:    [][]string{{"식비", "-120000"}, {"교통", "NULL"}},
	})
	lines := strings.Split(out, "\n")
	require.Len(t, lines, 4)
	assert.True(t, strings.HasPrefix(lines[0], "category_1  total"))
	assert.Equal(t, "----------  -----", lines[1])
}
