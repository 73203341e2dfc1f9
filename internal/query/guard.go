// Package query screens free-form SQL from the assistant and renders the
// results as text it can read back.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"text/tabwriter"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
)

// DefaultMaxRows caps how many rows a single query returns.
const DefaultMaxRows = 200

// rejected statements, matched as whole words in any case.
var rejected = []string{
	"INSERT", "UPDATE", "DELETE", "DROP", "ALTER", "CREATE", "REPLACE", "TRUNCATE",
	"ATTACH", "DETACH", "PRAGMA", "VACUUM", "REINDEX", "GRANT", "REVOKE",
}

var (
	rejectPattern = regexp.MustCompile(`(?i)\b(` + strings.Join(rejected, "|") + `)\b`)
	leadPattern   = regexp.MustCompile(`(?i)^(SELECT|WITH)\b`)
)

// Runner executes a statement that has passed the guard.
type Runner interface {
	QueryReadOnly(ctx context.Context, statement string, limit int) (model.QueryResult, error)
}

// Guard admits read-only statements and turns every outcome into text.
type Guard struct {
	Runner  Runner
	MaxRows int
}

// Check returns the normalized statement or an error wrapping
// common.ErrQueryRejected.
func Check(sql string) (string, error) {
	stmt := strings.TrimSpace(sql)
	stmt = strings.TrimSpace(strings.TrimSuffix(stmt, ";"))
	if stmt == "" {
		return "", fmt.Errorf("%w: empty query", common.ErrQueryRejected)
	}
	if m := rejectPattern.FindString(stmt); m != "" {
		return "", fmt.Errorf("%w: %s statements are not allowed", common.ErrQueryRejected, strings.ToUpper(m))
	}
	if !leadPattern.MatchString(stmt) {
		return "", fmt.Errorf("%w: only SELECT or WITH queries are allowed", common.ErrQueryRejected)
	}
	return stmt, nil
}

// Execute runs sql and returns either a rendered table or a message. It
// never fails; rejections and errors come back as text.
func (g *Guard) Execute(ctx context.Context, sql string) string {
	stmt, err := Check(sql)
	if err != nil {
		slog.Warn("Rejected query", "error", err)
		return "Error: " + err.Error()
	}

	maxRows := g.MaxRows
	if maxRows <= 0 {
		maxRows = DefaultMaxRows
	}

	result, err := g.Runner.QueryReadOnly(ctx, stmt, maxRows)
	if err != nil {
		slog.Debug("Query failed", "error", err)
		return "Query error: " + err.Error()
	}
	if len(result.Rows) == 0 {
		return "The query returned no rows."
	}

	out := Render(result)
	if result.Truncated {
		out += fmt.Sprintf("\n(showing the first %d rows; add a LIMIT or aggregate for the rest)", maxRows)
	}
	return out
}

// Render lays result out as a space-aligned table with a header rule.
func Render(result model.QueryResult) string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 2, ' ', 0)

	fmt.Fprintln(w, strings.Join(result.Columns, "\t"))
	rule := make([]string, len(result.Columns))
	for i, c := range result.Columns {
		rule[i] = strings.Repeat("-", max(len(c), 3))
	}
	fmt.Fprintln(w, strings.Join(rule, "\t"))
	for _, row := range result.Rows {
		fmt.Fprintln(w, strings.Join(row, "\t"))
	}
	_ = w.Flush()

	return strings.TrimRight(b.String(), "\n")
}
