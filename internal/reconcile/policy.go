// Package reconcile decides how much of an uploaded file to trust when it
// overlaps data already stored for the same owner.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/Veraticus/household-ledger/internal/model"
)

// DefaultRecentWindowMonths is how far back from the file's end date a
// re-upload is allowed to rewrite history.
const DefaultRecentWindowMonths = 2

// Coverage reports whether an owner already has transactions in a range.
type Coverage interface {
	HasTransactionsInRange(ctx context.Context, owner string, r model.DateRange) (bool, error)
}

// Decision is the outcome of resolving a file's range.
type Decision struct {
	Effective model.DateRange
	File      model.DateRange
	Overlap   bool
}

// Policy resolves effective ranges. The zero RecentWindowMonths uses the default.
type Policy struct {
	Coverage           Coverage
	RecentWindowMonths int
}

// Resolve returns the range of the file that should replace stored data.
// With no stored rows in the file's range the whole file is trusted;
// otherwise only the trailing window ending at the file's end date is,
// since older months were already settled by an earlier upload.
func (p Policy) Resolve(ctx context.Context, owner string, file model.DateRange) (Decision, error) {
	file = model.NewDateRange(file.Start, file.End)

	overlap, err := p.Coverage.HasTransactionsInRange(ctx, owner, file)
	if err != nil {
		return Decision{}, fmt.Errorf("checking stored coverage for %s: %w", owner, err)
	}

	decision := Decision{File: file, Effective: file, Overlap: overlap}
	if overlap {
		decision.Effective = model.DateRange{Start: MonthsBefore(file.End, p.window()), End: file.End}
	}

	slog.Debug("Resolved effective range",
		"owner", owner,
		"file_range", file.String(),
		"effective", decision.Effective.String(),
		"overlap", overlap)

	return decision, nil
}

func (p Policy) window() int {
	if p.RecentWindowMonths <= 0 {
		return DefaultRecentWindowMonths
	}
	return p.RecentWindowMonths
}

// MonthsBefore moves d back n calendar months, clamping the day to the
// last day of the target month (2024-03-31 minus one month is 2024-02-29).
func MonthsBefore(d time.Time, n int) time.Time {
	y, m, day := d.Date()

	target := time.Date(y, m-time.Month(n), 1, 0, 0, 0, 0, time.UTC)
	last := target.AddDate(0, 1, -1).Day()
	if day > last {
		day = last
	}
	return time.Date(target.Year(), target.Month(), day, 0, 0, 0, 0, time.UTC)
}
