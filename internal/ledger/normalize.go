// Package ledger turns the export's transaction sheet into model transactions.
package ledger

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/workbook"
)

// headerSearchRows bounds how far down the sheet the header may sit.
const headerSearchRows = 5

// Options control filtering and provenance.
type Options struct {
	// Range restricts rows to an inclusive date span. Zero keeps every row.
	Range      model.DateRange
	Owner      string
	SourceFile string
}

// Stats describes what Normalize did with the sheet.
type Stats struct {
	FileRange  model.DateRange
	Rows       int
	Kept       int
	Skipped    int
	OutOfRange int
}

// Normalize converts a ledger grid into transactions.
func Normalize(grid workbook.Grid, opts Options) ([]model.Transaction, error) {
	txs, _, err := NormalizeWithStats(grid, opts)
	return txs, err
}

// NormalizeWithStats is Normalize plus row accounting. Rows with a blank
// date are dropped silently; rows whose date cannot be read are counted
// as skipped.
func NormalizeWithStats(grid workbook.Grid, opts Options) ([]model.Transaction, Stats, error) {
	var stats Stats

	headerRow, idx := findHeader(grid)
	if headerRow < 0 {
		return nil, stats, fmt.Errorf("%w: %s", common.ErrMissingDateColumn, sourceLabel(opts))
	}

	txs := make([]model.Transaction, 0, len(grid)-headerRow-1)
	for r := headerRow + 1; r < len(grid); r++ {
		row := grid[r]
		if isBlank(row) {
			continue
		}
		stats.Rows++

		rawDate := idx.value(row, ColDate)
		if rawDate == "" {
			continue
		}
		date, err := parseDate(rawDate)
		if err != nil {
			stats.Skipped++
			slog.Debug("Skipping ledger row", "file", opts.SourceFile, "row", r+1, "error", err)
			continue
		}

		stats.FileRange = stats.FileRange.Widen(date)
		if !opts.Range.IsZero() && !opts.Range.Contains(date) {
			stats.OutOfRange++
			continue
		}

		amount, _ := model.ParseAmount(idx.value(row, ColAmount))
		txs = append(txs, model.Transaction{
			Date:          date,
			Time:          parseClock(idx.value(row, ColTime)),
			Type:          parseType(idx.value(row, ColType), amount),
			Category1:     idx.value(row, ColCategory1),
			Category2:     idx.value(row, ColCategory2),
			Description:   idx.value(row, ColDescription),
			Amount:        amount,
			Currency:      idx.value(row, ColCurrency),
			PaymentSource: idx.value(row, ColPaymentSource),
			Memo:          idx.value(row, ColMemo),
			Owner:         opts.Owner,
			SourceFile:    opts.SourceFile,
		})
	}
	stats.Kept = len(txs)

	slog.Debug("Normalized ledger",
		"file", opts.SourceFile,
		"owner", opts.Owner,
		"rows", stats.Rows,
		"kept", stats.Kept,
		"skipped", stats.Skipped,
		"out_of_range", stats.OutOfRange)

	return txs, stats, nil
}

func findHeader(grid workbook.Grid) (int, columnIndex) {
	for r := 0; r < len(grid) && r < headerSearchRows; r++ {
		idx := indexHeader(grid[r])
		if _, ok := idx[ColDate]; ok {
			return r, idx
		}
	}
	return -1, nil
}

func isBlank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func sourceLabel(opts Options) string {
	if opts.SourceFile != "" {
		return opts.SourceFile
	}
	return "ledger sheet"
}
