// Package assets extracts a point-in-time balance statement from the
// asset sheet of a vendor export.
//
// The sheet is laid out for humans: a section marker, a header row that
// places assets on the left and liabilities on the right, a data block,
// then a totals row. Parse locates each piece by its label and reports
// what it could not find as a Status rather than an error.
package assets

import (
	"log/slog"
	"strings"
	"time"

	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/workbook"
)

// Status describes how far parsing got.
type Status int

const (
	// StatusParsed means at least one balance row was extracted.
	StatusParsed Status = iota
	// StatusNoMarker means the section marker was not found.
	StatusNoMarker
	// StatusNoHeader means no header row followed the marker.
	StatusNoHeader
	// StatusEmpty means the statement had no usable rows.
	StatusEmpty
)

func (s Status) String() string {
	switch s {
	case StatusParsed:
		return "parsed"
	case StatusNoMarker:
		return "no marker"
	case StatusNoHeader:
		return "no header"
	case StatusEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// Row is one balance line before it is stamped with owner and date.
type Row struct {
	BalanceType model.BalanceType
	AssetType   string
	AccountName string
	Amount      int64
}

// Result is the outcome of Parse.
type Result struct {
	Rows   []Row
	Status Status
}

// Snapshots stamps the rows for storage.
func (r Result) Snapshots(owner string, date time.Time) []model.AssetSnapshot {
	out := make([]model.AssetSnapshot, 0, len(r.Rows))
	for _, row := range r.Rows {
		out = append(out, model.AssetSnapshot{
			SnapshotDate: model.TruncateDate(date),
			BalanceType:  row.BalanceType,
			AssetType:    row.AssetType,
			AccountName:  row.AccountName,
			Amount:       row.Amount,
			Owner:        owner,
		})
	}
	return out
}

// Parse extracts the balance statement from grid.
func Parse(grid workbook.Grid, layout Layout) Result {
	layout = layout.withDefaults()

	markerRow := findMarker(grid, layout)
	if markerRow < 0 {
		slog.Debug("Asset statement marker not found", "marker", layout.Marker)
		return Result{Status: StatusNoMarker}
	}

	headerRow := findHeader(grid, markerRow, layout)
	if headerRow < 0 {
		slog.Debug("Asset statement header not found", "marker_row", markerRow)
		return Result{Status: StatusNoHeader}
	}

	header := grid[headerRow]
	data := dataBlock(grid, headerRow, layout.TotalMarker)
	split := splitColumn(header, layout)
	width := grid.Width()

	rows := parseBlock(header, data, 0, split, model.BalanceAsset, layout)
	rows = append(rows, parseBlock(header, data, split, width, model.BalanceLiability, layout)...)

	slog.Debug("Parsed asset statement",
		"header_row", headerRow,
		"data_rows", len(data),
		"split", split,
		"rows", len(rows))

	if len(rows) == 0 {
		return Result{Status: StatusEmpty}
	}
	return Result{Rows: rows, Status: StatusParsed}
}

func findMarker(grid workbook.Grid, layout Layout) int {
	for r := range grid {
		if strings.Contains(grid.Cell(r, layout.MarkerColumn), layout.Marker) {
			return r
		}
		if len(grid[r]) <= layout.MarkerColumn && strings.Contains(grid.Cell(r, 0), layout.Marker) {
			return r
		}
	}
	return -1
}

func findHeader(grid workbook.Grid, markerRow int, layout Layout) int {
	last := markerRow + layout.HeaderSearchRows
	for r := markerRow + 1; r <= last && r < len(grid); r++ {
		if rowContains(grid[r], layout.ItemLabel) && rowContains(grid[r], layout.ProductLabel) {
			return r
		}
	}
	return -1
}

func dataBlock(grid workbook.Grid, headerRow int, totalMarker string) workbook.Grid {
	start := headerRow + 1
	for r := start; r < len(grid); r++ {
		if strings.Contains(joinNonEmpty(grid[r]), totalMarker) {
			return grid[start:r]
		}
	}
	if start > len(grid) {
		return nil
	}
	return grid[start:]
}

// splitColumn returns the first column of the liability block.
func splitColumn(header []string, layout Layout) int {
	var items []int
	for c, v := range header {
		if strings.TrimSpace(v) == layout.ItemLabel {
			items = append(items, c)
		}
	}

	switch {
	case len(items) >= 2:
		return items[1]
	case len(items) == 1:
		return len(header) / 2
	default:
		return layout.FallbackSplit
	}
}

type blockColumns struct {
	item    int
	account int
	amount  int
}

func locateColumns(header []string, lo, hi int, layout Layout) (blockColumns, bool) {
	cols := blockColumns{item: -1, account: -1, amount: -1}
	for c := lo; c < hi && c < len(header); c++ {
		v := strings.TrimSpace(header[c])
		if v == "" {
			continue
		}
		switch {
		case cols.item < 0 && strings.Contains(v, layout.ItemLabel):
			cols.item = c
		case cols.account < 0 && containsAny(v, layout.AccountLabels):
			cols.account = c
		case cols.amount < 0 && containsAny(v, layout.AmountLabels):
			cols.amount = c
		}
	}
	return cols, cols.account >= 0 && cols.amount >= 0
}

func parseBlock(header []string, data workbook.Grid, lo, hi int, balance model.BalanceType, layout Layout) []Row {
	cols, ok := locateColumns(header, lo, hi, layout)
	if !ok {
		return nil
	}

	var rows []Row
	assetType := ""
	for r := range data {
		if cols.item >= 0 {
			if v := strings.TrimSpace(data.Cell(r, cols.item)); v != "" {
				assetType = v
			}
		}

		account := strings.TrimSpace(data.Cell(r, cols.account))
		amount, _ := model.ParseAmount(data.Cell(r, cols.amount))
		if amount < 0 {
			amount = -amount
		}

		if account == "" && amount == 0 {
			continue
		}
		// Liabilities only count when the sheet itself names the account and
		// carries a balance; the right block is padded with type-only rows.
		if balance == model.BalanceLiability && (account == "" || amount == 0) {
			continue
		}
		if account == "" {
			account = assetType
		}
		// Subtotals and merged-cell gaps above the first item name nothing.
		if account == "" {
			continue
		}

		rows = append(rows, Row{
			BalanceType: balance,
			AssetType:   assetType,
			AccountName: account,
			Amount:      amount,
		})
	}
	return rows
}

func rowContains(row []string, label string) bool {
	for _, v := range row {
		if strings.Contains(v, label) {
			return true
		}
	}
	return false
}

func containsAny(v string, labels []string) bool {
	for _, l := range labels {
		if strings.Contains(v, l) {
			return true
		}
	}
	return false
}

func joinNonEmpty(row []string) string {
	var b strings.Builder
	for _, v := range row {
		if v = strings.TrimSpace(v); v != "" {
			b.WriteString(v)
		}
	}
	return b.String()
}
