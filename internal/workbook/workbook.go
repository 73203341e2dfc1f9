// Package workbook turns vendor export bytes into plain cell grids.
package workbook

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"
	"golang.org/x/text/encoding/korean"
	"golang.org/x/text/transform"

	"github.com/Veraticus/household-ledger/internal/common"
)

const (
	assetSheetIndex  = 0
	ledgerSheetIndex = 1
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Grid is a ragged table of raw cell text.
type Grid [][]string

// Cell returns the value at (r, c), or "" when out of range.
func (g Grid) Cell(r, c int) string {
	if r < 0 || r >= len(g) || c < 0 || c >= len(g[r]) {
		return ""
	}
	return g[r][c]
}

// Width returns the length of the widest row.
func (g Grid) Width() int {
	width := 0
	for _, row := range g {
		if len(row) > width {
			width = len(row)
		}
	}
	return width
}

// Workbook holds the two sheets the vendor export carries.
// Assets is nil when the source has no asset statement (CSV exports).
type Workbook struct {
	Name   string
	Assets Grid
	Ledger Grid
}

// HasAssets reports whether an asset statement sheet is present.
func (w *Workbook) HasAssets() bool {
	return len(w.Assets) > 0
}

// Open reads an .xlsx or .csv payload. The extension of name selects the reader.
func Open(name string, data []byte) (*Workbook, error) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".xlsx":
		return openXLSX(name, data)
	case ".csv":
		return openCSV(name, data)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFile, name)
	}
}

func openXLSX(name string, data []byte) (*Workbook, error) {
	opts := excelize.Options{RawCellValue: true}

	f, err := excelize.OpenReader(bytes.NewReader(data), opts)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrMalformedSpreadsheet, name, err)
	}
	defer func() {
		if closeErr := f.Close(); closeErr != nil {
			slog.Warn("Failed to close workbook", "file", name, "error", closeErr)
		}
	}()

	sheets := f.GetSheetList()
	if len(sheets) <= ledgerSheetIndex {
		return nil, fmt.Errorf("%w: %s has %d sheet(s)", common.ErrMissingLedgerSheet, name, len(sheets))
	}

	wb := &Workbook{Name: name}

	assets, err := f.GetRows(sheets[assetSheetIndex], opts)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %w", common.ErrMalformedSpreadsheet, sheets[assetSheetIndex], err)
	}
	wb.Assets = assets

	ledger, err := f.GetRows(sheets[ledgerSheetIndex], opts)
	if err != nil {
		return nil, fmt.Errorf("%w: reading %q: %w", common.ErrMalformedSpreadsheet, sheets[ledgerSheetIndex], err)
	}
	wb.Ledger = ledger

	slog.Debug("Opened workbook",
		"file", name,
		"sheets", len(sheets),
		"asset_rows", len(wb.Assets),
		"ledger_rows", len(wb.Ledger))

	return wb, nil
}

func openCSV(name string, data []byte) (*Workbook, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	var src io.Reader = bytes.NewReader(data)
	if !utf8.Valid(data) {
		src = transform.NewReader(src, korean.EUCKR.NewDecoder())
	}

	r := csv.NewReader(src)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true

	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", common.ErrMalformedSpreadsheet, name, err)
	}

	slog.Debug("Opened CSV ledger", "file", name, "ledger_rows", len(rows))

	return &Workbook{Name: name, Ledger: rows}, nil
}
