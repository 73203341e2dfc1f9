// Package export writes ledger data to an .xlsx workbook.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/household-ledger/internal/ledger"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/report"
)

// Sheet names in the exported workbook.
const (
	TransactionsSheet = "Transactions"
	BudgetSheet       = "Budget"
	AssetsSheet       = "Assets"
)

// TransactionHeader uses the canonical column names, so an exported sheet
// can be read back by the ledger normalizer.
var TransactionHeader = []string{
	ledger.ColDate, ledger.ColTime, ledger.ColType, ledger.ColCategory1, ledger.ColCategory2,
	ledger.ColDescription, ledger.ColAmount, ledger.ColCurrency, ledger.ColPaymentSource,
	ledger.ColMemo, "owner",
}

// Data is everything a workbook can hold. Nil or empty parts are skipped,
// except Transactions, which always gets a sheet.
type Data struct {
	Budget       *report.Summary
	Transactions []model.Transaction
	Assets       []model.AssetSnapshot
}

// Write renders data as an .xlsx workbook into w.
func Write(w io.Writer, data Data) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", TransactionsSheet); err != nil {
		return fmt.Errorf("failed to rename sheet: %w", err)
	}

	styles, err := newStyles(f)
	if err != nil {
		return err
	}

	if err := writeTransactions(f, styles, data.Transactions); err != nil {
		return err
	}
	if data.Budget != nil {
		if err := writeSheet(f, styles, BudgetSheet, data.Budget.Rows(), 3); err != nil {
			return err
		}
	}
	if len(data.Assets) > 0 {
		if err := writeSheet(f, styles, AssetsSheet, assetRows(data.Assets), 0); err != nil {
			return err
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

type styles struct {
	header int
	money  int
}

func newStyles(f *excelize.File) (styles, error) {
	header, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"4F81BD"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return styles{}, fmt.Errorf("failed to create header style: %w", err)
	}
	numFmt := "#,##0"
	money, err := f.NewStyle(&excelize.Style{CustomNumFmt: &numFmt})
	if err != nil {
		return styles{}, fmt.Errorf("failed to create number style: %w", err)
	}
	return styles{header: header, money: money}, nil
}

func writeTransactions(f *excelize.File, st styles, txs []model.Transaction) error {
	rows := make([][]any, 0, len(txs)+1)
	header := make([]any, len(TransactionHeader))
	for i, h := range TransactionHeader {
		header[i] = h
	}
	rows = append(rows, header)

	for _, t := range txs {
		rows = append(rows, []any{
			t.Date.Format(model.DateLayout), t.Time, string(t.Type), t.Category1, t.Category2,
			t.Description, t.Amount, t.Currency, t.PaymentSource, t.Memo, t.Owner,
		})
	}

	if err := setRows(f, TransactionsSheet, rows); err != nil {
		return err
	}
	last, _ := excelize.ColumnNumberToName(len(TransactionHeader))
	if err := f.SetCellStyle(TransactionsSheet, "A1", last+"1", st.header); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}
	if len(txs) > 0 {
		if err := f.SetCellStyle(TransactionsSheet, "G2", fmt.Sprintf("G%d", len(txs)+1), st.money); err != nil {
			return fmt.Errorf("failed to style amounts: %w", err)
		}
	}
	if err := f.SetColWidth(TransactionsSheet, "F", "F", 30); err != nil {
		return fmt.Errorf("failed to set column width: %w", err)
	}
	return f.SetPanes(TransactionsSheet, &excelize.Panes{
		Freeze:      true,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	})
}

// writeSheet adds a sheet of rows and styles the row at headerIndex.
func writeSheet(f *excelize.File, st styles, sheet string, rows [][]any, headerIndex int) error {
	if _, err := f.NewSheet(sheet); err != nil {
		return fmt.Errorf("failed to add sheet %s: %w", sheet, err)
	}
	if err := setRows(f, sheet, rows); err != nil {
		return err
	}
	if headerIndex < len(rows) {
		row := headerIndex + 1
		last, _ := excelize.ColumnNumberToName(max(len(rows[headerIndex]), 1))
		if err := f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("%s%d", last, row), st.header); err != nil {
			return fmt.Errorf("failed to style %s header: %w", sheet, err)
		}
	}
	if err := f.SetCellStyle(sheet, "C1", fmt.Sprintf("E%d", max(len(rows), 1)), st.money); err != nil {
		return fmt.Errorf("failed to style %s amounts: %w", sheet, err)
	}
	return f.SetColWidth(sheet, "A", "E", 16)
}

func assetRows(snapshots []model.AssetSnapshot) [][]any {
	rows := [][]any{{"Owner", "Snapshot", "Type", "Balance", "Signed", "Account"}}
	for _, s := range snapshots {
		rows = append(rows, []any{
			s.Owner, s.SnapshotDate.Format(model.DateLayout), s.AssetType, s.Amount, s.Signed(), s.AccountName,
		})
	}
	return rows
}

func setRows(f *excelize.File, sheet string, rows [][]any) error {
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("bad cell coordinates: %w", err)
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write %s row %d: %w", sheet, i+1, err)
		}
	}
	return nil
}
