package testutil

import (
	"bytes"
	"testing"

	"github.com/xuri/excelize/v2"
	"github.com/yeka/zip"
)

// Sheet names used by the vendor export.
const (
	AssetSheetName  = "뱅샐현황"
	LedgerSheetName = "가계부 내역"
)

// LedgerHeader is the vendor's ledger header row.
var LedgerHeader = []string{"날짜", "시간", "타입", "대분류", "소분류", "내용", "금액", "화폐", "결제수단", "메모"}

type balanceLine struct {
	assetType string
	account   string
	amount    int64
}

// ExportBuilder assembles a vendor-shaped workbook for tests.
//
// Example:
//
//	data := testutil.NewExport(t).
//		WithTransaction("2024-03-02", "12:30", "지출", "식비", "카페", "Coffee", -4500).
//		WithAsset("자유입출금", "Checking", 1500000).
//		XLSX()
type ExportBuilder struct {
	t           *testing.T
	ledger      [][]any
	assets      []balanceLine
	liabilities []balanceLine
	noAssets    bool
}

// NewExport starts an export with only the ledger header.
func NewExport(t *testing.T) *ExportBuilder {
	t.Helper()
	return &ExportBuilder{t: t}
}

// WithTransaction appends a ledger row.
func (b *ExportBuilder) WithTransaction(date, clock, txType, cat1, cat2, desc string, amount int64) *ExportBuilder {
	b.ledger = append(b.ledger, []any{date, clock, txType, cat1, cat2, desc, amount, "KRW", "Card", ""})
	return b
}

// WithLedgerRow appends an arbitrary ledger row.
func (b *ExportBuilder) WithLedgerRow(cells ...any) *ExportBuilder {
	b.ledger = append(b.ledger, cells)
	return b
}

// WithAsset adds a line to the left (asset) block of the statement.
func (b *ExportBuilder) WithAsset(assetType, account string, amount int64) *ExportBuilder {
	b.assets = append(b.assets, balanceLine{assetType: assetType, account: account, amount: amount})
	return b
}

// WithLiability adds a line to the right (liability) block of the statement.
func (b *ExportBuilder) WithLiability(assetType, account string, amount int64) *ExportBuilder {
	b.liabilities = append(b.liabilities, balanceLine{assetType: assetType, account: account, amount: amount})
	return b
}

// WithoutAssetStatement leaves the first sheet blank.
func (b *ExportBuilder) WithoutAssetStatement() *ExportBuilder {
	b.noAssets = true
	return b
}

// AssetRows renders the statement sheet as it appears in the export.
func (b *ExportBuilder) AssetRows() [][]any {
	if b.noAssets {
		return nil
	}

	rows := [][]any{
		{"", "1. 고객정보"},
		{},
		{"", "3.재무현황"},
		{"", "항목", "상품명", "금액", "", "항목", "상품명", "금액"},
	}

	n := len(b.assets)
	if len(b.liabilities) > n {
		n = len(b.liabilities)
	}

	var totalAssets, totalLiabilities int64
	for i := 0; i < n; i++ {
		row := []any{"", "", "", "", "", "", "", ""}
		if i < len(b.assets) {
			a := b.assets[i]
			row[1], row[2], row[3] = a.assetType, a.account, a.amount
			totalAssets += a.amount
		}
		if i < len(b.liabilities) {
			l := b.liabilities[i]
			row[5], row[6], row[7] = l.assetType, l.account, l.amount
			totalLiabilities += l.amount
		}
		rows = append(rows, row)
	}

	rows = append(rows,
		[]any{"", "총자산", "", totalAssets, "", "총부채", "", totalLiabilities},
		[]any{"", "순자산", "", totalAssets - totalLiabilities},
	)
	return rows
}

// XLSX renders the workbook bytes.
func (b *ExportBuilder) XLSX() []byte {
	b.t.Helper()

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if err := f.SetSheetName("Sheet1", AssetSheetName); err != nil {
		b.t.Fatalf("failed to rename sheet: %v", err)
	}
	if _, err := f.NewSheet(LedgerSheetName); err != nil {
		b.t.Fatalf("failed to add ledger sheet: %v", err)
	}

	writeRows(b.t, f, AssetSheetName, b.AssetRows())

	header := make([]any, len(LedgerHeader))
	for i, h := range LedgerHeader {
		header[i] = h
	}
	writeRows(b.t, f, LedgerSheetName, append([][]any{header}, b.ledger...))

	buf, err := f.WriteToBuffer()
	if err != nil {
		b.t.Fatalf("failed to render workbook: %v", err)
	}
	return buf.Bytes()
}

// Archive wraps the workbook in an AES-256 encrypted zip.
func (b *ExportBuilder) Archive(memberName, password string) []byte {
	b.t.Helper()
	return ZipArchive(b.t, password, memberName, b.XLSX())
}

// ZipArchive encrypts a single member into a zip. An empty password stores it in the clear.
func ZipArchive(t *testing.T, password, name string, content []byte) []byte {
	t.Helper()

	var buf bytes.Buffer
	w := zip.NewWriter(&buf)

	var err error
	var member interface{ Write([]byte) (int, error) }
	if password == "" {
		member, err = w.Create(name)
	} else {
		member, err = w.Encrypt(name, password, zip.AES256Encryption)
	}
	if err != nil {
		t.Fatalf("failed to add zip member: %v", err)
	}
	if _, err := member.Write(content); err != nil {
		t.Fatalf("failed to write zip member: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("failed to finish zip: %v", err)
	}
	return buf.Bytes()
}

func writeRows(t *testing.T, f *excelize.File, sheet string, rows [][]any) {
	t.Helper()
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			t.Fatalf("bad cell coordinates: %v", err)
		}
		values := row
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			t.Fatalf("failed to write %s row %d: %v", sheet, i+1, err)
		}
	}
}
