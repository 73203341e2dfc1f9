package ledger

import "strings"

// Canonical column names.
const (
	ColDate          = "date"
	ColTime          = "time"
	ColType          = "tx_type"
	ColCategory1     = "category_1"
	ColCategory2     = "category_2"
	ColDescription   = "description"
	ColAmount        = "amount"
	ColCurrency      = "currency"
	ColPaymentSource = "payment_source"
	ColMemo          = "memo"
)

// vendorColumns maps the export's header labels to canonical names.
var vendorColumns = map[string]string{
	"날짜":   ColDate,
	"시간":   ColTime,
	"타입":   ColType,
	"대분류":  ColCategory1,
	"소분류":  ColCategory2,
	"내용":   ColDescription,
	"금액":   ColAmount,
	"화폐":   ColCurrency,
	"결제수단": ColPaymentSource,
	"메모":   ColMemo,
}

var canonicalColumns = map[string]bool{
	ColDate: true, ColTime: true, ColType: true, ColCategory1: true, ColCategory2: true,
	ColDescription: true, ColAmount: true, ColCurrency: true, ColPaymentSource: true, ColMemo: true,
}

// columnIndex maps canonical names to their position in the header row.
type columnIndex map[string]int

func indexHeader(header []string) columnIndex {
	idx := make(columnIndex, len(header))
	for i, raw := range header {
		label := strings.TrimSpace(raw)
		name, ok := vendorColumns[label]
		if !ok {
			lower := strings.ToLower(label)
			if !canonicalColumns[lower] {
				continue
			}
			name = lower
		}
		if _, seen := idx[name]; !seen {
			idx[name] = i
		}
	}
	return idx
}

func (idx columnIndex) value(row []string, name string) string {
	i, ok := idx[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}
