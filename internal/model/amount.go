package model

import (
	"strings"

	"github.com/shopspring/decimal"
)

var amountReplacer = strings.NewReplacer(",", "", "₩", "", "원", "", " ", "")

// ParseAmount converts a spreadsheet cell to whole currency units.
// Thousands separators and currency marks are tolerated; fractions are
// truncated toward zero. ok is false for blank or non-numeric input.
func ParseAmount(raw string) (amount int64, ok bool) {
	cleaned := amountReplacer.Replace(strings.TrimSpace(raw))
	if cleaned == "" {
		return 0, false
	}

	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0, false
	}
	return d.Truncate(0).IntPart(), true
}
