package ledger

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/Veraticus/household-ledger/internal/model"
)

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006/01/02",
	"2006/1/2",
	"2006.01.02",
	"2006.1.2",
	"2006. 1. 2.",
	"2006. 1. 2",
	"2006-1-2",
	"01/02/2006",
	"20060102",
}

var timeLayouts = []string{
	"15:04",
	"15:04:05",
	"15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// parseDate accepts the textual forms the export has used over time as
// well as raw Excel serial numbers.
func parseDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("empty date")
	}

	// Eight-digit compact dates also parse as floats; try layouts first.
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, raw, time.UTC); err == nil {
			return model.TruncateDate(t), nil
		}
	}

	if serial, err := strconv.ParseFloat(raw, 64); err == nil && serial > 0 && serial < 2958466 {
		t, err := excelize.ExcelDateToTime(serial, false)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid date serial %q: %w", raw, err)
		}
		return model.TruncateDate(t), nil
	}

	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

// parseClock returns HH:MM, falling back to the default when the cell is
// blank or unreadable.
func parseClock(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.DefaultTime
	}

	if f, err := strconv.ParseFloat(raw, 64); err == nil && f >= 0 {
		// Day fraction, possibly attached to a date serial.
		_, frac := math.Modf(f)
		secs := int(math.Round(frac * 86400))
		if secs >= 86400 {
			secs = 86399
		}
		return fmt.Sprintf("%02d:%02d", secs/3600, (secs%3600)/60)
	}

	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Format("15:04")
		}
	}
	return model.DefaultTime
}

func parseType(raw string, amount int64) model.TransactionType {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "수입", "income":
		return model.TypeIncome
	case "지출", "expense":
		return model.TypeExpense
	case "이체", "transfer":
		return model.TypeTransfer
	}
	if amount < 0 {
		return model.TypeExpense
	}
	return model.TypeIncome
}
