package model

import (
	"fmt"
	"time"
)

// DateLayout is the storage and display format for calendar dates.
const DateLayout = "2006-01-02"

// DateRange is an inclusive span of calendar dates.
type DateRange struct {
	Start time.Time
	End   time.Time
}

// NewDateRange truncates both ends to calendar dates.
func NewDateRange(start, end time.Time) DateRange {
	return DateRange{Start: TruncateDate(start), End: TruncateDate(end)}
}

// Contains reports whether d falls within the range, ignoring clock time.
func (r DateRange) Contains(d time.Time) bool {
	day := TruncateDate(d)
	return !day.Before(r.Start) && !day.After(r.End)
}

// IsZero reports whether the range is unset.
func (r DateRange) IsZero() bool {
	return r.Start.IsZero() && r.End.IsZero()
}

func (r DateRange) String() string {
	return fmt.Sprintf("%s ~ %s", r.Start.Format(DateLayout), r.End.Format(DateLayout))
}

// TruncateDate drops the clock portion of t, keeping its calendar date in UTC.
func TruncateDate(t time.Time) time.Time {
	if t.IsZero() {
		return t
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD calendar date.
func ParseDate(s string) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, time.UTC)
}

// Widen extends r to include d. A zero range becomes the single day d.
func (r DateRange) Widen(d time.Time) DateRange {
	d = TruncateDate(d)
	if r.IsZero() {
		return DateRange{Start: d, End: d}
	}
	if d.Before(r.Start) {
		r.Start = d
	}
	if d.After(r.End) {
		r.End = d
	}
	return r
}

// Span returns the inclusive range from the earliest to the latest date of txs.
func Span(txs []Transaction) DateRange {
	var r DateRange
	for i := range txs {
		r = r.Widen(txs[i].Date)
	}
	return r
}
