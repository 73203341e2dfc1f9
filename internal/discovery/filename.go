// Package discovery derives ingest items from export filenames and finds
// new exports dropped into the documents folder.
package discovery

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/Veraticus/household-ledger/internal/ingest"
	"github.com/Veraticus/household-ledger/internal/model"
)

var rangePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*~\s*(\d{4}-\d{2}-\d{2})`)

// Owner is a household member whose exports can be recognized by name.
type Owner struct {
	Name    string
	Aliases []string
}

// ParseFilename builds an item from a filename such as
// "alice_2024-01-01~2024-06-01.zip". Without a valid range the item covers
// the trailing default window ending today. The first owner whose name or
// alias appears in the filename, case-insensitively, owns the item.
func ParseFilename(name string, owners []Owner, now time.Time) ingest.Item {
	base := filepath.Base(name)
	item := ingest.Item{
		Name:      base,
		Owner:     DetectOwner(base, owners),
		FileRange: ingest.DefaultRange(now),
	}
	if r, ok := parseRange(base); ok {
		item.FileRange = r
	}
	return item
}

func parseRange(name string) (model.DateRange, bool) {
	m := rangePattern.FindStringSubmatch(name)
	if m == nil {
		return model.DateRange{}, false
	}
	start, err := model.ParseDate(m[1])
	if err != nil {
		return model.DateRange{}, false
	}
	end, err := model.ParseDate(m[2])
	if err != nil || end.Before(start) {
		return model.DateRange{}, false
	}
	return model.NewDateRange(start, end), true
}

// DetectOwner returns the first owner named in filename, or "".
func DetectOwner(filename string, owners []Owner) string {
	lower := strings.ToLower(filename)
	for _, o := range owners {
		for _, label := range append([]string{o.Name}, o.Aliases...) {
			label = strings.TrimSpace(label)
			if label != "" && strings.Contains(lower, strings.ToLower(label)) {
				return o.Name
			}
		}
	}
	return ""
}
