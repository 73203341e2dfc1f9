package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Veraticus/household-ledger/internal/ingest"
)

// Scanner lists exports in the documents folder.
type Scanner struct {
	Clock  func() time.Time
	Dir    string
	Owners []Owner
}

// Scan returns one auto-discovered item per .zip or .xlsx file directly
// inside Dir, sorted by filename. Subdirectories are not descended into.
// Dir is used as given; callers expand ~ and environment variables.
func (s *Scanner) Scan() ([]ingest.Item, error) {
	dir := s.Dir
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("scan failed: %w", err)
	}

	now := time.Now()
	if s.Clock != nil {
		now = s.Clock()
	}

	var items []ingest.Item
	for _, e := range entries {
		if e.IsDir() || !isExportFile(e.Name()) {
			continue
		}
		item := ParseFilename(e.Name(), s.Owners, now)
		item.Path = filepath.Join(dir, e.Name())
		item.AutoDiscovered = true
		items = append(items, item)
	}

	sort.Slice(items, func(i, j int) bool { return items[i].Name < items[j].Name })
	return items, nil
}

// Pending drops items whose filename is already marked processed.
func Pending(items []ingest.Item, processed map[string]bool) []ingest.Item {
	var out []ingest.Item
	for _, item := range items {
		if !processed[item.Name] {
			out = append(out, item)
		}
	}
	return out
}

func isExportFile(name string) bool {
	if strings.HasPrefix(name, ".") || strings.HasPrefix(name, "~$") {
		return false
	}
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".zip" || ext == ".xlsx"
}
