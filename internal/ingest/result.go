package ingest

import (
	"fmt"
	"time"

	"github.com/Veraticus/household-ledger/internal/assets"
	"github.com/Veraticus/household-ledger/internal/model"
)

// Item is one file queued for ingestion.
type Item struct {
	FileRange model.DateRange
	// Path is read when Data is nil.
	Path  string
	Name  string
	Owner string
	Data  []byte
	// AutoDiscovered items get a processed-file marker after success.
	AutoDiscovered bool
}

// SnapshotDate is the date the file's asset statement describes.
func (i Item) SnapshotDate() time.Time {
	return i.FileRange.End
}

// FileResult reports what happened to one item.
type FileResult struct {
	Err          error
	FileRange    model.DateRange
	Effective    model.DateRange
	Name         string
	Owner        string
	Transactions int
	Assets       int
	Skipped      int
	AssetStatus  assets.Status
	Overlap      bool
}

// OK reports whether the item was stored.
func (r FileResult) OK() bool {
	return r.Err == nil
}

// Message is a one-line summary for display.
func (r FileResult) Message() string {
	if r.Err != nil {
		return fmt.Sprintf("%s: %v", r.Name, r.Err)
	}
	msg := fmt.Sprintf("%s: %d transactions (%s)", r.Name, r.Transactions, r.Effective)
	if r.Overlap {
		msg += ", recent window only"
	}
	if r.Assets > 0 {
		msg += fmt.Sprintf(", %d balance rows", r.Assets)
	}
	if r.Skipped > 0 {
		msg += fmt.Sprintf(", %d unreadable rows skipped", r.Skipped)
	}
	return msg
}

// BatchResult collects the outcome of a Run.
type BatchResult struct {
	SyncErr         error
	RunID           string
	Files           []FileResult
	CategoriesAdded int
}

// Succeeded counts stored items.
func (b BatchResult) Succeeded() int {
	n := 0
	for _, f := range b.Files {
		if f.OK() {
			n++
		}
	}
	return n
}

// Failed counts items that were not stored.
func (b BatchResult) Failed() int {
	return len(b.Files) - b.Succeeded()
}
