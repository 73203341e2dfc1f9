// Package ingest runs batches of vendor exports through decryption,
// parsing, range reconciliation and storage.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Veraticus/household-ledger/internal/archive"
	"github.com/Veraticus/household-ledger/internal/assets"
	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/ledger"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/reconcile"
	"github.com/Veraticus/household-ledger/internal/workbook"
)

// DefaultLookbackDays is the assumed file range when a filename carries none.
const DefaultLookbackDays = 30

// Store is the persistence the pipeline writes to.
type Store interface {
	reconcile.Coverage
	ReplaceTransactions(ctx context.Context, owner string, txs []model.Transaction) (int, error)
	ReplaceAssetSnapshot(ctx context.Context, owner string, date time.Time, rows []model.AssetSnapshot) (int, error)
	SyncCategories(ctx context.Context, referenceOwner string) (int, error)
	MarkFileProcessed(ctx context.Context, f model.ProcessedFile) error
}

// Progress receives per-file notifications. A nil Progress on the
// Pipeline is treated as NopProgress.
type Progress interface {
	Start(total int)
	Advance(result FileResult)
	Finish()
}

// NopProgress ignores every notification.
type NopProgress struct{}

// Start implements Progress.
func (NopProgress) Start(int) {}

// Advance implements Progress.
func (NopProgress) Advance(FileResult) {}

// Finish implements Progress.
func (NopProgress) Finish() {}

// Pipeline ingests batches of items. Store and Passwords are required;
// the remaining fields have usable zero values.
type Pipeline struct {
	Store     Store
	Passwords map[string]string
	Policy    reconcile.Policy
	Layout    assets.Layout
	Clock     func() time.Time
	Progress  Progress
}

// Options tune a single Run.
type Options struct {
	// ReferenceOwner scopes the category sync after the batch. Empty syncs
	// from every owner's transactions.
	ReferenceOwner   string
	SkipCategorySync bool
}

// Run processes items one at a time in snapshot-date order. A failing item
// is recorded and the batch moves on. The category sync runs once at the end.
func (p *Pipeline) Run(ctx context.Context, items []Item, opts Options) BatchResult {
	batch := BatchResult{RunID: uuid.NewString()}
	logger := slog.With("run_id", batch.RunID)

	ordered := make([]Item, len(items))
	copy(ordered, items)
	for i := range ordered {
		if ordered[i].FileRange.IsZero() {
			ordered[i].FileRange = DefaultRange(p.now())
		}
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].SnapshotDate().Before(ordered[j].SnapshotDate())
	})

	progress := p.progress()
	progress.Start(len(ordered))
	logger.Info("Starting ingest batch", "files", len(ordered))

	for _, item := range ordered {
		var result FileResult
		if err := ctx.Err(); err != nil {
			result = FileResult{Name: item.Name, Owner: item.Owner, FileRange: item.FileRange, Err: err}
		} else {
			result = p.processItem(ctx, logger, item)
		}

		if result.Err != nil {
			logger.Warn("File failed", "file", item.Name, "owner", item.Owner, "error", result.Err)
		}
		batch.Files = append(batch.Files, result)
		progress.Advance(result)
	}
	progress.Finish()

	if !opts.SkipCategorySync && ctx.Err() == nil {
		added, err := p.Store.SyncCategories(ctx, opts.ReferenceOwner)
		if err != nil {
			batch.SyncErr = err
			logger.Warn("Category sync failed", "error", err)
		}
		batch.CategoriesAdded = added
	}

	logger.Info("Finished ingest batch",
		"succeeded", batch.Succeeded(),
		"failed", batch.Failed(),
		"categories_added", batch.CategoriesAdded)

	return batch
}

func (p *Pipeline) processItem(ctx context.Context, logger *slog.Logger, item Item) FileResult {
	result := FileResult{Name: item.Name, Owner: item.Owner, FileRange: item.FileRange}

	if strings.TrimSpace(item.Owner) == "" {
		result.Err = fmt.Errorf("%w: %s", common.ErrOwnerUnknown, item.Name)
		return result
	}

	policy := p.Policy
	if policy.Coverage == nil {
		policy.Coverage = p.Store
	}
	decision, err := policy.Resolve(ctx, item.Owner, item.FileRange)
	if err != nil {
		result.Err = err
		return result
	}
	result.Effective = decision.Effective
	result.Overlap = decision.Overlap

	wb, err := p.openWorkbook(item)
	if err != nil {
		result.Err = err
		return result
	}

	txs, stats, err := ledger.NormalizeWithStats(wb.Ledger, ledger.Options{
		Range:      decision.Effective,
		Owner:      item.Owner,
		SourceFile: item.Name,
	})
	if err != nil {
		result.Err = err
		return result
	}
	result.Skipped = stats.Skipped

	parsed := assets.Result{Status: assets.StatusNoMarker}
	if wb.HasAssets() {
		parsed = assets.Parse(wb.Assets, p.Layout)
	}
	result.AssetStatus = parsed.Status

	if result.Transactions, err = p.Store.ReplaceTransactions(ctx, item.Owner, txs); err != nil {
		result.Err = err
		return result
	}

	if parsed.Status == assets.StatusParsed {
		date := item.SnapshotDate()
		if result.Assets, err = p.Store.ReplaceAssetSnapshot(ctx, item.Owner, date, parsed.Snapshots(item.Owner, date)); err != nil {
			result.Err = err
			return result
		}
	}

	if item.AutoDiscovered {
		if err := p.Store.MarkFileProcessed(ctx, model.ProcessedFile{
			Filename:     item.Name,
			Owner:        item.Owner,
			SnapshotDate: item.SnapshotDate(),
			ProcessedAt:  p.now(),
		}); err != nil {
			result.Err = fmt.Errorf("data saved but marker failed: %w", err)
			return result
		}
	}

	logger.Info("Ingested file",
		"file", item.Name,
		"owner", item.Owner,
		"range", result.Effective.String(),
		"overlap", result.Overlap,
		"transactions", result.Transactions,
		"assets", result.Assets,
		"asset_status", result.AssetStatus.String())

	return result
}

func (p *Pipeline) openWorkbook(item Item) (*workbook.Workbook, error) {
	data := item.Data
	if data == nil {
		raw, err := os.ReadFile(item.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", item.Name, err)
		}
		data = raw
	}

	switch strings.ToLower(filepath.Ext(item.Name)) {
	case ".zip":
		password, ok := p.Passwords[item.Owner]
		if !ok {
			return nil, fmt.Errorf("%w: no password configured for %s", common.ErrDecryption, item.Owner)
		}
		payload, err := archive.Decrypt(data, password)
		if err != nil {
			return nil, err
		}
		return workbook.Open(payload.Name, payload.Data)
	case ".xlsx", ".csv":
		return workbook.Open(item.Name, data)
	default:
		return nil, fmt.Errorf("%w: %s", common.ErrUnsupportedFile, item.Name)
	}
}

func (p *Pipeline) now() time.Time {
	if p.Clock != nil {
		return p.Clock()
	}
	return time.Now()
}

func (p *Pipeline) progress() Progress {
	if p.Progress != nil {
		return p.Progress
	}
	return NopProgress{}
}

// DefaultRange is the range assumed for files whose name carries none:
// the trailing DefaultLookbackDays ending today.
func DefaultRange(now time.Time) model.DateRange {
	today := model.TruncateDate(now)
	return model.DateRange{Start: today.AddDate(0, 0, -DefaultLookbackDays), End: today}
}

// IsInputError reports whether err came from the file itself rather than
// from storage.
func IsInputError(err error) bool {
	for _, target := range []error{
		common.ErrDecryption,
		common.ErrNoPayload,
		common.ErrMalformedSpreadsheet,
		common.ErrMissingLedgerSheet,
		common.ErrMissingDateColumn,
		common.ErrUnsupportedFile,
		common.ErrOwnerUnknown,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
