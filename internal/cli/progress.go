package cli

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/schollz/progressbar/v3"

	"github.com/Veraticus/household-ledger/internal/ingest"
)

// BatchProgress shows a progress bar while a batch runs and prints one
// line per file as it finishes.
type BatchProgress struct {
	writer io.Writer
	bar    *progressbar.ProgressBar
}

// NewBatchProgress creates a progress reporter writing to w.
func NewBatchProgress(w io.Writer) *BatchProgress {
	return &BatchProgress{writer: w}
}

// Start implements ingest.Progress.
func (p *BatchProgress) Start(total int) {
	p.bar = progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.writer),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionShowCount(),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("[cyan][bold]Importing files...[reset]"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "[green]=[reset]",
			SaucerHead:    "[green]>[reset]",
			SaucerPadding: " ",
			BarStart:      "[",
			BarEnd:        "]",
		}),
	)
}

// Advance implements ingest.Progress.
func (p *BatchProgress) Advance(result ingest.FileResult) {
	if p.bar != nil {
		_ = p.bar.Clear()
	}

	line := FormatSuccess(result.Message())
	if !result.OK() {
		line = FormatError(result.Message())
	}
	if _, err := fmt.Fprintln(p.writer, line); err != nil {
		slog.Warn("Failed to write file result", "error", err)
	}

	if p.bar != nil {
		if err := p.bar.Add(1); err != nil {
			slog.Warn("Failed to update progress bar", "error", err)
		}
	}
}

// Finish implements ingest.Progress.
func (p *BatchProgress) Finish() {
	if p.bar != nil {
		_ = p.bar.Finish()
	}
	if _, err := fmt.Fprintln(p.writer); err != nil {
		slog.Warn("Failed to write newline after progress bar", "error", err)
	}
}

// BatchSummary renders the closing box for a batch.
func BatchSummary(batch ingest.BatchResult) string {
	var transactions, assets, unreadable, unstored int
	for _, f := range batch.Files {
		transactions += f.Transactions
		assets += f.Assets
		switch {
		case f.OK():
		case ingest.IsInputError(f.Err):
			unreadable++
		default:
			unstored++
		}
	}

	failed := fmt.Sprintf("%d", batch.Failed())
	if batch.Failed() > 0 {
		failed += fmt.Sprintf(" (%d unreadable, %d not stored)", unreadable, unstored)
	}

	summary := fmt.Sprintf("  • Files imported: %d\n", batch.Succeeded()) +
		fmt.Sprintf("  • Files failed: %s\n", failed) +
		fmt.Sprintf("  • Transactions stored: %d\n", transactions) +
		fmt.Sprintf("  • Balance rows stored: %d\n", assets) +
		fmt.Sprintf("  • New budget categories: %d", batch.CategoriesAdded)
	if batch.SyncErr != nil {
		summary += "\n" + FormatWarning("Category sync failed: "+batch.SyncErr.Error())
	}
	if unstored > 0 {
		summary += "\n" + FormatWarning("Files that were read but not stored failed in the database; run the import again.")
	}
	return RenderBox(ChartIcon+" Import Complete", summary)
}
