package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/report"
)

// Writer pushes budget reports into one tab of a spreadsheet.
type Writer struct {
	service *sheets.Service
	logger  *slog.Logger
	config  Config
}

// NewWriter creates a writer authenticated with the configured credentials.
func NewWriter(ctx context.Context, config Config, logger *slog.Logger) (*Writer, error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	service, err := createSheetsService(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}

	return newWriter(service, config, logger), nil
}

func newWriter(service *sheets.Service, config Config, logger *slog.Logger) *Writer {
	if logger == nil {
		logger = slog.Default()
	}
	if config.SheetTitle == "" {
		config.SheetTitle = DefaultConfig().SheetTitle
	}
	return &Writer{service: service, config: config, logger: logger}
}

// Write replaces the report tab with summary and returns the spreadsheet id.
func (w *Writer) Write(ctx context.Context, summary *report.Summary) (string, error) {
	values := summary.Rows()
	w.logger.Info("starting budget report upload",
		"categories", len(summary.Lines),
		"rows", len(values))

	spreadsheetID, sheetID, err := w.getOrCreateSpreadsheet(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get spreadsheet: %w", err)
	}

	retryOpts := common.RetryOptions{
		MaxAttempts:  max(w.config.RetryAttempts, 1),
		InitialDelay: w.config.RetryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	err = common.WithRetry(ctx, func() error {
		if err := w.clearSheet(ctx, spreadsheetID); err != nil {
			return fmt.Errorf("failed to clear sheet: %w", err)
		}
		return w.writeData(ctx, spreadsheetID, values)
	}, retryOpts)
	if err != nil {
		return "", fmt.Errorf("failed to write data: %w", err)
	}

	if w.config.EnableFormatting {
		err = common.WithRetry(ctx, func() error {
			return w.applyFormatting(ctx, spreadsheetID, sheetID, len(summary.Lines))
		}, retryOpts)
		if err != nil {
			w.logger.Warn("failed to apply formatting", "error", err)
		}
	}

	w.logger.Info("budget report upload completed",
		"spreadsheet_id", spreadsheetID,
		"rows_written", len(values))

	return spreadsheetID, nil
}

func createSheetsService(ctx context.Context, config Config) (*sheets.Service, error) {
	var tokenSource oauth2.TokenSource

	if config.ServiceAccountPath != "" {
		jsonKey, err := os.ReadFile(config.ServiceAccountPath)
		if err != nil {
			return nil, fmt.Errorf("unable to read service account key file: %w", err)
		}

		jwtConfig, err := google.JWTConfigFromJSON(jsonKey, sheets.SpreadsheetsScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse service account key: %w", err)
		}
		tokenSource = jwtConfig.TokenSource(ctx)
	} else {
		client := &oauth2.Config{
			ClientID:     config.ClientID,
			ClientSecret: config.ClientSecret,
			Endpoint:     google.Endpoint,
			Scopes:       []string{sheets.SpreadsheetsScope},
		}
		tokenSource = client.TokenSource(ctx, &oauth2.Token{
			RefreshToken: config.RefreshToken,
			TokenType:    "Bearer",
		})
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(oauth2.NewClient(ctx, tokenSource)))
	if err != nil {
		return nil, fmt.Errorf("unable to create sheets service: %w", err)
	}
	return srv, nil
}

// getOrCreateSpreadsheet resolves the target spreadsheet and the id of the
// report tab, adding the tab to an existing spreadsheet when it is missing.
func (w *Writer) getOrCreateSpreadsheet(ctx context.Context) (string, int64, error) {
	if w.config.SpreadsheetID != "" {
		existing, err := w.service.Spreadsheets.Get(w.config.SpreadsheetID).Context(ctx).Do()
		if err != nil {
			return "", 0, fmt.Errorf("unable to access spreadsheet %s: %w", w.config.SpreadsheetID, err)
		}
		for _, sheet := range existing.Sheets {
			if sheet.Properties != nil && sheet.Properties.Title == w.config.SheetTitle {
				return existing.SpreadsheetId, sheet.Properties.SheetId, nil
			}
		}

		resp, err := w.service.Spreadsheets.BatchUpdate(existing.SpreadsheetId, &sheets.BatchUpdateSpreadsheetRequest{
			Requests: []*sheets.Request{{
				AddSheet: &sheets.AddSheetRequest{
					Properties: &sheets.SheetProperties{Title: w.config.SheetTitle},
				},
			}},
		}).Context(ctx).Do()
		if err != nil {
			return "", 0, fmt.Errorf("unable to add sheet %s: %w", w.config.SheetTitle, err)
		}
		if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil {
			return "", 0, fmt.Errorf("unable to add sheet %s: empty reply", w.config.SheetTitle)
		}
		return existing.SpreadsheetId, resp.Replies[0].AddSheet.Properties.SheetId, nil
	}

	created, err := w.service.Spreadsheets.Create(&sheets.Spreadsheet{
		Properties: &sheets.SpreadsheetProperties{
			Title:    w.config.SpreadsheetName,
			TimeZone: w.config.TimeZone,
		},
		Sheets: []*sheets.Sheet{{
			Properties: &sheets.SheetProperties{Title: w.config.SheetTitle},
		}},
	}).Context(ctx).Do()
	if err != nil {
		return "", 0, fmt.Errorf("unable to create spreadsheet: %w", err)
	}

	w.logger.Info("created new spreadsheet",
		"id", created.SpreadsheetId,
		"url", created.SpreadsheetUrl)

	var sheetID int64
	if len(created.Sheets) > 0 && created.Sheets[0].Properties != nil {
		sheetID = created.Sheets[0].Properties.SheetId
	}
	return created.SpreadsheetId, sheetID, nil
}

func (w *Writer) a1(cells string) string {
	return fmt.Sprintf("'%s'!%s", w.config.SheetTitle, cells)
}

func (w *Writer) clearSheet(ctx context.Context, spreadsheetID string) error {
	_, err := w.service.Spreadsheets.Values.Clear(spreadsheetID, w.a1("A:Z"), &sheets.ClearValuesRequest{}).Context(ctx).Do()
	return err
}

// writeData writes values in batches of BatchSize rows.
func (w *Writer) writeData(ctx context.Context, spreadsheetID string, values [][]any) error {
	for i := 0; i < len(values); i += w.config.BatchSize {
		end := min(i+w.config.BatchSize, len(values))
		batch := values[i:end]

		_, err := w.service.Spreadsheets.Values.Update(spreadsheetID, w.a1(fmt.Sprintf("A%d", i+1)), &sheets.ValueRange{
			Values: batch,
		}).
			ValueInputOption("USER_ENTERED").
			Context(ctx).
			Do()
		if err != nil {
			return fmt.Errorf("failed to write batch starting at row %d: %w", i+1, err)
		}

		w.logger.Debug("wrote batch", "start_row", i+1, "rows", len(batch))
	}
	return nil
}

// applyFormatting bolds the title and header, formats the money columns
// as won and freezes everything above the first category row.
func (w *Writer) applyFormatting(ctx context.Context, spreadsheetID string, sheetID int64, categories int) error {
	const headerRow = 3
	bold := func(startRow, endRow, endCol int64) *sheets.Request {
		return &sheets.Request{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    startRow,
					EndRowIndex:      endRow,
					StartColumnIndex: 0,
					EndColumnIndex:   endCol,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{TextFormat: &sheets.TextFormat{Bold: true}},
				},
				Fields: "userEnteredFormat.textFormat.bold",
			},
		}
	}

	requests := []*sheets.Request{
		bold(0, 1, 2),
		bold(headerRow, headerRow+1, 5),
		{
			RepeatCell: &sheets.RepeatCellRequest{
				Range: &sheets.GridRange{
					SheetId:          sheetID,
					StartRowIndex:    headerRow + 1,
					StartColumnIndex: 2,
					EndColumnIndex:   5,
				},
				Cell: &sheets.CellData{
					UserEnteredFormat: &sheets.CellFormat{
						NumberFormat: &sheets.NumberFormat{Type: "CURRENCY", Pattern: "₩#,##0"},
					},
				},
				Fields: "userEnteredFormat.numberFormat",
			},
		},
		{
			AutoResizeDimensions: &sheets.AutoResizeDimensionsRequest{
				Dimensions: &sheets.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "COLUMNS",
					StartIndex: 0,
					EndIndex:   5,
				},
			},
		},
		{
			UpdateSheetProperties: &sheets.UpdateSheetPropertiesRequest{
				Properties: &sheets.SheetProperties{
					SheetId:        sheetID,
					GridProperties: &sheets.GridProperties{FrozenRowCount: headerRow + 1},
				},
				Fields: "gridProperties.frozenRowCount",
			},
		},
	}

	w.logger.Debug("formatting report", "sheet_id", sheetID, "categories", categories)

	_, err := w.service.Spreadsheets.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{
		Requests: requests,
	}).Context(ctx).Do()
	return err
}
