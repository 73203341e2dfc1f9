package sheets

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"

	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/report"
)

type recordedCall struct {
	method string
	path   string
	body   string
}

// fakeSheetsAPI serves the handful of Sheets endpoints the writer uses.
type fakeSheetsAPI struct {
	existing   string
	calls      []recordedCall
	failWrites int
	mu         sync.Mutex
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	body, _ := io.ReadAll(r.Body)
	path := r.URL.EscapedPath()
	f.calls = append(f.calls, recordedCall{method: r.Method, path: path, body: string(body)})
	w.Header().Set("Content-Type", "application/json")

	switch {
	case r.Method == http.MethodGet:
		_, _ = w.Write([]byte(f.existing))
	case r.Method == http.MethodPost && path == "/v4/spreadsheets":
		_, _ = w.Write([]byte(`{"spreadsheetId":"new-id","spreadsheetUrl":"https://example/new-id",
			"sheets":[{"properties":{"sheetId":11,"title":"Budget"}}]}`))
	case strings.HasSuffix(path, ":batchUpdate"):
		if strings.Contains(string(body), "addSheet") {
			_, _ = w.Write([]byte(`{"replies":[{"addSheet":{"properties":{"sheetId":42,"title":"Budget"}}}]}`))
			return
		}
		_, _ = w.Write([]byte(`{}`))
	case r.Method == http.MethodPut && f.failWrites > 0:
		f.failWrites--
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(`{"error":{"code":503,"message":"backend error"}}`))
	default:
		_, _ = w.Write([]byte(`{}`))
	}
}

func (f *fakeSheetsAPI) callsMatching(method, suffix string) []recordedCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []recordedCall
	for _, c := range f.calls {
		if c.method == method && strings.Contains(c.path, suffix) {
			out = append(out, c)
		}
	}
	return out
}

func newTestWriter(t *testing.T, api *fakeSheetsAPI, cfg Config) *Writer {
	t.Helper()
	ts := httptest.NewServer(api)
	t.Cleanup(ts.Close)

	svc, err := sheets.NewService(context.Background(),
		option.WithEndpoint(ts.URL+"/"),
		option.WithHTTPClient(ts.Client()))
	require.NoError(t, err)
	return newWriter(svc, cfg, nil)
}

func testSummary(categories int) *report.Summary {
	lines := make([]model.BudgetLine, 0, categories)
	for i := 0; i < categories; i++ {
		lines = append(lines, model.BudgetLine{
			Budget:     model.Budget{Category: string(rune('A' + i)), MonthlyAmount: 1000},
			AvgMonthly: 800,
		})
	}
	return &report.Summary{
		GeneratedAt: time.Date(2024, 7, 2, 0, 0, 0, 0, time.UTC),
		Months:      3,
		Lines:       lines,
		Totals:      model.Totals(lines),
	}
}

func TestWriter_CreatesSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{}
	cfg := DefaultConfig()
	w := newTestWriter(t, api, cfg)

	id, err := w.Write(context.Background(), testSummary(3))
	require.NoError(t, err)
	assert.Equal(t, "new-id", id)

	creates := api.callsMatching(http.MethodPost, "/v4/spreadsheets")
	require.NotEmpty(t, creates)
	assert.Contains(t, creates[0].body, `"title":"Household Budget"`)
	assert.Contains(t, creates[0].body, `"timeZone":"Asia/Seoul"`)

	assert.Len(t, api.callsMatching(http.MethodPost, ":clear"), 1)

	updates := api.callsMatching(http.MethodPut, "/values/")
	require.Len(t, updates, 1)
	assert.Contains(t, updates[0].body, "Household Budget")
	assert.Contains(t, updates[0].body, "Monthly Budget")

	format := api.callsMatching(http.MethodPost, ":batchUpdate")
	require.Len(t, format, 1)
	assert.Contains(t, format[0].body, `"sheetId":11`)
	assert.Contains(t, format[0].body, "₩#,##0")
}

func TestWriter_ExistingSpreadsheetAddsTab(t *testing.T) {
	api := &fakeSheetsAPI{existing: `{"spreadsheetId":"abc","sheets":[{"properties":{"sheetId":0,"title":"Sheet1"}}]}`}
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "abc"
	cfg.EnableFormatting = false
	w := newTestWriter(t, api, cfg)

	id, err := w.Write(context.Background(), testSummary(1))
	require.NoError(t, err)
	assert.Equal(t, "abc", id)

	batch := api.callsMatching(http.MethodPost, ":batchUpdate")
	require.Len(t, batch, 1)
	assert.Contains(t, batch[0].body, "addSheet")
}

func TestWriter_ExistingTabIsReused(t *testing.T) {
	api := &fakeSheetsAPI{existing: `{"spreadsheetId":"abc","sheets":[{"properties":{"sheetId":9,"title":"Budget"}}]}`}
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "abc"
	w := newTestWriter(t, api, cfg)

	_, err := w.Write(context.Background(), testSummary(1))
	require.NoError(t, err)

	batch := api.callsMatching(http.MethodPost, ":batchUpdate")
	require.Len(t, batch, 1)
	assert.NotContains(t, batch[0].body, "addSheet")
	assert.Contains(t, batch[0].body, `"sheetId":9`)
}

func TestWriter_BatchesAndRetries(t *testing.T) {
	api := &fakeSheetsAPI{failWrites: 1}
	cfg := DefaultConfig()
	cfg.BatchSize = 5
	cfg.RetryDelay = time.Millisecond
	cfg.EnableFormatting = false
	w := newTestWriter(t, api, cfg)

	summary := testSummary(8)
	_, err := w.Write(context.Background(), summary)
	require.NoError(t, err)

	rows := len(summary.Rows())
	batches := (rows + cfg.BatchSize - 1) / cfg.BatchSize
	updates := api.callsMatching(http.MethodPut, "/values/")
	assert.Len(t, updates, batches+1, "the failed first batch is retried")
	assert.Len(t, api.callsMatching(http.MethodPost, ":clear"), 2)

	var last struct {
		Values [][]any `json:"values"`
	}
	require.NoError(t, json.Unmarshal([]byte(updates[len(updates)-1].body), &last))
	assert.Len(t, last.Values, rows-(batches-1)*cfg.BatchSize)
}
