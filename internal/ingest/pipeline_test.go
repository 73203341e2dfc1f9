package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Veraticus/household-ledger/internal/assets"
	"github.com/Veraticus/household-ledger/internal/common"
	"github.com/Veraticus/household-ledger/internal/model"
	"github.com/Veraticus/household-ledger/internal/storage"
	"github.com/Veraticus/household-ledger/internal/testutil"
)

const password = "0415"

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock() time.Time {
	return time.Date(2024, 7, 2, 10, 0, 0, 0, time.UTC)
}

func newPipeline(store Store) *Pipeline {
	return &Pipeline{
		Store:     store,
		Passwords: map[string]string{"alice": password, "bob": "bob-pw"},
		Clock:     fixedClock,
	}
}

// monthlyExport has one expense on the 1st and 15th of every month in [from, to].
func monthlyExport(t *testing.T, from, to time.Time, tag string) *testutil.ExportBuilder {
	t.Helper()
	b := testutil.NewExport(t)
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Day() == 1 || d.Day() == 15 {
			b.WithTransaction(d.Format(model.DateLayout), "12:00", "지출", "식비", "", tag+" "+d.Format(model.DateLayout), -10000)
		}
	}
	return b
}

func TestPipeline_TwoUploadScenario(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()
	p := newPipeline(store)

	first := monthlyExport(t, day(2024, 1, 1), day(2024, 6, 1), "first").
		WithAsset("자유입출금", "Checking", 1000000).
		Archive("export.xlsx", password)

	batch := p.Run(ctx, []Item{{
		Name:      "alice_2024-01-01~2024-06-01.zip",
		Owner:     "alice",
		Data:      first,
		FileRange: model.NewDateRange(day(2024, 1, 1), day(2024, 6, 1)),
	}}, Options{ReferenceOwner: "alice"})

	require.Len(t, batch.Files, 1)
	require.NoError(t, batch.Files[0].Err)
	assert.False(t, batch.Files[0].Overlap)
	assert.Equal(t, model.NewDateRange(day(2024, 1, 1), day(2024, 6, 1)), batch.Files[0].Effective)
	assert.Equal(t, 11, batch.Files[0].Transactions)
	assert.Equal(t, 1, batch.Files[0].Assets)
	assert.Equal(t, assets.StatusParsed, batch.Files[0].AssetStatus)
	assert.Equal(t, 1, batch.CategoriesAdded)
	assert.NotEmpty(t, batch.RunID)

	second := monthlyExport(t, day(2024, 5, 1), day(2024, 7, 1), "second").
		WithAsset("자유입출금", "Checking", 1200000).
		Archive("export.xlsx", password)

	batch = p.Run(ctx, []Item{{
		Name:      "alice_2024-05-01~2024-07-01.zip",
		Owner:     "alice",
		Data:      second,
		FileRange: model.NewDateRange(day(2024, 5, 1), day(2024, 7, 1)),
	}}, Options{ReferenceOwner: "alice"})

	require.NoError(t, batch.Files[0].Err)
	assert.True(t, batch.Files[0].Overlap)
	assert.Equal(t, model.NewDateRange(day(2024, 5, 1), day(2024, 7, 1)), batch.Files[0].Effective)
	assert.Zero(t, batch.CategoriesAdded)

	txs, err := store.GetTransactions(ctx, storage.TransactionFilter{Owner: "alice"})
	require.NoError(t, err)

	byMonth := make(map[string][]string)
	for _, txn := range txs {
		month := txn.Date.Format("2006-01")
		byMonth[month] = append(byMonth[month], strings.Fields(txn.Description)[0])
	}
	for _, month := range []string{"2024-01", "2024-02", "2024-03", "2024-04"} {
		assert.Equal(t, []string{"first", "first"}, byMonth[month], month)
	}
	for _, month := range []string{"2024-05", "2024-06"} {
		assert.ElementsMatch(t, []string{"second", "second"}, byMonth[month], month)
	}
	assert.Equal(t, []string{"second"}, byMonth["2024-07"])
	assert.Len(t, txs, 13)

	history, err := store.GetAssetHistory(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, day(2024, 6, 1), history[0].SnapshotDate)
	assert.Equal(t, day(2024, 7, 1), history[1].SnapshotDate)
	assert.Equal(t, int64(1200000), history[1].NetWorth)
}

func TestPipeline_FailingFileDoesNotStopBatch(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()
	p := newPipeline(store)

	good := testutil.NewExport(t).
		WithTransaction("2024-06-10", "09:00", "지출", "교통", "", "Bus", -1500).
		Archive("export.xlsx", "bob-pw")

	batch := p.Run(ctx, []Item{
		{Name: "alice_2024-06-01~2024-06-30.zip", Owner: "alice", Data: []byte("garbage"),
			FileRange: model.NewDateRange(day(2024, 6, 1), day(2024, 6, 30))},
		{Name: "mystery_2024-06-01~2024-06-30.zip", Data: good,
			FileRange: model.NewDateRange(day(2024, 6, 1), day(2024, 6, 30))},
		{Name: "bob_2024-06-01~2024-06-30.zip", Owner: "bob", Data: good,
			FileRange: model.NewDateRange(day(2024, 6, 1), day(2024, 6, 30))},
		{Name: "bob_notes.pdf", Owner: "bob", Data: []byte("%PDF"),
			FileRange: model.NewDateRange(day(2024, 6, 1), day(2024, 6, 30))},
	}, Options{})

	require.Len(t, batch.Files, 4)
	assert.ErrorIs(t, batch.Files[0].Err, common.ErrDecryption)
	assert.ErrorIs(t, batch.Files[1].Err, common.ErrOwnerUnknown)
	assert.NoError(t, batch.Files[2].Err)
	assert.ErrorIs(t, batch.Files[3].Err, common.ErrUnsupportedFile)
	assert.Equal(t, 1, batch.Succeeded())
	assert.Equal(t, 3, batch.Failed())
	assert.Equal(t, 1, batch.CategoriesAdded, "sync still runs after failures")
	for _, i := range []int{0, 1, 3} {
		assert.True(t, IsInputError(batch.Files[i].Err), batch.Files[i].Name)
	}
}

func TestPipeline_WrongPasswordAndMissingPassword(t *testing.T) {
	store := testutil.SetupTestDB(t)
	p := newPipeline(store)
	p.Passwords = map[string]string{"alice": "wrong"}

	data := testutil.NewExport(t).
		WithTransaction("2024-06-10", "", "지출", "식비", "", "Lunch", -9000).
		Archive("export.xlsx", password)

	batch := p.Run(context.Background(), []Item{
		{Name: "a.zip", Owner: "alice", Data: data},
		{Name: "b.zip", Owner: "bob", Data: data},
	}, Options{SkipCategorySync: true})

	assert.ErrorIs(t, batch.Files[0].Err, common.ErrDecryption)
	assert.ErrorIs(t, batch.Files[1].Err, common.ErrDecryption)
	assert.Contains(t, batch.Files[1].Err.Error(), "no password")
}

func TestPipeline_SortsBySnapshotDate(t *testing.T) {
	store := testutil.SetupTestDB(t)
	p := newPipeline(store)
	var seen []string
	p.Progress = &recordingProgress{advance: func(r FileResult) { seen = append(seen, r.Name) }}

	xlsx := testutil.NewExport(t).
		WithTransaction("2024-03-10", "", "지출", "식비", "", "Lunch", -9000).
		XLSX()

	items := []Item{
		{Name: "c.xlsx", Owner: "alice", Data: xlsx, FileRange: model.NewDateRange(day(2024, 1, 1), day(2024, 3, 31))},
		{Name: "a.xlsx", Owner: "alice", Data: xlsx, FileRange: model.NewDateRange(day(2024, 1, 1), day(2024, 1, 31))},
		{Name: "b.xlsx", Owner: "alice", Data: xlsx, FileRange: model.NewDateRange(day(2024, 1, 1), day(2024, 2, 29))},
		{Name: "b2.xlsx", Owner: "alice", Data: xlsx, FileRange: model.NewDateRange(day(2023, 1, 1), day(2024, 2, 29))},
	}
	batch := p.Run(context.Background(), items, Options{})

	assert.Equal(t, []string{"a.xlsx", "b.xlsx", "b2.xlsx", "c.xlsx"}, seen)
	assert.Equal(t, "c.xlsx", items[0].Name, "caller's slice is not reordered")
	assert.Equal(t, 4, batch.Succeeded())
}

func TestPipeline_AutoDiscoveredMarkedOnlyOnSuccess(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()
	p := newPipeline(store)

	dir := t.TempDir()
	goodPath := filepath.Join(dir, "alice_2024-06-01~2024-06-30.xlsx")
	require.NoError(t, os.WriteFile(goodPath, testutil.NewExport(t).
		WithTransaction("2024-06-03", "", "지출", "식비", "", "Lunch", -9000).
		XLSX(), 0600))
	badPath := filepath.Join(dir, "alice_2024-07-01~2024-07-31.xlsx")
	require.NoError(t, os.WriteFile(badPath, []byte("not a workbook"), 0600))

	batch := p.Run(ctx, []Item{
		{Path: goodPath, Name: filepath.Base(goodPath), Owner: "alice", AutoDiscovered: true,
			FileRange: model.NewDateRange(day(2024, 6, 1), day(2024, 6, 30))},
		{Path: badPath, Name: filepath.Base(badPath), Owner: "alice", AutoDiscovered: true,
			FileRange: model.NewDateRange(day(2024, 7, 1), day(2024, 7, 31))},
		{Path: filepath.Join(dir, "gone.xlsx"), Name: "gone.xlsx", Owner: "alice", AutoDiscovered: true},
	}, Options{})

	require.Len(t, batch.Files, 3)
	assert.NoError(t, batch.Files[0].Err)
	assert.Equal(t, "gone.xlsx", batch.Files[1].Name, "default range ends today, before July 31")
	assert.Error(t, batch.Files[1].Err)
	assert.ErrorIs(t, batch.Files[2].Err, common.ErrMalformedSpreadsheet)

	processed, err := store.GetProcessedFilenames(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"alice_2024-06-01~2024-06-30.xlsx": true}, processed)
}

func TestPipeline_UnnamedBalanceRowDoesNotFailFile(t *testing.T) {
	store := testutil.SetupTestDB(t)
	ctx := context.Background()
	p := newPipeline(store)

	data := testutil.NewExport(t).
		WithTransaction("2024-06-03", "12:00", "지출", "식비", "", "Lunch", -9000).
		WithAsset("", "", 50000).
		WithAsset("자유입출금", "Checking", 1000000).
		XLSX()

	batch := p.Run(ctx, []Item{{
		Name:           "alice_2024-06-01~2024-06-30.xlsx",
		Owner:          "alice",
		Data:           data,
		AutoDiscovered: true,
		FileRange:      model.NewDateRange(day(2024, 6, 1), day(2024, 6, 30)),
	}}, Options{})

	require.Len(t, batch.Files, 1)
	res := batch.Files[0]
	require.NoError(t, res.Err)
	assert.Equal(t, 1, res.Transactions)
	assert.Equal(t, 1, res.Assets)

	latest, err := store.GetLatestAssets(ctx)
	require.NoError(t, err)
	require.Len(t, latest, 1)
	assert.Equal(t, "Checking", latest[0].AccountName)

	processed, err := store.GetProcessedFilenames(ctx)
	require.NoError(t, err)
	assert.True(t, processed["alice_2024-06-01~2024-06-30.xlsx"])
}

func TestPipeline_DefaultRangeForUndatedItems(t *testing.T) {
	store := testutil.SetupTestDB(t)
	p := newPipeline(store)

	data := testutil.NewExport(t).
		WithTransaction("2024-05-01", "", "지출", "식비", "", "Too old", -1).
		WithTransaction("2024-06-02", "", "지출", "식비", "", "In window", -2).
		XLSX()

	batch := p.Run(context.Background(), []Item{{Name: "alice.xlsx", Owner: "alice", Data: data}}, Options{})

	require.NoError(t, batch.Files[0].Err)
	assert.Equal(t, DefaultRange(fixedClock()), batch.Files[0].FileRange)
	assert.Equal(t, 1, batch.Files[0].Transactions)
}

func TestPipeline_StorageErrorFailsOnlyThatFile(t *testing.T) {
	data := testutil.NewExport(t).
		WithTransaction("2024-06-10", "", "지출", "식비", "", "Lunch", -9000).
		XLSX()

	store := &failingStore{failOwner: "alice"}
	p := newPipeline(store)

	batch := p.Run(context.Background(), []Item{
		{Name: "a.xlsx", Owner: "alice", Data: data, FileRange: model.NewDateRange(day(2024, 6, 1), day(2024, 6, 30))},
		{Name: "b.xlsx", Owner: "bob", Data: data, FileRange: model.NewDateRange(day(2024, 6, 1), day(2024, 6, 30))},
	}, Options{ReferenceOwner: "bob"})

	assert.ErrorIs(t, batch.Files[0].Err, common.ErrStorage)
	assert.False(t, IsInputError(batch.Files[0].Err))
	assert.NoError(t, batch.Files[1].Err)
	assert.Equal(t, []string{"bob"}, store.synced)
}

func TestPipeline_CancelledContext(t *testing.T) {
	store := &failingStore{}
	p := newPipeline(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	batch := p.Run(ctx, []Item{{Name: "a.xlsx", Owner: "alice", Data: []byte("x")}}, Options{})

	assert.ErrorIs(t, batch.Files[0].Err, context.Canceled)
	assert.Empty(t, store.synced, "no sync after cancellation")
}

func TestFileResult_Message(t *testing.T) {
	ok := FileResult{
		Name:         "a.zip",
		Transactions: 12,
		Assets:       3,
		Skipped:      1,
		Overlap:      true,
		Effective:    model.NewDateRange(day(2024, 5, 1), day(2024, 7, 1)),
	}
	assert.Equal(t, "a.zip: 12 transactions (2024-05-01 ~ 2024-07-01), recent window only, 3 balance rows, 1 unreadable rows skipped", ok.Message())

	failed := FileResult{Name: "b.zip", Err: fmt.Errorf("%w: b.zip", common.ErrNoPayload)}
	assert.Contains(t, failed.Message(), "archive contains no spreadsheet")
}

type recordingProgress struct {
	advance func(FileResult)
	started int
}

func (r *recordingProgress) Start(total int)         { r.started = total }
func (r *recordingProgress) Advance(res FileResult) { r.advance(res) }
func (r *recordingProgress) Finish()                {}

type failingStore struct {
	failOwner string
	synced    []string
}

func (f *failingStore) HasTransactionsInRange(context.Context, string, model.DateRange) (bool, error) {
	return false, nil
}

func (f *failingStore) ReplaceTransactions(_ context.Context, owner string, txs []model.Transaction) (int, error) {
	if owner == f.failOwner {
		return 0, common.NewStorageError("replace transactions", errors.New("database is locked"))
	}
	return len(txs), nil
}

func (f *failingStore) ReplaceAssetSnapshot(_ context.Context, _ string, _ time.Time, rows []model.AssetSnapshot) (int, error) {
	return len(rows), nil
}

func (f *failingStore) SyncCategories(_ context.Context, owner string) (int, error) {
	f.synced = append(f.synced, owner)
	return 0, nil
}

func (f *failingStore) MarkFileProcessed(context.Context, model.ProcessedFile) error {
	return nil
}
