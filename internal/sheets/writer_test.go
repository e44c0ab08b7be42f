package sheets

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/analytics"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func sampleTransactions() []model.Transaction {
	older := testutil.NewTransaction("guest").Amount(12.5).Category(model.CategoryFood).
		Merchant("Bakery").On("2024-03-01").Build()
	newer := testutil.NewTransaction("guest").Amount(40).Category(model.CategoryTransport).
		Merchant("Metro").Description("monthly pass").On("2024-03-05").Build()
	newer.Provenance = &model.Provenance{Source: model.SourceText}
	return []model.Transaction{older, newer}
}

func TestBuildReport(t *testing.T) {
	txns := sampleTransactions()
	report := BuildReport("Guest", txns, analytics.Project(txns))

	assert.Equal(t, "Guest", report.Owner)
	assert.Equal(t, "52.5", report.TotalSpent.String())
	assert.Equal(t, "2024-03-01", report.DateRange.Start.Format(model.DateLayout))
	assert.Equal(t, "2024-03-05", report.DateRange.End.Format(model.DateLayout))

	require.Len(t, report.Categories, 2)
	assert.Equal(t, "Transport", report.Categories[0].Category)
	require.Len(t, report.Trend, 2)

	require.Len(t, report.Transactions, 2)
	assert.Equal(t, "Metro", report.Transactions[0].Merchant, "newest first")
	assert.Equal(t, "text", report.Transactions[0].Source)
	assert.Empty(t, report.Transactions[1].Source)
}

func TestLayout(t *testing.T) {
	txns := sampleTransactions()
	tabs := layout(BuildReport("Guest", txns, analytics.Project(txns)))
	require.Len(t, tabs, 3)

	summary := tabs[0]
	assert.Equal(t, SummaryTab, summary.title)
	assert.Equal(t, []any{"Spending Report", "Mar 1, 2024 - Mar 5, 2024"}, summary.rows[0])
	assert.Equal(t, []any{"Owner", "Guest"}, summary.rows[1])
	assert.Equal(t, []any{"Total Spent", 52.5}, summary.rows[2])
	assert.Equal(t, []any{"Transactions", 2}, summary.rows[3])
	assert.Len(t, summary.rows, 8, "six fixed rows plus two trend days")

	categories := tabs[1]
	assert.Equal(t, CategoriesTab, categories.title)
	assert.Equal(t, []any{"Transport", 1, 40.0, "76.19%"}, categories.rows[1])
	assert.Equal(t, []any{"Food", 1, 12.5, "23.81%"}, categories.rows[2])

	listing := tabs[2]
	assert.Equal(t, TransactionsTab, listing.title)
	assert.Equal(t, "Date", listing.rows[0][0])
	assert.Equal(t, []any{"2024-03-01", "Bakery", 12.5, "USD", "Food", "", ""}, listing.rows[len(listing.rows)-1])
}

func TestLayout_Empty(t *testing.T) {
	tabs := layout(BuildReport("Guest", nil, analytics.Project(nil)))
	assert.Equal(t, "no transactions", tabs[0].rows[0][1])
	assert.Equal(t, []any{"Transactions", 0}, tabs[0].rows[3])
	assert.Len(t, tabs[1].rows, 1)
	assert.Len(t, tabs[2].rows, 1)
}

func TestFormatRequests(t *testing.T) {
	tabs := layout(BuildReport("Guest", nil, analytics.Project(nil)))

	reqs := formatRequests(tabs, map[string]int64{SummaryTab: 0, TransactionsTab: 7})
	assert.Len(t, reqs, 7, "the empty transactions tab gets no money format")
	for _, r := range reqs {
		if r.UpdateSheetProperties != nil {
			assert.Equal(t, int64(1), r.UpdateSheetProperties.Properties.GridProperties.FrozenRowCount)
		}
	}

	assert.Empty(t, formatRequests(tabs, nil))
}

type recordedRequest struct {
	Method string
	Path   string
	Body   string
}

// fakeSheetsAPI answers just enough of the Sheets API for the writer. The
// existing spreadsheet lacks the Transactions tab.
type fakeSheetsAPI struct {
	failUpdates bool
	requests    []recordedRequest
	mu          sync.Mutex
}

func (f *fakeSheetsAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.requests = append(f.requests, recordedRequest{Method: r.Method, Path: r.URL.Path, Body: string(body)})
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet:
		_, _ = io.WriteString(w, `{"spreadsheetId": "sheet-1", "sheets": [
			{"properties": {"sheetId": 0, "title": "Summary"}},
			{"properties": {"sheetId": 11, "title": "Categories"}}]}`)
	case strings.HasSuffix(r.URL.Path, "/spreadsheets"):
		_, _ = io.WriteString(w, `{"spreadsheetId": "new-sheet", "sheets": [
			{"properties": {"sheetId": 1, "title": "Summary"}},
			{"properties": {"sheetId": 2, "title": "Categories"}},
			{"properties": {"sheetId": 3, "title": "Transactions"}}]}`)
	case strings.HasSuffix(r.URL.Path, "values:batchUpdate") && f.failUpdates:
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, `{"error": {"code": 500, "message": "backend error"}}`)
	case strings.Contains(string(body), "addSheet"):
		_, _ = io.WriteString(w, `{"spreadsheetId": "sheet-1", "replies": [
			{"addSheet": {"properties": {"sheetId": 22, "title": "Transactions"}}}]}`)
	default:
		_, _ = io.WriteString(w, `{"spreadsheetId": "sheet-1"}`)
	}
}

func (f *fakeSheetsAPI) recorded() []recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]recordedRequest(nil), f.requests...)
}

func (f *fakeSheetsAPI) count(suffix string) int {
	var n int
	for _, r := range f.recorded() {
		if strings.HasSuffix(r.Path, suffix) {
			n++
		}
	}
	return n
}

func newFakeWriter(t *testing.T, api *fakeSheetsAPI, cfg Config) *Writer {
	t.Helper()
	server := httptest.NewServer(api)
	t.Cleanup(server.Close)

	srv, err := sheets.NewService(context.Background(),
		option.WithHTTPClient(server.Client()),
		option.WithEndpoint(server.URL+"/"))
	require.NoError(t, err)
	return newWriterWithService(srv, cfg, testutil.DiscardLogger())
}

func TestWriter_WriteExisting(t *testing.T) {
	api := &fakeSheetsAPI{}
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "sheet-1"
	cfg.RetryDelay = time.Millisecond
	w := newFakeWriter(t, api, cfg)

	txns := sampleTransactions()
	id, err := w.Write(context.Background(), BuildReport("Guest", txns, analytics.Project(txns)))
	require.NoError(t, err)
	assert.Equal(t, "sheet-1", id)

	reqs := api.recorded()
	require.Len(t, reqs, 7, "get, add tab, clear, three tab updates, format")
	assert.Equal(t, http.MethodGet, reqs[0].Method)
	assert.Contains(t, reqs[1].Body, `"title":"Transactions"`)
	assert.True(t, strings.HasSuffix(reqs[2].Path, "values:batchClear"))
	assert.Contains(t, reqs[2].Body, "'Categories'!A1:Z")
	assert.Contains(t, reqs[3].Body, "Spending Report")
	assert.Contains(t, reqs[5].Body, "Metro")
	assert.Contains(t, reqs[6].Body, `"sheetId":22`, "the added tab is formatted too")
}

func TestWriter_WriteCreatesSpreadsheet(t *testing.T) {
	api := &fakeSheetsAPI{}
	cfg := DefaultConfig()
	cfg.EnableFormatting = false
	w := newFakeWriter(t, api, cfg)

	id, err := w.Write(context.Background(), BuildReport("Guest", nil, analytics.Project(nil)))
	require.NoError(t, err)
	assert.Equal(t, "new-sheet", id)

	reqs := api.recorded()
	require.NotEmpty(t, reqs)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Contains(t, reqs[0].Body, DefaultSpreadsheetName)
	assert.Equal(t, 0, api.count(":batchUpdate")-api.count("values:batchUpdate"), "no formatting requested")
}

func TestWriter_WriteBatches(t *testing.T) {
	api := &fakeSheetsAPI{}
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "sheet-1"
	cfg.BatchSize = 2
	cfg.EnableFormatting = false
	w := newFakeWriter(t, api, cfg)

	txns := sampleTransactions()
	report := BuildReport("Guest", txns, analytics.Project(txns))
	_, err := w.Write(context.Background(), report)
	require.NoError(t, err)

	var want int
	for _, tb := range layout(report) {
		want += (len(tb.rows) + 1) / 2
	}
	assert.Equal(t, want, api.count("values:batchUpdate"))
}

func TestWriter_WriteFailure(t *testing.T) {
	api := &fakeSheetsAPI{failUpdates: true}
	cfg := DefaultConfig()
	cfg.SpreadsheetID = "sheet-1"
	cfg.RetryAttempts = 1
	cfg.RetryDelay = time.Millisecond
	w := newFakeWriter(t, api, cfg)

	_, err := w.Write(context.Background(), BuildReport("Guest", nil, analytics.Project(nil)))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to write data")
}

func TestTokenRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "token.json")
	token := &oauth2.Token{AccessToken: "access", RefreshToken: "refresh", TokenType: "Bearer"}

	require.NoError(t, saveToken(path, token))
	loaded, err := LoadToken(path)
	require.NoError(t, err)
	assert.Equal(t, "refresh", loaded.RefreshToken)

	got, err := GetOrCreateToken(context.Background(), OAuth2Config{TokenFile: path}, func(string) {
		t.Fatal("a saved token must not trigger the interactive flow")
	})
	require.NoError(t, err)
	assert.Equal(t, "access", got.AccessToken)

	_, err = LoadToken(filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestOAuth2ConfigRedirect(t *testing.T) {
	cfg := OAuth2Config{ClientID: "id", ClientSecret: "secret"}
	assert.Equal(t, "http://"+DefaultCallbackAddr+"/callback", cfg.oauth().RedirectURL)

	cfg.CallbackAddr = "127.0.0.1:9999"
	assert.Equal(t, "http://127.0.0.1:9999/callback", cfg.oauth().RedirectURL)
	assert.Equal(t, []string{sheets.SpreadsheetsScope}, cfg.oauth().Scopes)
}

func TestCallbackHandler(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		wantCode string
		wantErr  string
		status   int
	}{
		{name: "success", query: "?state=s1&code=abc", wantCode: "abc", status: http.StatusOK},
		{name: "state mismatch", query: "?state=other&code=abc", wantErr: "state mismatch", status: http.StatusBadRequest},
		{name: "no code", query: "?state=s1", wantErr: "no authorization code", status: http.StatusBadRequest},
		{name: "denied", query: "?state=s1&error=access_denied", wantErr: "access_denied", status: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := make(chan callbackResult, 1)
			rec := httptest.NewRecorder()
			callbackHandler("s1", out).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/callback"+tt.query, nil))

			assert.Equal(t, tt.status, rec.Code)
			res := <-out
			if tt.wantErr != "" {
				require.Error(t, res.err)
				assert.Contains(t, res.err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, res.err)
			assert.Equal(t, tt.wantCode, res.code)
		})
	}
}

func TestMockWriter(t *testing.T) {
	m := NewMockWriter()
	id, err := m.Write(context.Background(), Report{Owner: "Guest"})
	require.NoError(t, err)
	assert.Equal(t, "mock-spreadsheet", id)
	assert.Equal(t, "Guest", m.LastReport.Owner)

	m.SetWriteError(errors.New("quota"))
	_, err = m.Write(context.Background(), Report{})
	assert.EqualError(t, err, "quota")
	assert.Equal(t, 2, m.Calls())
}
