package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"testing"
	"time"

	"github.com/Veraticus/spice-ledger/internal/engine"
	"github.com/Veraticus/spice-ledger/internal/intake"
	"github.com/Veraticus/spice-ledger/internal/llm"
	"github.com/Veraticus/spice-ledger/internal/model"
	"github.com/Veraticus/spice-ledger/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

type testServer struct {
	engine  *engine.Engine
	handler http.Handler
	db      *testutil.TestDB
}

func newTestServer(t *testing.T, replies ...string) *testServer {
	t.Helper()
	db := testutil.SetupTestDB(t)
	clock := func() time.Time { return fixedNow }
	gateway := llm.NewGateway(llm.NewMockClient(replies...),
		llm.Config{MaxRetries: 1, RetryDelay: time.Millisecond}, testutil.DiscardLogger()).WithClock(clock)

	e := engine.New(db.Store, gateway, testutil.DiscardLogger(),
		engine.WithClock(clock),
		engine.WithIntakeConfig(intake.Config{Debounce: 5 * time.Millisecond, MinInputLength: 5}))
	t.Cleanup(e.Close)

	return &testServer{engine: e, handler: NewRouter(e, testutil.DiscardLogger()), db: db}
}

func (s *testServer) do(t *testing.T, method, path string, body any, user string) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if user != "" {
		req.Header.Set(UserHeader, user)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) engine.Response[T] {
	t.Helper()
	var resp engine.Response[T]
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodGet, "/health", nil, "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	assert.Contains(t, rec.Body.String(), "healthy")
}

func TestRequestIDIsEchoed(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)

	assert.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestCORSPreflight(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodOptions, "/api/transactions", nil, "")

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Headers"), UserHeader)
}

func TestMeDefaultsToGuest(t *testing.T) {
	s := newTestServer(t)

	guest := decode[model.User](t, s.do(t, http.MethodGet, "/api/me", nil, ""))
	assert.Equal(t, model.GuestUserID, guest.Data.ID)

	alice := decode[model.User](t, s.do(t, http.MethodGet, "/api/me", nil, "alice"))
	assert.Equal(t, "alice", alice.Data.ID)
}

func TestTransactionsCRUD(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(t, http.MethodPost, "/api/transactions", map[string]any{
		"amount":   12.5,
		"category": "food",
		"merchant": "Bakery",
		"date":     "2024-05-01",
		"currency": "eur",
	}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[model.Transaction](t, rec)
	assert.Equal(t, model.CategoryFood, created.Data.Category)
	assert.Equal(t, "EUR", created.Data.Currency)
	assert.Equal(t, "2024-05-01", created.Data.DayKey())

	list := decode[[]model.Transaction](t, s.do(t, http.MethodGet, "/api/transactions?category=Food", nil, ""))
	require.Len(t, list.Data, 1)

	other := decode[[]model.Transaction](t, s.do(t, http.MethodGet, "/api/transactions", nil, "bob"))
	assert.Empty(t, other.Data, "transactions are scoped per user")

	rec = s.do(t, http.MethodDelete, "/api/transactions/"+created.Data.ID, nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	list = decode[[]model.Transaction](t, s.do(t, http.MethodGet, "/api/transactions", nil, ""))
	assert.Empty(t, list.Data)
}

func TestTransactionsBadRequests(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		method string
		path   string
		body   any
	}{
		{name: "unknown category filter", method: http.MethodGet, path: "/api/transactions?category=Rent"},
		{name: "bad since", method: http.MethodGet, path: "/api/transactions?since=yesterday"},
		{name: "negative amount", method: http.MethodPost, path: "/api/transactions", body: map[string]any{"amount": -3}},
		{name: "bad date", method: http.MethodPost, path: "/api/transactions", body: map[string]any{"amount": 3, "date": "soon"}},
		{name: "unknown field", method: http.MethodPost, path: "/api/transactions", body: map[string]any{"amount": 3, "color": "red"}},
		{name: "empty question", method: http.MethodPost, path: "/api/ask", body: map[string]any{"query": " "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, tt.body, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestBudgets(t *testing.T) {
	s := newTestServer(t)

	defaults := decode[[]model.Budget](t, s.do(t, http.MethodGet, "/api/budgets", nil, ""))
	assert.Len(t, defaults.Data, 3)

	rec := s.do(t, http.MethodPut, "/api/budgets", map[string]any{"category": "health", "limit": 80}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	budget := decode[model.Budget](t, rec)
	assert.Equal(t, model.CategoryHealth, budget.Data.Category)
	assert.Equal(t, model.BudgetPeriodMonthly, budget.Data.Period)

	rec = s.do(t, http.MethodPut, "/api/budgets", map[string]any{"category": "Health", "limit": 90}, "")
	assert.Equal(t, http.StatusOK, rec.Code)

	stored := decode[[]model.Budget](t, s.do(t, http.MethodGet, "/api/budgets", nil, ""))
	require.Len(t, stored.Data, 1)
	assert.InDelta(t, 90, stored.Data[0].Limit, 0.001)
}

func TestAnalytics(t *testing.T) {
	s := newTestServer(t)
	session, err := s.engine.Session(context.Background(), "")
	require.NoError(t, err)
	s.db.MustAddTransactions(
		testutil.NewTransaction(session.UserID).Amount(20).Category(model.CategoryFood).On("2024-05-01").Build(),
		testutil.NewTransaction(session.UserID).Amount(60).Category(model.CategoryShopping).On("2024-05-03").Build(),
	)

	rec := s.do(t, http.MethodGet, "/api/analytics?since=2024-05-02", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"totalSpent":60`)
}

func TestAsk(t *testing.T) {
	s := newTestServer(t, "You spend most on food.")

	rec := s.do(t, http.MethodPost, "/api/ask", map[string]string{"query": "Where does it go?"}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "You spend most on food.", decode[string](t, rec).Data)
}

func TestIntakeTextFlow(t *testing.T) {
	s := newTestServer(t, `{"amount": 18, "currency": "USD", "category": "Food", "date": "2024-05-10", "merchant": "Cafe"}`)

	rec := s.do(t, http.MethodPost, "/api/intake/main/text", map[string]string{"text": "Lunch 18 at Cafe"}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		snap := decode[intake.Snapshot](t, s.do(t, http.MethodGet, "/api/intake/main", nil, ""))
		return snap.Data.State == intake.StatePreviewReady
	}, 2*time.Second, 5*time.Millisecond)

	amount := 20.0
	rec = s.do(t, http.MethodPost, "/api/intake/main/confirm", intake.Overrides{Amount: &amount}, "")
	require.Equal(t, http.StatusCreated, rec.Code)
	txn := decode[model.Transaction](t, rec)
	assert.InDelta(t, 20, txn.Data.Amount, 0.001)
	assert.Equal(t, "Cafe", txn.Data.Merchant)

	rec = s.do(t, http.MethodPost, "/api/intake/main/confirm", nil, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code, "the preview was consumed")

	rec = s.do(t, http.MethodPost, "/api/intake/main/cancel", nil, "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[engine.CancelResult](t, rec).Data.Cancelled)
}

func multipartImage(t *testing.T, field, contentType string, data []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="`+field+`"; filename="receipt.png"`)
	header.Set("Content-Type", contentType)
	part, err := w.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &buf, w.FormDataContentType()
}

func TestIntakeImageUpload(t *testing.T) {
	s := newTestServer(t, `{"amount": 9, "currency": "USD", "category": "Shopping", "date": "2024-05-10", "merchant": "Store"}`)

	body, contentType := multipartImage(t, "file", "image/png", []byte("\x89PNG\r\n\x1a\nfake"))
	req := httptest.NewRequest(http.MethodPost, "/api/intake/receipt/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool {
		snap := decode[intake.Snapshot](t, s.do(t, http.MethodGet, "/api/intake/receipt", nil, ""))
		return snap.Data.State == intake.StatePreviewReady
	}, 2*time.Second, 5*time.Millisecond)

	rec = s.do(t, http.MethodPost, "/api/intake/receipt/cancel", nil, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decode[engine.CancelResult](t, rec).Data.Cancelled)
}

func TestIntakeImageRejectsBadUploads(t *testing.T) {
	s := newTestServer(t)

	body, contentType := multipartImage(t, "attachment", "image/png", []byte("data"))
	req := httptest.NewRequest(http.MethodPost, "/api/intake/receipt/image", body)
	req.Header.Set("Content-Type", contentType)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, contentType = multipartImage(t, "file", "text/plain", []byte("not an image"))
	req = httptest.NewRequest(http.MethodPost, "/api/intake/receipt/image", body)
	req.Header.Set("Content-Type", contentType)
	rec = httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRecoveryMiddleware(t *testing.T) {
	handler := Recovery(testutil.DiscardLogger())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "Internal server error")
}

func TestMethodNotAllowed(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, http.MethodPatch, "/api/budgets", nil, "")
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
