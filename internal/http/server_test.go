package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"expenses/internal/core"
	"expenses/internal/ledger"
	"expenses/internal/log"
	"expenses/internal/storage/memory"
)

func seed() []core.Expense {
	return []core.Expense{
		{ID: "e1", Date: core.NewDate(2024, 1, 5), Category: core.Food, Amount: core.MustMoney("12.50"), Description: "lunch"},
		{ID: "e2", Date: core.NewDate(2024, 2, 10), Category: core.Transport, Amount: core.MustMoney("5"), Description: "bus"},
	}
}

func newTestServer(t *testing.T, store ledger.Store, opts Options) *Server {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = log.New(log.Config{Output: io.Discard})
	}
	srv, err := NewServer(":0", ledger.NewService(store), opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

func do(srv *Server, method, target string, form url.Values, htmx bool) *httptest.ResponseRecorder {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	req := httptest.NewRequest(method, target, body)
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if htmx {
		req.Header.Set("HX-Request", "true")
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

type malformedStore struct{}

func (malformedStore) Load(context.Context) ([]core.Expense, error) {
	return nil, fmt.Errorf("%w: unexpected token", ledger.ErrMalformed)
}

func (malformedStore) Save(context.Context, []core.Expense) error {
	return errors.New("save must not be reached")
}

func TestIndexAndHealth(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})

	rr := do(srv, http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Personal Expense Tracker")
	require.Contains(t, rr.Body.String(), "No expenses yet. Add some above!")
	require.NotEmpty(t, rr.Header().Get("X-Request-ID"))
	require.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	require.NotEmpty(t, rr.Header().Get("Content-Security-Policy"))

	for _, path := range []string{"/healthz", "/readyz"} {
		rr := do(srv, http.MethodGet, path, nil, false)
		require.Equal(t, http.StatusOK, rr.Code, path)
	}

	rr = do(srv, http.MethodGet, "/nope", nil, false)
	require.Equal(t, http.StatusNotFound, rr.Code)
}

func TestIndexListsLedger(t *testing.T) {
	srv := newTestServer(t, memory.New(seed()...), Options{})

	rr := do(srv, http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, "0 - 2024-01-05 | Food | $12.5 | lunch")
	require.Contains(t, body, "1 - 2024-02-10 | Transport | $5.0 | bus")
	require.Contains(t, body, "$17.50")
	require.Contains(t, body, "$8.75")
	require.NotContains(t, body, "No expenses yet")
}

func TestMutationsLogOnce(t *testing.T) {
	var buf strings.Builder
	store := memory.New(seed()...)
	srv := newTestServer(t, store, Options{Logger: log.New(log.Config{Output: &buf})})

	rr := do(srv, http.MethodPost, "/expenses", url.Values{"category": {"Food"}, "amount": {"3"}}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	rr = do(srv, http.MethodPost, "/expenses/delete", url.Values{"id": {"e1"}}, true)
	require.Equal(t, http.StatusOK, rr.Code)

	out := buf.String()
	require.Equal(t, 1, strings.Count(out, `msg="Expense added"`), out)
	require.Equal(t, 1, strings.Count(out, `msg="Expense deleted"`), out)
	require.Contains(t, out, "request_id="+rr.Header().Get("X-Request-ID"))
}

func TestCreateExpense(t *testing.T) {
	store := memory.New()
	srv := newTestServer(t, store, Options{})

	form := url.Values{
		"date":        {"2024-01-05"},
		"category":    {"Food"},
		"amount":      {"12,345"},
		"description": {"  lunch\n"},
	}
	rr := do(srv, http.MethodPost, "/expenses", form, true)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Expense added!")

	trigger := rr.Header().Get("HX-Trigger")
	for _, part := range []string{`"expense:created"`, `"form:reset"`, `"ledger:refresh"`, `"month":"2024-01"`, `"show-notification"`} {
		require.Contains(t, trigger, part)
	}

	records, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "12.35", records[0].Amount.String())
	require.Equal(t, "lunch", records[0].Description)
	require.NotEmpty(t, records[0].ID)
}

func TestCreateExpenseWithoutHTMXRedirects(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})

	form := url.Values{"date": {"2024-01-05"}, "category": {"Bills"}, "amount": {"40"}}
	rr := do(srv, http.MethodPost, "/expenses", form, false)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, "/", rr.Header().Get("Location"))
}

func TestCreateExpenseValidation(t *testing.T) {
	tests := []struct {
		name string
		form url.Values
	}{
		{"invalid amount", url.Values{"category": {"Food"}, "amount": {"abc"}}},
		{"negative amount", url.Values{"category": {"Food"}, "amount": {"-3"}}},
		{"missing amount", url.Values{"category": {"Food"}}},
		{"unknown category", url.Values{"category": {"Rent"}, "amount": {"1"}}},
		{"bad date", url.Values{"date": {"2024-13-01"}, "category": {"Food"}, "amount": {"1"}}},
		{"long description", url.Values{"category": {"Food"}, "amount": {"1"}, "description": {strings.Repeat("x", core.MaxDescriptionLen+1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := memory.New()
			srv := newTestServer(t, store, Options{})

			rr := do(srv, http.MethodPost, "/expenses", tt.form, true)
			require.Equal(t, http.StatusUnprocessableEntity, rr.Code)
			require.Contains(t, rr.Body.String(), `class="error"`)
			require.Equal(t, 0, store.Len())
		})
	}
}

func TestDeleteExpense(t *testing.T) {
	store := memory.New(seed()...)
	srv := newTestServer(t, store, Options{})

	rr := do(srv, http.MethodPost, "/expenses/delete", url.Values{"id": {"e1"}}, true)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), "Deleted: Food on 2024-01-05 ($12.5)")
	require.Contains(t, rr.Header().Get("HX-Trigger"), `"expense:deleted":{"id":"e1"}`)
	require.Equal(t, 1, store.Len())

	rr = do(srv, http.MethodPost, "/expenses/delete", url.Values{"id": {"e1"}}, true)
	require.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(srv, http.MethodPost, "/expenses/delete", url.Values{"index": {"1"}}, true)
	require.Equal(t, http.StatusConflict, rr.Code)

	rr = do(srv, http.MethodPost, "/expenses/delete", url.Values{"index": {"0"}}, false)
	require.Equal(t, http.StatusSeeOther, rr.Code)
	require.Equal(t, 0, store.Len())

	rr = do(srv, http.MethodPost, "/expenses/delete", url.Values{}, true)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestLedgerPartialFilters(t *testing.T) {
	srv := newTestServer(t, memory.New(seed()...), Options{})

	rr := do(srv, http.MethodGet, "/ui/ledger?category=Transport&month=All", nil, true)
	require.Equal(t, http.StatusOK, rr.Code)
	body := rr.Body.String()
	require.Contains(t, body, "$5.00")
	require.Contains(t, body, "/charts/category.svg?category=Transport")
	require.Contains(t, body, "/export.csv?category=Transport")
	require.Contains(t, body, `<option value="Transport" selected>`)

	rr = do(srv, http.MethodGet, "/ui/ledger?month=2024-1", nil, true)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	rr = do(srv, http.MethodGet, "/ui/ledger?category=Rent", nil, true)
	require.Equal(t, http.StatusBadRequest, rr.Code)
}

func TestExportCSV(t *testing.T) {
	srv := newTestServer(t, memory.New(seed()...), Options{})

	rr := do(srv, http.MethodGet, "/export.csv?month=2024-01", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Equal(t, `attachment; filename="expenses.csv"`, rr.Header().Get("Content-Disposition"))
	require.Equal(t, "date,category,amount,description\n2024-01-05,Food,12.5,lunch\n", rr.Body.String())

	rr = do(srv, http.MethodGet, "/export.csv", nil, false)
	require.Equal(t, "date,category,amount,description\n2024-01-05,Food,12.5,lunch\n2024-02-10,Transport,5.0,bus\n", rr.Body.String())
}

func TestCharts(t *testing.T) {
	srv := newTestServer(t, memory.New(seed()...), Options{})

	for _, path := range []string{"/charts/category.svg", "/charts/month.svg", "/charts/month.svg?category=Bills"} {
		rr := do(srv, http.MethodGet, path, nil, false)
		require.Equal(t, http.StatusOK, rr.Code, path)
		require.Equal(t, "image/svg+xml", rr.Header().Get("Content-Type"))
		require.Contains(t, rr.Body.String(), "<svg", path)
	}
}

func TestAPIExpenses(t *testing.T) {
	srv := newTestServer(t, memory.New(seed()...), Options{})

	rr := do(srv, http.MethodGet, "/api/expenses", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)

	var got struct {
		Expenses []core.Expense `json:"expenses"`
		Summary  struct {
			Count   int     `json:"count"`
			Total   float64 `json:"total"`
			Average float64 `json:"average"`
		} `json:"summary"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &got))
	require.Len(t, got.Expenses, 2)
	require.Equal(t, 2, got.Summary.Count)
	require.InDelta(t, 17.5, got.Summary.Total, 1e-9)
	require.InDelta(t, 8.75, got.Summary.Average, 1e-9)

	rr = do(srv, http.MethodGet, "/api/expenses?category=Bills", nil, false)
	require.Contains(t, rr.Body.String(), `"expenses":[]`)
}

func TestMalformedLedger(t *testing.T) {
	srv := newTestServer(t, malformedStore{}, Options{})

	rr := do(srv, http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), msgMalformed)

	rr = do(srv, http.MethodPost, "/expenses", url.Values{"category": {"Food"}, "amount": {"1"}}, true)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), msgMalformed)

	rr = do(srv, http.MethodGet, "/readyz", nil, false)
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestPersistFailure(t *testing.T) {
	store := memory.New()
	store.FailSaves(errors.New("disk full"))
	srv := newTestServer(t, store, Options{})

	rr := do(srv, http.MethodPost, "/expenses", url.Values{"category": {"Food"}, "amount": {"1"}}, true)
	require.Equal(t, http.StatusInternalServerError, rr.Code)
	require.Contains(t, rr.Body.String(), msgPersist)
	require.Contains(t, rr.Body.String(), "(ref "+rr.Header().Get("X-Request-ID")+")")
	require.Contains(t, rr.Header().Get("HX-Trigger"), `"type":"error"`)
}

func TestRateLimitAppliesToPosts(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{RateLimitPerMinute: 1})

	form := url.Values{"category": {"Food"}, "amount": {"1"}}
	rr := do(srv, http.MethodPost, "/expenses", form, true)
	require.Equal(t, http.StatusOK, rr.Code)

	rr = do(srv, http.MethodPost, "/expenses", form, true)
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	require.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr = do(srv, http.MethodGet, "/", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
}

func TestStaticAssets(t *testing.T) {
	srv := newTestServer(t, memory.New(), Options{})

	rr := do(srv, http.MethodGet, "/static/app.css", nil, false)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Header().Get("Cache-Control"), "max-age=3600")
}
