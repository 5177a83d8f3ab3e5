package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartspend/internal/core"
	"smartspend/internal/format"
	"smartspend/internal/identity"
	"smartspend/internal/report"
	"smartspend/internal/storage"
	"smartspend/internal/storage/memory"
	"smartspend/internal/store"
)

var testNow = time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)

func newTestServer(t *testing.T, backend storage.Backend, opts Options) *Server {
	t.Helper()
	if backend == nil {
		backend = memory.New()
	}
	opts.Registry = store.NewRegistry(store.Options{
		Backend: backend,
		Clock:   func() time.Time { return testNow },
	}, 10, time.Hour)
	if opts.Verifier == nil && opts.OwnerID == "" {
		opts.OwnerID = "alice"
	}
	if opts.Currency.Code == "" {
		opts.Currency = format.NewCurrency("USD", 2)
	}
	srv, err := NewServer(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = srv.Shutdown(context.Background()) })
	return srv
}

type call struct {
	method string
	path   string
	body   any
	token  string
}

func do(t *testing.T, srv *Server, c call) *httptest.ResponseRecorder {
	t.Helper()
	var body *bytes.Reader
	switch b := c.body.(type) {
	case nil:
		body = bytes.NewReader(nil)
	case string:
		body = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(c.method, c.path, body)
	req.RemoteAddr = "203.0.113.10:5000"
	if c.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	rr := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &v), rr.Body.String())
	return v
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) ErrorDetail {
	t.Helper()
	return decode[ErrorBody](t, rr).Error
}

func expense(amount float64, category, desc, date string) map[string]any {
	return map[string]any{"amount": amount, "type": "expense", "category": category, "description": desc, "date": date}
}

func TestNewServerRequiresCollaborators(t *testing.T) {
	_, err := NewServer(Options{OwnerID: "alice"})
	assert.Error(t, err)

	reg := store.NewRegistry(store.Options{Backend: memory.New()}, 1, time.Minute)
	_, err = NewServer(Options{Registry: reg})
	assert.Error(t, err)
}

func TestHealthz(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	rr := do(t, srv, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.Equal(t, "nosniff", rr.Header().Get("X-Content-Type-Options"))
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = do(t, srv, call{method: http.MethodPost, path: "/healthz"})
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestTransactionsCRUD(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	rr := do(t, srv, call{method: http.MethodPost, path: "/api/transactions", body: expense(25.5, "Food", "Lunch", "2024-03-10")})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := decode[core.Transaction](t, rr)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "/api/transactions/"+created.ID, rr.Header().Get("Location"))
	assert.Equal(t, int64(2550), created.Amount.Cents)
	assert.Equal(t, core.Expense, created.Type)

	rr = do(t, srv, call{method: http.MethodPost, path: "/api/transactions", body: map[string]any{
		"amount": 1000, "type": "income", "category": "Salary", "date": "2024-03-01T09:00:00Z",
	}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/transactions"})
	require.Equal(t, http.StatusOK, rr.Code)
	list := decode[[]core.Transaction](t, rr)
	require.Len(t, list, 2)
	assert.Equal(t, created.ID, list[0].ID, "newest first")

	filters := []struct {
		query string
		want  int
	}{
		{"?type=income", 1},
		{"?type=EXPENSE", 1},
		{"?q=lunch", 1},
		{"?q=food", 1},
		{"?q=nothing", 0},
		{"?start=2024-03-05", 1},
		{"?end=2024-03-10", 2},
		{"?start=2024-03-01&end=2024-03-09", 1},
	}
	for _, f := range filters {
		rr = do(t, srv, call{method: http.MethodGet, path: "/api/transactions" + f.query})
		require.Equal(t, http.StatusOK, rr.Code, f.query)
		assert.Len(t, decode[[]core.Transaction](t, rr), f.want, f.query)
	}

	rr = do(t, srv, call{method: http.MethodPut, path: "/api/transactions/" + created.ID, body: expense(30, "Food", "Dinner", "2024-03-11")})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[core.Transaction](t, rr)
	assert.Equal(t, created.ID, updated.ID)
	assert.Equal(t, int64(3000), updated.Amount.Cents)
	assert.Equal(t, "Dinner", updated.Description)

	rr = do(t, srv, call{method: http.MethodPut, path: "/api/transactions/missing", body: expense(30, "Food", "", "2024-03-11")})
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, "not_found_error", errorOf(t, rr).Code)

	for range 2 {
		rr = do(t, srv, call{method: http.MethodDelete, path: "/api/transactions/" + created.ID})
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	}

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/transactions"})
	assert.Len(t, decode[[]core.Transaction](t, rr), 1)
}

func TestValidationErrors(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	tests := []struct {
		name      string
		call      call
		wantField string
	}{
		{name: "zero amount", call: call{method: http.MethodPost, path: "/api/transactions", body: expense(0, "Food", "", "2024-03-01")}},
		{name: "unknown type", call: call{method: http.MethodPost, path: "/api/transactions", body: map[string]any{"amount": 5, "type": "gift", "category": "x", "date": "2024-03-01"}}, wantField: "type"},
		{name: "missing date", call: call{method: http.MethodPost, path: "/api/transactions", body: map[string]any{"amount": 5, "type": "expense", "category": "x"}}, wantField: "date"},
		{name: "bad date", call: call{method: http.MethodPost, path: "/api/transactions", body: expense(5, "x", "", "03/01/2024")}, wantField: "date"},
		{name: "unknown field", call: call{method: http.MethodPost, path: "/api/transactions", body: map[string]any{"amount": 5, "kind": "expense"}}, wantField: "body"},
		{name: "malformed json", call: call{method: http.MethodPost, path: "/api/transactions", body: `{"amount":`}, wantField: "body"},
		{name: "amount not a number", call: call{method: http.MethodPost, path: "/api/transactions", body: `{"amount":"lots"}`}, wantField: "amount"},
		{name: "bad start filter", call: call{method: http.MethodGet, path: "/api/transactions?start=yesterday"}, wantField: "start"},
		{name: "end before start", call: call{method: http.MethodGet, path: "/api/transactions?start=2024-03-10&end=2024-03-01"}, wantField: "end"},
		{name: "bad months", call: call{method: http.MethodGet, path: "/api/reports/monthly?months=0"}, wantField: "months"},
		{name: "comparison needs range", call: call{method: http.MethodGet, path: "/api/reports/comparison"}, wantField: "start"},
		{name: "bad category color", call: call{method: http.MethodPost, path: "/api/categories", body: map[string]any{"name": "Food", "type": "expense", "color": "red"}}},
		{name: "loan due before start", call: call{method: http.MethodPost, path: "/api/loans", body: map[string]any{"amount": 10, "type": "lent", "personName": "Ana", "startDate": "2024-02-01", "dueDate": "2024-01-01"}}, wantField: "dueDate"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := do(t, srv, tt.call)
			require.Equal(t, http.StatusBadRequest, rr.Code, rr.Body.String())
			detail := errorOf(t, rr)
			assert.Equal(t, "validation_error", detail.Code)
			if tt.wantField != "" {
				assert.Equal(t, tt.wantField, detail.Field)
			}
		})
	}

	rr := do(t, srv, call{method: http.MethodGet, path: "/api/transactions"})
	assert.Empty(t, decode[[]core.Transaction](t, rr), "rejected input must not be stored")
}

func TestCategoriesAndProgress(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	food := map[string]any{"name": "Food", "budget": 100, "type": "expense", "color": "#ff0000"}
	rr := do(t, srv, call{method: http.MethodPost, path: "/api/categories", body: food})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	cat := decode[core.Category](t, rr)

	rr = do(t, srv, call{method: http.MethodPost, path: "/api/categories", body: food})
	assert.Equal(t, http.StatusBadRequest, rr.Code, "names are unique per type")

	rr = do(t, srv, call{method: http.MethodPost, path: "/api/categories", body: map[string]any{"name": "Food", "type": "income"}})
	assert.Equal(t, http.StatusCreated, rr.Code, "same name is allowed for the other type")

	rr = do(t, srv, call{method: http.MethodPost, path: "/api/transactions", body: expense(80, "Food", "Groceries", "2024-03-02")})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/categories/" + cat.ID + "/progress"})
	require.Equal(t, http.StatusOK, rr.Code)
	progress := decode[report.BudgetProgress](t, rr)
	assert.Equal(t, 80, progress.Percentage)
	assert.Equal(t, report.LevelWarning, progress.Level)
	assert.Equal(t, int64(2000), progress.Remaining.Cents)

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/categories?type=expense"})
	require.Equal(t, http.StatusOK, rr.Code)
	views := decode[[]categoryView](t, rr)
	require.Len(t, views, 1)
	assert.Equal(t, int64(8000), views[0].Spent.Cents)

	rr = do(t, srv, call{method: http.MethodPut, path: "/api/categories/" + cat.ID, body: map[string]any{"name": "Groceries", "budget": 200, "type": "expense"}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, "Groceries", decode[core.Category](t, rr).Name)

	rr = do(t, srv, call{method: http.MethodDelete, path: "/api/categories/" + cat.ID})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/categories/" + cat.ID + "/progress"})
	assert.Equal(t, http.StatusNotFound, rr.Code)

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/transactions"})
	assert.Len(t, decode[[]core.Transaction](t, rr), 1, "deleting a category keeps its transactions")
}

func TestLoanPayments(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	rr := do(t, srv, call{method: http.MethodPost, path: "/api/loans", body: map[string]any{
		"amount": 1000, "type": "lent", "personName": "Ana", "startDate": "2024-01-01", "dueDate": "2024-03-20",
	}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	loan := decode[loanView](t, rr)
	assert.Equal(t, core.LoanActive, loan.Status)
	assert.Equal(t, int64(100000), loan.Remaining.Cents)
	require.NotNil(t, loan.DaysUntilDue)
	assert.Equal(t, 5, *loan.DaysUntilDue)

	rr = do(t, srv, call{method: http.MethodPost, path: "/api/loans/" + loan.ID + "/payments", body: map[string]any{"amount": 200, "note": "first"}})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	paid := decode[paymentResponse](t, rr)
	assert.Equal(t, int64(20000), paid.Payment.Amount.Cents)
	assert.True(t, paid.Payment.Date.Equal(testNow), "payment date defaults to now")
	assert.Equal(t, int64(80000), paid.Loan.Remaining.Cents)
	assert.InDelta(t, 20.0, paid.Loan.Progress, 1e-9)

	rr = do(t, srv, call{method: http.MethodPost, path: "/api/loans/" + loan.ID + "/payments", body: map[string]any{"amount": 900, "date": "2024-03-02"}})
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "amount", errorOf(t, rr).Field)

	rr = do(t, srv, call{method: http.MethodPut, path: "/api/loans/" + loan.ID, body: map[string]any{
		"amount": 1200, "type": "lent", "personName": "Ana B.", "startDate": "2024-01-01",
	}})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	updated := decode[loanView](t, rr)
	assert.Len(t, updated.PaymentHistory, 1, "update keeps payments")
	assert.Equal(t, int64(100000), updated.Remaining.Cents)
	assert.Nil(t, updated.DaysUntilDue)

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/loans"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Len(t, decode[[]loanView](t, rr), 1)

	rr = do(t, srv, call{method: http.MethodDelete, path: "/api/loans/" + loan.ID})
	assert.Equal(t, http.StatusNoContent, rr.Code)

	rr = do(t, srv, call{method: http.MethodPost, path: "/api/loans/" + loan.ID + "/payments", body: map[string]any{"amount": 10}})
	assert.Equal(t, http.StatusNotFound, rr.Code)
}

func TestReports(t *testing.T) {
	srv := newTestServer(t, nil, Options{})

	for _, body := range []map[string]any{
		{"amount": 1000, "type": "income", "category": "Salary", "date": "2024-03-01"},
		expense(250, "Food", "", "2024-03-05"),
		expense(100, "Rent", "", "2024-02-05"),
	} {
		rr := do(t, srv, call{method: http.MethodPost, path: "/api/transactions", body: body})
		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	}
	rr := do(t, srv, call{method: http.MethodPost, path: "/api/categories", body: map[string]any{"name": "Food", "budget": 500, "type": "expense"}})
	require.Equal(t, http.StatusCreated, rr.Code)

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/dashboard"})
	require.Equal(t, http.StatusOK, rr.Code)
	dash := decode[report.Dashboard](t, rr)
	assert.Equal(t, int64(100000), dash.TotalIncome.Cents)
	assert.Equal(t, int64(35000), dash.TotalExpenses.Cents)
	assert.Equal(t, 65, dash.SavingsRate)
	assert.Len(t, dash.Months, 6)

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/reports/monthly?months=2"})
	require.Equal(t, http.StatusOK, rr.Code)
	var months []struct {
		core.MonthSummary
		Label string `json:"label"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &months))
	require.Len(t, months, 2)
	assert.Equal(t, "Feb", months[0].Label)
	assert.Equal(t, int64(10000), months[0].Expenses.Cents)
	assert.Equal(t, "Mar", months[1].Label)
	assert.Equal(t, int64(75000), months[1].Savings.Cents)

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/reports/comparison?start=2024-03-01&end=2024-03-15"})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	cmp := decode[report.Comparison](t, rr)
	assert.Equal(t, int64(100000), cmp.CurrentTotals.Income.Cents)
	assert.Equal(t, int64(25000), cmp.CurrentTotals.Expenses.Cents)

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/reports/categories"})
	require.Equal(t, http.StatusOK, rr.Code)
	breakdown := decode[[]core.CategoryAmount](t, rr)
	require.Len(t, breakdown, 1, "only categories with spending")
	assert.Equal(t, "Food", breakdown[0].Name)

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/reports/categories?end=2024-02-28"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, decode[[]core.CategoryAmount](t, rr))
}

func TestExportImport(t *testing.T) {
	src := newTestServer(t, nil, Options{})
	do(t, src, call{method: http.MethodPost, path: "/api/transactions", body: expense(12.5, "Food", "Snack", "2024-03-03")})
	do(t, src, call{method: http.MethodPost, path: "/api/categories", body: map[string]any{"name": "Food", "budget": 50, "type": "expense"}})
	do(t, src, call{method: http.MethodPost, path: "/api/loans", body: map[string]any{"amount": 300, "type": "borrowed", "personName": "Bo", "startDate": "2024-01-10"}})

	rr := do(t, src, call{method: http.MethodGet, path: "/api/export"})
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Header().Get("Content-Disposition"), "smartspend-backup.json")
	exported := rr.Body.String()
	assert.Contains(t, exported, `"currency": "USD"`)

	dst := newTestServer(t, nil, Options{})
	rr = do(t, dst, call{method: http.MethodPost, path: "/api/import", body: exported})
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	assert.Equal(t, importSummary{Transactions: 1, Categories: 1, Loans: 1}, decode[importSummary](t, rr))

	rr = do(t, dst, call{method: http.MethodGet, path: "/api/export"})
	assert.JSONEq(t, exported, rr.Body.String(), "export of an import reproduces the document")

	rr = do(t, dst, call{method: http.MethodPost, path: "/api/import", body: `{"transactions": []}`})
	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, "categories", errorOf(t, rr).Field)

	rr = do(t, dst, call{method: http.MethodGet, path: "/api/import"})
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestBearerAuth(t *testing.T) {
	v, err := identity.NewVerifier("0123456789abcdef")
	require.NoError(t, err)
	srv := newTestServer(t, nil, Options{Verifier: v})

	rr := do(t, srv, call{method: http.MethodGet, path: "/api/transactions"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, "auth_error", errorOf(t, rr).Code)
	assert.NotEmpty(t, rr.Header().Get("WWW-Authenticate"))

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/transactions", token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	bob, err := v.Issue("bob", time.Hour)
	require.NoError(t, err)
	carol, err := v.Issue("carol", time.Hour)
	require.NoError(t, err)

	rr = do(t, srv, call{method: http.MethodPost, path: "/api/transactions", token: bob, body: expense(5, "Food", "", "2024-03-01")})
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/transactions", token: bob})
	assert.Len(t, decode[[]core.Transaction](t, rr), 1)
	rr = do(t, srv, call{method: http.MethodGet, path: "/api/transactions", token: carol})
	assert.Empty(t, decode[[]core.Transaction](t, rr), "owners are isolated")

	rr = do(t, srv, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rr.Code, "health check needs no token")
}

func TestRateLimit(t *testing.T) {
	srv := newTestServer(t, nil, Options{RateLimitPerMinute: 2})

	for range 2 {
		rr := do(t, srv, call{method: http.MethodGet, path: "/api/loans"})
		require.Equal(t, http.StatusOK, rr.Code)
	}
	rr := do(t, srv, call{method: http.MethodGet, path: "/api/loans"})
	assert.Equal(t, http.StatusTooManyRequests, rr.Code)
	assert.Equal(t, "rate_limited", errorOf(t, rr).Code)
	assert.NotEmpty(t, rr.Header().Get("Retry-After"))

	rr = do(t, srv, call{method: http.MethodGet, path: "/healthz"})
	assert.Equal(t, http.StatusOK, rr.Code)
}

type brokenTransactions struct {
	storage.Repository[core.Transaction]
}

func (brokenTransactions) Insert(context.Context, string, core.Transaction) (core.Transaction, error) {
	return core.Transaction{}, errors.New("disk full")
}

type brokenBackend struct {
	storage.Backend
}

func (b brokenBackend) Transactions() storage.Repository[core.Transaction] {
	return brokenTransactions{b.Backend.Transactions()}
}

func TestPersistenceFailure(t *testing.T) {
	srv := newTestServer(t, brokenBackend{memory.New()}, Options{})

	rr := do(t, srv, call{method: http.MethodPost, path: "/api/transactions", body: expense(5, "Food", "", "2024-03-01")})
	assert.Equal(t, http.StatusBadGateway, rr.Code)
	detail := errorOf(t, rr)
	assert.Equal(t, "database_error", detail.Code)
	assert.False(t, strings.Contains(detail.Message, "disk full"), "backend details stay server-side")

	rr = do(t, srv, call{method: http.MethodGet, path: "/api/transactions"})
	assert.Empty(t, decode[[]core.Transaction](t, rr))
}
