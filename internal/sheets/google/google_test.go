package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"smartspend/internal/core"
)

// fakeSheets serves the handful of Sheets endpoints the client uses.
type fakeSheets struct {
	mu    sync.Mutex
	tabs  map[string][][]any
	calls []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	const prefix = "/v4/spreadsheets/sid"
	rest, ok := strings.CutPrefix(r.URL.Path, prefix)
	if !ok {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	switch {
	case rest == "" && r.Method == http.MethodGet:
		f.calls = append(f.calls, "get")
		var sheets []map[string]any
		for title := range f.tabs {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": title}})
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid", "sheets": sheets})

	case rest == ":batchUpdate":
		f.calls = append(f.calls, "batchUpdate")
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		for _, q := range req.Requests {
			if q.AddSheet != nil {
				f.tabs[q.AddSheet.Properties.Title] = nil
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})

	case strings.HasPrefix(rest, "/values/"):
		rng := strings.TrimPrefix(rest, "/values/")
		if cleared, ok := strings.CutSuffix(rng, ":clear"); ok {
			f.calls = append(f.calls, "clear")
			f.tabs[tabOf(cleared)] = nil
			json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
			return
		}
		title := tabOf(rng)
		if r.Method == http.MethodPut {
			f.calls = append(f.calls, "update:"+r.URL.Query().Get("valueInputOption"))
			var vr gsheet.ValueRange
			json.NewDecoder(r.Body).Decode(&vr)
			f.tabs[title] = vr.Values
			json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
			return
		}
		f.calls = append(f.calls, "values")
		json.NewEncoder(w).Encode(map[string]any{"range": rng, "values": f.tabs[title]})

	default:
		http.NotFound(w, r)
	}
}

func tabOf(rng string) string {
	title, _, _ := strings.Cut(rng, "!")
	title = strings.TrimSuffix(strings.TrimPrefix(title, "'"), "'")
	return strings.ReplaceAll(title, "''", "'")
}

func newTestClient(t *testing.T) (*Client, *fakeSheets) {
	t.Helper()
	fake := &fakeSheets{tabs: map[string][][]any{"Sheet1": nil}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithoutAuthentication(),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService() error = %v", err)
	}
	return NewWithService(svc, "sid", "", nil), fake
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), " ", "Transactions", nil)
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	_, err := New(context.Background(), "sid", "", nil)
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNewSheetsService_UnreadableFile(t *testing.T) {
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "/nonexistent/credentials.json")

	_, err := New(context.Background(), "sid", "", nil)
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSheetTitle(t *testing.T) {
	tests := []struct {
		base, owner, want string
	}{
		{"Transactions", "alice", "Transactions - alice"},
		{"Transactions", " bob@example.com ", "Transactions - bob@example.com"},
		{"Mirror", "a/b:c[d]", "Mirror - a_b_c_d_"},
	}
	for _, tt := range tests {
		if got := sheetTitle(tt.base, tt.owner); got != tt.want {
			t.Errorf("sheetTitle(%q, %q) = %q, want %q", tt.base, tt.owner, got, tt.want)
		}
	}

	long := sheetTitle("Transactions", strings.Repeat("é", 200))
	if n := len([]rune(long)); n != maxTitleLen {
		t.Errorf("long title has %d runes, want %d", n, maxTitleLen)
	}
}

func TestA1Range(t *testing.T) {
	if got := a1Range("Transactions - o'neil", "A:F"); got != "'Transactions - o''neil'!A:F" {
		t.Errorf("a1Range() = %q", got)
	}
}

func TestClient_ReplaceAndListTransactions(t *testing.T) {
	c, fake := newTestClient(t)
	ctx := context.Background()
	txs := []core.Transaction{
		{ID: "t1", Amount: core.Money{Cents: 2550}, Type: core.Expense, Category: "Groceries", Date: time.Date(2023, 4, 1, 0, 0, 0, 0, time.UTC)},
		{ID: "t2", Amount: core.Money{Cents: 10000}, Type: core.Income, Category: "Gift", Date: time.Date(2023, 4, 2, 0, 0, 0, 0, time.UTC)},
	}

	if err := c.ReplaceTransactions(ctx, "alice", txs); err != nil {
		t.Fatalf("ReplaceTransactions() error = %v", err)
	}
	rows := fake.tabs["Transactions - alice"]
	if len(rows) != 3 {
		t.Fatalf("expected header and 2 rows, got %v", rows)
	}

	got, err := c.ListTransactions(ctx, "alice")
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(got) != 2 || got[0].ID != "t2" || got[1].Amount.Cents != 2550 {
		t.Fatalf("unexpected transactions: %+v", got)
	}

	if err := c.ReplaceTransactions(ctx, "alice", txs[:1]); err != nil {
		t.Fatalf("second ReplaceTransactions() error = %v", err)
	}
	want := []string{"get", "batchUpdate", "clear", "update:USER_ENTERED", "values", "clear", "update:USER_ENTERED"}
	if strings.Join(fake.calls, ",") != strings.Join(want, ",") {
		t.Errorf("calls = %v, want %v", fake.calls, want)
	}
	if len(fake.tabs["Transactions - alice"]) != 2 {
		t.Errorf("tab not overwritten: %v", fake.tabs["Transactions - alice"])
	}
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "sid", tabs: map[string]bool{}}
	if err := c.ReplaceTransactions(context.Background(), "alice", nil); err == nil {
		t.Fatal("expected error with nil service")
	}
	if _, err := c.ListTransactions(context.Background(), "alice"); err == nil {
		t.Fatal("expected error with nil service")
	}
}
