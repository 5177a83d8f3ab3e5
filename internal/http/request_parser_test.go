package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"smartspend/internal/core"
)

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  hello  ", "hello"},
		{"a\x00b\x07c", "abc"},
		{"line1\nline2\ttab", "line1\nline2\ttab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.in); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestParseDateRange(t *testing.T) {
	tests := []struct {
		name      string
		query     url.Values
		wantStart string
		wantEnd   string
		wantField string
	}{
		{name: "empty", query: url.Values{}},
		{name: "dates", query: url.Values{"start": {"2024-01-01"}, "end": {"2024-01-31"}}, wantStart: "2024-01-01", wantEnd: "2024-01-31"},
		{name: "timestamp", query: url.Values{"start": {"2024-01-01T10:00:00Z"}}, wantStart: "2024-01-01"},
		{name: "open start", query: url.Values{"end": {"2024-02-01"}}, wantEnd: "2024-02-01"},
		{name: "bad start", query: url.Values{"start": {"01/01/2024"}}, wantField: "start"},
		{name: "bad end", query: url.Values{"end": {"soon"}}, wantField: "end"},
		{name: "reversed", query: url.Values{"start": {"2024-02-01"}, "end": {"2024-01-01"}}, wantField: "end"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start, end, err := parseDateRange(tt.query)
			if tt.wantField != "" {
				var ve *core.ValidationError
				if !errors.As(err, &ve) || ve.Field != tt.wantField {
					t.Fatalf("parseDateRange() error = %v, want validation error on %q", err, tt.wantField)
				}
				return
			}
			if err != nil {
				t.Fatalf("parseDateRange() error = %v", err)
			}
			check := func(label string, got *time.Time, want string) {
				if want == "" {
					if got != nil {
						t.Errorf("%s = %v, want nil", label, got)
					}
					return
				}
				if got == nil || got.Format("2006-01-02") != want {
					t.Errorf("%s = %v, want %s", label, got, want)
				}
			}
			check("start", start, tt.wantStart)
			check("end", end, tt.wantEnd)
		})
	}
}

func TestParseMonths(t *testing.T) {
	tests := []struct {
		value   string
		want    int
		wantErr bool
	}{
		{"", 6, false},
		{"1", 1, false},
		{"24", 24, false},
		{"0", 0, true},
		{"25", 0, true},
		{"six", 0, true},
	}
	for _, tt := range tests {
		got, err := parseMonths(url.Values{"months": {tt.value}})
		if (err != nil) != tt.wantErr {
			t.Errorf("parseMonths(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("parseMonths(%q) = %d, want %d", tt.value, got, tt.want)
		}
	}
}

func TestParseTransactionFilter(t *testing.T) {
	f, err := parseTransactionFilter(url.Values{"q": {"  rent "}, "type": {"Income"}})
	if err != nil {
		t.Fatalf("parseTransactionFilter() error = %v", err)
	}
	if f.Query != "rent" || f.Type != core.Income {
		t.Errorf("parseTransactionFilter() = %+v", f)
	}

	if _, err := parseTransactionFilter(url.Values{"type": {"gift"}}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("unknown type error = %v, want validation error", err)
	}
	if _, err := parseTransactionFilter(url.Values{"q": {strings.Repeat("x", maxSearchTermLen+1)}}); !errors.Is(err, core.ErrValidation) {
		t.Errorf("long query error = %v, want validation error", err)
	}
}

func TestDecodeJSON(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantField string
		wantErr   error
	}{
		{name: "valid", body: `{"amount": 12.34, "type": "expense"}`},
		{name: "empty", body: ``, wantField: "body"},
		{name: "trailing data", body: `{"amount": 1} {"amount": 2}`, wantField: "body"},
		{name: "unknown field", body: `{"amount": 1, "extra": true}`, wantField: "body"},
		{name: "bad amount", body: `{"amount": "abc"}`, wantField: "amount"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var req transactionRequest
			err := decodeJSON(httptest.NewRecorder(), r, &req)
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("decodeJSON() error = %v", err)
				}
				if req.Amount.Cents != 1234 || req.Type != "expense" {
					t.Errorf("decodeJSON() = %+v", req)
				}
				return
			}
			var ve *core.ValidationError
			if !errors.As(err, &ve) || ve.Field != tt.wantField {
				t.Errorf("decodeJSON() error = %v, want validation error on %q", err, tt.wantField)
			}
		})
	}
}

func TestDecodeJSON_TooLarge(t *testing.T) {
	body := `{"description": "` + strings.Repeat("x", maxBodyBytes) + `"}`
	r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	var req transactionRequest
	err := decodeJSON(httptest.NewRecorder(), r, &req)
	if got := StatusFor(err); got != http.StatusRequestEntityTooLarge {
		t.Errorf("StatusFor(%v) = %d, want 413", err, got)
	}
}

func TestRequestConversions(t *testing.T) {
	tx, err := transactionRequest{Amount: core.Money{Cents: 500}, Type: "EXPENSE", Category: " Food\x00 ", Date: "2024-05-01"}.toTransaction()
	if err != nil {
		t.Fatalf("toTransaction() error = %v", err)
	}
	if tx.Type != core.Expense || tx.Category != "Food" || tx.Date.Format("2006-01-02") != "2024-05-01" {
		t.Errorf("toTransaction() = %+v", tx)
	}

	l := loanRequest{Amount: core.Money{Cents: 100}, Type: " Lent "}.toLoan()
	if l.Type != core.Lent || l.Status != core.LoanActive {
		t.Errorf("toLoan() = %+v", l)
	}

	now := time.Date(2024, 5, 2, 8, 0, 0, 0, time.UTC)
	p, err := paymentRequest{Amount: core.Money{Cents: 100}}.toPayment(now)
	if err != nil || !p.Date.Equal(now) {
		t.Errorf("toPayment() = %+v, %v", p, err)
	}
	if _, err := (paymentRequest{Date: "never"}).toPayment(now); !errors.Is(err, core.ErrValidation) {
		t.Errorf("toPayment() bad date error = %v", err)
	}
}
