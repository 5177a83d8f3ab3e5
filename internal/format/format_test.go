package format

import (
	"testing"
	"time"

	"smartspend/internal/core"
)

func TestCurrencyFormat(t *testing.T) {
	rwf := DefaultCurrency()
	usd := NewCurrency("usd", 2)
	cases := []struct {
		c    Currency
		in   int64
		want string
	}{
		{rwf, 123450, "RWF 1,235"},
		{rwf, 0, "RWF 0"},
		{rwf, -50000, "-RWF 500"},
		{rwf, 100000000, "RWF 1,000,000"},
		{usd, 123456, "USD 1,234.56"},
		{usd, 5, "USD 0.05"},
	}
	for _, tc := range cases {
		if got := tc.c.Format(core.Money{Cents: tc.in}); got != tc.want {
			t.Errorf("Format(%d) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestDate(t *testing.T) {
	if got := Date(time.Date(2023, 4, 5, 18, 0, 0, 0, time.UTC)); got != "Apr 5, 2023" {
		t.Fatalf("got %q", got)
	}
	if got := Date(time.Time{}); got != "" {
		t.Fatalf("zero date should render empty, got %q", got)
	}
}

func TestDateRange(t *testing.T) {
	start := time.Date(2023, 4, 5, 0, 0, 0, 0, time.UTC)
	end := time.Date(2023, 5, 1, 0, 0, 0, 0, time.UTC)
	if got := DateRange(&start, nil); got != "From Apr 5, 2023" {
		t.Fatalf("open range: %q", got)
	}
	if got := DateRange(&start, &end); got != "Apr 5, 2023 - May 1, 2023" {
		t.Fatalf("closed range: %q", got)
	}
	if got := DateRange(nil, &end); got != "" {
		t.Fatalf("missing start: %q", got)
	}
}

func TestPercent(t *testing.T) {
	cases := map[float64]string{
		50:    "50%",
		49.5:  "50%",
		-12.4: "-12%",
		0:     "0%",
	}
	for in, want := range cases {
		if got := Percent(in); got != want {
			t.Errorf("Percent(%v) = %q, want %q", in, got, want)
		}
	}
}
