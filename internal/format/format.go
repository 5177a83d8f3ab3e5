// Package format renders money, dates and percentages for display.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"smartspend/internal/core"
)

const (
	DefaultCurrencyCode = "RWF"
	dateLayout          = "Jan 2, 2006"
)

// Currency formats amounts in one currency with a fixed number of decimals.
type Currency struct {
	Code     string
	Decimals int
	printer  *message.Printer
}

// NewCurrency returns a formatter using en-US digit grouping.
func NewCurrency(code string, decimals int) Currency {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		code = DefaultCurrencyCode
	}
	if decimals < 0 {
		decimals = 0
	}
	return Currency{Code: code, Decimals: decimals, printer: message.NewPrinter(language.AmericanEnglish)}
}

// DefaultCurrency is Rwandan francs without minor units.
func DefaultCurrency() Currency {
	return NewCurrency(DefaultCurrencyCode, 0)
}

// Format renders m as e.g. "RWF 1,235". Negative amounts get a leading minus.
func (c Currency) Format(m core.Money) string {
	p := c.printer
	if p == nil {
		p = message.NewPrinter(language.AmericanEnglish)
	}
	v := m.Decimal().Round(int32(c.Decimals))
	sign := ""
	if v.IsNegative() {
		sign = "-"
		v = v.Neg()
	}
	return sign + c.Code + " " + p.Sprintf(fmt.Sprintf("%%.%df", c.Decimals), v.InexactFloat64())
}

// Date renders t as "Apr 5, 2023"; the zero time renders empty.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(dateLayout)
}

// DateRange renders "From Apr 5, 2023" for an open range and "Apr 5, 2023 - May 1, 2023" otherwise.
func DateRange(start, end *time.Time) string {
	if start == nil || start.IsZero() {
		return ""
	}
	if end == nil || end.IsZero() {
		return "From " + Date(*start)
	}
	return Date(*start) + " - " + Date(*end)
}

// Percent renders a rounded percentage, e.g. "45%".
func Percent(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0%"
	}
	return message.NewPrinter(language.AmericanEnglish).Sprintf("%d%%", int64(math.Floor(v+0.5)))
}
