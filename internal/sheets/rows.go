package sheets

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
	"smartspend/internal/report"
)

// Header is the first row of every mirrored tab.
var Header = []any{"Date", "Type", "Category", "Description", "Amount", "ID"}

const (
	colDate = iota
	colType
	colCategory
	colDescription
	colAmount
	colID
	numCols
)

// serialEpoch is day zero of spreadsheet serial dates.
var serialEpoch = time.Date(1899, 12, 30, 0, 0, 0, 0, time.UTC)

// Rows renders txs newest first below the header. Dates keep only the day
// and amounts always carry two decimals.
func Rows(txs []core.Transaction) [][]any {
	rows := make([][]any, 0, len(txs)+1)
	rows = append(rows, slices.Clone(Header))
	for _, tx := range report.SortByDateDesc(txs) {
		date := ""
		if !tx.Date.IsZero() {
			date = tx.Date.UTC().Format(time.DateOnly)
		}
		rows = append(rows, []any{
			date,
			string(tx.Type),
			textCell(tx.Category),
			textCell(tx.Description),
			tx.Amount.Decimal().StringFixed(2),
			tx.ID,
		})
	}
	return rows
}

// textCell stops user text from being evaluated as a formula.
func textCell(s string) string {
	if s != "" && strings.ContainsRune("=+-@", rune(s[0])) {
		return "'" + s
	}
	return s
}

// ParseRows reads rows written by Rows back into transactions. The header,
// blank rows and rows without a readable amount are skipped.
func ParseRows(values [][]any) []core.Transaction {
	var out []core.Transaction
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) == 0 || allEmpty(cols) {
			continue
		}
		if i == 0 && strings.EqualFold(safeGet(cols, colDate), "date") {
			continue
		}
		cents, ok := cellCents(cellAt(row, colAmount))
		if !ok {
			continue
		}
		out = append(out, core.Transaction{
			ID:          safeGet(cols, colID),
			Amount:      core.Money{Cents: cents},
			Type:        core.TransactionType(strings.ToLower(safeGet(cols, colType))),
			Category:    strings.TrimPrefix(safeGet(cols, colCategory), "'"),
			Description: strings.TrimPrefix(safeGet(cols, colDescription), "'"),
			Date:        cellDate(cellAt(row, colDate)),
		})
	}
	return out
}

// Equal reports whether a and b render to the same rows.
func Equal(a, b []core.Transaction) bool {
	ra, rb := Rows(a), Rows(b)
	return slices.EqualFunc(ra, rb, func(x, y []any) bool {
		return slices.EqualFunc(x, y, func(p, q any) bool { return fmt.Sprint(p) == fmt.Sprint(q) })
	})
}

func cellAt(row []any, i int) any {
	if i < 0 || i >= len(row) {
		return nil
	}
	return row[i]
}

// cellCents accepts a number or a decimal string with either separator.
func cellCents(v any) (int64, bool) {
	switch n := v.(type) {
	case float64:
		cents := decimal.NewFromFloat(n).Round(2).Shift(2)
		if !cents.IsPositive() {
			return 0, false
		}
		return cents.IntPart(), true
	case string:
		cents, err := core.ParseDecimalToCents(n)
		return cents, err == nil
	}
	return 0, false
}

// cellDate accepts a serial day number or a yyyy-mm-dd string. Anything
// else yields the zero time.
func cellDate(v any) time.Time {
	switch d := v.(type) {
	case float64:
		if d <= 0 {
			return time.Time{}
		}
		return serialEpoch.AddDate(0, 0, int(d))
	case string:
		parsed, err := core.ParseDate(strings.TrimSpace(d))
		if err != nil {
			return time.Time{}
		}
		return parsed.Time
	}
	return time.Time{}
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		if f, ok := v.(float64); ok {
			out[i] = decimal.NewFromFloat(f).String()
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func allEmpty(cols []string) bool {
	for _, c := range cols {
		if c != "" {
			return false
		}
	}
	return true
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
