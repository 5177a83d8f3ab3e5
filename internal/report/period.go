package report

import (
	"time"

	"smartspend/internal/core"
)

// Period is an inclusive date range.
type Period struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Totals holds income and expense sums for a period.
type Totals struct {
	Income   core.Money `json:"income"`
	Expenses core.Money `json:"expenses"`
}

// Comparison contrasts a period with the equally long period before it.
type Comparison struct {
	Current        Period  `json:"current"`
	Previous       Period  `json:"previous"`
	CurrentTotals  Totals  `json:"currentTotals"`
	PreviousTotals Totals  `json:"previousTotals"`
	IncomeChange   float64 `json:"incomeChange"`
	ExpenseChange  float64 `json:"expenseChange"`
}

// StartOfDay returns midnight of t's day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// EndOfDay returns 23:59:59.999 of t's day in t's location.
func EndOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), t.Location())
}

// FilterByDateRange keeps transactions dated within [start, end]. A nil start
// or end leaves that side open; end is extended to the end of its day.
// Transactions without a date are dropped.
func FilterByDateRange(txs []core.Transaction, start, end *time.Time) []core.Transaction {
	out := make([]core.Transaction, 0, len(txs))
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		if start != nil && tx.Date.Before(*start) {
			continue
		}
		if end != nil && tx.Date.After(EndOfDay(*end)) {
			continue
		}
		out = append(out, tx)
	}
	return out
}

// PreviousPeriod returns the range of equal length ending the day before start.
func PreviousPeriod(start, end time.Time) Period {
	prevEnd := start.AddDate(0, 0, -1)
	return Period{Start: prevEnd.Add(-end.Sub(start)), End: prevEnd}
}

// PercentChange returns (current-previous)/previous*100, or 0 when previous <= 0.
func PercentChange(current, previous core.Money) float64 {
	if previous.Cents <= 0 {
		return 0
	}
	return ratio(current.Sub(previous), previous) * 100
}

func totalsOf(txs []core.Transaction) Totals {
	return Totals{Income: TotalByType(txs, core.Income), Expenses: TotalByType(txs, core.Expense)}
}

// Compare totals the period [start, end] and its preceding period.
func Compare(txs []core.Transaction, start, end time.Time) Comparison {
	prev := PreviousPeriod(start, end)
	cur := totalsOf(FilterByDateRange(txs, &start, &end))
	old := totalsOf(FilterByDateRange(txs, &prev.Start, &prev.End))
	return Comparison{
		Current:        Period{Start: start, End: end},
		Previous:       prev,
		CurrentTotals:  cur,
		PreviousTotals: old,
		IncomeChange:   PercentChange(cur.Income, old.Income),
		ExpenseChange:  PercentChange(cur.Expenses, old.Expenses),
	}
}

// MonthlyRollup summarises the trailing n calendar months including now's,
// oldest first. Months are taken in now's location.
func MonthlyRollup(txs []core.Transaction, now time.Time, n int) []core.MonthSummary {
	if n <= 0 {
		return nil
	}
	loc := now.Location()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, loc)
	out := make([]core.MonthSummary, n)
	index := make(map[[2]int]int, n)
	for i := range n {
		m := first.AddDate(0, i-(n-1), 0)
		out[i] = core.MonthSummary{Year: m.Year(), Month: int(m.Month())}
		index[[2]int{m.Year(), int(m.Month())}] = i
	}
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		d := tx.Date.In(loc)
		i, ok := index[[2]int{d.Year(), int(d.Month())}]
		if !ok {
			continue
		}
		switch tx.Type {
		case core.Income:
			out[i].Income = out[i].Income.Add(tx.Amount)
		case core.Expense:
			out[i].Expenses = out[i].Expenses.Add(tx.Amount)
		}
	}
	for i := range out {
		out[i].Savings = out[i].Income.Sub(out[i].Expenses)
	}
	return out
}

// CurrentMonth keeps transactions dated in now's calendar month.
func CurrentMonth(txs []core.Transaction, now time.Time) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range txs {
		if tx.Date.IsZero() {
			continue
		}
		d := tx.Date.In(now.Location())
		if d.Year() == now.Year() && d.Month() == now.Month() {
			out = append(out, tx)
		}
	}
	return out
}
