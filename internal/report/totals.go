// Package report derives totals, percentages and groupings from transactions,
// categories and loans. Every function is pure.
package report

import (
	"math"

	"smartspend/internal/core"
)

// round rounds half-up toward +Inf.
func round(x float64) int {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0
	}
	return int(math.Floor(x + 0.5))
}

func ratio(a, b core.Money) float64 {
	if b.Cents == 0 {
		return 0
	}
	return float64(a.Cents) / float64(b.Cents)
}

// TotalByType sums the amounts of transactions of type t.
func TotalByType(txs []core.Transaction, t core.TransactionType) core.Money {
	var total core.Money
	for _, tx := range txs {
		if tx.Type == t {
			total = total.Add(tx.Amount)
		}
	}
	return total
}

// SavingsRate returns round((income-expenses)/income*100), or 0 when income <= 0.
func SavingsRate(income, expenses core.Money) int {
	if income.Cents <= 0 {
		return 0
	}
	return round(ratio(income.Sub(expenses), income) * 100)
}

// Spent sums the transactions matching the category by exact name and type.
func Spent(c core.Category, txs []core.Transaction) core.Money {
	var spent core.Money
	for _, tx := range txs {
		if tx.Category == c.Name && tx.Type == c.Type {
			spent = spent.Add(tx.Amount)
		}
	}
	return spent
}

// BudgetPercentage returns the share of the budget used, clamped to [0, 100].
func BudgetPercentage(c core.Category, txs []core.Transaction) int {
	if c.Budget.Cents <= 0 {
		return 0
	}
	p := round(ratio(Spent(c, txs), c.Budget) * 100)
	return max(0, min(p, 100))
}

// RemainingBudget returns what is left of an expense budget, never below zero.
// Income categories return their budget unchanged.
func RemainingBudget(c core.Category, txs []core.Transaction) core.Money {
	if c.Type == core.Income {
		return c.Budget
	}
	left := c.Budget.Sub(Spent(c, txs))
	if left.Cents < 0 {
		return core.Money{}
	}
	return left
}

// ByCategory maps category name to the summed amount of transactions of type t.
func ByCategory(txs []core.Transaction, t core.TransactionType) map[string]core.Money {
	out := make(map[string]core.Money)
	for _, tx := range txs {
		if tx.Type != t {
			continue
		}
		out[tx.Category] = out[tx.Category].Add(tx.Amount)
	}
	return out
}
