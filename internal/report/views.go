package report

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"smartspend/internal/core"
	"smartspend/internal/format"
)

// Level classifies budget usage.
type Level string

const (
	LevelOK      Level = "ok"
	LevelWarning Level = "warning"
	LevelOver    Level = "over"
)

// BudgetLevel maps a usage percentage to ok (<70), warning (<90) or over.
func BudgetLevel(pct int) Level {
	switch {
	case pct < 70:
		return LevelOK
	case pct < 90:
		return LevelWarning
	default:
		return LevelOver
	}
}

// SortByDateDesc returns a copy ordered newest first. Equal dates keep their
// input order and undated transactions go last.
func SortByDateDesc(txs []core.Transaction) []core.Transaction {
	out := slices.Clone(txs)
	slices.SortStableFunc(out, func(a, b core.Transaction) int {
		switch {
		case a.Date.IsZero() && b.Date.IsZero():
			return 0
		case a.Date.IsZero():
			return 1
		case b.Date.IsZero():
			return -1
		}
		return b.Date.Compare(a.Date)
	})
	return out
}

// Recent returns the n newest transactions.
func Recent(txs []core.Transaction, n int) []core.Transaction {
	sorted := SortByDateDesc(txs)
	if n >= 0 && len(sorted) > n {
		sorted = sorted[:n]
	}
	return sorted
}

// Search keeps transactions whose description, category or formatted amount
// contains term, ignoring case. An empty term keeps everything.
func Search(txs []core.Transaction, term string, cur format.Currency) []core.Transaction {
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return slices.Clone(txs)
	}
	out := make([]core.Transaction, 0)
	for _, tx := range txs {
		if strings.Contains(strings.ToLower(tx.Description), term) ||
			strings.Contains(strings.ToLower(tx.Category), term) ||
			strings.Contains(strings.ToLower(cur.Format(tx.Amount)), term) {
			out = append(out, tx)
		}
	}
	return out
}

// FilterByType keeps transactions of type t.
func FilterByType(txs []core.Transaction, t core.TransactionType) []core.Transaction {
	out := make([]core.Transaction, 0)
	for _, tx := range txs {
		if tx.Type == t {
			out = append(out, tx)
		}
	}
	return out
}

// CategoryBreakdown returns spending per expense category with any spending,
// largest first.
func CategoryBreakdown(categories []core.Category, txs []core.Transaction) []core.CategoryAmount {
	out := make([]core.CategoryAmount, 0)
	for _, c := range categories {
		if c.Type != core.Expense {
			continue
		}
		if spent := Spent(c, txs); spent.Cents > 0 {
			out = append(out, core.CategoryAmount{Name: c.Name, Amount: spent})
		}
	}
	slices.SortStableFunc(out, func(a, b core.CategoryAmount) int {
		return cmp.Compare(b.Amount.Cents, a.Amount.Cents)
	})
	return out
}

// TopExpenseCategories returns the n expense categories with the largest budgets.
func TopExpenseCategories(categories []core.Category, n int) []core.Category {
	out := make([]core.Category, 0)
	for _, c := range categories {
		if c.Type == core.Expense {
			out = append(out, c)
		}
	}
	slices.SortStableFunc(out, func(a, b core.Category) int {
		return cmp.Compare(b.Budget.Cents, a.Budget.Cents)
	})
	if n >= 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

// BudgetProgress is the usage of one category's budget.
type BudgetProgress struct {
	Category   core.Category `json:"category"`
	Spent      core.Money    `json:"spent"`
	Remaining  core.Money    `json:"remaining"`
	Percentage int           `json:"percentage"`
	Level      Level         `json:"level"`
}

// ProgressFor computes the budget usage of c.
func ProgressFor(c core.Category, txs []core.Transaction) BudgetProgress {
	pct := BudgetPercentage(c, txs)
	return BudgetProgress{
		Category:   c,
		Spent:      Spent(c, txs),
		Remaining:  RemainingBudget(c, txs),
		Percentage: pct,
		Level:      BudgetLevel(pct),
	}
}

// Dashboard is the overview shown on the landing page.
type Dashboard struct {
	TotalIncome   core.Money            `json:"totalIncome"`
	TotalExpenses core.Money            `json:"totalExpenses"`
	NetBalance    core.Money            `json:"netBalance"`
	SavingsRate   int                   `json:"savingsRate"`
	Budgets       []BudgetProgress      `json:"budgets"`
	Recent        []core.Transaction    `json:"recentTransactions"`
	TotalBorrowed core.Money            `json:"totalBorrowed"`
	TotalLent     core.Money            `json:"totalLent"`
	ActiveLoans   int                   `json:"activeLoans"`
	Months        []core.MonthSummary   `json:"months"`
	Breakdown     []core.CategoryAmount `json:"breakdown"`
}

const (
	dashboardBudgets = 4
	dashboardRecent  = 5
	dashboardMonths  = 6
)

// BuildDashboard assembles the overview from the full collections.
func BuildDashboard(txs []core.Transaction, categories []core.Category, loans []core.Loan, now time.Time) Dashboard {
	income := TotalByType(txs, core.Income)
	expenses := TotalByType(txs, core.Expense)
	d := Dashboard{
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetBalance:    income.Sub(expenses),
		SavingsRate:   SavingsRate(income, expenses),
		Recent:        Recent(txs, dashboardRecent),
		TotalBorrowed: OutstandingByType(loans, core.Borrowed),
		TotalLent:     OutstandingByType(loans, core.Lent),
		Months:        MonthlyRollup(txs, now, dashboardMonths),
		Breakdown:     CategoryBreakdown(categories, txs),
	}
	for _, c := range TopExpenseCategories(categories, dashboardBudgets) {
		d.Budgets = append(d.Budgets, ProgressFor(c, txs))
	}
	for _, l := range loans {
		if l.Status == core.LoanActive {
			d.ActiveLoans++
		}
	}
	return d
}
