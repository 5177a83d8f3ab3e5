package report

import (
	"math"
	"time"

	"smartspend/internal/core"
)

// LoanPaid sums the loan's payments.
func LoanPaid(l core.Loan) core.Money {
	return l.TotalPaid()
}

// LoanRemaining returns amount minus payments. It goes negative on overpayment.
func LoanRemaining(l core.Loan) core.Money {
	return l.Amount.Sub(l.TotalPaid())
}

// LoanProgress returns paid/amount*100. It is not clamped, so values above 100
// flag an overpaid loan.
func LoanProgress(l core.Loan) float64 {
	if l.Amount.Cents <= 0 {
		return 0
	}
	return ratio(l.TotalPaid(), l.Amount) * 100
}

// OutstandingByType sums the remaining balance of active loans of type t.
func OutstandingByType(loans []core.Loan, t core.LoanType) core.Money {
	var total core.Money
	for _, l := range loans {
		if l.Status == core.LoanActive && l.Type == t {
			total = total.Add(LoanRemaining(l))
		}
	}
	return total
}

// DaysUntilDue returns the whole days, rounded up, from now until the due
// date. ok is false when the loan has no due date.
func DaysUntilDue(l core.Loan, now time.Time) (days int, ok bool) {
	if l.DueDate.IsZero() {
		return 0, false
	}
	return int(math.Ceil(l.DueDate.Sub(now).Hours() / 24)), true
}
