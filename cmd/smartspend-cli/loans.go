package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"smartspend/internal/core"
	"smartspend/internal/format"
	"smartspend/internal/report"
)

func loansCmd(opts *sessionOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loans",
		Short: "Work with borrowed and lent money",
	}
	cmd.AddCommand(loansListCmd(opts))
	return cmd
}

func loansListCmd(opts *sessionOptions) *cobra.Command {
	var (
		all      bool
		loanType string
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List loans with their repayment progress",
		Long: `List loans with what has been paid, what remains and when they are due.

Only active loans are shown unless --all is given.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var filter core.LoanType
			if loanType != "" {
				filter = core.LoanType(loanType)
				if !filter.IsValid() {
					return fmt.Errorf("unknown loan type %q: must be borrowed or lent", loanType)
				}
			}

			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()

			var loans []core.Loan
			for _, l := range s.store.Loans() {
				if (all || l.Status == core.LoanActive) && (filter == "" || l.Type == filter) {
					loans = append(loans, l)
				}
			}
			return renderLoans(cmd.OutOrStdout(), loans, s.currency, s.store.Now())
		},
	}
	cmd.Flags().BoolVarP(&all, "all", "a", false, "include paid and defaulted loans")
	cmd.Flags().StringVarP(&loanType, "type", "t", "", "only show borrowed or lent loans")
	return cmd
}

func renderLoans(w io.Writer, loans []core.Loan, cur format.Currency, now time.Time) error {
	if len(loans) == 0 {
		fmt.Fprintln(w, mutedStyle.Render("No loans found."))
		return nil
	}
	fmt.Fprintln(w, titleStyle.Render("Loans"))
	t := table{headers: []string{"Person", "Type", "Amount", "Paid", "Remaining", "Progress", "Status", "Due"}}
	for _, l := range loans {
		t.add(
			l.PersonName,
			string(l.Type),
			cur.Format(l.Amount),
			cur.Format(report.LoanPaid(l)),
			cur.Format(report.LoanRemaining(l)),
			format.Percent(report.LoanProgress(l)),
			string(l.Status),
			formatDue(l, now),
		)
	}
	return t.render(w)
}

func formatDue(l core.Loan, now time.Time) string {
	days, ok := report.DaysUntilDue(l, now)
	due := format.Date(l.DueDate.Time)
	switch {
	case !ok:
		return mutedStyle.Render("none")
	case l.Status != core.LoanActive:
		return due
	case days < 0:
		return errorStyle.Render(fmt.Sprintf("%s (%d days late)", due, -days))
	case days <= 7:
		return warningStyle.Render(fmt.Sprintf("%s (in %d days)", due, days))
	default:
		return due
	}
}
