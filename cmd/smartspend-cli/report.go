package main

import (
	"fmt"
	"io"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"smartspend/internal/core"
	"smartspend/internal/format"
	"smartspend/internal/report"
)

const maxReportMonths = 24

func reportCmd(opts *sessionOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print reports over the owner's data",
	}
	cmd.AddCommand(reportSummaryCmd(opts))
	cmd.AddCommand(reportMonthlyCmd(opts))
	return cmd
}

func reportSummaryCmd(opts *sessionOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "summary",
		Short: "Totals, savings rate, budgets and outstanding loans",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()
			return renderSummary(cmd.OutOrStdout(), s.store.Dashboard(), s.currency)
		},
	}
}

func reportMonthlyCmd(opts *sessionOptions) *cobra.Command {
	var months int
	cmd := &cobra.Command{
		Use:   "monthly",
		Short: "Income, expenses and savings for the last months",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if months < 1 || months > maxReportMonths {
				return fmt.Errorf("--months must be between 1 and %d", maxReportMonths)
			}
			s, err := openSession(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer s.Close()
			rollup := report.MonthlyRollup(s.store.Transactions(), s.store.Now(), months)
			return renderMonthly(cmd.OutOrStdout(), rollup, s.currency)
		},
	}
	cmd.Flags().IntVarP(&months, "months", "m", 6, "number of months, current month included")
	return cmd
}

func renderSummary(w io.Writer, d report.Dashboard, cur format.Currency) error {
	fmt.Fprintln(w, titleStyle.Render("Summary"))
	fmt.Fprintln(w, keyValue("Income", cur.Format(d.TotalIncome)))
	fmt.Fprintln(w, keyValue("Expenses", cur.Format(d.TotalExpenses)))
	fmt.Fprintln(w, keyValue("Net balance", balanceStyle(d.NetBalance).Render(cur.Format(d.NetBalance))))
	fmt.Fprintln(w, keyValue("Savings rate", format.Percent(float64(d.SavingsRate))))
	fmt.Fprintln(w, keyValue("Borrowed", cur.Format(d.TotalBorrowed)))
	fmt.Fprintln(w, keyValue("Lent", cur.Format(d.TotalLent)))
	fmt.Fprintln(w, keyValue("Active loans", fmt.Sprint(d.ActiveLoans)))

	if len(d.Budgets) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	t := table{headers: []string{"Budget", "Spent", "Remaining", "Used"}}
	for _, b := range d.Budgets {
		t.add(b.Category.Name, cur.Format(b.Spent), cur.Format(b.Remaining), levelStyle(b.Level).Render(format.Percent(float64(b.Percentage))))
	}
	return t.render(w)
}

func renderMonthly(w io.Writer, months []core.MonthSummary, cur format.Currency) error {
	fmt.Fprintln(w, titleStyle.Render("Monthly report"))
	t := table{headers: []string{"Month", "Income", "Expenses", "Savings"}}
	for _, m := range months {
		label := fmt.Sprintf("%s %d", m.Label(), m.Year)
		t.add(label, cur.Format(m.Income), cur.Format(m.Expenses), balanceStyle(m.Savings).Render(cur.Format(m.Savings)))
	}
	return t.render(w)
}

func balanceStyle(m core.Money) lipgloss.Style {
	if m.Cents < 0 {
		return errorStyle
	}
	return successStyle
}

func levelStyle(l report.Level) lipgloss.Style {
	switch l {
	case report.LevelOver:
		return errorStyle
	case report.LevelWarning:
		return warningStyle
	default:
		return successStyle
	}
}
