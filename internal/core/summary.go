package core

import "time"

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Name   string `json:"name"`
	Amount Money  `json:"amount"`
}

// MonthSummary holds income, expenses and savings for one calendar month.
type MonthSummary struct {
	Year     int   `json:"year"`
	Month    int   `json:"month"` // 1-12
	Income   Money `json:"income"`
	Expenses Money `json:"expenses"`
	Savings  Money `json:"savings"`
}

// Label returns the short month name, e.g. "Apr".
func (m MonthSummary) Label() string {
	return time.Month(m.Month).String()[:3]
}
