package core

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	Income  TransactionType = "income"
	Expense TransactionType = "expense"

	Borrowed LoanType = "borrowed"
	Lent     LoanType = "lent"

	LoanActive    LoanStatus = "active"
	LoanPaid      LoanStatus = "paid"
	LoanDefaulted LoanStatus = "defaulted"
)

type (
	TransactionType string
	LoanType        string
	LoanStatus      string

	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	Transaction struct {
		ID          string          `json:"id"`
		Amount      Money           `json:"amount"`
		Type        TransactionType `json:"type" validate:"oneof=income expense"`
		Category    string          `json:"category" validate:"required,max=64"`
		Description string          `json:"description" validate:"max=200"`
		Date        time.Time       `json:"date"`
	}

	Category struct {
		ID     string          `json:"id"`
		Name   string          `json:"name" validate:"required,max=64"`
		Budget Money           `json:"budget"`
		Type   TransactionType `json:"type" validate:"oneof=income expense"`
		Color  string          `json:"color" validate:"omitempty,hexcolor"`
	}

	Payment struct {
		ID     string    `json:"id"`
		Amount Money     `json:"amount"`
		Date   time.Time `json:"date"`
		Note   string    `json:"note" validate:"max=200"`
	}

	Loan struct {
		ID             string          `json:"id"`
		Amount         Money           `json:"amount"`
		Type           LoanType        `json:"type" validate:"oneof=borrowed lent"`
		PersonName     string          `json:"personName" validate:"required,max=100"`
		Description    string          `json:"description" validate:"max=200"`
		StartDate      Date            `json:"startDate"`
		DueDate        Date            `json:"dueDate"`
		InterestRate   decimal.Decimal `json:"interestRate"`
		Status         LoanStatus      `json:"status" validate:"oneof=active paid defaulted"`
		PaymentHistory []Payment       `json:"paymentHistory"`
	}
)

var (
	ErrInvalidDay          = fmt.Errorf("%w: invalid day", ErrValidation)
	ErrInvalidMonth        = fmt.Errorf("%w: invalid month", ErrValidation)
	ErrInvalidAmount       = fmt.Errorf("%w: invalid amount", ErrValidation)
	ErrInvalidBudget       = fmt.Errorf("%w: budget cannot be negative", ErrValidation)
	ErrInvalidInterestRate = fmt.Errorf("%w: interest rate cannot be negative", ErrValidation)
	ErrZeroDate            = fmt.Errorf("%w: date cannot be zero", ErrValidation)
)

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	_, month, day := d.Date()
	if day < 1 || day > 31 {
		return ErrInvalidDay
	}
	if month < 1 || month > 12 {
		return ErrInvalidMonth
	}
	return nil
}

// Day returns the day of the month
func (d Date) Day() int {
	return d.Time.Day()
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Year returns the year
func (d Date) Year() int {
	return d.Time.Year()
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// IsEmpty returns true if the date is zero
func (d Date) IsEmpty() bool {
	return d.IsZero()
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

// Add returns m + o.
func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

// Sub returns m - o.
func (m Money) Sub(o Money) Money {
	return Money{Cents: m.Cents - o.Cents}
}

func (t Transaction) Validate() error {
	if err := validateStruct(t); err != nil {
		return err
	}
	if err := t.Amount.Validate(); err != nil {
		return err
	}
	if t.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date is required"}
	}
	if strings.TrimSpace(t.Category) == "" {
		return &ValidationError{Field: "category", Message: "category is required"}
	}
	return nil
}

func (c Category) Validate() error {
	if err := validateStruct(c); err != nil {
		return err
	}
	if strings.TrimSpace(c.Name) == "" {
		return &ValidationError{Field: "name", Message: "name is required"}
	}
	if c.Budget.Cents < 0 {
		return ErrInvalidBudget
	}
	return nil
}

func (p Payment) Validate() error {
	if err := validateStruct(p); err != nil {
		return err
	}
	if err := p.Amount.Validate(); err != nil {
		return err
	}
	if p.Date.IsZero() {
		return &ValidationError{Field: "date", Message: "date is required"}
	}
	return nil
}

func (l Loan) Validate() error {
	if err := validateStruct(l); err != nil {
		return err
	}
	if err := l.Amount.Validate(); err != nil {
		return err
	}
	if err := l.StartDate.Validate(); err != nil {
		return fmt.Errorf("invalid start date: %w", err)
	}
	if !l.DueDate.IsZero() {
		if err := l.DueDate.Validate(); err != nil {
			return fmt.Errorf("invalid due date: %w", err)
		}
		if l.DueDate.Before(l.StartDate.Time) {
			return &ValidationError{Field: "dueDate", Message: "due date must not be before start date"}
		}
	}
	if l.InterestRate.IsNegative() {
		return ErrInvalidInterestRate
	}
	return nil
}

// TotalPaid sums the loan's payment history.
func (l Loan) TotalPaid() Money {
	var paid Money
	for _, p := range l.PaymentHistory {
		paid = paid.Add(p.Amount)
	}
	return paid
}

// Clone returns a copy of the loan that does not share its payment history.
func (l Loan) Clone() Loan {
	out := l
	if l.PaymentHistory != nil {
		out.PaymentHistory = append([]Payment(nil), l.PaymentHistory...)
	}
	return out
}

// IsValid reports whether t is a known transaction type.
func (t TransactionType) IsValid() bool {
	return t == Income || t == Expense
}

// IsValid reports whether t is a known loan direction.
func (t LoanType) IsValid() bool {
	return t == Borrowed || t == Lent
}

var errUnknownType = errors.New("unknown type")

// ParseTransactionType parses "income" or "expense".
func ParseTransactionType(s string) (TransactionType, error) {
	t := TransactionType(strings.ToLower(strings.TrimSpace(s)))
	if !t.IsValid() {
		return "", &ValidationError{Field: "type", Message: fmt.Sprintf("%v: %q", errUnknownType, s)}
	}
	return t, nil
}
