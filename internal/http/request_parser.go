// This file parses request bodies and query strings into domain values.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"smartspend/internal/core"
)

const (
	maxBodyBytes     = 1 << 20
	maxImportBytes   = 10 << 20
	defaultMonths    = 6
	maxMonths        = 24
	maxSearchTermLen = 100
)

// decodeJSON reads one JSON value from the body into v. Unknown fields are
// rejected so that typos surface as validation errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		var tooLarge *http.MaxBytesError
		var ve *core.ValidationError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.As(err, &ve):
			return ve
		case errors.Is(err, io.EOF):
			return &core.ValidationError{Field: "body", Message: "request body is empty"}
		default:
			return &core.ValidationError{Field: "body", Message: err.Error()}
		}
	}
	if dec.More() {
		return &core.ValidationError{Field: "body", Message: "unexpected data after JSON value"}
	}
	return nil
}

// sanitizeInput removes control characters except tab and newlines and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

// transactionRequest is the body of POST and PUT /api/transactions. The date
// accepts a calendar date or an RFC 3339 timestamp.
type transactionRequest struct {
	Amount      core.Money `json:"amount"`
	Type        string     `json:"type"`
	Category    string     `json:"category"`
	Description string     `json:"description"`
	Date        string     `json:"date"`
}

func (req transactionRequest) toTransaction() (core.Transaction, error) {
	t, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.Transaction{}, err
	}
	tx := core.Transaction{
		Amount:      req.Amount,
		Type:        t,
		Category:    sanitizeInput(req.Category),
		Description: sanitizeInput(req.Description),
	}
	if strings.TrimSpace(req.Date) != "" {
		if tx.Date, err = core.ParseTimestamp(req.Date); err != nil {
			return core.Transaction{}, err
		}
	}
	return tx, nil
}

type categoryRequest struct {
	Name   string     `json:"name"`
	Budget core.Money `json:"budget"`
	Type   string     `json:"type"`
	Color  string     `json:"color"`
}

func (req categoryRequest) toCategory() (core.Category, error) {
	t, err := core.ParseTransactionType(req.Type)
	if err != nil {
		return core.Category{}, err
	}
	return core.Category{
		Name:   sanitizeInput(req.Name),
		Budget: req.Budget,
		Type:   t,
		Color:  strings.TrimSpace(req.Color),
	}, nil
}

type loanRequest struct {
	Amount       core.Money      `json:"amount"`
	Type         core.LoanType   `json:"type"`
	PersonName   string          `json:"personName"`
	Description  string          `json:"description"`
	StartDate    core.Date       `json:"startDate"`
	DueDate      core.Date       `json:"dueDate"`
	InterestRate decimal.Decimal `json:"interestRate"`
	Status       core.LoanStatus `json:"status"`
}

// toLoan builds the loan; the status defaults to active.
func (req loanRequest) toLoan() core.Loan {
	status := req.Status
	if status == "" {
		status = core.LoanActive
	}
	return core.Loan{
		Amount:       req.Amount,
		Type:         core.LoanType(strings.ToLower(strings.TrimSpace(string(req.Type)))),
		PersonName:   sanitizeInput(req.PersonName),
		Description:  sanitizeInput(req.Description),
		StartDate:    req.StartDate,
		DueDate:      req.DueDate,
		InterestRate: req.InterestRate,
		Status:       status,
	}
}

type paymentRequest struct {
	Amount core.Money `json:"amount"`
	Date   string     `json:"date"`
	Note   string     `json:"note"`
}

// toPayment builds the payment, dating it now when no date is given.
func (req paymentRequest) toPayment(now time.Time) (core.Payment, error) {
	p := core.Payment{Amount: req.Amount, Note: sanitizeInput(req.Note), Date: now}
	if strings.TrimSpace(req.Date) != "" {
		d, err := core.ParseTimestamp(req.Date)
		if err != nil {
			return core.Payment{}, err
		}
		p.Date = d
	}
	return p, nil
}

// transactionFilter holds the query filters of GET /api/transactions.
type transactionFilter struct {
	Start *time.Time
	End   *time.Time
	Query string
	Type  core.TransactionType
}

func parseTransactionFilter(q url.Values) (transactionFilter, error) {
	var f transactionFilter
	var err error
	if f.Start, f.End, err = parseDateRange(q); err != nil {
		return f, err
	}
	f.Query = sanitizeInput(q.Get("q"))
	if len(f.Query) > maxSearchTermLen {
		return f, &core.ValidationError{Field: "q", Message: fmt.Sprintf("search term longer than %d characters", maxSearchTermLen)}
	}
	if v := strings.TrimSpace(q.Get("type")); v != "" {
		if f.Type, err = core.ParseTransactionType(v); err != nil {
			return f, err
		}
	}
	return f, nil
}

// parseDateRange reads the optional start and end query parameters.
func parseDateRange(q url.Values) (start, end *time.Time, err error) {
	parse := func(field string) (*time.Time, error) {
		v := strings.TrimSpace(q.Get(field))
		if v == "" {
			return nil, nil
		}
		t, err := core.ParseTimestamp(v)
		if err != nil {
			return nil, &core.ValidationError{Field: field, Message: fmt.Sprintf("cannot parse %q", v)}
		}
		return &t, nil
	}
	if start, err = parse("start"); err != nil {
		return nil, nil, err
	}
	if end, err = parse("end"); err != nil {
		return nil, nil, err
	}
	if start != nil && end != nil && end.Before(*start) {
		return nil, nil, &core.ValidationError{Field: "end", Message: "end must not be before start"}
	}
	return start, end, nil
}

// parseMonths reads ?months=N, defaulting to six.
func parseMonths(q url.Values) (int, error) {
	v := strings.TrimSpace(q.Get("months"))
	if v == "" {
		return defaultMonths, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxMonths {
		return 0, &core.ValidationError{Field: "months", Message: fmt.Sprintf("must be a number between 1 and %d", maxMonths)}
	}
	return n, nil
}
