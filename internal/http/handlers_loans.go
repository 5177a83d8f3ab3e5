package http

import (
	"net/http"
	"time"

	"smartspend/internal/core"
	"smartspend/internal/report"
	"smartspend/internal/store"
)

// loanView adds the derived figures shown next to a loan.
type loanView struct {
	core.Loan
	Paid         core.Money `json:"paid"`
	Remaining    core.Money `json:"remaining"`
	Progress     float64    `json:"progress"`
	DaysUntilDue *int       `json:"daysUntilDue,omitempty"`
}

func newLoanView(l core.Loan, now time.Time) loanView {
	v := loanView{
		Loan:      l,
		Paid:      report.LoanPaid(l),
		Remaining: report.LoanRemaining(l),
		Progress:  report.LoanProgress(l),
	}
	if v.PaymentHistory == nil {
		v.PaymentHistory = []core.Payment{}
	}
	if days, ok := report.DaysUntilDue(l, now); ok {
		v.DaysUntilDue = &days
	}
	return v
}

func (s *Server) listLoans(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	now := st.Now()
	loans := st.Loans()
	out := make([]loanView, 0, len(loans))
	for _, l := range loans {
		out = append(out, newLoanView(l, now))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) createLoan(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	var req loanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	saved, err := st.AddLoan(r.Context(), req.toLoan())
	if err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/loans/"+saved.ID).
		Data(newLoanView(saved, st.Now())).
		Write(w)
	return nil
}

// updateLoan replaces the loan's fields; its payment history is kept.
func (s *Server) updateLoan(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req loanRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	l := req.toLoan()
	l.ID = id
	saved, err := st.UpdateLoan(r.Context(), l)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, newLoanView(saved, st.Now()))
	return nil
}

// deleteLoan removes the loan together with its payments.
func (s *Server) deleteLoan(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := st.DeleteLoan(r.Context(), id); err != nil {
		return err
	}
	writeJSON(w, http.StatusNoContent, nil)
	return nil
}

type paymentResponse struct {
	Payment core.Payment `json:"payment"`
	Loan    loanView     `json:"loan"`
}

func (s *Server) addPayment(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req paymentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	p, err := req.toPayment(st.Now())
	if err != nil {
		return err
	}
	saved, err := st.AddPayment(r.Context(), id, p)
	if err != nil {
		return err
	}
	l, err := st.Loan(id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusCreated, paymentResponse{Payment: saved, Loan: newLoanView(l, st.Now())})
	return nil
}
