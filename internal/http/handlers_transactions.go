package http

import (
	"net/http"

	"smartspend/internal/core"
	"smartspend/internal/report"
	"smartspend/internal/store"
)

// listTransactions returns the owner's transactions, newest first, narrowed
// by the optional start, end, type and q filters.
func (s *Server) listTransactions(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	f, err := parseTransactionFilter(r.URL.Query())
	if err != nil {
		return err
	}
	txs := st.Transactions()
	if f.Start != nil || f.End != nil {
		txs = report.FilterByDateRange(txs, f.Start, f.End)
	}
	if f.Type != "" {
		txs = report.FilterByType(txs, f.Type)
	}
	out := report.SortByDateDesc(report.Search(txs, f.Query, s.currency))
	if out == nil {
		out = []core.Transaction{}
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) createTransaction(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	tx, err := req.toTransaction()
	if err != nil {
		return err
	}
	saved, err := st.AddTransaction(r.Context(), tx)
	if err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/transactions/"+saved.ID).
		Data(saved).
		Write(w)
	return nil
}

func (s *Server) updateTransaction(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req transactionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	tx, err := req.toTransaction()
	if err != nil {
		return err
	}
	tx.ID = id
	saved, err := st.UpdateTransaction(r.Context(), tx)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, saved)
	return nil
}

func (s *Server) deleteTransaction(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := st.DeleteTransaction(r.Context(), id); err != nil {
		return err
	}
	writeJSON(w, http.StatusNoContent, nil)
	return nil
}
