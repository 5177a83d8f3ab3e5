package http

import (
	"fmt"
	"net/http"

	"smartspend/internal/core"
	"smartspend/internal/report"
	"smartspend/internal/snapshot"
	"smartspend/internal/store"
)

func (s *Server) dashboard(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	writeJSON(w, http.StatusOK, st.Dashboard())
	return nil
}

// monthlyReport returns income, expenses and savings for the trailing
// ?months=N calendar months, oldest first.
func (s *Server) monthlyReport(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	n, err := parseMonths(r.URL.Query())
	if err != nil {
		return err
	}
	months := report.MonthlyRollup(st.Transactions(), st.Now(), n)
	type month struct {
		core.MonthSummary
		Label string `json:"label"`
	}
	out := make([]month, len(months))
	for i, m := range months {
		out[i] = month{MonthSummary: m, Label: m.Label()}
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

// comparison contrasts [start, end] with the equally long period before it.
func (s *Server) comparison(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	start, end, err := parseDateRange(r.URL.Query())
	if err != nil {
		return err
	}
	if start == nil || end == nil {
		return &core.ValidationError{Field: "start", Message: "start and end are required"}
	}
	writeJSON(w, http.StatusOK, report.Compare(st.Transactions(), *start, *end))
	return nil
}

// categoryReport returns spending per expense category, optionally within a
// date range.
func (s *Server) categoryReport(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	start, end, err := parseDateRange(r.URL.Query())
	if err != nil {
		return err
	}
	txs := st.Transactions()
	if start != nil || end != nil {
		txs = report.FilterByDateRange(txs, start, end)
	}
	writeJSON(w, http.StatusOK, report.CategoryBreakdown(st.Categories(), txs))
	return nil
}

// exportSnapshot streams the owner's backup document as an attachment.
func (s *Server) exportSnapshot(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	doc := snapshot.Export(st, &snapshot.Preferences{Currency: s.currency.Code})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", snapshot.BackupFileName))
	if err := snapshot.Encode(w, doc); err != nil {
		// The status line is already sent.
		s.logger.ErrorContext(r.Context(), "Export failed", "error", err)
	}
	return nil
}

type importSummary struct {
	Transactions int `json:"transactions"`
	Categories   int `json:"categories"`
	Loans        int `json:"loans"`
}

// importSnapshot merges the uploaded document into the owner's data,
// keeping its ids.
func (s *Server) importSnapshot(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	doc, err := snapshot.Decode(http.MaxBytesReader(w, r.Body, maxImportBytes))
	if err != nil {
		return err
	}
	if err := snapshot.Import(r.Context(), st, doc); err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, importSummary{
		Transactions: len(st.Transactions()),
		Categories:   len(st.Categories()),
		Loans:        len(st.Loans()),
	})
	return nil
}
