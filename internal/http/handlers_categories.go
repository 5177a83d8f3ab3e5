package http

import (
	"net/http"
	"strings"

	"smartspend/internal/core"
	"smartspend/internal/report"
	"smartspend/internal/store"
)

// categoryView is a category with its current budget usage.
type categoryView struct {
	core.Category
	Spent      core.Money   `json:"spent"`
	Remaining  core.Money   `json:"remaining"`
	Percentage int          `json:"percentage"`
	Level      report.Level `json:"level"`
}

func newCategoryView(c core.Category, txs []core.Transaction) categoryView {
	p := report.ProgressFor(c, txs)
	return categoryView{
		Category:   c,
		Spent:      p.Spent,
		Remaining:  p.Remaining,
		Percentage: p.Percentage,
		Level:      p.Level,
	}
}

// listCategories returns categories with their budget usage, optionally
// limited to one type.
func (s *Server) listCategories(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	var only core.TransactionType
	if v := strings.TrimSpace(r.URL.Query().Get("type")); v != "" {
		t, err := core.ParseTransactionType(v)
		if err != nil {
			return err
		}
		only = t
	}
	txs := st.Transactions()
	out := make([]categoryView, 0)
	for _, c := range st.Categories() {
		if only != "" && c.Type != only {
			continue
		}
		out = append(out, newCategoryView(c, txs))
	}
	writeJSON(w, http.StatusOK, out)
	return nil
}

func (s *Server) createCategory(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	c, err := req.toCategory()
	if err != nil {
		return err
	}
	saved, err := st.AddCategory(r.Context(), c)
	if err != nil {
		return err
	}
	NewJSONResponse().Status(http.StatusCreated).
		Header("Location", "/api/categories/"+saved.ID).
		Data(saved).
		Write(w)
	return nil
}

func (s *Server) updateCategory(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	var req categoryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return err
	}
	c, err := req.toCategory()
	if err != nil {
		return err
	}
	c.ID = id
	saved, err := st.UpdateCategory(r.Context(), c)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, saved)
	return nil
}

// deleteCategory leaves transactions that name the category untouched.
func (s *Server) deleteCategory(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	if err := st.DeleteCategory(r.Context(), id); err != nil {
		return err
	}
	writeJSON(w, http.StatusNoContent, nil)
	return nil
}

func (s *Server) categoryProgress(w http.ResponseWriter, r *http.Request, st *store.Store) error {
	id, err := pathID(r)
	if err != nil {
		return err
	}
	c, err := st.Category(id)
	if err != nil {
		return err
	}
	writeJSON(w, http.StatusOK, report.ProgressFor(c, st.Transactions()))
	return nil
}
