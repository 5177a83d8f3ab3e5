package store

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"slices"

	"smartspend/internal/core"
	"smartspend/internal/log"
)

// Data is a full copy of an owner's collections. SavingsGoals is an opaque
// JSON document stored as given.
type Data struct {
	Transactions []core.Transaction
	Categories   []core.Category
	Loans        []core.Loan
	SavingsGoals json.RawMessage
}

// Snapshot returns a consistent copy of all collections.
func (s *Store) Snapshot() Data {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Data{
		Transactions: slices.Clone(s.transactions),
		Categories:   slices.Clone(s.categories),
		Loans:        cloneLoans(s.loans),
		SavingsGoals: bytes.Clone(s.savingsGoals),
	}
}

// Restore imports d keeping its ids: records with a known id replace the
// current ones, the rest are inserted. Records missing from d are left alone.
// Everything is validated before the first write; each record becomes visible
// once the backend has accepted it.
func (s *Store) Restore(ctx context.Context, d Data) error {
	owner, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}
	d = prepare(d)
	if err := validateData(d); err != nil {
		return err
	}

	s.mu.Lock()
	for _, c := range collections {
		if err := s.readyLocked(c); err != nil {
			s.mu.Unlock()
			return err
		}
	}
	err = s.checkRestoredCategories(d.Categories)
	if err == nil {
		err = s.restoreLocked(ctx, owner, d)
	}
	s.mu.Unlock()

	if err != nil {
		s.logFailure(ctx, owner, EntitySnapshot, log.OpImport, err)
		return err
	}
	s.logger.InfoContext(ctx, "Snapshot restored",
		log.FieldOwner, owner,
		"transactions", len(d.Transactions),
		"categories", len(d.Categories),
		"loans", len(d.Loans))
	s.notify(ctx, ChangeEvent{Entity: EntitySnapshot, Op: OpImport, Owner: owner, At: s.now()})
	return nil
}

func prepare(d Data) Data {
	out := Data{
		Transactions: slices.Clone(d.Transactions),
		Categories:   slices.Clone(d.Categories),
		Loans:        cloneLoans(d.Loans),
		SavingsGoals: bytes.Clone(d.SavingsGoals),
	}
	for i := range out.Transactions {
		if out.Transactions[i].ID == "" {
			out.Transactions[i].ID = newID()
		}
	}
	for i := range out.Categories {
		if out.Categories[i].ID == "" {
			out.Categories[i].ID = newID()
		}
	}
	for i := range out.Loans {
		l := &out.Loans[i]
		if l.ID == "" {
			l.ID = newID()
		}
		if l.PaymentHistory == nil {
			l.PaymentHistory = []core.Payment{}
		}
		for j := range l.PaymentHistory {
			if l.PaymentHistory[j].ID == "" {
				l.PaymentHistory[j].ID = newID()
			}
		}
	}
	return out
}

func validateData(d Data) error {
	for _, t := range d.Transactions {
		if err := t.Validate(); err != nil {
			return err
		}
	}
	for _, c := range d.Categories {
		if err := c.Validate(); err != nil {
			return err
		}
	}
	for _, l := range d.Loans {
		if err := l.Validate(); err != nil {
			return err
		}
		for _, p := range l.PaymentHistory {
			if err := p.Validate(); err != nil {
				return err
			}
		}
	}
	if len(d.SavingsGoals) > 0 && !json.Valid(d.SavingsGoals) {
		return &core.ValidationError{Field: "savingsGoals", Message: "is not valid JSON"}
	}
	return nil
}

// checkRestoredCategories applies the unique name per type rule to the
// collection a restore of cats would produce. Only clashes involving an
// imported category are reported.
func (s *Store) checkRestoredCategories(cats []core.Category) error {
	type key struct {
		name string
		kind core.TransactionType
	}
	imported := make(map[string]bool, len(cats))
	merged := slices.Clone(s.categories)
	for _, c := range cats {
		imported[c.ID] = true
		if i := indexByID(merged, c.ID, catID); i >= 0 {
			merged[i] = c
			continue
		}
		merged = append(merged, c)
	}
	owners := make(map[key]string, len(merged))
	for _, c := range merged {
		k := key{c.Name, c.Type}
		other, seen := owners[k]
		if !seen {
			owners[k] = c.ID
			continue
		}
		if imported[c.ID] || imported[other] {
			return &core.ValidationError{Field: "name", Message: fmt.Sprintf("%s category %q already exists", c.Type, c.Name)}
		}
	}
	return nil
}

func (s *Store) restoreLocked(ctx context.Context, owner string, d Data) error {
	txRepo := s.backend.Transactions()
	for _, t := range d.Transactions {
		if i := indexByID(s.transactions, t.ID, txID); i >= 0 {
			saved, err := txRepo.Replace(ctx, owner, t.ID, t)
			if err != nil {
				return core.Persistence("restore transaction", err)
			}
			s.transactions[i] = saved
			continue
		}
		saved, err := txRepo.Insert(ctx, owner, t)
		if err != nil {
			return core.Persistence("restore transaction", err)
		}
		s.transactions = append(s.transactions, saved)
	}

	catRepo := s.backend.Categories()
	for _, c := range d.Categories {
		if i := indexByID(s.categories, c.ID, catID); i >= 0 {
			saved, err := catRepo.Replace(ctx, owner, c.ID, c)
			if err != nil {
				return core.Persistence("restore category", err)
			}
			s.categories[i] = saved
			continue
		}
		saved, err := catRepo.Insert(ctx, owner, c)
		if err != nil {
			return core.Persistence("restore category", err)
		}
		s.categories = append(s.categories, saved)
	}

	for _, l := range d.Loans {
		if err := s.restoreLoan(ctx, owner, l); err != nil {
			return err
		}
	}

	if len(d.SavingsGoals) > 0 {
		if err := s.backend.SavingsGoals().Put(ctx, owner, d.SavingsGoals); err != nil {
			return core.Persistence("restore savings goals", err)
		}
		s.savingsGoals = d.SavingsGoals
	}
	return nil
}

func (s *Store) restoreLoan(ctx context.Context, owner string, l core.Loan) error {
	i := indexByID(s.loans, l.ID, loanID)
	if i < 0 {
		saved, err := s.backend.Loans().Insert(ctx, owner, l)
		if err != nil {
			return core.Persistence("restore loan", err)
		}
		s.loans = append(s.loans, saved.Clone())
		return nil
	}

	history := s.loans[i].PaymentHistory
	if _, err := s.backend.Loans().Replace(ctx, owner, l.ID, l); err != nil {
		return core.Persistence("restore loan", err)
	}
	current := l.Clone()
	current.PaymentHistory = slices.Clone(history)
	s.loans[i] = current

	for _, p := range l.PaymentHistory {
		if slices.ContainsFunc(history, func(h core.Payment) bool { return h.ID == p.ID }) {
			continue
		}
		saved, err := s.backend.Payments().Insert(ctx, owner, l.ID, p)
		if err != nil {
			return core.Persistence("restore payment", err)
		}
		s.loans[i].PaymentHistory = append(s.loans[i].PaymentHistory, saved)
	}
	return nil
}
