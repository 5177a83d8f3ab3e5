package store

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"smartspend/internal/core"
	"smartspend/internal/log"
)

func newID() string { return uuid.NewString() }

func txID(t core.Transaction) string { return t.ID }
func catID(c core.Category) string   { return c.ID }
func loanID(l core.Loan) string      { return l.ID }

func indexByID[T any](items []T, id string, key func(T) string) int {
	return slices.IndexFunc(items, func(v T) bool { return key(v) == id })
}

// mutate runs fn under the write lock once collection e is ready and the
// owner is known. The event fn returns is published after the lock is released.
func mutate[T any](s *Store, ctx context.Context, e Entity, op string, fn func(owner string) (T, *ChangeEvent, error)) (T, error) {
	var zero T
	owner, err := s.identity.Current(ctx)
	if err != nil {
		return zero, err
	}

	s.mu.Lock()
	if err := s.readyLocked(e); err != nil {
		s.mu.Unlock()
		return zero, err
	}
	v, ev, err := fn(owner)
	s.mu.Unlock()

	if err != nil {
		s.logFailure(ctx, owner, e, op, err)
		return zero, err
	}
	if ev != nil {
		ev.Owner = owner
		ev.At = s.now()
		s.notify(ctx, *ev)
	}
	return v, nil
}

func (s *Store) logFailure(ctx context.Context, owner string, e Entity, op string, err error) {
	kind := log.ErrorType(err, map[error]string{
		core.ErrValidation:  log.ErrorTypeValidation,
		core.ErrNotFound:    log.ErrorTypeNotFound,
		core.ErrPersistence: log.ErrorTypeDatabase,
		core.ErrNotReady:    log.ErrorTypeNotReady,
	})
	fields := log.NewFields().WithOwner(owner).WithEntity(string(e), "").WithOperation(op).WithError(err, kind)
	if kind == log.ErrorTypeDatabase {
		s.logger.ErrorContext(ctx, "Mutation failed", fields.ToSlice()...)
		return
	}
	s.logger.DebugContext(ctx, "Mutation rejected", fields.ToSlice()...)
}

func (s *Store) notify(ctx context.Context, ev ChangeEvent) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		s.logger.WarnContext(ctx, "Change notification failed",
			log.NewFields().WithOwner(ev.Owner).WithEntity(string(ev.Entity), ev.ID).WithOperation(log.OpPublish).WithError(err, log.ErrorTypeNetwork).ToSlice()...)
	}
}

// AddTransaction validates t, assigns a fresh id, persists it and then adds
// it to the collection.
func (s *Store) AddTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return mutate(s, ctx, EntityTransaction, log.OpCreate, func(owner string) (core.Transaction, *ChangeEvent, error) {
		if err := t.Validate(); err != nil {
			return core.Transaction{}, nil, err
		}
		t.ID = newID()
		saved, err := s.backend.Transactions().Insert(ctx, owner, t)
		if err != nil {
			return core.Transaction{}, nil, core.Persistence("insert transaction", err)
		}
		s.transactions = append(s.transactions, saved)
		return saved, &ChangeEvent{Entity: EntityTransaction, Op: OpCreate, ID: saved.ID}, nil
	})
}

// UpdateTransaction replaces the transaction with t.ID wholesale.
func (s *Store) UpdateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	return mutate(s, ctx, EntityTransaction, log.OpUpdate, func(owner string) (core.Transaction, *ChangeEvent, error) {
		i := indexByID(s.transactions, t.ID, txID)
		if i < 0 {
			return core.Transaction{}, nil, core.NotFound("transaction", t.ID)
		}
		if err := t.Validate(); err != nil {
			return core.Transaction{}, nil, err
		}
		saved, err := s.backend.Transactions().Replace(ctx, owner, t.ID, t)
		if err != nil {
			return core.Transaction{}, nil, persistOrNotFound("replace transaction", err)
		}
		s.transactions[i] = saved
		return saved, &ChangeEvent{Entity: EntityTransaction, Op: OpUpdate, ID: saved.ID}, nil
	})
}

// DeleteTransaction removes id. Deleting an unknown id is a no-op.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	_, err := mutate(s, ctx, EntityTransaction, log.OpDelete, func(owner string) (struct{}, *ChangeEvent, error) {
		if err := s.backend.Transactions().Remove(ctx, owner, id); err != nil {
			return struct{}{}, nil, core.Persistence("remove transaction", err)
		}
		i := indexByID(s.transactions, id, txID)
		if i < 0 {
			return struct{}{}, nil, nil
		}
		s.transactions = slices.Delete(s.transactions, i, i+1)
		return struct{}{}, &ChangeEvent{Entity: EntityTransaction, Op: OpDelete, ID: id}, nil
	})
	return err
}

func (s *Store) checkCategoryName(c core.Category) error {
	for _, other := range s.categories {
		if other.ID != c.ID && other.Name == c.Name && other.Type == c.Type {
			return &core.ValidationError{Field: "name", Message: fmt.Sprintf("%s category %q already exists", c.Type, c.Name)}
		}
	}
	return nil
}

// AddCategory persists a new category. Names are unique per type.
func (s *Store) AddCategory(ctx context.Context, c core.Category) (core.Category, error) {
	return mutate(s, ctx, EntityCategory, log.OpCreate, func(owner string) (core.Category, *ChangeEvent, error) {
		c.ID = newID()
		if err := c.Validate(); err != nil {
			return core.Category{}, nil, err
		}
		if err := s.checkCategoryName(c); err != nil {
			return core.Category{}, nil, err
		}
		saved, err := s.backend.Categories().Insert(ctx, owner, c)
		if err != nil {
			return core.Category{}, nil, core.Persistence("insert category", err)
		}
		s.categories = append(s.categories, saved)
		return saved, &ChangeEvent{Entity: EntityCategory, Op: OpCreate, ID: saved.ID}, nil
	})
}

func (s *Store) UpdateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	return mutate(s, ctx, EntityCategory, log.OpUpdate, func(owner string) (core.Category, *ChangeEvent, error) {
		i := indexByID(s.categories, c.ID, catID)
		if i < 0 {
			return core.Category{}, nil, core.NotFound("category", c.ID)
		}
		if err := c.Validate(); err != nil {
			return core.Category{}, nil, err
		}
		if err := s.checkCategoryName(c); err != nil {
			return core.Category{}, nil, err
		}
		saved, err := s.backend.Categories().Replace(ctx, owner, c.ID, c)
		if err != nil {
			return core.Category{}, nil, persistOrNotFound("replace category", err)
		}
		s.categories[i] = saved
		return saved, &ChangeEvent{Entity: EntityCategory, Op: OpUpdate, ID: saved.ID}, nil
	})
}

// DeleteCategory removes id. Transactions naming the category are kept.
func (s *Store) DeleteCategory(ctx context.Context, id string) error {
	_, err := mutate(s, ctx, EntityCategory, log.OpDelete, func(owner string) (struct{}, *ChangeEvent, error) {
		if err := s.backend.Categories().Remove(ctx, owner, id); err != nil {
			return struct{}{}, nil, core.Persistence("remove category", err)
		}
		i := indexByID(s.categories, id, catID)
		if i < 0 {
			return struct{}{}, nil, nil
		}
		s.categories = slices.Delete(s.categories, i, i+1)
		return struct{}{}, &ChangeEvent{Entity: EntityCategory, Op: OpDelete, ID: id}, nil
	})
	return err
}

// AddLoan persists a new loan with an empty payment history.
func (s *Store) AddLoan(ctx context.Context, l core.Loan) (core.Loan, error) {
	return mutate(s, ctx, EntityLoan, log.OpCreate, func(owner string) (core.Loan, *ChangeEvent, error) {
		if l.Status == "" {
			l.Status = core.LoanActive
		}
		if err := l.Validate(); err != nil {
			return core.Loan{}, nil, err
		}
		l.ID = newID()
		l.PaymentHistory = []core.Payment{}
		saved, err := s.backend.Loans().Insert(ctx, owner, l)
		if err != nil {
			return core.Loan{}, nil, core.Persistence("insert loan", err)
		}
		s.loans = append(s.loans, saved.Clone())
		return saved.Clone(), &ChangeEvent{Entity: EntityLoan, Op: OpCreate, ID: saved.ID}, nil
	})
}

// UpdateLoan replaces the loan's fields. Its payment history is owned by the
// store and is kept as is.
func (s *Store) UpdateLoan(ctx context.Context, l core.Loan) (core.Loan, error) {
	return mutate(s, ctx, EntityLoan, log.OpUpdate, func(owner string) (core.Loan, *ChangeEvent, error) {
		i := indexByID(s.loans, l.ID, loanID)
		if i < 0 {
			return core.Loan{}, nil, core.NotFound("loan", l.ID)
		}
		if err := l.Validate(); err != nil {
			return core.Loan{}, nil, err
		}
		l.PaymentHistory = s.loans[i].PaymentHistory
		saved, err := s.backend.Loans().Replace(ctx, owner, l.ID, l)
		if err != nil {
			return core.Loan{}, nil, persistOrNotFound("replace loan", err)
		}
		saved.PaymentHistory = s.loans[i].PaymentHistory
		s.loans[i] = saved.Clone()
		return saved.Clone(), &ChangeEvent{Entity: EntityLoan, Op: OpUpdate, ID: saved.ID}, nil
	})
}

// DeleteLoan removes the loan's payments and then the loan. Deleting an
// unknown id is a no-op.
func (s *Store) DeleteLoan(ctx context.Context, id string) error {
	_, err := mutate(s, ctx, EntityLoan, log.OpDelete, func(owner string) (struct{}, *ChangeEvent, error) {
		i := indexByID(s.loans, id, loanID)
		if err := s.backend.Payments().RemoveByLoan(ctx, owner, id); err != nil {
			return struct{}{}, nil, core.Persistence("remove loan payments", err)
		}
		if err := s.backend.Loans().Remove(ctx, owner, id); err != nil {
			if i >= 0 {
				// payments are gone in the backend already
				s.loans[i].PaymentHistory = []core.Payment{}
			}
			return struct{}{}, nil, core.Persistence("remove loan", err)
		}
		if i < 0 {
			return struct{}{}, nil, nil
		}
		s.loans = slices.Delete(s.loans, i, i+1)
		return struct{}{}, &ChangeEvent{Entity: EntityLoan, Op: OpDelete, ID: id}, nil
	})
	return err
}

// AddPayment appends p to the loan's history. A payment larger than the
// remaining balance is rejected.
func (s *Store) AddPayment(ctx context.Context, id string, p core.Payment) (core.Payment, error) {
	return mutate(s, ctx, EntityLoan, log.OpPayment, func(owner string) (core.Payment, *ChangeEvent, error) {
		i := indexByID(s.loans, id, loanID)
		if i < 0 {
			return core.Payment{}, nil, core.NotFound("loan", id)
		}
		if err := p.Validate(); err != nil {
			return core.Payment{}, nil, err
		}
		l := s.loans[i]
		remaining := l.Amount.Sub(l.TotalPaid())
		if p.Amount.Cents > remaining.Cents {
			return core.Payment{}, nil, &core.ValidationError{
				Field:   "amount",
				Message: fmt.Sprintf("payment %s exceeds remaining balance %s", p.Amount, remaining),
			}
		}
		p.ID = newID()
		saved, err := s.backend.Payments().Insert(ctx, owner, l.ID, p)
		if err != nil {
			return core.Payment{}, nil, persistOrNotFound("insert payment", err)
		}
		s.loans[i].PaymentHistory = append(s.loans[i].PaymentHistory, saved)
		return saved, &ChangeEvent{Entity: EntityPayment, Op: OpCreate, ID: saved.ID}, nil
	})
}

// persistOrNotFound keeps a backend "not found" as such and wraps anything
// else as a persistence failure.
func persistOrNotFound(op string, err error) error {
	if errors.Is(err, core.ErrNotFound) {
		return err
	}
	return core.Persistence(op, err)
}
