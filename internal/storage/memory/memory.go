// Package memory is an in-process persistence collaborator. Records are kept
// per owner in insertion order and copied on every read and write.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"slices"
	"sync"

	"github.com/google/uuid"

	"smartspend/internal/core"
	"smartspend/internal/storage"
)

type Store struct {
	mu           sync.Mutex
	transactions table[core.Transaction]
	categories   table[core.Category]
	loans        table[core.Loan]
	goals        map[string]json.RawMessage
}

var _ storage.Backend = (*Store)(nil)

func New() *Store {
	return &Store{
		transactions: newTable("transaction",
			func(t core.Transaction) string { return t.ID },
			func(t core.Transaction, id string) core.Transaction { t.ID = id; return t },
			nil),
		categories: newTable("category",
			func(c core.Category) string { return c.ID },
			func(c core.Category, id string) core.Category { c.ID = id; return c },
			nil),
		loans: newTable("loan",
			func(l core.Loan) string { return l.ID },
			func(l core.Loan, id string) core.Loan { l.ID = id; return l },
			core.Loan.Clone),
		goals: make(map[string]json.RawMessage),
	}
}

func (s *Store) Transactions() storage.Repository[core.Transaction] {
	return repo[core.Transaction]{mu: &s.mu, t: &s.transactions}
}

func (s *Store) Categories() storage.Repository[core.Category] {
	return repo[core.Category]{mu: &s.mu, t: &s.categories}
}

func (s *Store) Loans() storage.Repository[core.Loan] {
	return loanRepo{repo: repo[core.Loan]{mu: &s.mu, t: &s.loans}}
}

func (s *Store) Payments() storage.PaymentRepository {
	return payments{s}
}

func (s *Store) SavingsGoals() storage.DocumentRepository {
	return documents{s}
}

func (s *Store) Close() error { return nil }

type table[T any] struct {
	entity string
	rows   map[string][]T
	id     func(T) string
	withID func(T, string) T
	clone  func(T) T
}

func newTable[T any](entity string, id func(T) string, withID func(T, string) T, clone func(T) T) table[T] {
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return table[T]{entity: entity, rows: make(map[string][]T), id: id, withID: withID, clone: clone}
}

func (t *table[T]) find(owner, id string) int {
	return slices.IndexFunc(t.rows[owner], func(v T) bool { return t.id(v) == id })
}

type repo[T any] struct {
	mu *sync.Mutex
	t  *table[T]
}

func (r repo[T]) List(ctx context.Context, owner string) ([]T, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]T, 0, len(r.t.rows[owner]))
	for _, v := range r.t.rows[owner] {
		out = append(out, r.t.clone(v))
	}
	return out, nil
}

func (r repo[T]) Insert(ctx context.Context, owner string, v T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	if r.t.id(v) == "" {
		v = r.t.withID(v, uuid.NewString())
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.t.rows[owner] = append(r.t.rows[owner], r.t.clone(v))
	return r.t.clone(v), nil
}

func (r repo[T]) Replace(ctx context.Context, owner, id string, v T) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.t.find(owner, id)
	if i < 0 {
		return zero, core.NotFound(r.t.entity, id)
	}
	v = r.t.withID(v, id)
	r.t.rows[owner][i] = r.t.clone(v)
	return r.t.clone(v), nil
}

func (r repo[T]) Remove(ctx context.Context, owner, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if i := r.t.find(owner, id); i >= 0 {
		r.t.rows[owner] = slices.Delete(r.t.rows[owner], i, i+1)
	}
	return nil
}

// loanRepo keeps stored payment histories across Replace.
type loanRepo struct {
	repo[core.Loan]
}

func (r loanRepo) Insert(ctx context.Context, owner string, l core.Loan) (core.Loan, error) {
	l = l.Clone()
	for i := range l.PaymentHistory {
		if l.PaymentHistory[i].ID == "" {
			l.PaymentHistory[i].ID = uuid.NewString()
		}
	}
	if l.PaymentHistory == nil {
		l.PaymentHistory = []core.Payment{}
	}
	return r.repo.Insert(ctx, owner, l)
}

func (r loanRepo) Replace(ctx context.Context, owner, id string, l core.Loan) (core.Loan, error) {
	if err := ctx.Err(); err != nil {
		return core.Loan{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	i := r.t.find(owner, id)
	if i < 0 {
		return core.Loan{}, core.NotFound("loan", id)
	}
	stored := r.t.rows[owner][i]
	l = l.Clone()
	l.ID = id
	l.PaymentHistory = stored.PaymentHistory
	r.t.rows[owner][i] = l
	return l.Clone(), nil
}

type payments struct{ s *Store }

func (p payments) Insert(ctx context.Context, owner, loanID string, pay core.Payment) (core.Payment, error) {
	if err := ctx.Err(); err != nil {
		return core.Payment{}, err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	i := p.s.loans.find(owner, loanID)
	if i < 0 {
		return core.Payment{}, core.NotFound("loan", loanID)
	}
	if pay.ID == "" {
		pay.ID = uuid.NewString()
	}
	l := &p.s.loans.rows[owner][i]
	l.PaymentHistory = append(slices.Clone(l.PaymentHistory), pay)
	return pay, nil
}

func (p payments) RemoveByLoan(ctx context.Context, owner, loanID string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p.s.mu.Lock()
	defer p.s.mu.Unlock()
	if i := p.s.loans.find(owner, loanID); i >= 0 {
		p.s.loans.rows[owner][i].PaymentHistory = []core.Payment{}
	}
	return nil
}

type documents struct{ s *Store }

func (d documents) Get(ctx context.Context, owner string) (json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	return bytes.Clone(d.s.goals[owner]), nil
}

func (d documents) Put(ctx context.Context, owner string, doc json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	d.s.mu.Lock()
	defer d.s.mu.Unlock()
	d.s.goals[owner] = bytes.Clone(doc)
	return nil
}
