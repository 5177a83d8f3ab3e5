// Package store holds the in-memory collections of one owner and mediates
// every mutation through the persistence collaborator. A mutation is written
// to the backend first and becomes visible only after the backend confirms it.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"smartspend/internal/core"
	"smartspend/internal/identity"
	"smartspend/internal/log"
	"smartspend/internal/report"
	"smartspend/internal/storage"
)

// State is the lifecycle stage of one collection.
type State string

const (
	StateNew      State = "new"
	StateLoading  State = "loading"
	StateReady    State = "ready"
	StateDisposed State = "disposed"
)

// Options wires a Store to its collaborators. Backend and Identity are required.
type Options struct {
	Backend      storage.Backend
	Identity     identity.Provider
	Notifier     Notifier
	Logger       *log.Logger
	SeedDefaults bool
	Clock        func() time.Time
}

type Store struct {
	// loadMu serialises Load so a reload never starts from another's
	// in-flight state.
	loadMu   sync.Mutex
	mu       sync.RWMutex
	backend  storage.Backend
	identity identity.Provider
	notifier Notifier
	logger   *log.Logger
	seed     bool
	now      func() time.Time

	states       map[Entity]State
	transactions []core.Transaction
	categories   []core.Category
	loans        []core.Loan
	savingsGoals json.RawMessage
}

var collections = []Entity{EntityTransaction, EntityCategory, EntityLoan}

func New(opts Options) (*Store, error) {
	if opts.Backend == nil {
		return nil, errors.New("store: backend is required")
	}
	if opts.Identity == nil {
		return nil, errors.New("store: identity provider is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	s := &Store{
		backend:  opts.Backend,
		identity: opts.Identity,
		notifier: opts.Notifier,
		logger:   logger.WithComponent(log.ComponentStore),
		seed:     opts.SeedDefaults,
		now:      clock,
		states:   make(map[Entity]State, len(collections)),
	}
	for _, c := range collections {
		s.states[c] = StateNew
	}
	return s, nil
}

// Load fetches all three collections for the current owner concurrently and
// marks them ready. It can be called again to reload; concurrent calls run
// one after the other.
func (s *Store) Load(ctx context.Context) error {
	owner, err := s.identity.Current(ctx)
	if err != nil {
		return err
	}
	s.loadMu.Lock()
	defer s.loadMu.Unlock()

	s.mu.Lock()
	for _, c := range collections {
		if s.states[c] == StateDisposed {
			s.mu.Unlock()
			return fmt.Errorf("load: %w", core.ErrNotReady)
		}
	}
	previous := make(map[Entity]State, len(collections))
	for _, c := range collections {
		previous[c] = s.states[c]
		s.states[c] = StateLoading
	}
	s.mu.Unlock()

	var (
		txs   []core.Transaction
		cats  []core.Category
		loans []core.Loan
		goals json.RawMessage
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		txs, err = s.backend.Transactions().List(gctx, owner)
		return core.Persistence("list transactions", err)
	})
	g.Go(func() (err error) {
		cats, err = s.backend.Categories().List(gctx, owner)
		return core.Persistence("list categories", err)
	})
	g.Go(func() (err error) {
		loans, err = s.backend.Loans().List(gctx, owner)
		return core.Persistence("list loans", err)
	})
	g.Go(func() (err error) {
		goals, err = s.backend.SavingsGoals().Get(gctx, owner)
		return core.Persistence("get savings goals", err)
	})
	err = g.Wait()
	if err == nil && s.seed && len(cats) == 0 {
		cats, err = s.seedCategories(ctx, owner)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.states[EntityTransaction] == StateDisposed {
		return fmt.Errorf("load: %w", core.ErrNotReady)
	}
	if err != nil {
		for _, c := range collections {
			s.states[c] = previous[c]
		}
		s.logger.ErrorContext(ctx, "Load failed",
			log.NewFields().WithOwner(owner).WithOperation(log.OpLoad).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return err
	}
	s.transactions = txs
	s.categories = cats
	s.loans = loans
	s.savingsGoals = goals
	for _, c := range collections {
		s.states[c] = StateReady
	}
	s.logger.InfoContext(ctx, "Store loaded",
		log.FieldOwner, owner,
		"transactions", len(txs),
		"categories", len(cats),
		"loans", len(loans))
	return nil
}

func (s *Store) seedCategories(ctx context.Context, owner string) ([]core.Category, error) {
	out := make([]core.Category, 0, len(core.DefaultCategories()))
	for _, c := range core.DefaultCategories() {
		c.ID = newID()
		saved, err := s.backend.Categories().Insert(ctx, owner, c)
		if err != nil {
			return nil, core.Persistence("seed categories", err)
		}
		out = append(out, saved)
	}
	s.logger.InfoContext(ctx, "Default categories seeded", log.FieldOwner, owner, log.FieldCount, len(out))
	return out, nil
}

// Dispose releases the collections. Every later call fails with core.ErrNotReady.
func (s *Store) Dispose() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range collections {
		s.states[c] = StateDisposed
	}
	s.transactions, s.categories, s.loans = nil, nil, nil
	s.savingsGoals = nil
}

// State reports the lifecycle stage of the collection holding entity e.
// Payments share the loan collection.
func (s *Store) State(e Entity) State {
	if e == EntityPayment {
		e = EntityLoan
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if st, ok := s.states[e]; ok {
		return st
	}
	return StateNew
}

func (s *Store) readyLocked(e Entity) error {
	if st := s.states[e]; st != StateReady {
		return fmt.Errorf("%s collection is %s: %w", e, st, core.ErrNotReady)
	}
	return nil
}

// Transactions returns a copy of the transaction collection.
func (s *Store) Transactions() []core.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.transactions)
}

// Categories returns a copy of the category collection.
func (s *Store) Categories() []core.Category {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.categories)
}

// Loans returns a deep copy of the loan collection.
func (s *Store) Loans() []core.Loan {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneLoans(s.loans)
}

func cloneLoans(in []core.Loan) []core.Loan {
	if in == nil {
		return nil
	}
	out := make([]core.Loan, len(in))
	for i, l := range in {
		out[i] = l.Clone()
	}
	return out
}

func (s *Store) Transaction(id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.transactions, id, txID); i >= 0 {
		return s.transactions[i], nil
	}
	return core.Transaction{}, core.NotFound("transaction", id)
}

func (s *Store) Category(id string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.categories, id, catID); i >= 0 {
		return s.categories[i], nil
	}
	return core.Category{}, core.NotFound("category", id)
}

func (s *Store) Loan(id string) (core.Loan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexByID(s.loans, id, loanID); i >= 0 {
		return s.loans[i].Clone(), nil
	}
	return core.Loan{}, core.NotFound("loan", id)
}

// TotalIncome is recomputed from the current collection on each call.
func (s *Store) TotalIncome() core.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.TotalByType(s.transactions, core.Income)
}

func (s *Store) TotalExpenses() core.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.TotalByType(s.transactions, core.Expense)
}

func (s *Store) SavingsRate() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.SavingsRate(
		report.TotalByType(s.transactions, core.Income),
		report.TotalByType(s.transactions, core.Expense))
}

// TotalBorrowed is the outstanding balance of active borrowed loans.
func (s *Store) TotalBorrowed() core.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.OutstandingByType(s.loans, core.Borrowed)
}

// TotalLent is the outstanding balance of active lent loans.
func (s *Store) TotalLent() core.Money {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.OutstandingByType(s.loans, core.Lent)
}

// Dashboard builds the overview from a consistent view of all collections.
func (s *Store) Dashboard() report.Dashboard {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return report.BuildDashboard(s.transactions, s.categories, s.loans, s.now())
}

// Now returns the store clock's current time.
func (s *Store) Now() time.Time {
	return s.now()
}
