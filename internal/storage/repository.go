package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"smartspend/internal/core"
	"smartspend/internal/log"

	_ "modernc.org/sqlite"
)

// SQLiteRepository is the SQLite persistence collaborator.
type SQLiteRepository struct {
	db     *sql.DB
	logger *log.Logger
}

var _ Backend = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string, logger *log.Logger) (*SQLiteRepository, error) {
	if logger == nil {
		logger = log.Nop()
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	logger = logger.WithComponent(log.ComponentStorage)
	if err := migrateSchema(dbPath, logger); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db, logger: logger}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Transactions() Repository[core.Transaction] { return sqliteTransactions{r} }
func (r *SQLiteRepository) Categories() Repository[core.Category]      { return sqliteCategories{r} }
func (r *SQLiteRepository) Loans() Repository[core.Loan]               { return sqliteLoans{r} }
func (r *SQLiteRepository) Payments() PaymentRepository                { return sqlitePayments{r} }
func (r *SQLiteRepository) SavingsGoals() DocumentRepository           { return sqliteGoals{r} }

func newID(id string) string {
	if id == "" {
		return uuid.NewString()
	}
	return id
}

func expectRow(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return core.NotFound(entity, id)
	}
	return nil
}

func (r *SQLiteRepository) parseTime(ctx context.Context, entity, id, raw string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		r.logger.WarnContext(ctx, "Stored date unreadable, record kept without date",
			log.NewFields().WithEntity(entity, id).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return time.Time{}
	}
	return t
}

func (r *SQLiteRepository) parseDate(ctx context.Context, entity, id, raw string) core.Date {
	if raw == "" {
		return core.Date{}
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		r.logger.WarnContext(ctx, "Stored date unreadable, record kept without date",
			log.NewFields().WithEntity(entity, id).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		return core.Date{}
	}
	return d
}

func formatTime(t time.Time) string {
	return t.Format(time.RFC3339Nano)
}

type sqliteTransactions struct{ r *SQLiteRepository }

func (s sqliteTransactions) List(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := s.r.db.QueryContext(ctx,
		`SELECT id, amount_cents, type, category, description, occurred_at
		 FROM transactions WHERE owner_id = ? ORDER BY rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("query transactions: %w", err)
	}
	defer rows.Close()

	out := make([]core.Transaction, 0)
	for rows.Next() {
		var (
			t    core.Transaction
			kind string
			when string
		)
		if err := rows.Scan(&t.ID, &t.Amount.Cents, &kind, &t.Category, &t.Description, &when); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Type = core.TransactionType(kind)
		t.Date = s.r.parseTime(ctx, "transaction", t.ID, when)
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s sqliteTransactions) Insert(ctx context.Context, owner string, t core.Transaction) (core.Transaction, error) {
	t.ID = newID(t.ID)
	_, err := s.r.db.ExecContext(ctx,
		`INSERT INTO transactions (id, owner_id, amount_cents, type, category, description, occurred_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		t.ID, owner, t.Amount.Cents, string(t.Type), t.Category, t.Description, formatTime(t.Date))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("insert transaction: %w", err)
	}
	return t, nil
}

func (s sqliteTransactions) Replace(ctx context.Context, owner, id string, t core.Transaction) (core.Transaction, error) {
	t.ID = id
	res, err := s.r.db.ExecContext(ctx,
		`UPDATE transactions SET amount_cents = ?, type = ?, category = ?, description = ?, occurred_at = ?
		 WHERE id = ? AND owner_id = ?`,
		t.Amount.Cents, string(t.Type), t.Category, t.Description, formatTime(t.Date), id, owner)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	if err := expectRow(res, "transaction", id); err != nil {
		return core.Transaction{}, err
	}
	return t, nil
}

func (s sqliteTransactions) Remove(ctx context.Context, owner, id string) error {
	if _, err := s.r.db.ExecContext(ctx, `DELETE FROM transactions WHERE id = ? AND owner_id = ?`, id, owner); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	return nil
}

type sqliteCategories struct{ r *SQLiteRepository }

func (s sqliteCategories) List(ctx context.Context, owner string) ([]core.Category, error) {
	rows, err := s.r.db.QueryContext(ctx,
		`SELECT id, name, budget_cents, type, color FROM categories WHERE owner_id = ? ORDER BY rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	out := make([]core.Category, 0)
	for rows.Next() {
		var (
			c    core.Category
			kind string
		)
		if err := rows.Scan(&c.ID, &c.Name, &c.Budget.Cents, &kind, &c.Color); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		c.Type = core.TransactionType(kind)
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s sqliteCategories) Insert(ctx context.Context, owner string, c core.Category) (core.Category, error) {
	c.ID = newID(c.ID)
	_, err := s.r.db.ExecContext(ctx,
		`INSERT INTO categories (id, owner_id, name, budget_cents, type, color) VALUES (?, ?, ?, ?, ?, ?)`,
		c.ID, owner, c.Name, c.Budget.Cents, string(c.Type), c.Color)
	if err != nil {
		return core.Category{}, fmt.Errorf("insert category: %w", err)
	}
	return c, nil
}

func (s sqliteCategories) Replace(ctx context.Context, owner, id string, c core.Category) (core.Category, error) {
	c.ID = id
	res, err := s.r.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, budget_cents = ?, type = ?, color = ? WHERE id = ? AND owner_id = ?`,
		c.Name, c.Budget.Cents, string(c.Type), c.Color, id, owner)
	if err != nil {
		return core.Category{}, fmt.Errorf("update category: %w", err)
	}
	if err := expectRow(res, "category", id); err != nil {
		return core.Category{}, err
	}
	return c, nil
}

func (s sqliteCategories) Remove(ctx context.Context, owner, id string) error {
	if _, err := s.r.db.ExecContext(ctx, `DELETE FROM categories WHERE id = ? AND owner_id = ?`, id, owner); err != nil {
		return fmt.Errorf("delete category: %w", err)
	}
	return nil
}

type sqliteLoans struct{ r *SQLiteRepository }

func (s sqliteLoans) List(ctx context.Context, owner string) ([]core.Loan, error) {
	rows, err := s.r.db.QueryContext(ctx,
		`SELECT id, amount_cents, type, person_name, description, start_date, due_date, interest_rate, status
		 FROM loans WHERE owner_id = ? ORDER BY rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	out := make([]core.Loan, 0)
	index := make(map[string]int)
	for rows.Next() {
		var (
			l                    core.Loan
			kind, status         string
			start, due, rateText string
		)
		if err := rows.Scan(&l.ID, &l.Amount.Cents, &kind, &l.PersonName, &l.Description, &start, &due, &rateText, &status); err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		l.Type = core.LoanType(kind)
		l.Status = core.LoanStatus(status)
		l.StartDate = s.r.parseDate(ctx, "loan", l.ID, start)
		l.DueDate = s.r.parseDate(ctx, "loan", l.ID, due)
		if rate, err := decimal.NewFromString(rateText); err == nil {
			l.InterestRate = rate
		} else {
			s.r.logger.WarnContext(ctx, "Stored interest rate unreadable",
				log.NewFields().WithEntity("loan", l.ID).WithError(err, log.ErrorTypeDatabase).ToSlice()...)
		}
		l.PaymentHistory = []core.Payment{}
		index[l.ID] = len(out)
		out = append(out, l)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	prows, err := s.r.db.QueryContext(ctx,
		`SELECT id, loan_id, amount_cents, paid_at, note FROM payments WHERE owner_id = ? ORDER BY rowid`, owner)
	if err != nil {
		return nil, fmt.Errorf("query payments: %w", err)
	}
	defer prows.Close()
	for prows.Next() {
		var (
			p            core.Payment
			loanID, when string
		)
		if err := prows.Scan(&p.ID, &loanID, &p.Amount.Cents, &when, &p.Note); err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		i, ok := index[loanID]
		if !ok {
			continue
		}
		p.Date = s.r.parseTime(ctx, "payment", p.ID, when)
		out[i].PaymentHistory = append(out[i].PaymentHistory, p)
	}
	return out, prows.Err()
}

// Insert stores the loan together with any payments it already carries.
func (s sqliteLoans) Insert(ctx context.Context, owner string, l core.Loan) (core.Loan, error) {
	l = l.Clone()
	l.ID = newID(l.ID)
	tx, err := s.r.db.BeginTx(ctx, nil)
	if err != nil {
		return core.Loan{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO loans (id, owner_id, amount_cents, type, person_name, description, start_date, due_date, interest_rate, status)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, owner, l.Amount.Cents, string(l.Type), l.PersonName, l.Description,
		l.StartDate.String(), l.DueDate.String(), l.InterestRate.String(), string(l.Status))
	if err != nil {
		return core.Loan{}, fmt.Errorf("insert loan: %w", err)
	}
	for i := range l.PaymentHistory {
		p := &l.PaymentHistory[i]
		p.ID = newID(p.ID)
		if err := insertPayment(ctx, tx, owner, l.ID, *p); err != nil {
			return core.Loan{}, err
		}
	}
	if err := tx.Commit(); err != nil {
		return core.Loan{}, fmt.Errorf("commit loan: %w", err)
	}
	return l, nil
}

func (s sqliteLoans) Replace(ctx context.Context, owner, id string, l core.Loan) (core.Loan, error) {
	l.ID = id
	res, err := s.r.db.ExecContext(ctx,
		`UPDATE loans SET amount_cents = ?, type = ?, person_name = ?, description = ?, start_date = ?,
		 due_date = ?, interest_rate = ?, status = ? WHERE id = ? AND owner_id = ?`,
		l.Amount.Cents, string(l.Type), l.PersonName, l.Description, l.StartDate.String(),
		l.DueDate.String(), l.InterestRate.String(), string(l.Status), id, owner)
	if err != nil {
		return core.Loan{}, fmt.Errorf("update loan: %w", err)
	}
	if err := expectRow(res, "loan", id); err != nil {
		return core.Loan{}, err
	}
	return l, nil
}

func (s sqliteLoans) Remove(ctx context.Context, owner, id string) error {
	if _, err := s.r.db.ExecContext(ctx, `DELETE FROM loans WHERE id = ? AND owner_id = ?`, id, owner); err != nil {
		return fmt.Errorf("delete loan: %w", err)
	}
	return nil
}

type sqlitePayments struct{ r *SQLiteRepository }

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

func insertPayment(ctx context.Context, db execer, owner, loanID string, p core.Payment) error {
	_, err := db.ExecContext(ctx,
		`INSERT INTO payments (id, owner_id, loan_id, amount_cents, paid_at, note) VALUES (?, ?, ?, ?, ?, ?)`,
		p.ID, owner, loanID, p.Amount.Cents, formatTime(p.Date), p.Note)
	if err != nil {
		return fmt.Errorf("insert payment: %w", err)
	}
	return nil
}

func (s sqlitePayments) Insert(ctx context.Context, owner, loanID string, p core.Payment) (core.Payment, error) {
	var one int
	err := s.r.db.QueryRowContext(ctx, `SELECT 1 FROM loans WHERE id = ? AND owner_id = ?`, loanID, owner).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Payment{}, core.NotFound("loan", loanID)
	}
	if err != nil {
		return core.Payment{}, fmt.Errorf("lookup loan: %w", err)
	}
	p.ID = newID(p.ID)
	if err := insertPayment(ctx, s.r.db, owner, loanID, p); err != nil {
		return core.Payment{}, err
	}
	return p, nil
}

func (s sqlitePayments) RemoveByLoan(ctx context.Context, owner, loanID string) error {
	if _, err := s.r.db.ExecContext(ctx, `DELETE FROM payments WHERE loan_id = ? AND owner_id = ?`, loanID, owner); err != nil {
		return fmt.Errorf("delete payments: %w", err)
	}
	return nil
}

type sqliteGoals struct{ r *SQLiteRepository }

func (s sqliteGoals) Get(ctx context.Context, owner string) (json.RawMessage, error) {
	var doc string
	err := s.r.db.QueryRowContext(ctx, `SELECT document FROM savings_goals WHERE owner_id = ?`, owner).Scan(&doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query savings goals: %w", err)
	}
	return json.RawMessage(doc), nil
}

func (s sqliteGoals) Put(ctx context.Context, owner string, doc json.RawMessage) error {
	_, err := s.r.db.ExecContext(ctx,
		`INSERT INTO savings_goals (owner_id, document) VALUES (?, ?)
		 ON CONFLICT(owner_id) DO UPDATE SET document = excluded.document, updated_at = CURRENT_TIMESTAMP`,
		owner, string(doc))
	if err != nil {
		return fmt.Errorf("store savings goals: %w", err)
	}
	return nil
}
