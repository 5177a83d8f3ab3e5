package storage

import (
	"context"
	"encoding/json"

	"smartspend/internal/core"
)

// Ports for the persistence collaborator. Every call is scoped to one owner;
// records of other owners are invisible: Replace reports core.ErrNotFound and
// Remove is a no-op.
type (
	Repository[T any] interface {
		List(ctx context.Context, owner string) ([]T, error)
		// Insert stores v under its id, assigning one when empty.
		Insert(ctx context.Context, owner string, v T) (T, error)
		Replace(ctx context.Context, owner, id string, v T) (T, error)
		Remove(ctx context.Context, owner, id string) error
	}

	PaymentRepository interface {
		Insert(ctx context.Context, owner, loanID string, p core.Payment) (core.Payment, error)
		RemoveByLoan(ctx context.Context, owner, loanID string) error
	}

	// DocumentRepository keeps one opaque JSON document per owner. Get
	// returns nil when nothing was stored.
	DocumentRepository interface {
		Get(ctx context.Context, owner string) (json.RawMessage, error)
		Put(ctx context.Context, owner string, doc json.RawMessage) error
	}

	// Backend groups the repositories of one data source. Loans are listed
	// with their payment histories; Replace on a loan leaves its payments alone.
	Backend interface {
		Transactions() Repository[core.Transaction]
		Categories() Repository[core.Category]
		Loans() Repository[core.Loan]
		Payments() PaymentRepository
		SavingsGoals() DocumentRepository
		Close() error
	}
)
