package sheets

import (
	"context"

	"smartspend/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionMirror overwrites the copy of an owner's transactions.
	TransactionMirror interface {
		ReplaceTransactions(ctx context.Context, owner string, txs []core.Transaction) error
	}

	// TransactionReader reads back what the mirror currently holds for owner.
	TransactionReader interface {
		ListTransactions(ctx context.Context, owner string) ([]core.Transaction, error)
	}

	Mirror interface {
		TransactionMirror
		TransactionReader
	}
)
