package store

import (
	"context"
	"time"
)

// Entity names a kind of record.
type Entity string

const (
	EntityTransaction Entity = "transaction"
	EntityCategory    Entity = "category"
	EntityLoan        Entity = "loan"
	EntityPayment     Entity = "payment"
	EntitySnapshot    Entity = "snapshot"
)

// Op names a committed mutation.
type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	OpImport Op = "import"
)

// ChangeEvent describes one committed mutation.
type ChangeEvent struct {
	Entity Entity    `json:"entity"`
	Op     Op        `json:"op"`
	ID     string    `json:"id,omitempty"`
	Owner  string    `json:"owner"`
	At     time.Time `json:"timestamp"`
}

// Notifier is told about every committed mutation. Errors are logged by the
// store and never fail the mutation.
type Notifier interface {
	Notify(ctx context.Context, ev ChangeEvent) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, ev ChangeEvent) error

func (f NotifierFunc) Notify(ctx context.Context, ev ChangeEvent) error {
	return f(ctx, ev)
}
