package worker

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"smartspend/internal/amqp"
	"smartspend/internal/core"
	"smartspend/internal/log"
	"smartspend/internal/sheets"
	"smartspend/internal/storage"
	"smartspend/internal/store"
)

// maxParallelSyncs bounds concurrent sheet rewrites during a full pass.
const maxParallelSyncs = 4

// SyncWorker keeps each owner's spreadsheet tab in step with the transactions
// held by the persistence backend.
type SyncWorker struct {
	transactions storage.Repository[core.Transaction]
	mirror       sheets.Mirror
	logger       *log.Logger
	group        singleflight.Group

	mu     sync.Mutex
	owners map[string]struct{}
}

func NewSyncWorker(backend storage.Backend, mirror sheets.Mirror, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.Nop()
	}
	return &SyncWorker{
		transactions: backend.Transactions(),
		mirror:       mirror,
		logger:       logger.WithComponent(log.ComponentWorker),
		owners:       make(map[string]struct{}),
	}
}

// Track adds owners to the set refreshed by SyncAll.
func (w *SyncWorker) Track(owners ...string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, o := range owners {
		if o != "" {
			w.owners[o] = struct{}{}
		}
	}
}

// Owners returns the tracked owners in sorted order.
func (w *SyncWorker) Owners() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := make([]string, 0, len(w.owners))
	for o := range w.owners {
		out = append(out, o)
	}
	slices.Sort(out)
	return out
}

func mirrored(entity string) bool {
	return entity == string(store.EntityTransaction) || entity == string(store.EntitySnapshot)
}

// HandleChange processes one change message from AMQP. Only transaction
// and snapshot changes touch the mirror; the owner is tracked either way.
func (w *SyncWorker) HandleChange(ctx context.Context, msg *amqp.ChangeMessage) error {
	w.Track(msg.Owner)
	fields := log.NewFields().WithOwner(msg.Owner).WithEntity(msg.Entity, msg.ID).WithOperation(log.OpSync)

	if !mirrored(msg.Entity) {
		w.logger.DebugContext(ctx, "Change does not affect the mirror", fields.ToSlice()...)
		return nil
	}
	if _, err := w.SyncOwner(ctx, msg.Owner); err != nil {
		return fmt.Errorf("sync owner %s: %w", msg.Owner, err)
	}
	return nil
}

// SyncOwner rewrites the owner's tab unless it already matches the backend.
// Concurrent calls for one owner share a single pass.
func (w *SyncWorker) SyncOwner(ctx context.Context, owner string) (bool, error) {
	v, err, _ := w.group.Do(owner, func() (any, error) {
		return w.syncOwner(ctx, owner)
	})
	if err != nil {
		return false, err
	}
	return v.(bool), nil
}

func (w *SyncWorker) syncOwner(ctx context.Context, owner string) (bool, error) {
	fields := log.NewFields().WithOwner(owner).WithOperation(log.OpSync)

	txs, err := w.transactions.List(ctx, owner)
	if err != nil {
		return false, fmt.Errorf("list transactions: %w", err)
	}

	current, err := w.mirror.ListTransactions(ctx, owner)
	if err != nil {
		// an unreadable mirror is rewritten
		w.logger.WarnContext(ctx, "Could not read mirror, rewriting",
			fields.WithError(err, log.ErrorTypeNetwork).ToSlice()...)
	} else if sheets.Equal(current, txs) {
		w.logger.DebugContext(ctx, "Mirror up to date", fields.ToSlice()...)
		return false, nil
	}

	if err := w.mirror.ReplaceTransactions(ctx, owner, txs); err != nil {
		w.logger.ErrorContext(ctx, "Failed to write mirror",
			fields.WithError(err, log.ErrorTypeNetwork).ToSlice()...)
		return false, fmt.Errorf("replace mirror: %w", err)
	}

	w.logger.InfoContext(ctx, "Mirror refreshed", append(fields.ToSlice(), log.FieldCount, len(txs))...)
	return true, nil
}

// SyncAll refreshes every tracked owner. It is the backup path for missed
// messages and keeps going when one owner fails.
func (w *SyncWorker) SyncAll(ctx context.Context) error {
	owners := w.Owners()
	if len(owners) == 0 {
		return nil
	}

	var (
		mu      sync.Mutex
		errs    []error
		written int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxParallelSyncs)
	for _, owner := range owners {
		g.Go(func() error {
			changed, err := w.SyncOwner(gctx, owner)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				errs = append(errs, fmt.Errorf("%s: %w", owner, err))
			} else if changed {
				written++
			}
			return nil
		})
	}
	_ = g.Wait()

	w.logger.InfoContext(ctx, "Sync pass completed",
		"owners", len(owners),
		"rewritten", written,
		"errors", len(errs))
	return errors.Join(errs...)
}
