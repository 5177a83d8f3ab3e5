package store

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"

	"smartspend/internal/cache"
	"smartspend/internal/identity"
	"smartspend/internal/log"
)

// Registry hands out one loaded Store per owner. Stores are kept in an LRU
// cache and disposed when they fall out of it.
type Registry struct {
	opts   Options
	stores *cache.LRUCache[*Store]
	group  singleflight.Group
	logger *log.Logger
}

// NewRegistry builds per-owner stores from opts. opts.Identity is ignored;
// each store is bound to its owner.
func NewRegistry(opts Options, size int, ttl time.Duration) *Registry {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}
	r := &Registry{opts: opts, logger: logger.WithComponent(log.ComponentStore)}
	r.stores = cache.NewLRUCache[*Store](size, ttl).OnEvict(func(owner string, s *Store) {
		s.Dispose()
		r.logger.Debug("Store evicted", log.FieldOwner, owner)
	})
	return r
}

// Cache exposes the underlying cache so it can be registered with a cache.Manager.
func (r *Registry) Cache() cache.Cleaner {
	return r.stores
}

// ForOwner returns the loaded store of owner, loading it on first use.
// Concurrent first calls for the same owner share one load.
func (r *Registry) ForOwner(ctx context.Context, owner string) (*Store, error) {
	if s, ok := r.stores.Get(owner); ok {
		return s, nil
	}
	v, err, _ := r.group.Do(owner, func() (any, error) {
		if s, ok := r.stores.Get(owner); ok {
			return s, nil
		}
		opts := r.opts
		opts.Identity = identity.Fixed(owner)
		s, err := New(opts)
		if err != nil {
			return nil, err
		}
		if err := s.Load(ctx); err != nil {
			return nil, fmt.Errorf("load store for %s: %w", owner, err)
		}
		r.stores.Set(owner, s)
		return s, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Store), nil
}

// Current resolves the owner with p and returns that owner's store.
func (r *Registry) Current(ctx context.Context, p identity.Provider) (*Store, error) {
	owner, err := p.Current(ctx)
	if err != nil {
		return nil, err
	}
	return r.ForOwner(ctx, owner)
}

// Evict drops the owner's store so the next call reloads it.
func (r *Registry) Evict(owner string) {
	r.stores.Delete(owner)
}

// Size is the number of stores currently loaded.
func (r *Registry) Size() int {
	return r.stores.Size()
}
