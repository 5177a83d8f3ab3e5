package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"smartspend/internal/core"
	"smartspend/internal/identity"
	"smartspend/internal/storage/memory"
)

func TestRegistrySharesStorePerOwner(t *testing.T) {
	r := NewRegistry(Options{Backend: memory.New()}, 10, time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	got := make([]*Store, 8)
	for i := range got {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := r.ForOwner(ctx, "alice")
			assert.NoError(t, err)
			got[i] = s
		}()
	}
	wg.Wait()
	for _, s := range got {
		assert.Same(t, got[0], s)
	}
	assert.Equal(t, 1, r.Size())
}

func TestRegistryIsolatesOwners(t *testing.T) {
	r := NewRegistry(Options{Backend: memory.New()}, 10, time.Hour)
	ctx := context.Background()

	alice, err := r.ForOwner(ctx, "alice")
	require.NoError(t, err)
	_, err = alice.AddTransaction(ctx, groceries(10))
	require.NoError(t, err)

	bob, err := r.Current(identity.WithOwner(ctx, "bob"), identity.ContextProvider{})
	require.NoError(t, err)
	assert.Empty(t, bob.Transactions())

	_, err = r.Current(ctx, identity.ContextProvider{})
	assert.ErrorIs(t, err, core.ErrAuthRequired)
}

func TestRegistryEvictDisposesAndReloads(t *testing.T) {
	r := NewRegistry(Options{Backend: memory.New()}, 1, time.Hour)
	ctx := context.Background()

	first, err := r.ForOwner(ctx, "alice")
	require.NoError(t, err)
	_, err = first.AddTransaction(ctx, groceries(10))
	require.NoError(t, err)

	_, err = r.ForOwner(ctx, "bob") // capacity 1 pushes alice out
	require.NoError(t, err)
	assert.Equal(t, StateDisposed, first.State(EntityTransaction))

	again, err := r.ForOwner(ctx, "alice")
	require.NoError(t, err)
	assert.NotSame(t, first, again)
	assert.Len(t, again.Transactions(), 1, "reloaded from the backend")

	r.Evict("alice")
	assert.Equal(t, StateDisposed, again.State(EntityTransaction))
}
