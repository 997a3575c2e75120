package repository

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"auth-service/internal/model"
)

func TestMemorySessionStoreLifecycle(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()

	_, err := store.Get(ctx, "u1")
	require.ErrorIs(t, err, model.ErrSessionNotFound)

	require.NoError(t, store.Put(ctx, "u1", "fp1"))

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "fp1", got)

	// Put overwrites unconditionally: a fresh login supersedes whatever
	// session was live before.
	require.NoError(t, store.Put(ctx, "u1", "fp2"))
	got, err = store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "fp2", got)

	require.NoError(t, store.Clear(ctx, "u1"))
	require.NoError(t, store.Clear(ctx, "u1"))
	_, err = store.Get(ctx, "u1")
	require.ErrorIs(t, err, model.ErrSessionNotFound)
}

func TestMemorySessionStoreSwap(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()

	// Swap on an absent entry never succeeds.
	ok, err := store.Swap(ctx, "u1", "fp1", "fp2")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, store.Put(ctx, "u1", "fp1"))

	ok, err = store.Swap(ctx, "u1", "wrong", "fp2")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = store.Swap(ctx, "u1", "fp1", "fp2")
	require.NoError(t, err)
	require.True(t, ok)

	got, err := store.Get(ctx, "u1")
	require.NoError(t, err)
	require.Equal(t, "fp2", got)

	// The old expected value is gone; replaying the swap fails.
	ok, err = store.Swap(ctx, "u1", "fp1", "fp3")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestMemorySessionStoreSwapSingleWinner(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()
	require.NoError(t, store.Put(ctx, "u1", "fp0"))

	const attempts = 32

	var wg sync.WaitGroup
	wins := make(chan bool, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.Swap(ctx, "u1", "fp0", "fp1")
			require.NoError(t, err)
			wins <- ok
		}()
	}
	wg.Wait()
	close(wins)

	var winners int
	for ok := range wins {
		if ok {
			winners++
		}
	}
	require.Equal(t, 1, winners)
}

func TestMemorySessionStoreIsolatesUsers(t *testing.T) {
	t.Parallel()

	store := NewMemorySessionStore()
	ctx := context.Background()

	require.NoError(t, store.Put(ctx, "a", "fpA"))
	require.NoError(t, store.Put(ctx, "b", "fpB"))

	require.NoError(t, store.Clear(ctx, "a"))

	got, err := store.Get(ctx, "b")
	require.NoError(t, err)
	require.Equal(t, "fpB", got)
}
