package registry

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ZSmain/ordo/internal/store"
)

func TestGetOrCreate_SingleFlight(t *testing.T) {
	dir := t.TempDir()
	var opens atomic.Int32
	r := New(func(ctx context.Context, userID string) (*store.Store, error) {
		opens.Add(1)
		return DirOpener(dir)(ctx, userID)
	})
	t.Cleanup(func() { r.Close() })

	const callers = 16
	stores := make([]*store.Store, callers)
	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, err := r.GetOrCreate(context.Background(), "u1")
			require.NoError(t, err)
			stores[i] = s
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), opens.Load(), "concurrent callers must share one open")
	for _, s := range stores {
		assert.Same(t, stores[0], s)
	}
}

func TestGetOrCreate_DistinctUsersDistinctStores(t *testing.T) {
	r := New(DirOpener(t.TempDir()))
	t.Cleanup(func() { r.Close() })

	a, err := r.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	b, err := r.GetOrCreate(context.Background(), "u2")
	require.NoError(t, err)

	assert.NotSame(t, a, b)
	assert.Equal(t, "user-u1", a.StoreID())
	assert.Equal(t, "user-u2", b.StoreID())
}

func TestGetOrCreate_FailedOpenNotCached(t *testing.T) {
	dir := t.TempDir()
	var fail atomic.Bool
	fail.Store(true)
	r := New(func(ctx context.Context, userID string) (*store.Store, error) {
		if fail.Load() {
			return nil, fmt.Errorf("disk full")
		}
		return DirOpener(dir)(ctx, userID)
	})
	t.Cleanup(func() { r.Close() })

	_, err := r.GetOrCreate(context.Background(), "u1")
	require.Error(t, err)

	fail.Store(false)
	s, err := r.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)
	assert.NotNil(t, s)
}

func TestGetIfInitialized(t *testing.T) {
	r := New(DirOpener(t.TempDir()))
	t.Cleanup(func() { r.Close() })

	_, err := r.GetIfInitialized("u1")
	assert.True(t, IsNotInitialized(err), "err = %v", err)

	created, err := r.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)

	got, err := r.GetIfInitialized("u1")
	require.NoError(t, err)
	assert.Same(t, created, got)

	// Other users stay uninitialized.
	_, err = r.GetIfInitialized("u2")
	assert.True(t, IsNotInitialized(err))
}

func TestClose(t *testing.T) {
	r := New(DirOpener(t.TempDir()))
	_, err := r.GetOrCreate(context.Background(), "u1")
	require.NoError(t, err)

	require.NoError(t, r.Close())

	_, err = r.GetOrCreate(context.Background(), "u1")
	assert.Error(t, err)
}
