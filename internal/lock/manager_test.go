package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	appErr "github.com/merchantkit/storesync/internal/pkg/errors"
)

func TestAcquire_SecondCallReturnsBusy(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	lease, err := m.Acquire(ctx, "tenant-1", "sync")
	require.NoError(t, err)
	require.NotNil(t, lease)

	_, err = m.Acquire(ctx, "tenant-1", "sync")
	require.ErrorIs(t, err, appErr.ErrBusy)

	// A different operation on the same resource is independent.
	other, err := m.Acquire(ctx, "tenant-1", "reindex")
	require.NoError(t, err)
	m.Release(ctx, other)

	m.Release(ctx, lease)
	_, err = m.Acquire(ctx, "tenant-1", "sync")
	require.NoError(t, err)
}

func TestAcquire_ConcurrentContendersGetOneLease(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	const contenders = 50
	var granted atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < contenders; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := m.Acquire(ctx, "tenant-1", "sync"); err == nil {
				granted.Add(1)
			}
		}()
	}
	wg.Wait()
	require.Equal(t, int32(1), granted.Load())
	require.Len(t, m.Holders(), 1)
}

func TestForceReleaseAll_RevokesAndIsIdempotent(t *testing.T) {
	m := NewManager()
	ctx := context.Background()

	lease, err := m.Acquire(ctx, "tenant-1", "sync")
	require.NoError(t, err)
	require.True(t, lease.Valid())

	require.Equal(t, 1, m.ForceReleaseAll(ctx, "tenant-1"))
	require.False(t, lease.Valid())
	require.Equal(t, 0, m.ForceReleaseAll(ctx, "tenant-1"))

	// The stale lease must not free a newly granted one.
	fresh, err := m.Acquire(ctx, "tenant-1", "sync")
	require.NoError(t, err)
	m.Release(ctx, lease)
	_, err = m.Acquire(ctx, "tenant-1", "sync")
	require.ErrorIs(t, err, appErr.ErrBusy)
	m.Release(ctx, fresh)
}

func TestRelease_NilLeaseIsNoop(t *testing.T) {
	m := NewManager()
	m.Release(context.Background(), nil)
	require.Empty(t, m.Holders())
}
