package cache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInMemoryIdempotencyStore(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()
	ctx := context.Background()

	t.Run("first delivery wins", func(t *testing.T) {
		isNew, err := store.MarkProcessed(ctx, "msg_1", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)

		isNew, err = store.MarkProcessed(ctx, "msg_1", time.Hour)
		require.NoError(t, err)
		assert.False(t, isNew)

		processed, err := store.IsProcessed(ctx, "msg_1")
		require.NoError(t, err)
		assert.True(t, processed)
	})

	t.Run("forget allows redelivery", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "msg_2", time.Hour)
		require.NoError(t, err)
		require.NoError(t, store.Forget(ctx, "msg_2"))

		isNew, err := store.MarkProcessed(ctx, "msg_2", time.Hour)
		require.NoError(t, err)
		assert.True(t, isNew)
	})

	t.Run("expired marks are ignored and swept", func(t *testing.T) {
		_, err := store.MarkProcessed(ctx, "msg_3", 10*time.Millisecond)
		require.NoError(t, err)
		time.Sleep(20 * time.Millisecond)

		processed, err := store.IsProcessed(ctx, "msg_3")
		require.NoError(t, err)
		assert.False(t, processed)

		before := store.Size()
		store.cleanup()
		assert.Equal(t, before-1, store.Size())
	})
}

func TestInMemoryIdempotencyStore_ConcurrentDeliveries(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	const n = 50
	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			isNew, err := store.MarkProcessed(context.Background(), "msg_dup", time.Hour)
			if err == nil && isNew {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, winners)
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	assert.NoError(t, store.Close())
	assert.NoError(t, store.Close())
}
