package ratelimit_test

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hello2himel/urochithi/internal/ratelimit"
)

func TestMemoryStore_UpdateCreatesAndMutates(t *testing.T) {
	store := ratelimit.NewMemoryStore()

	store.Update("1.2.3.4", func(rec ratelimit.Record, ok bool) (ratelimit.Record, bool) {
		require.False(t, ok)
		rec.AttemptCount = 1
		return rec, true
	})
	store.Update("1.2.3.4", func(rec ratelimit.Record, ok bool) (ratelimit.Record, bool) {
		require.True(t, ok)
		rec.AttemptCount++
		return rec, true
	})

	rec, ok := store.Get("1.2.3.4")
	require.True(t, ok)
	assert.Equal(t, 2, rec.AttemptCount)
	assert.Equal(t, 1, store.Len())
}

func TestMemoryStore_UpdateKeepFalseDeletes(t *testing.T) {
	store := ratelimit.NewMemoryStore()

	store.Update("1.2.3.4", func(rec ratelimit.Record, _ bool) (ratelimit.Record, bool) {
		rec.AttemptCount = 1
		return rec, true
	})
	store.Update("1.2.3.4", func(rec ratelimit.Record, _ bool) (ratelimit.Record, bool) {
		return rec, false
	})

	_, ok := store.Get("1.2.3.4")
	assert.False(t, ok)
	assert.Zero(t, store.Len())
}

func TestMemoryStore_ConcurrentUpdatesAreNotLost(t *testing.T) {
	store := ratelimit.NewMemoryStore()

	const goroutines = 50
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			store.Update("shared", func(rec ratelimit.Record, _ bool) (ratelimit.Record, bool) {
				rec.AttemptCount++
				return rec, true
			})
		}()
	}
	wg.Wait()

	rec, ok := store.Get("shared")
	require.True(t, ok)
	assert.Equal(t, goroutines, rec.AttemptCount)
}

func TestMemoryStore_EvictSpansAllShards(t *testing.T) {
	store := ratelimit.NewMemoryStore()

	stale := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 100; i++ {
		identity := fmt.Sprintf("10.0.0.%d", i)
		old := i%2 == 0
		store.Update(identity, func(rec ratelimit.Record, _ bool) (ratelimit.Record, bool) {
			if old {
				rec.LastAttempt = stale
			} else {
				rec.LastAttempt = stale.Add(time.Hour)
			}
			return rec, true
		})
	}

	evicted := store.Evict(func(_ string, rec ratelimit.Record) bool {
		return rec.LastAttempt.Equal(stale)
	})

	assert.Equal(t, 50, evicted)
	assert.Equal(t, 50, store.Len())
}
