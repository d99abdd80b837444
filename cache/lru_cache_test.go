// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLRUCache(t *testing.T) {
	tests := []struct {
		name          string
		key           string
		invalidate    bool
		expectedValue int
		expectedCount int
	}{
		{
			name:          "fresh cache, fetch",
			key:           "test1",
			expectedValue: 42,
			expectedCount: 1,
		},
		{
			name:          "use cache, no fetch",
			key:           "test1",
			expectedValue: 42,
			expectedCount: 1, // Same count as previous
		},
		{
			name:          "invalidate=true, fetch again",
			key:           "test1",
			invalidate:    true,
			expectedValue: 42,
			expectedCount: 2,
		},
		{
			name:          "different key, fetch",
			key:           "test2",
			expectedValue: 42,
			expectedCount: 3,
		},
	}

	cache := NewLRUCache[string, int](10) // Size 10
	fetchCount := 0
	fetchFunc := func(string) (int, error) {
		fetchCount++
		return 42, nil
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require := require.New(t)

			val, err := cache.Get(tt.key, fetchFunc, tt.invalidate)
			require.NoError(err)
			require.Equal(tt.expectedValue, val)
			require.Equal(tt.expectedCount, fetchCount)
		})
	}
}

func TestLRUCacheEviction(t *testing.T) {
	require := require.New(t)

	cache := NewLRUCache[int, int](2)
	fetches := 0
	fetch := func(k int) (int, error) {
		fetches++
		return k * 10, nil
	}

	for _, k := range []int{1, 2, 3} {
		v, err := cache.Get(k, fetch, false)
		require.NoError(err)
		require.Equal(k*10, v)
	}
	require.Equal(2, cache.Len())

	// 1 was evicted
	_, err := cache.Get(1, fetch, false)
	require.NoError(err)
	require.Equal(4, fetches)
}

func TestLRUCacheFetchError(t *testing.T) {
	require := require.New(t)

	cache := NewLRUCache[string, int](2)
	errFetch := errors.New("fetch failed")
	_, err := cache.Get("k", func(string) (int, error) { return 0, errFetch }, false)
	require.ErrorIs(err, errFetch)
	require.Zero(cache.Len())
}

func TestLRUCacheConcurrent(t *testing.T) {
	cache := NewLRUCache[string, int](2)

	var fetches atomic.Int32
	fetch := func(string) (int, error) {
		fetches.Add(1)
		return 7, nil
	}

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := cache.Get("k", fetch, false)
			require.NoError(t, err)
			require.Equal(t, 7, v)
		}()
	}
	wg.Wait()

	require.Equal(t, 1, cache.Len())
	require.GreaterOrEqual(t, fetches.Load(), int32(1))

	n := fetches.Load()
	_, err := cache.Get("k", fetch, false)
	require.NoError(t, err)
	require.Equal(t, n, fetches.Load())
}
