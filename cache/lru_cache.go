// Copyright (C) 2019-2025, Lux Industries Inc All rights reserved.
// See the file LICENSE for licensing terms.

package cache

import (
	"fmt"
	"sync"

	"github.com/luxfi/geth/common/lru"
	"golang.org/x/sync/singleflight"
)

// LRUCache is a fetch-through cache for immutable data, such as the signer
// recovered from a given authorization. Concurrent misses on the same key
// share a single fetch.
type LRUCache[K comparable, V any] struct {
	cache *lru.Cache[K, V]
	lock  sync.RWMutex
	group singleflight.Group
}

func NewLRUCache[K comparable, V any](size int) *LRUCache[K, V] {
	return &LRUCache[K, V]{
		cache: lru.NewCache[K, V](size),
	}
}

// Get returns the cached value of key, fetching it with fetchFunc on a miss.
// If invalidate is true, the value is cleared from the cache prior to
// fetching. Failed fetches are not cached.
func (c *LRUCache[K, V]) Get(key K, fetchFunc func(K) (V, error), invalidate bool) (V, error) {
	if invalidate {
		c.lock.Lock()
		c.cache.Remove(key)
		c.lock.Unlock()
	} else {
		c.lock.RLock()
		if value, found := c.cache.Get(key); found {
			c.lock.RUnlock()
			return value, nil
		}
		c.lock.RUnlock()
	}

	v, err, _ := c.group.Do(fmt.Sprint(key), func() (interface{}, error) {
		newValue, err := fetchFunc(key)
		if err != nil {
			return nil, err
		}
		c.lock.Lock()
		c.cache.Add(key, newValue)
		c.lock.Unlock()
		return newValue, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

// Len returns the number of cached entries
func (c *LRUCache[K, V]) Len() int {
	c.lock.RLock()
	defer c.lock.RUnlock()
	return c.cache.Len()
}
