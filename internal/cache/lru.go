// Package cache provides bounded memoization for the two hot paths the
// search driver and repeated backtests share: historical-data loading
// (~999-entry LRU) and GA parameter-tuple evaluation
// (~10^6-entry LRU). Both wrap a `sync.Mutex`-guarded map with oldest-
// insertion-order eviction, grounded on
// `stadam23-Eve-flipper/internal/esi/order_cache.go`'s cache shape, plus a
// `singleflight.Group` to collapse concurrent duplicate calls for the same
// key — the Go analogue of Python's single-threaded `@lru_cache`, needed
// here because grid/GA search workers can legitimately request the same
// window or parameter tuple from separate goroutines at once.
//
// A cache hit must return a result equal to what a miss would have
// produced; neither cache alters the
// value it stores, it only avoids recomputing it.
package cache

import (
	"container/list"
	"sync"

	"golang.org/x/sync/singleflight"
)

// lru is a fixed-capacity, insertion-order-evicting cache of comparable
// keys to arbitrary values. Not exported: callers get it through the
// typed wrappers below (LoaderCache, EvalCache) so the key type stays
// concrete at each call site.
type lru struct {
	mu       sync.Mutex
	capacity int
	order    *list.List // front = oldest
	elems    map[any]*list.Element
	group    singleflight.Group
}

type lruEntry struct {
	key   any
	value any
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = 1
	}
	return &lru{
		capacity: capacity,
		order:    list.New(),
		elems:    make(map[any]*list.Element, capacity),
	}
}

func (c *lru) get(key any) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.elems[key]
	if !ok {
		return nil, false
	}
	return elem.Value.(*lruEntry).value, true
}

func (c *lru) put(key, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.elems[key]; ok {
		elem.Value.(*lruEntry).value = value
		return
	}

	if c.order.Len() >= c.capacity {
		oldest := c.order.Front()
		if oldest != nil {
			c.order.Remove(oldest)
			delete(c.elems, oldest.Value.(*lruEntry).key)
		}
	}

	elem := c.order.PushBack(&lruEntry{key: key, value: value})
	c.elems[key] = elem
}

func (c *lru) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lru) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.elems = make(map[any]*list.Element, c.capacity)
}
