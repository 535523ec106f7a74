package cache

import (
	"context"
	"fmt"
	"sort"

	"ctabacktest/internal/search"
)

// evalCacheCapacity is the bounded LRU size for GA evaluation memoization (~10^6 entries).
const evalCacheCapacity = 1_000_000

// EvalCache memoizes an search.Evaluator over its Setting argument, so a
// genetic search that re-samples the same parameter tuple across
// generations (crossover/mutation frequently reproduces a parent
// unchanged) pays for one backtest instead of many.
type EvalCache struct {
	inner search.Evaluator
	cache *lru
}

// NewEvalCache wraps eval in a bounded LRU of evalCacheCapacity entries.
func NewEvalCache(eval search.Evaluator) *EvalCache {
	return &EvalCache{inner: eval, cache: newLRU(evalCacheCapacity)}
}

type evalResult struct {
	target float64
	err    error
}

// Evaluator returns a search.Evaluator backed by this cache, suitable for
// passing straight into search.GridSearch or search.GASearch.
func (c *EvalCache) Evaluator() search.Evaluator {
	return func(ctx context.Context, setting search.Setting) (float64, error) {
		key := settingKey(setting)

		if cached, ok := c.cache.get(key); ok {
			r := cached.(evalResult)
			return r.target, r.err
		}

		result, err, _ := c.cache.group.Do(key, func() (any, error) {
			target, err := c.inner(ctx, setting)
			r := evalResult{target: target, err: err}
			c.cache.put(key, r)
			return r, nil
		})
		if err != nil {
			return 0, err
		}
		r := result.(evalResult)
		return r.target, r.err
	}
}

// Len reports how many parameter tuples are currently cached (tests).
func (c *EvalCache) Len() int { return c.cache.len() }

// Clear empties the cache. Used to verify cache transparency.
func (c *EvalCache) Clear() { c.cache.clear() }

// settingKey builds a deterministic string key for a Setting regardless of
// Go's randomized map iteration order.
func settingKey(s search.Setting) string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)

	key := ""
	for _, name := range names {
		key += fmt.Sprintf("%s=%v;", name, s[name])
	}
	return key
}
