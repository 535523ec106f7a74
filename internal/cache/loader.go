package cache

import (
	"context"
	"fmt"
	"time"

	"ctabacktest/internal/historical"
	"ctabacktest/pkg/types"
)

// loaderCacheCapacity is the bounded LRU size for historical-data loads (~999 entries).
const loaderCacheCapacity = 999

// LoaderCache wraps a historical.Provider with a bounded LRU keyed on
// (symbol, exchange, interval, start, end), so repeated backtests over the
// same window within one process skip re-loading from the underlying
// provider. It implements historical.Provider itself, so it can be passed
// anywhere a Provider is expected without the caller knowing it's cached.
type LoaderCache struct {
	inner historical.Provider
	bars  *lru
	ticks *lru
}

// NewLoaderCache wraps p in a bounded LRU of loaderCacheCapacity entries.
func NewLoaderCache(p historical.Provider) *LoaderCache {
	return &LoaderCache{
		inner: p,
		bars:  newLRU(loaderCacheCapacity),
		ticks: newLRU(loaderCacheCapacity),
	}
}

type barCacheKey struct {
	symbol, exchange string
	interval         types.Interval
	start, end       int64
}

// LoadBars returns the cached result for this key if present, otherwise
// loads from the wrapped provider and caches the result. Concurrent calls
// for the same key are collapsed via singleflight so only one of them
// reaches the underlying provider.
func (c *LoaderCache) LoadBars(ctx context.Context, symbol, exchange string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	key := barCacheKey{symbol, exchange, interval, start.UnixNano(), end.UnixNano()}

	if cached, ok := c.bars.get(key); ok {
		return cloneBars(cached.([]types.Bar)), nil
	}

	sfKey := fmt.Sprintf("%v", key)
	result, err, _ := c.bars.group.Do(sfKey, func() (any, error) {
		bars, err := c.inner.LoadBars(ctx, symbol, exchange, interval, start, end)
		if err != nil {
			return nil, err
		}
		c.bars.put(key, bars)
		return bars, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneBars(result.([]types.Bar)), nil
}

type tickCacheKey struct {
	symbol, exchange string
	start, end       int64
}

// LoadTicks is the tick-mode analogue of LoadBars.
func (c *LoaderCache) LoadTicks(ctx context.Context, symbol, exchange string, start, end time.Time) ([]types.Tick, error) {
	key := tickCacheKey{symbol, exchange, start.UnixNano(), end.UnixNano()}

	if cached, ok := c.ticks.get(key); ok {
		return cloneTicks(cached.([]types.Tick)), nil
	}

	sfKey := fmt.Sprintf("%v", key)
	result, err, _ := c.ticks.group.Do(sfKey, func() (any, error) {
		ticks, err := c.inner.LoadTicks(ctx, symbol, exchange, start, end)
		if err != nil {
			return nil, err
		}
		c.ticks.put(key, ticks)
		return ticks, nil
	})
	if err != nil {
		return nil, err
	}
	return cloneTicks(result.([]types.Tick)), nil
}

// Len reports how many bar-window entries are currently cached (tests).
func (c *LoaderCache) Len() int { return c.bars.len() }

// Clear empties both caches. Used to verify cache transparency: results
// with an empty cache must equal results from a warm one.
func (c *LoaderCache) Clear() {
	c.bars.clear()
	c.ticks.clear()
}

// cloneBars/cloneTicks return a fresh slice so a caller mutating the
// returned slice's backing array can't corrupt what's cached.
func cloneBars(bars []types.Bar) []types.Bar {
	out := make([]types.Bar, len(bars))
	copy(out, bars)
	return out
}

func cloneTicks(ticks []types.Tick) []types.Tick {
	out := make([]types.Tick, len(ticks))
	copy(out, ticks)
	return out
}
