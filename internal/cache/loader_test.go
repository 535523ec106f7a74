package cache

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"ctabacktest/pkg/types"
)

type countingProvider struct {
	loads atomic.Int64
	bars  []types.Bar
}

func (p *countingProvider) LoadBars(_ context.Context, _, _ string, _ types.Interval, _, _ time.Time) ([]types.Bar, error) {
	p.loads.Add(1)
	return p.bars, nil
}

func (p *countingProvider) LoadTicks(_ context.Context, _, _ string, _, _ time.Time) ([]types.Tick, error) {
	p.loads.Add(1)
	return nil, nil
}

// A second load for the same window is a cache hit: the underlying
// provider is not called again, and the returned bars are equal to what
// the first (uncached) load produced.
func TestLoaderCacheHitReturnsEqualResult(t *testing.T) {
	provider := &countingProvider{bars: []types.Bar{{Close: 100}, {Close: 101}}}
	cached := NewLoaderCache(provider)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	first, err := cached.LoadBars(context.Background(), "BTC", "BINANCE", types.IntervalMinute, start, end)
	if err != nil {
		t.Fatalf("LoadBars (miss): %v", err)
	}
	second, err := cached.LoadBars(context.Background(), "BTC", "BINANCE", types.IntervalMinute, start, end)
	if err != nil {
		t.Fatalf("LoadBars (hit): %v", err)
	}

	if provider.loads.Load() != 1 {
		t.Errorf("provider.loads = %d, want 1 (second call should be a cache hit)", provider.loads.Load())
	}
	if len(first) != len(second) {
		t.Fatalf("len mismatch: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("bar %d differs: %+v vs %+v", i, first[i], second[i])
		}
	}
}

// Mutating a slice returned from the cache must not corrupt what's stored,
// since the cache hands out clones.
func TestLoaderCacheReturnsIndependentSlices(t *testing.T) {
	provider := &countingProvider{bars: []types.Bar{{Close: 100}}}
	cached := NewLoaderCache(provider)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	first, _ := cached.LoadBars(context.Background(), "BTC", "BINANCE", types.IntervalMinute, start, end)
	first[0].Close = 999

	second, _ := cached.LoadBars(context.Background(), "BTC", "BINANCE", types.IntervalMinute, start, end)
	if second[0].Close != 100 {
		t.Errorf("cached entry mutated: Close = %v, want 100", second[0].Close)
	}
}

// Clearing the cache must not change what subsequent loads return, only
// whether the provider is hit again (cache transparency).
func TestLoaderCacheClearIsTransparent(t *testing.T) {
	provider := &countingProvider{bars: []types.Bar{{Close: 42}}}
	cached := NewLoaderCache(provider)

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	before, _ := cached.LoadBars(context.Background(), "BTC", "BINANCE", types.IntervalMinute, start, end)
	cached.Clear()
	after, _ := cached.LoadBars(context.Background(), "BTC", "BINANCE", types.IntervalMinute, start, end)

	if len(before) != len(after) || before[0] != after[0] {
		t.Errorf("result changed after Clear: %+v vs %+v", before, after)
	}
	if provider.loads.Load() != 2 {
		t.Errorf("provider.loads = %d, want 2 (one before clear, one after)", provider.loads.Load())
	}
}
