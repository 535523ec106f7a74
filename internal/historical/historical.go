// Package historical provides the engine's one external collaborator: a
// source of already-materialized, chronologically sorted Bars or Ticks.
//
// The core never imports a concrete provider; it depends only on the
// Provider interface below. Two reference implementations are supplied here
// for tests and the cmd/backtest demo: CSVProvider (flat-file, no network)
// and RestProvider (HTTP, for a real market-data service).
package historical

import (
	"context"
	"time"

	"ctabacktest/pkg/types"
)

// Provider loads bars or ticks for a symbol/exchange over a window.
// Returned sequences are sorted by Datetime, inclusive of endpoints, and
// may be empty.
type Provider interface {
	LoadBars(ctx context.Context, symbol, exchange string, interval types.Interval, start, end time.Time) ([]types.Bar, error)
	LoadTicks(ctx context.Context, symbol, exchange string, start, end time.Time) ([]types.Tick, error)
}

// intervalStep is the chunk-advance tick used by the loaded-in-chunks
// contract: {Minute:1m, Hour:1h, Daily:1d, Weekly:1w}.
func intervalStep(interval types.Interval) time.Duration {
	switch interval {
	case types.IntervalMinute:
		return time.Minute
	case types.IntervalHour:
		return time.Hour
	case types.IntervalWeekly:
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}

const chunkWindow = 30 * 24 * time.Hour

// LoadBarsChunked loads history in 30-day windows, advancing
// start ← end + interval_tick between windows, and concatenates the
// windows in order. The provider
// is responsible for de-duplication at window boundaries; this loop only
// enforces the window advance and concatenation order.
func LoadBarsChunked(ctx context.Context, p Provider, symbol, exchange string, interval types.Interval, start, end time.Time) ([]types.Bar, error) {
	var out []types.Bar
	step := intervalStep(interval)

	for cursor := start; !cursor.After(end); {
		windowEnd := cursor.Add(chunkWindow)
		if windowEnd.After(end) {
			windowEnd = end
		}

		bars, err := p.LoadBars(ctx, symbol, exchange, interval, cursor, windowEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, bars...)

		if !windowEnd.Before(end) {
			break
		}
		cursor = windowEnd.Add(step)
	}

	return out, nil
}

// LoadTicksChunked is the tick-mode analogue of LoadBarsChunked.
func LoadTicksChunked(ctx context.Context, p Provider, symbol, exchange string, start, end time.Time) ([]types.Tick, error) {
	var out []types.Tick
	step := intervalStep(types.IntervalMinute)

	for cursor := start; !cursor.After(end); {
		windowEnd := cursor.Add(chunkWindow)
		if windowEnd.After(end) {
			windowEnd = end
		}

		ticks, err := p.LoadTicks(ctx, symbol, exchange, cursor, windowEnd)
		if err != nil {
			return nil, err
		}
		out = append(out, ticks...)

		if !windowEnd.Before(end) {
			break
		}
		cursor = windowEnd.Add(step)
	}

	return out, nil
}
