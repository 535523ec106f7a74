package examples

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"ctabacktest/internal/config"
	"ctabacktest/internal/engine"
	"ctabacktest/pkg/types"
)

func bar(close float64, t time.Time) types.Bar {
	return types.Bar{
		Symbol: "TEST", Exchange: "TEST", Interval: types.IntervalDaily,
		Datetime: t, Open: close, High: close, Low: close, Close: close,
	}
}

// fakeProvider serves a fixed, pre-built slice of bars regardless of the
// requested window, which is all DoubleMA's test needs.
type fakeProvider struct {
	bars []types.Bar
}

func (p *fakeProvider) LoadBars(_ context.Context, _, _ string, _ types.Interval, _, _ time.Time) ([]types.Bar, error) {
	return p.bars, nil
}

func (p *fakeProvider) LoadTicks(_ context.Context, _, _ string, _, _ time.Time) ([]types.Tick, error) {
	return nil, nil
}

func TestDoubleMAGoesLongOnGoldenCross(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	// Downtrend then sharp uptrend: fast average crosses above slow on the
	// 110 bar, and the next bar holds at 110 so the buy limit placed at that
	// close can fill.
	closes := []float64{100, 99, 98, 97, 96, 95, 110, 110, 130, 140}

	bars := make([]types.Bar, len(closes))
	for i, c := range closes {
		bars[i] = bar(c, base.AddDate(0, 0, i))
	}

	cfg := config.EngineConfig{
		VtSymbol: "TEST.TEST", Interval: types.IntervalDaily, Mode: types.BarMode,
		Start: base, End: base.AddDate(0, 0, len(closes)-1),
		Size: 1, Pricetick: 0.01, Capital: 100000, Rate: 0, Slippage: 0,
	}
	eng := engine.New(cfg, slog.New(slog.DiscardHandler))
	strat := NewDoubleMA(eng, 2, 4, 1)
	eng.SetStrategy(strat)

	if err := eng.LoadHistory(context.Background(), &fakeProvider{bars: bars}); err != nil {
		t.Fatalf("LoadHistory: %v", err)
	}

	result, err := eng.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if strat.Pos <= 0 {
		t.Errorf("Pos = %v, want > 0 after golden cross", strat.Pos)
	}
	if len(result.Trades) == 0 {
		t.Fatal("expected at least one trade")
	}
	if result.Trades[0].Direction != types.Long {
		t.Errorf("first trade direction = %v, want Long", result.Trades[0].Direction)
	}
}
