// Package examples holds reference strategies exercised by cmd/backtest and
// its tests. They are ordinary strategy.Strategy implementations, built the
// way vnpy's bundled CTA demo strategies (DoubleMaStrategy et al.) are: a
// handful of parameter fields, a running indicator state, and an OnBar that
// calls Buy/Sell/Short/Cover off crossovers.
package examples

import (
	"ctabacktest/internal/strategy"
	"ctabacktest/pkg/types"
)

// DoubleMA is a dual moving-average crossover: go long when the fast
// average crosses above the slow one, flip short on the opposite cross.
// Always flat-or-one-lot; never pyramids.
type DoubleMA struct {
	*strategy.BaseTemplate

	FastWindow int
	SlowWindow int
	FixedSize  float64

	closes        []float64
	lastFast      float64
	lastSlow      float64
	haveLastCross bool
}

// NewDoubleMA constructs a DoubleMA bound to engine, with FastWindow and
// SlowWindow as its tunable parameters (the pair the search driver sweeps).
func NewDoubleMA(engine strategy.EngineAPI, fastWindow, slowWindow int, fixedSize float64) *DoubleMA {
	s := &DoubleMA{
		FastWindow: fastWindow,
		SlowWindow: slowWindow,
		FixedSize:  fixedSize,
	}
	s.BaseTemplate = strategy.NewBaseTemplate(engine, "doublema", []string{"fast_window", "slow_window"}, nil)
	return s
}

func (s *DoubleMA) OnInit() {
	s.LoadBar(s.SlowWindow, types.IntervalDaily, func(bar types.Bar) {
		s.closes = append(s.closes, bar.Close)
	})
}

func (s *DoubleMA) OnStart() {
	s.Trading = true
}

func (s *DoubleMA) OnStop() {
	s.Trading = false
}

func (s *DoubleMA) OnBar(bar types.Bar) {
	s.closes = append(s.closes, bar.Close)
	if len(s.closes) > s.SlowWindow {
		s.closes = s.closes[len(s.closes)-s.SlowWindow:]
	}
	if len(s.closes) < s.SlowWindow {
		return
	}

	fast := sma(s.closes, s.FastWindow)
	slow := sma(s.closes, s.SlowWindow)

	if s.haveLastCross {
		crossedUp := s.lastFast <= s.lastSlow && fast > slow
		crossedDown := s.lastFast >= s.lastSlow && fast < slow

		switch {
		case crossedUp && s.Pos <= 0:
			if s.Pos < 0 {
				s.Cover(bar.Close, -s.Pos, false, false)
			}
			s.Buy(bar.Close, s.FixedSize, false, false)
		case crossedDown && s.Pos >= 0:
			if s.Pos > 0 {
				s.Sell(bar.Close, s.Pos, false, false)
			}
			s.Short(bar.Close, s.FixedSize, false, false)
		}
	}

	s.lastFast, s.lastSlow, s.haveLastCross = fast, slow, true
}

// sma averages the last window closes (the tail of closes, which the
// caller already trims to at most SlowWindow entries).
func sma(closes []float64, window int) float64 {
	if window <= 0 || window > len(closes) {
		window = len(closes)
	}
	tail := closes[len(closes)-window:]
	var sum float64
	for _, c := range tail {
		sum += c
	}
	return sum / float64(len(tail))
}
