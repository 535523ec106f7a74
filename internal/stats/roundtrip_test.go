package stats

import (
	"testing"
	"time"

	"ctabacktest/pkg/types"
)

// Dangling position rewrite. Two open trades (volume 5 each, never
// closed) at price 100; the run ends with close=110. The tail rewrite
// replaces their profit with size*(last_close-price)*volume per trade
// and doubles both commission and slippage.
func TestDanglingPositionRewrite(t *testing.T) {
	day := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []types.Trade{
		{Direction: types.Long, Offset: types.OffsetOpen, Price: 100, Volume: 5, Datetime: day},
		{Direction: types.Long, Offset: types.OffsetOpen, Price: 100, Volume: 5, Datetime: day},
	}

	trips := ReconstructRoundTrips(trades, 110, 100000, 1, 0.001, types.Fixed, 0.5)
	if len(trips) != 1 {
		t.Fatalf("len(trips) = %d, want 1", len(trips))
	}
	rt := trips[0]

	wantProfit := 1*(110-100)*5.0 + 1*(110-100)*5.0
	if rt.Profit != wantProfit {
		t.Errorf("Profit = %v, want %v", rt.Profit, wantProfit)
	}

	wantCommission := 2*5*0.001 + 2*5*0.001
	if rt.Commission != wantCommission {
		t.Errorf("Commission = %v, want %v", rt.Commission, wantCommission)
	}

	wantSlippage := 2*1*0.5 + 2*1*0.5
	if rt.Slippage != wantSlippage {
		t.Errorf("Slippage = %v, want %v", rt.Slippage, wantSlippage)
	}
}

// A fully closed round trip (open then close, volume nets to zero) is
// grouped as one trip and does not trigger the tail rewrite.
func TestRoundTripClosedPositionNoRewrite(t *testing.T) {
	day := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []types.Trade{
		{Direction: types.Long, Offset: types.OffsetOpen, Price: 100, Volume: 1, Datetime: day},
		{Direction: types.Short, Offset: types.OffsetClose, Price: 105, Volume: 1, Datetime: day.Add(time.Hour)},
	}

	trips := ReconstructRoundTrips(trades, 999, 100000, 1, 0, types.Fixed, 0)
	if len(trips) != 1 {
		t.Fatalf("len(trips) = %d, want 1", len(trips))
	}
	// Cash-flow view: open is an outflow (-100), close is an inflow (+105).
	want := -100.0 + 105.0
	if trips[0].Profit != want {
		t.Errorf("Profit = %v, want %v", trips[0].Profit, want)
	}
}

// Two independent round trips (flat in between) are grouped and numbered
// separately, with cumulative columns accumulating across both.
func TestRoundTripGroupingAndCumulativeColumns(t *testing.T) {
	day := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	trades := []types.Trade{
		{Direction: types.Long, Offset: types.OffsetOpen, Price: 100, Volume: 1, Datetime: day},
		{Direction: types.Short, Offset: types.OffsetClose, Price: 110, Volume: 1, Datetime: day},
		{Direction: types.Long, Offset: types.OffsetOpen, Price: 50, Volume: 1, Datetime: day},
		{Direction: types.Short, Offset: types.OffsetClose, Price: 40, Volume: 1, Datetime: day},
	}

	trips := ReconstructRoundTrips(trades, 999, 1000, 1, 0, types.Fixed, 0)
	if len(trips) != 2 {
		t.Fatalf("len(trips) = %d, want 2", len(trips))
	}
	if trips[0].Number != 1 || trips[1].Number != 2 {
		t.Fatalf("trade numbers = %d, %d, want 1, 2", trips[0].Number, trips[1].Number)
	}

	wantFinal0 := trips[0].Profit
	wantFinal1 := trips[0].Profit + trips[1].Profit
	if trips[0].CumsumFinal != wantFinal0 {
		t.Errorf("trip0 CumsumFinal = %v, want %v", trips[0].CumsumFinal, wantFinal0)
	}
	if trips[1].CumsumFinal != wantFinal1 {
		t.Errorf("trip1 CumsumFinal = %v, want %v", trips[1].CumsumFinal, wantFinal1)
	}
	if trips[1].FinalBalance != 1000+wantFinal1 {
		t.Errorf("trip1 FinalBalance = %v, want %v", trips[1].FinalBalance, 1000+wantFinal1)
	}
}
