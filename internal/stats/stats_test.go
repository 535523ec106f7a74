package stats

import (
	"testing"
	"time"

	"ctabacktest/internal/engine"
	"ctabacktest/pkg/types"
)

func dailyResult(date time.Time, close, startPos float64) *engine.DailyResult {
	return &engine.DailyResult{Date: date, ClosePrice: close, StartPos: startPos, EndPos: startPos}
}

// An empty daily ledger returns a zero-value Statistics carrying only
// Capital, matching vnpy's "no dataframe" branch — not an error.
func TestCalculateEmptyLedger(t *testing.T) {
	stat := Calculate(nil, nil, 100000, 1, 0, types.Fixed, 0)
	if stat.Capital != 100000 {
		t.Errorf("Capital = %v, want 100000", stat.Capital)
	}
	if stat.TotalDays != 0 {
		t.Errorf("TotalDays = %v, want 0", stat.TotalDays)
	}
}

// Balance accumulates net_pnl onto capital day by day, and drawdown tracks
// the running high-water mark.
func TestCalculateBalanceAndDrawdown(t *testing.T) {
	day1 := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)
	day3 := day1.AddDate(0, 0, 2)

	dr1 := dailyResult(day1, 100, 0)
	dr1.CalculatePnl(0, 1, 0, types.Fixed, 0, false)
	dr1.NetPnl = 100 // profitable day

	dr2 := dailyResult(day2, 100, 0)
	dr2.NetPnl = -50 // drawdown begins

	dr3 := dailyResult(day3, 100, 0)
	dr3.NetPnl = -30 // drawdown deepens

	stat := Calculate([]*engine.DailyResult{dr1, dr2, dr3}, nil, 1000, 1, 0, types.Fixed, 0)

	if stat.TotalDays != 3 {
		t.Fatalf("TotalDays = %d, want 3", stat.TotalDays)
	}
	if stat.Daily[0].Balance != 1100 {
		t.Errorf("day1 balance = %v, want 1100", stat.Daily[0].Balance)
	}
	if stat.Daily[1].Balance != 1050 {
		t.Errorf("day2 balance = %v, want 1050", stat.Daily[1].Balance)
	}
	if stat.Daily[2].Balance != 1020 {
		t.Errorf("day3 balance = %v, want 1020", stat.Daily[2].Balance)
	}
	if stat.Daily[2].HighLevel != 1100 {
		t.Errorf("day3 high_level = %v, want 1100", stat.Daily[2].HighLevel)
	}
	wantDrawdown := 1020.0 - 1100.0
	if stat.MaxDrawdown != wantDrawdown {
		t.Errorf("MaxDrawdown = %v, want %v", stat.MaxDrawdown, wantDrawdown)
	}
	if stat.EndBalance != 1020 {
		t.Errorf("EndBalance = %v, want 1020", stat.EndBalance)
	}
}

// Sharpe ratio is 0 when every day has the same return (zero variance),
// avoiding a division by zero.
func TestCalculateSharpeZeroVariance(t *testing.T) {
	day1 := time.Date(2019, 1, 1, 0, 0, 0, 0, time.UTC)
	day2 := day1.AddDate(0, 0, 1)

	dr1 := dailyResult(day1, 100, 0)
	dr1.NetPnl = 0
	dr2 := dailyResult(day2, 100, 0)
	dr2.NetPnl = 0

	stat := Calculate([]*engine.DailyResult{dr1, dr2}, nil, 1000, 1, 0, types.Fixed, 0)
	if stat.SharpeRatio != 0 {
		t.Errorf("SharpeRatio = %v, want 0", stat.SharpeRatio)
	}
}
