// Package stats turns a completed backtest's daily ledger and trade ledger
// into the performance report a strategy developer actually reads:
// balance/drawdown/Sharpe time series and round-trip trade
// reconstruction including the dangling-open-position tail rewrite.
// Grounded on vnpy's
// `backtesting.py calculate_statistics`/`calculate_trade_result`.
package stats

import (
	"math"
	"time"

	"ctabacktest/internal/engine"
	"ctabacktest/pkg/types"
)

// annualizationDays is vnpy's trading-days-per-year constant used to
// annualize daily return and Sharpe (240, not 252 — kept as-is per the
// original).
const annualizationDays = 240.0

// DailyPoint is one day of the balance/return/drawdown time series.
type DailyPoint struct {
	Date       time.Time
	NetPnl     float64
	Balance    float64
	Return     float64
	HighLevel  float64
	Drawdown   float64
	DDPercent  float64
}

// Statistics is the full performance report for one completed run.
type Statistics struct {
	StartDate time.Time
	EndDate   time.Time

	TotalDays  int
	ProfitDays int
	LossDays   int

	Capital              float64
	EndBalance           float64
	MaxDrawdown          float64
	MaxDDPercent         float64
	MaxDrawdownDuration  int // days

	TotalNetPnl     float64
	DailyNetPnl     float64
	TotalCommission float64
	DailyCommission float64
	TotalSlippage   float64
	DailySlippage   float64
	TotalTurnover   float64
	DailyTurnover   float64
	TotalTradeCount int
	DailyTradeCount float64

	TotalReturn          float64
	AnnualReturn         float64
	DailyReturn          float64
	ReturnStd            float64
	SharpeRatio          float64
	ReturnDrawdownRatio  float64

	Daily []DailyPoint

	RoundTrips      []RoundTrip
	TotalTrades     int
	MaxProfit       float64
	MaxLoss         float64
	ProfitTimes     int
	LossTimes       int
	RateOfWin       float64
	TotalProfit     float64
	TotalLoss       float64
	ProfitLossRatio float64
	TradeProfit     float64
	TradeCommission float64
	TradeSlippage   float64
	FinalProfit     float64
	FinalBalance    float64
}

// Calculate builds the full Statistics report from a run's daily ledger and
// trade ledger. An empty daily ledger (no trading days) returns a
// zero-value Statistics with Capital set, matching vnpy's "no dataframe"
// branch.
func Calculate(dailyResults []*engine.DailyResult, trades []types.Trade, capital, size, rate float64, rateType types.RateType, slippage float64) Statistics {
	stat := Statistics{Capital: capital}
	if len(dailyResults) == 0 {
		return stat
	}

	daily := make([]DailyPoint, len(dailyResults))
	balance := capital
	highLevel := capital
	for i, dr := range dailyResults {
		balance += dr.NetPnl
		if balance > highLevel {
			highLevel = balance
		}
		drawdown := balance - highLevel
		ddPercent := 0.0
		if highLevel != 0 {
			ddPercent = drawdown / highLevel * 100
		}

		ret := 0.0
		if i > 0 && daily[i-1].Balance > 0 && balance > 0 {
			ret = math.Log(balance / daily[i-1].Balance)
		}

		daily[i] = DailyPoint{
			Date:      dr.Date,
			NetPnl:    dr.NetPnl,
			Balance:   balance,
			Return:    ret,
			HighLevel: highLevel,
			Drawdown:  drawdown,
			DDPercent: ddPercent,
		}
	}
	stat.Daily = daily

	stat.StartDate = daily[0].Date
	stat.EndDate = daily[len(daily)-1].Date
	stat.TotalDays = len(daily)

	maxDrawdown, maxDDPercent := 0.0, 0.0
	maxDrawdownEndIdx := -1
	for i, d := range daily {
		if d.NetPnl > 0 {
			stat.ProfitDays++
		} else if d.NetPnl < 0 {
			stat.LossDays++
		}
		stat.TotalNetPnl += d.NetPnl
		if d.Drawdown < maxDrawdown {
			maxDrawdown = d.Drawdown
			maxDrawdownEndIdx = i
		}
		if d.DDPercent < maxDDPercent {
			maxDDPercent = d.DDPercent
		}
	}
	stat.MaxDrawdown = maxDrawdown
	stat.MaxDDPercent = maxDDPercent

	if maxDrawdownEndIdx >= 0 {
		maxBalance := daily[0].Balance
		startIdx := 0
		for i := 0; i <= maxDrawdownEndIdx; i++ {
			if daily[i].Balance > maxBalance {
				maxBalance = daily[i].Balance
				startIdx = i
			}
		}
		stat.MaxDrawdownDuration = int(daily[maxDrawdownEndIdx].Date.Sub(daily[startIdx].Date).Hours() / 24)
	}

	for _, dr := range dailyResults {
		stat.TotalCommission += dr.Commission
		stat.TotalSlippage += dr.Slippage
		stat.TotalTurnover += dr.Turnover
		stat.TotalTradeCount += dr.TradeCount
	}

	stat.EndBalance = daily[len(daily)-1].Balance
	n := float64(stat.TotalDays)
	stat.DailyNetPnl = stat.TotalNetPnl / n
	stat.DailyCommission = stat.TotalCommission / n
	stat.DailySlippage = stat.TotalSlippage / n
	stat.DailyTurnover = stat.TotalTurnover / n
	stat.DailyTradeCount = float64(stat.TotalTradeCount) / n

	stat.TotalReturn = (stat.EndBalance/capital - 1) * 100
	stat.AnnualReturn = stat.TotalReturn / n * annualizationDays

	returns := make([]float64, len(daily))
	for i, d := range daily {
		returns[i] = d.Return
	}
	meanReturn, stdReturn := meanStd(returns)
	stat.DailyReturn = meanReturn * 100
	stat.ReturnStd = stdReturn * 100

	if stat.ReturnStd != 0 {
		stat.SharpeRatio = stat.DailyReturn / stat.ReturnStd * math.Sqrt(annualizationDays)
	}
	if stat.MaxDDPercent != 0 {
		stat.ReturnDrawdownRatio = -stat.TotalReturn / stat.MaxDDPercent
	}

	lastClose := dailyResults[len(dailyResults)-1].ClosePrice
	roundTrips := ReconstructRoundTrips(trades, lastClose, capital, size, rate, rateType, slippage)
	stat.RoundTrips = roundTrips
	applyRoundTripSummary(&stat, roundTrips)

	return stat
}

func meanStd(xs []float64) (mean, std float64) {
	if len(xs) == 0 {
		return 0, 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	mean = sum / float64(len(xs))

	if len(xs) < 2 {
		return mean, 0
	}
	var sqSum float64
	for _, x := range xs {
		d := x - mean
		sqSum += d * d
	}
	// sample standard deviation (ddof=1), matching pandas' default .std().
	std = math.Sqrt(sqSum / float64(len(xs)-1))
	return mean, std
}

func applyRoundTripSummary(stat *Statistics, trips []RoundTrip) {
	if len(trips) == 0 {
		return
	}
	stat.TotalTrades = len(trips)
	stat.MaxProfit = trips[0].FinalProfit
	stat.MaxLoss = trips[0].FinalProfit

	for _, rt := range trips {
		if rt.FinalProfit > stat.MaxProfit {
			stat.MaxProfit = rt.FinalProfit
		}
		if rt.FinalProfit < stat.MaxLoss {
			stat.MaxLoss = rt.FinalProfit
		}
		if rt.FinalProfit >= 0 {
			stat.ProfitTimes++
			stat.TotalProfit += rt.FinalProfit
		} else {
			stat.LossTimes++
			stat.TotalLoss += rt.FinalProfit
		}
	}

	if stat.ProfitTimes+stat.LossTimes > 0 {
		stat.RateOfWin = float64(stat.ProfitTimes) / float64(stat.ProfitTimes+stat.LossTimes) * 100
	}
	if stat.ProfitTimes > 0 && stat.LossTimes > 0 {
		avgProfit := stat.TotalProfit / float64(stat.ProfitTimes)
		avgLoss := stat.TotalLoss / float64(stat.LossTimes)
		stat.ProfitLossRatio = avgProfit / math.Abs(avgLoss)
	}

	last := trips[len(trips)-1]
	stat.TradeProfit = last.CumsumProfit
	stat.TradeCommission = last.CumsumCommission
	stat.TradeSlippage = last.CumsumSlippage
	stat.FinalProfit = last.CumsumFinal
	stat.FinalBalance = last.FinalBalance
}
