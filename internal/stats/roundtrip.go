package stats

import (
	"time"

	"ctabacktest/pkg/types"
)

// RoundTrip is one complete position cycle: every trade between two points
// where the signed volume count returns to zero, grouped and summed
type RoundTrip struct {
	Number int

	Profit     float64
	Commission float64
	Slippage   float64
	FinalProfit float64

	CumsumProfit     float64
	CumsumCommission float64
	CumsumSlippage   float64
	CumsumFinal      float64
	FinalBalance     float64

	StartTime time.Time
	EndTime   time.Time
}

// ReconstructRoundTrips replays the trade ledger as a cash-flow profit
// view: each trade's raw profit is a signed cash flow taken from its
// Direction (Long pays out, Short receives; see cashFlow), and trades are
// grouped into round trips by the Offset-signed volume walk (Open adds,
// anything else subtracts) returning to zero. If the ledger ends with open trades that never close (a
// dangling position), their profit/commission/slippage are rewritten
// exactly once against lastClosePrice before grouping.
func ReconstructRoundTrips(trades []types.Trade, lastClosePrice, capital, size, rate float64, rateType types.RateType, slippage float64) []RoundTrip {
	if len(trades) == 0 {
		return nil
	}

	numbers := make([]int, len(trades))
	profits := make([]float64, len(trades))
	commissions := make([]float64, len(trades))
	slippages := make([]float64, len(trades))

	volumeCount := 0.0
	tradeNumber := 1
	for i, trade := range trades {
		numbers[i] = tradeNumber

		profits[i], commissions[i] = cashFlow(trade, size, rate, rateType)
		slippages[i] = size * slippage

		if trade.Offset == types.OffsetOpen {
			volumeCount += trade.Volume
		} else {
			volumeCount -= trade.Volume
		}
		if volumeCount == 0 {
			tradeNumber++
		}
	}

	// Tail rewrite: count trailing trades whose offset is Open with no
	// matching Close after them (the dangling position).
	danglingCount := 0
	for i := len(trades) - 1; i >= 0; i-- {
		if trades[i].Offset != types.OffsetOpen {
			break
		}
		danglingCount++
	}

	for i := len(trades) - danglingCount; i < len(trades); i++ {
		trade := trades[i]
		profits[i], commissions[i] = modifiedCashFlow(trade, lastClosePrice, size, rate, rateType)
		slippages[i] = 2 * size * slippage
	}

	return groupRoundTrips(trades, numbers, profits, commissions, slippages, capital)
}

// cashFlow is the regular per-trade cash-flow profit and commission
// (vnpy calculate_trade_result, non-tail branch): Long trades are a cash
// outflow (negative profit) at open, Short trades an inflow, regardless of
// the trade's own Offset — the round-trip view nets cash, not position P&L.
func cashFlow(trade types.Trade, size, rate float64, rateType types.RateType) (profit, commission float64) {
	sign := -1.0
	if trade.Direction == types.Short {
		sign = 1.0
	}
	profit = size * trade.Price * trade.Volume * sign

	if rateType == types.Fixed {
		commission = trade.Volume * rate
	} else {
		commission = size * trade.Price * trade.Volume * rate
	}
	return profit, commission
}

// modifiedCashFlow rewrites a dangling open trade's profit as if it were
// closed at lastClosePrice, and doubles its commission (paying both legs
// of the round trip it never actually completed).
func modifiedCashFlow(trade types.Trade, lastClosePrice, size, rate float64, rateType types.RateType) (profit, commission float64) {
	if trade.Direction == types.Long {
		profit = size * (lastClosePrice - trade.Price) * trade.Volume
	} else {
		profit = size * (trade.Price - lastClosePrice) * trade.Volume
	}

	if rateType == types.Fixed {
		commission = 2 * trade.Volume * rate
	} else {
		commission = size * (lastClosePrice + trade.Price) * trade.Volume * rate
	}
	return profit, commission
}

func groupRoundTrips(trades []types.Trade, numbers []int, profits, commissions, slippages []float64, capital float64) []RoundTrip {
	var trips []RoundTrip
	var cur *RoundTrip

	for i, trade := range trades {
		if cur == nil || cur.Number != numbers[i] {
			if cur != nil {
				trips = append(trips, *cur)
			}
			cur = &RoundTrip{Number: numbers[i], StartTime: trade.Datetime}
		}
		cur.Profit += profits[i]
		cur.Commission += commissions[i]
		cur.Slippage += slippages[i]
		cur.EndTime = trade.Datetime
	}
	if cur != nil {
		trips = append(trips, *cur)
	}

	var cumProfit, cumCommission, cumSlippage, cumFinal float64
	for i := range trips {
		trips[i].FinalProfit = trips[i].Profit - trips[i].Commission - trips[i].Slippage

		cumProfit += trips[i].Profit
		cumCommission += trips[i].Commission
		cumSlippage += trips[i].Slippage
		cumFinal += trips[i].FinalProfit

		trips[i].CumsumProfit = cumProfit
		trips[i].CumsumCommission = cumCommission
		trips[i].CumsumSlippage = cumSlippage
		trips[i].CumsumFinal = cumFinal
		trips[i].FinalBalance = cumFinal + capital
	}

	return trips
}
