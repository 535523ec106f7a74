package engine

import (
	"time"

	"ctabacktest/pkg/types"
)

// DailyResult accumulates one calendar day's trades and, once the day is
// closed out, the day's P&L. It is created the first time a data point carries a new
// calendar date; ClosePrice is overwritten on every subsequent tick/bar of
// that date; the PnL fields are filled in once, during post-run
// aggregation, by CalculatePnl.
type DailyResult struct {
	Date       time.Time
	ClosePrice float64
	PreClose   float64

	Trades     []types.Trade
	TradeCount int

	StartPos float64
	EndPos   float64

	Turnover   float64
	Commission float64
	Slippage   float64

	TradingPnl float64
	HoldingPnl float64
	TotalPnl   float64
	NetPnl     float64
}

// newDailyResult creates the accumulator for a date, seeded with the
// position carried in from the prior day.
func newDailyResult(date time.Time, closePrice, startPos float64) *DailyResult {
	return &DailyResult{
		Date:       date,
		ClosePrice: closePrice,
		StartPos:   startPos,
		EndPos:     startPos,
	}
}

// addTrade appends a trade to the day's intraday ledger. PnL is not
// computed here; CalculatePnl does the whole day's math in one pass once
// the day is finalized.
func (d *DailyResult) addTrade(trade types.Trade) {
	d.Trades = append(d.Trades, trade)
	d.TradeCount++
}

// CalculatePnl computes the day's trading and holding PnL, including the
// inverse-contract reciprocal formulas and the pre_close==0 safeguard on day one.
func (d *DailyResult) CalculatePnl(preClose float64, size float64, rate float64, rateType types.RateType, slippage float64, inverse bool) {
	if preClose == 0 {
		preClose = 1.0
	}
	d.PreClose = preClose

	if inverse {
		d.HoldingPnl = d.StartPos * (1/preClose - 1/d.ClosePrice) * size
	} else {
		d.HoldingPnl = d.StartPos * (d.ClosePrice - preClose) * size
	}

	pos := d.StartPos
	for _, trade := range d.Trades {
		posChange := trade.Volume
		if trade.Direction == types.Short {
			posChange = -trade.Volume
		}
		pos += posChange

		var tradeTurnover float64
		if inverse {
			d.TradingPnl += posChange * (1/trade.Price - 1/d.ClosePrice) * size
			tradeTurnover = trade.Volume * size / trade.Price
		} else {
			d.TradingPnl += posChange * (d.ClosePrice - trade.Price) * size
			tradeTurnover = trade.Volume * size * trade.Price
		}
		d.Turnover += tradeTurnover

		if rateType == types.Fixed {
			d.Commission += trade.Volume * rate
		} else {
			d.Commission += tradeTurnover * rate
		}

		if inverse {
			d.Slippage += trade.Volume * size * slippage / (trade.Price * trade.Price)
		} else {
			d.Slippage += trade.Volume * size * slippage
		}
	}
	d.EndPos = pos

	d.TotalPnl = d.TradingPnl + d.HoldingPnl
	d.NetPnl = d.TotalPnl - d.Commission - d.Slippage
}
