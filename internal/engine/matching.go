package engine

import "ctabacktest/pkg/types"

// crossPrices carries the reference prices the matching engine needs for
// one incoming data point. bestLong and bestShort differ in tick mode
// (ask1/bid1) but collapse to the same bar.open in bar mode.
type crossPrices struct {
	limitLong  float64 // bar.low / tick.ask1
	limitShort float64 // bar.high / tick.bid1
	stopLong   float64 // bar.high / tick.last
	stopShort  float64 // bar.low / tick.last
	bestLong   float64 // bar.open / tick.ask1
	bestShort  float64 // bar.open / tick.bid1
}

func barCrossPrices(bar types.Bar) crossPrices {
	return crossPrices{
		limitLong:  bar.Low,
		limitShort: bar.High,
		stopLong:   bar.High,
		stopShort:  bar.Low,
		bestLong:   bar.Open,
		bestShort:  bar.Open,
	}
}

func tickCrossPrices(tick types.Tick) crossPrices {
	return crossPrices{
		limitLong:  tick.AskPrice1,
		limitShort: tick.BidPrice1,
		stopLong:   tick.LastPrice,
		stopShort:  tick.LastPrice,
		bestLong:   tick.AskPrice1,
		bestShort:  tick.BidPrice1,
	}
}

// crossLimitOrders runs the limit-order crossing pass.
// Iterates activeLimitOrderIDs in insertion order (testable property §A.8.2).
func (e *BacktestingEngine) crossLimitOrders(cp crossPrices) {
	for _, id := range append([]types.OrderID(nil), e.activeLimitOrderIDs...) {
		order, ok := e.limitOrders[id]
		if !ok {
			continue
		}

		if order.Status == types.Submitting {
			order.Status = types.NotTraded
			e.notifyOrder(*order)
		}

		longCross := order.Direction == types.Long && order.Price >= cp.limitLong && cp.limitLong > 0
		shortCross := order.Direction == types.Short && order.Price <= cp.limitShort && cp.limitShort > 0
		if !longCross && !shortCross {
			continue
		}

		order.Traded = order.Volume
		order.Status = types.AllTraded
		e.notifyOrder(*order)
		e.removeActiveLimitOrder(id)

		var fillPrice float64
		if order.Direction == types.Long {
			fillPrice = min(order.Price, cp.bestLong)
		} else {
			fillPrice = max(order.Price, cp.bestShort)
		}

		e.emitTrade(*order, fillPrice)
	}
}

// crossStopOrders runs the stop-order crossing pass, always
// after crossLimitOrders for the same data point.
func (e *BacktestingEngine) crossStopOrders(cp crossPrices) {
	for _, id := range append([]types.StopOrderID(nil), e.activeStopOrderIDs...) {
		stop, ok := e.stopOrders[id]
		if !ok {
			continue
		}

		longTrigger := stop.Direction == types.Long && stop.Price <= cp.stopLong
		shortTrigger := stop.Direction == types.Short && stop.Price >= cp.stopShort
		if !longTrigger && !shortTrigger {
			continue
		}

		var fillPrice float64
		if stop.Direction == types.Long {
			fillPrice = max(stop.Price, cp.bestLong)
		} else {
			fillPrice = min(stop.Price, cp.bestShort)
		}

		e.limitOrderCount++
		orderID := types.OrderID(e.limitOrderCount)
		synth := &types.LimitOrder{
			OrderID:     orderID,
			Symbol:      stop.Symbol,
			Exchange:    stop.Exchange,
			Direction:   stop.Direction,
			Offset:      stop.Offset,
			Price:       fillPrice,
			Volume:      stop.Volume,
			Traded:      stop.Volume,
			Status:      types.AllTraded,
			Datetime:    e.datetime,
			StopOrderID: stop.StopOrderID,
		}
		e.limitOrders[orderID] = synth
		e.allLimitOrders = append(e.allLimitOrders, synth)

		stop.Status = types.Triggered
		stop.TriggeredOrderIDs = append(stop.TriggeredOrderIDs, orderID)
		e.removeActiveStopOrder(id)

		e.emitTrade(*synth, fillPrice)
		e.notifyStopOrder(*stop)
	}
}
