// Package engine implements the deterministic backtesting core: the replay
// loop, the matching engine (matching.go), the daily
// accumulator (daily.go), and the strategy-facing API surface.
// A single BacktestingEngine runs strictly single-threaded; it owns the
// limit book, stop book, trade ledger, and daily ledger for the duration of
// one run.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime/debug"
	"sort"
	"time"

	"ctabacktest/internal/config"
	"ctabacktest/internal/historical"
	"ctabacktest/internal/strategy"
	"ctabacktest/pkg/types"
)

// BacktestError reports that a strategy callback aborted a run.
// Phase is "warmup" or "run"; Stack is the goroutine stack captured at the
// panic, which is also logged at Error level. No partial Result is
// published alongside this error.
type BacktestError struct {
	Phase string
	Cause any
	Stack []byte
}

func (e *BacktestError) Error() string {
	return fmt.Sprintf("strategy fault during %s: %v", e.Phase, e.Cause)
}

// Result is the output of a completed run: the daily ledger (in date
// order) and the full trade/order history, ready for internal/stats.
type Result struct {
	DailyResults []*DailyResult
	Trades       []types.Trade
	LimitOrders  []*types.LimitOrder
	StopOrders   []*types.StopOrder
}

// BacktestingEngine replays a chronological history through a strategy,
// crossing its orders against synthetic fills and accumulating daily P&L.
type BacktestingEngine struct {
	cfg    config.EngineConfig
	logger *slog.Logger

	strategy          strategy.Strategy
	secondBarStrategy strategy.SecondBarStrategy // set iff strategy implements it

	bars  []types.Bar
	ticks []types.Tick

	datetime time.Time

	inited  bool
	trading bool

	warmupDays   int
	warmupBarCB  func(types.Bar)
	warmupTickCB func(types.Tick)

	limitOrderCount     int64
	limitOrders         map[types.OrderID]*types.LimitOrder
	activeLimitOrderIDs []types.OrderID
	allLimitOrders      []*types.LimitOrder

	stopOrderCount     int64
	stopOrders         map[types.StopOrderID]*types.StopOrder
	activeStopOrderIDs []types.StopOrderID
	allStopOrders      []*types.StopOrder

	tradeCount int64
	trades     []types.Trade

	dailyResults map[time.Time]*DailyResult
	dailyDates   []time.Time
}

// New constructs an engine for one backtest run.
func New(cfg config.EngineConfig, logger *slog.Logger) *BacktestingEngine {
	if logger == nil {
		logger = slog.Default()
	}
	e := &BacktestingEngine{cfg: cfg, logger: logger.With("component", "engine")}
	e.ClearData()
	return e
}

// ClearData resets all run-owned state so the engine instance can be
// reused for another run. An aborted run's engine must not be
// reused for further runs without a call to ClearData first.
func (e *BacktestingEngine) ClearData() {
	e.bars = nil
	e.ticks = nil
	e.inited = false
	e.trading = false
	e.limitOrderCount = 0
	e.limitOrders = make(map[types.OrderID]*types.LimitOrder)
	e.activeLimitOrderIDs = nil
	e.allLimitOrders = nil
	e.stopOrderCount = 0
	e.stopOrders = make(map[types.StopOrderID]*types.StopOrder)
	e.activeStopOrderIDs = nil
	e.allStopOrders = nil
	e.tradeCount = 0
	e.trades = nil
	e.dailyResults = make(map[time.Time]*DailyResult)
	e.dailyDates = nil
}

// SetStrategy attaches the strategy instance this run will drive. If the
// strategy also implements strategy.SecondBarStrategy and its
// SecondBarWindow() is greater than zero, the engine invokes OnSecondBar
// after OnBar for every bar.
func (e *BacktestingEngine) SetStrategy(s strategy.Strategy) {
	e.strategy = s
	if sb, ok := s.(strategy.SecondBarStrategy); ok && sb.SecondBarWindow() > 0 {
		e.secondBarStrategy = sb
	}
}

// LoadHistory pulls the full [start, end] window from the provider in
// 30-day chunks and stores it for
// replay. Call once before Run.
func (e *BacktestingEngine) LoadHistory(ctx context.Context, provider historical.Provider) error {
	symbol, exchange := splitVtSymbol(e.cfg.VtSymbol)

	switch e.cfg.Mode {
	case types.TickMode:
		ticks, err := historical.LoadTicksChunked(ctx, provider, symbol, exchange, e.cfg.Start, e.cfg.End)
		if err != nil {
			return fmt.Errorf("load ticks: %w", err)
		}
		e.ticks = ticks
	default:
		bars, err := historical.LoadBarsChunked(ctx, provider, symbol, exchange, e.cfg.Interval, e.cfg.Start, e.cfg.End)
		if err != nil {
			return fmt.Errorf("load bars: %w", err)
		}
		e.bars = bars
	}
	return nil
}

func splitVtSymbol(vtSymbol string) (symbol, exchange string) {
	for i := len(vtSymbol) - 1; i >= 0; i-- {
		if vtSymbol[i] == '.' {
			return vtSymbol[:i], vtSymbol[i+1:]
		}
	}
	return vtSymbol, ""
}

// Run executes the warm-up then run phases and returns the
// accumulated daily results and trade ledger. Any strategy panic aborts the
// run and is returned as a *BacktestError; no partial Result is returned.
func (e *BacktestingEngine) Run() (res Result, err error) {
	defer func() {
		if r := recover(); r != nil {
			phase := "warmup"
			if e.trading {
				phase = "run"
			}
			stack := debug.Stack()
			e.logger.Error("strategy fault aborted run", "phase", phase, "panic", r, "stack", string(stack))
			err = &BacktestError{Phase: phase, Cause: r, Stack: stack}
			res = Result{}
		}
	}()

	if e.strategy == nil {
		return Result{}, fmt.Errorf("no strategy attached")
	}
	e.strategy.OnInit()

	switch e.cfg.Mode {
	case types.TickMode:
		e.runTicks()
	default:
		e.runBars()
	}
	e.strategy.OnStop()

	e.finalizeDailyResults()

	dailyResults := make([]*DailyResult, 0, len(e.dailyDates))
	for _, d := range e.dailyDates {
		dailyResults = append(dailyResults, e.dailyResults[d])
	}

	return Result{
		DailyResults: dailyResults,
		Trades:       append([]types.Trade(nil), e.trades...),
		LimitOrders:  append([]*types.LimitOrder(nil), e.allLimitOrders...),
		StopOrders:   append([]*types.StopOrder(nil), e.allStopOrders...),
	}, nil
}

func (e *BacktestingEngine) runBars() {
	seenDays := map[time.Time]struct{}{}

	for _, bar := range e.bars {
		e.datetime = bar.Datetime

		if !e.trading {
			seenDays[dateOnly(bar.Datetime)] = struct{}{}
			if len(seenDays) > e.warmupDays {
				e.trading = true
				e.inited = true
				e.strategy.OnStart()
			} else {
				if e.warmupBarCB != nil {
					e.warmupBarCB(bar)
				}
				continue
			}
		}

		cp := barCrossPrices(bar)
		e.crossLimitOrders(cp)
		e.crossStopOrders(cp)

		e.strategy.OnBar(bar)
		if e.secondBarStrategy != nil {
			e.secondBarStrategy.OnSecondBar(bar)
		}

		e.updateDailyClose(bar.Datetime, bar.Close)
	}
}

func (e *BacktestingEngine) runTicks() {
	seenDays := map[time.Time]struct{}{}

	for _, tick := range e.ticks {
		e.datetime = tick.Datetime

		if !e.trading {
			seenDays[dateOnly(tick.Datetime)] = struct{}{}
			if len(seenDays) > e.warmupDays {
				e.trading = true
				e.inited = true
				e.strategy.OnStart()
			} else {
				if e.warmupTickCB != nil {
					e.warmupTickCB(tick)
				}
				continue
			}
		}

		cp := tickCrossPrices(tick)
		e.crossLimitOrders(cp)
		e.crossStopOrders(cp)

		e.strategy.OnTick(tick)

		e.updateDailyClose(tick.Datetime, tick.LastPrice)
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// updateDailyClose creates the day's accumulator on first sight and
// overwrites ClosePrice on every subsequent datum of that date.
func (e *BacktestingEngine) updateDailyClose(datetime time.Time, closePrice float64) {
	day := dateOnly(datetime)
	dr, ok := e.dailyResults[day]
	if !ok {
		dr = newDailyResult(day, closePrice, e.currentPos())
		e.dailyResults[day] = dr
		e.dailyDates = append(e.dailyDates, day)
	}
	dr.ClosePrice = closePrice
}

// currentPos derives the strategy's running position from the base
// template when available, falling back to 0 for strategies that track
// position entirely on their own.
func (e *BacktestingEngine) currentPos() float64 {
	type posHolder interface{ GetVariables() map[string]any }
	if ph, ok := e.strategy.(posHolder); ok {
		if v, ok := ph.GetVariables()["pos"].(float64); ok {
			return v
		}
	}
	return 0
}

// recordTradeOnDay appends a fill to the day it occurred on, creating the
// day's accumulator if this is the first datum seen for that date.
func (e *BacktestingEngine) recordTradeOnDay(trade types.Trade) {
	day := dateOnly(trade.Datetime)
	dr, ok := e.dailyResults[day]
	if !ok {
		dr = newDailyResult(day, trade.Price, e.currentPos())
		e.dailyResults[day] = dr
		e.dailyDates = append(e.dailyDates, day)
	}
	dr.addTrade(trade)
}

// finalizeDailyResults walks the daily ledger in date order, carrying
// pre_close/start_pos forward from the previous day, and calls
// CalculatePnl on each.
func (e *BacktestingEngine) finalizeDailyResults() {
	sort.Slice(e.dailyDates, func(i, j int) bool { return e.dailyDates[i].Before(e.dailyDates[j]) })

	var preClose, prevEndPos float64
	for i, day := range e.dailyDates {
		dr := e.dailyResults[day]
		if i > 0 {
			dr.StartPos = prevEndPos
		}
		dr.CalculatePnl(preClose, e.cfg.Size, e.cfg.Rate, e.cfg.RateType, e.cfg.Slippage, e.cfg.Inverse)
		preClose = dr.ClosePrice
		prevEndPos = dr.EndPos
	}
}

// ————————————————————————————————————————————————————————————————————————
// Matching-engine helpers used by matching.go
// ————————————————————————————————————————————————————————————————————————

func (e *BacktestingEngine) notifyOrder(order types.LimitOrder) {
	e.strategy.OnOrder(order)
}

func (e *BacktestingEngine) notifyStopOrder(order types.StopOrder) {
	e.strategy.OnStopOrder(order)
}

func (e *BacktestingEngine) removeActiveLimitOrder(id types.OrderID) {
	for i, oid := range e.activeLimitOrderIDs {
		if oid == id {
			e.activeLimitOrderIDs = append(e.activeLimitOrderIDs[:i], e.activeLimitOrderIDs[i+1:]...)
			return
		}
	}
}

func (e *BacktestingEngine) removeActiveStopOrder(id types.StopOrderID) {
	for i, sid := range e.activeStopOrderIDs {
		if sid == id {
			e.activeStopOrderIDs = append(e.activeStopOrderIDs[:i], e.activeStopOrderIDs[i+1:]...)
			return
		}
	}
}

func (e *BacktestingEngine) emitTrade(order types.LimitOrder, fillPrice float64) {
	e.tradeCount++
	trade := types.Trade{
		TradeID:   types.TradeID(e.tradeCount),
		OrderID:   order.OrderID,
		Symbol:    order.Symbol,
		Exchange:  order.Exchange,
		Direction: order.Direction,
		Offset:    order.Offset,
		Price:     fillPrice,
		Volume:    order.Volume,
		Datetime:  e.datetime,
	}
	e.trades = append(e.trades, trade)
	e.recordTradeOnDay(trade)
	e.strategy.OnTrade(trade)
}

// ————————————————————————————————————————————————————————————————————————
// strategy.EngineAPI implementation
// ————————————————————————————————————————————————————————————————————————

// roundTo snaps value to the nearest multiple of tick.
func roundTo(value, tick float64) float64 {
	if tick == 0 {
		return value
	}
	return math.Round(value/tick) * tick
}

func symbolOf(vtSymbol string) string   { s, _ := splitVtSymbol(vtSymbol); return s }
func exchangeOf(vtSymbol string) string { _, ex := splitVtSymbol(vtSymbol); return ex }

func (e *BacktestingEngine) send(direction types.Direction, offset types.Offset, price, volume float64, stop, lock bool) []types.OrderID {
	if !e.trading {
		return nil
	}
	price = roundTo(price, e.cfg.Pricetick)

	if stop {
		e.stopOrderCount++
		id := types.StopOrderID(e.stopOrderCount)
		so := &types.StopOrder{
			StopOrderID: id,
			Symbol:      symbolOf(e.cfg.VtSymbol),
			Exchange:    exchangeOf(e.cfg.VtSymbol),
			Direction:   direction,
			Offset:      offset,
			Price:       price,
			Volume:      volume,
			Status:      types.Waiting,
			Datetime:    e.datetime,
		}
		e.stopOrders[id] = so
		e.activeStopOrderIDs = append(e.activeStopOrderIDs, id)
		e.allStopOrders = append(e.allStopOrders, so)
		return nil
	}

	e.limitOrderCount++
	id := types.OrderID(e.limitOrderCount)
	lo := &types.LimitOrder{
		OrderID:   id,
		Symbol:    symbolOf(e.cfg.VtSymbol),
		Exchange:  exchangeOf(e.cfg.VtSymbol),
		Direction: direction,
		Offset:    offset,
		Price:     price,
		Volume:    volume,
		Status:    types.Submitting,
		Datetime:  e.datetime,
	}
	e.limitOrders[id] = lo
	e.activeLimitOrderIDs = append(e.activeLimitOrderIDs, id)
	e.allLimitOrders = append(e.allLimitOrders, lo)
	return []types.OrderID{id}
}

// Buy opens a long position: (Long, Open).
func (e *BacktestingEngine) Buy(price, volume float64, stop, lock bool) []types.OrderID {
	return e.send(types.Long, types.OffsetOpen, price, volume, stop, lock)
}

// Sell closes a long position: (Short, Close).
func (e *BacktestingEngine) Sell(price, volume float64, stop, lock bool) []types.OrderID {
	return e.send(types.Short, types.OffsetClose, price, volume, stop, lock)
}

// Short opens a short position: (Short, Open).
func (e *BacktestingEngine) Short(price, volume float64, stop, lock bool) []types.OrderID {
	return e.send(types.Short, types.OffsetOpen, price, volume, stop, lock)
}

// Cover closes a short position: (Long, Close).
func (e *BacktestingEngine) Cover(price, volume float64, stop, lock bool) []types.OrderID {
	return e.send(types.Long, types.OffsetClose, price, volume, stop, lock)
}

// CancelOrder dispatches on the "STOP." prefix to tell a stop order from a
// limit order. Cancelling a non-active id is a no-op.
func (e *BacktestingEngine) CancelOrder(id string) {
	if len(id) >= 5 && id[:5] == "STOP." {
		var seq int64
		if _, err := fmt.Sscanf(id, "STOP.%d", &seq); err != nil {
			return
		}
		e.cancelStopOrder(types.StopOrderID(seq))
		return
	}

	var seq int64
	if _, err := fmt.Sscanf(id, "%d", &seq); err != nil {
		return
	}
	e.cancelLimitOrder(types.OrderID(seq))
}

func (e *BacktestingEngine) cancelLimitOrder(id types.OrderID) {
	order, ok := e.limitOrders[id]
	if !ok || !order.Status.Active() {
		return
	}
	order.Status = types.Cancelled
	e.removeActiveLimitOrder(id)
	e.notifyOrder(*order)
}

func (e *BacktestingEngine) cancelStopOrder(id types.StopOrderID) {
	order, ok := e.stopOrders[id]
	if !ok || order.Status != types.Waiting {
		return
	}
	order.Status = types.StopCancelled
	e.removeActiveStopOrder(id)
	e.notifyStopOrder(*order)
}

// CancelAll cancels every active limit and stop order.
func (e *BacktestingEngine) CancelAll() {
	for _, id := range append([]types.OrderID(nil), e.activeLimitOrderIDs...) {
		e.cancelLimitOrder(id)
	}
	for _, id := range append([]types.StopOrderID(nil), e.activeStopOrderIDs...) {
		e.cancelStopOrder(id)
	}
}

// LoadBar records the warm-up horizon and callback.
func (e *BacktestingEngine) LoadBar(days int, interval types.Interval, callback func(types.Bar)) {
	e.warmupDays = days
	e.warmupBarCB = callback
}

// LoadTick records the warm-up horizon and callback for tick mode.
func (e *BacktestingEngine) LoadTick(days int, callback func(types.Tick)) {
	e.warmupDays = days
	e.warmupTickCB = callback
}

// GetEngineType always reports Backtesting from within this core.
func (e *BacktestingEngine) GetEngineType() types.EngineType { return types.Backtesting }

// GetPricetick returns the instrument's minimum price increment.
func (e *BacktestingEngine) GetPricetick() float64 { return e.cfg.Pricetick }

// GetSize returns the contract multiplier.
func (e *BacktestingEngine) GetSize() float64 { return e.cfg.Size }

// GetRate returns the one-way commission rate or fixed per-lot fee,
// depending on GetRateType.
func (e *BacktestingEngine) GetRate() float64 { return e.cfg.Rate }

// GetRateType reports whether GetRate is a fixed per-lot fee or a
// proportional rate.
func (e *BacktestingEngine) GetRateType() types.RateType { return e.cfg.RateType }

// GetSlippage returns the one-way slippage in price points.
func (e *BacktestingEngine) GetSlippage() float64 { return e.cfg.Slippage }

// WriteLog logs a strategy-originated message.
func (e *BacktestingEngine) WriteLog(msg string) {
	e.logger.Info(msg, "datetime", e.datetime)
}

// SendEmail is a no-op inside the backtesting core.
func (e *BacktestingEngine) SendEmail(msg string) {}

// SyncData is a no-op inside the backtesting core.
func (e *BacktestingEngine) SyncData() {}

// PutEvent is a no-op inside the backtesting core.
func (e *BacktestingEngine) PutEvent() {}
