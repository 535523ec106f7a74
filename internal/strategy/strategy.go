// Package strategy defines the contract between the backtesting engine and
// user-supplied trading strategies.
//
// A Strategy never reaches into the engine's owned collections (limit book,
// stop book, trade ledger, daily ledger); it only calls back through the
// EngineAPI it is constructed with, and the engine only calls forward through
// the Strategy callbacks below. This package does not import the engine
// package (the engine imports this one), so there is no import cycle:
// engine.BacktestingEngine implements EngineAPI, and concrete strategies
// implement Strategy by embedding BaseTemplate.
package strategy

import "ctabacktest/pkg/types"

// EngineAPI is everything a strategy may call on the engine. It is the Go
// rendering of vnpy's CtaEngine surface used by CtaTemplate.
type EngineAPI interface {
	// Buy/Sell/Short/Cover submit a LimitOrder and return its assigned ids.
	// With stop=true they queue a StopOrder instead and return no id; the
	// stop order's id is not reported to the caller. An empty slice is
	// returned if trading is false.
	Buy(price, volume float64, stop, lock bool) []types.OrderID
	Sell(price, volume float64, stop, lock bool) []types.OrderID
	Short(price, volume float64, stop, lock bool) []types.OrderID
	Cover(price, volume float64, stop, lock bool) []types.OrderID

	CancelOrder(id string)
	CancelAll()

	// LoadBar/LoadTick record the warm-up horizon and callback; in a
	// backtest the warm-up data is simply the head of the already-loaded
	// history.
	LoadBar(days int, interval types.Interval, callback func(types.Bar))
	LoadTick(days int, callback func(types.Tick))

	GetEngineType() types.EngineType
	GetPricetick() float64
	WriteLog(msg string)
	SendEmail(msg string)
	SyncData()
	PutEvent()

	// GetSize/GetRate/GetRateType/GetSlippage expose the contract
	// parameters CtaTemplate's per-trade bookkeeping needs to turn a fill
	// into commission/slippage/pnl, mirroring CtaTemplate copying
	// size/rate/rate_type/slippage off cta_engine on init.
	GetSize() float64
	GetRate() float64
	GetRateType() types.RateType
	GetSlippage() float64
}

// Strategy is the full callback set the engine invokes on a strategy
// instance during a run.
type Strategy interface {
	OnInit()
	OnStart()
	OnStop()
	OnBar(bar types.Bar)
	OnTick(tick types.Tick)
	OnTrade(trade types.Trade)
	OnOrder(order types.LimitOrder)
	OnStopOrder(order types.StopOrder)
}

// SecondBarStrategy is an optional capability: a strategy that declares a
// sub-minute aggregation window receives OnSecondBar in addition to OnBar.
// The engine invokes it only when a strategy value satisfies this interface
// and SecondBarWindow() is greater than zero; activation is opt-in rather
// than an ambient flag.
type SecondBarStrategy interface {
	Strategy
	SecondBarWindow() int // seconds; 0 disables
	OnSecondBar(bar types.Bar)
}
