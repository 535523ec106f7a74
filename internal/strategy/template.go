package strategy

import "ctabacktest/pkg/types"

// BaseTemplate implements Strategy with sane defaults and the order-entry
// helper methods every concrete strategy delegates to. It is grounded on
// vnpy's CtaTemplate: embed it, override the callbacks you need, and call
// Buy/Sell/Short/Cover from OnBar/OnTick.
//
// Beyond the engine-facing contract, BaseTemplate also carries the
// per-trade bookkeeping fields the original CtaTemplate tracks for display
// purposes (track_highest/track_lowest, running trade statistics), updated
// by OnTrade below. They have no engine-side invariants; they exist purely
// so a strategy author doesn't have to reimplement common running stats by
// hand.
type BaseTemplate struct {
	Engine EngineAPI

	Author     string
	Parameters []string
	Variables  []string

	Inited  bool
	Trading bool
	Pos     float64

	// RecordStartSwitch gates whether OnTrade updates the bookkeeping
	// fields below; a strategy flips it on once it considers itself
	// warmed up enough for the running statistics to be meaningful.
	RecordStartSwitch bool

	TrackHighest float64
	TrackLowest  float64

	TradeNumber     int
	TradeNetVolume  float64
	OpenCostPrice   float64
	TradePnl        float64
	TradeCommission float64
	TradeSlippage   float64
	NetPnl          float64

	TradePnlList        []float64
	TradeCommissionList []float64
	TradeSlippageList   []float64
	NetPnlList          []float64
}

// NewBaseTemplate constructs a BaseTemplate bound to the given engine.
func NewBaseTemplate(engine EngineAPI, author string, parameters, variables []string) *BaseTemplate {
	return &BaseTemplate{
		Engine:     engine,
		Author:     author,
		Parameters: parameters,
		Variables:  append([]string{"inited", "trading", "pos"}, variables...),
	}
}

func (t *BaseTemplate) OnInit()                           {}
func (t *BaseTemplate) OnStart()                          {}
func (t *BaseTemplate) OnStop()                           {}
func (t *BaseTemplate) OnBar(bar types.Bar)                {}
func (t *BaseTemplate) OnTick(tick types.Tick)             {}
func (t *BaseTemplate) OnOrder(order types.LimitOrder)     {}
func (t *BaseTemplate) OnStopOrder(order types.StopOrder)  {}

// OnTrade updates Pos, the running track-highest/lowest since entry, and,
// when RecordStartSwitch is set, the per-trade commission/slippage/pnl
// bookkeeping supplemented from the original CtaTemplate. TradeNetVolume
// tracks open lots regardless of direction; the four *List fields and
// TradeNumber only grow once a round trip closes it back to zero.
func (t *BaseTemplate) OnTrade(trade types.Trade) {
	if trade.Direction == types.Long {
		t.Pos += trade.Volume
	} else {
		t.Pos -= trade.Volume
	}

	if t.Pos == 0 {
		t.TrackHighest = 0
		t.TrackLowest = 0
	} else {
		if t.TrackHighest == 0 || trade.Price > t.TrackHighest {
			t.TrackHighest = trade.Price
		}
		if t.TrackLowest == 0 || trade.Price < t.TrackLowest {
			t.TrackLowest = trade.Price
		}
	}

	if !t.RecordStartSwitch {
		return
	}

	size := t.Engine.GetSize()
	rate := t.Engine.GetRate()
	rateType := t.Engine.GetRateType()
	slippage := t.Engine.GetSlippage()

	if trade.Offset == types.OffsetOpen {
		t.TradeNetVolume += trade.Volume
		t.OpenCostPrice = (trade.Price*trade.Volume + t.OpenCostPrice*(t.TradeNetVolume-trade.Volume)) / t.TradeNetVolume

		if rateType == types.Fixed {
			t.TradeCommission += trade.Volume * rate
		} else {
			t.TradeCommission += trade.Price * trade.Volume * size * rate
		}
		t.TradeSlippage += trade.Volume * size * slippage
	} else {
		t.TradeNetVolume -= trade.Volume
		if trade.Direction == types.Long {
			t.TradePnl += (t.OpenCostPrice - trade.Price) * trade.Volume * size
		} else {
			t.TradePnl += (trade.Price - t.OpenCostPrice) * trade.Volume * size
		}

		if rateType == types.Fixed {
			t.TradeCommission += trade.Volume * rate
		} else {
			t.TradeCommission += trade.Price * trade.Volume * size * rate
		}
		t.TradeSlippage += trade.Volume * size * slippage

		t.NetPnl += t.TradePnl - t.TradeCommission - t.TradeSlippage
	}

	if t.TradeNetVolume == 0 {
		t.TradeNumber++
		t.TradePnlList = append(t.TradePnlList, t.TradePnl)
		t.TradeCommissionList = append(t.TradeCommissionList, t.TradeCommission)
		t.TradeSlippageList = append(t.TradeSlippageList, t.TradeSlippage)
		t.NetPnlList = append(t.NetPnlList, t.NetPnl)

		t.OpenCostPrice = 0
		t.TradePnl = 0
		t.TradeCommission = 0
		t.TradeSlippage = 0
		t.NetPnl = 0
	}
}

// Buy opens a long position: (Long, Open).
func (t *BaseTemplate) Buy(price, volume float64, stop, lock bool) []types.OrderID {
	return t.Engine.Buy(price, volume, stop, lock)
}

// Sell closes a long position: (Short, Close).
func (t *BaseTemplate) Sell(price, volume float64, stop, lock bool) []types.OrderID {
	return t.Engine.Sell(price, volume, stop, lock)
}

// Short opens a short position: (Short, Open).
func (t *BaseTemplate) Short(price, volume float64, stop, lock bool) []types.OrderID {
	return t.Engine.Short(price, volume, stop, lock)
}

// Cover closes a short position: (Long, Close).
func (t *BaseTemplate) Cover(price, volume float64, stop, lock bool) []types.OrderID {
	return t.Engine.Cover(price, volume, stop, lock)
}

// CancelOrder cancels a single resting order (limit or, via "STOP." prefix, stop).
func (t *BaseTemplate) CancelOrder(id string) {
	if !t.Trading {
		return
	}
	t.Engine.CancelOrder(id)
}

// CancelAll cancels every resting order the strategy currently owns.
func (t *BaseTemplate) CancelAll() {
	if !t.Trading {
		return
	}
	t.Engine.CancelAll()
}

// LoadBar records a warm-up horizon in calendar days and the bar callback.
func (t *BaseTemplate) LoadBar(days int, interval types.Interval, callback func(types.Bar)) {
	t.Engine.LoadBar(days, interval, callback)
}

// LoadTick records a warm-up horizon in calendar days and the tick callback.
func (t *BaseTemplate) LoadTick(days int, callback func(types.Tick)) {
	t.Engine.LoadTick(days, callback)
}

// WriteLog forwards a log line through the engine.
func (t *BaseTemplate) WriteLog(msg string) { t.Engine.WriteLog(msg) }

// GetPricetick returns the instrument's minimum price increment.
func (t *BaseTemplate) GetPricetick() float64 { return t.Engine.GetPricetick() }

// GetParameters returns the strategy's current parameter values keyed by name.
// Concrete strategies that embed BaseTemplate override this with their own
// reflective or field-literal implementation; BaseTemplate returns nil
// because it carries no parameter fields of its own.
func (t *BaseTemplate) GetParameters() map[string]any { return nil }

// GetVariables returns the strategy's current runtime variable values keyed
// by name, always including inited/trading/pos.
func (t *BaseTemplate) GetVariables() map[string]any {
	return map[string]any{
		"inited":  t.Inited,
		"trading": t.Trading,
		"pos":     t.Pos,
	}
}
