package strategy

import (
	"testing"

	"ctabacktest/pkg/types"
)

// fakeEngine is a minimal EngineAPI stub for testing BaseTemplate delegation.
type fakeEngine struct {
	trading     bool
	buyCalls    int
	cancelCalls []string
	cancelAllN  int
	pricetick   float64

	size     float64
	rate     float64
	rateType types.RateType
	slippage float64
}

func (f *fakeEngine) Buy(price, volume float64, stop, lock bool) []types.OrderID {
	f.buyCalls++
	if !f.trading {
		return nil
	}
	return []types.OrderID{1}
}
func (f *fakeEngine) Sell(price, volume float64, stop, lock bool) []types.OrderID   { return nil }
func (f *fakeEngine) Short(price, volume float64, stop, lock bool) []types.OrderID  { return nil }
func (f *fakeEngine) Cover(price, volume float64, stop, lock bool) []types.OrderID  { return nil }
func (f *fakeEngine) CancelOrder(id string)                                        { f.cancelCalls = append(f.cancelCalls, id) }
func (f *fakeEngine) CancelAll()                                                    { f.cancelAllN++ }
func (f *fakeEngine) LoadBar(days int, interval types.Interval, cb func(types.Bar)) {}
func (f *fakeEngine) LoadTick(days int, cb func(types.Tick))                        {}
func (f *fakeEngine) GetEngineType() types.EngineType                               { return types.Backtesting }
func (f *fakeEngine) GetPricetick() float64                                        { return f.pricetick }
func (f *fakeEngine) WriteLog(msg string)                                           {}
func (f *fakeEngine) SendEmail(msg string)                                         {}
func (f *fakeEngine) SyncData()                                                    {}
func (f *fakeEngine) PutEvent()                                                    {}
func (f *fakeEngine) GetSize() float64                                             { return f.size }
func (f *fakeEngine) GetRate() float64                                             { return f.rate }
func (f *fakeEngine) GetRateType() types.RateType                                  { return f.rateType }
func (f *fakeEngine) GetSlippage() float64                                        { return f.slippage }

func TestBaseTemplateOnTradeUpdatesPos(t *testing.T) {
	t.Parallel()

	tpl := NewBaseTemplate(&fakeEngine{}, "tester", nil, nil)
	tpl.OnTrade(types.Trade{Direction: types.Long, Volume: 2})
	if tpl.Pos != 2 {
		t.Fatalf("Pos = %v, want 2", tpl.Pos)
	}
	tpl.OnTrade(types.Trade{Direction: types.Short, Volume: 1})
	if tpl.Pos != 1 {
		t.Fatalf("Pos = %v, want 1", tpl.Pos)
	}
}

func TestBaseTemplateOnTradeBookkeepingGatedBySwitch(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{size: 10, rate: 0.001, rateType: types.Float, slippage: 0.2}
	tpl := NewBaseTemplate(eng, "tester", nil, nil)

	// A full round trip before RecordStartSwitch leaves bookkeeping untouched.
	tpl.OnTrade(types.Trade{Direction: types.Long, Offset: types.OffsetOpen, Price: 100, Volume: 1})
	tpl.OnTrade(types.Trade{Direction: types.Short, Offset: types.OffsetClose, Price: 101, Volume: 1})
	if tpl.TradeNumber != 0 {
		t.Fatalf("TradeNumber = %d, want 0 before RecordStartSwitch", tpl.TradeNumber)
	}

	tpl.RecordStartSwitch = true
	tpl.OnTrade(types.Trade{Direction: types.Long, Offset: types.OffsetOpen, Price: 100, Volume: 1})
	if tpl.TradeNumber != 0 {
		t.Fatalf("TradeNumber = %d, want 0 mid-round-trip (net volume not yet back to zero)", tpl.TradeNumber)
	}
	tpl.OnTrade(types.Trade{Direction: types.Short, Offset: types.OffsetClose, Price: 101, Volume: 1})
	if tpl.TradeNumber != 1 {
		t.Fatalf("TradeNumber = %d, want 1 once the round trip closes back to zero", tpl.TradeNumber)
	}
}

// OnTrade computes running commission/slippage/pnl across an open/close
// round trip and snapshots it into the *List fields once net volume
// returns to zero, matching CtaTemplate's update_trade_statistics.
func TestBaseTemplateOnTradeComputesRoundTripPnl(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{size: 10, rate: 0.001, rateType: types.Float, slippage: 0.2}
	tpl := NewBaseTemplate(eng, "tester", nil, nil)
	tpl.RecordStartSwitch = true

	tpl.OnTrade(types.Trade{Direction: types.Long, Offset: types.OffsetOpen, Price: 100, Volume: 2})
	if tpl.OpenCostPrice != 100 {
		t.Fatalf("OpenCostPrice = %v, want 100", tpl.OpenCostPrice)
	}
	if tpl.TrackHighest != 100 || tpl.TrackLowest != 100 {
		t.Fatalf("TrackHighest/TrackLowest = %v/%v, want 100/100", tpl.TrackHighest, tpl.TrackLowest)
	}

	tpl.OnTrade(types.Trade{Direction: types.Short, Offset: types.OffsetClose, Price: 105, Volume: 2})

	wantPnl := (105.0 - 100.0) * 2 * 10 // (close - open) * volume * size
	if len(tpl.TradePnlList) != 1 || tpl.TradePnlList[0] != wantPnl {
		t.Fatalf("TradePnlList = %v, want single entry %v", tpl.TradePnlList, wantPnl)
	}
	if len(tpl.NetPnlList) != 1 {
		t.Fatalf("NetPnlList = %v, want 1 entry", tpl.NetPnlList)
	}
	if tpl.TradeNetVolume != 0 {
		t.Fatalf("TradeNetVolume = %v, want 0 after round trip closes", tpl.TradeNetVolume)
	}
	if tpl.OpenCostPrice != 0 || tpl.TradePnl != 0 || tpl.TradeCommission != 0 || tpl.TradeSlippage != 0 || tpl.NetPnl != 0 {
		t.Fatalf("per-trade accumulators not reset after round-trip close: %+v", tpl)
	}
	if tpl.TrackHighest != 0 || tpl.TrackLowest != 0 {
		t.Fatalf("TrackHighest/TrackLowest = %v/%v, want reset to 0 once flat", tpl.TrackHighest, tpl.TrackLowest)
	}
}

func TestBaseTemplateCancelNoopWhenNotTrading(t *testing.T) {
	t.Parallel()

	eng := &fakeEngine{}
	tpl := NewBaseTemplate(eng, "tester", nil, nil)
	tpl.Trading = false

	tpl.CancelOrder("1")
	tpl.CancelAll()

	if len(eng.cancelCalls) != 0 || eng.cancelAllN != 0 {
		t.Fatalf("expected no cancel calls while Trading=false, got %d/%d", len(eng.cancelCalls), eng.cancelAllN)
	}

	tpl.Trading = true
	tpl.CancelOrder("1")
	tpl.CancelAll()
	if len(eng.cancelCalls) != 1 || eng.cancelAllN != 1 {
		t.Fatalf("expected cancel calls while Trading=true, got %d/%d", len(eng.cancelCalls), eng.cancelAllN)
	}
}

func TestBaseTemplateGetVariablesIncludesCore(t *testing.T) {
	t.Parallel()

	tpl := NewBaseTemplate(&fakeEngine{}, "tester", nil, nil)
	tpl.Inited = true
	tpl.Trading = true
	tpl.Pos = 3

	vars := tpl.GetVariables()
	if vars["inited"] != true || vars["trading"] != true || vars["pos"] != float64(3) {
		t.Fatalf("GetVariables() = %+v, unexpected values", vars)
	}
}
