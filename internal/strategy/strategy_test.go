package strategy

import (
	"testing"
	"time"

	"krw-trader/internal/config"
	"krw-trader/pkg/models"
)

func TestScalping_EntersOnWindowLowAndExitsOnTakeProfit(t *testing.T) {
	cfg := config.StrategyConfig{Strategy: "scalping", Window: 3, TakeProfitPct: 1, StopLossPct: 1}
	s := NewScalping("KRW-BTC", cfg)
	s.Prepare()

	prices := []float64{100, 99, 98}
	var lastSignal Signal
	for _, p := range prices {
		lastSignal = s.OnTick(models.NewTradeTick("KRW-BTC", p))
	}
	if lastSignal.Action != ActionBuy {
		t.Fatalf("expected a buy signal on the window low, got %v", lastSignal.Action)
	}

	s.OnOrderFill(models.OrderFill{Symbol: "KRW-BTC", Side: models.SideBuy, Price: decFloat(98), Volume: decFloat(1), TS: time.Now()})

	sig := s.OnTick(models.NewTradeTick("KRW-BTC", 100))
	if sig.Action != ActionSell || sig.Reason != "take_profit" {
		t.Fatalf("expected a take_profit sell, got %+v", sig)
	}
}

func TestScalping_SuppressesActionsOnWideSpread(t *testing.T) {
	cfg := config.StrategyConfig{Strategy: "scalping", Window: 2, MaxSpread: 1}
	s := NewScalping("KRW-BTC", cfg)
	s.Prepare()

	s.OnTick(models.NewDepthTick("KRW-BTC", 100, 105))
	sig := s.OnTick(models.NewTradeTick("KRW-BTC", 50))
	if sig.Action != ActionNone {
		t.Fatalf("expected actions suppressed on a wide spread, got %+v", sig)
	}
}

func TestMACross_GoldenCrossThenDeathCross(t *testing.T) {
	cfg := config.StrategyConfig{Strategy: "ma_cross", FastPeriod: 2, SlowPeriod: 4, TakeProfitPct: 1000, StopLossPct: 1000}
	m := NewMACross("KRW-ETH", cfg)
	m.Prepare()

	warmup := []float64{100, 100, 100, 100}
	for _, p := range warmup {
		m.OnTick(models.NewTradeTick("KRW-ETH", p))
	}

	buySignal := m.OnTick(models.NewTradeTick("KRW-ETH", 110))
	if buySignal.Action != ActionBuy {
		t.Fatalf("expected a golden-cross buy, got %+v", buySignal)
	}

	m.OnOrderFill(models.OrderFill{Symbol: "KRW-ETH", Side: models.SideBuy, Price: decFloat(110), Volume: decFloat(1), TS: time.Now()})

	declining := []float64{100, 90, 80, 70}
	var sellSignal Signal
	for _, p := range declining {
		sig := m.OnTick(models.NewTradeTick("KRW-ETH", p))
		if sig.Action == ActionSell {
			sellSignal = sig
			break
		}
	}
	if sellSignal.Action != ActionSell || sellSignal.Reason != "death_cross" {
		t.Fatalf("expected a death-cross sell, got %+v", sellSignal)
	}
}

func TestRSI_OversoldReversalEntry(t *testing.T) {
	cfg := config.StrategyConfig{Strategy: "rsi", RSIPeriod: 3, OversoldLevel: 30, OverboughtLvl: 70, TakeProfitPct: 1000, StopLossPct: 1000}
	r := NewRSI("KRW-XRP", cfg)
	r.Prepare()

	// The losing run pins RSI(3) at 0 (oversold); the final 97 lifts it to
	// 50, above both the previous value and the oversold level.
	prices := []float64{100, 99, 98, 97, 96, 95, 97}
	var lastSignal Signal
	for _, p := range prices {
		lastSignal = r.OnTick(models.NewTradeTick("KRW-XRP", p))
	}
	if lastSignal.Action != ActionBuy || lastSignal.Reason != "rsi_oversold_reversal" {
		t.Fatalf("expected an rsi_oversold_reversal buy on the reversal tick, got %+v", lastSignal)
	}
}

func TestAdvancedScalping_TrailingStopFiresAfterActivation(t *testing.T) {
	cfg := config.StrategyConfig{
		Strategy:              "advanced_scalping",
		Window:                2,
		TakeProfitPct:         50,
		StopLossPct:           50,
		TrailingStopEnabled:   true,
		TrailingStopPct:       2,
		TrailingActivationPct: 1,
	}
	a := NewAdvancedScalping("KRW-SOL", cfg)
	a.Prepare()

	a.OnOrderFill(models.OrderFill{Symbol: "KRW-SOL", Side: models.SideBuy, Price: decFloat(100), Volume: decFloat(1), TS: time.Now()})

	// Price rises enough to activate the trailing stop, then pulls back
	// past the ratcheted stop.
	a.OnTick(models.NewTradeTick("KRW-SOL", 105))
	sig := a.OnTick(models.NewTradeTick("KRW-SOL", 102))

	if sig.Action != ActionSell || sig.Reason != "trailing_stop" {
		t.Fatalf("expected a trailing_stop sell, got %+v", sig)
	}
}

func TestAdvancedScalping_PartialCloseStagesExits(t *testing.T) {
	cfg := config.StrategyConfig{
		Strategy:            "advanced_scalping",
		Window:              2,
		TakeProfitPct:       100,
		StopLossPct:         100,
		PartialCloseEnabled: true,
		PartialCloseLevels:  []float64{2, 5},
		PartialCloseRatios:  []float64{0.5, 0.5},
	}
	a := NewAdvancedScalping("KRW-DOT", cfg)
	a.Prepare()

	a.OnOrderFill(models.OrderFill{Symbol: "KRW-DOT", Side: models.SideBuy, Price: decFloat(100), Volume: decFloat(2), TS: time.Now()})

	sig := a.OnTick(models.NewTradeTick("KRW-DOT", 103))
	if sig.Action != ActionSell || sig.Reason != "partial_close" {
		t.Fatalf("expected first partial_close sell, got %+v", sig)
	}
	if !sig.Volume.Equal(decFloat(1)) {
		t.Fatalf("expected a 1-coin partial close slice, got %s", sig.Volume)
	}
}

func TestManager_PortfolioGateRejectsBeyondConcurrentLimit(t *testing.T) {
	cfg := &config.Config{
		MaxConcurrentPositions: 1,
		MaxTotalPositionKRW:    1_000_000,
		DefaultMaxPositionKRW:  100_000,
		DefaultStrategyConfig:  config.StrategyConfig{Strategy: "scalping", Window: 5, TakeProfitPct: 1, StopLossPct: 1},
	}
	m := NewManager(nopLogger(), cfg, []string{"KRW-BTC", "KRW-ETH"})

	m.Strategy("KRW-BTC").OnOrderFill(models.OrderFill{Symbol: "KRW-BTC", Side: models.SideBuy, Price: decFloat(100), Volume: decFloat(1), TS: time.Now()})

	decision := m.Gate("KRW-ETH", 0)
	if decision.Allowed {
		t.Fatal("expected the gate to reject a second concurrent position")
	}
	if decision.Reason != "portfolio_limit" {
		t.Fatalf("reason = %s, want portfolio_limit", decision.Reason)
	}
}

func TestManager_UpdateSymbolsRetainsOpenPositions(t *testing.T) {
	cfg := &config.Config{
		MaxConcurrentPositions: 5,
		MaxTotalPositionKRW:    1_000_000,
		DefaultMaxPositionKRW:  100_000,
		DefaultStrategyConfig:  config.StrategyConfig{Strategy: "scalping", Window: 5, TakeProfitPct: 1, StopLossPct: 1},
	}
	m := NewManager(nopLogger(), cfg, []string{"KRW-BTC"})
	m.Strategy("KRW-BTC").OnOrderFill(models.OrderFill{Symbol: "KRW-BTC", Side: models.SideBuy, Price: decFloat(100), Volume: decFloat(1), TS: time.Now()})

	removed := m.UpdateSymbols([]string{"KRW-ETH"})
	if len(removed) != 1 || removed[0] != "KRW-BTC" {
		t.Fatalf("expected KRW-BTC to be reported as retained, got %v", removed)
	}
	if m.Strategy("KRW-BTC") == nil {
		t.Fatal("expected KRW-BTC's strategy to still be tracked")
	}
}
