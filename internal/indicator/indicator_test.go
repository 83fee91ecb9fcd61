package indicator

import (
	"context"
	"testing"
	"time"

	"krw-trader/internal/config"
	"krw-trader/internal/logging"
	"krw-trader/pkg/models"
)

func TestEMA_InsufficientHistory(t *testing.T) {
	if _, ok := ema([]float64{1, 2, 3}, 5); ok {
		t.Fatal("expected ema to report insufficient history")
	}
}

func TestRSI_AllGainsIsHundred(t *testing.T) {
	prices := []float64{1, 2, 3, 4, 5, 6}
	v, ok := rsi(prices, 5)
	if !ok {
		t.Fatal("expected rsi to compute")
	}
	if v != 100 {
		t.Fatalf("rsi = %v, want 100 for an all-gains window", v)
	}
}

func TestWarmupMargin_ExceedsRawIndicatorMinimums(t *testing.T) {
	params := config.BuySignalParams{EMAFast: 2, EMASlow: 50, RSIPeriod: 14, RSIOversold: 30}
	if got, want := warmupMargin(params), 55; got != want {
		t.Fatalf("warmupMargin = %d, want %d (ema_slow + 5)", got, want)
	}

	params = config.BuySignalParams{EMAFast: 2, EMASlow: 10, RSIPeriod: 20, RSIOversold: 30}
	if got, want := warmupMargin(params), 25; got != want {
		t.Fatalf("warmupMargin = %d, want %d (rsi_period + 5 when it exceeds ema_slow)", got, want)
	}
}

func TestBuyableSet_SnapshotIsIndependentCopy(t *testing.T) {
	s := NewBuyableSet()
	s.set("KRW-BTC", true)

	snap := s.Snapshot()
	snap["KRW-ETH"] = true

	if s.IsBuyable("KRW-ETH") {
		t.Fatal("mutating a snapshot must not affect the set")
	}
}

func TestWorker_FlagsBuyableOnGoldenCrossWithLowRSI(t *testing.T) {
	params := config.BuySignalParams{EMAFast: 2, EMASlow: 3, RSIPeriod: 2, RSIOversold: 90}
	w := NewWorker(logging.Nop(), params)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	in := make(chan *models.Tick, 16)
	w.Start(ctx, in)
	defer w.Stop()

	// Long enough to clear warmupMargin (ema_slow=3, rsi_period=2 -> 8
	// ticks) with the last 3 prices giving a finite RSI below the
	// (deliberately generous) 90 threshold, and the last 2-3 prices
	// trending up enough for EMA(fast) to cross above EMA(slow).
	prices := []float64{100, 100, 100, 98, 100, 103, 106, 109, 108}
	for _, p := range prices {
		in <- models.NewTradeTick("KRW-BTC", p)
	}

	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if w.Buyable().IsBuyable("KRW-BTC") {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("expected KRW-BTC to become buyable on a rising price run")
}
