package position

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"krw-trader/pkg/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestBook_ApplyFill_BuyThenSell(t *testing.T) {
	tests := []struct {
		name            string
		buyPrice        string
		volume          string
		sellPrice       string
		wantRealizedPnL string
		wantWin         bool
	}{
		{"profitable round trip", "100", "2", "110", "20", true},
		{"losing round trip", "100", "2", "90", "-20", false},
		{"flat round trip", "50", "1", "50", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New("KRW-BTC")

			b.ApplyFill(models.OrderFill{
				Side:   models.SideBuy,
				Price:  dec(tt.buyPrice),
				Volume: dec(tt.volume),
				TS:     time.Now(),
			})

			if b.Position.Type != models.PositionLong {
				t.Fatalf("expected PositionLong after buy fill, got %v", b.Position.Type)
			}
			if !b.Position.EntryPrice.Equal(dec(tt.buyPrice)) {
				t.Fatalf("entry price = %s, want %s", b.Position.EntryPrice, tt.buyPrice)
			}

			b.ApplyFill(models.OrderFill{
				Side:   models.SideSell,
				Price:  dec(tt.sellPrice),
				Volume: dec(tt.volume),
				TS:     time.Now(),
			})

			if b.Position.Type != models.PositionNone {
				t.Fatalf("expected PositionNone after sell fill, got %v", b.Position.Type)
			}
			if !b.Position.EntryPrice.IsZero() || !b.Position.Volume.IsZero() {
				t.Fatalf("expected zeroed entry/volume, got entry=%s volume=%s", b.Position.EntryPrice, b.Position.Volume)
			}
			if !b.Position.RealizedPnL.Equal(dec(tt.wantRealizedPnL)) {
				t.Fatalf("realized pnl = %s, want %s", b.Position.RealizedPnL, tt.wantRealizedPnL)
			}
			if tt.wantWin && b.WinningTrades != 1 {
				t.Fatalf("expected a winning trade to be recorded")
			}
			if !tt.wantWin && b.WinningTrades != 0 {
				t.Fatalf("expected no winning trade to be recorded")
			}
		})
	}
}

func TestBook_UpdateUnrealized(t *testing.T) {
	b := New("KRW-ETH")
	b.ApplyFill(models.OrderFill{Side: models.SideBuy, Price: dec("100"), Volume: dec("3"), TS: time.Now()})

	b.UpdateUnrealized(dec("105"))

	if !b.Position.UnrealizedPnL.Equal(dec("15")) {
		t.Fatalf("unrealized pnl = %s, want 15", b.Position.UnrealizedPnL)
	}
}

func TestBook_Reset(t *testing.T) {
	b := New("KRW-SOL")
	b.ApplyFill(models.OrderFill{Side: models.SideBuy, Price: dec("10"), Volume: dec("1"), TS: time.Now()})
	b.Reset()

	if b.Position.Type != models.PositionNone {
		t.Fatalf("expected reset position to be PositionNone")
	}
	if b.TotalTrades != 0 {
		t.Fatalf("expected reset stats")
	}
}
