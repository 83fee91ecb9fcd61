package risk

import (
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func defaultLimits() Limits {
	return Limits{
		DailyLossLimitKRW:      dec("100000"),
		MaxCoinRatio:           dec("0.8"),
		MaxConcurrentPositions: 2,
		MaxPositionKRW:         dec("100000"),
	}
}

func TestManager_AllowOrder(t *testing.T) {
	tests := []struct {
		name              string
		krwBalance        string
		coinRatio         string
		realizedDailyPnl  string
		activePositions   int
		want              bool
	}{
		{"all clear", "50000", "0.2", "0", 0, true},
		{"daily loss limit breached", "50000", "0.2", "-100000", 0, false},
		{"coin ratio maxed", "50000", "0.8", "0", 0, false},
		{"too many active positions", "50000", "0.2", "0", 2, false},
		{"below exchange minimum", "4000", "0.2", "0", 0, false},
		{"below 10% of max position", "9000", "0.2", "0", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(defaultLimits())
			got := m.AllowOrder(dec(tt.krwBalance), dec(tt.coinRatio), dec(tt.realizedDailyPnl), tt.activePositions)
			if got != tt.want {
				t.Fatalf("AllowOrder = %v, want %v", got, tt.want)
			}
		})
	}
}
