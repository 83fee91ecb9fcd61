package tradelog

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"krw-trader/pkg/models"
)

func TestMemorySink_RecordsInOrder(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	fills := []models.OrderFill{
		{Symbol: "KRW-BTC", Side: models.SideBuy, Price: decimal.NewFromInt(100), Volume: decimal.NewFromInt(1), TS: time.Now()},
		{Symbol: "KRW-BTC", Side: models.SideSell, Price: decimal.NewFromInt(105), Volume: decimal.NewFromInt(1), TS: time.Now()},
	}
	for _, f := range fills {
		if err := sink.Record(ctx, f); err != nil {
			t.Fatalf("Record: unexpected error %v", err)
		}
	}

	if sink.Count() != 2 {
		t.Fatalf("Count() = %d, want 2", sink.Count())
	}

	got := sink.All()
	if got[0].Side != models.SideBuy || got[1].Side != models.SideSell {
		t.Fatal("expected fills preserved in recording order")
	}
}
