package symbols

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"krw-trader/internal/apiworker"
	"krw-trader/internal/exchange"
	"krw-trader/internal/indicator"
	"krw-trader/internal/logging"
	"krw-trader/internal/ratelimit"
)

type fakeClient struct {
	markets []exchange.Market
	tickers map[string]float64
}

func (f *fakeClient) SubmitOrder(context.Context, string, exchange.OrderSide, exchange.OrderType, decimal.Decimal, decimal.Decimal) (exchange.OrderAck, error) {
	return exchange.OrderAck{}, nil
}
func (f *fakeClient) GetOrder(context.Context, string) (exchange.OrderStatus, error) {
	return exchange.OrderStatus{}, nil
}
func (f *fakeClient) CancelOrder(context.Context, string) error { return nil }
func (f *fakeClient) GetBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.Zero, nil
}
func (f *fakeClient) GetMarkets(context.Context) ([]exchange.Market, error) {
	return f.markets, nil
}
func (f *fakeClient) GetTicker(ctx context.Context, markets []string) ([]exchange.Ticker, error) {
	out := make([]exchange.Ticker, 0, len(markets))
	for _, m := range markets {
		out = append(out, exchange.Ticker{Symbol: m, AccTradePrice24h: decimal.NewFromFloat(f.tickers[m])})
	}
	return out, nil
}
func (f *fakeClient) GetCandles(context.Context, string, int) ([]exchange.Candle, error) {
	return nil, nil
}

// newTestAPI wires client behind a real apiworker.Worker, since Manager now
// routes every exchange call through APIWorker rather than holding a
// Client directly.
func newTestAPI(t *testing.T, client exchange.Client) *apiworker.Worker {
	t.Helper()
	api := apiworker.New(logging.Nop(), client, ratelimit.New())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go api.Run(ctx)
	return api
}

func TestManager_SelectsTopNByVolumeAmongBuyableSafeSymbols(t *testing.T) {
	client := &fakeClient{
		markets: []exchange.Market{
			{Symbol: "KRW-BTC"},
			{Symbol: "KRW-ETH"},
			{Symbol: "KRW-XRP", Warning: true},
			{Symbol: "KRW-DOGE"},
		},
		tickers: map[string]float64{
			"KRW-BTC":  1000,
			"KRW-ETH":  3000,
			"KRW-DOGE": 500,
		},
	}

	buyable := indicator.NewBuyableSet()
	for _, s := range []string{"KRW-BTC", "KRW-ETH", "KRW-DOGE"} {
		buyable.Set(s, true)
	}

	m := New(logging.Nop(), newTestAPI(t, client), buyable, Config{
		TopN:              2,
		RefreshInterval:   time.Hour,
		MinStableInterval: 0,
		ExcludeWarning:    true,
	})

	m.maybeRefresh(context.Background())

	active := m.Active()
	if len(active) != 2 {
		t.Fatalf("active = %v, want 2 symbols", active)
	}
	if active[0] != "KRW-ETH" || active[1] != "KRW-BTC" {
		t.Fatalf("active = %v, want [KRW-ETH KRW-BTC] ranked by volume desc", active)
	}
}

func TestManager_DoesNotRepublishWithinStabilityWindow(t *testing.T) {
	client := &fakeClient{
		markets: []exchange.Market{{Symbol: "KRW-BTC"}},
		tickers: map[string]float64{"KRW-BTC": 100},
	}
	buyable := indicator.NewBuyableSet()
	buyable.Set("KRW-BTC", true)

	m := New(logging.Nop(), newTestAPI(t, client), buyable, Config{
		TopN:              1,
		RefreshInterval:   time.Hour,
		MinStableInterval: time.Hour,
	})

	m.maybeRefresh(context.Background())
	first := m.Active()

	client.markets = append(client.markets, exchange.Market{Symbol: "KRW-ETH"})
	client.tickers["KRW-ETH"] = 99999
	buyable.Set("KRW-ETH", true)

	m.maybeRefresh(context.Background())
	second := m.Active()

	if len(first) != len(second) || first[0] != second[0] {
		t.Fatalf("expected no republish inside the stability window, got %v then %v", first, second)
	}
}
