package apiworker

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"krw-trader/internal/exchange"
	"krw-trader/internal/logging"
	"krw-trader/internal/ratelimit"
)

type fakeClient struct {
	submitted int
}

func (f *fakeClient) SubmitOrder(context.Context, string, exchange.OrderSide, exchange.OrderType, decimal.Decimal, decimal.Decimal) (exchange.OrderAck, error) {
	f.submitted++
	return exchange.OrderAck{UUID: "abc"}, nil
}
func (f *fakeClient) GetOrder(context.Context, string) (exchange.OrderStatus, error) {
	return exchange.OrderStatus{State: exchange.OrderDone}, nil
}
func (f *fakeClient) CancelOrder(context.Context, string) error { return nil }
func (f *fakeClient) GetBalance(context.Context, string) (decimal.Decimal, error) {
	return decimal.NewFromInt(1000), nil
}
func (f *fakeClient) GetMarkets(context.Context) ([]exchange.Market, error) { return nil, nil }
func (f *fakeClient) GetTicker(context.Context, []string) ([]exchange.Ticker, error) {
	return nil, nil
}
func (f *fakeClient) GetCandles(context.Context, string, int) ([]exchange.Candle, error) {
	return nil, nil
}

func TestWorker_SubmitOrderRoundTrip(t *testing.T) {
	client := &fakeClient{}
	w := New(logging.Nop(), client, ratelimit.New())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.Run(ctx)

	w.Submit(Request{RequestID: "r1", Kind: ReqSubmitOrder, Market: "KRW-BTC"})

	select {
	case resp := <-w.Responses():
		if resp.RequestID != "r1" || resp.Err != nil || resp.OrderAck.UUID != "abc" {
			t.Fatalf("unexpected response: %+v", resp)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for response")
	}
	if client.submitted != 1 {
		t.Fatalf("submitted = %d, want 1", client.submitted)
	}
}
