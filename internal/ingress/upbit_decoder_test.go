package ingress

import "testing"

func TestUpbitDecoder_Trade(t *testing.T) {
	raw := []byte(`{"code":"KRW-BTC","trade_price":50000000}`)
	tick, err := UpbitDecoder{}.Decode(ChannelTrade, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tick.Symbol != "KRW-BTC" || tick.TradePrice != 50000000 {
		t.Fatalf("unexpected tick: %+v", tick)
	}
}

func TestUpbitDecoder_Depth(t *testing.T) {
	raw := []byte(`{"code":"KRW-ETH","orderbook_units":[{"bid_price":100,"ask_price":102}]}`)
	tick, err := UpbitDecoder{}.Decode(ChannelDepth, raw)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if tick.BestBid != 100 || tick.BestAsk != 102 {
		t.Fatalf("unexpected depth tick: %+v", tick)
	}
	if tick.Spread != 2 {
		t.Fatalf("spread = %v, want 2", tick.Spread)
	}
	if tick.TradePrice != 101 {
		t.Fatalf("derived trade price = %v, want midpoint 101", tick.TradePrice)
	}
}

func TestUpbitDecoder_MissingSymbolErrors(t *testing.T) {
	raw := []byte(`{"trade_price": 1}`)
	if _, err := (UpbitDecoder{}).Decode(ChannelTrade, raw); err == nil {
		t.Fatal("expected an error for a message with no code/market")
	}
}
