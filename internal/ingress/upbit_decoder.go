package ingress

import (
	"encoding/json"
	"fmt"
	"time"

	"krw-trader/pkg/models"
)

// UpbitDecoder decodes Upbit-shaped trade/orderbook messages, per spec.md
// §6: trade ticks carry code/trade_price, depth ticks carry
// orderbook_units[0].bid_price/ask_price.
type UpbitDecoder struct{}

type upbitOrderbookUnit struct {
	AskPrice float64 `json:"ask_price"`
	BidPrice float64 `json:"bid_price"`
}

type upbitMessage struct {
	Code           string               `json:"code"`
	Market         string               `json:"market"`
	TradePrice     float64              `json:"trade_price"`
	OrderbookUnits []upbitOrderbookUnit `json:"orderbook_units"`
}

func (UpbitDecoder) Decode(channel ChannelType, raw []byte) (*models.Tick, error) {
	var msg upbitMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return nil, fmt.Errorf("ingress: decode upbit message: %w", err)
	}

	symbol := msg.Code
	if symbol == "" {
		symbol = msg.Market
	}
	if symbol == "" {
		return nil, fmt.Errorf("ingress: message missing code/market")
	}

	switch channel {
	case ChannelDepth:
		if len(msg.OrderbookUnits) == 0 {
			return nil, nil
		}
		unit := msg.OrderbookUnits[0]
		return models.NewDepthTick(symbol, unit.BidPrice, unit.AskPrice), nil
	default:
		if msg.TradePrice == 0 {
			return nil, nil
		}
		return models.NewTradeTick(symbol, msg.TradePrice), nil
	}
}

// buildSubscribeFrame builds the minimal ticket+type+codes subscription
// frame Upbit's streaming API expects.
func buildSubscribeFrame(channel string, symbols []string) []byte {
	wireType := "ticker"
	if channel == string(ChannelDepth) {
		wireType = "orderbook"
	}

	payload := []map[string]any{
		{"ticket": fmt.Sprintf("krw-trader-%d", time.Now().UnixNano())},
		{"type": wireType, "codes": symbols},
	}
	data, _ := json.Marshal(payload)
	return data
}
