package exchange

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// UpbitClient is the concrete Client backing spec.md §6's exchange REST
// surface, shaped the way Upbit's public API replies (the same
// code/trade_price/orderbook_units JSON shapes Ingress decodes).
type UpbitClient struct {
	http      *resty.Client
	accessKey string
	secretKey string
}

// NewUpbitClient builds a client against baseURL and stores the given
// access/secret key pair. No request carries an authentication header: the
// stored keys are not used by any call.
func NewUpbitClient(baseURL, accessKey, secretKey string) *UpbitClient {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(10 * time.Second).
		SetHeader("Accept", "application/json")

	return &UpbitClient{http: http, accessKey: accessKey, secretKey: secretKey}
}

type orderRequest struct {
	Market   string `json:"market"`
	Side     string `json:"side"`
	OrdType  string `json:"ord_type"`
	Volume   string `json:"volume,omitempty"`
	Price    string `json:"price,omitempty"`
}

type orderResponse struct {
	UUID string `json:"uuid"`
}

func (c *UpbitClient) SubmitOrder(ctx context.Context, market string, side OrderSide, ordType OrderType, volume, price decimal.Decimal) (OrderAck, error) {
	req := orderRequest{
		Market:  market,
		Side:    string(side),
		OrdType: string(ordType),
	}
	if !volume.IsZero() {
		req.Volume = volume.String()
	}
	if !price.IsZero() {
		req.Price = price.String()
	}

	var out orderResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&out).
		Post("/v1/orders")
	if err != nil {
		return OrderAck{}, fmt.Errorf("exchange: submit order: %w", err)
	}
	if resp.IsError() {
		return OrderAck{}, fmt.Errorf("exchange: submit order rejected: %s", resp.Status())
	}

	return OrderAck{UUID: out.UUID}, nil
}

type tradeWire struct {
	Price  string `json:"price"`
	Volume string `json:"volume"`
}

type orderStatusWire struct {
	UUID            string      `json:"uuid"`
	State           string      `json:"state"`
	Volume          string      `json:"volume"`
	RemainingVolume string      `json:"remaining_volume"`
	Trades          []tradeWire `json:"trades"`
}

func (c *UpbitClient) GetOrder(ctx context.Context, uuid string) (OrderStatus, error) {
	var out orderStatusWire
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("uuid", uuid).
		SetResult(&out).
		Get("/v1/order")
	if err != nil {
		return OrderStatus{}, fmt.Errorf("exchange: get order: %w", err)
	}
	if resp.IsError() {
		return OrderStatus{}, fmt.Errorf("exchange: get order failed: %s", resp.Status())
	}

	volume, _ := decimal.NewFromString(out.Volume)
	remaining, _ := decimal.NewFromString(out.RemainingVolume)

	trades := make([]TradeFill, 0, len(out.Trades))
	for _, tr := range out.Trades {
		price, _ := decimal.NewFromString(tr.Price)
		vol, _ := decimal.NewFromString(tr.Volume)
		trades = append(trades, TradeFill{Price: price, Volume: vol})
	}

	return OrderStatus{
		UUID:            out.UUID,
		State:           OrderState(out.State),
		Volume:          volume,
		RemainingVolume: remaining,
		Trades:          trades,
	}, nil
}

func (c *UpbitClient) CancelOrder(ctx context.Context, uuid string) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("uuid", uuid).
		Delete("/v1/order")
	if err != nil {
		return fmt.Errorf("exchange: cancel order: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("exchange: cancel order failed: %s", resp.Status())
	}
	return nil
}

type accountWire struct {
	Currency string `json:"currency"`
	Balance  string `json:"balance"`
}

func (c *UpbitClient) GetBalance(ctx context.Context, currency string) (decimal.Decimal, error) {
	var out []accountWire
	resp, err := c.http.R().
		SetContext(ctx).
		SetResult(&out).
		Get("/v1/accounts")
	if err != nil {
		return decimal.Zero, fmt.Errorf("exchange: get balance: %w", err)
	}
	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("exchange: get balance failed: %s", resp.Status())
	}

	for _, acc := range out {
		if acc.Currency == currency {
			bal, err := decimal.NewFromString(acc.Balance)
			if err != nil {
				return decimal.Zero, fmt.Errorf("exchange: parse balance: %w", err)
			}
			return bal, nil
		}
	}
	return decimal.Zero, nil
}

type marketCaution struct {
	ConcentrationOfSmallAccounts bool `json:"CONCENTRATION_OF_SMALL_ACCOUNTS"`
}

type marketEvent struct {
	Caution marketCaution `json:"caution"`
}

type marketWire struct {
	Market        string      `json:"market"`
	MarketWarning string      `json:"market_warning"`
	MarketEvent   marketEvent `json:"market_event"`
}

// GetMarkets requests market details (is_details=true) so market_event.caution
// is populated alongside market_warning.
func (c *UpbitClient) GetMarkets(ctx context.Context) ([]Market, error) {
	var out []marketWire
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("is_details", "true").
		SetResult(&out).
		Get("/v1/market/all")
	if err != nil {
		return nil, fmt.Errorf("exchange: get markets: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("exchange: get markets failed: %s", resp.Status())
	}

	markets := make([]Market, 0, len(out))
	for _, m := range out {
		markets = append(markets, Market{
			Symbol:                    m.Market,
			Warning:                   m.MarketWarning == "CAUTION",
			SmallAccountConcentration: m.MarketEvent.Caution.ConcentrationOfSmallAccounts,
		})
	}
	return markets, nil
}

type tickerWire struct {
	Market           string `json:"market"`
	TradePrice       float64 `json:"trade_price"`
	AccTradePrice24h float64 `json:"acc_trade_price_24h"`
}

// tickerBatchSize caps how many markets one GetTicker call requests,
// matching original_source's 100-symbol batching in symbol_manager.py.
const tickerBatchSize = 100

func (c *UpbitClient) GetTicker(ctx context.Context, markets []string) ([]Ticker, error) {
	var all []Ticker

	for start := 0; start < len(markets); start += tickerBatchSize {
		end := start + tickerBatchSize
		if end > len(markets) {
			end = len(markets)
		}
		batch := markets[start:end]

		var out []tickerWire
		resp, err := c.http.R().
			SetContext(ctx).
			SetQueryParam("markets", joinComma(batch)).
			SetResult(&out).
			Get("/v1/ticker")
		if err != nil {
			return nil, fmt.Errorf("exchange: get ticker: %w", err)
		}
		if resp.IsError() {
			return nil, fmt.Errorf("exchange: get ticker failed: %s", resp.Status())
		}

		for _, t := range out {
			all = append(all, Ticker{
				Symbol:           t.Market,
				TradePrice:       decimal.NewFromFloat(t.TradePrice),
				AccTradePrice24h: decimal.NewFromFloat(t.AccTradePrice24h),
			})
		}
	}

	return all, nil
}

type candleWire struct {
	OpeningPrice float64 `json:"opening_price"`
	HighPrice    float64 `json:"high_price"`
	LowPrice     float64 `json:"low_price"`
	TradePrice   float64 `json:"trade_price"`
	Volume       float64 `json:"candle_acc_trade_volume"`
	Timestamp    int64   `json:"timestamp"`
}

func (c *UpbitClient) GetCandles(ctx context.Context, market string, count int) ([]Candle, error) {
	var out []candleWire
	resp, err := c.http.R().
		SetContext(ctx).
		SetQueryParam("market", market).
		SetQueryParam("count", strconv.Itoa(count)).
		SetResult(&out).
		Get("/v1/candles/minutes/1")
	if err != nil {
		return nil, fmt.Errorf("exchange: get candles: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("exchange: get candles failed: %s", resp.Status())
	}

	candles := make([]Candle, 0, len(out))
	for _, cw := range out {
		candles = append(candles, Candle{
			Symbol:    market,
			Open:      decimal.NewFromFloat(cw.OpeningPrice),
			High:      decimal.NewFromFloat(cw.HighPrice),
			Low:       decimal.NewFromFloat(cw.LowPrice),
			Close:     decimal.NewFromFloat(cw.TradePrice),
			Volume:    decimal.NewFromFloat(cw.Volume),
			Timestamp: time.UnixMilli(cw.Timestamp),
		})
	}
	return candles, nil
}

func joinComma(items []string) string {
	out := ""
	for i, s := range items {
		if i > 0 {
			out += ","
		}
		out += s
	}
	return out
}
