// Package exchange wraps the exchange's REST surface behind a small Client
// interface, per spec.md §6: order submit/get/cancel, account balances,
// market listing, ticker, and candles. The concrete implementation sits on
// go-resty/resty, the REST client the retrieval pack's polymarket-mm repo
// depends on for the same kind of wire calls.
package exchange

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide is the exchange's wire spelling of an order side: "bid" for a
// buy, "ask" for a sell.
type OrderSide string

const (
	SideBuy  OrderSide = "bid"
	SideSell OrderSide = "ask"
)

// OrderType is the exchange's order-type enum.
type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// OrderState is the exchange-reported lifecycle state of a submitted order.
type OrderState string

const (
	OrderWait   OrderState = "wait"
	OrderDone   OrderState = "done"
	OrderCancel OrderState = "cancel"
	OrderFail   OrderState = "fail"
)

// OrderAck is returned by SubmitOrder once the exchange has accepted (not
// necessarily filled) the order.
type OrderAck struct {
	UUID string
}

// TradeFill is one partial fill reported against an order.
type TradeFill struct {
	Price  decimal.Decimal
	Volume decimal.Decimal
}

// OrderStatus is the full state of a previously submitted order.
type OrderStatus struct {
	UUID             string
	State            OrderState
	Volume           decimal.Decimal
	RemainingVolume  decimal.Decimal
	Trades           []TradeFill
}

// Market describes one tradable symbol from the market listing.
type Market struct {
	Symbol                   string
	Warning                  bool
	SmallAccountConcentration bool
}

// Ticker is a point-in-time market snapshot.
type Ticker struct {
	Symbol          string
	TradePrice      decimal.Decimal
	AccTradePrice24h decimal.Decimal
}

// Candle is one OHLCV bar, retained for parity with spec.md §6's candle
// endpoint even though no CORE component currently consumes candles.
type Candle struct {
	Symbol    string
	Open      decimal.Decimal
	High      decimal.Decimal
	Low       decimal.Decimal
	Close     decimal.Decimal
	Volume    decimal.Decimal
	Timestamp time.Time
}

// Client is the REST surface every exchange-bound component depends on.
// APIWorker is the only kind of caller that invokes it directly (Trader and
// SymbolManager each hold their own Worker instance over a shared Client and
// ratelimit.Limiter); every other package reaches the exchange through an
// APIWorker's request/response queues.
type Client interface {
	SubmitOrder(ctx context.Context, market string, side OrderSide, ordType OrderType, volume, price decimal.Decimal) (OrderAck, error)
	GetOrder(ctx context.Context, uuid string) (OrderStatus, error)
	CancelOrder(ctx context.Context, uuid string) error
	GetBalance(ctx context.Context, currency string) (decimal.Decimal, error)
	GetMarkets(ctx context.Context) ([]Market, error)
	GetTicker(ctx context.Context, markets []string) ([]Ticker, error)
	GetCandles(ctx context.Context, market string, count int) ([]Candle, error)
}
