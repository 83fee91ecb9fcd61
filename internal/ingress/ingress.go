// Package ingress owns the streaming connection(s) to the exchange,
// grounded on the teacher's internal/datafeed/binance.go: a reconnecting
// websocket reader pushing decoded ticks onto a channel. Two differences
// from the teacher: Feed is generic over channel-type (trade vs depth) and
// the decode step is isolated behind a Decoder so the reconnect/heartbeat
// machinery stays exchange-agnostic, matching original_source's
// api/websocket.py reconnect-with-backoff and heartbeat-watchdog behavior.
package ingress

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"krw-trader/internal/metrics"
	"krw-trader/pkg/models"
)

// ChannelType is the streaming subscription kind.
type ChannelType string

const (
	ChannelTrade ChannelType = "trade"
	ChannelDepth ChannelType = "depth"
)

// Decoder turns one raw websocket message into a Tick. The concrete decoder
// shipped alongside Feed understands Upbit's code/trade_price and
// orderbook_units[0].bid_price/ask_price shapes (spec.md §6); Feed itself
// never inspects the wire format.
type Decoder interface {
	Decode(channel ChannelType, raw []byte) (*models.Tick, error)
}

// Sink receives decoded ticks. In production this is Merger.Submit.
type Sink interface {
	Submit(tick *models.Tick)
}

// Feed owns one websocket connection subscribed to a single channel type
// across a dynamic symbol set.
type Feed struct {
	log     *zap.SugaredLogger
	url     string
	channel ChannelType
	decoder Decoder
	sink    Sink

	heartbeatTimeout time.Duration
	backoffBase      time.Duration
	maxBackoff       time.Duration
	maxRetries       int

	mu          sync.Mutex
	symbols     []string
	reconfigure chan []string
	stopCh      chan struct{}
	running     bool
}

// Config bundles a Feed's reconnect/heartbeat tuning, matching
// config.WebSocketConfig's fields one-for-one.
type Config struct {
	HeartbeatTimeout time.Duration
	MaxRetries       int
	BackoffBase      time.Duration
	MaxBackoff       time.Duration
}

// NewFeed builds a Feed for channel against url, not yet connected.
func NewFeed(log *zap.SugaredLogger, url string, channel ChannelType, decoder Decoder, sink Sink, cfg Config) *Feed {
	return &Feed{
		log:              log,
		url:              url,
		channel:          channel,
		decoder:          decoder,
		sink:             sink,
		heartbeatTimeout: cfg.HeartbeatTimeout,
		backoffBase:      cfg.BackoffBase,
		maxBackoff:       cfg.MaxBackoff,
		maxRetries:       cfg.MaxRetries,
		reconfigure:      make(chan []string, 1),
		stopCh:           make(chan struct{}),
	}
}

// Start subscribes to the given symbols and begins the reconnect loop.
func (f *Feed) Start(ctx context.Context, symbols []string) {
	f.mu.Lock()
	if f.running {
		f.mu.Unlock()
		return
	}
	f.running = true
	f.symbols = append([]string(nil), symbols...)
	f.mu.Unlock()

	go f.runWithReconnect(ctx)
}

// Stop halts the feed and closes its connection.
func (f *Feed) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if !f.running {
		return
	}
	f.running = false
	close(f.stopCh)
}

// UpdateSymbols diffs against the currently-subscribed set; if different, it
// signals the reconnect loop to resubscribe with the new set. In-flight
// reads already queued onto sink are unaffected — only future reads change.
func (f *Feed) UpdateSymbols(symbols []string) {
	f.mu.Lock()
	changed := !sameSet(f.symbols, symbols)
	if changed {
		f.symbols = append([]string(nil), symbols...)
	}
	f.mu.Unlock()

	if !changed {
		return
	}
	select {
	case f.reconfigure <- symbols:
	default:
	}
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	set := make(map[string]bool, len(a))
	for _, s := range a {
		set[s] = true
	}
	for _, s := range b {
		if !set[s] {
			return false
		}
	}
	return true
}

// runWithReconnect mirrors original_source's run_with_reconnect: connect,
// read until error/heartbeat-timeout/reconfigure, then reconnect at once.
// Failed connects are retried with doubling backoff capped at maxBackoff,
// unbounded unless maxRetries > 0; a successful connect resets the backoff.
func (f *Feed) runWithReconnect(ctx context.Context) {
	backoff := f.backoffBase
	attempt := 0

	for {
		select {
		case <-ctx.Done():
			return
		case <-f.stopCh:
			return
		default:
		}

		conn, err := f.connect()
		if err != nil {
			attempt++
			if f.maxRetries > 0 && attempt > f.maxRetries {
				f.log.Errorw("ingress: giving up after max retries", "channel", f.channel, "attempts", attempt)
				return
			}
			f.log.Warnw("ingress: connect failed, backing off", "channel", f.channel, "err", err, "backoff", backoff)
			if !f.sleep(ctx, backoff) {
				return
			}
			backoff = nextBackoff(backoff, f.maxBackoff)
			continue
		}

		attempt = 0
		backoff = f.backoffBase
		reason := f.readLoop(ctx, conn)
		conn.Close()

		if reason == reasonStop {
			return
		}
	}
}

type stopReason int

const (
	reasonError stopReason = iota
	reasonReconfigure
	reasonStop
)

func (f *Feed) connect() (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(f.url, nil)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	symbols := append([]string(nil), f.symbols...)
	f.mu.Unlock()

	return conn, f.subscribe(conn, symbols)
}

// subscribe sends the channel's subscription frame. The concrete payload
// shape is exchange-specific; callers needing a non-trivial subscribe frame
// should prefer a Decoder-aware wrapper — this sends the minimal Upbit-style
// ticket/type/codes frame spec.md §6 describes.
func (f *Feed) subscribe(conn *websocket.Conn, symbols []string) error {
	if len(symbols) == 0 {
		return nil
	}
	frame := buildSubscribeFrame(string(f.channel), symbols)
	return conn.WriteMessage(websocket.TextMessage, frame)
}

func (f *Feed) readLoop(ctx context.Context, conn *websocket.Conn) stopReason {
	msgCh := make(chan []byte, 64)
	errCh := make(chan error, 1)

	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				errCh <- err
				return
			}
			select {
			case msgCh <- data:
			default:
			}
		}
	}()

	heartbeat := time.NewTimer(f.heartbeatTimeout)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return reasonStop
		case <-f.stopCh:
			return reasonStop
		case symbols := <-f.reconfigure:
			f.mu.Lock()
			f.symbols = append([]string(nil), symbols...)
			f.mu.Unlock()
			return reasonReconfigure
		case err := <-errCh:
			f.log.Warnw("ingress: read error", "channel", f.channel, "err", err)
			return reasonError
		case data := <-msgCh:
			if !heartbeat.Stop() {
				<-heartbeat.C
			}
			heartbeat.Reset(f.heartbeatTimeout)
			f.handle(data)
		case <-heartbeat.C:
			f.log.Warnw("ingress: heartbeat timeout, reconnecting", "channel", f.channel)
			return reasonError
		}
	}
}

func (f *Feed) handle(data []byte) {
	tick, err := f.decoder.Decode(f.channel, data)
	if err != nil {
		f.log.Warnw("ingress: decode failed", "channel", f.channel, "err", err)
		return
	}
	if tick == nil {
		return
	}
	metrics.TicksIngested.WithLabelValues(tick.Symbol, string(f.channel)).Inc()
	f.sink.Submit(tick)
}

func (f *Feed) sleep(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-f.stopCh:
		return false
	case <-timer.C:
		return true
	}
}

func nextBackoff(current, max time.Duration) time.Duration {
	next := current * 2
	if next > max {
		return max
	}
	return next
}
