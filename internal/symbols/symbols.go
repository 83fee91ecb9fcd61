// Package symbols implements the periodic active-symbol-set reselection
// original_source's symbol_manager.py drove: refresh a safe-ticker cache,
// intersect with the currently buyable symbols, rank by 24h volume, and
// publish the top N — no more often than once per stability window.
package symbols

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"krw-trader/internal/apiworker"
	"krw-trader/internal/indicator"
)

const safeTickerCacheTTL = time.Hour

// Config mirrors the symbol-selection knobs in config.Config.
type Config struct {
	TopN              int
	RefreshInterval   time.Duration
	MinStableInterval time.Duration
	ExcludeWarning    bool
	ExcludeSmallAcc   bool
}

// Manager is the sole writer of the active symbol set; SymbolManager's
// 5-step algorithm runs on maybeRefresh, gated by MinStableInterval. Every
// exchange call is routed through APIWorker so it shares the same
// token-bucket gating as Trader's order/balance calls (spec.md §4.9) —
// Manager never holds an exchange.Client directly.
type Manager struct {
	log     *zap.SugaredLogger
	api     *apiworker.Worker
	buyable *indicator.BuyableSet
	cfg     Config

	mu              sync.RWMutex
	active          []string
	lastPublishedAt time.Time

	safeTickers   map[string]bool
	safeTickersAt time.Time

	publishCh chan []string
}

// New builds a Manager. publishCh receives the newly-selected set each time
// it changes; cmd/trader relays it to the Ingress feeds and to Trader's
// rebind channel. api must be a
// dedicated APIWorker instance — one Manager owns the only reader of its
// Responses() channel, so it cannot share a Worker with Trader (whose own
// goroutine is the only reader of its instance). The two Workers share the
// same underlying ratelimit.Limiter and exchange.Client, so token-bucket
// gating still applies across both call sites.
func New(log *zap.SugaredLogger, api *apiworker.Worker, buyable *indicator.BuyableSet, cfg Config) *Manager {
	return &Manager{
		log:       log,
		api:       api,
		buyable:   buyable,
		cfg:       cfg,
		publishCh: make(chan []string, 1),
	}
}

// request submits req to APIWorker and blocks until the matching response
// arrives or ctx is canceled.
func (m *Manager) request(ctx context.Context, req apiworker.Request) (apiworker.Response, error) {
	req.RequestID = uuid.NewString()
	m.api.Submit(req)

	for {
		select {
		case <-ctx.Done():
			return apiworker.Response{}, ctx.Err()
		case resp := <-m.api.Responses():
			if resp.RequestID != req.RequestID {
				continue
			}
			if resp.Err != nil {
				return apiworker.Response{}, resp.Err
			}
			return resp, nil
		}
	}
}

// Publish returns the channel the newly-selected active symbol set is sent
// on whenever it changes.
func (m *Manager) Publish() <-chan []string {
	return m.publishCh
}

// Active returns a snapshot of the currently active symbol set.
func (m *Manager) Active() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.active...)
}

// Run ticks maybeRefresh on cfg.RefreshInterval until ctx is canceled.
func (m *Manager) Run(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	m.maybeRefresh(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.maybeRefresh(ctx)
		}
	}
}

// maybeRefresh runs the 5-step reselection if the stability window has
// elapsed since the last publish.
func (m *Manager) maybeRefresh(ctx context.Context) {
	m.mu.RLock()
	since := time.Since(m.lastPublishedAt)
	m.mu.RUnlock()

	if !m.lastPublishedAt.IsZero() && since < m.cfg.MinStableInterval {
		return
	}

	safe, err := m.safeSet(ctx)
	if err != nil {
		m.log.Warnw("symbols: refresh safe tickers failed", "err", err)
		return
	}

	candidates := m.candidateSet(safe)
	if len(candidates) == 0 {
		candidates = safe
	}

	ranked, err := m.rankByVolume(ctx, candidates)
	if err != nil {
		m.log.Warnw("symbols: rank by volume failed", "err", err)
		return
	}

	selected := ranked
	if len(selected) > m.cfg.TopN {
		selected = selected[:m.cfg.TopN]
	}

	m.publish(selected)
}

func (m *Manager) safeSet(ctx context.Context) (map[string]bool, error) {
	m.mu.Lock()
	fresh := time.Since(m.safeTickersAt) < safeTickerCacheTTL && m.safeTickers != nil
	m.mu.Unlock()
	if fresh {
		m.mu.RLock()
		defer m.mu.RUnlock()
		out := make(map[string]bool, len(m.safeTickers))
		for k, v := range m.safeTickers {
			out[k] = v
		}
		return out, nil
	}

	resp, err := m.request(ctx, apiworker.Request{Kind: apiworker.ReqGetMarkets})
	if err != nil {
		return nil, err
	}

	safe := make(map[string]bool)
	for _, mk := range resp.Markets {
		if m.cfg.ExcludeWarning && mk.Warning {
			continue
		}
		if m.cfg.ExcludeSmallAcc && mk.SmallAccountConcentration {
			continue
		}
		safe[mk.Symbol] = true
	}

	m.mu.Lock()
	m.safeTickers = safe
	m.safeTickersAt = time.Now()
	m.mu.Unlock()

	out := make(map[string]bool, len(safe))
	for k, v := range safe {
		out[k] = v
	}
	return out, nil
}

func (m *Manager) candidateSet(safe map[string]bool) []string {
	buyable := m.buyable.Snapshot()
	var out []string
	for symbol := range safe {
		if buyable[symbol] {
			out = append(out, symbol)
		}
	}
	return out
}

type ranked struct {
	symbol string
	volume float64
}

func (m *Manager) rankByVolume(ctx context.Context, candidates []string) ([]string, error) {
	if len(candidates) == 0 {
		return nil, nil
	}

	resp, err := m.request(ctx, apiworker.Request{Kind: apiworker.ReqGetTicker, Markets: candidates})
	if err != nil {
		return nil, err
	}

	entries := make([]ranked, 0, len(resp.Tickers))
	for _, t := range resp.Tickers {
		vol, _ := t.AccTradePrice24h.Float64()
		entries = append(entries, ranked{symbol: t.Symbol, volume: vol})
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].volume > entries[j].volume
	})

	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.symbol
	}
	return out, nil
}

func (m *Manager) publish(selected []string) {
	m.mu.Lock()
	if sameSet(m.active, selected) {
		m.mu.Unlock()
		return
	}
	m.active = append([]string(nil), selected...)
	m.lastPublishedAt = time.Now()
	m.mu.Unlock()

	select {
	case m.publishCh <- selected:
	default:
		select {
		case <-m.publishCh:
		default:
		}
		select {
		case m.publishCh <- selected:
		default:
		}
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
