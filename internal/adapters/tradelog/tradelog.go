// Package tradelog implements trader.TradeLogSink: an append-only record
// of every confirmed fill, per spec.md §6's {ts_iso_utc, side, symbol,
// price, volume} schema.
package tradelog

import (
	"context"
	"sync"

	"krw-trader/pkg/models"
)

// MemorySink is a thread-safe in-memory TradeLogSink, grounded on the
// map-plus-mutex, copy-on-read shape the teacher uses for its alert store.
// Useful for tests and for running without a configured Postgres DSN.
type MemorySink struct {
	mu    sync.RWMutex
	fills []models.OrderFill
}

// NewMemorySink returns an empty MemorySink.
func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// Record appends fill. Never returns an error; an in-memory sink cannot
// fail short of an out-of-memory condition.
func (s *MemorySink) Record(_ context.Context, fill models.OrderFill) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fills = append(s.fills, fill)
	return nil
}

// All returns a copy of every recorded fill, in recording order.
func (s *MemorySink) All() []models.OrderFill {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.OrderFill, len(s.fills))
	copy(out, s.fills)
	return out
}

// Count returns the number of recorded fills.
func (s *MemorySink) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.fills)
}
