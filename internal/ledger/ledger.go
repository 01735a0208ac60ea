// Package ledger records executed trades for later inspection.
package ledger

import (
	"sync"

	"github.com/InsideOutbtc/Nockchain-sub002/internal/venue"
)

// TradeRecorder captures executed trades for later inspection.
type TradeRecorder interface {
	Record(venue.Trade)
}

// Ledger stores trades in memory for quick inspection.
type Ledger struct {
	mu     sync.Mutex
	trades []venue.Trade
}

// NewLedger creates an empty ledger optionally pre-sizing storage.
func NewLedger(capacity int) *Ledger {
	if capacity < 0 {
		capacity = 0
	}
	return &Ledger{trades: make([]venue.Trade, 0, capacity)}
}

// Record appends a trade to the ledger.
func (l *Ledger) Record(trade venue.Trade) {
	l.mu.Lock()
	l.trades = append(l.trades, trade)
	l.mu.Unlock()
}

// Snapshot returns a copy of the recorded trades.
func (l *Ledger) Snapshot() []venue.Trade {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]venue.Trade, len(l.trades))
	copy(out, l.trades)
	return out
}

// Reset clears all stored trades.
func (l *Ledger) Reset() {
	l.mu.Lock()
	l.trades = l.trades[:0]
	l.mu.Unlock()
}
