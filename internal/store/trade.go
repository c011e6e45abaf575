package store

import (
	"iter"
	"sync"

	"github.com/efreitasn/limitbook/internal/domain"
)

// TradeLedger is the engine-wide append-only record of executed trades in
// append order. Trades are stored by value and never modified once stored.
type TradeLedger struct {
	mu     sync.RWMutex
	trades []domain.Trade
}

// NewTradeLedger creates an empty TradeLedger.
func NewTradeLedger() *TradeLedger {
	return &TradeLedger{}
}

// Append stores trades in order, assigning each its 1-based ledger
// sequence. The sequences are written back into the caller's slice.
func (l *TradeLedger) Append(trades []domain.Trade) {
	if len(trades) == 0 {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range trades {
		trades[i].Sequence = uint64(len(l.trades)) + 1
		l.trades = append(l.trades, trades[i])
	}
}

// All returns an iterator over the ledger as of the call. The iterator can
// be ranged over any number of times and always yields the same trades;
// later appends are not visible through it.
func (l *TradeLedger) All() iter.Seq[domain.Trade] {
	l.mu.RLock()
	n := len(l.trades)
	view := l.trades[:n:n]
	l.mu.RUnlock()

	return func(yield func(domain.Trade) bool) {
		for _, t := range view {
			if !yield(t) {
				return
			}
		}
	}
}

// BySymbol returns an iterator over the trades of one symbol, in ledger order.
func (l *TradeLedger) BySymbol(symbol string) iter.Seq[domain.Trade] {
	all := l.All()
	return func(yield func(domain.Trade) bool) {
		for t := range all {
			if t.Symbol != symbol {
				continue
			}
			if !yield(t) {
				return
			}
		}
	}
}

// Len returns the number of trades recorded.
func (l *TradeLedger) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.trades)
}
