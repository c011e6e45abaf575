package engine

import (
	"github.com/efreitasn/limitbook/internal/domain"
	"github.com/shopspring/decimal"
)

// LevelSnapshot is a read-only copy of one price level.
type LevelSnapshot struct {
	Price         decimal.Decimal
	TotalQuantity int64
	OrderCount    int
	Orders        []domain.Order // copies, in time priority
}

// BookSnapshot is a read-only copy of a symbol's book. Both sides are
// ordered best first.
type BookSnapshot struct {
	Symbol string
	Bids   []LevelSnapshot
	Asks   []LevelSnapshot
}

// BestBid returns the highest bid level, if any.
func (s BookSnapshot) BestBid() (LevelSnapshot, bool) {
	if len(s.Bids) == 0 {
		return LevelSnapshot{}, false
	}
	return s.Bids[0], true
}

// BestAsk returns the lowest ask level, if any.
func (s BookSnapshot) BestAsk() (LevelSnapshot, bool) {
	if len(s.Asks) == 0 {
		return LevelSnapshot{}, false
	}
	return s.Asks[0], true
}

// Spread returns best ask minus best bid when both sides are present.
func (s BookSnapshot) Spread() (decimal.Decimal, bool) {
	bid, okBid := s.BestBid()
	ask, okAsk := s.BestAsk()
	if !okBid || !okAsk {
		return decimal.Decimal{}, false
	}
	return ask.Price.Sub(bid.Price), true
}

// Snapshot copies up to depth levels per side; depth <= 0 copies all.
// The caller must hold at least the read lock.
func (ob *OrderBook) Snapshot(depth int) BookSnapshot {
	return BookSnapshot{
		Symbol: ob.symbol,
		Bids:   snapshotLevels(ob.WalkBids, depth),
		Asks:   snapshotLevels(ob.WalkAsks, depth),
	}
}

func snapshotLevels(walk func(func(*PriceLevel) bool), depth int) []LevelSnapshot {
	levels := make([]LevelSnapshot, 0)
	walk(func(level *PriceLevel) bool {
		if depth > 0 && len(levels) >= depth {
			return false
		}
		ls := LevelSnapshot{
			Price:         level.Price,
			TotalQuantity: level.TotalQuantity(),
			OrderCount:    level.Len(),
			Orders:        make([]domain.Order, 0, level.Len()),
		}
		level.Walk(func(o *domain.Order) bool {
			ls.Orders = append(ls.Orders, *o)
			return true
		})
		levels = append(levels, ls)
		return true
	})
	return levels
}
