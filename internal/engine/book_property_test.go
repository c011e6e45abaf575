package engine

import (
	"fmt"
	"testing"

	"github.com/efreitasn/limitbook/internal/domain"
	"pgregory.net/rapid"
)

// checkBookInvariants verifies ladder ordering, the no-cross condition and
// that the cancellation index agrees with the queues.
func checkBookInvariants(t *rapid.T, ob *OrderBook) {
	seen := 0
	checkSide := func(side domain.OrderSide, walk func(func(*PriceLevel) bool), better func(a, b *PriceLevel) bool) int {
		var prev *PriceLevel
		count := 0
		walk(func(level *PriceLevel) bool {
			if prev != nil && !better(prev, level) {
				t.Fatalf("%s ladder out of order: %s before %s", side, prev.Price, level.Price)
			}
			if level.Len() == 0 {
				t.Fatalf("%s level %s is empty but still in the ladder", side, level.Price)
			}
			var total int64
			var lastSeq uint64
			level.Walk(func(o *domain.Order) bool {
				if o.RemainingQuantity <= 0 {
					t.Fatalf("order %d rests with remaining %d", o.OrderID, o.RemainingQuantity)
				}
				if o.Side != side || !o.Price.Equal(level.Price) {
					t.Fatalf("order %d (%s @ %s) in %s level %s", o.OrderID, o.Side, o.Price, side, level.Price)
				}
				if o.Sequence <= lastSeq {
					t.Fatalf("level %s not in sequence order: %d after %d", level.Price, o.Sequence, lastSeq)
				}
				lastSeq = o.Sequence
				loc, ok := ob.index[o.OrderID]
				if !ok || loc.level != level || loc.side != side {
					t.Fatalf("order %d missing or misplaced in index", o.OrderID)
				}
				total += o.RemainingQuantity
				count++
				return true
			})
			if total != level.TotalQuantity() {
				t.Fatalf("level %s total %d, sum of orders %d", level.Price, level.TotalQuantity(), total)
			}
			prev = level
			return true
		})
		return count
	}

	bids := checkSide(domain.OrderSideBuy, ob.WalkBids, bidLess)
	asks := checkSide(domain.OrderSideSell, ob.WalkAsks, askLess)
	seen = bids + asks

	if bids != ob.BidCount() || asks != ob.AskCount() {
		t.Fatalf("counts bid=%d ask=%d, walked %d/%d", ob.BidCount(), ob.AskCount(), bids, asks)
	}
	if seen != len(ob.index) {
		t.Fatalf("index has %d entries, book has %d orders", len(ob.index), seen)
	}

	bestBid, okBid := ob.BestBid()
	bestAsk, okAsk := ob.BestAsk()
	if okBid && okAsk && !bestBid.LessThan(bestAsk) {
		t.Fatalf("book crossed: best bid %s >= best ask %s", bestBid, bestAsk)
	}
}

func TestProperty_BookInvariantsUnderRandomFlow(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		ob := NewOrderBook("TEST")
		n := rapid.IntRange(1, 80).Draw(t, "numOps")
		var ids []uint64

		for i := 0; i < n; i++ {
			id := uint64(i + 1)
			if len(ids) > 0 && rapid.IntRange(0, 4).Draw(t, fmt.Sprintf("op-%d", i)) == 0 {
				target := rapid.SampledFrom(ids).Draw(t, fmt.Sprintf("cancel-%d", i))
				_, _ = ob.Cancel(target)
			} else {
				side := rapid.SampledFrom([]domain.OrderSide{domain.OrderSideBuy, domain.OrderSideSell}).Draw(t, fmt.Sprintf("side-%d", i))
				price := rapid.Int64Range(90, 110).Draw(t, fmt.Sprintf("price-%d", i))
				qty := rapid.Int64Range(1, 20).Draw(t, fmt.Sprintf("qty-%d", i))
				ob.Match(newBookOrder(id, side, price, qty), baseTime)
				ids = append(ids, id)
			}
			checkBookInvariants(t, ob)
		}
	})
}
