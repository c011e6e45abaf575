package engine

import (
	"errors"
	"fmt"
	"testing"

	"github.com/efreitasn/limitbook/internal/domain"
	"pgregory.net/rapid"
)

// refOrder and refBook form a deliberately naive price-time matcher: a flat
// slice scanned for the best counterparty on every fill.
type refOrder struct {
	id        uint64
	side      domain.OrderSide
	price     int64
	remaining int64
	seq       int
}

type refTrade struct {
	buy, sell uint64
	price     int64
	qty       int64
}

type refBook struct {
	resting []*refOrder
	seq     int
}

func (b *refBook) add(id uint64, side domain.OrderSide, price, qty int64) []refTrade {
	b.seq++
	in := &refOrder{id: id, side: side, price: price, remaining: qty, seq: b.seq}
	var trades []refTrade

	for in.remaining > 0 {
		best := -1
		for i, r := range b.resting {
			if r.side == side {
				continue
			}
			if side == domain.OrderSideBuy && r.price > price || side == domain.OrderSideSell && r.price < price {
				continue
			}
			if best < 0 {
				best = i
				continue
			}
			cur := b.resting[best]
			better := r.price < cur.price
			if side == domain.OrderSideSell {
				better = r.price > cur.price
			}
			if better || r.price == cur.price && r.seq < cur.seq {
				best = i
			}
		}
		if best < 0 {
			break
		}
		r := b.resting[best]
		qty := min(in.remaining, r.remaining)
		tr := refTrade{buy: in.id, sell: r.id, price: r.price, qty: qty}
		if side == domain.OrderSideSell {
			tr.buy, tr.sell = r.id, in.id
		}
		trades = append(trades, tr)
		in.remaining -= qty
		r.remaining -= qty
		if r.remaining == 0 {
			b.resting = append(b.resting[:best], b.resting[best+1:]...)
		}
	}
	if in.remaining > 0 {
		b.resting = append(b.resting, in)
	}
	return trades
}

func (b *refBook) cancel(id uint64) bool {
	for i, r := range b.resting {
		if r.id == id {
			b.resting = append(b.resting[:i], b.resting[i+1:]...)
			return true
		}
	}
	return false
}

func assertNoCross(t *rapid.T, e *Engine, symbol string) {
	bid, okBid := e.BestBid(symbol)
	ask, okAsk := e.BestAsk(symbol)
	if okBid && okAsk && !bid.LessThan(ask) {
		t.Fatalf("%s crossed: best bid %s >= best ask %s", symbol, bid, ask)
	}
}

func TestProperty_EngineMatchesReferenceModel(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := New()
		ref := &refBook{}
		n := rapid.IntRange(1, 60).Draw(t, "numOps")
		var ids []uint64

		for i := 0; i < n; i++ {
			if len(ids) > 0 && rapid.IntRange(0, 3).Draw(t, fmt.Sprintf("op-%d", i)) == 0 {
				id := rapid.SampledFrom(ids).Draw(t, fmt.Sprintf("cancel-%d", i))
				err := e.CancelOrder(id)
				if want := ref.cancel(id); want != (err == nil) {
					t.Fatalf("cancel %d: engine err=%v, reference resting=%v", id, err, want)
				}
				if err != nil && !errors.Is(err, domain.ErrOrderNotFound) {
					t.Fatalf("cancel %d: unexpected error %v", id, err)
				}
			} else {
				id := uint64(i + 1)
				side := rapid.SampledFrom([]domain.OrderSide{domain.OrderSideBuy, domain.OrderSideSell}).Draw(t, fmt.Sprintf("side-%d", i))
				price := rapid.Int64Range(95, 105).Draw(t, fmt.Sprintf("price-%d", i))
				qty := rapid.Int64Range(1, 10).Draw(t, fmt.Sprintf("qty-%d", i))

				res, err := e.AddOrder(newLimitOrder(id, side, "TEST", price, qty))
				if err != nil {
					t.Fatalf("AddOrder(%d): %v", id, err)
				}
				got := res.Trades
				want := ref.add(id, side, price, qty)
				if len(got) != len(want) {
					t.Fatalf("order %d: engine produced %d trades, reference %d", id, len(got), len(want))
				}
				for j := range want {
					g := got[j]
					if g.BuyOrderID != want[j].buy || g.SellOrderID != want[j].sell ||
						g.Quantity != want[j].qty || !g.Price.Equal(px(want[j].price)) {
						t.Fatalf("order %d trade %d: got %d/%d %d @ %s, want %+v",
							id, j, g.BuyOrderID, g.SellOrderID, g.Quantity, g.Price, want[j])
					}
				}
				ids = append(ids, id)
			}
			assertNoCross(t, e, "TEST")
		}
	})
}

func TestProperty_QuantityConservation(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := New()
		n := rapid.IntRange(1, 40).Draw(t, "numOrders")
		var ids []uint64

		for i := 0; i < n; i++ {
			side := rapid.SampledFrom([]domain.OrderSide{domain.OrderSideBuy, domain.OrderSideSell}).Draw(t, fmt.Sprintf("side-%d", i))
			price := rapid.Int64Range(100, 110).Draw(t, fmt.Sprintf("price-%d", i))
			qty := rapid.Int64Range(1, 50).Draw(t, fmt.Sprintf("qty-%d", i))
			res, err := e.AddOrder(newLimitOrder(0, side, "TEST", price, qty))
			if err != nil {
				t.Fatalf("AddOrder: %v", err)
			}
			ids = append(ids, res.Order.OrderID)

			if rapid.Bool().Draw(t, fmt.Sprintf("cancel-%d", i)) {
				victim := rapid.SampledFrom(ids).Draw(t, fmt.Sprintf("victim-%d", i))
				_ = e.CancelOrder(victim)
			}
		}

		matched := make(map[uint64]int64)
		for tr := range e.TradeHistory() {
			if tr.Quantity <= 0 {
				t.Fatalf("trade %d has quantity %d", tr.Sequence, tr.Quantity)
			}
			matched[tr.BuyOrderID] += tr.Quantity
			matched[tr.SellOrderID] += tr.Quantity
		}

		for _, id := range ids {
			got, err := e.Order(id)
			if err != nil {
				t.Fatalf("Order(%d): %v", id, err)
			}
			if got.Quantity != got.RemainingQuantity+matched[got.OrderID] {
				t.Fatalf("order %d: quantity %d != remaining %d + matched %d",
					got.OrderID, got.Quantity, got.RemainingQuantity, matched[got.OrderID])
			}
			if got.FilledQuantity != matched[got.OrderID] {
				t.Fatalf("order %d: filled %d != matched %d", got.OrderID, got.FilledQuantity, matched[got.OrderID])
			}
			if got.RemainingQuantity == 0 && got.Status != domain.OrderStatusFilled {
				t.Fatalf("order %d has nothing left but status %s", got.OrderID, got.Status)
			}
		}
		assertNoCross(t, e, "TEST")
	})
}

func TestProperty_TimePriorityWithinPrice(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := New()
		n := rapid.IntRange(2, 20).Draw(t, "numResting")
		for i := 0; i < n; i++ {
			qty := rapid.Int64Range(1, 5).Draw(t, fmt.Sprintf("qty-%d", i))
			if _, err := e.AddOrder(newLimitOrder(uint64(i+1), domain.OrderSideSell, "TEST", 100, qty)); err != nil {
				t.Fatalf("AddOrder: %v", err)
			}
		}

		sweep := rapid.Int64Range(1, 100).Draw(t, "sweep")
		res, err := e.AddOrder(newLimitOrder(1000, domain.OrderSideBuy, "TEST", 100, sweep))
		if err != nil {
			t.Fatalf("AddOrder: %v", err)
		}
		for i, tr := range res.Trades {
			if tr.SellOrderID != uint64(i+1) {
				t.Fatalf("trade %d hit seller %d, want %d (arrival order)", i, tr.SellOrderID, i+1)
			}
		}
	})
}

func TestProperty_PricePriorityRegardlessOfArrival(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := New()
		prices := rapid.SliceOfNDistinct(rapid.Int64Range(1, 1000), 2, 15, rapid.ID[int64]).Draw(t, "prices")
		for i, p := range prices {
			if _, err := e.AddOrder(newLimitOrder(uint64(i+1), domain.OrderSideBuy, "TEST", p, 1)); err != nil {
				t.Fatalf("AddOrder: %v", err)
			}
		}

		res, err := e.AddOrder(newLimitOrder(1000, domain.OrderSideSell, "TEST", 1, int64(len(prices))))
		if err != nil {
			t.Fatalf("AddOrder: %v", err)
		}
		trades := res.Trades
		if len(trades) != len(prices) {
			t.Fatalf("expected %d trades, got %d", len(prices), len(trades))
		}
		for i := 1; i < len(trades); i++ {
			if !trades[i].Price.LessThan(trades[i-1].Price) {
				t.Fatalf("trade %d at %s after %s: bids must be hit best price first", i, trades[i].Price, trades[i-1].Price)
			}
		}
	})
}

func TestProperty_CancelSucceedsAtMostOnce(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		e := New()
		qty := rapid.Int64Range(1, 10).Draw(t, "qty")
		fill := rapid.Int64Range(0, 12).Draw(t, "fill")
		if _, err := e.AddOrder(newLimitOrder(1, domain.OrderSideSell, "TEST", 100, qty)); err != nil {
			t.Fatalf("AddOrder: %v", err)
		}
		if fill > 0 {
			if _, err := e.AddOrder(newLimitOrder(2, domain.OrderSideBuy, "TEST", 100, fill)); err != nil {
				t.Fatalf("AddOrder: %v", err)
			}
		}

		attempts := rapid.IntRange(2, 5).Draw(t, "attempts")
		successes := 0
		for i := 0; i < attempts; i++ {
			if err := e.CancelOrder(1); err == nil {
				successes++
			} else if !errors.Is(err, domain.ErrOrderNotFound) {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		wantSuccess := 0
		if fill < qty {
			wantSuccess = 1
		}
		if successes != wantSuccess {
			t.Fatalf("cancel succeeded %d times, want %d (qty=%d fill=%d)", successes, wantSuccess, qty, fill)
		}
	})
}
