package engine

import (
	"container/list"

	"github.com/efreitasn/limitbook/internal/domain"
	"github.com/shopspring/decimal"
)

// PriceLevel is the FIFO queue of resting orders at one price on one side
// of a book. The queue is a doubly-linked list so an order can be unlinked
// from any position in O(1) given its element.
type PriceLevel struct {
	Price         decimal.Decimal
	orders        *list.List // of *domain.Order, arrival order
	totalQuantity int64
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		orders: list.New(),
	}
}

// push appends o to the back of the queue.
func (l *PriceLevel) push(o *domain.Order) *list.Element {
	l.totalQuantity += o.RemainingQuantity
	return l.orders.PushBack(o)
}

// front returns the order with time priority, or nil for an empty level.
func (l *PriceLevel) front() *domain.Order {
	e := l.orders.Front()
	if e == nil {
		return nil
	}
	return e.Value.(*domain.Order)
}

// remove unlinks e and returns its order.
func (l *PriceLevel) remove(e *list.Element) *domain.Order {
	o := l.orders.Remove(e).(*domain.Order)
	l.totalQuantity -= o.RemainingQuantity
	return o
}

// reduce accounts for qty executed against an order in this level.
func (l *PriceLevel) reduce(qty int64) {
	l.totalQuantity -= qty
}

// Len returns the number of orders queued at this price.
func (l *PriceLevel) Len() int {
	return l.orders.Len()
}

// TotalQuantity returns the aggregate remaining quantity at this price.
func (l *PriceLevel) TotalQuantity() int64 {
	return l.totalQuantity
}

// Walk calls fn for each order in time priority until fn returns false.
func (l *PriceLevel) Walk(fn func(*domain.Order) bool) {
	for e := l.orders.Front(); e != nil; e = e.Next() {
		if !fn(e.Value.(*domain.Order)) {
			return
		}
	}
}

// bidLess orders bid levels by price descending so Min() is the best bid.
func bidLess(a, b *PriceLevel) bool {
	return a.Price.GreaterThan(b.Price)
}

// askLess orders ask levels by price ascending so Min() is the best ask.
func askLess(a, b *PriceLevel) bool {
	return a.Price.LessThan(b.Price)
}
