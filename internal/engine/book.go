package engine

import (
	"container/list"
	"sync"
	"time"

	"github.com/efreitasn/limitbook/internal/domain"
	"github.com/google/btree"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// location is where a resting order sits: its side, its level and its
// node in the level's queue.
type location struct {
	side  domain.OrderSide
	level *PriceLevel
	elem  *list.Element
}

// MatchResult is the outcome of running one incoming order against a book.
type MatchResult struct {
	Trades []domain.Trade
	Filled []uint64 // resting orders that were fully filled and removed
	Rested bool     // the incoming remainder was placed on the book
}

// OrderBook maintains the bid and ask ladders for a single symbol. Each
// ladder is a B-tree of price levels; index maps a resting order id to its
// location so cancellation never scans the book.
//
// OrderBook is not safe for concurrent mutation on its own. The engine
// holds mu for writing around Match and Cancel and for reading around
// snapshots.
type OrderBook struct {
	symbol    string
	mu        sync.RWMutex
	bids      *btree.BTreeG[*PriceLevel]
	asks      *btree.BTreeG[*PriceLevel]
	index     map[uint64]location
	bidOrders int
	askOrders int
}

// NewOrderBook creates an empty order book for the given symbol.
func NewOrderBook(symbol string) *OrderBook {
	const degree = 32
	return &OrderBook{
		symbol: symbol,
		bids:   btree.NewG[*PriceLevel](degree, bidLess),
		asks:   btree.NewG[*PriceLevel](degree, askLess),
		index:  make(map[uint64]location),
	}
}

// Symbol returns the symbol this book trades.
func (ob *OrderBook) Symbol() string {
	return ob.symbol
}

// RLock acquires the read lock on the order book.
func (ob *OrderBook) RLock() {
	ob.mu.RLock()
}

// RUnlock releases the read lock on the order book.
func (ob *OrderBook) RUnlock() {
	ob.mu.RUnlock()
}

func (ob *OrderBook) ladder(side domain.OrderSide) *btree.BTreeG[*PriceLevel] {
	if side == domain.OrderSideBuy {
		return ob.bids
	}
	return ob.asks
}

func (ob *OrderBook) adjustCount(side domain.OrderSide, delta int) {
	if side == domain.OrderSideBuy {
		ob.bidOrders += delta
	} else {
		ob.askOrders += delta
	}
}

// crosses reports whether an incoming order at price may trade against a
// resting level at best.
func crosses(side domain.OrderSide, price, best decimal.Decimal) bool {
	if side == domain.OrderSideBuy {
		return price.GreaterThanOrEqual(best)
	}
	return price.LessThanOrEqual(best)
}

// Match runs an incoming order against the opposite ladder in price-time
// priority and rests any remainder on the order's own side. Trades execute
// at the resting order's price. The returned trades carry no ledger
// sequence yet.
func (ob *OrderBook) Match(order *domain.Order, executedAt time.Time) MatchResult {
	var res MatchResult
	opposite := ob.ladder(order.Side.Opposite())

	for order.RemainingQuantity > 0 {
		best, ok := opposite.Min()
		if !ok || !crosses(order.Side, order.Price, best.Price) {
			break
		}

		resting := best.front()
		fillQty := min(order.RemainingQuantity, resting.RemainingQuantity)

		buyID, sellID := order.OrderID, resting.OrderID
		if order.Side == domain.OrderSideSell {
			buyID, sellID = sellID, buyID
		}
		res.Trades = append(res.Trades, domain.Trade{
			TradeID:     uuid.New().String(),
			Symbol:      ob.symbol,
			BuyOrderID:  buyID,
			SellOrderID: sellID,
			Price:       resting.Price,
			Quantity:    fillQty,
			ExecutedAt:  executedAt,
		})

		order.Fill(fillQty)
		resting.Fill(fillQty)
		best.reduce(fillQty)

		// A partially filled resting order keeps its place at the front.
		if resting.RemainingQuantity == 0 {
			loc := ob.index[resting.OrderID]
			best.remove(loc.elem)
			delete(ob.index, resting.OrderID)
			ob.adjustCount(loc.side, -1)
			res.Filled = append(res.Filled, resting.OrderID)
			if best.Len() == 0 {
				opposite.Delete(best)
			}
		}
	}

	if order.RemainingQuantity > 0 {
		ob.rest(order)
		res.Rested = true
	}
	return res
}

// rest appends order to the back of its price level, creating the level if
// needed, and indexes it.
func (ob *OrderBook) rest(order *domain.Order) {
	tree := ob.ladder(order.Side)
	level, ok := tree.Get(&PriceLevel{Price: order.Price})
	if !ok {
		level = newPriceLevel(order.Price)
		tree.ReplaceOrInsert(level)
	}
	elem := level.push(order)
	ob.index[order.OrderID] = location{side: order.Side, level: level, elem: elem}
	ob.adjustCount(order.Side, 1)
}

// Cancel removes a resting order from the book and marks it cancelled.
// It returns domain.ErrOrderNotFound if the order is not resting here,
// including when it was already filled or cancelled.
func (ob *OrderBook) Cancel(orderID uint64) (*domain.Order, error) {
	loc, ok := ob.index[orderID]
	if !ok {
		return nil, domain.ErrOrderNotFound
	}
	delete(ob.index, orderID)

	order := loc.level.remove(loc.elem)
	if loc.level.Len() == 0 {
		ob.ladder(loc.side).Delete(loc.level)
	}
	ob.adjustCount(loc.side, -1)
	order.Status = domain.OrderStatusCancelled
	return order, nil
}

// BestBid returns the highest bid price.
func (ob *OrderBook) BestBid() (decimal.Decimal, bool) {
	level, ok := ob.bids.Min()
	if !ok {
		return decimal.Decimal{}, false
	}
	return level.Price, true
}

// BestAsk returns the lowest ask price.
func (ob *OrderBook) BestAsk() (decimal.Decimal, bool) {
	level, ok := ob.asks.Min()
	if !ok {
		return decimal.Decimal{}, false
	}
	return level.Price, true
}

// WalkBids iterates bid levels best first (highest price). The callback
// returns true to continue, false to stop.
func (ob *OrderBook) WalkBids(fn func(*PriceLevel) bool) {
	ob.bids.Ascend(fn)
}

// WalkAsks iterates ask levels best first (lowest price).
func (ob *OrderBook) WalkAsks(fn func(*PriceLevel) bool) {
	ob.asks.Ascend(fn)
}

// BidCount returns the number of individual bid orders on the book.
func (ob *OrderBook) BidCount() int {
	return ob.bidOrders
}

// AskCount returns the number of individual ask orders on the book.
func (ob *OrderBook) AskCount() int {
	return ob.askOrders
}

// BidLevels returns the number of distinct bid prices.
func (ob *OrderBook) BidLevels() int {
	return ob.bids.Len()
}

// AskLevels returns the number of distinct ask prices.
func (ob *OrderBook) AskLevels() int {
	return ob.asks.Len()
}

// BookManager is a thread-safe map of symbol → OrderBook.
type BookManager struct {
	mu    sync.RWMutex
	books map[string]*OrderBook
}

// NewBookManager creates a new BookManager.
func NewBookManager() *BookManager {
	return &BookManager{
		books: make(map[string]*OrderBook),
	}
}

// Get returns the order book for symbol if one has been created.
func (bm *BookManager) Get(symbol string) (*OrderBook, bool) {
	bm.mu.RLock()
	defer bm.mu.RUnlock()
	book, ok := bm.books[symbol]
	return book, ok
}

// GetOrCreate returns the order book for the given symbol, creating
// one if it doesn't already exist.
func (bm *BookManager) GetOrCreate(symbol string) *OrderBook {
	bm.mu.RLock()
	book, ok := bm.books[symbol]
	bm.mu.RUnlock()
	if ok {
		return book
	}

	bm.mu.Lock()
	defer bm.mu.Unlock()
	// Double-check after acquiring write lock.
	if book, ok = bm.books[symbol]; ok {
		return book
	}
	book = NewOrderBook(symbol)
	bm.books[symbol] = book
	return book
}
