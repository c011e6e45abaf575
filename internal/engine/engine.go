package engine

import (
	"errors"
	"io"
	"iter"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/efreitasn/limitbook/internal/domain"
	"github.com/efreitasn/limitbook/internal/metrics"
	"github.com/efreitasn/limitbook/internal/store"
	"github.com/shopspring/decimal"
)

// Engine is the multi-symbol matching engine. It routes orders to the
// book of their symbol, keeps the engine-wide order registry and the
// global trade ledger, and is safe for concurrent use.
//
// All mutations of one symbol's book are serialized by that book's lock;
// different symbols match in parallel. Trades of one incoming order are
// appended to the ledger while the book lock is held, so the ledger is in
// append-time order and each symbol's trades appear in matching order.
type Engine struct {
	books      *BookManager
	symbols    *domain.SymbolRegistry
	orders     *store.OrderStore
	trades     *store.TradeLedger
	autoCreate bool
	sequence   atomic.Uint64
	logger     *slog.Logger
	metrics    *metrics.Metrics
	now        func() time.Time
}

type options struct {
	logger       *slog.Logger
	metrics      *metrics.Metrics
	symbols      []string
	autoCreate   bool
	firstOrderID uint64
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*options)

// WithLogger sets the logger used for per-order debug logs.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithMetrics sets the collectors the engine updates.
func WithMetrics(m *metrics.Metrics) Option {
	return func(o *options) { o.metrics = m }
}

// WithSymbols pre-registers symbols.
func WithSymbols(symbols ...string) Option {
	return func(o *options) { o.symbols = append(o.symbols, symbols...) }
}

// WithAutoCreateSymbols controls whether an order for an unregistered
// symbol creates its book (the default) or fails with ErrUnknownSymbol.
func WithAutoCreateSymbols(enabled bool) Option {
	return func(o *options) { o.autoCreate = enabled }
}

// WithFirstOrderID sets the first id handed out to orders submitted with
// a zero OrderID.
func WithFirstOrderID(id uint64) Option {
	return func(o *options) { o.firstOrderID = id }
}

// WithClock overrides the time source for CreatedAt and ExecutedAt.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	o := options{
		autoCreate:   true,
		firstOrderID: 1,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	return &Engine{
		books:      NewBookManager(),
		symbols:    domain.NewSymbolRegistry(o.symbols...),
		orders:     store.NewOrderStore(o.firstOrderID),
		trades:     store.NewTradeLedger(),
		autoCreate: o.autoCreate,
		logger:     o.logger,
		metrics:    o.metrics,
		now:        o.now,
	}
}

// OrderResult reports the outcome of an accepted order.
type OrderResult struct {
	// Order is a copy of the order as of the end of the call, with its
	// assigned id, sequence and status.
	Order domain.Order
	// Trades are in execution order with their ledger sequence set.
	Trades []domain.Trade
}

// AddOrder submits a limit order. Only OrderID (zero lets the engine assign
// one), Symbol, Side, Price and Quantity are read from req; the engine
// keeps its own copy and later state is observed through Order.
//
// On error nothing is matched and nothing rests: ErrInvalidOrder (as a
// *domain.ValidationError), ErrUnknownSymbol or ErrDuplicateOrderID.
func (e *Engine) AddOrder(req domain.Order) (OrderResult, error) {
	if err := req.Validate(); err != nil {
		return OrderResult{}, e.reject(req, err)
	}
	if !e.autoCreate && !e.symbols.Exists(req.Symbol) {
		return OrderResult{}, e.reject(req, domain.ErrUnknownSymbol)
	}
	id, err := e.orders.Reserve(req.OrderID)
	if err != nil {
		return OrderResult{}, e.reject(req, err)
	}

	order := &domain.Order{
		OrderID:           id,
		Symbol:            req.Symbol,
		Side:              req.Side,
		Price:             req.Price,
		Quantity:          req.Quantity,
		RemainingQuantity: req.Quantity,
		Status:            domain.OrderStatusOpen,
		CreatedAt:         e.now(),
	}

	book := e.books.GetOrCreate(order.Symbol)
	book.mu.Lock()
	defer book.mu.Unlock()

	e.symbols.Register(order.Symbol)
	order.Sequence = e.sequence.Add(1)
	// Readers of a published order take the book lock.
	e.orders.Publish(order)
	e.metrics.OrderAccepted(order.Symbol, string(order.Side))

	start := time.Now()
	res := book.Match(order, order.CreatedAt)
	e.metrics.ObserveMatch(time.Since(start).Seconds())

	e.trades.Append(res.Trades)
	e.orders.Retire(res.Filled...)
	if res.Rested {
		e.orders.Rest(order.OrderID, order.Symbol)
	}

	for _, t := range res.Trades {
		e.metrics.TradeExecuted(t.Symbol, t.Quantity, t.Notional().InexactFloat64())
		e.logger.Debug("trade executed",
			slog.Uint64("sequence", t.Sequence),
			slog.String("symbol", t.Symbol),
			slog.Uint64("buy_order_id", t.BuyOrderID),
			slog.Uint64("sell_order_id", t.SellOrderID),
			slog.String("price", t.Price.String()),
			slog.Int64("quantity", t.Quantity),
		)
	}
	e.recordResting(book)
	e.logger.Debug("order processed",
		slog.Uint64("order_id", order.OrderID),
		slog.String("symbol", order.Symbol),
		slog.String("side", string(order.Side)),
		slog.String("price", order.Price.String()),
		slog.Int64("quantity", order.Quantity),
		slog.Int("trades", len(res.Trades)),
		slog.String("status", string(order.Status)),
	)

	return OrderResult{Order: *order, Trades: res.Trades}, nil
}

func (e *Engine) reject(req domain.Order, err error) error {
	reason := domain.ErrInvalidOrder.Error()
	switch {
	case errors.Is(err, domain.ErrDuplicateOrderID):
		reason = domain.ErrDuplicateOrderID.Error()
	case errors.Is(err, domain.ErrUnknownSymbol):
		reason = domain.ErrUnknownSymbol.Error()
	}
	e.metrics.OrderRejected(reason)
	e.logger.Debug("order rejected",
		slog.Uint64("order_id", req.OrderID),
		slog.String("symbol", req.Symbol),
		slog.String("reason", reason),
		slog.String("error", err.Error()),
	)
	return err
}

// CancelOrder cancels a resting order wherever it rests. It returns
// ErrOrderNotFound if the order never existed, was filled or was already
// cancelled.
func (e *Engine) CancelOrder(orderID uint64) error {
	symbol, ok := e.orders.Locate(orderID)
	if !ok {
		return domain.ErrOrderNotFound
	}
	book, ok := e.books.Get(symbol)
	if !ok {
		return domain.ErrOrderNotFound
	}
	return e.cancel(book, orderID)
}

// CancelSymbolOrder cancels a resting order on the book of symbol only.
func (e *Engine) CancelSymbolOrder(symbol string, orderID uint64) error {
	if !e.autoCreate && !e.symbols.Exists(symbol) {
		return domain.ErrUnknownSymbol
	}
	book, ok := e.books.Get(symbol)
	if !ok {
		return domain.ErrOrderNotFound
	}
	return e.cancel(book, orderID)
}

func (e *Engine) cancel(book *OrderBook, orderID uint64) error {
	book.mu.Lock()
	defer book.mu.Unlock()

	order, err := book.Cancel(orderID)
	if err != nil {
		return err
	}
	e.orders.Retire(orderID)
	e.metrics.OrderCancelled(book.Symbol())
	e.recordResting(book)
	e.logger.Debug("order cancelled",
		slog.Uint64("order_id", orderID),
		slog.String("symbol", book.Symbol()),
		slog.Int64("remaining_quantity", order.RemainingQuantity),
	)
	return nil
}

// recordResting publishes the book's resting order counts. The caller
// holds the book lock.
func (e *Engine) recordResting(book *OrderBook) {
	e.metrics.SetResting(book.Symbol(), string(domain.OrderSideBuy), book.BidCount(), book.BidLevels())
	e.metrics.SetResting(book.Symbol(), string(domain.OrderSideSell), book.AskCount(), book.AskLevels())
}

// Order returns a copy of an order's current state.
func (e *Engine) Order(orderID uint64) (domain.Order, error) {
	o, err := e.orders.Get(orderID)
	if err != nil {
		return domain.Order{}, err
	}
	// A published order's book always exists.
	book, ok := e.books.Get(o.Symbol)
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	book.RLock()
	defer book.RUnlock()
	return *o, nil
}

// OrderCount returns the number of orders accepted so far.
func (e *Engine) OrderCount() int {
	return e.orders.Len()
}

// RestingCount returns the number of orders resting across all books.
func (e *Engine) RestingCount() int {
	return e.orders.RestingLen()
}

// TradeHistory returns every trade executed so far, in ledger order. The
// iterator is restartable and does not copy the ledger.
func (e *Engine) TradeHistory() iter.Seq[domain.Trade] {
	return e.trades.All()
}

// SymbolTrades returns the trades of one symbol, in ledger order.
func (e *Engine) SymbolTrades(symbol string) iter.Seq[domain.Trade] {
	return e.trades.BySymbol(symbol)
}

// TradeCount returns the number of trades in the ledger.
func (e *Engine) TradeCount() int {
	return e.trades.Len()
}

// BookSnapshot copies up to depth price levels per side of symbol's book
// (all levels when depth <= 0). A symbol with no orders yet has an empty
// snapshot.
func (e *Engine) BookSnapshot(symbol string, depth int) (BookSnapshot, error) {
	if !e.autoCreate && !e.symbols.Exists(symbol) {
		return BookSnapshot{}, domain.ErrUnknownSymbol
	}
	book, ok := e.books.Get(symbol)
	if !ok {
		return BookSnapshot{Symbol: symbol, Bids: []LevelSnapshot{}, Asks: []LevelSnapshot{}}, nil
	}
	book.RLock()
	defer book.RUnlock()
	return book.Snapshot(depth), nil
}

// BestBid returns the highest bid price of symbol.
func (e *Engine) BestBid(symbol string) (decimal.Decimal, bool) {
	book, ok := e.books.Get(symbol)
	if !ok {
		return decimal.Decimal{}, false
	}
	book.RLock()
	defer book.RUnlock()
	return book.BestBid()
}

// BestAsk returns the lowest ask price of symbol.
func (e *Engine) BestAsk(symbol string) (decimal.Decimal, bool) {
	book, ok := e.books.Get(symbol)
	if !ok {
		return decimal.Decimal{}, false
	}
	book.RLock()
	defer book.RUnlock()
	return book.BestAsk()
}

// RegisterSymbol makes symbol known to the engine.
func (e *Engine) RegisterSymbol(symbol string) {
	e.symbols.Register(symbol)
}

// Symbols returns the known symbols in lexical order.
func (e *Engine) Symbols() []string {
	return e.symbols.List()
}
