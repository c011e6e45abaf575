package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether an order buys (bid) or sells (ask).
type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

// Valid reports whether s is one of the known sides.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// Opposite returns the side an order of side s matches against.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen            OrderStatus = "open"
	OrderStatusPartiallyFilled OrderStatus = "partially_filled"
	OrderStatusFilled          OrderStatus = "filled"
	OrderStatusCancelled       OrderStatus = "cancelled"
)

// Terminal reports whether no further fills or cancellation can apply.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFilled || s == OrderStatusCancelled
}

// Order is a limit order. The caller fills in OrderID (zero lets the engine
// pick one), Symbol, Side, Price and Quantity; the engine owns everything
// else once the order is accepted.
type Order struct {
	OrderID           uint64
	Symbol            string
	Side              OrderSide
	Price             decimal.Decimal
	Quantity          int64 // original quantity
	RemainingQuantity int64
	FilledQuantity    int64
	Sequence          uint64 // arrival counter, tie-break within a price
	Status            OrderStatus
	CreatedAt         time.Time
}

// Validate checks the caller-supplied fields of an incoming order.
func (o *Order) Validate() error {
	if o.Symbol == "" {
		return &ValidationError{Field: "symbol", Message: "symbol must not be empty"}
	}
	if !o.Side.Valid() {
		return &ValidationError{Field: "side", Message: fmt.Sprintf("unknown side %q, must be one of: buy, sell", o.Side)}
	}
	if !o.Price.IsPositive() {
		return &ValidationError{Field: "price", Message: fmt.Sprintf("price must be > 0, got %s", o.Price)}
	}
	if o.Quantity <= 0 {
		return &ValidationError{Field: "quantity", Message: fmt.Sprintf("quantity must be > 0, got %d", o.Quantity)}
	}
	return nil
}

// Fill records an execution of qty against the order and moves it to
// partially_filled or filled.
func (o *Order) Fill(qty int64) {
	o.RemainingQuantity -= qty
	o.FilledQuantity += qty
	if o.RemainingQuantity == 0 {
		o.Status = OrderStatusFilled
	} else {
		o.Status = OrderStatusPartiallyFilled
	}
}

func (o Order) String() string {
	return fmt.Sprintf("ID: %d, %s %s @ %s (Qty: %d/%d) | Seq: %d | %s",
		o.OrderID, o.Side, o.Symbol, o.Price, o.RemainingQuantity, o.Quantity, o.Sequence, o.Status)
}
