package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Trade is an execution between a buy and a sell order. Price is always the
// price of the order that was resting on the book.
type Trade struct {
	TradeID     string
	Symbol      string
	BuyOrderID  uint64
	SellOrderID uint64
	Price       decimal.Decimal
	Quantity    int64
	Sequence    uint64 // position in the engine-wide ledger, starting at 1
	ExecutedAt  time.Time
}

// Notional returns price × quantity.
func (t Trade) Notional() decimal.Decimal {
	return t.Price.Mul(decimal.NewFromInt(t.Quantity))
}

func (t Trade) String() string {
	return fmt.Sprintf("#%d %s | Executed %d @ %s | Buy ID: %d, Sell ID: %d",
		t.Sequence, t.Symbol, t.Quantity, t.Price, t.BuyOrderID, t.SellOrderID)
}
