// Package render formats book snapshots and trades as plain text for
// terminals and logs.
package render

import (
	"fmt"
	"io"
	"iter"
	"text/tabwriter"

	"github.com/efreitasn/limitbook/internal/domain"
	"github.com/efreitasn/limitbook/internal/engine"
)

// Book writes both sides of a snapshot, asks lowest first then bids
// highest first, with per-order detail under each level.
func Book(w io.Writer, snap engine.BookSnapshot) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "--- Order Book for %s ---\n", snap.Symbol)
	writeSide(tw, "ASKS (Lowest Price)", snap.Asks)
	writeSide(tw, "BIDS (Highest Price)", snap.Bids)
	if spread, ok := snap.Spread(); ok {
		fmt.Fprintf(tw, "Spread: %s\n", spread)
	}
	fmt.Fprintln(tw, "---------------------------------")
	return tw.Flush()
}

func writeSide(w io.Writer, title string, levels []engine.LevelSnapshot) {
	fmt.Fprintf(w, "\n%s\n", title)
	if len(levels) == 0 {
		fmt.Fprintln(w, "  (Empty)")
		return
	}
	for _, lvl := range levels {
		fmt.Fprintf(w, "  [Price: %s]\tTotal Qty: %d\t(%d orders)\n", lvl.Price, lvl.TotalQuantity, lvl.OrderCount)
		for _, o := range lvl.Orders {
			fmt.Fprintf(w, "    -> %s\n", o)
		}
	}
}

// Trades writes one line per trade. An empty sequence prints a
// placeholder line.
func Trades(w io.Writer, trades iter.Seq[domain.Trade]) error {
	if _, err := fmt.Fprintln(w, "--- All Executed Trades ---"); err != nil {
		return err
	}
	n := 0
	for t := range trades {
		if _, err := fmt.Fprintln(w, t); err != nil {
			return err
		}
		n++
	}
	if n == 0 {
		if _, err := fmt.Fprintln(w, "No trades executed yet."); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "---------------------------")
	return err
}

// Execution writes the trades produced by a single order, then what is
// left of it on the book, if anything.
func Execution(w io.Writer, order domain.Order, trades []domain.Trade) error {
	if _, err := fmt.Fprintf(w, "Processing: %s\n", order); err != nil {
		return err
	}
	if len(trades) > 0 {
		if _, err := fmt.Fprintln(w, "--- Executed Trades ---"); err != nil {
			return err
		}
		for _, t := range trades {
			if _, err := fmt.Fprintf(w, "  %s\n", t); err != nil {
				return err
			}
		}
	}
	if order.Status.Terminal() {
		return nil
	}
	var err error
	if len(trades) == 0 {
		_, err = fmt.Fprintln(w, "No immediate match found. Order resting in book.")
	} else {
		_, err = fmt.Fprintf(w, "Remaining %d resting in book.\n", order.RemainingQuantity)
	}
	return err
}
