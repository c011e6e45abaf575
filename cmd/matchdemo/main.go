package main

import (
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/shopspring/decimal"

	"github.com/efreitasn/limitbook/internal/config"
	"github.com/efreitasn/limitbook/internal/domain"
	"github.com/efreitasn/limitbook/internal/engine"
	"github.com/efreitasn/limitbook/internal/metrics"
	"github.com/efreitasn/limitbook/internal/render"
)

func main() {
	symbolFlag := flag.String("symbol", "", "Symbol to trade (overrides DEMO_SYMBOL)")
	depth := flag.Int("depth", 0, "Price levels per side to print, 0 for all")
	showMetrics := flag.Bool("metrics", false, "Print engine metrics in Prometheus text format after the demo")
	flag.Parse()

	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Set up slog logger with configured level. Rendered output goes to
	// stdout, logs to stderr.
	var logLevel slog.Level
	switch cfg.LogLevel {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)

	symbol := cfg.DemoSymbol
	if *symbolFlag != "" {
		symbol = *symbolFlag
	}

	reg := prometheus.NewRegistry()
	m, err := metrics.New(cfg.MetricsNamespace, reg)
	if err != nil {
		logger.Error("failed to register metrics", slog.String("error", err.Error()))
		os.Exit(1)
	}

	eng := engine.New(
		engine.WithLogger(logger),
		engine.WithMetrics(m),
		engine.WithSymbols(cfg.Symbols...),
		engine.WithAutoCreateSymbols(cfg.AutoCreateSymbols),
		engine.WithFirstOrderID(cfg.FirstOrderID),
	)

	d := &demo{out: os.Stdout, engine: eng, symbol: symbol, depth: *depth}
	if err := d.run(); err != nil {
		logger.Error("demo failed", slog.String("symbol", symbol), slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *showMetrics {
		fmt.Fprintln(os.Stdout)
		if err := writeMetrics(os.Stdout, reg); err != nil {
			logger.Error("failed to write metrics", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	logger.Info("demo finished",
		slog.String("symbol", symbol),
		slog.Int("orders", eng.OrderCount()),
		slog.Int("resting", eng.RestingCount()),
		slog.Int("trades", eng.TradeCount()),
	)
}

// writeMetrics dumps every collector of g in the Prometheus text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("write %s: %w", mf.GetName(), err)
		}
	}
	return nil
}

// demo replays a fixed sequence of orders against one symbol and prints
// the book after each step.
type demo struct {
	out    io.Writer
	engine *engine.Engine
	symbol string
	depth  int
	// ids of the orders submitted so far, in submission order
	ids []uint64
}

func (d *demo) run() error {
	fmt.Fprintf(d.out, "1. Establishing initial %s order book\n", d.symbol)
	for _, o := range []struct {
		side  domain.OrderSide
		price int64
		qty   int64
	}{
		{domain.OrderSideSell, 50020, 10},
		{domain.OrderSideSell, 50050, 5},
		{domain.OrderSideSell, 50020, 5},
		{domain.OrderSideBuy, 49980, 20},
		{domain.OrderSideBuy, 49950, 15},
		{domain.OrderSideBuy, 49980, 10},
	} {
		if err := d.submit(o.side, o.price, o.qty); err != nil {
			return err
		}
	}
	if err := d.printBook(); err != nil {
		return err
	}

	fmt.Fprintln(d.out, "\n2. Incoming buy crossing the best ask")
	if err := d.submit(domain.OrderSideBuy, 50020, 15); err != nil {
		return err
	}
	if err := d.printBook(); err != nil {
		return err
	}

	fmt.Fprintln(d.out, "\n3. Incoming sell sweeping several bid levels")
	if err := d.submit(domain.OrderSideSell, 49900, 35); err != nil {
		return err
	}
	if err := d.printBook(); err != nil {
		return err
	}

	// The fifth order (the 49950 bid) is left partially filled by step 3.
	target := d.ids[4]
	fmt.Fprintf(d.out, "\n4. Cancelling the remainder of order %d\n", target)
	if err := d.engine.CancelSymbolOrder(d.symbol, target); err != nil {
		return fmt.Errorf("cancel order %d: %w", target, err)
	}
	fmt.Fprintf(d.out, "Cancellation successful for ID %d.\n", target)
	if err := d.printBook(); err != nil {
		return err
	}

	fmt.Fprintln(d.out, "\n5. Order with no match rests on the book")
	if err := d.submit(domain.OrderSideSell, 50500, 50); err != nil {
		return err
	}
	if err := d.printBook(); err != nil {
		return err
	}

	fmt.Fprintln(d.out)
	return render.Trades(d.out, d.engine.TradeHistory())
}

func (d *demo) submit(side domain.OrderSide, price, qty int64) error {
	res, err := d.engine.AddOrder(domain.Order{
		Symbol:   d.symbol,
		Side:     side,
		Price:    decimal.NewFromInt(price),
		Quantity: qty,
	})
	if err != nil {
		return fmt.Errorf("submit %s %d @ %d: %w", side, qty, price, err)
	}
	d.ids = append(d.ids, res.Order.OrderID)
	return render.Execution(d.out, res.Order, res.Trades)
}

func (d *demo) printBook() error {
	snap, err := d.engine.BookSnapshot(d.symbol, d.depth)
	if err != nil {
		return fmt.Errorf("snapshot %s: %w", d.symbol, err)
	}
	fmt.Fprintln(d.out)
	return render.Book(d.out, snap)
}
