// Package metrics holds the Prometheus collectors updated by the matching
// engine. A nil *Metrics is valid and records nothing.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the set of engine collectors registered on one registry.
type Metrics struct {
	ordersAccepted  *prometheus.CounterVec
	ordersRejected  *prometheus.CounterVec
	ordersCancelled *prometheus.CounterVec
	tradesExecuted  *prometheus.CounterVec
	volumeTraded    *prometheus.CounterVec
	notionalTraded  *prometheus.CounterVec
	restingOrders   *prometheus.GaugeVec
	priceLevels     *prometheus.GaugeVec
	matchLatency    prometheus.Histogram
}

// New creates the engine collectors under namespace and registers them on
// reg. It returns an error if any collector is already registered.
func New(namespace string, reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		ordersAccepted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_accepted_total",
			Help:      "Orders accepted by the engine",
		}, []string{"symbol", "side"}),
		ordersRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_rejected_total",
			Help:      "Orders rejected before reaching a book, by reason",
		}, []string{"reason"}),
		ordersCancelled: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_cancelled_total",
			Help:      "Resting orders cancelled",
		}, []string{"symbol"}),
		tradesExecuted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "trades_executed_total",
			Help:      "Trades executed",
		}, []string{"symbol"}),
		volumeTraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "volume_traded_total",
			Help:      "Quantity executed across all trades",
		}, []string{"symbol"}),
		notionalTraded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notional_traded_total",
			Help:      "Price times quantity across all trades",
		}, []string{"symbol"}),
		restingOrders: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "resting_orders",
			Help:      "Orders currently resting on the book",
		}, []string{"symbol", "side"}),
		priceLevels: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "price_levels",
			Help:      "Distinct prices currently on the book",
		}, []string{"symbol", "side"}),
		matchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "match_duration_seconds",
			Help:      "Time spent inside the matching loop per incoming order",
			Buckets:   []float64{1e-6, 5e-6, 1e-5, 5e-5, 1e-4, 5e-4, 1e-3, 5e-3, 1e-2},
		}),
	}

	for _, c := range []prometheus.Collector{
		m.ordersAccepted,
		m.ordersRejected,
		m.ordersCancelled,
		m.tradesExecuted,
		m.volumeTraded,
		m.notionalTraded,
		m.restingOrders,
		m.priceLevels,
		m.matchLatency,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// OrderAccepted counts an order that passed validation.
func (m *Metrics) OrderAccepted(symbol, side string) {
	if m == nil {
		return
	}
	m.ordersAccepted.WithLabelValues(symbol, side).Inc()
}

// OrderRejected counts a rejected order; reason is the sentinel error text.
func (m *Metrics) OrderRejected(reason string) {
	if m == nil {
		return
	}
	m.ordersRejected.WithLabelValues(reason).Inc()
}

// OrderCancelled counts a successful cancellation.
func (m *Metrics) OrderCancelled(symbol string) {
	if m == nil {
		return
	}
	m.ordersCancelled.WithLabelValues(symbol).Inc()
}

// TradeExecuted counts one trade of qty with the given notional value.
func (m *Metrics) TradeExecuted(symbol string, qty int64, notional float64) {
	if m == nil {
		return
	}
	m.tradesExecuted.WithLabelValues(symbol).Inc()
	m.volumeTraded.WithLabelValues(symbol).Add(float64(qty))
	m.notionalTraded.WithLabelValues(symbol).Add(notional)
}

// SetResting records the number of resting orders and distinct prices on
// one side of a book.
func (m *Metrics) SetResting(symbol, side string, orders, levels int) {
	if m == nil {
		return
	}
	m.restingOrders.WithLabelValues(symbol, side).Set(float64(orders))
	m.priceLevels.WithLabelValues(symbol, side).Set(float64(levels))
}

// ObserveMatch records the duration of one matching pass in seconds.
func (m *Metrics) ObserveMatch(seconds float64) {
	if m == nil {
		return
	}
	m.matchLatency.Observe(seconds)
}
