package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 私有 registry，避免与全局默认指标混用
type Metrics struct {
	registry *prometheus.Registry

	snapshots         prometheus.Counter
	snapshotsDegraded prometheus.Counter
	snapshotErrors    prometheus.Counter
	orders            *prometheus.CounterVec
	httpRequests      *prometheus.CounterVec
	equity            prometheus.Gauge
	unrealizedPnL     prometheus.Gauge
	fundingSpread     *prometheus.GaugeVec
}

func New(namespace string) *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,

		snapshots: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_total",
			Help:      "Portfolio snapshots computed",
		}),
		snapshotsDegraded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshots_degraded_total",
			Help:      "Snapshots computed with missing prices or funding rates",
		}),
		snapshotErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "snapshot_errors_total",
			Help:      "Snapshots that failed to compute or archive",
		}),
		orders: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Simulated orders by kind and result",
		}, []string{"kind", "result"}),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method and status",
		}, []string{"method", "status"}),
		equity: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_equity_usd",
			Help:      "Total equity of the monitored account",
		}),
		unrealizedPnL: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "portfolio_unrealized_pnl_usd",
			Help:      "Unrealized PnL of the monitored account",
		}),
		fundingSpread: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "position_funding_spread",
			Help:      "Current per-period funding spread of open positions",
		}, []string{"position", "asset"}),
	}

	registry.MustRegister(
		m.snapshots,
		m.snapshotsDegraded,
		m.snapshotErrors,
		m.orders,
		m.httpRequests,
		m.equity,
		m.unrealizedPnL,
		m.fundingSpread,
		collectors.NewGoCollector(),
	)
	return m
}

// Handler /metrics
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// ObserveOrder kind: trade/position/close，result: ok/rejected/error
func (m *Metrics) ObserveOrder(kind, result string) {
	if m == nil {
		return
	}
	m.orders.WithLabelValues(kind, result).Inc()
}

func (m *Metrics) ObserveRequest(method, status string) {
	if m == nil {
		return
	}
	m.httpRequests.WithLabelValues(method, status).Inc()
}

func (m *Metrics) ObserveSnapshotError() {
	if m == nil {
		return
	}
	m.snapshotErrors.Inc()
}

// ObserveSnapshot 记录一次快照；spreads 为 position -> (asset, spread)
func (m *Metrics) ObserveSnapshot(equity, unrealizedPnL float64, degraded bool, spreads map[string]AssetSpread) {
	if m == nil {
		return
	}
	m.snapshots.Inc()
	if degraded {
		m.snapshotsDegraded.Inc()
	}
	m.equity.Set(equity)
	m.unrealizedPnL.Set(unrealizedPnL)

	m.fundingSpread.Reset()
	for pos, s := range spreads {
		m.fundingSpread.WithLabelValues(pos, s.Asset).Set(s.Spread)
	}
}

type AssetSpread struct {
	Asset  string
	Spread float64
}
