// File: internal/metrics/metrics.go
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Manager registers and owns all Prometheus metrics for the activity monitor.
type Manager struct {
	GasPollsTotal          *prometheus.CounterVec
	WalletTicksTotal       prometheus.Counter
	WatchChecksTotal       *prometheus.CounterVec
	TransactionEventsTotal prometheus.Counter
	NotificationsTotal     *prometheus.CounterVec
	CacheRefreshesTotal    *prometheus.CounterVec
	WatchedSubscribers     prometheus.Gauge
	ComponentHealth        *prometheus.GaugeVec
}

// NewManager creates and registers all metrics.
func NewManager() *Manager {
	return &Manager{
		GasPollsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_gas_polls_total",
				Help: "Total gas oracle polls by outcome",
			},
			[]string{"status"},
		),
		WalletTicksTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "activity_wallet_ticks_total",
				Help: "Total wallet poll loop ticks",
			},
		),
		WatchChecksTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_watch_checks_total",
				Help: "Total per-watch checks by outcome",
			},
			[]string{"status"},
		),
		TransactionEventsTotal: promauto.NewCounter(
			prometheus.CounterOpts{
				Name: "activity_transaction_events_total",
				Help: "Total transaction events emitted",
			},
		),
		NotificationsTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_notifications_total",
				Help: "Total notifications by outcome",
			},
			[]string{"status"},
		),
		CacheRefreshesTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "activity_cache_refreshes_total",
				Help: "Total watch cache refreshes by outcome",
			},
			[]string{"status"},
		),
		WatchedSubscribers: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "activity_watched_subscribers",
				Help: "Number of subscribers with at least one watch",
			},
		),
		ComponentHealth: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "activity_component_health",
				Help: "Component health (1 healthy, 0 unhealthy)",
			},
			[]string{"component"},
		),
	}
}

// RecordGasPoll counts one gas oracle poll.
func (m *Manager) RecordGasPoll(status string) {
	m.GasPollsTotal.WithLabelValues(status).Inc()
}

// RecordWalletTick counts one wallet loop tick.
func (m *Manager) RecordWalletTick() {
	m.WalletTicksTotal.Inc()
}

// RecordWatchCheck counts one per-watch check.
func (m *Manager) RecordWatchCheck(status string) {
	m.WatchChecksTotal.WithLabelValues(status).Inc()
}

// RecordTransactionEvent counts one emitted transaction event.
func (m *Manager) RecordTransactionEvent() {
	m.TransactionEventsTotal.Inc()
}

// RecordNotification counts one notification attempt.
func (m *Manager) RecordNotification(status string) {
	m.NotificationsTotal.WithLabelValues(status).Inc()
}

// RecordCacheRefresh counts one cache refresh.
func (m *Manager) RecordCacheRefresh(status string) {
	m.CacheRefreshesTotal.WithLabelValues(status).Inc()
}

// SetWatchedSubscribers updates the subscriber gauge.
func (m *Manager) SetWatchedSubscribers(n int) {
	m.WatchedSubscribers.Set(float64(n))
}

// SetComponentHealth flags a component healthy or not.
func (m *Manager) SetComponentHealth(component string, healthy bool) {
	v := 0.0
	if healthy {
		v = 1.0
	}
	m.ComponentHealth.WithLabelValues(component).Set(v)
}
