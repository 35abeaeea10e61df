package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type EscrowMetrics struct {
	transitions *prometheus.CounterVec
	openEscrows prometheus.Gauge
	feesAccrued *prometheus.GaugeVec
}

var (
	escrowOnce     sync.Once
	escrowRegistry *EscrowMetrics
)

// Escrow returns the metrics registry tracking escrow lifecycle transitions.
func Escrow() *EscrowMetrics {
	escrowOnce.Do(func() {
		escrowRegistry = &EscrowMetrics{
			transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "custodia",
				Subsystem: "escrow",
				Name:      "transitions_total",
				Help:      "Count of escrow state transitions by event type.",
			}, []string{"event"}),
			openEscrows: prometheus.NewGauge(prometheus.GaugeOpts{
				Namespace: "custodia",
				Subsystem: "escrow",
				Name:      "open_records",
				Help:      "Number of escrows currently holding custody.",
			}),
			feesAccrued: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Namespace: "custodia",
				Subsystem: "escrow",
				Name:      "dispute_fees_accrued",
				Help:      "Dispute fees collected into the vault per asset.",
			}, []string{"asset"}),
		}
		prometheus.MustRegister(
			escrowRegistry.transitions,
			escrowRegistry.openEscrows,
			escrowRegistry.feesAccrued,
		)
	})
	return escrowRegistry
}

// ObserveTransition increments the transition counter for the event type.
func (m *EscrowMetrics) ObserveTransition(event string) {
	if m == nil {
		return
	}
	if event == "" {
		event = "unknown"
	}
	m.transitions.WithLabelValues(event).Inc()
}

// SetOpenEscrows records the current number of non-terminal escrows.
func (m *EscrowMetrics) SetOpenEscrows(count float64) {
	if m == nil {
		return
	}
	m.openEscrows.Set(count)
}

// SetFeesAccrued records the fee pool level for an asset.
func (m *EscrowMetrics) SetFeesAccrued(asset string, amount float64) {
	if m == nil {
		return
	}
	if asset == "" {
		asset = "UNKNOWN"
	}
	m.feesAccrued.WithLabelValues(asset).Set(amount)
}
