package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type MultisigMetrics struct {
	proposals *prometheus.CounterVec
}

var (
	multisigOnce     sync.Once
	multisigRegistry *MultisigMetrics
)

// Multisig returns the metrics registry tracking proposal evaluations.
func Multisig() *MultisigMetrics {
	multisigOnce.Do(func() {
		multisigRegistry = &MultisigMetrics{
			proposals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Namespace: "custodia",
				Subsystem: "multisig",
				Name:      "proposals_total",
				Help:      "Count of proposal evaluations by outcome event.",
			}, []string{"event"}),
		}
		prometheus.MustRegister(multisigRegistry.proposals)
	})
	return multisigRegistry
}

// ObserveProposal increments the proposal counter for the event type.
func (m *MultisigMetrics) ObserveProposal(event string) {
	if m == nil {
		return
	}
	if event == "" {
		event = "unknown"
	}
	m.proposals.WithLabelValues(event).Inc()
}
