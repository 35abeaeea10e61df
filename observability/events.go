package observability

import (
	"strings"

	"custodia/core/events"
	"custodia/observability/metrics"
)

// Collector is an events.Emitter that records a metric for every engine event
// before forwarding it downstream. Wiring it between an engine and the host's
// emitter gives operational visibility without coupling the engines to the
// metrics registry.
type Collector struct {
	next events.Emitter
}

// NewCollector wraps the downstream emitter. A nil downstream discards events
// after counting them.
func NewCollector(next events.Emitter) *Collector {
	if next == nil {
		next = events.NoopEmitter{}
	}
	return &Collector{next: next}
}

// Emit implements events.Emitter.
func (c *Collector) Emit(evt events.Event) {
	if c == nil || evt == nil {
		return
	}
	eventType := evt.EventType()
	switch {
	case strings.HasPrefix(eventType, "escrow."):
		metrics.Escrow().ObserveTransition(eventType)
	case strings.HasPrefix(eventType, "multisig."):
		metrics.Multisig().ObserveProposal(eventType)
	}
	c.next.Emit(evt)
}
