package spantree

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Event outcomes, used as the "outcome" label of spantree_events_total.
const (
	OutcomeAttached   = "attached"   // new child appended to a parent.
	OutcomeRoot       = "root"       // new root appended to the forest.
	OutcomeReconciled = "reconciled" // existing node updated in place.
	OutcomeAdopted    = "adopted"    // placeholder root moved under its parent.
	OutcomeRejected   = "rejected"   // invalid event, forest untouched.
)

// builderMetrics is nil when no registerer was configured; all methods are nil-safe.
type builderMetrics struct {
	events       *prometheus.CounterVec
	placeholders prometheus.Counter
	nodes        prometheus.Gauge
}

func newBuilderMetrics(reg prometheus.Registerer) *builderMetrics {
	if reg == nil {
		return nil
	}
	factory := promauto.With(reg)
	return &builderMetrics{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "spantree_events_total",
			Help: "Span completion events by outcome",
		}, []string{"outcome"}),
		placeholders: factory.NewCounter(prometheus.CounterOpts{
			Name: "spantree_placeholders_total",
			Help: "Placeholder nodes created for parents not yet reported",
		}),
		nodes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "spantree_nodes",
			Help: "Nodes currently held by the builder",
		}),
	}
}

func (m *builderMetrics) observe(r result) {
	if m == nil {
		return
	}
	m.events.WithLabelValues(r.outcome).Inc()
	if r.placeholder {
		m.placeholders.Inc()
	}
	if r.outcome != OutcomeRejected {
		m.nodes.Set(float64(r.size))
	}
}

func (m *builderMetrics) reset() {
	if m == nil {
		return
	}
	m.nodes.Set(0)
}
