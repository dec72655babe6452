package feed

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeApplied    = "applied"
	outcomeConfirmed  = "confirmed"
	outcomeRolledBack = "rolled_back"
	outcomeDiscarded  = "discarded"
)

// Metrics are shared by every Reconciler of a process. Create them once per
// registry; a nil registry keeps them unregistered.
type Metrics struct {
	mutations *prometheus.CounterVec
	pending   prometheus.Gauge
	reloads   prometheus.Counter
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		mutations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "cirqle_feed_mutations_total",
			Help: "Optimistic feed mutations by operation and outcome.",
		}, []string{"op", "outcome"}),
		pending: f.NewGauge(prometheus.GaugeOpts{
			Name: "cirqle_feed_pending",
			Help: "Mutations waiting for the posts API.",
		}),
		reloads: f.NewCounter(prometheus.CounterOpts{
			Name: "cirqle_feed_reloads_total",
			Help: "Full reconciles of a feed with the server list.",
		}),
	}
}

func (m *Metrics) observe(op OpKind, outcome string) {
	m.mutations.WithLabelValues(op.String(), outcome).Inc()
}
