package differ

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the differ's prometheus collectors.
type Metrics struct {
	diffDuration *prometheus.HistogramVec
	changes      *prometheus.CounterVec
}

// NewMetrics creates the differ collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		diffDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "v3sim",
			Subsystem: "differ",
			Name:      "diff_duration_seconds",
			Help:      "Time taken to diff two snapshots.",
			Buckets:   prometheus.ExponentialBuckets(0.0001, 4, 8),
		}, nil),
		changes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "v3sim",
			Subsystem: "differ",
			Name:      "changes_total",
			Help:      "Number of entities changed between diffed snapshots.",
		}, []string{"entity", "change"}),
	}
	reg.MustRegister(m.diffDuration, m.changes)
	return m
}

func (m *Metrics) observe(d *StateDiff) {
	m.changes.WithLabelValues("token", "added").Add(float64(len(d.Tokens.Additions)))
	m.changes.WithLabelValues("token", "updated").Add(float64(len(d.Tokens.Updates)))
	m.changes.WithLabelValues("token", "deleted").Add(float64(len(d.Tokens.Deletions)))
	m.changes.WithLabelValues("pool", "added").Add(float64(len(d.Pools.Additions)))
	m.changes.WithLabelValues("pool", "updated").Add(float64(len(d.Pools.Updates)))
	m.changes.WithLabelValues("pool", "deleted").Add(float64(len(d.Pools.Deletions)))
}
