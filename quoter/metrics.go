package quoter

import "github.com/prometheus/client_golang/prometheus"

const (
	outcomeOK      = "ok"
	outcomeNoRoute = "no_route"
	outcomeError   = "error"
)

// Metrics holds the quoter's prometheus collectors.
type Metrics struct {
	quotes        *prometheus.CounterVec
	quoteDuration *prometheus.HistogramVec
	routeHops     prometheus.Histogram
}

// NewMetrics creates the quoter collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		quotes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "v3sim",
			Subsystem: "quoter",
			Name:      "quotes_total",
			Help:      "Number of quotes served, by trade type and outcome.",
		}, []string{"trade_type", "outcome"}),
		quoteDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "v3sim",
			Subsystem: "quoter",
			Name:      "quote_duration_seconds",
			Help:      "Time taken to search and simulate one quote.",
			Buckets:   prometheus.ExponentialBuckets(0.00005, 4, 10),
		}, []string{"trade_type"}),
		routeHops: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "v3sim",
			Subsystem: "quoter",
			Name:      "route_hops",
			Help:      "Number of pools on the best route of a successful quote.",
			Buckets:   prometheus.LinearBuckets(1, 1, 4),
		}),
	}
	reg.MustRegister(m.quotes, m.quoteDuration, m.routeHops)
	return m
}
