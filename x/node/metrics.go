package node

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/intersection-coordinator/metrics"
)

// Metrics holds node-level metrics.
type Metrics struct {
	TickDuration prometheus.Histogram
	SkippedTicks prometheus.Histogram
}

// NewMetrics creates node metrics.
func NewMetrics() *Metrics {
	reg := metrics.NewComponentRegistry("intersection", "node")

	return &Metrics{
		TickDuration: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "tick_duration_seconds",
			Help:    "Time spent evaluating and publishing one tick",
			Buckets: metrics.DurationBuckets,
		}),

		SkippedTicks: reg.NewHistogram(prometheus.HistogramOpts{
			Name:    "skipped_ticks",
			Help:    "Ticks jumped over by a late wake-up",
			Buckets: metrics.CountBuckets,
		}),
	}
}
