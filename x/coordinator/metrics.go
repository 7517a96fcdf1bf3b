package coordinator

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/intersection-coordinator/metrics"
)

// Metrics holds coordinator metrics.
type Metrics struct {
	TicksTotal          *prometheus.CounterVec
	TransitionsTotal    *prometheus.CounterVec
	CurrentState        *prometheus.GaugeVec
	Clearance           prometheus.Gauge
	BackoffDelay        *prometheus.HistogramVec
	GoEpisodesTotal     prometheus.Counter
	TrafficLightReports *prometheus.CounterVec
}

// NewMetrics creates coordinator metrics.
func NewMetrics() *Metrics {
	reg := metrics.NewComponentRegistry("intersection", "coordinator")

	return &Metrics{
		TicksTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "ticks_total",
			Help: "Ticks received, by result (evaluated or gated)",
		}, []string{"result"}),

		TransitionsTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "transitions_total",
			Help: "State transitions by source and target state",
		}, []string{"from", "to"}),

		CurrentState: reg.NewGaugeVec(prometheus.GaugeOpts{
			Name: "state",
			Help: "1 for the current state, 0 otherwise",
		}, []string{"state"}),

		Clearance: reg.NewGauge(prometheus.GaugeOpts{
			Name: "clearance",
			Help: "Current clearance (-1 NA, 0 WAIT, 1 GO)",
		}),

		BackoffDelay: reg.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "backoff_delay_seconds",
			Help:    "Sampled random backoff delays",
			Buckets: metrics.DelayBuckets,
		}, []string{"state"}),

		GoEpisodesTotal: reg.NewCounter(prometheus.CounterOpts{
			Name: "go_episodes_total",
			Help: "Number of times crossing clearance was granted",
		}),

		TrafficLightReports: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "traffic_light_reports_total",
			Help: "Reported intersection classifications",
		}, []string{"presence"}),
	}
}

func (m *Metrics) recordState(s State) {
	for _, st := range States {
		v := 0.0
		if st == s {
			v = 1
		}
		m.CurrentState.WithLabelValues(string(st)).Set(v)
	}
}
