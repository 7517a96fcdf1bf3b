package bus

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/compose-network/intersection-coordinator/metrics"
)

const (
	directionIn  = "in"
	directionOut = "out"
)

// Metrics holds bus metrics, labelled by driver.
type Metrics struct {
	MessagesTotal *prometheus.CounterVec
	DecodeErrors  *prometheus.CounterVec
	HandlerErrors *prometheus.CounterVec
	MessageSize   *prometheus.HistogramVec
}

func NewMetrics() *Metrics {
	reg := metrics.NewComponentRegistry("intersection", "bus")

	return &Metrics{
		MessagesTotal: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "messages_total",
			Help: "Messages seen on the bus by topic and direction",
		}, []string{"driver", "topic", "direction"}),

		DecodeErrors: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "decode_errors_total",
			Help: "Inbound frames that could not be decoded",
		}, []string{"driver"}),

		HandlerErrors: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "handler_errors_total",
			Help: "Subscriber handlers that returned an error",
		}, []string{"driver", "topic"}),

		MessageSize: reg.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "message_size_bytes",
			Help:    "Encoded envelope size",
			Buckets: metrics.SizeBuckets,
		}, []string{"driver", "direction"}),
	}
}
