package messenger

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/compose-network/intersection-coordinator/metrics"
	"github.com/compose-network/intersection-coordinator/x/coordinator"
	"github.com/compose-network/intersection-coordinator/x/msgs"
)

// messenger implements Messenger with the given broadcaster
type messenger struct {
	logger      zerolog.Logger
	broadcaster Broadcaster
	failures    *prometheus.CounterVec
}

func NewMessenger(logger zerolog.Logger, broadcaster Broadcaster) Messenger {
	reg := metrics.NewComponentRegistry("intersection", "messenger")
	return &messenger{
		logger:      logger,
		broadcaster: broadcaster,
		failures: reg.NewCounterVec(prometheus.CounterOpts{
			Name: "publish_failures_total",
			Help: "Outputs that could not be published, by topic",
		}, []string{"topic"}),
	}
}

// Publish sends clearance, roof light, stop command and state on every tick, and the
// intersection-go event on the tick that opens an episode. A failed topic does not stop
// the remaining ones; the first failure is returned.
func (n *messenger) Publish(ctx context.Context, out coordinator.Outputs) error {
	var first error
	send := func(topic string, payload *structpb.Struct) {
		if err := n.broadcaster.Publish(ctx, topic, payload); err != nil {
			n.failures.WithLabelValues(topic).Inc()
			n.logger.Error().Err(err).Str("topic", topic).Msg("Failed to publish coordinator output")
			if first == nil {
				first = err
			}
		}
	}

	send(msgs.TopicClearanceToGo, msgs.CoordinationClearance{Status: int(out.Clearance)}.Struct())

	if out.IntersectionGo {
		send(msgs.TopicIntersectionGo, msgs.BoolStamped{
			Stamp:     out.Stamp,
			Data:      true,
			EpisodeID: out.EpisodeID.String(),
		}.Struct())
	}

	send(msgs.TopicChangeColorPattern, msgs.String{Data: string(out.Color)}.Struct())
	send(msgs.TopicCarCmd, msgs.Twist2DStamped{
		Stamp: out.Command.Stamp,
		V:     out.Command.V,
		Omega: out.Command.Omega,
	}.Struct())
	send(msgs.TopicCoordinationState, msgs.String{Data: string(out.State)}.Struct())

	return first
}
