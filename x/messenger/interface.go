package messenger

import (
	"context"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/compose-network/intersection-coordinator/x/coordinator"
)

// Messenger publishes the coordinator outputs of one tick.
type Messenger interface {
	Publish(ctx context.Context, out coordinator.Outputs) error
}

// Broadcaster is used by the messenger to send payloads on a topic.
type Broadcaster interface {
	Publish(ctx context.Context, topic string, payload *structpb.Struct) error
}
