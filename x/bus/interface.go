package bus

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/types/known/structpb"
)

var (
	// ErrBusClosed is returned by Publish on a bus that is not running.
	ErrBusClosed = errors.New("bus: closed")
	// ErrNoHandler is returned by Route when nothing is subscribed to the topic.
	ErrNoHandler = errors.New("bus: no handler registered for topic")
)

// Message is one delivery on a topic.
type Message struct {
	ID       uuid.UUID
	Topic    string
	SenderID string
	Stamp    time.Time
	Payload  *structpb.Struct
}

// Handler consumes messages of a single topic.
type Handler func(ctx context.Context, msg Message) error

// Bus is a topic based publish/subscribe transport.
type Bus interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	// Publish sends payload to every subscriber of topic.
	Publish(ctx context.Context, topic string, payload *structpb.Struct) error
	// Subscribe replaces the handler for topic. It may be called before or after Start.
	Subscribe(topic string, handler Handler)
	SenderID() string
}
