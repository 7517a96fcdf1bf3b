package bus

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/compose-network/intersection-coordinator/x/codec"
)

// MemoryBus delivers messages synchronously inside the process.
// Every message still goes through the configured codec, so single-process runs
// exercise the same framing as the Redis driver.
type MemoryBus struct {
	log      zerolog.Logger
	codec    codec.Codec
	router   Router
	metrics  *Metrics
	senderID string
	now      func() time.Time

	mu      sync.RWMutex
	started bool
}

func NewMemoryBus(cfg Config) (*MemoryBus, error) {
	cfg.apply()
	c, err := cfg.codec()
	if err != nil {
		return nil, err
	}
	return &MemoryBus{
		log:      cfg.Logger.With().Str("component", "bus").Str("driver", DriverMemory).Logger(),
		codec:    c,
		router:   NewRouter(),
		metrics:  NewMetrics(),
		senderID: cfg.SenderID,
		now:      time.Now,
	}, nil
}

func (b *MemoryBus) Start(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = true
	return nil
}

func (b *MemoryBus) Stop(context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.started = false
	return nil
}

func (b *MemoryBus) Subscribe(topic string, handler Handler) {
	b.router.Register(topic, handler)
}

func (b *MemoryBus) SenderID() string { return b.senderID }

// Publish encodes, decodes and routes the message before returning.
// Subscriber errors are logged, not returned to the publisher.
func (b *MemoryBus) Publish(ctx context.Context, topic string, payload *structpb.Struct) error {
	b.mu.RLock()
	started := b.started
	b.mu.RUnlock()
	if !started {
		return ErrBusClosed
	}

	data, err := encodeMessage(b.codec, Message{
		ID:       uuid.New(),
		Topic:    topic,
		SenderID: b.senderID,
		Stamp:    b.now(),
		Payload:  payload,
	})
	if err != nil {
		return err
	}
	b.metrics.MessagesTotal.WithLabelValues(DriverMemory, topic, directionOut).Inc()
	b.metrics.MessageSize.WithLabelValues(DriverMemory, directionOut).Observe(float64(len(data)))

	msg, err := decodeMessage(b.codec, data)
	if err != nil {
		b.metrics.DecodeErrors.WithLabelValues(DriverMemory).Inc()
		return err
	}

	err = b.router.Route(ctx, msg)
	switch {
	case err == nil:
		b.metrics.MessagesTotal.WithLabelValues(DriverMemory, topic, directionIn).Inc()
	case errors.Is(err, ErrNoHandler):
	default:
		b.metrics.HandlerErrors.WithLabelValues(DriverMemory, topic).Inc()
		b.log.Warn().Err(err).Str("topic", topic).Msg("Subscriber failed to handle message")
	}
	return nil
}
