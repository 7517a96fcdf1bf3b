package bus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	backend "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/compose-network/intersection-coordinator/x/codec"
)

// RedisBus maps each topic onto a Redis pub/sub channel.
// Inbound messages are handled one at a time by a single receive goroutine.
type RedisBus struct {
	log      zerolog.Logger
	codec    codec.Codec
	router   Router
	metrics  *Metrics
	senderID string
	now      func() time.Time

	client      *backend.Client
	ownsClient  bool
	prefix      string
	channelSize int

	mu      sync.Mutex
	started bool
	runCtx  context.Context
	cancel  context.CancelFunc
	pubsub  *backend.PubSub
	done    chan struct{}
}

// NewRedisBus dials lazily; connectivity is checked by Start.
func NewRedisBus(cfg Config) (*RedisBus, error) {
	client := backend.NewClient(&backend.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	b, err := NewRedisBusFromClient(client, cfg)
	if err != nil {
		_ = client.Close()
		return nil, err
	}
	b.ownsClient = true
	return b, nil
}

// NewRedisBusFromClient builds a RedisBus on an existing client. The client is not closed by Stop.
func NewRedisBusFromClient(client *backend.Client, cfg Config) (*RedisBus, error) {
	cfg.apply()
	c, err := cfg.codec()
	if err != nil {
		return nil, err
	}
	return &RedisBus{
		log:         cfg.Logger.With().Str("component", "bus").Str("driver", DriverRedis).Logger(),
		codec:       c,
		router:      NewRouter(),
		metrics:     NewMetrics(),
		senderID:    cfg.SenderID,
		now:         time.Now,
		client:      client,
		prefix:      cfg.Redis.ChannelPrefix,
		channelSize: cfg.Redis.ChannelSize,
	}, nil
}

func (b *RedisBus) SenderID() string { return b.senderID }

func (b *RedisBus) channel(topic string) string { return b.prefix + topic }

func (b *RedisBus) topic(channel string) string { return strings.TrimPrefix(channel, b.prefix) }

// Start pings Redis and subscribes every topic registered so far.
func (b *RedisBus) Start(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}

	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("bus: redis ping: %w", err)
	}

	b.runCtx, b.cancel = context.WithCancel(context.Background())
	b.started = true

	topics := b.router.Topics()
	if len(topics) == 0 {
		return nil
	}
	channels := make([]string, len(topics))
	for i, t := range topics {
		channels[i] = b.channel(t)
	}
	if err := b.listenLocked(ctx, channels...); err != nil {
		b.cancel()
		b.started = false
		return err
	}
	return nil
}

// listenLocked opens the subscription and starts the receive loop. Caller holds b.mu.
func (b *RedisBus) listenLocked(ctx context.Context, channels ...string) error {
	ps := b.client.Subscribe(ctx, channels...)
	// Wait for the confirmation so publishes issued after Start are not lost.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return fmt.Errorf("bus: redis subscribe %v: %w", channels, err)
	}

	b.pubsub = ps
	b.done = make(chan struct{})
	go b.receive(b.runCtx, ps.Channel(backend.WithChannelSize(b.channelSize)), b.done)

	b.log.Info().Strs("channels", channels).Msg("Subscribed to redis channels")
	return nil
}

// Subscribe registers handler and, on a running bus, subscribes the channel right away.
func (b *RedisBus) Subscribe(topic string, handler Handler) {
	b.router.Register(topic, handler)

	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return
	}

	var err error
	if b.pubsub == nil {
		err = b.listenLocked(b.runCtx, b.channel(topic))
	} else {
		err = b.pubsub.Subscribe(b.runCtx, b.channel(topic))
	}
	if err != nil {
		b.log.Error().Err(err).Str("topic", topic).Msg("Failed to subscribe to redis channel")
	}
}

func (b *RedisBus) Publish(ctx context.Context, topic string, payload *structpb.Struct) error {
	b.mu.Lock()
	started := b.started
	b.mu.Unlock()
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

	if err := b.client.Publish(ctx, b.channel(topic), data).Err(); err != nil {
		return fmt.Errorf("bus: redis publish %s: %w", topic, err)
	}
	b.metrics.MessagesTotal.WithLabelValues(DriverRedis, topic, directionOut).Inc()
	b.metrics.MessageSize.WithLabelValues(DriverRedis, directionOut).Observe(float64(len(data)))
	return nil
}

func (b *RedisBus) receive(ctx context.Context, ch <-chan *backend.Message, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case m, ok := <-ch:
			if !ok {
				return
			}
			b.deliver(ctx, m)
		}
	}
}

func (b *RedisBus) deliver(ctx context.Context, m *backend.Message) {
	b.metrics.MessageSize.WithLabelValues(DriverRedis, directionIn).Observe(float64(len(m.Payload)))

	msg, err := decodeMessage(b.codec, []byte(m.Payload))
	if err != nil {
		b.metrics.DecodeErrors.WithLabelValues(DriverRedis).Inc()
		b.log.Warn().Err(err).Str("channel", m.Channel).Msg("Dropping undecodable message")
		return
	}
	if msg.Topic != b.topic(m.Channel) {
		b.log.Warn().
			Str("channel", m.Channel).
			Str("topic", msg.Topic).
			Msg("Envelope topic does not match channel, routing by envelope")
	}
	b.metrics.MessagesTotal.WithLabelValues(DriverRedis, msg.Topic, directionIn).Inc()

	if err := b.router.Route(ctx, msg); err != nil && !errors.Is(err, ErrNoHandler) {
		b.metrics.HandlerErrors.WithLabelValues(DriverRedis, msg.Topic).Inc()
		b.log.Warn().Err(err).Str("topic", msg.Topic).Msg("Subscriber failed to handle message")
	}
}

// Stop closes the subscription, waits for the receive loop and closes the client if this bus owns it.
func (b *RedisBus) Stop(ctx context.Context) error {
	b.mu.Lock()
	if !b.started {
		b.mu.Unlock()
		return nil
	}
	b.started = false
	cancel, ps, done := b.cancel, b.pubsub, b.done
	b.cancel, b.pubsub, b.done = nil, nil, nil
	b.mu.Unlock()

	cancel()

	var errs []error
	if ps != nil {
		if err := ps.Close(); err != nil {
			errs = append(errs, fmt.Errorf("bus: close redis subscription: %w", err))
		}
		select {
		case <-done:
		case <-ctx.Done():
			errs = append(errs, ctx.Err())
		}
	}
	if b.ownsClient {
		if err := b.client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("bus: close redis client: %w", err))
		}
	}
	return errors.Join(errs...)
}
