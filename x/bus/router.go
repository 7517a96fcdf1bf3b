package bus

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Router routes messages to registered handlers based on topic.
type Router interface {
	Register(topic string, handler Handler)
	Route(ctx context.Context, msg Message) error
	// Topics returns the registered topics, sorted.
	Topics() []string
}

type router struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

func NewRouter() Router {
	return &router{
		handlers: make(map[string]Handler),
	}
}

func (r *router) Register(topic string, handler Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers[topic] = handler
}

func (r *router) Route(ctx context.Context, msg Message) error {
	r.mu.RLock()
	handler, exists := r.handlers[msg.Topic]
	r.mu.RUnlock()

	if !exists {
		return fmt.Errorf("%w: %s", ErrNoHandler, msg.Topic)
	}
	return handler(ctx, msg)
}

func (r *router) Topics() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	topics := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		topics = append(topics, t)
	}
	sort.Strings(topics)
	return topics
}
