// Package event delivers domain events after a write commits: synchronously to
// in-process handlers (cache invalidation, websocket push) and optionally on to
// RabbitMQ.
package event

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BusOption configures an InMemoryEventBus
type BusOption func(*InMemoryEventBus)

// WithHandlerTimeout bounds each handler call. Zero means the caller's context
// is passed through unchanged.
func WithHandlerTimeout(d time.Duration) BusOption {
	return func(b *InMemoryEventBus) { b.handlerTimeout = d }
}

type subscription struct {
	handler shared.EventHandler
	types   []string // empty matches every event
}

func (s subscription) matches(eventType string) bool {
	return len(s.types) == 0 || slices.Contains(s.types, eventType)
}

// InMemoryEventBus calls matching handlers in subscription order. A handler
// that fails or panics is logged and counted; the rest still run and Publish
// never returns their errors to the service that published.
type InMemoryEventBus struct {
	mu             sync.RWMutex
	subs           []subscription
	logger         *zap.Logger
	handlerTimeout time.Duration
	running        atomic.Bool
	failures       atomic.Int64
}

func NewInMemoryEventBus(logger *zap.Logger, opts ...BusOption) *InMemoryEventBus {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &InMemoryEventBus{logger: logger.Named("event_bus")}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Subscribe adds handler for eventTypes, or for handler.EventTypes() when none
// are given. A handler reporting no types receives every event.
func (b *InMemoryEventBus) Subscribe(handler shared.EventHandler, eventTypes ...string) {
	if len(eventTypes) == 0 {
		eventTypes = handler.EventTypes()
	}
	b.mu.Lock()
	b.subs = append(b.subs, subscription{handler: handler, types: slices.Clone(eventTypes)})
	b.mu.Unlock()
	b.logger.Debug("handler subscribed", zap.Strings("event_types", eventTypes))
}

// Unsubscribe removes every subscription of handler
func (b *InMemoryEventBus) Unsubscribe(handler shared.EventHandler) {
	b.mu.Lock()
	b.subs = slices.DeleteFunc(b.subs, func(s subscription) bool { return s.handler == handler })
	b.mu.Unlock()
}

func (b *InMemoryEventBus) Publish(ctx context.Context, events ...shared.DomainEvent) error {
	for _, ev := range events {
		for _, h := range b.handlersFor(ev.EventType()) {
			if err := b.dispatch(ctx, h, ev); err != nil {
				b.failures.Add(1)
				b.logger.Error("handler failed to process event",
					zap.String("event_type", ev.EventType()),
					zap.Stringer("event_id", ev.EventID()),
					zap.Stringer("aggregate_id", ev.AggregateID()),
					zap.Error(err),
				)
			}
		}
	}
	return nil
}

func (b *InMemoryEventBus) handlersFor(eventType string) []shared.EventHandler {
	b.mu.RLock()
	defer b.mu.RUnlock()
	var out []shared.EventHandler
	for _, s := range b.subs {
		if s.matches(eventType) {
			out = append(out, s.handler)
		}
	}
	return out
}

func (b *InMemoryEventBus) dispatch(ctx context.Context, h shared.EventHandler, ev shared.DomainEvent) (err error) {
	if b.handlerTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.handlerTimeout)
		defer cancel()
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return h.Handle(ctx, ev)
}

// Failures counts handler errors and panics since the bus was created
func (b *InMemoryEventBus) Failures() int64 {
	return b.failures.Load()
}

func (b *InMemoryEventBus) Start(context.Context) error {
	b.running.Store(true)
	b.logger.Info("event bus started")
	return nil
}

func (b *InMemoryEventBus) Stop(context.Context) error {
	b.running.Store(false)
	b.logger.Info("event bus stopped", zap.Int64("handler_failures", b.failures.Load()))
	return nil
}

func (b *InMemoryEventBus) IsRunning() bool {
	return b.running.Load()
}

var _ shared.EventBus = (*InMemoryEventBus)(nil)
