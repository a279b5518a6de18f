package shared

import "context"

// EventHandler reacts to domain events: cache invalidation, realtime pushes,
// metrics and out-of-process fan-out all implement it
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	// EventTypes lists the types the handler wants; empty means every event
	EventTypes() []string
}

// EventPublisher publishes domain events
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventSubscriber subscribes to domain events
type EventSubscriber interface {
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
}

// EventBus is the in-process dispatcher the services publish to
type EventBus interface {
	EventPublisher
	EventSubscriber
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}

// PublishEvents publishes events when there is both a publisher and something
// to send. Services call it after their write has committed.
func PublishEvents(ctx context.Context, publisher EventPublisher, events ...DomainEvent) error {
	if publisher == nil || len(events) == 0 {
		return nil
	}
	return publisher.Publish(ctx, events...)
}
