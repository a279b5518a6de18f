// Package testutil provides helpers shared by the marketplace's end-to-end
// tests: an HTTP client for a gin engine, envelope assertions and a
// recording event handler.
package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// EventRecorder is a shared.EventHandler that keeps every event it receives
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	events     []shared.DomainEvent
	notify     chan struct{}
}

// NewEventRecorder creates a recorder for eventTypes. No types means all events.
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{
		eventTypes: eventTypes,
		notify:     make(chan struct{}, 1),
	}
}

// EventTypes implements shared.EventHandler
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle implements shared.EventHandler
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	r.events = append(r.events, event)
	r.mu.Unlock()

	select {
	case r.notify <- struct{}{}:
	default:
	}
	return nil
}

// Events returns a copy of the recorded events in arrival order
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}

// OfType returns the recorded events with the given type
func (r *EventRecorder) OfType(eventType string) []shared.DomainEvent {
	var out []shared.DomainEvent
	for _, e := range r.Events() {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// WaitFor blocks until at least n events of eventType arrived or timeout passes
func (r *EventRecorder) WaitFor(eventType string, n int, timeout time.Duration) bool {
	deadline := time.NewTimer(timeout)
	defer deadline.Stop()
	for {
		if len(r.OfType(eventType)) >= n {
			return true
		}
		select {
		case <-r.notify:
		case <-deadline.C:
			return len(r.OfType(eventType)) >= n
		}
	}
}

// Reset drops every recorded event
func (r *EventRecorder) Reset() {
	r.mu.Lock()
	r.events = nil
	r.mu.Unlock()
}
