package shared

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testEvent struct {
	BaseDomainEvent
}

func newTestEvent(eventType string) *testEvent {
	return &testEvent{NewBaseDomainEvent(eventType, "Order", uuid.New())}
}

type capturePublisher struct {
	got []DomainEvent
	err error
}

func (p *capturePublisher) Publish(_ context.Context, events ...DomainEvent) error {
	p.got = append(p.got, events...)
	return p.err
}

func TestRoutingKey(t *testing.T) {
	assert.Equal(t, "order.placed", RoutingKey("OrderPlaced"))
	assert.Equal(t, "order.status.changed", RoutingKey("OrderStatusChanged"))
	assert.Equal(t, "low.stock.digest", RoutingKey("LowStockDigest"))
	assert.Equal(t, "ping", RoutingKey("ping"))
	assert.Equal(t, "", RoutingKey(""))
}

func TestAggregate_PullDomainEvents(t *testing.T) {
	agg := NewBaseAggregateRoot()
	assert.Equal(t, 1, agg.GetVersion())

	agg.AddDomainEvent(newTestEvent("OrderPlaced"))
	agg.AddDomainEvent(newTestEvent("OrderDelivered"))

	pulled := agg.PullDomainEvents()
	require.Len(t, pulled, 2)
	assert.Equal(t, "OrderPlaced", pulled[0].EventType())
	assert.Empty(t, agg.GetDomainEvents())
	assert.Empty(t, agg.PullDomainEvents())
}

func TestPublishEvents(t *testing.T) {
	ctx := context.Background()

	assert.NoError(t, PublishEvents(ctx, nil, newTestEvent("OrderPlaced")))

	pub := &capturePublisher{}
	assert.NoError(t, PublishEvents(ctx, pub))
	assert.Empty(t, pub.got)

	require.NoError(t, PublishEvents(ctx, pub, newTestEvent("OrderPlaced")))
	assert.Len(t, pub.got, 1)

	pub.err = errors.New("bus closed")
	assert.ErrorContains(t, PublishEvents(ctx, pub, newTestEvent("OrderCancelled")), "bus closed")
}
