package telemetry

import (
	"context"
	"errors"

	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrMeterNil is returned when no meter is supplied
var ErrMeterNil = errors.New("telemetry: meter cannot be nil")

// BusinessMetrics counts marketplace activity. It subscribes to order events
// and is called directly by the catalog cache and checkout paths.
type BusinessMetrics struct {
	ordersPlaced     *Counter
	orderAmountCents *Counter
	ordersCancelled  *Counter
	ordersDelivered  *Counter
	checkoutRejected *Counter
	cacheLookups     *Counter
	deliveryProofs   *Counter
}

// NewBusinessMetrics registers the instruments on meter
func NewBusinessMetrics(meter metric.Meter) (*BusinessMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	bm := &BusinessMetrics{}
	specs := []struct {
		target      **Counter
		name        string
		description string
		unit        string
	}{
		{&bm.ordersPlaced, "artisan_orders_placed_total", "Orders placed", "{orders}"},
		{&bm.orderAmountCents, "artisan_order_amount_cents_total", "Order totals in cents", "{cents}"},
		{&bm.ordersCancelled, "artisan_orders_cancelled_total", "Orders cancelled", "{orders}"},
		{&bm.ordersDelivered, "artisan_orders_delivered_total", "Orders delivered", "{orders}"},
		{&bm.checkoutRejected, "artisan_checkout_rejected_total", "Checkouts rejected by reason", "{requests}"},
		{&bm.cacheLookups, "artisan_cache_lookups_total", "Catalog cache lookups by outcome", "{lookups}"},
		{&bm.deliveryProofs, "artisan_delivery_proofs_total", "Delivery proof uploads", "{uploads}"},
	}
	for _, s := range specs {
		c, err := NewCounter(meter, s.name, s.description, s.unit)
		if err != nil {
			return nil, err
		}
		*s.target = c
	}
	return bm, nil
}

// RecordCacheLookup counts a hit or miss on the named cache
func (bm *BusinessMetrics) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	bm.cacheLookups.Inc(ctx, AttrCache.String(cache), AttrOutcome.String(outcome))
}

// RecordCheckoutRejected counts a failed checkout by error code
func (bm *BusinessMetrics) RecordCheckoutRejected(ctx context.Context, code string) {
	bm.checkoutRejected.Inc(ctx, attribute.String("reason", code))
}

// Handle implements shared.EventHandler
func (bm *BusinessMetrics) Handle(ctx context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *order.OrderPlacedEvent:
		bm.ordersPlaced.Inc(ctx)
		bm.orderAmountCents.Add(ctx, e.Total.Mul(decimal.NewFromInt(100)).Round(0).IntPart())
	case *order.OrderCancelledEvent:
		bm.ordersCancelled.Inc(ctx)
	case *order.OrderDeliveredEvent:
		bm.ordersDelivered.Inc(ctx)
	case *order.DeliveryProofUploadedEvent:
		bm.deliveryProofs.Inc(ctx)
	}
	return nil
}

// EventTypes implements shared.EventHandler
func (bm *BusinessMetrics) EventTypes() []string {
	return []string{
		order.EventTypeOrderPlaced,
		order.EventTypeOrderCancelled,
		order.EventTypeOrderDelivered,
		order.EventTypeDeliveryProofUploaded,
	}
}

var _ shared.EventHandler = (*BusinessMetrics)(nil)
