package realtime

import (
	"context"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Notifier translates domain events into room pushes
type Notifier struct {
	hub *Hub
}

// NewNotifier creates a notifier bound to hub
func NewNotifier(hub *Hub) *Notifier {
	return &Notifier{hub: hub}
}

// EventTypes returns the events that produce a push
func (n *Notifier) EventTypes() []string {
	return []string{
		catalog.EventTypeProductCreated,
		catalog.EventTypeProductUpdated,
		catalog.EventTypeProductDeleted,
		catalog.EventTypeProductStockChanged,
		catalog.EventTypeLowStockDigest,
		order.EventTypeOrderPlaced,
	}
}

// Handle pushes the event to the rooms of the vendors it concerns
func (n *Notifier) Handle(_ context.Context, event shared.DomainEvent) error {
	switch e := event.(type) {
	case *catalog.ProductCreatedEvent:
		n.productsUpdated(e.VendorID, e.ProductID, "created")
	case *catalog.ProductUpdatedEvent:
		n.productsUpdated(e.VendorID, e.ProductID, "updated")
	case *catalog.ProductDeletedEvent:
		n.productsUpdated(e.VendorID, e.ProductID, "deleted")
	case *catalog.ProductStockChangedEvent:
		for _, vendorID := range e.VendorIDs() {
			n.hub.Emit(vendorID, EventProductsUpdated, map[string]any{"action": "stock", "reason": e.Reason})
		}
	case *catalog.LowStockDigestEvent:
		n.hub.Emit(e.VendorID, EventLowStock, map[string]any{"total": e.Total, "items": e.Items})
	case *order.OrderPlacedEvent:
		for _, vendorID := range e.VendorIDs {
			n.hub.Emit(vendorID, EventOrderCreated, map[string]any{
				"orderId":     e.OrderID,
				"orderNumber": e.OrderNumber,
				"total":       e.Total,
			})
		}
	}
	return nil
}

func (n *Notifier) productsUpdated(vendorID, productID uuid.UUID, action string) {
	n.hub.Emit(vendorID, EventProductsUpdated, map[string]any{"action": action, "productId": productID})
}

var _ shared.EventHandler = (*Notifier)(nil)
