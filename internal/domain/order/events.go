package order

import (
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeOrder = "Order"

// Event type constants
const (
	EventTypeOrderPlaced           = "OrderPlaced"
	EventTypeOrderStatusChanged    = "OrderStatusChanged"
	EventTypeOrderCancelled        = "OrderCancelled"
	EventTypeOrderDelivered        = "OrderDelivered"
	EventTypeDeliveryProofUploaded = "DeliveryProofUploaded"
)

// EventItem is the item payload carried by order events
type EventItem struct {
	ProductID uuid.UUID       `json:"product_id"`
	VendorID  uuid.UUID       `json:"vendor_id"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
}

func toEventItems(items []OrderItem) []EventItem {
	out := make([]EventItem, len(items))
	for i, item := range items {
		out[i] = EventItem{
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}
	return out
}

// OrderPlacedEvent is published after an order is committed
type OrderPlacedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID       `json:"order_id"`
	OrderNumber string          `json:"order_number"`
	CustomerID  uuid.UUID       `json:"customer_id"`
	VendorIDs   []uuid.UUID     `json:"vendor_ids"`
	Items       []EventItem     `json:"items"`
	Total       decimal.Decimal `json:"total"`
}

// NewOrderPlacedEvent creates a new OrderPlacedEvent
func NewOrderPlacedEvent(o *Order) *OrderPlacedEvent {
	return &OrderPlacedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderPlaced, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		VendorIDs:       o.VendorIDs(),
		Items:           toEventItems(o.Items),
		Total:           o.Total,
	}
}

// OrderStatusChangedEvent is published on every status transition
type OrderStatusChangedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	CustomerID  uuid.UUID   `json:"customer_id"`
	OldStatus   OrderStatus `json:"old_status"`
	NewStatus   OrderStatus `json:"new_status"`
}

// NewOrderStatusChangedEvent creates a new OrderStatusChangedEvent
func NewOrderStatusChangedEvent(o *Order, oldStatus, newStatus OrderStatus) *OrderStatusChangedEvent {
	return &OrderStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderStatusChanged, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		OldStatus:       oldStatus,
		NewStatus:       newStatus,
	}
}

// OrderCancelledEvent is published when an order is cancelled; Items is the
// stock that was returned to inventory.
type OrderCancelledEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	CancelledBy uuid.UUID   `json:"cancelled_by"`
	Reason      string      `json:"reason,omitempty"`
	Items       []EventItem `json:"items"`
}

// NewOrderCancelledEvent creates a new OrderCancelledEvent
func NewOrderCancelledEvent(o *Order, actor uuid.UUID) *OrderCancelledEvent {
	return &OrderCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderCancelled, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		CancelledBy:     actor,
		Reason:          o.CancelReason,
		Items:           toEventItems(o.Items),
	}
}

// OrderDeliveredEvent is published when an order reaches delivered
type OrderDeliveredEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID   `json:"order_id"`
	OrderNumber string      `json:"order_number"`
	Items       []EventItem `json:"items"`
}

// NewOrderDeliveredEvent creates a new OrderDeliveredEvent
func NewOrderDeliveredEvent(o *Order) *OrderDeliveredEvent {
	return &OrderDeliveredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeOrderDelivered, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		Items:           toEventItems(o.Items),
	}
}

// DeliveryProofUploadedEvent is published when a vendor uploads or replaces a delivery photo
type DeliveryProofUploadedEvent struct {
	shared.BaseDomainEvent
	OrderID     uuid.UUID `json:"order_id"`
	VendorID    uuid.UUID `json:"vendor_id"`
	ImageURL    string    `json:"image_url"`
	UploadCount int       `json:"upload_count"`
}

// NewDeliveryProofUploadedEvent creates a new DeliveryProofUploadedEvent
func NewDeliveryProofUploadedEvent(o *Order, vendorID uuid.UUID) *DeliveryProofUploadedEvent {
	return &DeliveryProofUploadedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeDeliveryProofUploaded, AggregateTypeOrder, o.ID),
		OrderID:         o.ID,
		VendorID:        vendorID,
		ImageURL:        o.DeliveryProof.ImageURL,
		UploadCount:     o.DeliveryProof.UploadCount,
	}
}
