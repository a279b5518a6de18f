package order

import (
	"time"

	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Actor identifies the caller of an order operation. VendorID is set when
// the caller owns a store.
type Actor struct {
	UserID   uuid.UUID
	Role     identity.Role
	VendorID *uuid.UUID
}

// IsAdmin reports whether the caller is a platform administrator
func (a Actor) IsAdmin() bool {
	return a.Role == identity.RoleAdmin
}

// CheckoutItem is one requested line. The price always comes from the catalog.
type CheckoutItem struct {
	ProductID uuid.UUID
	Quantity  int
}

// PaymentInput is the masked payment choice sent by the client
type PaymentInput struct {
	Type            order.PaymentMethodType
	PaymentIntentID string
	Brand           string
	Last4           string
}

// CheckoutRequest places an order
type CheckoutRequest struct {
	CustomerID      uuid.UUID
	Items           []CheckoutItem
	ShippingAddress valueobject.Address
	ShippingMethod  order.ShippingMethod
	Payment         PaymentInput
	// ClientTotal is the total the customer saw
	ClientTotal    decimal.Decimal
	IdempotencyKey string
}

// ListOrdersQuery pages through orders
type ListOrdersQuery struct {
	Status *order.OrderStatus
	Page   int
	Limit  int
}

func (q ListOrdersQuery) filter() (order.OrderFilter, error) {
	if q.Status != nil && !q.Status.IsValid() {
		return order.OrderFilter{}, shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+string(*q.Status))
	}
	f := order.OrderFilter{Status: q.Status, Page: q.Page, Limit: q.Limit}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f, nil
}

// UpdateStatusRequest moves an order along the transition table
type UpdateStatusRequest struct {
	Status order.OrderStatus
	Note   string
}

// TrackingRequest attaches shipment tracking
type TrackingRequest struct {
	TrackingNumber string
	TrackingURL    string
	Carrier        string
}

// OrderItemView is one line of an order response
type OrderItemView struct {
	ID        uuid.UUID       `json:"id"`
	ProductID uuid.UUID       `json:"productId"`
	VendorID  uuid.UUID       `json:"vendorId"`
	Name      string          `json:"name"`
	Image     string          `json:"image,omitempty"`
	Quantity  int             `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Total     decimal.Decimal `json:"total"`
}

// PaymentMethodView is the masked payment record
type PaymentMethodView struct {
	Type            order.PaymentMethodType `json:"type"`
	Brand           string                  `json:"brand,omitempty"`
	Last4           string                  `json:"last4,omitempty"`
	PaymentIntentID string                  `json:"paymentIntentId,omitempty"`
}

// DeliveryProofView is the stored proof plus the re-upload gate
type DeliveryProofView struct {
	ImageURL         string    `json:"imageUrl"`
	FileID           string    `json:"fileId,omitempty"`
	Note             string    `json:"note,omitempty"`
	UploadedBy       uuid.UUID `json:"uploadedBy"`
	UploadedAt       time.Time `json:"uploadedAt"`
	LastUploadedAt   time.Time `json:"lastUploadedAt"`
	UploadCount      int       `json:"uploadCount"`
	CanReupload      bool      `json:"canReupload"`
	ReuploadDeadline time.Time `json:"reuploadDeadline"`
}

// StatusChangeView is one history entry
type StatusChangeView struct {
	Status    order.OrderStatus `json:"status"`
	Note      string            `json:"note,omitempty"`
	ChangedBy uuid.UUID         `json:"changedBy"`
	ChangedAt time.Time         `json:"changedAt"`
}

// OrderView is the order response
type OrderView struct {
	ID                uuid.UUID            `json:"id"`
	OrderNumber       string               `json:"orderNumber"`
	CustomerID        uuid.UUID            `json:"customerId"`
	Items             []OrderItemView      `json:"items"`
	ShippingAddress   valueobject.Address  `json:"shippingAddress"`
	ShippingMethod    order.ShippingMethod `json:"shippingMethod"`
	PaymentMethod     PaymentMethodView    `json:"paymentMethod"`
	Status            order.OrderStatus    `json:"status"`
	PaymentStatus     order.PaymentStatus  `json:"paymentStatus"`
	Subtotal          decimal.Decimal      `json:"subtotal"`
	ShippingCost      decimal.Decimal      `json:"shippingCost"`
	Tax               decimal.Decimal      `json:"tax"`
	Total             decimal.Decimal      `json:"total"`
	VendorSubtotal    *decimal.Decimal     `json:"vendorSubtotal,omitempty"`
	EstimatedDelivery time.Time            `json:"estimatedDelivery"`
	TrackingNumber    string               `json:"trackingNumber,omitempty"`
	TrackingURL       string               `json:"trackingUrl,omitempty"`
	Carrier           string               `json:"carrier,omitempty"`
	IsPaid            bool                 `json:"isPaid"`
	PaidAt            *time.Time           `json:"paidAt,omitempty"`
	DeliveredAt       *time.Time           `json:"deliveredAt,omitempty"`
	CancelledAt       *time.Time           `json:"cancelledAt,omitempty"`
	CancelReason      string               `json:"cancelReason,omitempty"`
	DeliveryProof     *DeliveryProofView   `json:"deliveryProof,omitempty"`
	StatusHistory     []StatusChangeView   `json:"statusHistory"`
	AllowedStatuses   []order.OrderStatus  `json:"allowedStatuses"`
	CreatedAt         time.Time            `json:"createdAt"`
	UpdatedAt         time.Time            `json:"updatedAt"`
}

// OrderListResult is one page of orders
type OrderListResult struct {
	Orders     []OrderView       `json:"orders"`
	Pagination shared.Pagination `json:"pagination"`
}

// ToOrderView converts an order for its customer or an admin
func ToOrderView(o *order.Order, now time.Time) OrderView {
	return toView(o, o.Items, now)
}

// ToVendorOrderView converts an order for one vendor: only that vendor's lines
// are shown and their subtotal is attached.
func ToVendorOrderView(o *order.Order, vendorID uuid.UUID, now time.Time) OrderView {
	view := toView(o, o.ItemsForVendor(vendorID), now)
	sub := o.VendorSubtotal(vendorID)
	view.VendorSubtotal = &sub
	return view
}

// ToDeliveryProofView converts a stored proof
func ToDeliveryProofView(p *order.DeliveryProof, now time.Time) *DeliveryProofView {
	if p == nil {
		return nil
	}
	return &DeliveryProofView{
		ImageURL:         p.ImageURL,
		FileID:           p.FileID,
		Note:             p.Note,
		UploadedBy:       p.UploadedBy,
		UploadedAt:       p.UploadedAt,
		LastUploadedAt:   p.LastUploadedAt,
		UploadCount:      p.UploadCount,
		CanReupload:      p.CanReupload(now),
		ReuploadDeadline: p.ReuploadDeadline(),
	}
}

func toView(o *order.Order, items []order.OrderItem, now time.Time) OrderView {
	itemViews := make([]OrderItemView, len(items))
	for i, item := range items {
		itemViews[i] = OrderItemView{
			ID:        item.ID,
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Total:     item.Total(),
		}
	}
	history := make([]StatusChangeView, len(o.StatusHistory))
	for i, h := range o.StatusHistory {
		history[i] = StatusChangeView{Status: h.Status, Note: h.Note, ChangedBy: h.ChangedBy, ChangedAt: h.ChangedAt}
	}

	return OrderView{
		ID:              o.ID,
		OrderNumber:     o.OrderNumber,
		CustomerID:      o.CustomerID,
		Items:           itemViews,
		ShippingAddress: o.ShippingAddress,
		ShippingMethod:  o.ShippingMethod,
		PaymentMethod: PaymentMethodView{
			Type:            o.PaymentMethod.Type,
			Brand:           o.PaymentMethod.Brand,
			Last4:           o.PaymentMethod.Last4,
			PaymentIntentID: o.PaymentMethod.PaymentIntentID,
		},
		Status:            o.Status,
		PaymentStatus:     o.PaymentStatus,
		Subtotal:          o.Subtotal,
		ShippingCost:      o.ShippingCost,
		Tax:               o.Tax,
		Total:             o.Total,
		EstimatedDelivery: o.EstimatedDelivery,
		TrackingNumber:    o.TrackingNumber,
		TrackingURL:       o.TrackingURL,
		Carrier:           o.Carrier,
		IsPaid:            o.IsPaid,
		PaidAt:            o.PaidAt,
		DeliveredAt:       o.DeliveredAt,
		CancelledAt:       o.CancelledAt,
		CancelReason:      o.CancelReason,
		DeliveryProof:     ToDeliveryProofView(o.DeliveryProof, now),
		StatusHistory:     history,
		AllowedStatuses:   o.Status.AllowedTransitions(),
		CreatedAt:         o.CreatedAt,
		UpdatedAt:         o.UpdatedAt,
	}
}
