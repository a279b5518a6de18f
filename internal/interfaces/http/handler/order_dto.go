package handler

import (
	apporder "github.com/artisanmarket/backend/internal/application/order"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// IdempotencyKeyHeader lets clients retry checkout without placing a second order
const IdempotencyKeyHeader = "Idempotency-Key"

// CheckoutItemRequest is one requested cart line
type CheckoutItemRequest struct {
	ProductID uuid.UUID `json:"productId" binding:"required"`
	Quantity  int       `json:"quantity" binding:"required,min=1,max=1000"`
}

// AddressRequest is the delivery address
type AddressRequest struct {
	FullName string `json:"fullName" binding:"required,max=100"`
	Street   string `json:"street" binding:"required,max=200"`
	City     string `json:"city" binding:"required,max=100"`
	State    string `json:"state" binding:"required,max=100"`
	ZipCode  string `json:"zipCode" binding:"required,max=20"`
	Country  string `json:"country" binding:"required,max=100"`
	Phone    string `json:"phone" binding:"omitempty,max=30"`
}

// PaymentMethodRequest is the chosen payment; card details arrive masked
type PaymentMethodRequest struct {
	Type            string `json:"type" binding:"required,oneof=balance card"`
	PaymentIntentID string `json:"paymentIntentId" binding:"required_if=Type card,max=255"`
	Brand           string `json:"brand" binding:"omitempty,max=30"`
	Last4           string `json:"last4" binding:"omitempty,len=4,numeric"`
}

// CheckoutRequest represents the request body for placing an order
type CheckoutRequest struct {
	Items           []CheckoutItemRequest `json:"items" binding:"required,min=1,max=50,dive"`
	ShippingAddress AddressRequest        `json:"shippingAddress" binding:"required"`
	ShippingMethod  string                `json:"shippingMethod" binding:"required,shipping_method"`
	PaymentMethod   PaymentMethodRequest  `json:"paymentMethod" binding:"required"`
	Total           *decimal.Decimal      `json:"total" binding:"required"`
}

func (r CheckoutRequest) toRequest(customerID uuid.UUID, idempotencyKey string) apporder.CheckoutRequest {
	items := make([]apporder.CheckoutItem, len(r.Items))
	for i, item := range r.Items {
		items[i] = apporder.CheckoutItem{ProductID: item.ProductID, Quantity: item.Quantity}
	}
	return apporder.CheckoutRequest{
		CustomerID: customerID,
		Items:      items,
		ShippingAddress: valueobject.Address{
			FullName: r.ShippingAddress.FullName,
			Street:   r.ShippingAddress.Street,
			City:     r.ShippingAddress.City,
			State:    r.ShippingAddress.State,
			ZipCode:  r.ShippingAddress.ZipCode,
			Country:  r.ShippingAddress.Country,
			Phone:    r.ShippingAddress.Phone,
		},
		ShippingMethod: order.ShippingMethod(r.ShippingMethod),
		Payment: apporder.PaymentInput{
			Type:            order.PaymentMethodType(r.PaymentMethod.Type),
			PaymentIntentID: r.PaymentMethod.PaymentIntentID,
			Brand:           r.PaymentMethod.Brand,
			Last4:           r.PaymentMethod.Last4,
		},
		ClientTotal:    *r.Total,
		IdempotencyKey: idempotencyKey,
	}
}

// ListOrdersQuery holds order list paging and filtering
type ListOrdersQuery struct {
	Status string `form:"status" binding:"omitempty,oneof=pending processing shipped delivered cancelled"`
	Page   int    `form:"page" binding:"omitempty,min=1"`
	Limit  int    `form:"limit" binding:"omitempty,min=1,max=100"`
}

func (q ListOrdersQuery) toQuery() apporder.ListOrdersQuery {
	out := apporder.ListOrdersQuery{Page: q.Page, Limit: q.Limit}
	if q.Status != "" {
		s := order.OrderStatus(q.Status)
		out.Status = &s
	}
	return out
}

// UpdateStatusRequest represents a status change
type UpdateStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=pending processing shipped delivered cancelled"`
	Note   string `json:"note" binding:"omitempty,max=500"`
}

// TrackingRequest represents shipment tracking details
type TrackingRequest struct {
	TrackingNumber string `json:"trackingNumber" binding:"required,max=100"`
	TrackingURL    string `json:"trackingUrl" binding:"omitempty,url,max=500"`
	Carrier        string `json:"carrier" binding:"omitempty,max=50"`
}

// CancelOrderRequest carries the optional cancellation reason
type CancelOrderRequest struct {
	Reason string `json:"reason" binding:"omitempty,max=500"`
}

// DeliveryProofRequest represents an uploaded proof photo
type DeliveryProofRequest struct {
	ImageURL string `json:"imageUrl" binding:"required,url,max=1000"`
	FileID   string `json:"fileId" binding:"required,max=500"`
	Note     string `json:"note" binding:"omitempty,max=500"`
}
