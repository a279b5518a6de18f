package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus represents the fulfillment state of an order
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var allowedTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {},
	OrderStatusCancelled:  {},
}

// IsValid checks if the status is a known value
func (s OrderStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// IsTerminal returns true when no further transition is possible
func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled
}

// CanTransitionTo checks the transition table
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == target {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the states reachable from s
func (s OrderStatus) AllowedTransitions() []OrderStatus {
	next := allowedTransitions[s]
	out := make([]OrderStatus, len(next))
	copy(out, next)
	return out
}

// String returns the string representation
func (s OrderStatus) String() string {
	return string(s)
}

// PaymentStatus represents the payment state of an order
type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
)

// ShippingMethod is the delivery speed chosen at checkout
type ShippingMethod string

const (
	ShippingStandard  ShippingMethod = "standard"
	ShippingExpress   ShippingMethod = "express"
	ShippingOvernight ShippingMethod = "overnight"
)

type shippingRate struct {
	cost decimal.Decimal
	days int
}

var shippingRates = map[ShippingMethod]shippingRate{
	ShippingStandard:  {cost: decimal.RequireFromString("8.00"), days: 7},
	ShippingExpress:   {cost: decimal.RequireFromString("15.00"), days: 3},
	ShippingOvernight: {cost: decimal.RequireFromString("25.00"), days: 1},
}

// IsValid checks if the method is known
func (m ShippingMethod) IsValid() bool {
	_, ok := shippingRates[m]
	return ok
}

// Cost returns the flat shipping charge for the method
func (m ShippingMethod) Cost() decimal.Decimal {
	return shippingRates[m].cost
}

// TransitDays returns the fixed delivery offset for the method
func (m ShippingMethod) TransitDays() int {
	return shippingRates[m].days
}

// EstimateDelivery returns from plus the method's transit days
func EstimateDelivery(method ShippingMethod, from time.Time) time.Time {
	return from.AddDate(0, 0, method.TransitDays())
}

// PaymentMethodType is how the customer pays
type PaymentMethodType string

const (
	PaymentMethodBalance PaymentMethodType = "balance"
	PaymentMethodCard    PaymentMethodType = "card"
)

// IsValid checks if the type is known
func (t PaymentMethodType) IsValid() bool {
	return t == PaymentMethodBalance || t == PaymentMethodCard
}
