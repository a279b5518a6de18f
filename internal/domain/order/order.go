package order

import (
	"strings"
	"time"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TaxRate is the flat sales tax applied to the subtotal
var TaxRate = decimal.RequireFromString("0.08")

// ReuploadWindow is how long after the first delivery-proof upload a vendor
// may replace it.
const ReuploadWindow = 15 * time.Minute

const maxItemsPerOrder = 50

// OrderItem is one purchased line with its price snapshot
type OrderItem struct {
	ID        uuid.UUID
	ProductID uuid.UUID
	VendorID  uuid.UUID
	Name      string
	Image     string
	Quantity  int
	Price     decimal.Decimal
}

// Total returns price × quantity
func (i OrderItem) Total() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// PaymentMethod is the masked payment record. Raw card data is never stored.
type PaymentMethod struct {
	Type            PaymentMethodType
	Brand           string
	Last4           string
	PaymentIntentID string
}

// DeliveryProof is the vendor's photo evidence that a shipment arrived
type DeliveryProof struct {
	ImageURL       string
	FileID         string
	Note           string
	UploadedBy     uuid.UUID
	UploadedAt     time.Time
	LastUploadedAt time.Time
	UploadCount    int
}

// ReuploadDeadline returns the last instant a replacement is accepted
func (p DeliveryProof) ReuploadDeadline() time.Time {
	return p.UploadedAt.Add(ReuploadWindow)
}

// CanReupload reports whether now is still inside the re-upload window
func (p DeliveryProof) CanReupload(now time.Time) bool {
	return !now.After(p.ReuploadDeadline())
}

// StatusChange is one entry of the order's status history
type StatusChange struct {
	Status    OrderStatus
	Note      string
	ChangedBy uuid.UUID
	ChangedAt time.Time
}

// Totals are the money fields of an order
type Totals struct {
	Subtotal     decimal.Decimal
	ShippingCost decimal.Decimal
	Tax          decimal.Decimal
	Total        decimal.Decimal
}

// CalculateTotals computes subtotal, shipping, tax and total rounded to cents.
// total is always subtotal + shipping + tax.
func CalculateTotals(items []OrderItem, method ShippingMethod) Totals {
	subtotal := valueobject.Zero()
	for _, item := range items {
		subtotal, _ = subtotal.Add(valueobject.NewMoneyUSD(item.Total()))
	}
	subtotal = subtotal.Round()
	shipping := valueobject.NewMoneyUSD(method.Cost()).Round()
	tax := subtotal.MultiplyRate(TaxRate).Round()

	total, _ := subtotal.Add(shipping)
	total, _ = total.Add(tax)

	return Totals{
		Subtotal:     subtotal.Amount(),
		ShippingCost: shipping.Amount(),
		Tax:          tax.Amount(),
		Total:        total.Amount(),
	}
}

// Order is the aggregate root for a checkout
type Order struct {
	shared.BaseAggregateRoot
	OrderNumber       string
	CustomerID        uuid.UUID
	Items             []OrderItem
	ShippingAddress   valueobject.Address
	ShippingMethod    ShippingMethod
	PaymentMethod     PaymentMethod
	Status            OrderStatus
	PaymentStatus     PaymentStatus
	Subtotal          decimal.Decimal
	ShippingCost      decimal.Decimal
	Tax               decimal.Decimal
	Total             decimal.Decimal
	EstimatedDelivery time.Time
	TrackingNumber    string
	TrackingURL       string
	Carrier           string
	IsPaid            bool
	PaidAt            *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	CancelReason      string
	DeliveryProof     *DeliveryProof
	StatusHistory     []StatusChange
}

// NewOrderParams holds the inputs for placing an order
type NewOrderParams struct {
	OrderNumber     string
	CustomerID      uuid.UUID
	Items           []OrderItem
	ShippingAddress valueobject.Address
	ShippingMethod  ShippingMethod
	PaymentMethod   PaymentMethod
	PlacedAt        time.Time
}

// NewOrder creates a pending order and derives its totals and estimated delivery
func NewOrder(p NewOrderParams) (*Order, error) {
	if !IsValidOrderNumber(p.OrderNumber) {
		return nil, shared.NewDomainError("INVALID_ORDER_NUMBER", "Order number must match ORD-YYMMDD-####")
	}
	if p.CustomerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer cannot be empty")
	}
	if len(p.Items) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Order must contain at least one item")
	}
	if len(p.Items) > maxItemsPerOrder {
		return nil, shared.NewDomainError("TOO_MANY_ITEMS", "Order cannot contain more than 50 items")
	}
	if err := p.ShippingAddress.Validate(); err != nil {
		return nil, shared.NewDomainError("INVALID_ADDRESS", err.Error())
	}
	if !p.ShippingMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_SHIPPING_METHOD", "Shipping method must be standard, express or overnight")
	}
	if !p.PaymentMethod.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method must be balance or card")
	}

	items := make([]OrderItem, len(p.Items))
	for i, item := range p.Items {
		if item.ProductID == uuid.Nil || item.VendorID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_ITEM", "Order item must reference a product and vendor")
		}
		if item.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
		}
		if item.Price.IsNegative() {
			return nil, shared.NewDomainError("INVALID_PRICE", "Price cannot be negative")
		}
		if item.ID == uuid.Nil {
			item.ID = uuid.New()
		}
		items[i] = item
	}

	placedAt := p.PlacedAt
	if placedAt.IsZero() {
		placedAt = time.Now()
	}
	totals := CalculateTotals(items, p.ShippingMethod)

	o := &Order{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		OrderNumber:       p.OrderNumber,
		CustomerID:        p.CustomerID,
		Items:             items,
		ShippingAddress:   p.ShippingAddress,
		ShippingMethod:    p.ShippingMethod,
		PaymentMethod:     p.PaymentMethod,
		Status:            OrderStatusPending,
		PaymentStatus:     PaymentStatusPending,
		Subtotal:          totals.Subtotal,
		ShippingCost:      totals.ShippingCost,
		Tax:               totals.Tax,
		Total:             totals.Total,
		EstimatedDelivery: EstimateDelivery(p.ShippingMethod, placedAt),
		StatusHistory: []StatusChange{{
			Status:    OrderStatusPending,
			Note:      "Order placed",
			ChangedBy: p.CustomerID,
			ChangedAt: placedAt,
		}},
	}
	o.CreatedAt = placedAt
	o.UpdatedAt = placedAt

	o.AddDomainEvent(NewOrderPlacedEvent(o))
	return o, nil
}

// Totals returns the stored money fields
func (o *Order) Totals() Totals {
	return Totals{Subtotal: o.Subtotal, ShippingCost: o.ShippingCost, Tax: o.Tax, Total: o.Total}
}

// MarkPaid records a completed payment
func (o *Order) MarkPaid(at time.Time) {
	o.IsPaid = true
	o.PaidAt = &at
	o.PaymentStatus = PaymentStatusCompleted
	o.UpdatedAt = at
}

// TransitionTo moves the order along the transition table at time at
func (o *Order) TransitionTo(target OrderStatus, note string, actor uuid.UUID, at time.Time) error {
	if !target.IsValid() {
		return shared.NewDomainError("INVALID_STATUS", "Unknown order status: "+string(target))
	}
	if !o.Status.CanTransitionTo(target) {
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			"Cannot change order status from "+string(o.Status)+" to "+string(target))
	}
	o.applyStatus(target, note, actor, at)
	return nil
}

// SetTracking attaches shipment tracking. A pending or processing order moves
// straight to shipped; on an already shipped order only the tracking changes.
func (o *Order) SetTracking(number, url, carrier string, actor uuid.UUID, at time.Time) error {
	number = strings.TrimSpace(number)
	if number == "" {
		return shared.NewDomainError("INVALID_TRACKING", "Tracking number is required")
	}
	switch o.Status {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped:
	default:
		return shared.NewDomainError(shared.ErrInvalidState.Code,
			"Tracking cannot be set on a "+string(o.Status)+" order")
	}

	o.TrackingNumber = number
	o.TrackingURL = strings.TrimSpace(url)
	o.Carrier = strings.TrimSpace(carrier)

	if o.Status != OrderStatusShipped {
		o.applyStatus(OrderStatusShipped, "Tracking added: "+number, actor, at)
		return nil
	}
	o.UpdatedAt = at
	o.IncrementVersion()
	return nil
}

// Cancel is the customer cancellation path. Only pending orders qualify.
func (o *Order) Cancel(reason string, actor uuid.UUID, at time.Time) error {
	if o.Status != OrderStatusPending {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Only pending orders can be cancelled")
	}
	o.CancelReason = strings.TrimSpace(reason)
	o.applyStatus(OrderStatusCancelled, o.CancelReason, actor, at)
	return nil
}

// RefundsBalance reports whether cancelling must return funds to the customer balance
func (o *Order) RefundsBalance() bool {
	return o.IsPaid && o.PaymentMethod.Type == PaymentMethodBalance
}

// RecordDeliveryProof stores or replaces the vendor's delivery photo. Only the
// vendor who uploaded first may replace it, and only within ReuploadWindow.
func (o *Order) RecordDeliveryProof(vendorID uuid.UUID, imageURL, fileID, note string, now time.Time) error {
	if !o.HasVendor(vendorID) {
		return shared.NewDomainError(shared.ErrForbidden.Code, "Vendor has no items in this order")
	}
	if o.Status != OrderStatusShipped && o.Status != OrderStatusDelivered {
		return shared.NewDomainError(shared.ErrInvalidState.Code, "Delivery proof requires a shipped or delivered order")
	}
	if strings.TrimSpace(imageURL) == "" {
		return shared.NewDomainError("INVALID_PROOF", "Delivery proof image is required")
	}

	switch {
	case o.DeliveryProof == nil:
		o.DeliveryProof = &DeliveryProof{UploadedAt: now}
	case o.DeliveryProof.UploadedBy != vendorID:
		return shared.NewDomainError(shared.ErrForbidden.Code, "Delivery proof belongs to another vendor")
	case !o.DeliveryProof.CanReupload(now):
		return shared.ErrReuploadWindowExpired
	}

	o.DeliveryProof.ImageURL = imageURL
	o.DeliveryProof.FileID = fileID
	o.DeliveryProof.Note = strings.TrimSpace(note)
	o.DeliveryProof.UploadedBy = vendorID
	o.DeliveryProof.LastUploadedAt = now
	o.DeliveryProof.UploadCount++

	o.UpdatedAt = now
	o.IncrementVersion()
	o.AddDomainEvent(NewDeliveryProofUploadedEvent(o, vendorID))
	return nil
}

// HasVendor reports whether any item belongs to vendorID
func (o *Order) HasVendor(vendorID uuid.UUID) bool {
	for _, item := range o.Items {
		if item.VendorID == vendorID {
			return true
		}
	}
	return false
}

// VendorIDs returns the distinct vendors in the order, in item order
func (o *Order) VendorIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0, len(o.Items))
	for _, item := range o.Items {
		if _, ok := seen[item.VendorID]; ok {
			continue
		}
		seen[item.VendorID] = struct{}{}
		ids = append(ids, item.VendorID)
	}
	return ids
}

// ItemsForVendor returns only the vendor's lines
func (o *Order) ItemsForVendor(vendorID uuid.UUID) []OrderItem {
	items := make([]OrderItem, 0)
	for _, item := range o.Items {
		if item.VendorID == vendorID {
			items = append(items, item)
		}
	}
	return items
}

// VendorSubtotal sums the vendor's lines
func (o *Order) VendorSubtotal(vendorID uuid.UUID) decimal.Decimal {
	sum := decimal.Zero
	for _, item := range o.ItemsForVendor(vendorID) {
		sum = sum.Add(item.Total())
	}
	return sum.Round(2)
}

// IsOwnedBy reports whether customerID placed the order
func (o *Order) IsOwnedBy(customerID uuid.UUID) bool {
	return o.CustomerID == customerID
}

func (o *Order) applyStatus(target OrderStatus, note string, actor uuid.UUID, now time.Time) {
	old := o.Status
	o.Status = target

	switch target {
	case OrderStatusDelivered:
		o.DeliveredAt = &now
	case OrderStatusCancelled:
		o.CancelledAt = &now
		if o.RefundsBalance() {
			o.PaymentStatus = PaymentStatusRefunded
		}
	}

	o.StatusHistory = append(o.StatusHistory, StatusChange{
		Status:    target,
		Note:      note,
		ChangedBy: actor,
		ChangedAt: now,
	})
	o.UpdatedAt = now
	o.IncrementVersion()

	o.AddDomainEvent(NewOrderStatusChangedEvent(o, old, target))
	switch target {
	case OrderStatusCancelled:
		o.AddDomainEvent(NewOrderCancelledEvent(o, actor))
	case OrderStatusDelivered:
		o.AddDomainEvent(NewOrderDeliveredEvent(o))
	}
}
