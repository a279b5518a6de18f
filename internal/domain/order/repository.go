package order

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderFilter narrows order listings
type OrderFilter struct {
	Status *OrderStatus
	Page   int
	Limit  int
}

// VendorOrderStats summarizes a vendor's order activity
type VendorOrderStats struct {
	TotalOrders   int64
	PendingOrders int64
	TotalRevenue  decimal.Decimal
}

// OrderRepository defines the interface for order persistence
type OrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Order, error)
	FindByOrderNumber(ctx context.Context, orderNumber string) (*Order, error)
	FindAll(ctx context.Context, filter OrderFilter) ([]Order, int64, error)
	FindByCustomer(ctx context.Context, customerID uuid.UUID, filter OrderFilter) ([]Order, int64, error)
	FindByVendor(ctx context.Context, vendorID uuid.UUID, filter OrderFilter) ([]Order, int64, error)

	// Create inserts a new order with its items
	Create(ctx context.Context, order *Order) error

	// SaveWithLock updates an existing order using optimistic locking on Version.
	// Returns shared.ErrConcurrencyConflict when the stored version moved on.
	SaveWithLock(ctx context.Context, order *Order) error

	// PaymentIntentUsed reports whether any order already references intentID
	PaymentIntentUsed(ctx context.Context, intentID string) (bool, error)

	// GenerateOrderNumber returns the next ORD-YYMMDD-#### for the day of at
	GenerateOrderNumber(ctx context.Context, at time.Time) (string, error)

	// VendorStats aggregates orders containing the vendor's items
	VendorStats(ctx context.Context, vendorID uuid.UUID) (VendorOrderStats, error)
}
