package order

import (
	"context"
	"time"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// OrderService serves order reads and the fulfillment workflow
type OrderService struct {
	orders    order.OrderRepository
	scope     TransactionScope
	publisher shared.EventPublisher
	now       func() time.Time
	logger    *zap.Logger
}

// OrderServiceOption configures an OrderService
type OrderServiceOption func(*OrderService)

// WithOrderClock overrides time.Now for status history and delivery stamps
func WithOrderClock(now func() time.Time) OrderServiceOption {
	return func(s *OrderService) { s.now = now }
}

// NewOrderService creates a new OrderService. publisher may be nil.
func NewOrderService(
	orders order.OrderRepository,
	scope TransactionScope,
	publisher shared.EventPublisher,
	logger *zap.Logger,
	opts ...OrderServiceOption,
) *OrderService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &OrderService{
		orders:    orders,
		scope:     scope,
		publisher: publisher,
		now:       time.Now,
		logger:    logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns the caller's orders; admins see every order
func (s *OrderService) List(ctx context.Context, actor Actor, query ListOrdersQuery) (*OrderListResult, error) {
	filter, err := query.filter()
	if err != nil {
		return nil, err
	}

	var (
		orders []order.Order
		total  int64
	)
	if actor.IsAdmin() {
		orders, total, err = s.orders.FindAll(ctx, filter)
	} else {
		orders, total, err = s.orders.FindByCustomer(ctx, actor.UserID, filter)
	}
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]OrderView, len(orders))
	for i := range orders {
		views[i] = ToOrderView(&orders[i], now)
	}
	return &OrderListResult{Orders: views, Pagination: shared.NewPagination(filter.Page, filter.Limit, total)}, nil
}

// ListForVendor returns orders containing the vendor's items, showing only
// those items.
func (s *OrderService) ListForVendor(ctx context.Context, vendorID uuid.UUID, query ListOrdersQuery) (*OrderListResult, error) {
	filter, err := query.filter()
	if err != nil {
		return nil, err
	}
	orders, total, err := s.orders.FindByVendor(ctx, vendorID, filter)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]OrderView, len(orders))
	for i := range orders {
		views[i] = ToVendorOrderView(&orders[i], vendorID, now)
	}
	return &OrderListResult{Orders: views, Pagination: shared.NewPagination(filter.Page, filter.Limit, total)}, nil
}

// Get returns one order. The customer and admins see the whole order; a
// vendor with items in it sees only their lines.
func (s *OrderService) Get(ctx context.Context, actor Actor, id uuid.UUID) (*OrderView, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	now := s.now()

	switch {
	case actor.IsAdmin() || o.IsOwnedBy(actor.UserID):
		view := ToOrderView(o, now)
		return &view, nil
	case actor.VendorID != nil && o.HasVendor(*actor.VendorID):
		view := ToVendorOrderView(o, *actor.VendorID, now)
		return &view, nil
	}
	return nil, shared.NewDomainError(shared.ErrForbidden.Code, "Not authorized to view this order")
}

// UpdateStatus moves an order along the transition table. Cancelling restores
// stock and refunds a balance payment; delivering a paid order credits each
// vendor with their share net of commission.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, id uuid.UUID, req UpdateStatusRequest) (*OrderView, error) {
	var (
		updated *order.Order
		changes []catalog.StockChange
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if err := authorizeFulfillment(actor, o); err != nil {
			return err
		}
		if err := o.TransitionTo(req.Status, req.Note, actor.UserID, s.now()); err != nil {
			return err
		}

		switch o.Status {
		case order.OrderStatusCancelled:
			if changes, err = restoreOrder(ctx, repos, o); err != nil {
				return err
			}
		case order.OrderStatusDelivered:
			if err := creditVendors(ctx, repos, o); err != nil {
				return err
			}
		}

		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", updated.ID.String()),
		zap.String("status", string(updated.Status)),
		zap.String("actor_id", actor.UserID.String()))

	s.publishFor(ctx, updated, changes)
	return s.viewFor(actor, updated), nil
}

// SetTracking attaches tracking and ships a pending or processing order
func (s *OrderService) SetTracking(ctx context.Context, actor Actor, id uuid.UUID, req TrackingRequest) (*OrderView, error) {
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorizeFulfillment(actor, o); err != nil {
		return nil, err
	}
	if err := o.SetTracking(req.TrackingNumber, req.TrackingURL, req.Carrier, actor.UserID, s.now()); err != nil {
		return nil, err
	}
	if err := s.orders.SaveWithLock(ctx, o); err != nil {
		return nil, err
	}

	s.publishFor(ctx, o, nil)
	return s.viewFor(actor, o), nil
}

// Cancel is the customer cancellation of a pending order. Stock is restored
// by exactly the ordered quantities and a balance payment is refunded.
func (s *OrderService) Cancel(ctx context.Context, actor Actor, id uuid.UUID, reason string) (*OrderView, error) {
	var (
		cancelled *order.Order
		changes   []catalog.StockChange
	)
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		o, err := repos.Orders().FindByID(ctx, id)
		if err != nil {
			return err
		}
		if !o.IsOwnedBy(actor.UserID) {
			return shared.NewDomainError(shared.ErrForbidden.Code, "Only the customer who placed the order can cancel it")
		}
		if err := o.Cancel(reason, actor.UserID, s.now()); err != nil {
			return err
		}
		if changes, err = restoreOrder(ctx, repos, o); err != nil {
			return err
		}
		if err := repos.Orders().SaveWithLock(ctx, o); err != nil {
			return err
		}
		cancelled = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Order cancelled by customer",
		zap.String("order_id", cancelled.ID.String()),
		zap.String("payment_status", string(cancelled.PaymentStatus)))

	s.publishFor(ctx, cancelled, changes)
	view := ToOrderView(cancelled, s.now())
	return &view, nil
}

func (s *OrderService) viewFor(actor Actor, o *order.Order) *OrderView {
	var view OrderView
	if !actor.IsAdmin() && actor.VendorID != nil && o.HasVendor(*actor.VendorID) {
		view = ToVendorOrderView(o, *actor.VendorID, s.now())
	} else {
		view = ToOrderView(o, s.now())
	}
	return &view
}

func (s *OrderService) publishFor(ctx context.Context, o *order.Order, changes []catalog.StockChange) {
	events := o.PullDomainEvents()
	if len(changes) > 0 {
		events = append(events, catalog.NewProductStockChangedEvent(o.ID, StockReasonCancellation, changes))
	}
	if err := shared.PublishEvents(ctx, s.publisher, events...); err != nil {
		s.logger.Warn("Failed to publish order events", zap.String("order_id", o.ID.String()), zap.Error(err))
	}
}

// authorizeFulfillment allows admins and vendors with items in the order
func authorizeFulfillment(actor Actor, o *order.Order) error {
	if actor.IsAdmin() {
		return nil
	}
	if actor.VendorID != nil && o.HasVendor(*actor.VendorID) {
		return nil
	}
	return shared.NewDomainError(shared.ErrForbidden.Code, "Only a vendor in this order or an admin can update it")
}

// restoreOrder returns every line to stock and refunds a balance payment
func restoreOrder(ctx context.Context, repos TransactionalRepositories, o *order.Order) ([]catalog.StockChange, error) {
	changes := make([]catalog.StockChange, 0, len(o.Items))
	for _, item := range o.Items {
		if err := repos.Products().RestoreStock(ctx, item.ProductID, item.Quantity); err != nil {
			return nil, err
		}
		changes = append(changes, catalog.StockChange{ProductID: item.ProductID, VendorID: item.VendorID, Delta: item.Quantity})
	}
	if o.RefundsBalance() {
		if err := repos.Users().CreditBalance(ctx, o.CustomerID, o.Total); err != nil {
			return nil, err
		}
	}
	return changes, nil
}

// creditVendors pays out a delivered order that was paid up front
func creditVendors(ctx context.Context, repos TransactionalRepositories, o *order.Order) error {
	if !o.IsPaid {
		return nil
	}
	for _, vendorID := range o.VendorIDs() {
		v, err := repos.Vendors().FindByID(ctx, vendorID)
		if err != nil {
			return err
		}
		gross := o.VendorSubtotal(vendorID)
		if err := repos.Vendors().CreditSale(ctx, vendorID, gross, v.NetEarning(gross)); err != nil {
			return err
		}
	}
	return nil
}
