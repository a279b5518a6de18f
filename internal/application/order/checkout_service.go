package order

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Stock change reasons carried by ProductStockChanged events
const (
	StockReasonCheckout     = "checkout"
	StockReasonCancellation = "cancellation"
)

// CardPaymentVerifier confirms a card payment intent matches the order
type CardPaymentVerifier interface {
	VerifyCardPayment(ctx context.Context, intentID string, userID uuid.UUID, total decimal.Decimal) error
}

// RejectionRecorder counts refused checkouts by error code
type RejectionRecorder interface {
	RecordCheckoutRejected(ctx context.Context, code string)
}

// CheckoutConfig holds order placement settings
type CheckoutConfig struct {
	// IdempotencyTTL is how long an Idempotency-Key stays claimed
	IdempotencyTTL time.Duration
	// TotalTolerance is the accepted difference between client and server totals
	TotalTolerance decimal.Decimal
	// OrderNumberAttempts bounds retries after an order number collision
	OrderNumberAttempts int
}

// DefaultCheckoutConfig returns a 24h key lifetime, one cent of tolerance and
// three number attempts.
func DefaultCheckoutConfig() CheckoutConfig {
	return CheckoutConfig{
		IdempotencyTTL:      24 * time.Hour,
		TotalTolerance:      decimal.RequireFromString("0.01"),
		OrderNumberAttempts: 3,
	}
}

// CheckoutService places orders. Stock, payment and the order row are
// written in one transaction.
type CheckoutService struct {
	scope       TransactionScope
	idempotency shared.IdempotencyStore
	payments    CardPaymentVerifier
	publisher   shared.EventPublisher
	rejections  RejectionRecorder
	config      CheckoutConfig
	now         func() time.Time
	logger      *zap.Logger
}

// CheckoutOption configures a CheckoutService
type CheckoutOption func(*CheckoutService)

// WithIdempotencyStore enables Idempotency-Key handling
func WithIdempotencyStore(store shared.IdempotencyStore) CheckoutOption {
	return func(s *CheckoutService) { s.idempotency = store }
}

// WithEventPublisher publishes OrderPlaced and stock events after commit
func WithEventPublisher(p shared.EventPublisher) CheckoutOption {
	return func(s *CheckoutService) { s.publisher = p }
}

// WithRejectionRecorder counts refused checkouts
func WithRejectionRecorder(r RejectionRecorder) CheckoutOption {
	return func(s *CheckoutService) { s.rejections = r }
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) CheckoutOption {
	return func(s *CheckoutService) { s.now = now }
}

// NewCheckoutService creates a new CheckoutService
func NewCheckoutService(
	scope TransactionScope,
	payments CardPaymentVerifier,
	config CheckoutConfig,
	logger *zap.Logger,
	opts ...CheckoutOption,
) *CheckoutService {
	if logger == nil {
		logger = zap.NewNop()
	}
	defaults := DefaultCheckoutConfig()
	if config.IdempotencyTTL <= 0 {
		config.IdempotencyTTL = defaults.IdempotencyTTL
	}
	if !config.TotalTolerance.IsPositive() {
		config.TotalTolerance = defaults.TotalTolerance
	}
	if config.OrderNumberAttempts <= 0 {
		config.OrderNumberAttempts = defaults.OrderNumberAttempts
	}
	s := &CheckoutService{
		scope:    scope,
		payments: payments,
		config:   config,
		now:      time.Now,
		logger:   logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Checkout validates the request, reserves stock, takes payment and stores
// the order. Any failure rolls back every write.
func (s *CheckoutService) Checkout(ctx context.Context, req CheckoutRequest) (_ *OrderView, err error) {
	defer func() {
		if err != nil {
			s.recordRejection(ctx, err)
		}
	}()

	lines, err := mergeLines(req.Items)
	if err != nil {
		return nil, err
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, shared.NewDomainError("INVALID_ADDRESS", err.Error())
	}
	if !req.ShippingMethod.IsValid() {
		return nil, shared.NewDomainError("INVALID_SHIPPING_METHOD", "Shipping method must be standard, express or overnight")
	}
	if !req.Payment.Type.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_METHOD", "Payment method must be balance or card")
	}
	if req.Payment.Type == order.PaymentMethodCard && req.Payment.PaymentIntentID == "" {
		return nil, shared.NewDomainError("PAYMENT_INTENT_REQUIRED", "Card payments require a payment intent")
	}

	release, err := s.claim(ctx, req)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err != nil {
			release()
		}
	}()

	var (
		placed  *order.Order
		changes []catalog.StockChange
	)
	for attempt := 1; ; attempt++ {
		placed, changes, err = s.place(ctx, req, lines)
		if err == nil {
			break
		}
		// A concurrent checkout took the same order number; the transaction
		// rolled back so the whole placement can run again.
		if errors.Is(err, shared.ErrAlreadyExists) && attempt < s.config.OrderNumberAttempts {
			s.logger.Debug("Order number collision, retrying", zap.Int("attempt", attempt))
			continue
		}
		return nil, err
	}

	s.logger.Info("Order placed",
		zap.String("order_id", placed.ID.String()),
		zap.String("order_number", placed.OrderNumber),
		zap.String("customer_id", placed.CustomerID.String()),
		zap.String("total", placed.Total.StringFixed(2)),
		zap.String("payment_method", string(placed.PaymentMethod.Type)))

	events := append(placed.PullDomainEvents(), catalog.NewProductStockChangedEvent(placed.ID, StockReasonCheckout, changes))
	s.publish(ctx, events)

	view := ToOrderView(placed, s.now())
	return &view, nil
}

// place runs one transactional attempt
func (s *CheckoutService) place(ctx context.Context, req CheckoutRequest, lines []CheckoutItem) (*order.Order, []catalog.StockChange, error) {
	var (
		placed  *order.Order
		changes []catalog.StockChange
	)
	now := s.now()

	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		items := make([]order.OrderItem, 0, len(lines))
		changes = make([]catalog.StockChange, 0, len(lines))

		for _, line := range lines {
			product, err := repos.Products().FindByID(ctx, line.ProductID)
			if err != nil {
				if errors.Is(err, shared.ErrNotFound) {
					return shared.NewDomainError(shared.ErrNotFound.Code, "Product not found: "+line.ProductID.String())
				}
				return err
			}
			if !product.IsPurchasable() {
				if product.Status == catalog.ProductStatusOutOfStock {
					return shared.NewDomainError(shared.ErrInsufficientStock.Code, "Insufficient stock for "+product.Name)
				}
				return shared.NewDomainError("PRODUCT_UNAVAILABLE", product.Name+" is not available for purchase")
			}

			ok, err := repos.Products().DecrementStock(ctx, product.ID, line.Quantity)
			if err != nil {
				return err
			}
			if !ok {
				return shared.NewDomainError(shared.ErrInsufficientStock.Code, "Insufficient stock for "+product.Name)
			}

			image := ""
			if len(product.Images) > 0 {
				image = product.Images[0]
			}
			items = append(items, order.OrderItem{
				ProductID: product.ID,
				VendorID:  product.VendorID,
				Name:      product.Name,
				Image:     image,
				Quantity:  line.Quantity,
				Price:     product.Price,
			})
			changes = append(changes, catalog.StockChange{ProductID: product.ID, VendorID: product.VendorID, Delta: -line.Quantity})
		}

		totals := order.CalculateTotals(items, req.ShippingMethod)
		if totals.Total.Sub(req.ClientTotal).Abs().GreaterThan(s.config.TotalTolerance) {
			return shared.NewDomainError(shared.ErrTotalMismatch.Code,
				fmt.Sprintf("Order total changed to %s, please review your cart", totals.Total.StringFixed(2)))
		}

		payment := order.PaymentMethod{Type: req.Payment.Type}
		switch req.Payment.Type {
		case order.PaymentMethodBalance:
			ok, err := repos.Users().DebitBalance(ctx, req.CustomerID, totals.Total)
			if err != nil {
				return err
			}
			if !ok {
				return shared.ErrInsufficientBalance
			}
		case order.PaymentMethodCard:
			used, err := repos.Orders().PaymentIntentUsed(ctx, req.Payment.PaymentIntentID)
			if err != nil {
				return err
			}
			if used {
				return shared.ErrPaymentIntentUsed
			}
			if err := s.payments.VerifyCardPayment(ctx, req.Payment.PaymentIntentID, req.CustomerID, totals.Total); err != nil {
				return err
			}
			payment.PaymentIntentID = req.Payment.PaymentIntentID
			payment.Brand = req.Payment.Brand
			payment.Last4 = req.Payment.Last4
		}

		number, err := repos.Orders().GenerateOrderNumber(ctx, now)
		if err != nil {
			return err
		}
		o, err := order.NewOrder(order.NewOrderParams{
			OrderNumber:     number,
			CustomerID:      req.CustomerID,
			Items:           items,
			ShippingAddress: req.ShippingAddress,
			ShippingMethod:  req.ShippingMethod,
			PaymentMethod:   payment,
			PlacedAt:        now,
		})
		if err != nil {
			return err
		}
		if payment.Type == order.PaymentMethodBalance {
			o.MarkPaid(now)
		}
		if err := repos.Orders().Create(ctx, o); err != nil {
			return err
		}
		placed = o
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	return placed, changes, nil
}

// claim reserves the Idempotency-Key for this user. The returned func frees
// it again so a failed attempt can be retried.
func (s *CheckoutService) claim(ctx context.Context, req CheckoutRequest) (func(), error) {
	if s.idempotency == nil || req.IdempotencyKey == "" {
		return func() {}, nil
	}
	key := "checkout:" + req.CustomerID.String() + ":" + req.IdempotencyKey
	claimed, err := s.idempotency.MarkProcessed(ctx, key, s.config.IdempotencyTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to claim idempotency key: %w", err)
	}
	if !claimed {
		return nil, shared.ErrDuplicateRequest
	}
	return func() {
		if err := s.idempotency.Release(context.WithoutCancel(ctx), key); err != nil {
			s.logger.Warn("Failed to release idempotency key", zap.String("key", key), zap.Error(err))
		}
	}, nil
}

func (s *CheckoutService) publish(ctx context.Context, events []shared.DomainEvent) {
	if err := shared.PublishEvents(ctx, s.publisher, events...); err != nil {
		s.logger.Warn("Failed to publish checkout events", zap.Error(err))
	}
}

func (s *CheckoutService) recordRejection(ctx context.Context, err error) {
	if s.rejections == nil {
		return
	}
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		s.rejections.RecordCheckoutRejected(ctx, domainErr.Code)
		return
	}
	s.rejections.RecordCheckoutRejected(ctx, "INTERNAL_ERROR")
}

// mergeLines validates requested lines and folds repeated products into one
// line, ordered by product ID so concurrent checkouts lock rows in the same order.
func mergeLines(items []CheckoutItem) ([]CheckoutItem, error) {
	if len(items) == 0 {
		return nil, shared.NewDomainError("NO_ITEMS", "Order must contain at least one item")
	}
	quantities := make(map[uuid.UUID]int, len(items))
	for _, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, shared.NewDomainError("INVALID_ITEM", "Order item must reference a product")
		}
		if item.Quantity <= 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
		}
		quantities[item.ProductID] += item.Quantity
	}

	lines := make([]CheckoutItem, 0, len(quantities))
	for id, qty := range quantities {
		lines = append(lines, CheckoutItem{ProductID: id, Quantity: qty})
	}
	sort.Slice(lines, func(i, j int) bool {
		return lines[i].ProductID.String() < lines[j].ProductID.String()
	})
	return lines, nil
}
