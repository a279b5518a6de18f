package payment

import (
	"context"
	"errors"
	"strings"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var maxIntentAmount = decimal.RequireFromString("999999.99")

// Intent statuses that can no longer be used for an order
var unusableStatuses = map[string]bool{
	"canceled":  true,
	"cancelled": true,
}

// CreateIntentRequest is the client's request for a card payment intent
type CreateIntentRequest struct {
	UserID         uuid.UUID
	Amount         decimal.Decimal
	Currency       string
	OrderReference string
}

// IntentResult is returned to the client to confirm the payment in the browser
type IntentResult struct {
	PaymentIntentID string
	ClientSecret    string
	AmountCents     int64
	Currency        string
}

// Service creates card payment intents and checks them at checkout
type Service struct {
	gateway  Gateway
	currency string
	logger   *zap.Logger
}

// NewService creates a payment service over gateway
func NewService(gateway Gateway, defaultCurrency string, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if defaultCurrency == "" {
		defaultCurrency = "usd"
	}
	return &Service{gateway: gateway, currency: strings.ToLower(defaultCurrency), logger: logger}
}

// CreatePaymentIntent converts the amount to cents and opens an intent
func (s *Service) CreatePaymentIntent(ctx context.Context, req CreateIntentRequest) (*IntentResult, error) {
	if !req.Amount.IsPositive() || req.Amount.GreaterThan(maxIntentAmount) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be between 0.01 and 999999.99")
	}
	currency := strings.ToLower(strings.TrimSpace(req.Currency))
	if currency == "" {
		currency = s.currency
	}

	cents := valueobject.NewMoneyUSD(req.Amount).Cents()
	if cents < 1 {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Amount must be between 0.01 and 999999.99")
	}
	intent, err := s.gateway.CreatePaymentIntent(ctx, CreateIntentInput{
		AmountCents:    cents,
		Currency:       currency,
		UserID:         req.UserID,
		OrderReference: req.OrderReference,
	})
	if err != nil {
		s.logger.Error("Failed to create payment intent",
			zap.String("user_id", req.UserID.String()),
			zap.Error(err))
		return nil, shared.NewDomainError("PAYMENT_PROVIDER_ERROR", "Payment provider is unavailable")
	}

	return &IntentResult{
		PaymentIntentID: intent.ID,
		ClientSecret:    intent.ClientSecret,
		AmountCents:     intent.AmountCents,
		Currency:        intent.Currency,
	}, nil
}

// VerifyCardPayment checks that intentID was opened by userID for exactly
// total. The order stays payment-pending; confirmation is the provider's job.
func (s *Service) VerifyCardPayment(ctx context.Context, intentID string, userID uuid.UUID, total decimal.Decimal) error {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return shared.NewDomainError("PAYMENT_INTENT_REQUIRED", "Card payments require a payment intent")
	}

	intent, err := s.gateway.GetPaymentIntent(ctx, intentID)
	if err != nil {
		if errors.Is(err, ErrIntentNotFound) {
			return shared.NewDomainError("INVALID_PAYMENT_INTENT", "Payment intent not found")
		}
		s.logger.Error("Failed to look up payment intent", zap.String("payment_intent_id", intentID), zap.Error(err))
		return shared.NewDomainError("PAYMENT_PROVIDER_ERROR", "Payment provider is unavailable")
	}

	if intent.UserID != userID.String() {
		return shared.NewDomainError("INVALID_PAYMENT_INTENT", "Payment intent belongs to another user")
	}
	if unusableStatuses[intent.Status] {
		return shared.NewDomainError("INVALID_PAYMENT_INTENT", "Payment intent was cancelled")
	}
	if intent.AmountCents != valueobject.NewMoneyUSD(total).Cents() {
		return shared.NewDomainError("PAYMENT_AMOUNT_MISMATCH", "Payment intent amount does not match the order total")
	}
	return nil
}
