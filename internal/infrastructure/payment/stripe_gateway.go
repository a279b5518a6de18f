// Package payment holds the card payment gateways.
package payment

import (
	"context"
	"errors"
	"fmt"
	"strings"

	paymentapp "github.com/artisanmarket/backend/internal/application/payment"
	"github.com/artisanmarket/backend/internal/infrastructure/config"
	"github.com/stripe/stripe-go/v81"
	"github.com/stripe/stripe-go/v81/paymentintent"
	"go.uber.org/zap"
)

// StripeGateway creates PaymentIntents through the Stripe API
type StripeGateway struct {
	client          paymentintent.Client
	defaultCurrency string
	logger          *zap.Logger
}

// StripeGatewayOption configures a StripeGateway
type StripeGatewayOption func(*StripeGateway)

// WithBackend overrides the Stripe API backend
func WithBackend(b stripe.Backend) StripeGatewayOption {
	return func(g *StripeGateway) {
		g.client.B = b
	}
}

// NewStripeGateway validates cfg and builds a gateway bound to its secret key
func NewStripeGateway(cfg config.StripeConfig, logger *zap.Logger, opts ...StripeGatewayOption) (*StripeGateway, error) {
	if cfg.SecretKey == "" {
		return nil, errors.New("stripe: secret key is required")
	}
	if !strings.HasPrefix(cfg.SecretKey, "sk_test_") && !strings.HasPrefix(cfg.SecretKey, "sk_live_") {
		return nil, errors.New("stripe: secret key must start with sk_test_ or sk_live_")
	}
	currency := strings.ToLower(cfg.DefaultCurrency)
	if currency == "" {
		currency = "usd"
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	g := &StripeGateway{
		client: paymentintent.Client{
			B:   stripe.GetBackend(stripe.APIBackend),
			Key: cfg.SecretKey,
		},
		defaultCurrency: currency,
		logger:          logger.Named("stripe"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// CreatePaymentIntent creates an intent with automatic payment methods enabled
func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, input paymentapp.CreateIntentInput) (*paymentapp.Intent, error) {
	currency := strings.ToLower(input.Currency)
	if currency == "" {
		currency = g.defaultCurrency
	}

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(input.AmountCents),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	params.AddMetadata("user_id", input.UserID.String())
	if input.OrderReference != "" {
		params.AddMetadata("order_reference", input.OrderReference)
	}

	pi, err := g.client.New(params)
	if err != nil {
		g.logger.Error("Failed to create payment intent",
			zap.String("user_id", input.UserID.String()),
			zap.Int64("amount_cents", input.AmountCents),
			zap.Error(err))
		return nil, fmt.Errorf("stripe: failed to create payment intent: %w", err)
	}

	g.logger.Info("Created payment intent",
		zap.String("payment_intent_id", pi.ID),
		zap.String("user_id", input.UserID.String()),
		zap.Int64("amount_cents", pi.Amount))
	return toIntent(pi), nil
}

// GetPaymentIntent retrieves an intent by ID
func (g *StripeGateway) GetPaymentIntent(ctx context.Context, id string) (*paymentapp.Intent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx

	pi, err := g.client.Get(id, params)
	if err != nil {
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.HTTPStatusCode == 404 {
			return nil, paymentapp.ErrIntentNotFound
		}
		return nil, fmt.Errorf("stripe: failed to get payment intent: %w", err)
	}
	return toIntent(pi), nil
}

func toIntent(pi *stripe.PaymentIntent) *paymentapp.Intent {
	return &paymentapp.Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		AmountCents:  pi.Amount,
		Currency:     string(pi.Currency),
		Status:       string(pi.Status),
		UserID:       pi.Metadata["user_id"],
		Reference:    pi.Metadata["order_reference"],
	}
}

var _ paymentapp.Gateway = (*StripeGateway)(nil)
