package payment

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
	"sync"

	paymentapp "github.com/artisanmarket/backend/internal/application/payment"
)

// SandboxGateway returns deterministic stub intents so the card flow can be
// exercised without Stripe credentials. Intents live for the process lifetime.
type SandboxGateway struct {
	mu       sync.RWMutex
	currency string
	intents  map[string]*paymentapp.Intent
	seq      int
}

// NewSandboxGateway creates an empty sandbox gateway
func NewSandboxGateway(currency string) *SandboxGateway {
	if currency == "" {
		currency = "usd"
	}
	return &SandboxGateway{
		currency: strings.ToLower(currency),
		intents:  make(map[string]*paymentapp.Intent),
	}
}

// CreatePaymentIntent records and returns a stub intent
func (g *SandboxGateway) CreatePaymentIntent(_ context.Context, input paymentapp.CreateIntentInput) (*paymentapp.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.seq++
	sum := sha256.Sum256([]byte(fmt.Sprintf("%s:%d:%d", input.UserID, input.AmountCents, g.seq)))
	id := "pi_sandbox_" + hex.EncodeToString(sum[:8])

	currency := strings.ToLower(input.Currency)
	if currency == "" {
		currency = g.currency
	}

	intent := &paymentapp.Intent{
		ID:           id,
		ClientSecret: id + "_secret_sandbox",
		AmountCents:  input.AmountCents,
		Currency:     currency,
		Status:       "requires_payment_method",
		UserID:       input.UserID.String(),
		Reference:    input.OrderReference,
	}
	g.intents[id] = intent
	copied := *intent
	return &copied, nil
}

// GetPaymentIntent returns a previously created stub intent
func (g *SandboxGateway) GetPaymentIntent(_ context.Context, id string) (*paymentapp.Intent, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()

	intent, ok := g.intents[id]
	if !ok {
		return nil, paymentapp.ErrIntentNotFound
	}
	copied := *intent
	return &copied, nil
}

var _ paymentapp.Gateway = (*SandboxGateway)(nil)
