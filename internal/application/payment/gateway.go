package payment

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrIntentNotFound is returned by a Gateway for unknown payment intent IDs
var ErrIntentNotFound = errors.New("payment intent not found")

// Intent is the provider-neutral view of a card payment intent
type Intent struct {
	ID           string
	ClientSecret string
	AmountCents  int64
	Currency     string
	Status       string
	UserID       string
	Reference    string
}

// CreateIntentInput describes a card payment to be authorised by the client
type CreateIntentInput struct {
	AmountCents    int64
	Currency       string
	UserID         uuid.UUID
	OrderReference string
}

// Gateway creates and looks up card payment intents
type Gateway interface {
	CreatePaymentIntent(ctx context.Context, input CreateIntentInput) (*Intent, error)
	GetPaymentIntent(ctx context.Context, id string) (*Intent, error)
}
