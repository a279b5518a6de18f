package identity

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ErrBankLinkRejected is returned when the provider refuses the account details
var ErrBankLinkRejected = errors.New("bank account rejected by provider")

// BankLinkRequest carries the raw account details; they are passed to the
// provider and never persisted.
type BankLinkRequest struct {
	UserID        string
	BankName      string
	AccountHolder string
	AccountNumber string
	RoutingNumber string
}

// LinkedBankAccount is what the provider returns after a successful link
type LinkedBankAccount struct {
	ProviderRef      string
	Last4            string
	AvailableBalance decimal.Decimal
}

// BankProvider links bank accounts and reports their balance
type BankProvider interface {
	Link(ctx context.Context, req BankLinkRequest) (*LinkedBankAccount, error)
	Balance(ctx context.Context, providerRef string) (decimal.Decimal, error)
}
