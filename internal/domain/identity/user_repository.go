package identity

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// UserRepository defines the interface for user persistence
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	// Update persists profile, auth and bank fields; the balance is left alone
	Update(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uuid.UUID) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)

	// DebitBalance subtracts amount only if the balance covers it.
	// Returns false without error when funds are insufficient.
	DebitBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) (bool, error)

	// CreditBalance adds amount to the balance (refunds)
	CreditBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error

	// SetBalance replaces the balance, used when a bank account is (re)linked
	SetBalance(ctx context.Context, id uuid.UUID, amount decimal.Decimal) error
}
