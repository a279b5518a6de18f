package identity

import (
	"time"

	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/domain/shared/valueobject"
	"github.com/artisanmarket/backend/internal/infrastructure/auth"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RegisterInput contains the input for account registration
type RegisterInput struct {
	Name     string
	Email    string
	Password string
	Role     identity.Role // customer or vendor; empty means customer
}

// LoginInput contains the input for user login
type LoginInput struct {
	Email    string
	Password string
}

// AuthResult is returned after register, login and refresh
type AuthResult struct {
	Tokens *auth.TokenPair
	User   UserInfo
}

// UserInfo is the caller-facing view of an account
type UserInfo struct {
	ID          uuid.UUID
	Name        string
	Email       string
	Role        identity.Role
	VendorID    *uuid.UUID
	Balance     decimal.Decimal
	BankAccount *BankAccountInfo
	Addresses   []valueobject.Address
	CreatedAt   time.Time
}

// BankAccountInfo is the masked bank account shown to its owner
type BankAccountInfo struct {
	BankName      string
	AccountHolder string
	Last4         string
	LinkedAt      time.Time
}

// RefreshTokenInput contains the input for token refresh
type RefreshTokenInput struct {
	RefreshToken string
}

// LogoutInput contains the input for user logout
type LogoutInput struct {
	UserID   uuid.UUID
	TokenJTI string        // access token ID to revoke
	TokenTTL time.Duration // remaining lifetime of the access token
	// RefreshToken is revoked as well when the client sends it
	RefreshToken string
}

// ConnectBankInput carries the raw account details from the client
type ConnectBankInput struct {
	UserID        uuid.UUID
	BankName      string
	AccountHolder string
	AccountNumber string
	RoutingNumber string
}

// BankBalanceResult reports the spendable marketplace balance
type BankBalanceResult struct {
	Linked      bool
	Balance     decimal.Decimal
	BankAccount *BankAccountInfo
	// BankAvailable is the provider-side balance when it could be fetched
	BankAvailable *decimal.Decimal
}

// ToUserInfo converts a domain user to its DTO
func ToUserInfo(u *identity.User, vendorID *uuid.UUID) UserInfo {
	info := UserInfo{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Role:      u.Role,
		VendorID:  vendorID,
		Balance:   u.Balance,
		Addresses: u.Addresses,
		CreatedAt: u.CreatedAt,
	}
	if info.Addresses == nil {
		info.Addresses = []valueobject.Address{}
	}
	info.BankAccount = toBankAccountInfo(u.BankAccount)
	return info
}

func toBankAccountInfo(b *identity.BankAccount) *BankAccountInfo {
	if b == nil {
		return nil
	}
	return &BankAccountInfo{
		BankName:      b.BankName,
		AccountHolder: b.AccountHolder,
		Last4:         b.Last4,
		LinkedAt:      b.LinkedAt,
	}
}
