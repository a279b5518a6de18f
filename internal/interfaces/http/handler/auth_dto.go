package handler

import (
	"time"

	appidentity "github.com/artisanmarket/backend/internal/application/identity"
	"github.com/artisanmarket/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =====================
// Auth Request DTOs
// =====================

// RegisterRequest represents the request body for account registration
type RegisterRequest struct {
	Name     string `json:"name" binding:"required,min=2,max=100"`
	Email    string `json:"email" binding:"required,email,max=254"`
	Password string `json:"password" binding:"required,min=8,max=128"`
	Role     string `json:"role" binding:"omitempty,oneof=customer vendor"`
}

// LoginRequest represents the request body for user login
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RefreshTokenRequest represents the request body for token refresh
type RefreshTokenRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// LogoutRequest optionally carries the refresh token to revoke with the session
type LogoutRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// ConnectBankRequest represents the request body for linking a bank account
type ConnectBankRequest struct {
	BankName      string `json:"bankName" binding:"required,max=100"`
	AccountHolder string `json:"accountHolder" binding:"required,max=100"`
	AccountNumber string `json:"accountNumber" binding:"required,numeric,min=4,max=17"`
	RoutingNumber string `json:"routingNumber" binding:"required,numeric,len=9"`
}

// =====================
// Auth Response DTOs
// =====================

// UserResponse is the account returned by auth endpoints
type UserResponse struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Email       string                `json:"email"`
	Role        string                `json:"role"`
	VendorID    *uuid.UUID            `json:"vendorId,omitempty"`
	Balance     decimal.Decimal       `json:"balance"`
	BankAccount *BankAccountResponse  `json:"bankAccount,omitempty"`
	Addresses   []valueobject.Address `json:"addresses"`
	CreatedAt   time.Time             `json:"createdAt"`
}

// BankAccountResponse is the masked linked account
type BankAccountResponse struct {
	BankName      string    `json:"bankName"`
	AccountHolder string    `json:"accountHolder"`
	Last4         string    `json:"last4"`
	LinkedAt      time.Time `json:"linkedAt"`
}

// BankBalanceResponse is returned by the bank endpoints
type BankBalanceResponse struct {
	Linked        bool                 `json:"linked"`
	Balance       decimal.Decimal      `json:"balance"`
	BankAccount   *BankAccountResponse `json:"bankAccount,omitempty"`
	BankAvailable *decimal.Decimal     `json:"bankAvailable,omitempty"`
}

func toUserResponse(u appidentity.UserInfo) UserResponse {
	return UserResponse{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Role:        string(u.Role),
		VendorID:    u.VendorID,
		Balance:     u.Balance,
		BankAccount: toBankAccountResponse(u.BankAccount),
		Addresses:   u.Addresses,
		CreatedAt:   u.CreatedAt,
	}
}

func toBankAccountResponse(b *appidentity.BankAccountInfo) *BankAccountResponse {
	if b == nil {
		return nil
	}
	return &BankAccountResponse{
		BankName:      b.BankName,
		AccountHolder: b.AccountHolder,
		Last4:         b.Last4,
		LinkedAt:      b.LinkedAt,
	}
}

func toBankBalanceResponse(r *appidentity.BankBalanceResult) BankBalanceResponse {
	return BankBalanceResponse{
		Linked:        r.Linked,
		Balance:       r.Balance,
		BankAccount:   toBankAccountResponse(r.BankAccount),
		BankAvailable: r.BankAvailable,
	}
}
