package identity

import (
	"net/mail"
	"strings"
	"time"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
	"golang.org/x/crypto/bcrypt"
)

// Role is the account type of a user
type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

// IsValid checks if the role is known
func (r Role) IsValid() bool {
	return r == RoleCustomer || r == RoleVendor || r == RoleAdmin
}

// UserStatus represents the status of a user
type UserStatus string

const (
	UserStatusActive      UserStatus = "active"
	UserStatusLocked      UserStatus = "locked"
	UserStatusDeactivated UserStatus = "deactivated"
)

var bcryptCost = bcrypt.DefaultCost

const minPasswordLength = 8

// BankAccount is the masked record of a linked bank account.
// The full account number never reaches this type.
type BankAccount struct {
	BankName      string
	AccountHolder string
	Last4         string
	ProviderRef   string
	LinkedAt      time.Time
}

// User is a marketplace account
type User struct {
	shared.BaseAggregateRoot
	Name           string
	Email          string
	PasswordHash   string
	Role           Role
	Status         UserStatus
	Balance        decimal.Decimal
	BankAccount    *BankAccount
	Addresses      []valueobject.Address
	FailedAttempts int
	LockedUntil    *time.Time
	LastLoginAt    *time.Time
}

// NewUser creates an active account with a hashed password
func NewUser(name, email, password string, role Role) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, shared.NewDomainError("INVALID_NAME", "Name is required")
	}
	email, err := normalizeEmail(email)
	if err != nil {
		return nil, err
	}
	if !role.IsValid() {
		return nil, shared.NewDomainError("INVALID_ROLE", "Unknown role")
	}
	hash, err := hashPassword(password)
	if err != nil {
		return nil, err
	}

	u := &User{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		Name:              name,
		Email:             email,
		PasswordHash:      hash,
		Role:              role,
		Status:            UserStatusActive,
		Balance:           decimal.Zero,
		Addresses:         []valueobject.Address{},
	}
	u.AddDomainEvent(NewUserRegisteredEvent(u))
	return u, nil
}

// VerifyPassword verifies if the provided password matches
func (u *User) VerifyPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// SetPassword replaces the password hash
func (u *User) SetPassword(password string) error {
	hash, err := hashPassword(password)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	u.Touch()
	u.IncrementVersion()
	return nil
}

// PromoteToVendor switches a customer account to a vendor account.
// Admins keep their role.
func (u *User) PromoteToVendor() {
	if u.Role == RoleCustomer {
		u.Role = RoleVendor
		u.Touch()
		u.IncrementVersion()
	}
}

// LinkBankAccount records a masked bank account and its available balance
func (u *User) LinkBankAccount(account BankAccount, available decimal.Decimal) error {
	if len(account.Last4) != 4 {
		return shared.NewDomainError("INVALID_BANK_ACCOUNT", "Bank account must be masked to its last 4 digits")
	}
	if available.IsNegative() {
		return shared.NewDomainError("INVALID_BANK_ACCOUNT", "Available balance cannot be negative")
	}
	if account.LinkedAt.IsZero() {
		account.LinkedAt = time.Now()
	}
	u.BankAccount = &account
	u.Balance = available
	u.Touch()
	u.IncrementVersion()
	return nil
}

// HasLinkedBank reports whether a bank account is linked
func (u *User) HasLinkedBank() bool {
	return u.BankAccount != nil
}

// CanAfford reports whether the balance covers amount
func (u *User) CanAfford(amount decimal.Decimal) bool {
	return u.Balance.GreaterThanOrEqual(amount)
}

// AddAddress saves a shipping address for later checkouts
func (u *User) AddAddress(addr valueobject.Address) error {
	if err := addr.Validate(); err != nil {
		return shared.NewDomainError("INVALID_ADDRESS", err.Error())
	}
	u.Addresses = append(u.Addresses, addr)
	u.Touch()
	return nil
}

// RecordLoginSuccess records a successful login
func (u *User) RecordLoginSuccess() {
	now := time.Now()
	u.LastLoginAt = &now
	u.FailedAttempts = 0
	if u.Status == UserStatusLocked {
		u.Status = UserStatusActive
		u.LockedUntil = nil
	}
	u.UpdatedAt = now
}

// RecordLoginFailure records a failed login attempt.
// Returns true if the account got locked.
func (u *User) RecordLoginFailure(maxAttempts int, lockDuration time.Duration) bool {
	u.FailedAttempts++
	u.Touch()
	if maxAttempts > 0 && u.FailedAttempts >= maxAttempts {
		until := time.Now().Add(lockDuration)
		u.Status = UserStatusLocked
		u.LockedUntil = &until
		return true
	}
	return false
}

// IsLocked returns true while a lock is in effect
func (u *User) IsLocked() bool {
	if u.Status != UserStatusLocked {
		return false
	}
	return u.LockedUntil == nil || time.Now().Before(*u.LockedUntil)
}

// CanLogin returns true if the user may authenticate
func (u *User) CanLogin() bool {
	return u.Status != UserStatusDeactivated && !u.IsLocked()
}

// IsAdmin returns true for platform administrators
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", shared.NewDomainError("INVALID_EMAIL", "Invalid email format")
	}
	return email, nil
}

func hashPassword(password string) (string, error) {
	if len(password) < minPasswordLength {
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password must be at least 8 characters")
	}
	if len(password) > 72 {
		return "", shared.NewDomainError("INVALID_PASSWORD", "Password cannot exceed 72 characters")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", shared.NewDomainError("PASSWORD_HASH_ERROR", "Failed to hash password")
	}
	return string(hash), nil
}
