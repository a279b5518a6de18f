package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// AddressList is a list of addresses stored as a JSON array column
type AddressList []valueobject.Address

// Value implements driver.Valuer
func (l AddressList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	b, err := json.Marshal([]valueobject.Address(l))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Scan implements sql.Scanner
func (l *AddressList) Scan(value any) error {
	var data []byte
	switch v := value.(type) {
	case nil:
		*l = AddressList{}
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("cannot scan %T into AddressList", value)
	}
	out := []valueobject.Address{}
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}
	*l = out
	return nil
}

// UserModel is the persistence model for the User domain entity.
// The bank account is flattened and holds masked data only.
type UserModel struct {
	AggregateModel
	Name              string              `gorm:"type:varchar(100);not null"`
	Email             string              `gorm:"type:varchar(200);not null;uniqueIndex"`
	PasswordHash      string              `gorm:"type:varchar(255);not null"`
	Role              identity.Role       `gorm:"type:varchar(20);not null;default:'customer'"`
	Status            identity.UserStatus `gorm:"type:varchar(20);not null;default:'active'"`
	Balance           decimal.Decimal     `gorm:"type:decimal(18,2);not null;default:0"`
	BankName          string              `gorm:"type:varchar(100)"`
	BankAccountHolder string              `gorm:"type:varchar(100)"`
	BankLast4         string              `gorm:"type:varchar(4)"`
	BankProviderRef   string              `gorm:"type:varchar(100)"`
	BankLinkedAt      *time.Time
	Addresses         AddressList `gorm:"type:text;not null"`
	FailedAttempts    int         `gorm:"not null;default:0"`
	LockedUntil       *time.Time
	LastLoginAt       *time.Time
}

// TableName returns the table name for GORM
func (UserModel) TableName() string {
	return "users"
}

// ToDomain converts the persistence model to a domain User entity.
func (m *UserModel) ToDomain() *identity.User {
	u := &identity.User{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		Name:              m.Name,
		Email:             m.Email,
		PasswordHash:      m.PasswordHash,
		Role:              m.Role,
		Status:            m.Status,
		Balance:           m.Balance,
		Addresses:         append([]valueobject.Address{}, m.Addresses...),
		FailedAttempts:    m.FailedAttempts,
		LockedUntil:       m.LockedUntil,
		LastLoginAt:       m.LastLoginAt,
	}
	if m.BankProviderRef != "" {
		account := &identity.BankAccount{
			BankName:      m.BankName,
			AccountHolder: m.BankAccountHolder,
			Last4:         m.BankLast4,
			ProviderRef:   m.BankProviderRef,
		}
		if m.BankLinkedAt != nil {
			account.LinkedAt = *m.BankLinkedAt
		}
		u.BankAccount = account
	}
	return u
}

// FromDomain populates the persistence model from a domain User entity.
func (m *UserModel) FromDomain(u *identity.User) {
	m.FromDomainAggregateRoot(u.BaseAggregateRoot)
	m.Name = u.Name
	m.Email = u.Email
	m.PasswordHash = u.PasswordHash
	m.Role = u.Role
	m.Status = u.Status
	m.Balance = u.Balance
	m.Addresses = append(AddressList{}, u.Addresses...)
	m.FailedAttempts = u.FailedAttempts
	m.LockedUntil = u.LockedUntil
	m.LastLoginAt = u.LastLoginAt
	m.BankName, m.BankAccountHolder, m.BankLast4, m.BankProviderRef, m.BankLinkedAt = "", "", "", "", nil
	if u.BankAccount != nil {
		linkedAt := u.BankAccount.LinkedAt
		m.BankName = u.BankAccount.BankName
		m.BankAccountHolder = u.BankAccount.AccountHolder
		m.BankLast4 = u.BankAccount.Last4
		m.BankProviderRef = u.BankAccount.ProviderRef
		m.BankLinkedAt = &linkedAt
	}
}

// UserModelFromDomain creates a new persistence model from a domain User entity.
func UserModelFromDomain(u *identity.User) *UserModel {
	m := &UserModel{}
	m.FromDomain(u)
	return m
}
