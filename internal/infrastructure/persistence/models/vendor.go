package models

import (
	"github.com/artisanmarket/backend/internal/domain/vendor"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// VendorModel is the persistence model for the Vendor domain entity.
type VendorModel struct {
	AggregateModel
	UserID             uuid.UUID                 `gorm:"type:uuid;not null;uniqueIndex"`
	StoreName          string                    `gorm:"type:varchar(100);not null;uniqueIndex"`
	Slug               string                    `gorm:"type:varchar(120);not null;uniqueIndex"`
	Description        string                    `gorm:"type:text"`
	Logo               string                    `gorm:"type:varchar(500)"`
	Banner             string                    `gorm:"type:varchar(500)"`
	ContactEmail       string                    `gorm:"type:varchar(200)"`
	ContactPhone       string                    `gorm:"type:varchar(50)"`
	ContactWebsite     string                    `gorm:"type:varchar(300)"`
	ContactAddress     string                    `gorm:"type:varchar(500)"`
	VerificationStatus vendor.VerificationStatus `gorm:"type:varchar(20);not null;default:'pending'"`
	CommissionRate     decimal.Decimal           `gorm:"type:decimal(5,4);not null"`
	Balance            decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	TotalSales         decimal.Decimal           `gorm:"type:decimal(18,2);not null;default:0"`
	TotalOrders        int                       `gorm:"not null;default:0"`
	Rating             decimal.Decimal           `gorm:"type:decimal(3,2);not null;default:0"`
}

// TableName returns the table name for GORM
func (VendorModel) TableName() string {
	return "vendors"
}

// ToDomain converts the persistence model to a domain Vendor entity.
func (m *VendorModel) ToDomain() *vendor.Vendor {
	return &vendor.Vendor{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		UserID:            m.UserID,
		StoreName:         m.StoreName,
		Slug:              m.Slug,
		Description:       m.Description,
		Logo:              m.Logo,
		Banner:            m.Banner,
		Contact: vendor.Contact{
			Email:   m.ContactEmail,
			Phone:   m.ContactPhone,
			Website: m.ContactWebsite,
			Address: m.ContactAddress,
		},
		VerificationStatus: m.VerificationStatus,
		Financials: vendor.Financials{
			CommissionRate: m.CommissionRate,
			Balance:        m.Balance,
			TotalSales:     m.TotalSales,
			TotalOrders:    m.TotalOrders,
		},
		Rating: m.Rating,
	}
}

// FromDomain populates the persistence model from a domain Vendor entity.
func (m *VendorModel) FromDomain(v *vendor.Vendor) {
	m.FromDomainAggregateRoot(v.BaseAggregateRoot)
	m.UserID = v.UserID
	m.StoreName = v.StoreName
	m.Slug = v.Slug
	m.Description = v.Description
	m.Logo = v.Logo
	m.Banner = v.Banner
	m.ContactEmail = v.Contact.Email
	m.ContactPhone = v.Contact.Phone
	m.ContactWebsite = v.Contact.Website
	m.ContactAddress = v.Contact.Address
	m.VerificationStatus = v.VerificationStatus
	m.CommissionRate = v.Financials.CommissionRate
	m.Balance = v.Financials.Balance
	m.TotalSales = v.Financials.TotalSales
	m.TotalOrders = v.Financials.TotalOrders
	m.Rating = v.Rating
}

// VendorModelFromDomain creates a new persistence model from a domain Vendor entity.
func VendorModelFromDomain(v *vendor.Vendor) *VendorModel {
	m := &VendorModel{}
	m.FromDomain(v)
	return m
}
