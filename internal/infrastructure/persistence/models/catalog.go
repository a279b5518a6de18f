package models

import (
	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ProductModel is the persistence model for the Product domain entity.
type ProductModel struct {
	AggregateModel
	VendorID          uuid.UUID             `gorm:"type:uuid;not null;index"`
	Name              string                `gorm:"type:varchar(200);not null"`
	Description       string                `gorm:"type:text"`
	Price             decimal.Decimal       `gorm:"type:decimal(18,2);not null"`
	CompareAtPrice    *decimal.Decimal      `gorm:"type:decimal(18,2)"`
	Tags              StringList            `gorm:"type:text;not null"`
	Images            StringList            `gorm:"type:text;not null"`
	Quantity          int                   `gorm:"not null;default:0"`
	SKU               string                `gorm:"type:varchar(100);index"`
	TrackInventory    bool                  `gorm:"not null;default:true"`
	LowStockThreshold int                   `gorm:"not null;default:5"`
	Status            catalog.ProductStatus `gorm:"type:varchar(20);not null;default:'active';index"`
	Featured          bool                  `gorm:"not null;default:false;index"`
	Views             int64                 `gorm:"not null;default:0"`
	RatingAverage     decimal.Decimal       `gorm:"type:decimal(3,2);not null;default:0"`
	RatingCount       int                   `gorm:"not null;default:0"`
	DeletedAt         gorm.DeletedAt        `gorm:"index"`

	Categories []ProductCategoryModel `gorm:"foreignKey:ProductID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (ProductModel) TableName() string {
	return "products"
}

// ProductCategoryModel is one row of the product/category join table
type ProductCategoryModel struct {
	ProductID uuid.UUID `gorm:"type:uuid;primaryKey"`
	Category  string    `gorm:"type:varchar(100);primaryKey;index"`
}

// TableName returns the table name for GORM
func (ProductCategoryModel) TableName() string {
	return "product_categories"
}

// ToDomain converts the persistence model to a domain Product entity.
func (m *ProductModel) ToDomain() *catalog.Product {
	categories := make([]string, len(m.Categories))
	for i, c := range m.Categories {
		categories[i] = c.Category
	}
	var compareAt *decimal.Decimal
	if m.CompareAtPrice != nil {
		v := *m.CompareAtPrice
		compareAt = &v
	}
	return &catalog.Product{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		VendorID:          m.VendorID,
		Name:              m.Name,
		Description:       m.Description,
		Price:             m.Price,
		CompareAtPrice:    compareAt,
		Categories:        categories,
		Tags:              copyStrings(m.Tags),
		Images:            copyStrings(m.Images),
		Inventory: catalog.Inventory{
			Quantity:          m.Quantity,
			SKU:               m.SKU,
			TrackInventory:    m.TrackInventory,
			LowStockThreshold: m.LowStockThreshold,
		},
		Status:   m.Status,
		Featured: m.Featured,
		Views:    m.Views,
		Ratings: catalog.Ratings{
			Average: m.RatingAverage,
			Count:   m.RatingCount,
		},
	}
}

// FromDomain populates the persistence model from a domain Product entity.
func (m *ProductModel) FromDomain(p *catalog.Product) {
	m.FromDomainAggregateRoot(p.BaseAggregateRoot)
	m.VendorID = p.VendorID
	m.Name = p.Name
	m.Description = p.Description
	m.Price = p.Price
	m.CompareAtPrice = p.CompareAtPrice
	m.Tags = StringList(copyStrings(p.Tags))
	m.Images = StringList(copyStrings(p.Images))
	m.Quantity = p.Inventory.Quantity
	m.SKU = p.Inventory.SKU
	m.TrackInventory = p.Inventory.TrackInventory
	m.LowStockThreshold = p.Inventory.LowStockThreshold
	m.Status = p.Status
	m.Featured = p.Featured
	m.Views = p.Views
	m.RatingAverage = p.Ratings.Average
	m.RatingCount = p.Ratings.Count
	m.Categories = make([]ProductCategoryModel, len(p.Categories))
	for i, c := range p.Categories {
		m.Categories[i] = ProductCategoryModel{ProductID: p.ID, Category: c}
	}
}

// ProductModelFromDomain creates a new persistence model from a domain Product entity.
func ProductModelFromDomain(p *catalog.Product) *ProductModel {
	m := &ProductModel{}
	m.FromDomain(p)
	return m
}
