package catalog

import (
	"strings"
	"time"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	defaultListLimit = 12
	maxListLimit     = 100
	defaultFeatured  = 8
	maxFeatured      = 50
)

var sortFields = map[string]bool{
	catalog.SortByCreatedAt: true,
	catalog.SortByPrice:     true,
	catalog.SortByName:      true,
	catalog.SortByViews:     true,
	catalog.SortByRating:    true,
}

// Actor identifies the caller of a write operation
type Actor struct {
	UserID uuid.UUID
	Role   identity.Role
}

// IsAdmin reports whether the caller is a platform administrator
func (a Actor) IsAdmin() bool {
	return a.Role == identity.RoleAdmin
}

// ListProductsQuery is the public catalog query as received from the client
type ListProductsQuery struct {
	Category  string
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
	Featured  *bool
	VendorID  *uuid.UUID
}

// normalized applies defaults and bounds. Two queries that select the same
// page normalize to the same value, which is what the cache key is built from.
func (q ListProductsQuery) normalized() (ListProductsQuery, error) {
	n := q
	n.Category = catalog.NormalizeCategory(q.Category)
	n.Search = strings.ToLower(strings.TrimSpace(q.Search))

	if !sortFields[q.SortBy] {
		n.SortBy = catalog.SortByCreatedAt
	}
	n.SortOrder = strings.ToLower(q.SortOrder)
	if n.SortOrder != "asc" {
		n.SortOrder = "desc"
	}
	if n.Page < 1 {
		n.Page = 1
	}
	if n.Limit <= 0 {
		n.Limit = defaultListLimit
	}
	if n.Limit > maxListLimit {
		n.Limit = maxListLimit
	}

	if q.MinPrice != nil && q.MinPrice.IsNegative() {
		return n, shared.NewDomainError("INVALID_PRICE_RANGE", "minPrice cannot be negative")
	}
	if q.MinPrice != nil && q.MaxPrice != nil && q.MinPrice.GreaterThan(*q.MaxPrice) {
		return n, shared.NewDomainError("INVALID_PRICE_RANGE", "minPrice cannot exceed maxPrice")
	}
	return n, nil
}

func (q ListProductsQuery) toDomain(statuses ...catalog.ProductStatus) catalog.ProductQuery {
	return catalog.ProductQuery{
		Category:  q.Category,
		Search:    q.Search,
		MinPrice:  q.MinPrice,
		MaxPrice:  q.MaxPrice,
		Featured:  q.Featured,
		VendorID:  q.VendorID,
		Statuses:  statuses,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		Limit:     q.Limit,
	}
}

// InventoryView is the stock block of a product response
type InventoryView struct {
	Quantity          int    `json:"quantity"`
	SKU               string `json:"sku,omitempty"`
	TrackInventory    bool   `json:"trackInventory"`
	LowStockThreshold int    `json:"lowStockThreshold"`
}

// RatingsView is the review summary of a product response
type RatingsView struct {
	Average decimal.Decimal `json:"average"`
	Count   int             `json:"count"`
}

// ProductView is the read model served by the catalog and stored in the cache
type ProductView struct {
	ID             uuid.UUID             `json:"id"`
	VendorID       uuid.UUID             `json:"vendorId"`
	VendorName     string                `json:"vendorName,omitempty"`
	Name           string                `json:"name"`
	Description    string                `json:"description"`
	Price          decimal.Decimal       `json:"price"`
	CompareAtPrice *decimal.Decimal      `json:"compareAtPrice,omitempty"`
	Categories     []string              `json:"categories"`
	Tags           []string              `json:"tags"`
	Images         []string              `json:"images"`
	Inventory      InventoryView         `json:"inventory"`
	Status         catalog.ProductStatus `json:"status"`
	Featured       bool                  `json:"featured"`
	Views          int64                 `json:"views"`
	Ratings        RatingsView           `json:"ratings"`
	CreatedAt      time.Time             `json:"createdAt"`
	UpdatedAt      time.Time             `json:"updatedAt"`
}

// ProductListResult is one page of the catalog
type ProductListResult struct {
	Products   []ProductView     `json:"products"`
	Pagination shared.Pagination `json:"pagination"`
}

// CreateProductRequest carries a new listing
type CreateProductRequest struct {
	Name              string
	Description       string
	Price             decimal.Decimal
	CompareAtPrice    *decimal.Decimal
	Categories        []string
	Tags              []string
	Images            []string
	Quantity          int
	SKU               string
	LowStockThreshold *int
	Featured          bool
	Draft             bool
}

// UpdateProductRequest carries a partial edit; nil fields are unchanged
type UpdateProductRequest struct {
	Name           *string
	Description    *string
	Price          *decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Categories     []string
	Tags           []string
	Images         []string
	Quantity       *int
	SKU            *string
	Status         *catalog.ProductStatus
	Featured       *bool
}

// ToProductView converts a domain product; vendorName may be empty
func ToProductView(p *catalog.Product, vendorName string) ProductView {
	return ProductView{
		ID:             p.ID,
		VendorID:       p.VendorID,
		VendorName:     vendorName,
		Name:           p.Name,
		Description:    p.Description,
		Price:          p.Price,
		CompareAtPrice: p.CompareAtPrice,
		Categories:     nonNil(p.Categories),
		Tags:           nonNil(p.Tags),
		Images:         nonNil(p.Images),
		Inventory: InventoryView{
			Quantity:          p.Inventory.Quantity,
			SKU:               p.Inventory.SKU,
			TrackInventory:    p.Inventory.TrackInventory,
			LowStockThreshold: p.Inventory.LowStockThreshold,
		},
		Status:    p.Status,
		Featured:  p.Featured,
		Views:     p.Views,
		Ratings:   RatingsView{Average: p.Ratings.Average, Count: p.Ratings.Count},
		CreatedAt: p.CreatedAt,
		UpdatedAt: p.UpdatedAt,
	}
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
