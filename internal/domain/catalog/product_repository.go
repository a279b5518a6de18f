package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Sort fields accepted by ProductQuery
const (
	SortByCreatedAt = "createdAt"
	SortByPrice     = "price"
	SortByName      = "name"
	SortByViews     = "views"
	SortByRating    = "rating"
)

// ProductQuery is the public catalog listing query
type ProductQuery struct {
	Category  string
	Search    string
	MinPrice  *decimal.Decimal
	MaxPrice  *decimal.Decimal
	Featured  *bool
	VendorID  *uuid.UUID
	Statuses  []ProductStatus
	SortBy    string
	SortOrder string
	Page      int
	Limit     int
}

// CategoryCount is one row of the category aggregation
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ProductRepository defines the interface for product persistence
type ProductRepository interface {
	// FindByID finds a product by its ID
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)

	// FindByIDs finds multiple products by their IDs
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]Product, error)

	// FindByVendorSKU finds a vendor's product by SKU. Returns shared.ErrNotFound when absent.
	FindByVendorSKU(ctx context.Context, vendorID uuid.UUID, sku string) (*Product, error)

	// Search returns one page of products matching the query and the total match count
	Search(ctx context.Context, query ProductQuery) ([]Product, int64, error)

	// FindFeatured returns active featured products, newest first
	FindFeatured(ctx context.Context, limit int) ([]Product, error)

	// CategoryCounts aggregates active products per category
	CategoryCounts(ctx context.Context) ([]CategoryCount, error)

	// Save creates or updates a product. Stock is only taken from the entity on insert.
	Save(ctx context.Context, product *Product) error

	// Delete soft-deletes a product
	Delete(ctx context.Context, id uuid.UUID) error

	// IncrementViews atomically bumps the view counter
	IncrementViews(ctx context.Context, id uuid.UUID) error

	// DecrementStock removes qty units only if at least qty are available.
	// Returns false without error when stock is insufficient.
	DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error)

	// RestoreStock returns qty units to inventory
	RestoreStock(ctx context.Context, id uuid.UUID, qty int) error

	// SetStock replaces the inventory quantity (vendor restock)
	SetStock(ctx context.Context, id uuid.UUID, qty int) error

	// CountByVendor counts a vendor's products, optionally restricted to a status
	CountByVendor(ctx context.Context, vendorID uuid.UUID, status *ProductStatus) (int64, error)

	// CountLowStockByVendor counts a vendor's tracked products at or below their threshold
	CountLowStockByVendor(ctx context.Context, vendorID uuid.UUID) (int64, error)

	// FindLowStockByVendor returns up to limit low-stock products, emptiest first
	FindLowStockByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]Product, error)

	// LowStockVendorIDs lists vendors owning at least one low-stock product
	LowStockVendorIDs(ctx context.Context) ([]uuid.UUID, error)
}
