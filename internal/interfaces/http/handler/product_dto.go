package handler

import (
	"strings"

	appcatalog "github.com/artisanmarket/backend/internal/application/catalog"
	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListProductsQuery holds the catalog query string
type ListProductsQuery struct {
	Category  string `form:"category" binding:"omitempty,max=100"`
	Search    string `form:"search" binding:"omitempty,max=200"`
	MinPrice  string `form:"minPrice"`
	MaxPrice  string `form:"maxPrice"`
	SortBy    string `form:"sortBy" binding:"omitempty,oneof=createdAt price name views rating"`
	SortOrder string `form:"sortOrder" binding:"omitempty,oneof=asc desc"`
	Page      int    `form:"page" binding:"omitempty,min=1"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Featured  *bool  `form:"featured"`
	Vendor    string `form:"vendor" binding:"omitempty,uuid"`
}

// toQuery converts the bound query; the returned string names the first
// malformed parameter.
func (q ListProductsQuery) toQuery() (appcatalog.ListProductsQuery, string) {
	out := appcatalog.ListProductsQuery{
		Category:  q.Category,
		Search:    q.Search,
		SortBy:    q.SortBy,
		SortOrder: q.SortOrder,
		Page:      q.Page,
		Limit:     q.Limit,
		Featured:  q.Featured,
	}
	var ok bool
	if out.MinPrice, ok = parsePrice(q.MinPrice); !ok {
		return out, "minPrice"
	}
	if out.MaxPrice, ok = parsePrice(q.MaxPrice); !ok {
		return out, "maxPrice"
	}
	if q.Vendor != "" {
		id := uuid.MustParse(q.Vendor)
		out.VendorID = &id
	}
	return out, ""
}

func parsePrice(raw string) (*decimal.Decimal, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, true
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, false
	}
	return &d, true
}

// FeaturedQuery holds the featured list size
type FeaturedQuery struct {
	Limit int `form:"limit" binding:"omitempty,min=1,max=50"`
}

// CreateProductRequest represents the request body for a new listing
type CreateProductRequest struct {
	Name           string           `json:"name" binding:"required,min=2,max=200"`
	Description    string           `json:"description" binding:"required,max=5000"`
	Price          *decimal.Decimal `json:"price" binding:"required"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice"`
	Categories     []string         `json:"categories" binding:"required,min=1,max=10,dive,required,max=60"`
	Tags           []string         `json:"tags" binding:"omitempty,max=20,dive,max=40"`
	Images         []string         `json:"images" binding:"omitempty,max=10,dive,url"`
	Inventory      InventoryRequest `json:"inventory"`
	Featured       bool             `json:"featured"`
	Draft          bool             `json:"draft"`
}

// InventoryRequest is the stock block of a new listing
type InventoryRequest struct {
	Quantity          int    `json:"quantity" binding:"min=0"`
	SKU               string `json:"sku" binding:"omitempty,max=64"`
	LowStockThreshold *int   `json:"lowStockThreshold" binding:"omitempty,min=0"`
}

func (r CreateProductRequest) toRequest() appcatalog.CreateProductRequest {
	return appcatalog.CreateProductRequest{
		Name:              r.Name,
		Description:       r.Description,
		Price:             *r.Price,
		CompareAtPrice:    r.CompareAtPrice,
		Categories:        r.Categories,
		Tags:              r.Tags,
		Images:            r.Images,
		Quantity:          r.Inventory.Quantity,
		SKU:               r.Inventory.SKU,
		LowStockThreshold: r.Inventory.LowStockThreshold,
		Featured:          r.Featured,
		Draft:             r.Draft,
	}
}

// UpdateProductRequest represents a partial product edit
type UpdateProductRequest struct {
	Name           *string          `json:"name" binding:"omitempty,min=2,max=200"`
	Description    *string          `json:"description" binding:"omitempty,max=5000"`
	Price          *decimal.Decimal `json:"price"`
	CompareAtPrice *decimal.Decimal `json:"compareAtPrice"`
	Categories     []string         `json:"categories" binding:"omitempty,min=1,max=10,dive,required,max=60"`
	Tags           []string         `json:"tags" binding:"omitempty,max=20,dive,max=40"`
	Images         []string         `json:"images" binding:"omitempty,max=10,dive,url"`
	Quantity       *int             `json:"quantity" binding:"omitempty,min=0"`
	SKU            *string          `json:"sku" binding:"omitempty,max=64"`
	Status         *string          `json:"status" binding:"omitempty,oneof=draft active inactive out_of_stock"`
	Featured       *bool            `json:"featured"`
}

func (r UpdateProductRequest) toRequest() appcatalog.UpdateProductRequest {
	out := appcatalog.UpdateProductRequest{
		Name:           r.Name,
		Description:    r.Description,
		Price:          r.Price,
		CompareAtPrice: r.CompareAtPrice,
		Categories:     r.Categories,
		Tags:           r.Tags,
		Images:         r.Images,
		Quantity:       r.Quantity,
		SKU:            r.SKU,
		Featured:       r.Featured,
	}
	if r.Status != nil {
		s := catalog.ProductStatus(*r.Status)
		out.Status = &s
	}
	return out
}
