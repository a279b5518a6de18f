package catalog

import (
	"regexp"
	"strings"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProductStatus represents the status of a product
type ProductStatus string

const (
	ProductStatusDraft      ProductStatus = "draft"
	ProductStatusActive     ProductStatus = "active"
	ProductStatusInactive   ProductStatus = "inactive"
	ProductStatusOutOfStock ProductStatus = "out_of_stock"
)

// IsValid checks if the status is a known value
func (s ProductStatus) IsValid() bool {
	switch s {
	case ProductStatusDraft, ProductStatusActive, ProductStatusInactive, ProductStatusOutOfStock:
		return true
	}
	return false
}

const (
	maxNameLength            = 200
	maxCategories            = 10
	defaultLowStockThreshold = 5
)

// Inventory holds the stock fields of a product
type Inventory struct {
	Quantity          int
	SKU               string
	TrackInventory    bool
	LowStockThreshold int
}

// Ratings is the aggregated review score
type Ratings struct {
	Average decimal.Decimal
	Count   int
}

// Product is a catalog item listed by a vendor
type Product struct {
	shared.BaseAggregateRoot
	VendorID       uuid.UUID
	Name           string
	Description    string
	Price          decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Categories     []string
	Tags           []string
	Images         []string
	Inventory      Inventory
	Status         ProductStatus
	Featured       bool
	Views          int64
	Ratings        Ratings
}

// NewProduct creates an active product owned by vendorID
func NewProduct(vendorID uuid.UUID, name string, price decimal.Decimal, quantity int, categories []string) (*Product, error) {
	if vendorID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_VENDOR", "Product must belong to a vendor")
	}
	if err := validateName(name); err != nil {
		return nil, err
	}
	if err := validatePrice(price); err != nil {
		return nil, err
	}
	if quantity < 0 {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Inventory quantity cannot be negative")
	}
	normalized, err := NormalizeCategories(categories)
	if err != nil {
		return nil, err
	}

	p := &Product{
		BaseAggregateRoot: shared.NewBaseAggregateRoot(),
		VendorID:          vendorID,
		Name:              strings.TrimSpace(name),
		Price:             price,
		Categories:        normalized,
		Tags:              []string{},
		Images:            []string{},
		Inventory: Inventory{
			Quantity:          quantity,
			TrackInventory:    true,
			LowStockThreshold: defaultLowStockThreshold,
		},
		Status:  ProductStatusActive,
		Ratings: Ratings{Average: decimal.Zero},
	}
	if quantity == 0 {
		p.Status = ProductStatusOutOfStock
	}

	p.AddDomainEvent(NewProductCreatedEvent(p))
	return p, nil
}

// ProductUpdate carries optional changes; nil fields are left untouched
type ProductUpdate struct {
	Name           *string
	Description    *string
	Price          *decimal.Decimal
	CompareAtPrice *decimal.Decimal
	Categories     []string
	Tags           []string
	Images         []string
	Quantity       *int
	SKU            *string
	Status         *ProductStatus
	Featured       *bool
}

// Update applies a partial update
func (p *Product) Update(u ProductUpdate) error {
	if u.Name != nil {
		if err := validateName(*u.Name); err != nil {
			return err
		}
		p.Name = strings.TrimSpace(*u.Name)
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Price != nil {
		if err := validatePrice(*u.Price); err != nil {
			return err
		}
		p.Price = *u.Price
	}
	if u.CompareAtPrice != nil {
		p.CompareAtPrice = u.CompareAtPrice
	}
	if u.Categories != nil {
		normalized, err := NormalizeCategories(u.Categories)
		if err != nil {
			return err
		}
		p.Categories = normalized
	}
	if u.Tags != nil {
		p.Tags = u.Tags
	}
	if u.Images != nil {
		p.Images = u.Images
	}
	if u.SKU != nil {
		p.Inventory.SKU = strings.TrimSpace(*u.SKU)
	}
	if u.Featured != nil {
		p.Featured = *u.Featured
	}
	if u.Quantity != nil {
		if *u.Quantity < 0 {
			return shared.NewDomainError("INVALID_QUANTITY", "Inventory quantity cannot be negative")
		}
		p.Inventory.Quantity = *u.Quantity
	}
	if u.Status != nil {
		if !u.Status.IsValid() {
			return shared.NewDomainError("INVALID_STATUS", "Unknown product status")
		}
		p.Status = *u.Status
	}
	p.syncStockStatus()

	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductUpdatedEvent(p))
	return nil
}

// DecreaseStock removes qty units from inventory
func (p *Product) DecreaseStock(qty int) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	if p.Inventory.Quantity < qty {
		return shared.NewDomainError(shared.ErrInsufficientStock.Code, "Insufficient stock for "+p.Name)
	}
	p.Inventory.Quantity -= qty
	p.syncStockStatus()
	p.Touch()
	return nil
}

// RestoreStock returns qty units to inventory
func (p *Product) RestoreStock(qty int) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	p.Inventory.Quantity += qty
	p.syncStockStatus()
	p.Touch()
	return nil
}

// Deactivate hides the product from the public catalog
func (p *Product) Deactivate() {
	p.Status = ProductStatusInactive
	p.Touch()
	p.IncrementVersion()
	p.AddDomainEvent(NewProductDeletedEvent(p))
}

// IsPurchasable reports whether the product can be ordered
func (p *Product) IsPurchasable() bool {
	return p.Status == ProductStatusActive
}

// IsLowStock reports whether tracked inventory is at or below the threshold
func (p *Product) IsLowStock() bool {
	return p.Inventory.TrackInventory && p.Inventory.Quantity <= p.Inventory.LowStockThreshold
}

// OwnedBy reports whether the vendor owns this product
func (p *Product) OwnedBy(vendorID uuid.UUID) bool {
	return p.VendorID == vendorID
}

func (p *Product) syncStockStatus() {
	switch {
	case p.Status == ProductStatusActive && p.Inventory.Quantity == 0:
		p.Status = ProductStatusOutOfStock
	case p.Status == ProductStatusOutOfStock && p.Inventory.Quantity > 0:
		p.Status = ProductStatusActive
	}
}

var nonSlugChars = regexp.MustCompile(`[^a-z0-9]+`)

// NormalizeCategory converts a display category into its kebab-case slug,
// e.g. "Home Decor" -> "home-decor".
func NormalizeCategory(category string) string {
	s := strings.ToLower(strings.TrimSpace(category))
	s = nonSlugChars.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// NormalizeCategories normalizes, de-duplicates and drops empty categories
func NormalizeCategories(categories []string) ([]string, error) {
	seen := make(map[string]struct{}, len(categories))
	out := make([]string, 0, len(categories))
	for _, c := range categories {
		slug := NormalizeCategory(c)
		if slug == "" {
			continue
		}
		if _, ok := seen[slug]; ok {
			continue
		}
		seen[slug] = struct{}{}
		out = append(out, slug)
	}
	if len(out) > maxCategories {
		return nil, shared.NewDomainError("INVALID_CATEGORIES", "A product can have at most 10 categories")
	}
	return out, nil
}

func validateName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot be empty")
	}
	if len(name) > maxNameLength {
		return shared.NewDomainError("INVALID_NAME", "Product name cannot exceed 200 characters")
	}
	return nil
}

func validatePrice(price decimal.Decimal) error {
	if !price.IsPositive() {
		return shared.NewDomainError("INVALID_PRICE", "Price must be greater than zero")
	}
	return nil
}
