package catalog

import (
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Aggregate type constant
const AggregateTypeProduct = "Product"

// Event type constants
const (
	EventTypeProductCreated      = "ProductCreated"
	EventTypeProductUpdated      = "ProductUpdated"
	EventTypeProductDeleted      = "ProductDeleted"
	EventTypeProductStockChanged = "ProductStockChanged"
	EventTypeLowStockDigest      = "LowStockDigest"
)

// ProductCreatedEvent is published when a vendor lists a new product
type ProductCreatedEvent struct {
	shared.BaseDomainEvent
	ProductID  uuid.UUID `json:"product_id"`
	VendorID   uuid.UUID `json:"vendor_id"`
	Name       string    `json:"name"`
	Categories []string  `json:"categories"`
}

// NewProductCreatedEvent creates a new ProductCreatedEvent
func NewProductCreatedEvent(p *Product) *ProductCreatedEvent {
	return &ProductCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductCreated, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		VendorID:        p.VendorID,
		Name:            p.Name,
		Categories:      p.Categories,
	}
}

// ProductUpdatedEvent is published when a product is edited
type ProductUpdatedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID     `json:"product_id"`
	VendorID  uuid.UUID     `json:"vendor_id"`
	Status    ProductStatus `json:"status"`
}

// NewProductUpdatedEvent creates a new ProductUpdatedEvent
func NewProductUpdatedEvent(p *Product) *ProductUpdatedEvent {
	return &ProductUpdatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductUpdated, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		VendorID:        p.VendorID,
		Status:          p.Status,
	}
}

// ProductDeletedEvent is published when a product is removed from the catalog
type ProductDeletedEvent struct {
	shared.BaseDomainEvent
	ProductID uuid.UUID `json:"product_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
}

// NewProductDeletedEvent creates a new ProductDeletedEvent
func NewProductDeletedEvent(p *Product) *ProductDeletedEvent {
	return &ProductDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductDeleted, AggregateTypeProduct, p.ID),
		ProductID:       p.ID,
		VendorID:        p.VendorID,
	}
}

// StockChange is one product's inventory delta
type StockChange struct {
	ProductID uuid.UUID `json:"product_id"`
	VendorID  uuid.UUID `json:"vendor_id"`
	Delta     int       `json:"delta"`
}

// ProductStockChangedEvent is published after checkout or cancellation moves
// inventory for one or more products.
type ProductStockChangedEvent struct {
	shared.BaseDomainEvent
	Changes []StockChange `json:"changes"`
	Reason  string        `json:"reason"`
}

// NewProductStockChangedEvent creates a new ProductStockChangedEvent keyed by the
// order that caused the change.
func NewProductStockChangedEvent(orderID uuid.UUID, reason string, changes []StockChange) *ProductStockChangedEvent {
	return &ProductStockChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProductStockChanged, AggregateTypeProduct, orderID),
		Changes:         changes,
		Reason:          reason,
	}
}

// VendorIDs returns the distinct vendors touched by the change
func (e *ProductStockChangedEvent) VendorIDs() []uuid.UUID {
	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0, len(e.Changes))
	for _, c := range e.Changes {
		if _, ok := seen[c.VendorID]; ok {
			continue
		}
		seen[c.VendorID] = struct{}{}
		ids = append(ids, c.VendorID)
	}
	return ids
}

// LowStockItem is one entry in a vendor's daily digest
type LowStockItem struct {
	ProductID uuid.UUID `json:"product_id"`
	Name      string    `json:"name"`
	SKU       string    `json:"sku,omitempty"`
	Quantity  int       `json:"quantity"`
	Threshold int       `json:"threshold"`
}

// LowStockDigestEvent summarizes a vendor's products at or below their
// restock threshold. The aggregate ID is the vendor.
type LowStockDigestEvent struct {
	shared.BaseDomainEvent
	VendorID uuid.UUID      `json:"vendor_id"`
	Items    []LowStockItem `json:"items"`
	Total    int64          `json:"total"`
}

// NewLowStockDigestEvent builds a digest from products; total is the full
// low-stock count, which may exceed len(products).
func NewLowStockDigestEvent(vendorID uuid.UUID, products []Product, total int64) *LowStockDigestEvent {
	items := make([]LowStockItem, 0, len(products))
	for i := range products {
		p := &products[i]
		items = append(items, LowStockItem{
			ProductID: p.ID,
			Name:      p.Name,
			SKU:       p.Inventory.SKU,
			Quantity:  p.Inventory.Quantity,
			Threshold: p.Inventory.LowStockThreshold,
		})
	}
	return &LowStockDigestEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLowStockDigest, "Vendor", vendorID),
		VendorID:        vendorID,
		Items:           items,
		Total:           total,
	}
}
