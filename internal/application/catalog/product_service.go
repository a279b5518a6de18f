package catalog

import (
	"context"
	"errors"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/domain/vendor"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrVendorProfileRequired is returned when a vendor account without a store
// tries to list products.
var ErrVendorProfileRequired = shared.NewDomainError("VENDOR_PROFILE_REQUIRED", "Create a vendor profile before listing products")

// ProductService handles vendor product management
type ProductService struct {
	products  catalog.ProductRepository
	vendors   vendor.VendorRepository
	publisher shared.EventPublisher
	logger    *zap.Logger
}

// NewProductService creates a new ProductService. publisher may be nil.
func NewProductService(
	products catalog.ProductRepository,
	vendors vendor.VendorRepository,
	publisher shared.EventPublisher,
	logger *zap.Logger,
) *ProductService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProductService{
		products:  products,
		vendors:   vendors,
		publisher: publisher,
		logger:    logger,
	}
}

// Create lists a new product under the caller's store
func (s *ProductService) Create(ctx context.Context, actor Actor, req CreateProductRequest) (*ProductView, error) {
	store, err := s.storeOf(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}

	product, err := newListing(store.ID, req)
	if err != nil {
		return nil, err
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	s.publish(ctx, product)

	s.logger.Info("Product created",
		zap.String("product_id", product.ID.String()),
		zap.String("vendor_id", store.ID.String()))

	view := ToProductView(product, store.StoreName)
	return &view, nil
}

// newListing builds an unsaved product from a create request
func newListing(vendorID uuid.UUID, req CreateProductRequest) (*catalog.Product, error) {
	product, err := catalog.NewProduct(vendorID, req.Name, req.Price, req.Quantity, req.Categories)
	if err != nil {
		return nil, err
	}
	product.Description = req.Description
	product.CompareAtPrice = req.CompareAtPrice
	product.Tags = nonNil(req.Tags)
	product.Images = nonNil(req.Images)
	product.Inventory.SKU = req.SKU
	product.Featured = req.Featured
	if req.LowStockThreshold != nil {
		if *req.LowStockThreshold < 0 {
			return nil, shared.NewDomainError("INVALID_QUANTITY", "Low stock threshold cannot be negative")
		}
		product.Inventory.LowStockThreshold = *req.LowStockThreshold
	}
	if req.Draft {
		product.Status = catalog.ProductStatusDraft
	}
	return product, nil
}

// Update edits a product. Only its vendor or an admin may do so.
func (s *ProductService) Update(ctx context.Context, actor Actor, id uuid.UUID, req UpdateProductRequest) (*ProductView, error) {
	product, store, err := s.authorize(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	err = product.Update(catalog.ProductUpdate{
		Name:           req.Name,
		Description:    req.Description,
		Price:          req.Price,
		CompareAtPrice: req.CompareAtPrice,
		Categories:     req.Categories,
		Tags:           req.Tags,
		Images:         req.Images,
		Quantity:       req.Quantity,
		SKU:            req.SKU,
		Status:         req.Status,
		Featured:       req.Featured,
	})
	if err != nil {
		return nil, err
	}

	if err := s.products.Save(ctx, product); err != nil {
		return nil, err
	}
	// Save leaves stock alone so concurrent checkouts are not overwritten
	if req.Quantity != nil {
		if err := s.products.SetStock(ctx, product.ID, *req.Quantity); err != nil {
			return nil, err
		}
	}
	s.publish(ctx, product)

	view := ToProductView(product, store.StoreName)
	return &view, nil
}

// Delete removes a product from the catalog. Existing orders keep their
// snapshot of it.
func (s *ProductService) Delete(ctx context.Context, actor Actor, id uuid.UUID) error {
	product, _, err := s.authorize(ctx, actor, id)
	if err != nil {
		return err
	}

	product.Deactivate()
	if err := s.products.Delete(ctx, product.ID); err != nil {
		return err
	}
	s.publish(ctx, product)

	s.logger.Info("Product deleted",
		zap.String("product_id", product.ID.String()),
		zap.String("actor_id", actor.UserID.String()))
	return nil
}

// authorize loads the product and the store that owns it, and checks the
// caller is that store's owner or an admin.
func (s *ProductService) authorize(ctx context.Context, actor Actor, id uuid.UUID) (*catalog.Product, *vendor.Vendor, error) {
	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	store, err := s.vendors.FindByID(ctx, product.VendorID)
	if err != nil {
		return nil, nil, err
	}
	if !actor.IsAdmin() && store.UserID != actor.UserID {
		return nil, nil, shared.NewDomainError(shared.ErrForbidden.Code, "You can only manage your own products")
	}
	return product, store, nil
}

func (s *ProductService) storeOf(ctx context.Context, userID uuid.UUID) (*vendor.Vendor, error) {
	store, err := s.vendors.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, ErrVendorProfileRequired
		}
		return nil, err
	}
	return store, nil
}

// publish hands pending events to the bus. The write has already committed,
// so a publish failure is logged and not returned.
func (s *ProductService) publish(ctx context.Context, product *catalog.Product) {
	if err := shared.PublishEvents(ctx, s.publisher, product.PullDomainEvents()...); err != nil {
		s.logger.Warn("Failed to publish product events",
			zap.String("product_id", product.ID.String()),
			zap.Error(err))
	}
}
