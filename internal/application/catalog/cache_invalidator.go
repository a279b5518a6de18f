package catalog

import (
	"context"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// CacheInvalidator drops cached catalog read models when products or stock
// change. Listing and featured keys are removed by prefix; the category
// aggregation by key.
type CacheInvalidator struct {
	cache      ResponseCache
	generation *CacheGeneration
	logger     *zap.Logger
}

// NewCacheInvalidator creates a new CacheInvalidator
func NewCacheInvalidator(cache ResponseCache, logger *zap.Logger) *CacheInvalidator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CacheInvalidator{cache: cache, generation: &CacheGeneration{}, logger: logger}
}

// Generation is advanced by every Invalidate. Hand it to the QueryService
// reading the same cache with WithCacheGeneration.
func (h *CacheInvalidator) Generation() *CacheGeneration {
	return h.generation
}

// EventTypes implements shared.EventHandler
func (h *CacheInvalidator) EventTypes() []string {
	return []string{
		catalog.EventTypeProductCreated,
		catalog.EventTypeProductUpdated,
		catalog.EventTypeProductDeleted,
		catalog.EventTypeProductStockChanged,
		order.EventTypeOrderPlaced,
		order.EventTypeOrderCancelled,
	}
}

// Handle implements shared.EventHandler
func (h *CacheInvalidator) Handle(ctx context.Context, event shared.DomainEvent) error {
	return h.Invalidate(ctx)
}

// Invalidate clears every cached catalog key. The generation moves first so a
// load already in flight does not write its older result back.
func (h *CacheInvalidator) Invalidate(ctx context.Context) error {
	h.generation.Advance()
	if err := h.cache.DeletePrefix(ctx, KeyPrefixList); err != nil {
		h.logger.Warn("Failed to invalidate product listings", zap.Error(err))
		return err
	}
	if err := h.cache.DeletePrefix(ctx, KeyPrefixFeatured); err != nil {
		h.logger.Warn("Failed to invalidate featured products", zap.Error(err))
		return err
	}
	if err := h.cache.Delete(ctx, KeyCategories); err != nil {
		h.logger.Warn("Failed to invalidate categories", zap.Error(err))
		return err
	}
	return nil
}
