package catalog

import (
	"context"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// StockDigestService assembles and publishes daily low-stock digests
type StockDigestService struct {
	products  catalog.ProductRepository
	publisher shared.EventPublisher
	limit     int
	logger    *zap.Logger
}

// NewStockDigestService creates a StockDigestService listing at most limit
// products per digest.
func NewStockDigestService(
	products catalog.ProductRepository,
	publisher shared.EventPublisher,
	limit int,
	logger *zap.Logger,
) *StockDigestService {
	if limit <= 0 {
		limit = 20
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StockDigestService{
		products:  products,
		publisher: publisher,
		limit:     limit,
		logger:    logger,
	}
}

// VendorsNeedingDigest lists vendors with at least one low-stock product
func (s *StockDigestService) VendorsNeedingDigest(ctx context.Context) ([]uuid.UUID, error) {
	return s.products.LowStockVendorIDs(ctx)
}

// SendDigest publishes the digest for one vendor. Nothing is sent when the
// vendor has restocked since the vendor list was taken.
func (s *StockDigestService) SendDigest(ctx context.Context, vendorID uuid.UUID) error {
	products, err := s.products.FindLowStockByVendor(ctx, vendorID, s.limit)
	if err != nil {
		return err
	}
	if len(products) == 0 {
		return nil
	}

	total := int64(len(products))
	if len(products) == s.limit {
		if total, err = s.products.CountLowStockByVendor(ctx, vendorID); err != nil {
			return err
		}
	}

	if s.publisher == nil {
		return nil
	}
	event := catalog.NewLowStockDigestEvent(vendorID, products, total)
	if err := s.publisher.Publish(ctx, event); err != nil {
		return err
	}
	s.logger.Debug("Low stock digest published",
		zap.String("vendor_id", vendorID.String()),
		zap.Int64("low_stock", total))
	return nil
}
