package catalog

import (
	"context"
	"strconv"
	"time"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/domain/vendor"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// QueryServiceOption configures a QueryService
type QueryServiceOption func(*QueryService)

// WithCache enables cache-aside reads through cache
func WithCache(cache ResponseCache, ttls CacheTTLs) QueryServiceOption {
	return func(s *QueryService) {
		s.cache = cache
		s.ttls = ttls
	}
}

// WithCacheGeneration shares the invalidation counter of a CacheInvalidator
func WithCacheGeneration(g *CacheGeneration) QueryServiceOption {
	return func(s *QueryService) {
		if g != nil {
			s.generation = g
		}
	}
}

// WithLookupRecorder reports cache hits and misses to r
func WithLookupRecorder(r LookupRecorder) QueryServiceOption {
	return func(s *QueryService) {
		if r != nil {
			s.recorder = r
		}
	}
}

// QueryService serves the public catalog. Listing, featured and category
// reads go through the cache when one is configured; cache errors degrade to
// a database read.
type QueryService struct {
	products catalog.ProductRepository
	vendors  vendor.VendorRepository
	cache    ResponseCache
	ttls       CacheTTLs
	generation *CacheGeneration
	recorder   LookupRecorder
	group      singleflight.Group
	logger     *zap.Logger
}

// NewQueryService creates a new QueryService
func NewQueryService(
	products catalog.ProductRepository,
	vendors vendor.VendorRepository,
	logger *zap.Logger,
	opts ...QueryServiceOption,
) *QueryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &QueryService{
		products: products,
		vendors:  vendors,
		ttls:       DefaultCacheTTLs(),
		generation: &CacheGeneration{},
		recorder:   noopRecorder{},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// List returns one page of active products
func (s *QueryService) List(ctx context.Context, query ListProductsQuery) (*ProductListResult, error) {
	q, err := query.normalized()
	if err != nil {
		return nil, err
	}

	result, err := cached(ctx, s, CacheList, ListCacheKey(q), s.ttls.List, func(ctx context.Context) (ProductListResult, error) {
		products, total, err := s.products.Search(ctx, q.toDomain(catalog.ProductStatusActive))
		if err != nil {
			return ProductListResult{}, err
		}
		views, err := s.views(ctx, products)
		if err != nil {
			return ProductListResult{}, err
		}
		return ProductListResult{
			Products:   views,
			Pagination: shared.NewPagination(q.Page, q.Limit, total),
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Featured returns up to limit active featured products
func (s *QueryService) Featured(ctx context.Context, limit int) ([]ProductView, error) {
	if limit <= 0 {
		limit = defaultFeatured
	}
	if limit > maxFeatured {
		limit = maxFeatured
	}

	return cached(ctx, s, CacheFeatured, FeaturedCacheKey(limit), s.ttls.Featured, func(ctx context.Context) ([]ProductView, error) {
		products, err := s.products.FindFeatured(ctx, limit)
		if err != nil {
			return nil, err
		}
		return s.views(ctx, products)
	})
}

// Categories returns the active product count per category, largest first
func (s *QueryService) Categories(ctx context.Context) ([]catalog.CategoryCount, error) {
	return cached(ctx, s, CacheCategories, KeyCategories, s.ttls.Categories, func(ctx context.Context) ([]catalog.CategoryCount, error) {
		counts, err := s.products.CategoryCounts(ctx)
		if err != nil {
			return nil, err
		}
		if counts == nil {
			counts = []catalog.CategoryCount{}
		}
		return counts, nil
	})
}

// Get returns a product and counts the view. Product pages are not cached so
// the view counter and stock stay live.
func (s *QueryService) Get(ctx context.Context, id uuid.UUID) (*ProductView, error) {
	if err := s.products.IncrementViews(ctx, id); err != nil {
		s.logger.Warn("Failed to increment product views", zap.String("product_id", id.String()), zap.Error(err))
	}
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := ""
	if v, err := s.vendors.FindByID(ctx, p.VendorID); err == nil {
		name = v.StoreName
	}
	view := ToProductView(p, name)
	return &view, nil
}

// ListForVendor returns all of a vendor's products regardless of status. It
// backs the vendor dashboard and is never cached.
func (s *QueryService) ListForVendor(ctx context.Context, vendorID uuid.UUID, query ListProductsQuery) (*ProductListResult, error) {
	query.VendorID = &vendorID
	q, err := query.normalized()
	if err != nil {
		return nil, err
	}
	products, total, err := s.products.Search(ctx, q.toDomain())
	if err != nil {
		return nil, err
	}
	views, err := s.views(ctx, products)
	if err != nil {
		return nil, err
	}
	return &ProductListResult{Products: views, Pagination: shared.NewPagination(q.Page, q.Limit, total)}, nil
}

// cached implements cache-aside for one key. Concurrent misses on the same
// key in the same generation share a single load. A load overtaken by an
// invalidation returns its value but leaves no cache entry behind.
func cached[T any](
	ctx context.Context,
	s *QueryService,
	cacheName, key string,
	ttl time.Duration,
	load func(ctx context.Context) (T, error),
) (T, error) {
	if s.cache != nil {
		var hitValue T
		hit, err := s.cache.Get(ctx, key, &hitValue)
		if err != nil {
			s.logger.Warn("Cache read failed", zap.String("key", key), zap.Error(err))
		}
		s.recorder.RecordCacheLookup(ctx, cacheName, hit)
		if hit {
			return hitValue, nil
		}
	}

	gen := s.generation.Current()
	value, err, _ := s.group.Do(key+"@"+strconv.FormatUint(gen, 10), func() (any, error) {
		// The load must not be cancelled by the first caller going away
		loadCtx := context.WithoutCancel(ctx)
		value, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil && s.generation.Current() == gen {
			if err := s.cache.Set(loadCtx, key, value, ttl); err != nil {
				s.logger.Warn("Cache write failed", zap.String("key", key), zap.Error(err))
			}
			// an invalidation between the check and the write
			if s.generation.Current() != gen {
				if err := s.cache.Delete(loadCtx, key); err != nil {
					s.logger.Warn("Cache delete failed", zap.String("key", key), zap.Error(err))
				}
			}
		}
		return value, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return value.(T), nil
}

// views attaches vendor store names with one batch lookup
func (s *QueryService) views(ctx context.Context, products []catalog.Product) ([]ProductView, error) {
	views := make([]ProductView, len(products))
	if len(products) == 0 {
		return views, nil
	}

	ids := make([]uuid.UUID, 0, len(products))
	seen := make(map[uuid.UUID]struct{}, len(products))
	for _, p := range products {
		if _, ok := seen[p.VendorID]; ok {
			continue
		}
		seen[p.VendorID] = struct{}{}
		ids = append(ids, p.VendorID)
	}

	names := make(map[uuid.UUID]string, len(ids))
	vendors, err := s.vendors.FindByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, v := range vendors {
		names[v.ID] = v.StoreName
	}

	for i := range products {
		views[i] = ToProductView(&products[i], names[products[i].VendorID])
	}
	return views, nil
}
