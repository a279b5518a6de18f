package catalog

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/vendor"
	"github.com/artisanmarket/backend/internal/infrastructure/cache"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type lookup struct {
	cache string
	hit   bool
}

type recordingRecorder struct {
	mu      sync.Mutex
	lookups []lookup
}

func (r *recordingRecorder) RecordCacheLookup(_ context.Context, cache string, hit bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lookups = append(r.lookups, lookup{cache, hit})
}

type brokenCache struct{}

func (brokenCache) Get(context.Context, string, any) (bool, error) {
	return false, errors.New("redis down")
}

func (brokenCache) Set(context.Context, string, any, time.Duration) error {
	return errors.New("redis down")
}

func (brokenCache) Delete(context.Context, ...string) error { return errors.New("redis down") }

func (brokenCache) DeletePrefix(context.Context, string) error { return errors.New("redis down") }

func TestQueryService_List(t *testing.T) {
	ctx := context.Background()
	store := newTestVendor(t, uuid.New(), "Clay & Kiln")
	product := newTestProduct(t, store.ID, 4)

	activeQuery := mock.MatchedBy(func(q catalog.ProductQuery) bool {
		return len(q.Statuses) == 1 && q.Statuses[0] == catalog.ProductStatusActive &&
			q.Category == "home-decor" && q.Page == 1 && q.Limit == 12
	})

	t.Run("second identical query is served from cache", func(t *testing.T) {
		products := new(MockProductRepository)
		vendors := new(MockVendorRepository)
		recorder := &recordingRecorder{}
		svc := NewQueryService(products, vendors, nil,
			WithCache(cache.NewInMemoryResponseCache(), DefaultCacheTTLs()),
			WithLookupRecorder(recorder))

		products.On("Search", mock.Anything, activeQuery).Return([]catalog.Product{*product}, int64(1), nil).Once()
		vendors.On("FindByIDs", mock.Anything, []uuid.UUID{store.ID}).Return([]vendor.Vendor{*store}, nil).Once()

		first, err := svc.List(ctx, ListProductsQuery{Category: "Home Decor"})
		require.NoError(t, err)
		second, err := svc.List(ctx, ListProductsQuery{Category: "home-decor", Page: 0, Limit: 0})
		require.NoError(t, err)

		require.Len(t, second.Products, 1)
		assert.Equal(t, first.Products[0].ID, second.Products[0].ID)
		assert.Equal(t, "Clay & Kiln", second.Products[0].VendorName)
		assert.True(t, second.Products[0].Price.Equal(product.Price))
		assert.Equal(t, int64(1), second.Pagination.Total)
		assert.Equal(t, []lookup{{CacheList, false}, {CacheList, true}}, recorder.lookups)
		products.AssertExpectations(t)
	})

	t.Run("cache failure falls back to database", func(t *testing.T) {
		products := new(MockProductRepository)
		vendors := new(MockVendorRepository)
		svc := NewQueryService(products, vendors, nil, WithCache(brokenCache{}, DefaultCacheTTLs()))

		products.On("Search", mock.Anything, activeQuery).Return([]catalog.Product{*product}, int64(1), nil).Twice()
		vendors.On("FindByIDs", mock.Anything, mock.Anything).Return([]vendor.Vendor{*store}, nil)

		for i := 0; i < 2; i++ {
			result, err := svc.List(ctx, ListProductsQuery{Category: "home decor"})
			require.NoError(t, err)
			assert.Len(t, result.Products, 1)
		}
		products.AssertExpectations(t)
	})

	t.Run("invalid price range", func(t *testing.T) {
		svc := NewQueryService(new(MockProductRepository), new(MockVendorRepository), nil)
		lo := decimal.NewFromInt(50)
		hi := decimal.NewFromInt(10)
		_, err := svc.List(ctx, ListProductsQuery{MinPrice: &lo, MaxPrice: &hi})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "minPrice")
	})

	t.Run("empty page", func(t *testing.T) {
		products := new(MockProductRepository)
		svc := NewQueryService(products, new(MockVendorRepository), nil)
		products.On("Search", mock.Anything, mock.Anything).Return([]catalog.Product{}, int64(0), nil)

		result, err := svc.List(ctx, ListProductsQuery{Search: "nothing"})
		require.NoError(t, err)
		assert.NotNil(t, result.Products)
		assert.Empty(t, result.Products)
	})
}

func TestQueryService_ConcurrentMissesShareOneLoad(t *testing.T) {
	products := new(MockProductRepository)
	vendors := new(MockVendorRepository)
	svc := NewQueryService(products, vendors, nil, WithCache(cache.NewInMemoryResponseCache(), DefaultCacheTTLs()))

	release := make(chan struct{})
	products.On("FindFeatured", mock.Anything, 8).
		Run(func(mock.Arguments) { <-release }).
		Return([]catalog.Product{}, nil).Once()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Featured(context.Background(), 0)
			assert.NoError(t, err)
		}()
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	products.AssertNumberOfCalls(t, "FindFeatured", 1)
}

func TestQueryService_LoadOvertakenByInvalidationIsNotCached(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	responseCache := cache.NewInMemoryResponseCache()
	invalidator := NewCacheInvalidator(responseCache, nil)
	svc := NewQueryService(products, new(MockVendorRepository), nil,
		WithCache(responseCache, DefaultCacheTTLs()),
		WithCacheGeneration(invalidator.Generation()))

	started := make(chan struct{})
	release := make(chan struct{})
	products.On("FindFeatured", mock.Anything, 8).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return([]catalog.Product{}, nil).Once()

	done := make(chan error, 1)
	go func() {
		_, err := svc.Featured(ctx, 0)
		done <- err
	}()
	<-started
	require.NoError(t, invalidator.Invalidate(ctx))
	close(release)
	require.NoError(t, <-done)

	var stale []ProductView
	hit, err := responseCache.Get(ctx, FeaturedCacheKey(8), &stale)
	require.NoError(t, err)
	assert.False(t, hit)

	products.On("FindFeatured", mock.Anything, 8).Return([]catalog.Product{}, nil).Once()
	_, err = svc.Featured(ctx, 0)
	require.NoError(t, err)
	hit, err = responseCache.Get(ctx, FeaturedCacheKey(8), &stale)
	require.NoError(t, err)
	assert.True(t, hit)
	products.AssertNumberOfCalls(t, "FindFeatured", 2)
}

func TestQueryService_Featured(t *testing.T) {
	products := new(MockProductRepository)
	svc := NewQueryService(products, new(MockVendorRepository), nil)

	products.On("FindFeatured", mock.Anything, 50).Return([]catalog.Product{}, nil)
	views, err := svc.Featured(context.Background(), 500)
	require.NoError(t, err)
	assert.Empty(t, views)
	products.AssertExpectations(t)
}

func TestQueryService_Categories(t *testing.T) {
	products := new(MockProductRepository)
	responseCache := cache.NewInMemoryResponseCache()
	svc := NewQueryService(products, new(MockVendorRepository), nil, WithCache(responseCache, DefaultCacheTTLs()))

	counts := []catalog.CategoryCount{{Category: "pottery", Count: 4}, {Category: "textiles", Count: 2}}
	products.On("CategoryCounts", mock.Anything).Return(counts, nil).Once()

	first, err := svc.Categories(context.Background())
	require.NoError(t, err)
	second, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, counts, first)
	assert.Equal(t, counts, second)

	require.NoError(t, NewCacheInvalidator(responseCache, nil).Invalidate(context.Background()))
	products.On("CategoryCounts", mock.Anything).Return(nil, nil).Once()
	third, err := svc.Categories(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []catalog.CategoryCount{}, third)
}

func TestQueryService_Get(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	vendors := new(MockVendorRepository)
	svc := NewQueryService(products, vendors, nil)

	store := newTestVendor(t, uuid.New(), "Loom House")
	product := newTestProduct(t, store.ID, 1)

	products.On("IncrementViews", ctx, product.ID).Return(errors.New("timeout"))
	products.On("FindByID", ctx, product.ID).Return(product, nil)
	vendors.On("FindByID", ctx, store.ID).Return(store, nil)

	view, err := svc.Get(ctx, product.ID)
	require.NoError(t, err)
	assert.Equal(t, "Loom House", view.VendorName)
	products.AssertExpectations(t)
}

func TestQueryService_ListForVendor(t *testing.T) {
	ctx := context.Background()
	products := new(MockProductRepository)
	vendors := new(MockVendorRepository)
	svc := NewQueryService(products, vendors, nil, WithCache(brokenCache{}, DefaultCacheTTLs()))

	store := newTestVendor(t, uuid.New(), "Loom House")
	draft := newTestProduct(t, store.ID, 0)
	draft.Status = catalog.ProductStatusDraft

	products.On("Search", ctx, mock.MatchedBy(func(q catalog.ProductQuery) bool {
		return len(q.Statuses) == 0 && q.VendorID != nil && *q.VendorID == store.ID
	})).Return([]catalog.Product{*draft}, int64(1), nil)
	vendors.On("FindByIDs", ctx, []uuid.UUID{store.ID}).Return([]vendor.Vendor{*store}, nil)

	result, err := svc.ListForVendor(ctx, store.ID, ListProductsQuery{})
	require.NoError(t, err)
	require.Len(t, result.Products, 1)
	assert.Equal(t, catalog.ProductStatusDraft, result.Products[0].Status)
}

func TestListCacheKey(t *testing.T) {
	a, err := ListProductsQuery{Category: "Home Decor", SortOrder: "DESC"}.normalized()
	require.NoError(t, err)
	b, err := ListProductsQuery{Category: "home-decor", Page: 1, Limit: 12}.normalized()
	require.NoError(t, err)
	c, err := ListProductsQuery{Category: "home-decor", Page: 2}.normalized()
	require.NoError(t, err)

	assert.Equal(t, ListCacheKey(a), ListCacheKey(b))
	assert.NotEqual(t, ListCacheKey(a), ListCacheKey(c))
	assert.Regexp(t, `^products:list:[0-9a-f]{64}$`, ListCacheKey(a))
	assert.Equal(t, "products:featured:8", FeaturedCacheKey(8))
}
