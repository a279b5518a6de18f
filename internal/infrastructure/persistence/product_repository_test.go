package persistence

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func TestGormProductRepository_SaveAndFind(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	vendorID := uuid.New()

	p := seedProduct(t, db, vendorID, "Walnut Bowl", "49.99", 3, "Home Decor", "Woodwork")
	p.Tags = []string{"handmade"}
	p.Images = []string{"https://cdn.example.com/bowl.jpg"}
	require.NoError(t, repo.Save(ctx, p))

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Walnut Bowl", found.Name)
	assert.True(t, decimal.RequireFromString("49.99").Equal(found.Price))
	assert.ElementsMatch(t, []string{"home-decor", "woodwork"}, found.Categories)
	assert.Equal(t, []string{"handmade"}, found.Tags)
	assert.Equal(t, 3, found.Inventory.Quantity)
	assert.Equal(t, catalog.ProductStatusActive, found.Status)

	t.Run("categories are replaced on update", func(t *testing.T) {
		require.NoError(t, found.Update(catalog.ProductUpdate{Categories: []string{"Kitchen"}}))
		require.NoError(t, repo.Save(ctx, found))

		again, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, []string{"kitchen"}, again.Categories)
	})

	t.Run("missing product is not found", func(t *testing.T) {
		_, err := repo.FindByID(ctx, uuid.New())
		assert.ErrorIs(t, err, shared.ErrNotFound)
	})
}

func TestGormProductRepository_Search(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	vendorA := uuid.New()
	vendorB := uuid.New()

	seedProduct(t, db, vendorA, "Blue Vase", "30.00", 5, "home-decor")
	seedProduct(t, db, vendorA, "Red Vase", "45.00", 5, "home-decor")
	seedProduct(t, db, vendorB, "Silver Ring", "120.00", 2, "jewelry")
	hidden := seedProduct(t, db, vendorB, "Draft Vase", "10.00", 1, "home-decor")
	hidden.Status = catalog.ProductStatusDraft
	require.NoError(t, repo.Save(ctx, hidden))

	active := []catalog.ProductStatus{catalog.ProductStatusActive}

	t.Run("filters by category and status", func(t *testing.T) {
		products, total, err := repo.Search(ctx, catalog.ProductQuery{Category: "home-decor", Statuses: active})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, products, 2)
	})

	t.Run("search is case-insensitive", func(t *testing.T) {
		products, total, err := repo.Search(ctx, catalog.ProductQuery{Search: "VASE", Statuses: active})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, products, 2)
	})

	t.Run("like wildcards in search are literal", func(t *testing.T) {
		_, total, err := repo.Search(ctx, catalog.ProductQuery{Search: "%", Statuses: active})
		require.NoError(t, err)
		assert.Equal(t, int64(0), total)
	})

	t.Run("price range and sort", func(t *testing.T) {
		min := decimal.NewFromInt(40)
		products, total, err := repo.Search(ctx, catalog.ProductQuery{
			MinPrice:  &min,
			Statuses:  active,
			SortBy:    catalog.SortByPrice,
			SortOrder: "asc",
		})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, products, 2)
		assert.Equal(t, "Red Vase", products[0].Name)
		assert.Equal(t, "Silver Ring", products[1].Name)
	})

	t.Run("vendor filter and pagination", func(t *testing.T) {
		products, total, err := repo.Search(ctx, catalog.ProductQuery{VendorID: &vendorA, Page: 2, Limit: 1})
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		assert.Len(t, products, 1)
	})
}

func TestGormProductRepository_FeaturedAndCategories(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	vendorID := uuid.New()

	featured := seedProduct(t, db, vendorID, "Quilt", "200.00", 1, "textiles", "home-decor")
	featured.Featured = true
	require.NoError(t, repo.Save(ctx, featured))
	seedProduct(t, db, vendorID, "Cushion", "25.00", 4, "home-decor")
	seedProduct(t, db, vendorID, "Scarf", "35.00", 4, "textiles")
	seedProduct(t, db, vendorID, "Lamp", "80.00", 4, "home-decor")

	products, err := repo.FindFeatured(ctx, 8)
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, featured.ID, products[0].ID)

	counts, err := repo.CategoryCounts(ctx)
	require.NoError(t, err)
	require.Len(t, counts, 2)
	assert.Equal(t, catalog.CategoryCount{Category: "home-decor", Count: 3}, counts[0])
	assert.Equal(t, catalog.CategoryCount{Category: "textiles", Count: 2}, counts[1])
}

func TestGormProductRepository_Delete(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	p := seedProduct(t, db, uuid.New(), "Mug", "15.00", 4, "kitchen")

	require.NoError(t, repo.Delete(ctx, p.ID))

	_, err := repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)
	assert.ErrorIs(t, repo.Delete(ctx, p.ID), shared.ErrNotFound)

	counts, err := repo.CategoryCounts(ctx)
	require.NoError(t, err)
	assert.Empty(t, counts)
}

func TestGormProductRepository_Stock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()

	p := seedProduct(t, db, uuid.New(), "Candle", "12.00", 3)

	ok, err := repo.DecrementStock(ctx, p.ID, 4)
	require.NoError(t, err)
	assert.False(t, ok, "cannot take more than available")

	ok, err = repo.DecrementStock(ctx, p.ID, 3)
	require.NoError(t, err)
	assert.True(t, ok)

	found, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, found.Inventory.Quantity)
	assert.Equal(t, catalog.ProductStatusOutOfStock, found.Status)

	require.NoError(t, repo.RestoreStock(ctx, p.ID, 2))
	found, err = repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, found.Inventory.Quantity)
	assert.Equal(t, catalog.ProductStatusActive, found.Status)

	require.NoError(t, repo.IncrementViews(ctx, p.ID))
	require.NoError(t, repo.IncrementViews(ctx, p.ID))
	found, err = repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), found.Views)

	t.Run("set stock", func(t *testing.T) {
		require.NoError(t, repo.SetStock(ctx, p.ID, 0))
		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, catalog.ProductStatusOutOfStock, found.Status)

		require.NoError(t, repo.SetStock(ctx, p.ID, 9))
		found, err = repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, 9, found.Inventory.Quantity)
		assert.Equal(t, catalog.ProductStatusActive, found.Status)

		assert.ErrorIs(t, repo.SetStock(ctx, uuid.New(), 1), shared.ErrNotFound)
	})

	t.Run("save does not overwrite stock", func(t *testing.T) {
		stale, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		ok, err := repo.DecrementStock(ctx, p.ID, 4)
		require.NoError(t, err)
		require.True(t, ok)

		name := "Beeswax Candle"
		require.NoError(t, stale.Update(catalog.ProductUpdate{Name: &name}))
		require.NoError(t, repo.Save(ctx, stale))

		found, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Beeswax Candle", found.Name)
		assert.Equal(t, 5, found.Inventory.Quantity)
		assert.Equal(t, int64(2), found.Views)
	})
}

func TestGormProductRepository_DecrementStock_LastUnitRace(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	p := seedProduct(t, db, uuid.New(), "One of a kind", "99.00", 1)

	var wins atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := repo.DecrementStock(context.Background(), p.ID, 1)
			if err == nil && ok {
				wins.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	found, err := repo.FindByID(context.Background(), p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, found.Inventory.Quantity)
}

func TestGormProductRepository_DecrementStock_GuardedSQL(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()

	gormDB, err := gorm.Open(postgres.New(postgres.Config{Conn: mockDB, DriverName: "postgres"}),
		&gorm.Config{SkipDefaultTransaction: true})
	require.NoError(t, err)
	repo := NewGormProductRepository(gormDB)

	id := uuid.New()
	mock.ExpectExec(`UPDATE "products" SET "quantity"=quantity - \$1,"updated_at"=\$2 WHERE .*id = \$3 AND quantity >= \$4`).
		WithArgs(2, sqlmock.AnyArg(), id, 2).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ok, err := repo.DecrementStock(context.Background(), id, 2)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormProductRepository_VendorCounts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	vendorID := uuid.New()

	seedProduct(t, db, vendorID, "Plenty", "10.00", 50)
	seedProduct(t, db, vendorID, "Few", "10.00", 2)
	seedProduct(t, db, vendorID, "None", "10.00", 0)
	seedProduct(t, db, uuid.New(), "Other", "10.00", 1)

	total, err := repo.CountByVendor(ctx, vendorID, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)

	active := catalog.ProductStatusActive
	activeCount, err := repo.CountByVendor(ctx, vendorID, &active)
	require.NoError(t, err)
	assert.Equal(t, int64(2), activeCount)

	low, err := repo.CountLowStockByVendor(ctx, vendorID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), low)
}

func TestGormProductRepository_LowStock(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	vendorID := uuid.New()
	otherVendor := uuid.New()
	stocked := uuid.New()

	seedProduct(t, db, vendorID, "Plenty", "10.00", 50)
	seedProduct(t, db, vendorID, "Few", "10.00", 2)
	seedProduct(t, db, vendorID, "None", "10.00", 0)
	seedProduct(t, db, otherVendor, "Other", "10.00", 1)
	seedProduct(t, db, stocked, "Stocked", "10.00", 40)

	products, err := repo.FindLowStockByVendor(ctx, vendorID, 10)
	require.NoError(t, err)
	require.Len(t, products, 2)
	assert.Equal(t, "None", products[0].Name)
	assert.Equal(t, "Few", products[1].Name)

	limited, err := repo.FindLowStockByVendor(ctx, vendorID, 1)
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	ids, err := repo.LowStockVendorIDs(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{vendorID, otherVendor}, ids)
}

func TestGormProductRepository_FindByVendorSKU(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormProductRepository(db)
	ctx := context.Background()
	vendorID := uuid.New()

	p := seedProduct(t, db, vendorID, "Walnut Board", "45.00", 3)
	sku := "WB-001"
	require.NoError(t, p.Update(catalog.ProductUpdate{SKU: &sku}))
	require.NoError(t, repo.Save(ctx, p))

	found, err := repo.FindByVendorSKU(ctx, vendorID, "WB-001")
	require.NoError(t, err)
	assert.Equal(t, p.ID, found.ID)

	_, err = repo.FindByVendorSKU(ctx, uuid.New(), "WB-001")
	assert.ErrorIs(t, err, shared.ErrNotFound)
}
