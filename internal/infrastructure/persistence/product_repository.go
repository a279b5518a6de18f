package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// productEditableColumns are rewritten when an existing product is saved
var productEditableColumns = []string{
	"name", "description", "price", "compare_at_price", "tags", "images", "sku",
	"track_inventory", "low_stock_threshold", "status", "featured", "version", "updated_at",
}

const (
	defaultProductPageSize = 12
	maxProductPageSize     = 100
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// GormProductRepository implements ProductRepository using GORM
type GormProductRepository struct {
	db *gorm.DB
}

// NewGormProductRepository creates a new GormProductRepository
func NewGormProductRepository(db *gorm.DB) *GormProductRepository {
	return &GormProductRepository{db: db}
}

// FindByID finds a product by its ID
func (r *GormProductRepository) FindByID(ctx context.Context, id uuid.UUID) (*catalog.Product, error) {
	var model models.ProductModel
	if err := r.db.WithContext(ctx).Preload("Categories").First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDs finds multiple products by their IDs
func (r *GormProductRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]catalog.Product, error) {
	if len(ids) == 0 {
		return []catalog.Product{}, nil
	}
	var rows []models.ProductModel
	if err := r.db.WithContext(ctx).Preload("Categories").Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// FindByVendorSKU finds a vendor's product by SKU
func (r *GormProductRepository) FindByVendorSKU(ctx context.Context, vendorID uuid.UUID, sku string) (*catalog.Product, error) {
	var model models.ProductModel
	err := r.db.WithContext(ctx).Preload("Categories").
		Where("vendor_id = ? AND sku = ?", vendorID, sku).
		Order("created_at ASC").
		First(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// Search returns one page of products matching the query and the total match count
func (r *GormProductRepository) Search(ctx context.Context, query catalog.ProductQuery) ([]catalog.Product, int64, error) {
	base := r.applyQuery(r.db.WithContext(ctx).Model(&models.ProductModel{}), query)

	var total int64
	if err := base.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(query.Page, query.Limit, defaultProductPageSize, maxProductPageSize)
	column := ResolveSortColumn(query.SortBy, ProductSortColumns, "created_at")
	order := column + " " + ValidateSortOrder(query.SortOrder)

	var rows []models.ProductModel
	err := r.applyQuery(r.db.WithContext(ctx).Model(&models.ProductModel{}), query).
		Preload("Categories").
		Order(order).
		Order("id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return toProducts(rows), total, nil
}

// FindFeatured returns active featured products, newest first
func (r *GormProductRepository) FindFeatured(ctx context.Context, limit int) ([]catalog.Product, error) {
	if limit <= 0 {
		limit = 8
	}
	var rows []models.ProductModel
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Where("status = ? AND featured = ?", catalog.ProductStatusActive, true).
		Order("created_at DESC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// CategoryCounts aggregates active products per category, largest first
func (r *GormProductRepository) CategoryCounts(ctx context.Context) ([]catalog.CategoryCount, error) {
	var counts []catalog.CategoryCount
	err := r.db.WithContext(ctx).
		Table("product_categories AS pc").
		Select("pc.category AS category, COUNT(*) AS count").
		Joins("JOIN products p ON p.id = pc.product_id").
		Where("p.status = ? AND p.deleted_at IS NULL", catalog.ProductStatusActive).
		Group("pc.category").
		Order("count DESC, pc.category ASC").
		Scan(&counts).Error
	if err != nil {
		return nil, err
	}
	return counts, nil
}

// Save creates or updates a product and replaces its category rows
//
// Inventory quantity, views and ratings are only written on insert; later
// changes go through SetStock, DecrementStock, RestoreStock and IncrementViews.
func (r *GormProductRepository) Save(ctx context.Context, product *catalog.Product) error {
	model := models.ProductModelFromDomain(product)
	categories := model.Categories
	model.Categories = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Omit(clause.Associations).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns(productEditableColumns),
			}).
			Create(model).Error
		if err != nil {
			return err
		}
		if err := tx.Where("product_id = ?", product.ID).Delete(&models.ProductCategoryModel{}).Error; err != nil {
			return err
		}
		if len(categories) == 0 {
			return nil
		}
		return tx.Create(&categories).Error
	})
}

// SetStock replaces the inventory quantity, keeping the sold-out status in step
func (r *GormProductRepository) SetStock(ctx context.Context, id uuid.UUID, qty int) error {
	if qty < 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Inventory quantity cannot be negative")
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.ProductModel{}).
			Where("id = ?", id).
			UpdateColumns(map[string]any{"quantity": qty, "updated_at": time.Now()})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		from, to := catalog.ProductStatusOutOfStock, catalog.ProductStatusActive
		if qty == 0 {
			from, to = to, from
		}
		return tx.Model(&models.ProductModel{}).
			Where("id = ? AND status = ?", id, from).
			UpdateColumn("status", to).Error
	})
}

// Delete soft-deletes a product after marking it inactive
func (r *GormProductRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.ProductModel{}).
			Where("id = ?", id).
			UpdateColumns(map[string]any{
				"status":     catalog.ProductStatusInactive,
				"updated_at": time.Now(),
			}).Error; err != nil {
			return err
		}
		result := tx.Delete(&models.ProductModel{}, "id = ?", id)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrNotFound
		}
		return nil
	})
}

// IncrementViews atomically bumps the view counter
func (r *GormProductRepository) IncrementViews(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Model(&models.ProductModel{}).
		Where("id = ?", id).
		UpdateColumn("views", gorm.Expr("views + ?", 1)).Error
}

// DecrementStock removes qty units only if at least qty are available. The
// quantity guard lives in the WHERE clause so concurrent checkouts cannot
// oversell. A product that reaches zero is marked out of stock.
func (r *GormProductRepository) DecrementStock(ctx context.Context, id uuid.UUID, qty int) (bool, error) {
	if qty <= 0 {
		return false, shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	db := r.db.WithContext(ctx)
	result := db.Model(&models.ProductModel{}).
		Where("id = ? AND quantity >= ?", id, qty).
		UpdateColumns(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", qty),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	if result.RowsAffected == 0 {
		return false, nil
	}

	err := db.Model(&models.ProductModel{}).
		Where("id = ? AND quantity = 0 AND status = ?", id, catalog.ProductStatusActive).
		UpdateColumn("status", catalog.ProductStatusOutOfStock).Error
	return true, err
}

// RestoreStock returns qty units to inventory and reactivates a sold-out product
func (r *GormProductRepository) RestoreStock(ctx context.Context, id uuid.UUID, qty int) error {
	if qty <= 0 {
		return shared.NewDomainError("INVALID_QUANTITY", "Quantity must be positive")
	}
	db := r.db.WithContext(ctx)
	result := db.Unscoped().Model(&models.ProductModel{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"quantity":   gorm.Expr("quantity + ?", qty),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return db.Model(&models.ProductModel{}).
		Where("id = ? AND status = ?", id, catalog.ProductStatusOutOfStock).
		UpdateColumn("status", catalog.ProductStatusActive).Error
}

// CountByVendor counts a vendor's products, optionally restricted to a status
func (r *GormProductRepository) CountByVendor(ctx context.Context, vendorID uuid.UUID, status *catalog.ProductStatus) (int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProductModel{}).Where("vendor_id = ?", vendorID)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// CountLowStockByVendor counts a vendor's tracked products at or below their threshold
func (r *GormProductRepository) CountLowStockByVendor(ctx context.Context, vendorID uuid.UUID) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where("vendor_id = ?", vendorID).
		Where(lowStockCondition, true).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

const lowStockCondition = "track_inventory = ? AND quantity <= low_stock_threshold"

// FindLowStockByVendor returns up to limit low-stock products, emptiest first
func (r *GormProductRepository) FindLowStockByVendor(ctx context.Context, vendorID uuid.UUID, limit int) ([]catalog.Product, error) {
	if limit <= 0 {
		limit = 20
	}
	var rows []models.ProductModel
	err := r.db.WithContext(ctx).
		Preload("Categories").
		Where("vendor_id = ?", vendorID).
		Where(lowStockCondition, true).
		Order("quantity ASC").
		Order("name ASC").
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return toProducts(rows), nil
}

// LowStockVendorIDs lists vendors owning at least one low-stock product
func (r *GormProductRepository) LowStockVendorIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := r.db.WithContext(ctx).Model(&models.ProductModel{}).
		Where(lowStockCondition, true).
		Distinct("vendor_id").
		Pluck("vendor_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *GormProductRepository) applyQuery(query *gorm.DB, q catalog.ProductQuery) *gorm.DB {
	if len(q.Statuses) > 0 {
		query = query.Where("status IN ?", q.Statuses)
	}
	if q.Category != "" {
		query = query.Where(
			"EXISTS (SELECT 1 FROM product_categories pc WHERE pc.product_id = products.id AND pc.category = ?)",
			q.Category,
		)
	}
	if search := strings.ToLower(strings.TrimSpace(q.Search)); search != "" {
		pattern := "%" + likeEscaper.Replace(search) + "%"
		query = query.Where(
			`(LOWER(name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\')`,
			pattern, pattern,
		)
	}
	if q.MinPrice != nil {
		query = query.Where("price >= ?", *q.MinPrice)
	}
	if q.MaxPrice != nil {
		query = query.Where("price <= ?", *q.MaxPrice)
	}
	if q.Featured != nil {
		query = query.Where("featured = ?", *q.Featured)
	}
	if q.VendorID != nil {
		query = query.Where("vendor_id = ?", *q.VendorID)
	}
	return query
}

func toProducts(rows []models.ProductModel) []catalog.Product {
	products := make([]catalog.Product, len(rows))
	for i := range rows {
		products[i] = *rows[i].ToDomain()
	}
	return products
}

func normalizePage(page, limit, defaultLimit, maxLimit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return page, limit
}

var _ catalog.ProductRepository = (*GormProductRepository)(nil)
