package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/domain/vendor"
	"github.com/artisanmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormVendorRepository implements VendorRepository using GORM
type GormVendorRepository struct {
	db *gorm.DB
}

// NewGormVendorRepository creates a new GormVendorRepository
func NewGormVendorRepository(db *gorm.DB) *GormVendorRepository {
	return &GormVendorRepository{db: db}
}

// FindByID finds a vendor by its ID
func (r *GormVendorRepository) FindByID(ctx context.Context, id uuid.UUID) (*vendor.Vendor, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByUserID finds the store owned by a user
func (r *GormVendorRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*vendor.Vendor, error) {
	return r.findOne(ctx, "user_id = ?", userID)
}

// FindByIDs finds multiple vendors by their IDs
func (r *GormVendorRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]vendor.Vendor, error) {
	if len(ids) == 0 {
		return []vendor.Vendor{}, nil
	}
	var rows []models.VendorModel
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	vendors := make([]vendor.Vendor, len(rows))
	for i := range rows {
		vendors[i] = *rows[i].ToDomain()
	}
	return vendors, nil
}

// ExistsByStoreName checks store name uniqueness, case-insensitively
func (r *GormVendorRepository) ExistsByStoreName(ctx context.Context, storeName string, excludeID *uuid.UUID) (bool, error) {
	query := r.db.WithContext(ctx).Model(&models.VendorModel{}).
		Where("LOWER(store_name) = ?", strings.ToLower(strings.TrimSpace(storeName)))
	if excludeID != nil {
		query = query.Where("id <> ?", *excludeID)
	}
	var count int64
	if err := query.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// vendorProfileColumns are rewritten on upsert; financial totals only move
// through CreditSale.
var vendorProfileColumns = []string{
	"store_name", "slug", "description", "logo", "banner",
	"contact_email", "contact_phone", "contact_website", "contact_address",
	"verification_status", "commission_rate", "rating", "version", "updated_at",
}

// Save creates or updates a vendor profile
func (r *GormVendorRepository) Save(ctx context.Context, v *vendor.Vendor) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns(vendorProfileColumns),
		}).
		Create(models.VendorModelFromDomain(v)).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return shared.NewDomainError(shared.ErrAlreadyExists.Code, "Store name is already taken")
	}
	return err
}

// CreditSale adds a delivered sale to the vendor's balance and totals
func (r *GormVendorRepository) CreditSale(ctx context.Context, id uuid.UUID, gross, net decimal.Decimal) error {
	result := r.db.WithContext(ctx).Model(&models.VendorModel{}).
		Where("id = ?", id).
		UpdateColumns(map[string]any{
			"balance":      gorm.Expr("balance + ?", net),
			"total_sales":  gorm.Expr("total_sales + ?", gross),
			"total_orders": gorm.Expr("total_orders + ?", 1),
			"updated_at":   time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormVendorRepository) findOne(ctx context.Context, query string, args ...any) (*vendor.Vendor, error) {
	var model models.VendorModel
	if err := r.db.WithContext(ctx).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

var _ vendor.VendorRepository = (*GormVendorRepository)(nil)
