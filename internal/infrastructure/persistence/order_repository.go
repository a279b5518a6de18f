package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultOrderPageSize = 10
	maxOrderPageSize     = 100
)

// GormOrderRepository implements OrderRepository using GORM
type GormOrderRepository struct {
	db *gorm.DB
}

// NewGormOrderRepository creates a new GormOrderRepository
func NewGormOrderRepository(db *gorm.DB) *GormOrderRepository {
	return &GormOrderRepository{db: db}
}

// FindByID finds an order with its items and history
func (r *GormOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*order.Order, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByOrderNumber finds an order by its ORD-YYMMDD-#### number
func (r *GormOrderRepository) FindByOrderNumber(ctx context.Context, orderNumber string) (*order.Order, error) {
	return r.findOne(ctx, "order_number = ?", orderNumber)
}

// FindAll lists every order
func (r *GormOrderRepository) FindAll(ctx context.Context, filter order.OrderFilter) ([]order.Order, int64, error) {
	return r.list(ctx, r.db.WithContext(ctx).Model(&models.OrderModel{}), filter)
}

// FindByCustomer lists the orders a customer placed
func (r *GormOrderRepository) FindByCustomer(ctx context.Context, customerID uuid.UUID, filter order.OrderFilter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).Where("customer_id = ?", customerID)
	return r.list(ctx, query, filter)
}

// FindByVendor lists orders containing at least one of the vendor's items
func (r *GormOrderRepository) FindByVendor(ctx context.Context, vendorID uuid.UUID, filter order.OrderFilter) ([]order.Order, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.vendor_id = ?)", vendorID)
	return r.list(ctx, query, filter)
}

// Create inserts a new order with its items and history. The insert runs in
// its own savepoint so a duplicate order number leaves an enclosing
// transaction usable for a retry. A payment intent another order already
// holds is reported as shared.ErrPaymentIntentUsed.
func (r *GormOrderRepository) Create(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(model).Error
	})
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if intent := o.PaymentMethod.PaymentIntentID; intent != "" {
		used, lookupErr := r.PaymentIntentUsed(ctx, intent)
		if lookupErr != nil {
			return lookupErr
		}
		if used {
			return shared.ErrPaymentIntentUsed
		}
	}
	return shared.NewDomainError(shared.ErrAlreadyExists.Code, "Order number already exists: "+o.OrderNumber)
}

func (r *GormOrderRepository) PaymentIntentUsed(ctx context.Context, intentID string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("payment_intent_id = ?", intentID).
		Limit(1).
		Count(&count).Error
	return count > 0, err
}

// SaveWithLock updates an order whose domain mutation bumped Version by one.
// The stored row must still be at Version-1, otherwise the update is rejected.
// New status history entries are appended.
func (r *GormOrderRepository) SaveWithLock(ctx context.Context, o *order.Order) error {
	model := models.OrderModelFromDomain(o)
	history := model.StatusHistory
	model.Items = nil
	model.StatusHistory = nil

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.OrderModel{}).
			Where("id = ? AND version = ?", o.ID, o.Version-1).
			Select("*").
			Omit(clause.Associations, "id", "created_at", "order_number", "customer_id").
			Updates(model)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.ErrConcurrencyConflict
		}

		var stored int64
		if err := tx.Model(&models.OrderStatusChangeModel{}).Where("order_id = ?", o.ID).Count(&stored).Error; err != nil {
			return err
		}
		if int(stored) < len(history) {
			fresh := history[stored:]
			if err := tx.Create(&fresh).Error; err != nil {
				return err
			}
		}
		return nil
	})
}

// GenerateOrderNumber returns the next ORD-YYMMDD-#### for the day of at
func (r *GormOrderRepository) GenerateOrderNumber(ctx context.Context, at time.Time) (string, error) {
	prefix := order.OrderNumberPrefix(at)
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Where("order_number LIKE ?", prefix+"%").
		Count(&count).Error
	if err != nil {
		return "", err
	}
	return order.FormatOrderNumber(at, int(count)+1), nil
}

// VendorStats aggregates orders containing the vendor's items. Revenue is the
// vendor's share of every non-cancelled order.
func (r *GormOrderRepository) VendorStats(ctx context.Context, vendorID uuid.UUID) (order.VendorOrderStats, error) {
	var counts struct {
		Total   int64
		Pending int64
	}
	err := r.db.WithContext(ctx).Model(&models.OrderModel{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) AS pending", order.OrderStatusPending).
		Where("EXISTS (SELECT 1 FROM order_items oi WHERE oi.order_id = orders.id AND oi.vendor_id = ?)", vendorID).
		Scan(&counts).Error
	if err != nil {
		return order.VendorOrderStats{}, err
	}

	var revenue struct {
		Revenue decimal.NullDecimal
	}
	err = r.db.WithContext(ctx).Table("order_items AS oi").
		Select("SUM(oi.price * oi.quantity) AS revenue").
		Joins("JOIN orders o ON o.id = oi.order_id").
		Where("oi.vendor_id = ? AND o.status <> ?", vendorID, order.OrderStatusCancelled).
		Scan(&revenue).Error
	if err != nil {
		return order.VendorOrderStats{}, err
	}

	stats := order.VendorOrderStats{
		TotalOrders:   counts.Total,
		PendingOrders: counts.Pending,
		TotalRevenue:  decimal.Zero,
	}
	if revenue.Revenue.Valid {
		stats.TotalRevenue = revenue.Revenue.Decimal.Round(2)
	}
	return stats, nil
}

func (r *GormOrderRepository) list(ctx context.Context, query *gorm.DB, filter order.OrderFilter) ([]order.Order, int64, error) {
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	query = query.Session(&gorm.Session{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page, limit := normalizePage(filter.Page, filter.Limit, defaultOrderPageSize, maxOrderPageSize)
	var rows []models.OrderModel
	err := r.preload(query).
		Order("created_at DESC").
		Order("id ASC").
		Offset((page - 1) * limit).
		Limit(limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	orders := make([]order.Order, len(rows))
	for i := range rows {
		orders[i] = *rows[i].ToDomain()
	}
	return orders, total, nil
}

func (r *GormOrderRepository) findOne(ctx context.Context, query string, args ...any) (*order.Order, error) {
	var model models.OrderModel
	if err := r.preload(r.db.WithContext(ctx)).Where(query, args...).First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

func (r *GormOrderRepository) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Preload("StatusHistory", func(db *gorm.DB) *gorm.DB { return db.Order("changed_at ASC, id ASC") })
}

var _ order.OrderRepository = (*GormOrderRepository)(nil)
