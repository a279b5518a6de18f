package models

import (
	"time"

	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ShippingAddressColumns is the embedded shipping address of an order
type ShippingAddressColumns struct {
	FullName string `gorm:"type:varchar(100);not null"`
	Street   string `gorm:"type:varchar(200);not null"`
	City     string `gorm:"type:varchar(100);not null"`
	State    string `gorm:"type:varchar(100);not null"`
	ZipCode  string `gorm:"type:varchar(20);not null"`
	Country  string `gorm:"type:varchar(100);not null"`
	Phone    string `gorm:"type:varchar(50)"`
}

// OrderModel is the persistence model for the Order aggregate root.
type OrderModel struct {
	AggregateModel
	OrderNumber       string                  `gorm:"type:varchar(20);not null;uniqueIndex"`
	CustomerID        uuid.UUID               `gorm:"type:uuid;not null;index"`
	ShippingAddress   ShippingAddressColumns  `gorm:"embedded;embeddedPrefix:shipping_"`
	ShippingMethod    order.ShippingMethod    `gorm:"type:varchar(20);not null"`
	PaymentType       order.PaymentMethodType `gorm:"type:varchar(20);not null"`
	PaymentBrand      string                  `gorm:"type:varchar(30)"`
	PaymentLast4      string                  `gorm:"type:varchar(4)"`
	PaymentIntentID   *string                 `gorm:"type:varchar(100);uniqueIndex:idx_orders_payment_intent_id,where:payment_intent_id IS NOT NULL"`
	Status            order.OrderStatus       `gorm:"type:varchar(20);not null;default:'pending';index"`
	PaymentStatus     order.PaymentStatus     `gorm:"type:varchar(20);not null;default:'pending'"`
	Subtotal          decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	ShippingCost      decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Tax               decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	Total             decimal.Decimal         `gorm:"type:decimal(18,2);not null"`
	EstimatedDelivery time.Time               `gorm:"not null"`
	TrackingNumber    string                  `gorm:"type:varchar(100)"`
	TrackingURL       string                  `gorm:"type:varchar(500)"`
	Carrier           string                  `gorm:"type:varchar(100)"`
	IsPaid            bool                    `gorm:"not null;default:false"`
	PaidAt            *time.Time
	DeliveredAt       *time.Time
	CancelledAt       *time.Time
	CancelReason      string `gorm:"type:varchar(500)"`

	ProofImageURL       string     `gorm:"type:varchar(500)"`
	ProofFileID         string     `gorm:"type:varchar(300)"`
	ProofNote           string     `gorm:"type:varchar(500)"`
	ProofUploadedBy     *uuid.UUID `gorm:"type:uuid"`
	ProofUploadedAt     *time.Time
	ProofLastUploadedAt *time.Time
	ProofUploadCount    int `gorm:"not null;default:0"`

	Items         []OrderItemModel         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	StatusHistory []OrderStatusChangeModel `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
}

// TableName returns the table name for GORM
func (OrderModel) TableName() string {
	return "orders"
}

// OrderItemModel is the persistence model for an order line
type OrderItemModel struct {
	ID        uuid.UUID       `gorm:"type:uuid;primaryKey"`
	OrderID   uuid.UUID       `gorm:"type:uuid;not null;index"`
	ProductID uuid.UUID       `gorm:"type:uuid;not null;index"`
	VendorID  uuid.UUID       `gorm:"type:uuid;not null;index"`
	Name      string          `gorm:"type:varchar(200);not null"`
	Image     string          `gorm:"type:varchar(500)"`
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Position  int             `gorm:"not null;default:0"`
}

// TableName returns the table name for GORM
func (OrderItemModel) TableName() string {
	return "order_items"
}

// OrderStatusChangeModel is one status history entry
type OrderStatusChangeModel struct {
	ID        uint              `gorm:"primaryKey;autoIncrement"`
	OrderID   uuid.UUID         `gorm:"type:uuid;not null;index"`
	Status    order.OrderStatus `gorm:"type:varchar(20);not null"`
	Note      string            `gorm:"type:varchar(500)"`
	ChangedBy uuid.UUID         `gorm:"type:uuid;not null"`
	ChangedAt time.Time         `gorm:"not null"`
}

// TableName returns the table name for GORM
func (OrderStatusChangeModel) TableName() string {
	return "order_status_history"
}

// ToDomain converts the persistence model to a domain Order aggregate.
// Items and history come back in stored order.
func (m *OrderModel) ToDomain() *order.Order {
	o := &order.Order{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		OrderNumber:       m.OrderNumber,
		CustomerID:        m.CustomerID,
		ShippingAddress: valueobject.Address{
			FullName: m.ShippingAddress.FullName,
			Street:   m.ShippingAddress.Street,
			City:     m.ShippingAddress.City,
			State:    m.ShippingAddress.State,
			ZipCode:  m.ShippingAddress.ZipCode,
			Country:  m.ShippingAddress.Country,
			Phone:    m.ShippingAddress.Phone,
		},
		ShippingMethod: m.ShippingMethod,
		PaymentMethod: order.PaymentMethod{
			Type:            m.PaymentType,
			Brand:           m.PaymentBrand,
			Last4:           m.PaymentLast4,
			PaymentIntentID: derefString(m.PaymentIntentID),
		},
		Status:            m.Status,
		PaymentStatus:     m.PaymentStatus,
		Subtotal:          m.Subtotal,
		ShippingCost:      m.ShippingCost,
		Tax:               m.Tax,
		Total:             m.Total,
		EstimatedDelivery: m.EstimatedDelivery,
		TrackingNumber:    m.TrackingNumber,
		TrackingURL:       m.TrackingURL,
		Carrier:           m.Carrier,
		IsPaid:            m.IsPaid,
		PaidAt:            m.PaidAt,
		DeliveredAt:       m.DeliveredAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}

	o.Items = make([]order.OrderItem, len(m.Items))
	for i, item := range m.Items {
		o.Items[i] = order.OrderItem{
			ID:        item.ID,
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     item.Price,
		}
	}

	o.StatusHistory = make([]order.StatusChange, len(m.StatusHistory))
	for i, h := range m.StatusHistory {
		o.StatusHistory[i] = order.StatusChange{
			Status:    h.Status,
			Note:      h.Note,
			ChangedBy: h.ChangedBy,
			ChangedAt: h.ChangedAt,
		}
	}

	if m.ProofUploadedAt != nil {
		proof := &order.DeliveryProof{
			ImageURL:    m.ProofImageURL,
			FileID:      m.ProofFileID,
			Note:        m.ProofNote,
			UploadedAt:  *m.ProofUploadedAt,
			UploadCount: m.ProofUploadCount,
		}
		if m.ProofUploadedBy != nil {
			proof.UploadedBy = *m.ProofUploadedBy
		}
		if m.ProofLastUploadedAt != nil {
			proof.LastUploadedAt = *m.ProofLastUploadedAt
		}
		o.DeliveryProof = proof
	}
	return o
}

// FromDomain populates the persistence model from a domain Order aggregate.
func (m *OrderModel) FromDomain(o *order.Order) {
	m.FromDomainAggregateRoot(o.BaseAggregateRoot)
	m.OrderNumber = o.OrderNumber
	m.CustomerID = o.CustomerID
	m.ShippingAddress = ShippingAddressColumns{
		FullName: o.ShippingAddress.FullName,
		Street:   o.ShippingAddress.Street,
		City:     o.ShippingAddress.City,
		State:    o.ShippingAddress.State,
		ZipCode:  o.ShippingAddress.ZipCode,
		Country:  o.ShippingAddress.Country,
		Phone:    o.ShippingAddress.Phone,
	}
	m.ShippingMethod = o.ShippingMethod
	m.PaymentType = o.PaymentMethod.Type
	m.PaymentBrand = o.PaymentMethod.Brand
	m.PaymentLast4 = o.PaymentMethod.Last4
	m.PaymentIntentID = nil
	if id := o.PaymentMethod.PaymentIntentID; id != "" {
		m.PaymentIntentID = &id
	}
	m.Status = o.Status
	m.PaymentStatus = o.PaymentStatus
	m.Subtotal = o.Subtotal
	m.ShippingCost = o.ShippingCost
	m.Tax = o.Tax
	m.Total = o.Total
	m.EstimatedDelivery = o.EstimatedDelivery
	m.TrackingNumber = o.TrackingNumber
	m.TrackingURL = o.TrackingURL
	m.Carrier = o.Carrier
	m.IsPaid = o.IsPaid
	m.PaidAt = o.PaidAt
	m.DeliveredAt = o.DeliveredAt
	m.CancelledAt = o.CancelledAt
	m.CancelReason = o.CancelReason

	m.Items = make([]OrderItemModel, len(o.Items))
	for i, item := range o.Items {
		m.Items[i] = OrderItemModel{
			ID:        item.ID,
			OrderID:   o.ID,
			ProductID: item.ProductID,
			VendorID:  item.VendorID,
			Name:      item.Name,
			Image:     item.Image,
			Quantity:  item.Quantity,
			Price:     item.Price,
			Position:  i,
		}
	}

	m.StatusHistory = make([]OrderStatusChangeModel, len(o.StatusHistory))
	for i, h := range o.StatusHistory {
		m.StatusHistory[i] = OrderStatusChangeModel{
			OrderID:   o.ID,
			Status:    h.Status,
			Note:      h.Note,
			ChangedBy: h.ChangedBy,
			ChangedAt: h.ChangedAt,
		}
	}

	m.ProofImageURL, m.ProofFileID, m.ProofNote = "", "", ""
	m.ProofUploadedBy, m.ProofUploadedAt, m.ProofLastUploadedAt = nil, nil, nil
	m.ProofUploadCount = 0
	if p := o.DeliveryProof; p != nil {
		uploadedBy := p.UploadedBy
		uploadedAt := p.UploadedAt
		lastUploadedAt := p.LastUploadedAt
		m.ProofImageURL = p.ImageURL
		m.ProofFileID = p.FileID
		m.ProofNote = p.Note
		m.ProofUploadedBy = &uploadedBy
		m.ProofUploadedAt = &uploadedAt
		m.ProofLastUploadedAt = &lastUploadedAt
		m.ProofUploadCount = p.UploadCount
	}
}

// OrderModelFromDomain creates a new persistence model from a domain Order aggregate.
func OrderModelFromDomain(o *order.Order) *OrderModel {
	m := &OrderModel{}
	m.FromDomain(o)
	return m
}

// AllModels returns every persisted model, in dependency order, for AutoMigrate in tests
func AllModels() []any {
	return []any{
		&UserModel{},
		&VendorModel{},
		&ProductModel{},
		&ProductCategoryModel{},
		&OrderModel{},
		&OrderItemModel{},
		&OrderStatusChangeModel{},
	}
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
