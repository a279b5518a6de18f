package persistence

import (
	"testing"
	"time"

	"github.com/artisanmarket/backend/internal/domain/catalog"
	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/artisanmarket/backend/internal/domain/shared/valueobject"
	"github.com/artisanmarket/backend/internal/domain/vendor"
	"github.com/artisanmarket/backend/internal/infrastructure/config"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens a private shared-cache sqlite database limited to one
// connection, so concurrent callers serialize like row locks would.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	db, err := Open(sqlite.Open(dsn), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate())
	t.Cleanup(func() { _ = db.Close() })
	return db.DB
}

func seedUser(t *testing.T, db *gorm.DB, email string, balance decimal.Decimal) *identity.User {
	t.Helper()
	u, err := identity.NewUser("Test User", email, "password123", identity.RoleCustomer)
	require.NoError(t, err)
	u.Balance = balance
	require.NoError(t, NewGormUserRepository(db).Create(t.Context(), u))
	return u
}

func seedVendor(t *testing.T, db *gorm.DB, storeName string) *vendor.Vendor {
	t.Helper()
	v, err := vendor.NewVendor(uuid.New(), vendor.Profile{
		StoreName: storeName,
		Contact:   vendor.Contact{Email: "shop@example.com"},
	})
	require.NoError(t, err)
	require.NoError(t, NewGormVendorRepository(db).Save(t.Context(), v))
	return v
}

func seedProduct(t *testing.T, db *gorm.DB, vendorID uuid.UUID, name string, price string, qty int, categories ...string) *catalog.Product {
	t.Helper()
	p, err := catalog.NewProduct(vendorID, name, decimal.RequireFromString(price), qty, categories)
	require.NoError(t, err)
	require.NoError(t, NewGormProductRepository(db).Save(t.Context(), p))
	return p
}

func testAddress() valueobject.Address {
	return valueobject.Address{
		FullName: "Ada Lovelace",
		Street:   "1 Analytical Way",
		City:     "London",
		State:    "LDN",
		ZipCode:  "N1 9GU",
		Country:  "UK",
	}
}

func newTestOrder(t *testing.T, number string, customerID uuid.UUID, items ...order.OrderItem) *order.Order {
	t.Helper()
	o, err := order.NewOrder(order.NewOrderParams{
		OrderNumber:     number,
		CustomerID:      customerID,
		Items:           items,
		ShippingAddress: testAddress(),
		ShippingMethod:  order.ShippingStandard,
		PaymentMethod:   order.PaymentMethod{Type: order.PaymentMethodBalance},
		PlacedAt:        time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return o
}
