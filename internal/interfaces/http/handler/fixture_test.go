package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	appcatalog "github.com/artisanmarket/backend/internal/application/catalog"
	appidentity "github.com/artisanmarket/backend/internal/application/identity"
	apporder "github.com/artisanmarket/backend/internal/application/order"
	"github.com/artisanmarket/backend/internal/application/payment"
	"github.com/artisanmarket/backend/internal/application/upload"
	appvendor "github.com/artisanmarket/backend/internal/application/vendor"
	"github.com/artisanmarket/backend/internal/infrastructure/auth"
	"github.com/artisanmarket/backend/internal/infrastructure/banking"
	"github.com/artisanmarket/backend/internal/infrastructure/cache"
	"github.com/artisanmarket/backend/internal/infrastructure/config"
	paymentinfra "github.com/artisanmarket/backend/internal/infrastructure/payment"
	"github.com/artisanmarket/backend/internal/infrastructure/persistence"
	"github.com/artisanmarket/backend/internal/infrastructure/storage"
	"github.com/artisanmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
)

const mediaBaseURL = "https://cdn.artisan.test/media"

var validatorOnce sync.Once

func init() {
	gin.SetMode(gin.TestMode)
}

// server wires the real services over an in-memory sqlite database
type server struct {
	engine   *gin.Engine
	jwt      *auth.JWTService
	products *persistence.GormProductRepository
	orders   *persistence.GormOrderRepository
	users    *persistence.GormUserRepository
}

func newServer(t *testing.T) *server {
	t.Helper()
	validatorOnce.Do(middleware.SetupValidator)

	dsn := "file:" + uuid.NewString() + "?mode=memory&cache=shared"
	database, err := persistence.Open(sqlite.Open(dsn), &config.DatabaseConfig{MaxOpenConns: 1, MaxIdleConns: 1})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate())
	t.Cleanup(func() { _ = database.Close() })
	db := database.DB

	users := persistence.NewGormUserRepository(db)
	vendors := persistence.NewGormVendorRepository(db)
	products := persistence.NewGormProductRepository(db)
	orders := persistence.NewGormOrderRepository(db)
	scope := persistence.NewGormTransactionScope(db)

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "handler-test-secret-at-least-32-chars",
		RefreshSecret:          "handler-test-refresh-secret-32-chars",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
		Issuer:                 "artisanmarket-test",
	})
	blacklist := auth.NewInMemoryTokenBlacklist()
	objects := storage.NewStubObjectStorage(mediaBaseURL)
	payments := payment.NewService(paymentinfra.NewSandboxGateway("usd"), "usd", nil)

	authService := appidentity.NewAuthService(users, vendors, jwtService, blacklist, appidentity.DefaultAuthServiceConfig(), nil)
	bankService := appidentity.NewBankService(users, banking.NewSandboxProvider(decimal.NewFromInt(500), nil), nil)
	queries := appcatalog.NewQueryService(products, vendors, nil)
	productService := appcatalog.NewProductService(products, vendors, nil, nil)
	checkout := apporder.NewCheckoutService(scope, payments, apporder.DefaultCheckoutConfig(), nil,
		apporder.WithIdempotencyStore(cache.NewInMemoryIdempotencyStore()))
	orderService := apporder.NewOrderService(orders, scope, nil, nil)
	proofs := apporder.NewDeliveryProofService(orders, objects, nil, nil)
	vendorService := appvendor.NewVendorService(vendors, products, orders, scope, nil, nil)
	uploads := upload.NewService(objects, "upload-signing-key", 10*time.Minute, nil)

	vendorHandler := NewVendorHandler(vendorService, orderService, proofs, nil)
	authHandler := NewAuthHandler(authService)
	bankHandler := NewBankHandler(bankService)
	productHandler := NewProductHandler(queries, productService, vendorHandler).WithImportLimits(1<<10, 50)
	orderHandler := NewOrderHandler(checkout, orderService, vendorHandler)
	uploadHandler := NewUploadHandler(uploads)
	paymentHandler := NewPaymentHandler(payments)

	r := gin.New()
	r.Use(middleware.RequestID())
	api := r.Group("/api")
	api.GET("/products", productHandler.List)
	api.GET("/products/featured", productHandler.Featured)
	api.GET("/products/categories", productHandler.Categories)
	api.GET("/products/:id", productHandler.Get)
	api.GET("/vendors/public/:vendorId", vendorHandler.PublicProfile)
	api.POST("/auth/register", authHandler.Register)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/refresh", authHandler.RefreshToken)

	authed := api.Group("", middleware.JWTAuthMiddlewareWithConfig(middleware.JWTMiddlewareConfig{
		JWTService:      jwtService,
		TokenBlacklist:  blacklist,
		QueryTokenPaths: []string{"/api/vendors/ws"},
	}))
	authed.POST("/auth/logout", authHandler.Logout)
	authed.GET("/auth/me", authHandler.GetCurrentUser)
	authed.POST("/bank/connect", bankHandler.Connect)
	authed.GET("/bank/balance", bankHandler.Balance)
	authed.POST("/orders", orderHandler.Checkout)
	authed.GET("/orders", orderHandler.List)
	authed.GET("/orders/:id", orderHandler.Get)
	authed.PATCH("/orders/:id/status", orderHandler.UpdateStatus)
	authed.PATCH("/orders/:id/tracking", orderHandler.SetTracking)
	authed.PATCH("/orders/:id/cancel", orderHandler.Cancel)
	authed.POST("/upload/imagekit-auth", uploadHandler.Authorize)
	authed.POST("/payments/create-payment-intent", paymentHandler.CreatePaymentIntent)
	authed.POST("/vendors/profile", vendorHandler.SaveProfile)
	authed.GET("/vendors/profile", vendorHandler.GetProfile)
	authed.GET("/vendors/ws", vendorHandler.Socket)

	vendorOnly := authed.Group("", middleware.RequireRole("vendor", "admin"))
	vendorOnly.POST("/products", productHandler.Create)
	vendorOnly.PUT("/products/:id", productHandler.Update)
	vendorOnly.DELETE("/products/:id", productHandler.Delete)
	vendorOnly.GET("/vendors/products", productHandler.ListMine)
	vendorOnly.POST("/vendors/products/import", productHandler.Import)
	vendorOnly.GET("/vendors/stats", vendorHandler.Stats)
	vendorOnly.GET("/vendors/orders", vendorHandler.Orders)
	vendorOnly.POST("/vendors/orders/:id/delivery-proof", vendorHandler.UploadDeliveryProof)

	return &server{engine: r, jwt: jwtService, products: products, orders: orders, users: users}
}

func perform(r http.Handler, method, target, token string, body any, headers ...string) *httptest.ResponseRecorder {
	var reader io.Reader
	switch b := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(b)
	default:
		raw, _ := json.Marshal(b)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

func errorCode(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	info, ok := decode(t, w)["error"].(map[string]any)
	require.True(t, ok, "expected error envelope, got %s", w.Body.String())
	return info["code"].(string)
}

// account is a signed-in test user
type account struct {
	ID           uuid.UUID
	AccessToken  string
	RefreshToken string
}

func (s *server) register(t *testing.T, name, role string) account {
	t.Helper()
	w := perform(s.engine, http.MethodPost, "/api/auth/register", "", gin.H{
		"name":     name,
		"email":    uuid.NewString()[:8] + "@example.com",
		"password": "s3cret-pass",
		"role":     role,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return accountFrom(t, decode(t, w))
}

func accountFrom(t *testing.T, body map[string]any) account {
	t.Helper()
	user := body["user"].(map[string]any)
	tokens := body["tokens"].(map[string]any)
	return account{
		ID:           uuid.MustParse(user["id"].(string)),
		AccessToken:  tokens["accessToken"].(string),
		RefreshToken: tokens["refreshToken"].(string),
	}
}

// openStore registers a vendor account with a store profile
func (s *server) openStore(t *testing.T, storeName string) (account, uuid.UUID) {
	t.Helper()
	acct := s.register(t, storeName+" Owner", "vendor")
	w := perform(s.engine, http.MethodPost, "/api/vendors/profile", acct.AccessToken, gin.H{
		"storeName": storeName,
		"contact":   gin.H{"email": "studio@example.com"},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	vendor := decode(t, w)["vendor"].(map[string]any)
	return acct, uuid.MustParse(vendor["id"].(string))
}

func (s *server) listProduct(t *testing.T, vendor account, name, price string, qty int) uuid.UUID {
	t.Helper()
	w := perform(s.engine, http.MethodPost, "/api/products", vendor.AccessToken, gin.H{
		"name":        name,
		"description": "Hand turned from a single piece of walnut",
		"price":       price,
		"categories":  []string{"Home Decor"},
		"inventory":   gin.H{"quantity": qty},
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	product := decode(t, w)["product"].(map[string]any)
	return uuid.MustParse(product["id"].(string))
}

// fundedCustomer registers a customer and links a sandbox bank account worth $500
func (s *server) fundedCustomer(t *testing.T) account {
	t.Helper()
	acct := s.register(t, "Grace Hopper", "customer")
	w := perform(s.engine, http.MethodPost, "/api/bank/connect", acct.AccessToken, gin.H{
		"bankName":      "First Artisan Bank",
		"accountHolder": "Grace Hopper",
		"accountNumber": "000123456789",
		"routingNumber": "021000021",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	return acct
}

func checkoutBody(productID uuid.UUID, qty int, total string) gin.H {
	return gin.H{
		"items": []gin.H{{"productId": productID, "quantity": qty}},
		"shippingAddress": gin.H{
			"fullName": "Grace Hopper",
			"street":   "1 Navy Way",
			"city":     "Arlington",
			"state":    "VA",
			"zipCode":  "22202",
			"country":  "US",
		},
		"shippingMethod": "standard",
		"paymentMethod":  gin.H{"type": "balance"},
		"total":          total,
	}
}

func (s *server) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := s.products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Inventory.Quantity
}
