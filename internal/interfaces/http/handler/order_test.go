package handler

import (
	"context"
	"net/http"
	"regexp"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var orderNumberPattern = regexp.MustCompile(`^ORD-\d{6}-\d{4}$`)

func placeOrder(t *testing.T, s *server, customer account, productID uuid.UUID, qty int, total string) map[string]any {
	t.Helper()
	w := perform(s.engine, http.MethodPost, "/api/orders", customer.AccessToken, checkoutBody(productID, qty, total))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	return decode(t, w)["order"].(map[string]any)
}

func TestOrderHandler_Checkout(t *testing.T) {
	s := newServer(t)
	vendor, _ := s.openStore(t, "Walnut Works")
	productID := s.listProduct(t, vendor, "Walnut Bowl", "20.00", 5)
	customer := s.fundedCustomer(t)

	placed := placeOrder(t, s, customer, productID, 2, "51.20")

	assert.Regexp(t, orderNumberPattern, placed["orderNumber"])
	assert.Equal(t, "40", placed["subtotal"])
	assert.Equal(t, "8", placed["shippingCost"])
	assert.Equal(t, "3.2", placed["tax"])
	assert.Equal(t, "51.2", placed["total"])
	assert.Equal(t, "pending", placed["status"])
	assert.Equal(t, "completed", placed["paymentStatus"])
	assert.Equal(t, true, placed["isPaid"])
	assert.Equal(t, 3, s.stockOf(t, productID))

	w := perform(s.engine, http.MethodGet, "/api/bank/balance", customer.AccessToken, nil)
	assert.Equal(t, "448.8", decode(t, w)["bank"].(map[string]any)["balance"])
}

func TestOrderHandler_CheckoutRejections(t *testing.T) {
	s := newServer(t)
	vendor, _ := s.openStore(t, "Walnut Works")
	productID := s.listProduct(t, vendor, "Walnut Bowl", "20.00", 1)
	customer := s.fundedCustomer(t)

	t.Run("insufficient stock leaves no trace", func(t *testing.T) {
		w := perform(s.engine, http.MethodPost, "/api/orders", customer.AccessToken, checkoutBody(productID, 2, "51.20"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INSUFFICIENT_STOCK", errorCode(t, w))
		assert.Equal(t, 1, s.stockOf(t, productID))

		list := perform(s.engine, http.MethodGet, "/api/orders", customer.AccessToken, nil)
		assert.Empty(t, decode(t, list)["orders"])
	})

	t.Run("total mismatch", func(t *testing.T) {
		w := perform(s.engine, http.MethodPost, "/api/orders", customer.AccessToken, checkoutBody(productID, 1, "20.00"))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "TOTAL_MISMATCH", errorCode(t, w))
		assert.Equal(t, 1, s.stockOf(t, productID))
	})

	t.Run("unknown shipping method", func(t *testing.T) {
		body := checkoutBody(productID, 1, "29.60")
		body["shippingMethod"] = "drone"
		w := perform(s.engine, http.MethodPost, "/api/orders", customer.AccessToken, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})

	t.Run("card without intent", func(t *testing.T) {
		body := checkoutBody(productID, 1, "29.60")
		body["paymentMethod"] = gin.H{"type": "card"}
		w := perform(s.engine, http.MethodPost, "/api/orders", customer.AccessToken, body)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("anonymous", func(t *testing.T) {
		w := perform(s.engine, http.MethodPost, "/api/orders", "", checkoutBody(productID, 1, "29.60"))
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})
}

func TestOrderHandler_CheckoutIdempotencyKey(t *testing.T) {
	s := newServer(t)
	vendor, _ := s.openStore(t, "Walnut Works")
	productID := s.listProduct(t, vendor, "Walnut Bowl", "20.00", 5)
	customer := s.fundedCustomer(t)
	key := uuid.NewString()

	w := perform(s.engine, http.MethodPost, "/api/orders", customer.AccessToken,
		checkoutBody(productID, 1, "20.00"), IdempotencyKeyHeader, key)
	assert.Equal(t, "TOTAL_MISMATCH", errorCode(t, w))

	// the failed attempt released the key
	w = perform(s.engine, http.MethodPost, "/api/orders", customer.AccessToken,
		checkoutBody(productID, 1, "29.60"), IdempotencyKeyHeader, key)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = perform(s.engine, http.MethodPost, "/api/orders", customer.AccessToken,
		checkoutBody(productID, 1, "29.60"), IdempotencyKeyHeader, key)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "DUPLICATE_REQUEST", errorCode(t, w))
	assert.Equal(t, 4, s.stockOf(t, productID))
}

func TestOrderHandler_LastUnitRace(t *testing.T) {
	s := newServer(t)
	vendor, _ := s.openStore(t, "Walnut Works")
	productID := s.listProduct(t, vendor, "Walnut Bowl", "20.00", 1)
	first, second := s.fundedCustomer(t), s.fundedCustomer(t)

	codes := make([]int, 2)
	var wg sync.WaitGroup
	for i, customer := range []account{first, second} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			w := perform(s.engine, http.MethodPost, "/api/orders", customer.AccessToken, checkoutBody(productID, 1, "29.60"))
			codes[i] = w.Code
		}()
	}
	wg.Wait()

	assert.ElementsMatch(t, []int{http.StatusCreated, http.StatusBadRequest}, codes)
	assert.Equal(t, 0, s.stockOf(t, productID))
}

func TestOrderHandler_Visibility(t *testing.T) {
	s := newServer(t)
	vendor, _ := s.openStore(t, "Walnut Works")
	outsider, _ := s.openStore(t, "Other Shop")
	productID := s.listProduct(t, vendor, "Walnut Bowl", "20.00", 5)
	customer := s.fundedCustomer(t)
	stranger := s.register(t, "Eve", "customer")
	orderID := placeOrder(t, s, customer, productID, 1, "29.60")["id"].(string)

	w := perform(s.engine, http.MethodGet, "/api/orders/"+orderID, customer.AccessToken, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = perform(s.engine, http.MethodGet, "/api/orders/"+orderID, vendor.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "20", decode(t, w)["order"].(map[string]any)["vendorSubtotal"])

	w = perform(s.engine, http.MethodGet, "/api/orders/"+orderID, outsider.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(s.engine, http.MethodGet, "/api/orders/"+orderID, stranger.AccessToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(s.engine, http.MethodGet, "/api/orders?status=pending", customer.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["orders"], 1)

	w = perform(s.engine, http.MethodGet, "/api/orders?status=lost", customer.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestOrderHandler_Fulfilment(t *testing.T) {
	s := newServer(t)
	vendor, _ := s.openStore(t, "Walnut Works")
	productID := s.listProduct(t, vendor, "Walnut Bowl", "20.00", 5)
	customer := s.fundedCustomer(t)
	orderID := placeOrder(t, s, customer, productID, 1, "29.60")["id"].(string)
	base := "/api/orders/" + orderID

	w := perform(s.engine, http.MethodPatch, base+"/status", customer.AccessToken, gin.H{"status": "processing"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(s.engine, http.MethodPatch, base+"/status", vendor.AccessToken, gin.H{"status": "delivered"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_STATE", errorCode(t, w))

	w = perform(s.engine, http.MethodPatch, base+"/status", vendor.AccessToken, gin.H{"status": "processing", "note": "Packing"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = perform(s.engine, http.MethodPatch, base+"/tracking", vendor.AccessToken, gin.H{
		"trackingNumber": "1Z999AA10123456784",
		"carrier":        "UPS",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode(t, w)["order"].(map[string]any)
	assert.Equal(t, "shipped", order["status"])
	assert.Equal(t, "1Z999AA10123456784", order["trackingNumber"])

	w = perform(s.engine, http.MethodPatch, base+"/cancel", customer.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 4, s.stockOf(t, productID))

	w = perform(s.engine, http.MethodPatch, base+"/status", vendor.AccessToken, gin.H{"status": "delivered"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.NotEmpty(t, decode(t, w)["order"].(map[string]any)["deliveredAt"])

	w = perform(s.engine, http.MethodGet, "/api/vendors/profile", vendor.AccessToken, nil)
	financials := decode(t, w)["vendor"].(map[string]any)["financials"].(map[string]any)
	assert.Equal(t, "18", financials["balance"])
	assert.EqualValues(t, 1, financials["totalOrders"])
}

func TestOrderHandler_Cancel(t *testing.T) {
	s := newServer(t)
	vendor, _ := s.openStore(t, "Walnut Works")
	productID := s.listProduct(t, vendor, "Walnut Bowl", "20.00", 5)
	customer := s.fundedCustomer(t)
	orderID := placeOrder(t, s, customer, productID, 2, "51.20")["id"].(string)
	require.Equal(t, 3, s.stockOf(t, productID))

	w := perform(s.engine, http.MethodPatch, "/api/orders/"+orderID+"/cancel", vendor.AccessToken, gin.H{"reason": "nope"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(s.engine, http.MethodPatch, "/api/orders/"+orderID+"/cancel", customer.AccessToken, gin.H{"reason": "Ordered twice"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	order := decode(t, w)["order"].(map[string]any)
	assert.Equal(t, "cancelled", order["status"])
	assert.Equal(t, "refunded", order["paymentStatus"])
	assert.Equal(t, 5, s.stockOf(t, productID))

	user, err := s.users.FindByID(context.Background(), customer.ID)
	require.NoError(t, err)
	assert.Equal(t, "500", user.Balance.String())
}
