package handler

import (
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProductHandler_CreateAndGet(t *testing.T) {
	s := newServer(t)
	vendor, vendorID := s.openStore(t, "Walnut Works")

	id := s.listProduct(t, vendor, "Walnut Bowl", "20.00", 5)

	w := perform(s.engine, http.MethodGet, "/api/products/"+id.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	product := decode(t, w)["product"].(map[string]any)
	assert.Equal(t, "Walnut Bowl", product["name"])
	assert.Equal(t, vendorID.String(), product["vendorId"])
	assert.Equal(t, []any{"home-decor"}, product["categories"])
	assert.Equal(t, "active", product["status"])

	w = perform(s.engine, http.MethodGet, "/api/products/"+uuid.NewString(), "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = perform(s.engine, http.MethodGet, "/api/products/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "INVALID_ID", errorCode(t, w))
}

func TestProductHandler_CreateRules(t *testing.T) {
	s := newServer(t)

	t.Run("customer is forbidden", func(t *testing.T) {
		customer := s.register(t, "Grace Hopper", "customer")
		w := perform(s.engine, http.MethodPost, "/api/products", customer.AccessToken, gin.H{
			"name": "Bowl", "description": "x", "price": "1", "categories": []string{"x"},
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("vendor without store", func(t *testing.T) {
		vendor := s.register(t, "No Store", "vendor")
		w := perform(s.engine, http.MethodPost, "/api/products", vendor.AccessToken, gin.H{
			"name": "Bowl", "description": "x", "price": "1", "categories": []string{"x"},
		})
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Equal(t, "VENDOR_PROFILE_REQUIRED", errorCode(t, w))
	})

	t.Run("missing price", func(t *testing.T) {
		vendor, _ := s.openStore(t, "Pricing Studio")
		w := perform(s.engine, http.MethodPost, "/api/products", vendor.AccessToken, gin.H{
			"name": "Bowl", "description": "x", "categories": []string{"x"},
		})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "VALIDATION_ERROR", errorCode(t, w))
	})
}

func TestProductHandler_List(t *testing.T) {
	s := newServer(t)
	vendor, vendorID := s.openStore(t, "Clay Corner")
	s.listProduct(t, vendor, "Mug", "12.00", 3)
	s.listProduct(t, vendor, "Vase", "45.00", 1)
	s.listProduct(t, vendor, "Plate", "30.00", 2)

	w := perform(s.engine, http.MethodGet, "/api/products?sortBy=price&sortOrder=asc&limit=2", "", nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := decode(t, w)
	products := body["products"].([]any)
	require.Len(t, products, 2)
	assert.Equal(t, "Mug", products[0].(map[string]any)["name"])
	assert.Equal(t, "Clay Corner", products[0].(map[string]any)["vendorName"])
	pagination := body["pagination"].(map[string]any)
	assert.EqualValues(t, 3, pagination["total"])
	assert.EqualValues(t, 2, pagination["pages"])

	w = perform(s.engine, http.MethodGet, "/api/products?minPrice=20&maxPrice=40&vendor="+vendorID.String(), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	products = decode(t, w)["products"].([]any)
	require.Len(t, products, 1)
	assert.Equal(t, "Plate", products[0].(map[string]any)["name"])

	w = perform(s.engine, http.MethodGet, "/api/products?minPrice=cheap", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(s.engine, http.MethodGet, "/api/products?sortBy=password", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = perform(s.engine, http.MethodGet, "/api/products?limit=500", "", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProductHandler_Categories(t *testing.T) {
	s := newServer(t)
	vendor, _ := s.openStore(t, "Loom House")
	s.listProduct(t, vendor, "Scarf", "25.00", 4)

	w := perform(s.engine, http.MethodGet, "/api/products/categories", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	categories := decode(t, w)["categories"].([]any)
	require.Len(t, categories, 1)
	assert.Equal(t, "home-decor", categories[0].(map[string]any)["category"])
	assert.EqualValues(t, 1, categories[0].(map[string]any)["count"])

	w = perform(s.engine, http.MethodGet, "/api/products/featured", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode(t, w)["products"])
}

func TestProductHandler_UpdateAndDelete(t *testing.T) {
	s := newServer(t)
	owner, _ := s.openStore(t, "Forge & Anvil")
	other, _ := s.openStore(t, "Rival Smiths")
	id := s.listProduct(t, owner, "Iron Hook", "9.50", 10)

	w := perform(s.engine, http.MethodPut, "/api/products/"+id.String(), other.AccessToken, gin.H{"price": "1.00"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = perform(s.engine, http.MethodPut, "/api/products/"+id.String(), owner.AccessToken, gin.H{
		"price":    "11.00",
		"quantity": 25,
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "11", decode(t, w)["product"].(map[string]any)["price"])
	assert.Equal(t, 25, s.stockOf(t, id))

	w = perform(s.engine, http.MethodGet, "/api/vendors/products", owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, decode(t, w)["products"], 1)

	w = perform(s.engine, http.MethodDelete, "/api/products/"+id.String(), owner.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = perform(s.engine, http.MethodGet, "/api/products", "", nil)
	assert.Empty(t, decode(t, w)["products"])
}
