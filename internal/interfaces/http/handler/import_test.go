package handler

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func uploadCSV(t *testing.T, s *server, token, query, content string) *httptest.ResponseRecorder {
	t.Helper()
	var body bytes.Buffer
	form := multipart.NewWriter(&body)
	part, err := form.CreateFormFile("file", "products.csv")
	require.NoError(t, err)
	_, err = part.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, form.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/vendors/products/import"+query, &body)
	req.Header.Set("Content-Type", form.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, req)
	return w
}

func TestProductHandler_Import(t *testing.T) {
	s := newServer(t)
	vendor, _ := s.openStore(t, "Driftwood Studio")

	csv := "name,price,quantity,categories,sku\n" +
		"Driftwood Frame,40.00,4,Home Decor,DF-1\n" +
		"Sea Glass Pendant,,2,Jewelry,SG-1\n"

	t.Run("dry run reports without writing", func(t *testing.T) {
		w := uploadCSV(t, s, vendor.AccessToken, "?dryRun=true", csv)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		result := decode(t, w)["import"].(map[string]any)
		assert.Equal(t, true, result["dryRun"])
		assert.Equal(t, float64(1), result["validRows"])
		assert.Equal(t, float64(1), result["errorRows"])

		mine := perform(s.engine, http.MethodGet, "/api/vendors/products", vendor.AccessToken, nil)
		assert.Empty(t, decode(t, mine)["products"])
	})

	t.Run("creates valid rows", func(t *testing.T) {
		w := uploadCSV(t, s, vendor.AccessToken, "", csv)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		result := decode(t, w)["import"].(map[string]any)
		assert.Equal(t, float64(1), result["created"])
		errs := result["errors"].([]any)
		require.Len(t, errs, 1)
		assert.Equal(t, float64(3), errs[0].(map[string]any)["row"])

		mine := perform(s.engine, http.MethodGet, "/api/vendors/products", vendor.AccessToken, nil)
		products := decode(t, mine)["products"].([]any)
		require.Len(t, products, 1)
		assert.Equal(t, "Driftwood Frame", products[0].(map[string]any)["name"])
	})

	t.Run("existing SKUs are skipped by default", func(t *testing.T) {
		w := uploadCSV(t, s, vendor.AccessToken, "", "name,price,quantity,sku\nDriftwood Frame,45,4,DF-1\n")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, float64(1), decode(t, w)["import"].(map[string]any)["skipped"])
	})

	t.Run("update mode rewrites the listing", func(t *testing.T) {
		w := uploadCSV(t, s, vendor.AccessToken, "?mode=update", "name,price,quantity,sku\nDriftwood Frame XL,45,7,DF-1\n")
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, float64(1), decode(t, w)["import"].(map[string]any)["updated"])

		mine := perform(s.engine, http.MethodGet, "/api/vendors/products", vendor.AccessToken, nil)
		product := decode(t, mine)["products"].([]any)[0].(map[string]any)
		assert.Equal(t, "Driftwood Frame XL", product["name"])
	})

	t.Run("rejects bad requests", func(t *testing.T) {
		w := uploadCSV(t, s, vendor.AccessToken, "", "title,cost\nFrame,40\n")
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, "INVALID_CSV", errorCode(t, w))

		w = uploadCSV(t, s, vendor.AccessToken, "?mode=merge", csv)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = uploadCSV(t, s, vendor.AccessToken, "?dryRun=perhaps", csv)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = perform(s.engine, http.MethodPost, "/api/vendors/products/import", vendor.AccessToken, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		big := "name,price,quantity\n" + strings.Repeat("Driftwood Frame,40.00,4\n", 100)
		w := uploadCSV(t, s, vendor.AccessToken, "", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	})

	t.Run("customers cannot import", func(t *testing.T) {
		customer := s.register(t, "Buyer", "customer")
		w := uploadCSV(t, s, customer.AccessToken, "", csv)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}
