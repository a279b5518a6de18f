package handler

import (
	"net/http"
	"strconv"

	appcatalog "github.com/artisanmarket/backend/internal/application/catalog"
	"github.com/artisanmarket/backend/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// ProductHandler serves the public catalog and vendor listing management
type ProductHandler struct {
	BaseHandler
	queries  *appcatalog.QueryService
	products *appcatalog.ProductService
	stores   StoreResolver

	importMaxBytes int64
	importMaxRows  int
}

const defaultImportMaxBytes = 5 << 20

// NewProductHandler creates a new product handler
func NewProductHandler(queries *appcatalog.QueryService, products *appcatalog.ProductService, stores StoreResolver) *ProductHandler {
	return &ProductHandler{
		queries:  queries,
		products: products,
		stores:   stores,

		importMaxBytes: defaultImportMaxBytes,
	}
}

// WithImportLimits caps CSV uploads by size and row count. Zero keeps the default.
func (h *ProductHandler) WithImportLimits(maxBytes int64, maxRows int) *ProductHandler {
	if maxBytes > 0 {
		h.importMaxBytes = maxBytes
	}
	h.importMaxRows = maxRows
	return h
}

func (h *ProductHandler) actor(c *gin.Context) (appcatalog.Actor, bool) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return appcatalog.Actor{}, false
	}
	return appcatalog.Actor{UserID: userID, Role: getRole(c)}, true
}

func (h *ProductHandler) bindList(c *gin.Context) (appcatalog.ListProductsQuery, bool) {
	var req ListProductsQuery
	if !h.BindQuery(c, &req) {
		return appcatalog.ListProductsQuery{}, false
	}
	query, bad := req.toQuery()
	if bad != "" {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, bad+" must be a number")
		return appcatalog.ListProductsQuery{}, false
	}
	return query, true
}

// List godoc
// @Summary      List products
// @Description  Active products with filtering, sorting and pagination
// @Tags         products
// @Produce      json
// @Param        category query string false "Category (kebab-case)"
// @Param        search query string false "Search in name, description and tags"
// @Param        minPrice query number false "Minimum price"
// @Param        maxPrice query number false "Maximum price"
// @Param        sortBy query string false "Sort field" Enums(createdAt, price, name, views, rating)
// @Param        sortOrder query string false "Sort order" Enums(asc, desc)
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(12) maximum(100)
// @Param        featured query bool false "Featured only"
// @Param        vendor query string false "Vendor ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Router       /products [get]
func (h *ProductHandler) List(c *gin.Context) {
	query, ok := h.bindList(c)
	if !ok {
		return
	}

	result, err := h.queries.List(c.Request.Context(), query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"products": result.Products, "pagination": result.Pagination})
}

// Featured godoc
// @Summary      Featured products
// @Tags         products
// @Produce      json
// @Param        limit query int false "Number of products" default(8) maximum(50)
// @Success      200 {object} dto.Response
// @Router       /products/featured [get]
func (h *ProductHandler) Featured(c *gin.Context) {
	var req FeaturedQuery
	if !h.BindQuery(c, &req) {
		return
	}

	products, err := h.queries.Featured(c.Request.Context(), req.Limit)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"products": products})
}

// Categories godoc
// @Summary      Product categories
// @Description  Categories of active products with their product counts, most used first
// @Tags         products
// @Produce      json
// @Success      200 {object} dto.Response
// @Router       /products/categories [get]
func (h *ProductHandler) Categories(c *gin.Context) {
	categories, err := h.queries.Categories(c.Request.Context())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"categories": categories})
}

// Get godoc
// @Summary      Get product by ID
// @Description  Product details; each view is counted
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Router       /products/{id} [get]
func (h *ProductHandler) Get(c *gin.Context) {
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	product, err := h.queries.Get(c.Request.Context(), id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"product": product})
}

// Create godoc
// @Summary      Create a product
// @Description  List a new product under the caller's store
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        request body CreateProductRequest true "Product"
// @Success      201 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products [post]
func (h *ProductHandler) Create(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	var req CreateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.products.Create(c.Request.Context(), actor, req.toRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{"product": product})
}

// Update godoc
// @Summary      Update a product
// @Description  Partial edit by the owning vendor or an admin
// @Tags         products
// @Accept       json
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Param        request body UpdateProductRequest true "Changed fields"
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{id} [put]
func (h *ProductHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req UpdateProductRequest
	if !h.BindJSON(c, &req) {
		return
	}

	product, err := h.products.Update(c.Request.Context(), actor, id, req.toRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"product": product})
}

// Delete godoc
// @Summary      Delete a product
// @Description  Remove a listing; past orders keep their snapshot
// @Tags         products
// @Produce      json
// @Param        id path string true "Product ID" format(uuid)
// @Success      200 {object} MessageResponse
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /products/{id} [delete]
func (h *ProductHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	if err := h.products.Delete(c.Request.Context(), actor, id); err != nil {
		h.HandleError(c, err)
		return
	}

	h.Message(c, "Product deleted")
}

// ListMine godoc
// @Summary      List the caller's products
// @Description  All of the store's products regardless of status
// @Tags         vendors
// @Produce      json
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(12) maximum(100)
// @Success      200 {object} dto.Response
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/products [get]
func (h *ProductHandler) ListMine(c *gin.Context) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return
	}
	query, ok := h.bindList(c)
	if !ok {
		return
	}

	vendorID, err := vendorIDOf(c, userID, h.stores)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	if vendorID == nil {
		h.HandleError(c, appcatalog.ErrVendorProfileRequired)
		return
	}

	result, err := h.queries.ListForVendor(c.Request.Context(), *vendorID, query)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"products": result.Products, "pagination": result.Pagination})
}

// Import godoc
// @Summary      Bulk import products from CSV
// @Description  Creates the caller's products from a CSV file. Columns: name, price and quantity are required; description, compare_at_price, categories, tags, images (lists split on | or ;), sku, featured, low_stock_threshold and status are optional. Rows that fail validation are reported and skipped.
// @Tags         vendors
// @Accept       multipart/form-data
// @Produce      json
// @Param        file formData file true "CSV file"
// @Param        mode query string false "What to do with SKUs the store already uses" Enums(skip, update, fail) default(skip)
// @Param        dryRun query bool false "Validate only"
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      413 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/products/import [post]
func (h *ProductHandler) Import(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}

	dryRun := false
	if v := c.Query("dryRun"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeValidation, "dryRun must be true or false")
			return
		}
		dryRun = parsed
	}

	header, err := c.FormFile("file")
	if err != nil {
		h.BadRequest(c, "A CSV file is required in the 'file' field")
		return
	}
	if header.Size > h.importMaxBytes {
		h.Error(c, http.StatusRequestEntityTooLarge, dto.ErrCodeRequestTooLarge, "The CSV file is too large")
		return
	}
	file, err := header.Open()
	if err != nil {
		h.BadRequest(c, "The uploaded file could not be read")
		return
	}
	defer file.Close()

	result, err := h.products.Import(c.Request.Context(), actor, appcatalog.ImportProductsRequest{
		File:    file,
		Mode:    appcatalog.ConflictMode(c.DefaultQuery("mode", string(appcatalog.ConflictModeSkip))),
		DryRun:  dryRun,
		MaxRows: h.importMaxRows,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"import": result})
}
