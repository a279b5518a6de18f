package handler

import (
	"strings"

	apporder "github.com/artisanmarket/backend/internal/application/order"
	"github.com/artisanmarket/backend/internal/domain/order"
	"github.com/gin-gonic/gin"
)

// OrderHandler handles checkout and order fulfilment requests
type OrderHandler struct {
	BaseHandler
	checkout *apporder.CheckoutService
	orders   *apporder.OrderService
	stores   StoreResolver
}

// NewOrderHandler creates a new order handler
func NewOrderHandler(checkout *apporder.CheckoutService, orders *apporder.OrderService, stores StoreResolver) *OrderHandler {
	return &OrderHandler{
		checkout: checkout,
		orders:   orders,
		stores:   stores,
	}
}

// actor resolves the caller together with the store they own, if any
func (h *OrderHandler) actor(c *gin.Context) (apporder.Actor, bool) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return apporder.Actor{}, false
	}
	vendorID, err := vendorIDOf(c, userID, h.stores)
	if err != nil {
		h.HandleError(c, err)
		return apporder.Actor{}, false
	}
	return apporder.Actor{UserID: userID, Role: getRole(c), VendorID: vendorID}, true
}

// Checkout godoc
// @Summary      Place an order
// @Description  Reserve stock, take payment and create the order in one transaction
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key header string false "Retry key; a repeated key is rejected with 409"
// @Param        request body CheckoutRequest true "Cart, address and payment"
// @Success      201 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [post]
func (h *OrderHandler) Checkout(c *gin.Context) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return
	}

	var req CheckoutRequest
	if !h.BindJSON(c, &req) {
		return
	}
	key := strings.TrimSpace(c.GetHeader(IdempotencyKeyHeader))
	if len(key) > 255 {
		h.BadRequest(c, "Idempotency-Key must be at most 255 characters")
		return
	}

	placed, err := h.checkout.Checkout(c.Request.Context(), req.toRequest(userID, key))
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Created(c, gin.H{"order": placed})
}

// List godoc
// @Summary      List orders
// @Description  The caller's orders, newest first; admins see every order
// @Tags         orders
// @Produce      json
// @Param        status query string false "Order status" Enums(pending, processing, shipped, delivered, cancelled)
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(10) maximum(100)
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders [get]
func (h *OrderHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req ListOrdersQuery
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.orders.List(c.Request.Context(), actor, req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"orders": result.Orders, "pagination": result.Pagination})
}

// Get godoc
// @Summary      Get order by ID
// @Description  Visible to the customer, vendors with items in it and admins
// @Tags         orders
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      403 {object} ErrorResponse
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id} [get]
func (h *OrderHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	view, err := h.orders.Get(c.Request.Context(), actor, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"order": view})
}

// UpdateStatus godoc
// @Summary      Update order status
// @Description  pending → processing|cancelled, processing → shipped|cancelled, shipped → delivered
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body UpdateStatusRequest true "New status"
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/status [patch]
func (h *OrderHandler) UpdateStatus(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req UpdateStatusRequest
	if !h.BindJSON(c, &req) {
		return
	}

	view, err := h.orders.UpdateStatus(c.Request.Context(), actor, id, apporder.UpdateStatusRequest{
		Status: order.OrderStatus(req.Status),
		Note:   req.Note,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"order": view})
}

// SetTracking godoc
// @Summary      Set tracking
// @Description  Attach tracking and mark the order shipped
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body TrackingRequest true "Tracking details"
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/tracking [patch]
func (h *OrderHandler) SetTracking(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req TrackingRequest
	if !h.BindJSON(c, &req) {
		return
	}

	view, err := h.orders.SetTracking(c.Request.Context(), actor, id, apporder.TrackingRequest{
		TrackingNumber: req.TrackingNumber,
		TrackingURL:    req.TrackingURL,
		Carrier:        req.Carrier,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"order": view})
}

// Cancel godoc
// @Summary      Cancel an order
// @Description  The customer cancels a pending order; stock is restored and a balance payment refunded
// @Tags         orders
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body CancelOrderRequest false "Reason"
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /orders/{id}/cancel [patch]
func (h *OrderHandler) Cancel(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	id, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req CancelOrderRequest
	if c.Request.ContentLength > 0 && !h.BindJSON(c, &req) {
		return
	}

	view, err := h.orders.Cancel(c.Request.Context(), actor, id, req.Reason)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"order": view, "message": "Order cancelled"})
}
