package handler

import (
	"context"
	"net/http"

	apporder "github.com/artisanmarket/backend/internal/application/order"
	appvendor "github.com/artisanmarket/backend/internal/application/vendor"
	"github.com/artisanmarket/backend/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RealtimeServer upgrades a request into a vendor's notification socket
type RealtimeServer interface {
	ServeWS(w http.ResponseWriter, r *http.Request, vendorID uuid.UUID) error
}

// VendorHandler handles store profiles, the vendor dashboard and fulfilment
type VendorHandler struct {
	BaseHandler
	vendors  *appvendor.VendorService
	orders   *apporder.OrderService
	proofs   *apporder.DeliveryProofService
	realtime RealtimeServer
}

// NewVendorHandler creates a new vendor handler. realtime may be nil, in
// which case the socket route answers 503.
func NewVendorHandler(
	vendors *appvendor.VendorService,
	orders *apporder.OrderService,
	proofs *apporder.DeliveryProofService,
	realtime RealtimeServer,
) *VendorHandler {
	return &VendorHandler{
		vendors:  vendors,
		orders:   orders,
		proofs:   proofs,
		realtime: realtime,
	}
}

// storeOf resolves the caller's vendor ID, writing the error response on failure
func (h *VendorHandler) storeOf(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return uuid.Nil, false
	}
	vendorID, err := vendorIDOf(c, userID, h)
	if err != nil {
		h.HandleError(c, err)
		return uuid.Nil, false
	}
	if vendorID == nil {
		h.Error(c, http.StatusNotFound, "NOT_FOUND", "Vendor profile not found")
		return uuid.Nil, false
	}
	return *vendorID, true
}

// StoreOf implements StoreResolver over the vendor service
func (h *VendorHandler) StoreOf(ctx context.Context, userID uuid.UUID) (uuid.UUID, error) {
	return h.vendors.StoreOf(ctx, userID)
}

// SaveProfile godoc
// @Summary      Create or update store profile
// @Description  Opens a store on first call and promotes the account to vendor
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        request body VendorProfileRequest true "Store profile"
// @Success      200 {object} dto.Response
// @Success      201 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      409 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/profile [post]
func (h *VendorHandler) SaveProfile(c *gin.Context) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return
	}
	var req VendorProfileRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.vendors.SaveProfile(c.Request.Context(), userID, req.toRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	if result.Created {
		h.Created(c, gin.H{"vendor": result.Vendor})
		return
	}
	h.Success(c, gin.H{"vendor": result.Vendor})
}

// GetProfile godoc
// @Summary      Get store profile
// @Tags         vendors
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/profile [get]
func (h *VendorHandler) GetProfile(c *gin.Context) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return
	}

	view, err := h.vendors.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"vendor": view})
}

// Stats godoc
// @Summary      Vendor dashboard stats
// @Description  Product, order and revenue totals for the caller's store
// @Tags         vendors
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/stats [get]
func (h *VendorHandler) Stats(c *gin.Context) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return
	}

	stats, err := h.vendors.Stats(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"stats": stats})
}

// Orders godoc
// @Summary      Vendor orders
// @Description  Orders containing the store's items; only those items are shown
// @Tags         vendors
// @Produce      json
// @Param        status query string false "Order status" Enums(pending, processing, shipped, delivered, cancelled)
// @Param        page query int false "Page number" default(1)
// @Param        limit query int false "Page size" default(10) maximum(100)
// @Success      200 {object} dto.Response
// @Failure      404 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/orders [get]
func (h *VendorHandler) Orders(c *gin.Context) {
	vendorID, ok := h.storeOf(c)
	if !ok {
		return
	}
	var req ListOrdersQuery
	if !h.BindQuery(c, &req) {
		return
	}

	result, err := h.orders.ListForVendor(c.Request.Context(), vendorID, req.toQuery())
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"orders": result.Orders, "pagination": result.Pagination})
}

// UploadDeliveryProof godoc
// @Summary      Upload delivery proof
// @Description  Attach a photo uploaded to delivery-proofs/{userId}/ to a shipped or delivered order; the same vendor can replace it for 15 minutes
// @Tags         vendors
// @Accept       json
// @Produce      json
// @Param        id path string true "Order ID" format(uuid)
// @Param        request body DeliveryProofRequest true "Uploaded photo"
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      403 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/orders/{id}/delivery-proof [post]
func (h *VendorHandler) UploadDeliveryProof(c *gin.Context) {
	vendorID, ok := h.storeOf(c)
	if !ok {
		return
	}
	userID, _ := h.CurrentUser(c)
	orderID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}
	var req DeliveryProofRequest
	if !h.BindJSON(c, &req) {
		return
	}

	actor := apporder.Actor{UserID: userID, Role: getRole(c), VendorID: &vendorID}
	result, err := h.proofs.Upload(c.Request.Context(), actor, orderID, apporder.DeliveryProofRequest{
		ImageURL: req.ImageURL,
		FileID:   req.FileID,
		Note:     req.Note,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"message":       "Delivery proof uploaded",
		"order":         result.Order,
		"deliveryProof": result.DeliveryProof,
	})
}

// PublicProfile godoc
// @Summary      Public storefront
// @Tags         vendors
// @Produce      json
// @Param        vendorId path string true "Vendor ID" format(uuid)
// @Success      200 {object} dto.Response
// @Failure      404 {object} ErrorResponse
// @Router       /vendors/public/{vendorId} [get]
func (h *VendorHandler) PublicProfile(c *gin.Context) {
	vendorID, ok := h.ParseID(c, "vendorId")
	if !ok {
		return
	}

	view, err := h.vendors.PublicProfile(c.Request.Context(), vendorID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"vendor": view})
}

// Socket godoc
// @Summary      Vendor notifications
// @Description  Websocket pushing products-updated and order-created events for the caller's store
// @Tags         vendors
// @Param        token query string false "Access token when the Authorization header cannot be set"
// @Success      101
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /vendors/ws [get]
func (h *VendorHandler) Socket(c *gin.Context) {
	if h.realtime == nil {
		h.Error(c, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "Realtime notifications are disabled")
		return
	}
	vendorID, ok := h.storeOf(c)
	if !ok {
		return
	}

	// the upgrader writes its own error response
	if err := h.realtime.ServeWS(c.Writer, c.Request, vendorID); err != nil {
		logger.GetGinLogger(c).Debug("Websocket upgrade failed",
			zap.String("vendor_id", vendorID.String()),
			zap.Error(err))
	}
}
