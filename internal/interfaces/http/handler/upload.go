package handler

import (
	"github.com/artisanmarket/backend/internal/application/payment"
	"github.com/artisanmarket/backend/internal/application/upload"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
)

// UploadAuthRequest asks for a presigned image upload
type UploadAuthRequest struct {
	FileName    string `json:"fileName" binding:"required,max=255"`
	ContentType string `json:"contentType" binding:"required,oneof=image/jpeg image/png image/webp image/gif"`
	Folder      string `json:"folder" binding:"omitempty,max=50"`
}

// CreatePaymentIntentRequest asks for a card payment intent
type CreatePaymentIntentRequest struct {
	Amount         *decimal.Decimal `json:"amount" binding:"required"`
	Currency       string           `json:"currency" binding:"omitempty,len=3,alpha"`
	OrderReference string           `json:"orderReference" binding:"omitempty,max=100"`
}

// UploadHandler authorises direct-to-storage uploads
type UploadHandler struct {
	BaseHandler
	uploads *upload.Service
}

// NewUploadHandler creates a new upload handler
func NewUploadHandler(uploads *upload.Service) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Authorize godoc
// @Summary      Authorise an image upload
// @Description  Returns a presigned PUT URL and the URL the image will be served from
// @Tags         upload
// @Accept       json
// @Produce      json
// @Param        request body UploadAuthRequest true "File to upload"
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /upload/imagekit-auth [post]
// @Router       /upload/auth [post]
func (h *UploadHandler) Authorize(c *gin.Context) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return
	}
	var req UploadAuthRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.uploads.Authorize(c.Request.Context(), upload.AuthRequest{
		UserID:      userID,
		FileName:    req.FileName,
		ContentType: req.ContentType,
		Folder:      req.Folder,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"uploadUrl": result.UploadURL,
		"fileId":    result.FileID,
		"publicUrl": result.PublicURL,
		"expire":    result.Expire,
		"token":     result.Token,
		"signature": result.Signature,
	})
}

// PaymentHandler opens card payment intents
type PaymentHandler struct {
	BaseHandler
	payments *payment.Service
}

// NewPaymentHandler creates a new payment handler
func NewPaymentHandler(payments *payment.Service) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

// CreatePaymentIntent godoc
// @Summary      Create a payment intent
// @Description  Opens a card payment the browser confirms; pass its ID to checkout
// @Tags         payments
// @Accept       json
// @Produce      json
// @Param        request body CreatePaymentIntentRequest true "Amount in dollars"
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /payments/create-payment-intent [post]
func (h *PaymentHandler) CreatePaymentIntent(c *gin.Context) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return
	}
	var req CreatePaymentIntentRequest
	if !h.BindJSON(c, &req) {
		return
	}

	intent, err := h.payments.CreatePaymentIntent(c.Request.Context(), payment.CreateIntentRequest{
		UserID:         userID,
		Amount:         *req.Amount,
		Currency:       req.Currency,
		OrderReference: req.OrderReference,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"clientSecret":    intent.ClientSecret,
		"paymentIntentId": intent.PaymentIntentID,
		"amount":          intent.AmountCents,
		"currency":        intent.Currency,
	})
}
