package handler

import (
	appidentity "github.com/artisanmarket/backend/internal/application/identity"
	"github.com/gin-gonic/gin"
)

// BankHandler links bank accounts and reports the spendable balance
type BankHandler struct {
	BaseHandler
	bankService *appidentity.BankService
}

// NewBankHandler creates a new bank handler
func NewBankHandler(bankService *appidentity.BankService) *BankHandler {
	return &BankHandler{bankService: bankService}
}

// Connect godoc
// @Summary      Link a bank account
// @Description  Verify the account with the banking provider and store its masked details
// @Tags         bank
// @Accept       json
// @Produce      json
// @Param        request body ConnectBankRequest true "Bank account"
// @Success      200 {object} dto.Response
// @Failure      400 {object} ErrorResponse
// @Failure      502 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bank/connect [post]
func (h *BankHandler) Connect(c *gin.Context) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return
	}

	var req ConnectBankRequest
	if !h.BindJSON(c, &req) {
		return
	}

	result, err := h.bankService.Connect(c.Request.Context(), appidentity.ConnectBankInput{
		UserID:        userID,
		BankName:      req.BankName,
		AccountHolder: req.AccountHolder,
		AccountNumber: req.AccountNumber,
		RoutingNumber: req.RoutingNumber,
	})
	if err != nil {
		h.HandleError(c, err)
		return
	}

	resp := toBankBalanceResponse(result)
	h.Success(c, gin.H{"message": "Bank account linked", "bank": resp})
}

// Balance godoc
// @Summary      Get balance
// @Description  Marketplace balance usable at checkout and the linked account
// @Tags         bank
// @Produce      json
// @Success      200 {object} dto.Response
// @Failure      401 {object} ErrorResponse
// @Security     BearerAuth
// @Router       /bank/balance [get]
func (h *BankHandler) Balance(c *gin.Context) {
	userID, ok := h.CurrentUser(c)
	if !ok {
		return
	}

	result, err := h.bankService.Balance(c.Request.Context(), userID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{"bank": toBankBalanceResponse(result)})
}
