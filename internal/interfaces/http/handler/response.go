package handler

import "github.com/artisanmarket/backend/internal/interfaces/http/dto"

// ErrorResponse documents the failure envelope for OpenAPI
// @Description Standard error response
type ErrorResponse struct {
	Success bool           `json:"success" example:"false"`
	Message string         `json:"message" example:"Order not found"`
	Error   *dto.ErrorInfo `json:"error"`
}

// MessageResponse documents a success carrying only a message
// @Description Success with message
type MessageResponse struct {
	Success bool   `json:"success" example:"true"`
	Message string `json:"message" example:"Logged out successfully"`
}
