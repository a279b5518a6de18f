package dto

import "maps"

// Response is the success envelope. Payload keys sit next to "success"
// ({"success": true, "order": {...}}), which is what the storefront client reads.
type Response map[string]any

// ErrorInfo represents error details
type ErrorInfo struct {
	Code      string             `json:"code"`
	Message   string             `json:"message"`
	RequestID string             `json:"requestId,omitempty"`
	Details   []ValidationDetail `json:"details,omitempty"`
}

// ValidationDetail names one rejected field
type ValidationDetail struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorResponse is the failure envelope. Message duplicates Error.Message
// for clients that only read the top-level text.
type ErrorResponse struct {
	Success bool       `json:"success"`
	Message string     `json:"message"`
	Error   *ErrorInfo `json:"error"`
}

// NewSuccessResponse creates a success response from payload fields
func NewSuccessResponse(fields map[string]any) Response {
	resp := Response{"success": true}
	maps.Copy(resp, fields)
	resp["success"] = true
	return resp
}

// NewMessageResponse creates a success response carrying only a message
func NewMessageResponse(message string) Response {
	return Response{"success": true, "message": message}
}

// NewErrorResponse creates an error response
func NewErrorResponse(code, message string) ErrorResponse {
	return NewErrorResponseWithRequestID(code, message, "")
}

// NewErrorResponseWithRequestID creates an error response tagged with the request ID
func NewErrorResponseWithRequestID(code, message, requestID string) ErrorResponse {
	return ErrorResponse{
		Success: false,
		Message: message,
		Error: &ErrorInfo{
			Code:      code,
			Message:   message,
			RequestID: requestID,
		},
	}
}

// NewValidationErrorResponse creates a 400 body listing the rejected fields
func NewValidationErrorResponse(message, requestID string, details []ValidationDetail) ErrorResponse {
	resp := NewErrorResponseWithRequestID(ErrCodeValidation, message, requestID)
	resp.Error.Details = details
	return resp
}

// PageRequest is the common page/limit query
type PageRequest struct {
	Page  int `form:"page" binding:"omitempty,min=1"`
	Limit int `form:"limit" binding:"omitempty,min=1,max=100"`
}

// IDRequest represents a request with an ID path parameter
type IDRequest struct {
	ID string `uri:"id" binding:"required,uuid"`
}
