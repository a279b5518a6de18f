package dto

import "net/http"

// Error codes produced by the HTTP layer itself. Domain codes pass through
// unchanged so clients see the same code the service raised.

// General error codes
const (
	ErrCodeInternal = "INTERNAL_ERROR"
	ErrCodeUnknown  = "UNKNOWN_ERROR"
)

// Request error codes
const (
	ErrCodeBadRequest      = "BAD_REQUEST"
	ErrCodeValidation      = "VALIDATION_ERROR"
	ErrCodeInvalidJSON     = "INVALID_JSON"
	ErrCodeInvalidID       = "INVALID_ID"
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
	ErrCodeRateLimited     = "RATE_LIMIT_EXCEEDED"
	ErrCodeRouteNotFound   = "ROUTE_NOT_FOUND"
)

// Authentication error codes
const (
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeForbidden        = "FORBIDDEN"
	ErrCodeTokenExpired     = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid     = "TOKEN_INVALID"
	ErrCodeTokenRevoked     = "TOKEN_REVOKED"
	ErrCodeInvalidTokenType = "INVALID_TOKEN_TYPE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes. Codes missing
// from the table are business-rule or validation failures.
var ErrorCodeHTTPStatus = map[string]int{
	// General errors
	ErrCodeInternal: http.StatusInternalServerError,
	ErrCodeUnknown:  http.StatusInternalServerError,

	// Request errors
	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeValidation:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeInvalidID:       http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,
	ErrCodeRateLimited:     http.StatusTooManyRequests,
	ErrCodeRouteNotFound:   http.StatusNotFound,

	// Auth errors -> 401
	ErrCodeUnauthorized:     http.StatusUnauthorized,
	ErrCodeTokenExpired:     http.StatusUnauthorized,
	ErrCodeTokenInvalid:     http.StatusUnauthorized,
	ErrCodeTokenRevoked:     http.StatusUnauthorized,
	ErrCodeInvalidTokenType: http.StatusUnauthorized,
	"INVALID_CREDENTIALS":   http.StatusUnauthorized,

	// Permission errors -> 403
	ErrCodeForbidden:          http.StatusForbidden,
	"VENDOR_PROFILE_REQUIRED": http.StatusForbidden,
	"ACCOUNT_LOCKED":          http.StatusForbidden,
	"ACCOUNT_DEACTIVATED":     http.StatusForbidden,

	// Resource errors
	"NOT_FOUND":            http.StatusNotFound,
	"ALREADY_EXISTS":       http.StatusConflict,
	"CONCURRENCY_CONFLICT": http.StatusConflict,
	"DUPLICATE_REQUEST":    http.StatusConflict,

	// Upstream dependencies
	"PAYMENT_PROVIDER_ERROR": http.StatusBadGateway,
	"STORAGE_UNAVAILABLE":    http.StatusServiceUnavailable,
}

// GetHTTPStatus returns the HTTP status code for an error code.
// Returns 500 Internal Server Error if the error code is not found.
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// GetDomainHTTPStatus returns the status for a code raised by a domain or
// application service. Anything unlisted is a rejected request (400):
// validation, business rules and invalid state transitions.
func GetDomainHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusBadRequest
}
