package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is matches domain errors by code so wrapped copies with a custom message
// still satisfy errors.Is against the shared sentinels.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return e.Code == t.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound              = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists         = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput          = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict   = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized          = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden             = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState          = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
	ErrInsufficientStock     = NewDomainError("INSUFFICIENT_STOCK", "Insufficient stock available")
	ErrInsufficientBalance   = NewDomainError("INSUFFICIENT_BALANCE", "Insufficient balance available")
	ErrTotalMismatch         = NewDomainError("TOTAL_MISMATCH", "Order total does not match current prices")
	ErrReuploadWindowExpired = NewDomainError("REUPLOAD_WINDOW_EXPIRED", "Delivery proof can no longer be replaced")
	ErrDuplicateRequest      = NewDomainError("DUPLICATE_REQUEST", "Request with this idempotency key was already submitted")
	ErrPaymentIntentUsed     = NewDomainError("INVALID_PAYMENT_INTENT", "Payment intent was already used for another order")
)
