package handler

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/artisanmarket/backend/internal/domain/identity"
	"github.com/artisanmarket/backend/internal/domain/shared"
	"github.com/artisanmarket/backend/internal/infrastructure/logger"
	"github.com/artisanmarket/backend/internal/interfaces/http/dto"
	"github.com/artisanmarket/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var errNoUser = errors.New("user ID not found in context")

// StoreResolver finds the store a user owns
type StoreResolver interface {
	StoreOf(ctx context.Context, userID uuid.UUID) (uuid.UUID, error)
}

// BaseHandler provides common handler utilities
type BaseHandler struct{}

func getRequestID(c *gin.Context) string {
	if id := c.GetString(middleware.RequestIDKey); id != "" {
		return id
	}
	return c.GetHeader(middleware.RequestIDHeader)
}

// getUserID extracts the caller's ID from the JWT claims
func getUserID(c *gin.Context) (uuid.UUID, error) {
	raw := middleware.GetJWTUserID(c)
	if raw == "" {
		return uuid.Nil, errNoUser
	}
	return uuid.Parse(raw)
}

func getRole(c *gin.Context) identity.Role {
	return identity.Role(middleware.GetJWTRole(c))
}

// Success sends 200 with fields next to "success"
func (h *BaseHandler) Success(c *gin.Context, fields gin.H) {
	c.JSON(http.StatusOK, dto.NewSuccessResponse(fields))
}

// Created sends a 201 created response
func (h *BaseHandler) Created(c *gin.Context, fields gin.H) {
	c.JSON(http.StatusCreated, dto.NewSuccessResponse(fields))
}

// Message sends 200 with only a message
func (h *BaseHandler) Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, dto.NewMessageResponse(message))
}

// Error sends an error response with the given status code
func (h *BaseHandler) Error(c *gin.Context, statusCode int, code, message string) {
	c.JSON(statusCode, dto.NewErrorResponseWithRequestID(code, message, getRequestID(c)))
}

// BadRequest sends a 400 bad request response
func (h *BaseHandler) BadRequest(c *gin.Context, message string) {
	h.Error(c, http.StatusBadRequest, dto.ErrCodeBadRequest, message)
}

// Unauthorized sends a 401 unauthorized response
func (h *BaseHandler) Unauthorized(c *gin.Context, message string) {
	h.Error(c, http.StatusUnauthorized, dto.ErrCodeUnauthorized, message)
}

// InternalError sends a 500 internal server error response
func (h *BaseHandler) InternalError(c *gin.Context, message string) {
	h.Error(c, http.StatusInternalServerError, dto.ErrCodeInternal, message)
}

// HandleError converts service errors to HTTP responses. Domain errors keep
// their code; anything else is logged and hidden behind a 500.
func (h *BaseHandler) HandleError(c *gin.Context, err error) {
	if err == nil {
		return
	}

	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		h.Error(c, dto.GetDomainHTTPStatus(domainErr.Code), domainErr.Code, domainErr.Message)
		return
	}

	_ = c.Error(err)
	logger.GetGinLogger(c).Error("Unhandled error", zap.Error(err))
	h.InternalError(c, "An unexpected error occurred")
}

// BindJSON binds the request body, writing a 400 and returning false on failure
func (h *BaseHandler) BindJSON(c *gin.Context, req any) bool {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true
	}
	h.bindError(c, err)
	return false
}

// BindQuery binds query parameters, writing a 400 and returning false on failure
func (h *BaseHandler) BindQuery(c *gin.Context, req any) bool {
	err := c.ShouldBindQuery(req)
	if err == nil {
		return true
	}
	h.bindError(c, err)
	return false
}

func (h *BaseHandler) bindError(c *gin.Context, err error) {
	var validationErrs validator.ValidationErrors
	switch {
	case errors.As(err, &validationErrs):
		middleware.HandleValidationError(c, err)
	case errors.Is(err, io.EOF):
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Request body is required")
	default:
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidJSON, "Invalid request body")
	}
}

// ParseID parses the named UUID path parameter, writing a 400 on failure
func (h *BaseHandler) ParseID(c *gin.Context, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(param))
	if err != nil {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeInvalidID, "Invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

// CurrentUser returns the caller's ID, writing a 401 when it is missing
func (h *BaseHandler) CurrentUser(c *gin.Context) (uuid.UUID, bool) {
	id, err := getUserID(c)
	if err != nil {
		h.Unauthorized(c, "Not authorized, no token")
		return uuid.Nil, false
	}
	return id, true
}

// vendorIDOf returns the caller's store. The token's vendor claim is used when
// present; otherwise the store is looked up so a freshly opened store works
// before the client refreshes its token. A caller without a store gets nil.
func vendorIDOf(c *gin.Context, userID uuid.UUID, stores StoreResolver) (*uuid.UUID, error) {
	if raw := middleware.GetJWTVendorID(c); raw != "" {
		if id, err := uuid.Parse(raw); err == nil {
			return &id, nil
		}
	}
	role := getRole(c)
	if stores == nil || (role != identity.RoleVendor && role != identity.RoleAdmin) {
		return nil, nil
	}
	id, err := stores.StoreOf(c.Request.Context(), userID)
	if errors.Is(err, shared.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &id, nil
}
