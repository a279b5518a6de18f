package identity

import (
	"github.com/artisanmarket/backend/internal/domain/shared"
)

// Aggregate type constant for User
const AggregateTypeUser = "User"

const EventTypeUserRegistered = "UserRegistered"

// UserRegisteredEvent is published when an account is created
type UserRegisteredEvent struct {
	shared.BaseDomainEvent
	Email string `json:"email"`
	Role  Role   `json:"role"`
}

// NewUserRegisteredEvent creates a new UserRegisteredEvent
func NewUserRegisteredEvent(user *User) *UserRegisteredEvent {
	return &UserRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeUserRegistered, AggregateTypeUser, user.ID),
		Email:           user.Email,
		Role:            user.Role,
	}
}
