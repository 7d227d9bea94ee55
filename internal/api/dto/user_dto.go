package dto

import (
	"time"

	"github.com/spec-kit/user-service/internal/service"
)

// CreateUserRequest payload for new users.
type CreateUserRequest struct {
	Username string   `json:"username" validate:"required,min=3,max=50"`
	Email    string   `json:"email" validate:"required,email,max=100"`
	Password string   `json:"password" validate:"required,min=8,max=120"`
	Enabled  *bool    `json:"enabled"`
	Roles    []string `json:"roles" validate:"omitempty,dive,required"`
}

// UpdateUserRequest payload for user updates. Password is optional.
type UpdateUserRequest struct {
	Username string  `json:"username" validate:"required,min=3,max=50"`
	Email    string  `json:"email" validate:"required,email,max=100"`
	Password *string `json:"password" validate:"omitempty,max=120"`
	Enabled  *bool   `json:"enabled"`
}

// UserResponse is the public representation of a user.
type UserResponse struct {
	ID        int64      `json:"id"`
	Username  string     `json:"username"`
	Email     string     `json:"email"`
	Enabled   bool       `json:"enabled"`
	Roles     []string   `json:"roles"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
	DeletedAt *time.Time `json:"deletedAt,omitempty"`
}

// ToCreateInput converts the request for the service layer.
func (r CreateUserRequest) ToCreateInput() service.CreateUserInput {
	return service.CreateUserInput{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
		Enabled:  r.Enabled,
		Roles:    r.Roles,
	}
}

// ToUpdateInput converts the request for the service layer.
func (r UpdateUserRequest) ToUpdateInput() service.UpdateUserInput {
	return service.UpdateUserInput{
		Username: r.Username,
		Email:    r.Email,
		Password: r.Password,
		Enabled:  r.Enabled,
	}
}

// NewUserResponse maps a service view to its response.
func NewUserResponse(view service.UserView) UserResponse {
	roles := view.Roles
	if roles == nil {
		roles = []string{}
	}
	return UserResponse{
		ID:        view.User.ID,
		Username:  view.User.Username,
		Email:     view.User.Email,
		Enabled:   view.User.Enabled,
		Roles:     roles,
		CreatedAt: view.User.CreatedAt,
		UpdatedAt: view.User.UpdatedAt,
		DeletedAt: view.User.DeletedAt,
	}
}

// NewUserResponses maps a list of views.
func NewUserResponses(views []service.UserView) []UserResponse {
	out := make([]UserResponse, 0, len(views))
	for _, v := range views {
		out = append(out, NewUserResponse(v))
	}
	return out
}
