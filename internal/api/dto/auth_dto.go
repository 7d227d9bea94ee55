package dto

import "time"

// LoginRequest payload for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse is returned by the login endpoint, successful or not.
type LoginResponse struct {
	Success   bool       `json:"success"`
	Token     string     `json:"token,omitempty"`
	Type      string     `json:"type,omitempty"`
	Username  string     `json:"username,omitempty"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
	Message   string     `json:"message,omitempty"`
}

// TokenValidationResponse reports the outcome of GET /api/auth/validate.
type TokenValidationResponse struct {
	Valid    bool     `json:"valid"`
	Username string   `json:"username,omitempty"`
	Roles    []string `json:"roles,omitempty"`
	Message  string   `json:"message,omitempty"`
}

// PrincipalResponse describes the authenticated caller.
type PrincipalResponse struct {
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
}

// APIResponse wraps successful payloads.
type APIResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message,omitempty"`
	Data      any       `json:"data,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// OK builds a successful APIResponse.
func OK(message string, data any) APIResponse {
	return APIResponse{Success: true, Message: message, Data: data, Timestamp: time.Now().UTC()}
}
