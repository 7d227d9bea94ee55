package handlers

import (
	"errors"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/service"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

const invalidCredentialsMessage = "Invalid username or password"

// AuthHandler exposes login and token inspection endpoints.
type AuthHandler struct {
	auth      *service.AuthService
	validator *RequestValidator
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, validator *RequestValidator) *AuthHandler {
	return &AuthHandler{auth: authService, validator: validator}
}

// Login handles POST /api/auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}

	result, err := h.auth.Login(c.UserContext(), req.Username, req.Password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		return c.Status(http.StatusUnauthorized).JSON(dto.LoginResponse{Message: invalidCredentialsMessage})
	case errors.Is(err, service.ErrTooManyAttempts):
		return apperrors.NewTooManyRequests("Too many failed login attempts, try again later")
	case err != nil:
		return err
	}

	return c.JSON(dto.LoginResponse{
		Success:   true,
		Token:     result.Token,
		Type:      result.TokenType,
		Username:  result.Username,
		ExpiresAt: &result.ExpiresAt,
		Message:   "Login successful",
	})
}

// Validate handles GET /api/auth/validate. It always answers 200.
func (h *AuthHandler) Validate(c *fiber.Ctx) error {
	token, ok := auth.BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		return c.JSON(dto.TokenValidationResponse{Message: "Missing or invalid Authorization header"})
	}

	info := h.auth.InspectToken(token)
	if !info.Valid {
		return c.JSON(dto.TokenValidationResponse{Message: "Invalid or expired token"})
	}
	return c.JSON(dto.TokenValidationResponse{
		Valid:    true,
		Username: info.Username,
		Roles:    info.Roles,
		Message:  "Token is valid",
	})
}
