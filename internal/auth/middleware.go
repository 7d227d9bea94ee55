package auth

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

const bearerPrefix = "Bearer "

// TokenValidator is the subset of TokenManager the filters depend on.
type TokenValidator interface {
	Validate(token string) bool
	ExtractUsername(token string) (string, error)
	ExtractRoles(token string) ([]string, error)
}

// AuthenticationFilter validates bearer tokens and attaches the principal to
// the request context.
type AuthenticationFilter struct {
	tokens      TokenValidator
	publicPaths []string
	logger      *zap.Logger
}

// NewAuthenticationFilter constructs middleware. Requests whose path starts
// with one of publicPaths bypass authentication.
func NewAuthenticationFilter(tokens TokenValidator, publicPaths []string, logger *zap.Logger) *AuthenticationFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthenticationFilter{
		tokens:      tokens,
		publicPaths: append([]string(nil), publicPaths...),
		logger:      logger,
	}
}

// Handle enforces authentication for protected routes.
func (f *AuthenticationFilter) Handle(c *fiber.Ctx) error {
	path := c.Path()
	if f.IsPublicPath(path) {
		return c.Next()
	}

	token, ok := BearerToken(c.Get(fiber.HeaderAuthorization))
	if !ok {
		f.logger.Warn("rejected request without bearer token", zap.String("path", path))
		return writeFilterError(c, http.StatusUnauthorized, "Missing or invalid Authorization header")
	}

	if !f.tokens.Validate(token) {
		f.logger.Warn("rejected request with invalid token", zap.String("path", path))
		return writeFilterError(c, http.StatusUnauthorized, "Invalid or expired token")
	}

	username, err := f.tokens.ExtractUsername(token)
	if err != nil {
		return writeFilterError(c, http.StatusUnauthorized, "Invalid or expired token")
	}
	roles, err := f.tokens.ExtractRoles(token)
	if err != nil {
		return writeFilterError(c, http.StatusUnauthorized, "Invalid or expired token")
	}

	c.SetUserContext(WithPrincipal(c.UserContext(), Principal{Username: username, Roles: roles}))
	return c.Next()
}

// IsPublicPath reports whether path is served without authentication.
func (f *AuthenticationFilter) IsPublicPath(path string) bool {
	for _, prefix := range f.publicPaths {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	return false
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, bool) {
	if !strings.HasPrefix(header, bearerPrefix) {
		return "", false
	}
	token := strings.TrimSpace(header[len(bearerPrefix):])
	if token == "" {
		return "", false
	}
	return token, true
}

// writeFilterError ends the chain with the standard error body.
func writeFilterError(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(apperrors.NewErrorBody(status, message, c.Path()))
}
