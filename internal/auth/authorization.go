package auth

import (
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// AuthorizationFilter enforces the role requirement registered for the
// matched route. It must be mounted per route, after AuthenticationFilter.
type AuthorizationFilter struct {
	registry *Registry
	logger   *zap.Logger
}

// NewAuthorizationFilter constructs the filter over a built registry.
func NewAuthorizationFilter(registry *Registry, logger *zap.Logger) *AuthorizationFilter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthorizationFilter{registry: registry, logger: logger}
}

// Handle permits or rejects the request with 403. Any failure to resolve the
// operation denies access.
func (f *AuthorizationFilter) Handle(c *fiber.Ctx) error {
	route := c.Route()
	if route == nil {
		return f.deny(c, "", "route could not be resolved")
	}
	id := Operation(route.Method, route.Path)

	req, err := f.registry.Lookup(id)
	if err != nil {
		f.logger.Error("authorization lookup failed", zap.String("operation", string(id)), zap.Error(err))
		return f.deny(c, id, "route could not be resolved")
	}
	if req.IsNone() {
		return c.Next()
	}

	principal, ok := PrincipalFromContext(c.UserContext())
	if !ok || len(principal.Roles) == 0 {
		return f.deny(c, id, "no roles granted")
	}
	if !req.Allows(principal.Roles) {
		f.logger.Warn("insufficient role",
			zap.String("operation", string(id)),
			zap.String("username", principal.Username),
			zap.Strings("roles", principal.Roles),
			zap.Stringer("required", req))
		return f.deny(c, id, "insufficient role")
	}
	return c.Next()
}

func (f *AuthorizationFilter) deny(c *fiber.Ctx, id OperationID, reason string) error {
	f.logger.Debug("access denied", zap.String("operation", string(id)), zap.String("reason", reason))
	return writeFilterError(c, http.StatusForbidden, "Access denied: "+reason)
}
