package http

import (
	"fmt"
	"net/http"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/api/http/handlers"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/domain"
)

const groupUsers = "users"

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health         *handlers.HealthHandler
	Auth           *handlers.AuthHandler
	Users          *handlers.UsersHandler
	System         *handlers.SystemHandler
	Authentication *auth.AuthenticationFilter
	Logger         *zap.Logger
}

type endpoint struct {
	method   string
	path     string
	group    string
	requires *auth.Requirement
	handler  fiber.Handler
}

func adminOnly() *auth.Requirement {
	req := auth.RequireAny(domain.RoleAdmin)
	return &req
}

func endpoints(cfg RouteConfig) []endpoint {
	return []endpoint{
		{method: http.MethodGet, path: "/health/live", handler: cfg.Health.Live},
		{method: http.MethodGet, path: "/health/ready", handler: cfg.Health.Ready},
		{method: http.MethodGet, path: "/info", handler: cfg.Health.Info},

		{method: http.MethodPost, path: "/api/auth/login", handler: cfg.Auth.Login},
		{method: http.MethodGet, path: "/api/auth/validate", handler: cfg.Auth.Validate},

		{method: http.MethodGet, path: "/api/protected", handler: cfg.System.Protected},
		{method: http.MethodGet, path: "/api/system-info", handler: cfg.System.SystemInfo},
		{method: http.MethodGet, path: "/metrics", requires: adminOnly(), handler: cfg.System.Metrics},

		{method: http.MethodGet, path: "/api/users", group: groupUsers, handler: cfg.Users.List},
		{method: http.MethodGet, path: "/api/users/:id", group: groupUsers, handler: cfg.Users.Get},
		{method: http.MethodPost, path: "/api/users", group: groupUsers, requires: adminOnly(), handler: cfg.Users.Create},
		{method: http.MethodPut, path: "/api/users/:id", group: groupUsers, handler: cfg.Users.Update},
		{method: http.MethodDelete, path: "/api/users/:id", group: groupUsers, requires: adminOnly(), handler: cfg.Users.Delete},
		{method: http.MethodPost, path: "/api/users/:id/restore", group: groupUsers, requires: adminOnly(), handler: cfg.Users.Restore},
	}
}

// RegisterRoutes wires HTTP routes behind the authentication and
// authorization filters and returns the role requirement registry.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) (*auth.Registry, error) {
	routes := endpoints(cfg)

	builder := auth.NewRegistryBuilder()
	builder.DeclareGroup(groupUsers, auth.RequireAny(domain.RoleAdmin, domain.RoleModerator))
	for _, e := range routes {
		if err := builder.Register(auth.Operation(e.method, e.path), e.group, e.requires); err != nil {
			return nil, fmt.Errorf("register %s %s: %w", e.method, e.path, err)
		}
	}
	registry := builder.Build()
	authz := auth.NewAuthorizationFilter(registry, cfg.Logger)

	app.Use(cfg.Authentication.Handle)
	for _, e := range routes {
		app.Add(e.method, e.path, authz.Handle, e.handler)
	}
	return registry, nil
}
