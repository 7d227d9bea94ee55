package handlers

import (
	"runtime"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/observability"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// SystemHandler serves endpoints for authenticated callers that need no role.
type SystemHandler struct {
	version string
	metrics *observability.Metrics
	scrape  fiber.Handler
}

// NewSystemHandler constructs handler.
func NewSystemHandler(version string, metrics *observability.Metrics) *SystemHandler {
	return &SystemHandler{
		version: version,
		metrics: metrics,
		scrape:  adaptor.HTTPHandler(metrics.Handler()),
	}
}

// Protected handles GET /api/protected and echoes the caller.
func (h *SystemHandler) Protected(c *fiber.Ctx) error {
	principal, ok := auth.PrincipalFromContext(c.UserContext())
	if !ok {
		return apperrors.NewUnauthorized("authentication required")
	}
	roles := principal.Roles
	if roles == nil {
		roles = []string{}
	}
	return c.JSON(dto.OK("Access granted", dto.PrincipalResponse{
		Username: principal.Username,
		Roles:    roles,
	}))
}

// SystemInfo handles GET /api/system-info.
func (h *SystemHandler) SystemInfo(c *fiber.Ctx) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	return c.JSON(dto.OK("System information", fiber.Map{
		"version":    h.version,
		"goVersion":  runtime.Version(),
		"os":         runtime.GOOS,
		"arch":       runtime.GOARCH,
		"cpus":       runtime.NumCPU(),
		"goroutines": runtime.NumGoroutine(),
		"memory": fiber.Map{
			"allocBytes":      mem.Alloc,
			"totalAllocBytes": mem.TotalAlloc,
			"sysBytes":        mem.Sys,
			"numGC":           mem.NumGC,
		},
		"metrics": h.metrics.Snapshot(),
	}))
}

// Metrics handles GET /metrics in the Prometheus text format.
func (h *SystemHandler) Metrics(c *fiber.Ctx) error {
	return h.scrape(c)
}
