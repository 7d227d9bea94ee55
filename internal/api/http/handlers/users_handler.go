package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/user-service/internal/api/dto"
	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/service"
)

// UsersHandler exposes user management endpoints.
type UsersHandler struct {
	users     *service.UserService
	validator *RequestValidator
}

// NewUsersHandler constructs handler.
func NewUsersHandler(userService *service.UserService, validator *RequestValidator) *UsersHandler {
	return &UsersHandler{users: userService, validator: validator}
}

// List handles GET /api/users.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	views, err := h.users.List(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("Users retrieved", dto.NewUserResponses(views)))
}

// Get handles GET /api/users/:id.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	view, err := h.users.Get(c.UserContext(), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("User retrieved", dto.NewUserResponse(*view)))
}

// Create handles POST /api/users.
func (h *UsersHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.users.Create(c.UserContext(), actorName(c), req.ToCreateInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(dto.OK("User created", dto.NewUserResponse(*view)))
}

// Update handles PUT /api/users/:id.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	var req dto.UpdateUserRequest
	if err := h.validator.Bind(c, &req); err != nil {
		return err
	}
	view, err := h.users.Update(c.UserContext(), actorName(c), id, req.ToUpdateInput())
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("User updated", dto.NewUserResponse(*view)))
}

// Delete handles DELETE /api/users/:id.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	if err := h.users.Delete(c.UserContext(), actorName(c), id); err != nil {
		return err
	}
	return c.JSON(dto.OK("User deleted", nil))
}

// Restore handles POST /api/users/:id/restore.
func (h *UsersHandler) Restore(c *fiber.Ctx) error {
	id, err := parseID(c)
	if err != nil {
		return err
	}
	view, err := h.users.Restore(c.UserContext(), actorName(c), id)
	if err != nil {
		return err
	}
	return c.JSON(dto.OK("User restored", dto.NewUserResponse(*view)))
}

func actorName(c *fiber.Ctx) string {
	principal, ok := auth.PrincipalFromContext(c.UserContext())
	if !ok {
		return ""
	}
	return principal.Username
}
