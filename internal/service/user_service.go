package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
	"github.com/spec-kit/user-service/internal/repository"
	apperrors "github.com/spec-kit/user-service/pkg/util/errorutil"
)

// UserService manages user accounts and their role assignments.
type UserService struct {
	users      repository.UserRepository
	roles      repository.RoleRepository
	dispatcher events.Dispatcher
	logger     *zap.Logger
	bcryptCost int
}

// UserDependencies encapsulates repositories required for user management.
type UserDependencies struct {
	UserRepo   repository.UserRepository
	RoleRepo   repository.RoleRepository
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// CreateUserInput carries the fields for a new account. Roles are role names;
// when empty the user gets domain.RoleUser.
type CreateUserInput struct {
	Username string
	Email    string
	Password string
	Enabled  *bool
	Roles    []string
}

// UpdateUserInput carries replacement values for an account. A nil or empty
// Password keeps the current one.
type UpdateUserInput struct {
	Username string
	Email    string
	Password *string
	Enabled  *bool
}

// UserView is a user together with its role names.
type UserView struct {
	User  domain.User
	Roles []string
}

// NewUserService constructs the service.
func NewUserService(cfg config.Config, deps UserDependencies) *UserService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UserService{
		users:      deps.UserRepo,
		roles:      deps.RoleRepo,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		bcryptCost: cfg.Auth.BcryptCost,
	}
}

// Create registers a new user.
func (s *UserService) Create(ctx context.Context, actor string, in CreateUserInput) (*UserView, error) {
	if err := checkPassword(in.Password); err != nil {
		return nil, err
	}
	email := normalizeEmail(in.Email)
	if err := s.ensureUnique(ctx, in.Username, email); err != nil {
		return nil, err
	}

	roleNames := in.Roles
	if len(roleNames) == 0 {
		roleNames = []string{domain.RoleUser}
	}
	roleIDs := make([]int64, 0, len(roleNames))
	for _, name := range roleNames {
		role, err := s.roles.GetByName(ctx, name)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.NewValidationError("unknown role", map[string]any{"roles": name})
			}
			return nil, apperrors.MapError(err)
		}
		roleIDs = append(roleIDs, role.ID)
	}

	hash, err := auth.HashPassword(in.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &domain.User{
		Username:     in.Username,
		Email:        email,
		PasswordHash: hash,
		Enabled:      in.Enabled == nil || *in.Enabled,
	}
	if err := s.users.Create(ctx, user, roleIDs); err != nil {
		return nil, apperrors.MapError(err)
	}

	view, err := s.view(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publishUserEvent(ctx, events.EventUserCreated, actor, view)
	return view, nil
}

// Get returns a non-deleted user.
func (s *UserService) Get(ctx context.Context, id int64) (*UserView, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userLookupError(err, id)
	}
	return s.view(ctx, user)
}

// List returns every non-deleted user ordered by id.
func (s *UserService) List(ctx context.Context) ([]UserView, error) {
	users, err := s.users.List(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	out := make([]UserView, 0, len(users))
	for i := range users {
		view, err := s.view(ctx, &users[i])
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	return out, nil
}

// Update replaces username, email and enabled flag and optionally the password.
func (s *UserService) Update(ctx context.Context, actor string, id int64, in UpdateUserInput) (*UserView, error) {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return nil, userLookupError(err, id)
	}

	// Only changed values can collide with another account.
	var newUsername, newEmail string
	if in.Username != "" && in.Username != user.Username {
		newUsername = in.Username
	}
	if email := normalizeEmail(in.Email); email != "" && email != user.Email {
		newEmail = email
	}
	if err := s.ensureUnique(ctx, newUsername, newEmail); err != nil {
		return nil, err
	}
	if newUsername != "" {
		user.Username = newUsername
	}
	if newEmail != "" {
		user.Email = newEmail
	}

	if in.Password != nil && *in.Password != "" {
		if err := checkPassword(*in.Password); err != nil {
			return nil, err
		}
		hash, err := auth.HashPassword(*in.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		user.PasswordHash = hash
	}
	if in.Enabled != nil {
		user.Enabled = *in.Enabled
	}

	if err := s.users.Update(ctx, user); err != nil {
		return nil, userLookupError(err, id)
	}

	view, err := s.view(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publishUserEvent(ctx, events.EventUserUpdated, actor, view)
	return view, nil
}

// Delete soft deletes a user.
func (s *UserService) Delete(ctx context.Context, actor string, id int64) error {
	user, err := s.users.GetByID(ctx, id)
	if err != nil {
		return userLookupError(err, id)
	}
	if err := s.users.SoftDelete(ctx, id); err != nil {
		return userLookupError(err, id)
	}
	s.publishUserEvent(ctx, events.EventUserDeleted, actor, &UserView{User: *user})
	return nil
}

// Restore reverses a soft delete.
func (s *UserService) Restore(ctx context.Context, actor string, id int64) (*UserView, error) {
	user, err := s.users.GetByIDIncludingDeleted(ctx, id)
	if err != nil {
		return nil, userLookupError(err, id)
	}
	if !user.IsDeleted() {
		return nil, apperrors.NewBadRequest("user is not deleted")
	}
	if err := s.ensureUnique(ctx, user.Username, user.Email); err != nil {
		return nil, err
	}
	if err := s.users.Restore(ctx, id); err != nil {
		return nil, userLookupError(err, id)
	}
	user.DeletedAt = nil

	view, err := s.view(ctx, user)
	if err != nil {
		return nil, err
	}
	s.publishUserEvent(ctx, events.EventUserRestored, actor, view)
	return view, nil
}

// ensureUnique checks non-empty username and email against active users.
func (s *UserService) ensureUnique(ctx context.Context, username, email string) error {
	if username != "" {
		exists, err := s.users.ExistsByUsername(ctx, username)
		if err != nil {
			return apperrors.MapError(err)
		}
		if exists {
			return apperrors.NewConflict("username already exists", map[string]any{"username": username})
		}
	}
	if email != "" {
		exists, err := s.users.ExistsByEmail(ctx, email)
		if err != nil {
			return apperrors.MapError(err)
		}
		if exists {
			return apperrors.NewConflict("email already exists", map[string]any{"email": email})
		}
	}
	return nil
}

func (s *UserService) view(ctx context.Context, user *domain.User) (*UserView, error) {
	roles, err := s.roles.NamesForUser(ctx, user.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if roles == nil {
		roles = []string{}
	}
	return &UserView{User: *user, Roles: roles}, nil
}

func (s *UserService) publishUserEvent(ctx context.Context, eventType events.EventType, actor string, view *UserView) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    eventType,
		Subject: view.User.Username,
		Actor:   actor,
		Payload: events.UserChangedPayload{
			UserID: view.User.ID,
			Email:  view.User.Email,
			Roles:  view.Roles,
		},
	})
}

// normalizeEmail lower-cases addresses so stored values and the unique index
// agree on equality.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func checkPassword(password string) error {
	if err := auth.CheckPasswordStrength(password); err != nil {
		return apperrors.NewValidationError("password does not meet strength requirements",
			map[string]any{"password": strings.TrimPrefix(err.Error(), auth.ErrWeakPassword.Error()+": ")})
	}
	return nil
}

func userLookupError(err error, id int64) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperrors.NewNotFound("user", map[string]any{"id": id})
	}
	return apperrors.MapError(err)
}
