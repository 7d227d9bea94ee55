package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/user-service/internal/auth"
	"github.com/spec-kit/user-service/internal/config"
	"github.com/spec-kit/user-service/internal/domain"
	"github.com/spec-kit/user-service/internal/events"
)

// TokenTypeBearer is the token type reported to clients.
const TokenTypeBearer = "Bearer"

var (
	// ErrInvalidCredentials covers both unknown usernames and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrTooManyAttempts is returned while a username is throttled.
	ErrTooManyAttempts = errors.New("too many failed login attempts")
)

// CredentialFinder looks up enabled, non-deleted users by username and
// returns pgx.ErrNoRows when there is none.
type CredentialFinder interface {
	GetEnabledByUsername(ctx context.Context, username string) (*domain.User, error)
}

// RoleNameFinder returns the role names granted to a user.
type RoleNameFinder interface {
	NamesForUser(ctx context.Context, userID int64) ([]string, error)
}

// AuthService coordinates login and token inspection.
type AuthService struct {
	users      CredentialFinder
	roles      RoleNameFinder
	tokenMgr   *auth.TokenManager
	throttle   *LoginThrottle
	dispatcher events.Dispatcher
	logger     *zap.Logger

	// dummyHash is compared against when the username is unknown so both
	// failure paths pay the same bcrypt cost.
	dummyHash string
	verify    func(plain, hashed string) bool
}

// AuthDependencies encapsulates collaborators of the auth service.
type AuthDependencies struct {
	Users      CredentialFinder
	Roles      RoleNameFinder
	Throttle   *LoginThrottle
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// LoginResult is returned on successful authentication.
type LoginResult struct {
	Token     string
	TokenType string
	Username  string
	Roles     []string
	ExpiresAt time.Time
}

// TokenInfo describes the outcome of inspecting a token.
type TokenInfo struct {
	Valid    bool
	Username string
	Roles    []string
}

// NewAuthService builds the service and its token manager.
func NewAuthService(cfg config.Config, deps AuthDependencies, opts ...auth.TokenOption) (*AuthService, error) {
	tokenMgr, err := auth.NewTokenManager(auth.TokenConfig{
		Secret:   cfg.Auth.JWTSecret,
		TTL:      cfg.Auth.TokenTTL(),
		Issuer:   cfg.Auth.JWTIssuer,
		Audience: cfg.Auth.JWTAudience,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("token manager: %w", err)
	}

	dummyHash, err := auth.HashPassword(uuid.NewString(), cfg.Auth.BcryptCost)
	if err != nil {
		return nil, fmt.Errorf("dummy hash: %w", err)
	}

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &AuthService{
		users:      deps.Users,
		roles:      deps.Roles,
		tokenMgr:   tokenMgr,
		throttle:   deps.Throttle,
		dispatcher: deps.Dispatcher,
		logger:     logger,
		dummyHash:  dummyHash,
		verify:     auth.VerifyPassword,
	}, nil
}

// Login authenticates username/password and issues a token carrying the
// user's roles. Unknown users and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, username, password string) (*LoginResult, error) {
	if s.throttle.Blocked(ctx, username) {
		s.loginFailed(ctx, username, "throttled")
		return nil, ErrTooManyAttempts
	}

	user, err := s.users.GetEnabledByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			s.verify(password, s.dummyHash)
			s.logger.Warn("login attempt for unknown username", zap.String("username", username))
			s.throttle.RecordFailure(ctx, username)
			s.loginFailed(ctx, username, "unknown_user")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("find user: %w", err)
	}

	if !s.verify(password, user.PasswordHash) {
		s.logger.Warn("login attempt with invalid password", zap.String("username", username))
		s.throttle.RecordFailure(ctx, username)
		s.loginFailed(ctx, username, "invalid_password")
		return nil, ErrInvalidCredentials
	}

	roles, err := s.roles.NamesForUser(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("load roles: %w", err)
	}
	if roles == nil {
		roles = []string{}
	}

	token, exp, err := s.tokenMgr.GenerateToken(user.Username, roles)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	s.throttle.Reset(ctx, username)
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventLoginSucceeded,
		Subject: user.Username,
		Actor:   user.Username,
		Payload: events.LoginPayload{Roles: roles},
	})
	s.logger.Info("login succeeded", zap.String("username", user.Username), zap.Int("roles", len(roles)))

	return &LoginResult{
		Token:     token,
		TokenType: TokenTypeBearer,
		Username:  user.Username,
		Roles:     roles,
		ExpiresAt: exp,
	}, nil
}

// InspectToken reports whether token is valid and, if so, whom it was issued to.
func (s *AuthService) InspectToken(token string) TokenInfo {
	if !s.tokenMgr.Validate(token) {
		return TokenInfo{}
	}
	username, err := s.tokenMgr.ExtractUsername(token)
	if err != nil {
		return TokenInfo{}
	}
	roles, err := s.tokenMgr.ExtractRoles(token)
	if err != nil {
		return TokenInfo{}
	}
	return TokenInfo{Valid: true, Username: username, Roles: roles}
}

// TokenManager exposes the underlying token manager for middleware usage.
func (s *AuthService) TokenManager() *auth.TokenManager {
	return s.tokenMgr
}

func (s *AuthService) loginFailed(ctx context.Context, username, reason string) {
	publish(ctx, s.dispatcher, s.logger, events.Event{
		Type:    events.EventLoginFailed,
		Subject: username,
		Payload: events.LoginPayload{Reason: reason},
	})
}
