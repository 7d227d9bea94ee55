package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const (
	// MinSigningKeyLength is the minimum HMAC key size in bytes.
	MinSigningKeyLength = 32
	// MinTokenTTL is the shortest token lifetime accepted.
	MinTokenTTL = time.Minute
)

var (
	ErrSigningKeyTooShort = fmt.Errorf("signing key must be at least %d bytes", MinSigningKeyLength)
	ErrTokenTTLTooShort   = fmt.Errorf("token ttl must be at least %s", MinTokenTTL)
	// ErrTokenDecode wraps every failure to parse or verify a token.
	ErrTokenDecode = errors.New("token decode failed")
)

// TokenConfig configures a TokenManager.
type TokenConfig struct {
	Secret   string
	TTL      time.Duration
	Issuer   string
	Audience string
}

// TokenManager handles issuing and validating JWT tokens.
type TokenManager struct {
	secret   []byte
	ttl      time.Duration
	issuer   string
	audience string
	now      func() time.Time
	parser   *jwt.Parser
}

// TokenOption customises a TokenManager.
type TokenOption func(*TokenManager)

// WithClock overrides the time source used for issuing and expiry checks.
func WithClock(now func() time.Time) TokenOption {
	return func(tm *TokenManager) {
		tm.now = now
	}
}

// NewTokenManager builds a new manager.
func NewTokenManager(cfg TokenConfig, opts ...TokenOption) (*TokenManager, error) {
	if len(cfg.Secret) < MinSigningKeyLength {
		return nil, ErrSigningKeyTooShort
	}
	if cfg.TTL < MinTokenTTL {
		return nil, ErrTokenTTLTooShort
	}

	tm := &TokenManager{
		secret:   []byte(cfg.Secret),
		ttl:      cfg.TTL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		now:      time.Now,
		// Expiry is checked by Validate, not by the parser.
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
	for _, opt := range opts {
		opt(tm)
	}
	return tm, nil
}

// TTL returns the lifetime applied to issued tokens.
func (tm *TokenManager) TTL() time.Duration {
	return tm.ttl
}

// RoleList is the roles claim. It decodes from an array, a single string or
// nothing at all.
type RoleList []string

// UnmarshalJSON accepts both the array encoding and the legacy bare-string one.
// Any other shape decodes to an empty list.
func (r *RoleList) UnmarshalJSON(data []byte) error {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	switch v := raw.(type) {
	case string:
		*r = RoleList{v}
	case []any:
		roles := make(RoleList, 0, len(v))
		for _, item := range v {
			switch role := item.(type) {
			case nil:
			case string:
				roles = append(roles, role)
			default:
				roles = append(roles, fmt.Sprint(role))
			}
		}
		*r = roles
	default:
		*r = nil
	}
	return nil
}

// Claims describes JWT payload.
type Claims struct {
	// omitzero drops a nil list but keeps an explicit empty one.
	Roles RoleList `json:"roles,omitzero"`
	jwt.RegisteredClaims
}

// RoleNames returns the roles claim as a non-nil slice.
func (c *Claims) RoleNames() []string {
	if len(c.Roles) == 0 {
		return []string{}
	}
	out := make([]string, len(c.Roles))
	copy(out, c.Roles)
	return out
}

// GenerateToken builds and signs a JWT for username. A nil roles slice leaves
// the roles claim out; an empty one is encoded as [].
func (tm *TokenManager) GenerateToken(username string, roles []string) (string, time.Time, error) {
	issuedAt := tm.now()
	expiresAt := issuedAt.Add(tm.ttl)

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   username,
			Issuer:    tm.issuer,
			Audience:  jwt.ClaimStrings{tm.audience},
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	if roles != nil {
		claims.Roles = append(RoleList{}, roles...)
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(tm.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return tokenString, expiresAt, nil
}

// ParseToken verifies the signature and returns the claims. It does not check
// expiry.
func (tm *TokenManager) ParseToken(tokenStr string) (*Claims, error) {
	parsed, err := tm.parser.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, errors.New("unexpected signing method")
		}
		return tm.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenDecode, err)
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid token claims", ErrTokenDecode)
	}
	return claims, nil
}

// Validate reports whether the token verifies and has not expired.
func (tm *TokenManager) Validate(tokenStr string) bool {
	_, ok := tm.validClaims(tokenStr)
	return ok
}

// ValidateFor is Validate plus a check that the token was issued to username.
func (tm *TokenManager) ValidateFor(tokenStr, username string) bool {
	claims, ok := tm.validClaims(tokenStr)
	return ok && claims.Subject == username
}

// ExtractUsername returns the subject of a token.
func (tm *TokenManager) ExtractUsername(tokenStr string) (string, error) {
	claims, err := tm.ParseToken(tokenStr)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractRoles returns the roles carried by a token, empty when the claim is
// absent.
func (tm *TokenManager) ExtractRoles(tokenStr string) ([]string, error) {
	claims, err := tm.ParseToken(tokenStr)
	if err != nil {
		return nil, err
	}
	return claims.RoleNames(), nil
}

func (tm *TokenManager) validClaims(tokenStr string) (*Claims, bool) {
	if tokenStr == "" {
		return nil, false
	}
	claims, err := tm.ParseToken(tokenStr)
	if err != nil {
		return nil, false
	}
	if claims.ExpiresAt == nil || !tm.now().Before(claims.ExpiresAt.Time) {
		return nil, false
	}
	return claims, true
}
