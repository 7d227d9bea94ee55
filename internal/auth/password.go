package auth

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password accepted by CheckPasswordStrength.
const MinPasswordLength = 8

// PasswordSymbols is the fixed set of symbols a strong password must draw from.
const PasswordSymbols = "@$!%*?&"

// ErrWeakPassword is returned when a password does not satisfy the strength policy.
var ErrWeakPassword = errors.New("weak password")

// HashPassword hashes a plaintext password with configured cost.
func HashPassword(password string, cost int) (string, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// ComparePassword verifies a password against its hashed value.
func ComparePassword(hashed, plain string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain))
}

// VerifyPassword reports whether plain matches the stored bcrypt hash.
func VerifyPassword(plain, hashed string) bool {
	return ComparePassword(hashed, plain) == nil
}

// CheckPasswordStrength enforces the password policy: at least MinPasswordLength
// characters with a lowercase letter, an uppercase letter, a digit and one of
// PasswordSymbols, and nothing outside those classes.
func CheckPasswordStrength(password string) error {
	if utf8.RuneCountInString(password) < MinPasswordLength {
		return fmt.Errorf("%w: must be at least %d characters long", ErrWeakPassword, MinPasswordLength)
	}

	var lower, upper, digit, symbol bool
	for _, r := range password {
		switch {
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		default:
			return fmt.Errorf("%w: contains unsupported character %q", ErrWeakPassword, r)
		}
	}
	if !lower || !upper || !digit || !symbol {
		return fmt.Errorf("%w: must contain at least one uppercase letter, one lowercase letter, one digit, and one special character (%s)",
			ErrWeakPassword, PasswordSymbols)
	}
	return nil
}
