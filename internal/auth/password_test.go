package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashPasswordSaltsEveryCall(t *testing.T) {
	first, err := HashPassword("Abc123!@", bcrypt.MinCost)
	require.NoError(t, err)
	second, err := HashPassword("Abc123!@", bcrypt.MinCost)
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
	assert.True(t, VerifyPassword("Abc123!@", first))
	assert.True(t, VerifyPassword("Abc123!@", second))
}

func TestVerifyPassword(t *testing.T) {
	for _, plain := range []string{"x", "hunter2", "Abc123!@", "pässwörd with spaces"} {
		hashed, err := HashPassword(plain, bcrypt.MinCost)
		require.NoError(t, err)
		assert.True(t, VerifyPassword(plain, hashed), plain)
	}

	other, err := HashPassword("something-else", bcrypt.MinCost)
	require.NoError(t, err)
	assert.False(t, VerifyPassword("Abc123!@", other))
	assert.False(t, VerifyPassword("Abc123!@", "not-a-bcrypt-hash"))
}

func TestHashPasswordFallsBackToDefaultCost(t *testing.T) {
	hashed, err := HashPassword("Abc123!@", 0)
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hashed))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}

func TestCheckPasswordStrength(t *testing.T) {
	cases := []struct {
		password string
		ok       bool
	}{
		{"Abc123!@", true},
		{"Str0ng&Secure", true},
		{"abc12345", false},
		{"ABC123!@", false},
		{"Abcdefg!", false},
		{"Abc12345", false},
		{"Ab1!", false},
		{"Abc123!@#", false},
		{"", false},
	}

	for _, tc := range cases {
		err := CheckPasswordStrength(tc.password)
		if tc.ok {
			assert.NoError(t, err, tc.password)
			continue
		}
		assert.ErrorIs(t, err, ErrWeakPassword, tc.password)
	}
}
