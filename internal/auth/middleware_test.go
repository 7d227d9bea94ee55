package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type filterHarness struct {
	app        *fiber.App
	tokens     *TokenManager
	authzCalls int
}

func newFilterHarness(t *testing.T) *filterHarness {
	t.Helper()
	h := &filterHarness{app: fiber.New(), tokens: newTestTokenManager(t)}

	allAB := RequireAll("A", "B")
	none := Requirement{}

	b := NewRegistryBuilder()
	b.DeclareGroup("reports", RequireAny("A", "B"))
	routes := []struct {
		path     string
		group    string
		requires *Requirement
		register bool
	}{
		{"/api/any", "reports", nil, true},
		{"/api/all", "reports", &allAB, true},
		{"/api/override", "reports", &none, true},
		{"/api/open", "", nil, true},
		{"/health/live", "", nil, true},
		{"/api/auth/login", "", nil, true},
		{"/api/unregistered", "", nil, false},
	}
	for _, r := range routes {
		if r.register {
			require.NoError(t, b.Register(Operation(http.MethodGet, r.path), r.group, r.requires))
		}
	}
	authz := NewAuthorizationFilter(b.Build(), nil)
	authn := NewAuthenticationFilter(h.tokens, []string{"/api/auth/login", "/health"}, nil)

	h.app.Use(authn.Handle)
	for _, r := range routes {
		h.app.Add(http.MethodGet, r.path, func(c *fiber.Ctx) error {
			h.authzCalls++
			return authz.Handle(c)
		}, echoPrincipal)
	}
	return h
}

func echoPrincipal(c *fiber.Ctx) error {
	p, ok := PrincipalFromContext(c.UserContext())
	return c.JSON(fiber.Map{"authenticated": ok, "username": p.Username, "roles": p.Roles})
}

func (h *filterHarness) token(t *testing.T, roles ...string) string {
	t.Helper()
	token, _, err := h.tokens.GenerateToken("alice", roles)
	require.NoError(t, err)
	return token
}

func (h *filterHarness) get(t *testing.T, path, authorization string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	resp, err := h.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return resp, body
}

func TestAuthenticationPublicPathWithoutHeader(t *testing.T) {
	h := newFilterHarness(t)

	for _, path := range []string{"/health/live", "/api/auth/login"} {
		resp, body := h.get(t, path, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode, path)
		assert.Equal(t, false, body["authenticated"], path)
	}
}

func TestAuthenticationRejectsWrongScheme(t *testing.T) {
	h := newFilterHarness(t)

	resp, body := h.get(t, "/api/open", "Basic xyz")

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, 0, h.authzCalls, "authorization must not run after a 401")
	assert.NotContains(t, body, "authenticated")
	assert.Equal(t, float64(http.StatusUnauthorized), body["status"])
	assert.Equal(t, "Unauthorized", body["error"])
	assert.Equal(t, "/api/open", body["path"])
	assert.Equal(t, false, body["success"])
	assert.NotEmpty(t, body["message"])
	assert.NotEmpty(t, body["timestamp"])
}

func TestAuthenticationRejectsBadTokens(t *testing.T) {
	h := newFilterHarness(t)

	past := time.Now().Add(-3 * time.Hour)
	expired, _, err := newTestTokenManager(t, WithClock(func() time.Time { return past })).GenerateToken("alice", []string{"A"})
	require.NoError(t, err)

	for _, header := range []string{"", "Bearer", "Bearer ", "bearer " + h.token(t, "A"), "Bearer not-a-jwt", "Bearer " + expired} {
		resp, _ := h.get(t, "/api/open", header)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, header)
	}
	assert.Equal(t, 0, h.authzCalls)
}

func TestAuthenticationAttachesPrincipal(t *testing.T) {
	h := newFilterHarness(t)

	resp, body := h.get(t, "/api/open", "Bearer "+h.token(t))

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, true, body["authenticated"])
	assert.Equal(t, "alice", body["username"])
	assert.Equal(t, []any{}, body["roles"])
	assert.Equal(t, 1, h.authzCalls)
}

func TestAuthorizationAnyOf(t *testing.T) {
	h := newFilterHarness(t)

	resp, _ := h.get(t, "/api/any", "Bearer "+h.token(t, "B"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := h.get(t, "/api/any", "Bearer "+h.token(t, "C"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "Forbidden", body["error"])
	assert.Equal(t, "/api/any", body["path"])
}

func TestAuthorizationAllOf(t *testing.T) {
	h := newFilterHarness(t)

	resp, _ := h.get(t, "/api/all", "Bearer "+h.token(t, "A"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = h.get(t, "/api/all", "Bearer "+h.token(t, "A", "B", "C"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthorizationRejectsPrincipalWithoutRoles(t *testing.T) {
	h := newFilterHarness(t)

	resp, _ := h.get(t, "/api/any", "Bearer "+h.token(t, []string{}...))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	noClaim, _, err := h.tokens.GenerateToken("alice", nil)
	require.NoError(t, err)
	resp, _ = h.get(t, "/api/any", "Bearer "+noClaim)
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestAuthorizationMethodLevelOverride(t *testing.T) {
	h := newFilterHarness(t)

	resp, _ := h.get(t, "/api/override", "Bearer "+h.token(t, "Z"))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthorizationFailsClosedOnUnknownOperation(t *testing.T) {
	h := newFilterHarness(t)

	resp, body := h.get(t, "/api/unregistered", "Bearer "+h.token(t, "A", "B"))
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, float64(http.StatusForbidden), body["status"])
}

func TestBearerToken(t *testing.T) {
	token, ok := BearerToken("Bearer abc.def.ghi")
	assert.True(t, ok)
	assert.Equal(t, "abc.def.ghi", token)

	for _, header := range []string{"", "Bearer", "Bearer   ", "Basic abc", "Token abc"} {
		_, ok := BearerToken(header)
		assert.False(t, ok, header)
	}
}
