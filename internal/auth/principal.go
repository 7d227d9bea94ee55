package auth

import "context"

type principalKey struct{}

// Principal represents the authenticated caller for a single request.
type Principal struct {
	Username string
	Roles    []string
}

// WithPrincipal returns a copy of ctx carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	roles := make([]string, len(p.Roles))
	copy(roles, p.Roles)
	return context.WithValue(ctx, principalKey{}, Principal{Username: p.Username, Roles: roles})
}

// PrincipalFromContext retrieves the authenticated caller.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	if ctx == nil {
		return Principal{}, false
	}
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
