package auth

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownOperation is returned when an operation was never registered.
var ErrUnknownOperation = errors.New("unknown operation")

// MatchMode selects how required roles are combined.
type MatchMode int

const (
	// MatchAny is satisfied by at least one of the required roles.
	MatchAny MatchMode = iota
	// MatchAll requires every role.
	MatchAll
)

func (m MatchMode) String() string {
	if m == MatchAll {
		return "ALL"
	}
	return "ANY"
}

// Requirement is the access rule declared for an operation. The zero value
// requires nothing.
type Requirement struct {
	roles []string
	mode  MatchMode
}

// RequireAny is satisfied when the caller holds at least one of roles.
func RequireAny(roles ...string) Requirement {
	return newRequirement(MatchAny, roles)
}

// RequireAll is satisfied when the caller holds every one of roles.
func RequireAll(roles ...string) Requirement {
	return newRequirement(MatchAll, roles)
}

func newRequirement(mode MatchMode, roles []string) Requirement {
	seen := make(map[string]struct{}, len(roles))
	out := make([]string, 0, len(roles))
	for _, r := range roles {
		r = strings.TrimSpace(r)
		if r == "" {
			continue
		}
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		out = append(out, r)
	}
	return Requirement{roles: out, mode: mode}
}

// Roles returns a copy of the required roles.
func (r Requirement) Roles() []string {
	return append([]string(nil), r.roles...)
}

// Mode returns the match mode.
func (r Requirement) Mode() MatchMode {
	return r.mode
}

// IsNone reports whether the requirement lets every request through.
func (r Requirement) IsNone() bool {
	return len(r.roles) == 0
}

// Allows reports whether granted satisfies the requirement.
func (r Requirement) Allows(granted []string) bool {
	if r.IsNone() {
		return true
	}
	if len(granted) == 0 {
		return false
	}

	set := make(map[string]struct{}, len(granted))
	for _, g := range granted {
		set[g] = struct{}{}
	}
	for _, role := range r.roles {
		_, ok := set[role]
		if r.mode == MatchAny && ok {
			return true
		}
		if r.mode == MatchAll && !ok {
			return false
		}
	}
	return r.mode == MatchAll
}

func (r Requirement) String() string {
	if r.IsNone() {
		return "NONE"
	}
	return fmt.Sprintf("%s(%s)", r.mode, strings.Join(r.roles, ","))
}

// OperationID identifies a route as "METHOD /path/pattern".
type OperationID string

// Operation builds the identifier for a route.
func Operation(method, path string) OperationID {
	return OperationID(strings.ToUpper(method) + " " + path)
}

type operationDecl struct {
	group    string
	requires *Requirement
}

// RegistryBuilder collects role requirements while routes are registered.
type RegistryBuilder struct {
	groups     map[string]Requirement
	operations map[OperationID]operationDecl
}

// NewRegistryBuilder returns an empty builder.
func NewRegistryBuilder() *RegistryBuilder {
	return &RegistryBuilder{
		groups:     make(map[string]Requirement),
		operations: make(map[OperationID]operationDecl),
	}
}

// DeclareGroup sets the requirement shared by every operation in group unless
// the operation declares its own.
func (b *RegistryBuilder) DeclareGroup(group string, req Requirement) {
	b.groups[group] = req
}

// Register records an operation. requires may be nil, in which case the group
// requirement (if any) applies.
func (b *RegistryBuilder) Register(id OperationID, group string, requires *Requirement) error {
	if _, exists := b.operations[id]; exists {
		return fmt.Errorf("operation %q registered twice", id)
	}
	b.operations[id] = operationDecl{group: group, requires: requires}
	return nil
}

// Build resolves every operation's effective requirement. The returned
// registry is read-only.
func (b *RegistryBuilder) Build() *Registry {
	resolved := make(map[OperationID]Requirement, len(b.operations))
	for id, decl := range b.operations {
		switch {
		case decl.requires != nil:
			resolved[id] = *decl.requires
		case decl.group != "":
			resolved[id] = b.groups[decl.group]
		default:
			resolved[id] = Requirement{}
		}
	}
	return &Registry{operations: resolved}
}

// Registry maps operations to their effective requirement. Safe for
// concurrent reads.
type Registry struct {
	operations map[OperationID]Requirement
}

// Lookup returns the requirement for id.
func (r *Registry) Lookup(id OperationID) (Requirement, error) {
	if r == nil {
		return Requirement{}, ErrUnknownOperation
	}
	req, ok := r.operations[id]
	if !ok {
		return Requirement{}, fmt.Errorf("%w: %s", ErrUnknownOperation, id)
	}
	return req, nil
}

// Len returns the number of registered operations.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.operations)
}
