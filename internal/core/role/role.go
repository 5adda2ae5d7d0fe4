// Package role defines the closed set of agent capability roles.
package role

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownRole is returned when a capability tag does not name a known role.
var ErrUnknownRole = errors.New("unknown role")

// Role is an agent capability tag. Routing and approval policy both key off
// this enum; it is never a free-text field.
type Role string

const (
	Frontend Role = "frontend"
	Backend  Role = "backend"
	DevOps   Role = "devops"
	Designer Role = "designer"
	Reviewer Role = "reviewer"
	Owner    Role = "owner"
)

// All lists every known role in stable order.
func All() []Role {
	return []Role{Frontend, Backend, DevOps, Designer, Reviewer, Owner}
}

// Parse converts a capability tag into a Role. Tags are case-insensitive and
// trimmed. Unknown tags fail with ErrUnknownRole.
func Parse(tag string) (Role, error) {
	r := Role(strings.ToLower(strings.TrimSpace(tag)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, tag)
	}
	return r, nil
}

// Valid reports whether r is a member of the closed role set.
func (r Role) Valid() bool {
	switch r {
	case Frontend, Backend, DevOps, Designer, Reviewer, Owner:
		return true
	}
	return false
}

func (r Role) String() string {
	return string(r)
}
