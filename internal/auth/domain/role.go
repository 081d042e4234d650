package domain

import "fmt"

// Role is the closed set of authorization roles. Keeping it a typed constant
// pair (rather than free-form strings) lets authorization boundaries check it
// exhaustively.
type Role string

const (
	RoleUser  Role = "USER"
	RoleAdmin Role = "ADMIN"
)

// ParseRole validates a stored or submitted role string.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether the role is one of the closed enum values.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// AtLeast reports whether r satisfies a route's minimum role requirement.
// ADMIN satisfies everything; USER satisfies USER-level routes only.
func (r Role) AtLeast(minimum Role) bool {
	if r == RoleAdmin {
		return true
	}
	return r == minimum
}

func (r Role) String() string { return string(r) }
