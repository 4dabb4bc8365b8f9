package types

import "github.com/m-mizutani/goerr/v2"

// Role is the access level of a user account
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// AllRoles returns all valid roles
func AllRoles() []Role {
	return []Role{RoleUser, RoleAdmin}
}

// IsValid checks if the role is valid
func (r Role) IsValid() bool {
	switch r {
	case RoleUser, RoleAdmin:
		return true
	default:
		return false
	}
}

func (r Role) String() string {
	return string(r)
}

// ParseRole parses a string into a Role
func ParseRole(s string) (Role, error) {
	role := Role(s)
	if !role.IsValid() {
		return "", goerr.New("invalid role", goerr.V("role", s))
	}
	return role, nil
}

// NormalizeRole maps any requested role onto the closed set: "admin" stays
// admin, everything else (including empty) becomes user.
func NormalizeRole(s string) Role {
	if Role(s) == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}
