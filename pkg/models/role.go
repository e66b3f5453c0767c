package models

import (
	"fmt"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// Role is the sole axis of authorization in the console. The numeric values
// match the backend's person role enum.
type Role int

const (
	RoleNone    Role = 0
	RoleAdmin   Role = 1
	RoleManager Role = 2
	RoleUser    Role = 3
)

// ValidRoles contains all assignable roles in display order.
var ValidRoles = []Role{RoleAdmin, RoleManager, RoleUser}

// String returns the role name used by the auth endpoints ("Admin", ...).
func (r Role) String() string {
	switch r {
	case RoleAdmin:
		return "Admin"
	case RoleManager:
		return "Manager"
	case RoleUser:
		return "User"
	case RoleNone:
		return ""
	default:
		return fmt.Sprintf("Role %d", int(r))
	}
}

// IsValid reports whether r is one of the assignable roles.
func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleManager || r == RoleUser
}

// ParseRole accepts a role name (case-insensitive) or its numeric value.
func ParseRole(s string) (Role, error) {
	s = strings.TrimSpace(s)
	switch strings.ToLower(s) {
	case "admin":
		return RoleAdmin, nil
	case "manager":
		return RoleManager, nil
	case "user":
		return RoleUser, nil
	}
	n, err := strconv.Atoi(s)
	if err == nil && Role(n).IsValid() {
		return Role(n), nil
	}
	return RoleNone, fmt.Errorf("invalid role %q: must be one of Admin, Manager, User (or 1, 2, 3)", s)
}

// UnmarshalYAML accepts a role name or number, so bulk files can say
// "role: Manager".
func (r *Role) UnmarshalYAML(value *yaml.Node) error {
	role, err := ParseRole(value.Value)
	if err != nil {
		return fmt.Errorf("line %d: %w", value.Line, err)
	}
	*r = role
	return nil
}
