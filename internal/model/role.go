package model

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Role is an authority granted to a user.
type Role string

const (
	// RoleUser is granted to every registered account.
	RoleUser Role = "ROLE_USER"
	// RoleAdmin grants access to the administration endpoints.
	RoleAdmin Role = "ROLE_ADMIN"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	return r == RoleUser || r == RoleAdmin
}

// ParseRole converts a role name into a Role.
func ParseRole(name string) (Role, error) {
	r := Role(strings.TrimSpace(name))
	if !r.Valid() {
		return "", fmt.Errorf("unknown role %q", name)
	}
	return r, nil
}

// RoleSet is a duplicate-free set of roles. It is stored as a comma-joined
// column and carried in access tokens in the same form.
type RoleSet []Role

// NewRoleSet builds a set from roles, dropping duplicates and unknown values.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, 0, len(roles))
	for _, r := range roles {
		if r.Valid() && !set.Has(r) {
			set = append(set, r)
		}
	}
	return set
}

// ParseRoleSet parses a comma-joined list of role names. Unknown names are skipped.
func ParseRoleSet(joined string) RoleSet {
	if joined == "" {
		return RoleSet{}
	}
	parts := strings.Split(joined, ",")
	roles := make([]Role, 0, len(parts))
	for _, p := range parts {
		if r, err := ParseRole(p); err == nil {
			roles = append(roles, r)
		}
	}
	return NewRoleSet(roles...)
}

// Has reports whether the set contains r.
func (s RoleSet) Has(r Role) bool {
	for _, have := range s {
		if have == r {
			return true
		}
	}
	return false
}

// Names returns the role names in set order.
func (s RoleSet) Names() []string {
	names := make([]string, len(s))
	for i, r := range s {
		names[i] = string(r)
	}
	return names
}

func (s RoleSet) String() string {
	return strings.Join(s.Names(), ",")
}

// Value implements driver.Valuer.
func (s RoleSet) Value() (driver.Value, error) {
	return s.String(), nil
}

// Scan implements sql.Scanner.
func (s *RoleSet) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*s = RoleSet{}
	case string:
		*s = ParseRoleSet(v)
	case []byte:
		*s = ParseRoleSet(string(v))
	default:
		return fmt.Errorf("scan RoleSet: unsupported type %T", src)
	}
	return nil
}
