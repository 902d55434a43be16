// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package authz

// Role is one of the three fixed roles. The hierarchy is a closed
// enumeration: it is not extensible at runtime.
type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// roleLevels orders roles by privilege. A principal with level N may perform
// anything requiring level <= N.
var roleLevels = map[Role]int{
	RoleGuest: 0,
	RoleUser:  1,
	RoleAdmin: 2,
}

// Level returns the privilege level of the role, or -1 for unknown roles.
// Unknown roles deliberately rank below guest so a corrupted role claim can
// never satisfy a check.
func (r Role) Level() int {
	if level, ok := roleLevels[r]; ok {
		return level
	}
	return -1
}

// Valid reports whether r is a member of the closed enumeration.
func (r Role) Valid() bool {
	_, ok := roleLevels[r]
	return ok
}

// EnsureRequiredRole performs the coarse hierarchy check. An empty current
// role means no authenticated principal and fails with
// ErrAuthenticationRequired regardless of the required level.
func EnsureRequiredRole(current, required Role) error {
	if current == "" {
		return ErrAuthenticationRequired
	}
	if current.Level() < required.Level() {
		return &InsufficientRoleError{Current: current, Required: required}
	}
	return nil
}

// EffectiveRole collapses a role set into the single highest-privilege role
// an authenticated principal acts as. Any set containing "admin" maps to
// admin; every other authenticated principal is a user.
func EffectiveRole(roles []string) Role {
	for _, r := range roles {
		if Role(r) == RoleAdmin {
			return RoleAdmin
		}
	}
	return RoleUser
}
