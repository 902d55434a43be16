// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package authz

import (
	"errors"
	"fmt"
)

// ErrAuthenticationRequired indicates the caller has no authenticated
// principal where one is required.
var ErrAuthenticationRequired = errors.New("authentication required")

// InsufficientRoleError indicates the principal's role sits below the
// required level in the hierarchy.
type InsufficientRoleError struct {
	Current  Role
	Required Role
}

func (e *InsufficientRoleError) Error() string {
	return fmt.Sprintf("insufficient role: have %q, need %q", e.Current, e.Required)
}

// AuthorizationError indicates a general policy denial.
type AuthorizationError struct {
	// Message describes the denied operation for the caller.
	Message string
	// Action is the attempted action token, when known.
	Action Action
}

func (e *AuthorizationError) Error() string {
	if e.Message != "" {
		return "authorization denied: " + e.Message
	}
	if e.Action != "" {
		return fmt.Sprintf("authorization denied for action %q", e.Action)
	}
	return "authorization denied"
}

// IsDenial reports whether err is any of the authorization denial types.
// Rate limiting is not a denial; it is surfaced as a response, not an error.
func IsDenial(err error) bool {
	if err == nil {
		return false
	}
	var insufficient *InsufficientRoleError
	var denied *AuthorizationError
	return errors.Is(err, ErrAuthenticationRequired) ||
		errors.As(err, &insufficient) ||
		errors.As(err, &denied)
}
