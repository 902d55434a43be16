// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

// Package secctx builds the immutable per-request security context: the
// resolved identity, tenant, effective role, client address and tracing IDs
// every downstream security decision reads from.
//
// Building the context may touch identity and tenant stores, so callers on
// the request path use BuildWithTimeout, which degrades to a guest context
// (with the failure recorded on the context itself) instead of failing the
// request when resolution is slow.
package secctx

import (
	"context"
	"errors"
	"time"
)

// ErrMissingTenantContext indicates an authenticated identity that cannot be
// mapped to a tenant.
var ErrMissingTenantContext = errors.New("missing tenant context")

// Runtime identifies where the request is being served.
type Runtime string

const (
	RuntimeEdge Runtime = "edge"
	RuntimeNode Runtime = "node"
)

// Environment is the deployment environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTest        Environment = "test"
	EnvProduction  Environment = "production"
)

// User is the authenticated principal inside a SecurityContext.
type User struct {
	ID       string
	Role     string
	TenantID string
}

// SecurityContext is created once per request and never mutated afterwards.
// A nil User means an unauthenticated (guest) principal.
type SecurityContext struct {
	User          *User
	IP            string
	UserAgent     string
	CorrelationID string
	RequestID     string
	Runtime       Runtime
	Environment   Environment

	// Degraded carries the resolution failure when the context was built as
	// a guest fallback after a timeout. Nil on a clean build.
	Degraded error
}

// IsAuthenticated reports whether the context carries a principal.
func (s *SecurityContext) IsAuthenticated() bool {
	return s != nil && s.User != nil
}

// EffectiveRole returns the principal's role, or empty for guests. The empty
// role deliberately fails EnsureRequiredRole with AuthenticationRequired.
func (s *SecurityContext) EffectiveRole() string {
	if !s.IsAuthenticated() {
		return ""
	}
	return s.User.Role
}

// Identity is what the identity provider resolves from the inbound request
// (session cookie, bearer token, upstream header - provider's business).
type Identity struct {
	ID string
}

// TenantContext scopes an identity to a tenant.
type TenantContext struct {
	TenantID string
	UserID   string
}

// IdentityProvider resolves the current identity, or nil when the request is
// unauthenticated. Implementations live outside this module.
type IdentityProvider interface {
	GetCurrentIdentity(ctx context.Context) (*Identity, error)
}

// TenantResolver maps an identity to its tenant. Implementations fail with
// an error wrapping ErrMissingTenantContext when no mapping exists.
type TenantResolver interface {
	Resolve(ctx context.Context, identity *Identity) (*TenantContext, error)
}

// RoleRepository returns the role names a subject holds within a tenant.
type RoleRepository interface {
	GetRoles(ctx context.Context, subjectID, tenantID string) ([]string, error)
}

// RequestMeta is the request-derived raw material for a context build.
// The middleware layer extracts it from headers; tests construct it directly.
type RequestMeta struct {
	IP            string
	UserAgent     string
	CorrelationID string
	RequestID     string
}

// DefaultBuildTimeout bounds context resolution on the request path.
const DefaultBuildTimeout = 350 * time.Millisecond
