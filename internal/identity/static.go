// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

// Package identity provides static in-memory implementations of the
// security context provider interfaces. They back the demo server and the
// test suites; real deployments plug in their own identity store, tenant
// directory and role source.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/crypto/bcrypt"

	"github.com/wmitrus/gateward/internal/secctx"
)

// StaticUser is one principal in the static identity table. TokenHash is a
// bcrypt hash of the bearer or session token, never the token itself.
type StaticUser struct {
	ID        string
	TokenHash string
}

// HashToken bcrypt-hashes a token for a StaticUser entry.
func HashToken(token string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(token), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hashing token: %w", err)
	}
	return string(hash), nil
}

// StaticProvider resolves identities from a fixed user table. Tokens arrive
// through the request credentials seeded by the middleware layer, either as
// a bearer Authorization header or a session cookie.
type StaticProvider struct {
	mu    sync.RWMutex
	users []StaticUser
}

// NewStaticProvider creates a provider over a fixed user table.
func NewStaticProvider(users ...StaticUser) *StaticProvider {
	return &StaticProvider{users: users}
}

// AddUser registers another principal. Used by tests and the demo server's
// bootstrap.
func (p *StaticProvider) AddUser(user StaticUser) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.users = append(p.users, user)
}

// GetCurrentIdentity resolves the request's token against the user table.
// A missing or unknown token is an anonymous request, not an error.
func (p *StaticProvider) GetCurrentIdentity(ctx context.Context) (*secctx.Identity, error) {
	token := tokenFromCredentials(secctx.CredentialsFromContext(ctx))
	if token == "" {
		return nil, nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, user := range p.users {
		if bcrypt.CompareHashAndPassword([]byte(user.TokenHash), []byte(token)) == nil {
			return &secctx.Identity{ID: user.ID}, nil
		}
	}
	return nil, nil
}

func tokenFromCredentials(creds secctx.Credentials) string {
	if creds.SessionToken != "" {
		return creds.SessionToken
	}
	const prefix = "Bearer "
	if strings.HasPrefix(creds.Authorization, prefix) {
		return strings.TrimSpace(creds.Authorization[len(prefix):])
	}
	return ""
}

// StaticTenantResolver maps user IDs to tenants from a fixed table.
type StaticTenantResolver struct {
	tenants map[string]string
}

// NewStaticTenantResolver creates a resolver over a userID to tenantID map.
func NewStaticTenantResolver(tenants map[string]string) *StaticTenantResolver {
	if tenants == nil {
		tenants = map[string]string{}
	}
	return &StaticTenantResolver{tenants: tenants}
}

// Resolve returns the tenant for an identity, or an error wrapping
// ErrMissingTenantContext when no mapping exists. An authenticated user
// without a tenant is a data problem worth surfacing, not a guest.
func (r *StaticTenantResolver) Resolve(_ context.Context, identity *secctx.Identity) (*secctx.TenantContext, error) {
	tenantID, ok := r.tenants[identity.ID]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", identity.ID, secctx.ErrMissingTenantContext)
	}
	return &secctx.TenantContext{TenantID: tenantID, UserID: identity.ID}, nil
}

// StaticRoleRepository serves role names from a fixed per-user table.
type StaticRoleRepository struct {
	roles map[string][]string
}

// NewStaticRoleRepository creates a repository over a userID to roles map.
func NewStaticRoleRepository(roles map[string][]string) *StaticRoleRepository {
	if roles == nil {
		roles = map[string][]string{}
	}
	return &StaticRoleRepository{roles: roles}
}

// GetRoles returns the subject's roles. Unknown subjects hold no roles.
func (r *StaticRoleRepository) GetRoles(_ context.Context, subjectID, _ string) ([]string, error) {
	return r.roles[subjectID], nil
}
