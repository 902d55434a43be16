// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package identity

import (
	"context"
	"errors"
	"testing"

	"github.com/wmitrus/gateward/internal/secctx"
)

func newTestProvider(t *testing.T) *StaticProvider {
	t.Helper()
	hash, err := HashToken("alice-token")
	if err != nil {
		t.Fatalf("HashToken() error = %v", err)
	}
	return NewStaticProvider(StaticUser{ID: "alice", TokenHash: hash})
}

func TestStaticProviderResolvesBearerToken(t *testing.T) {
	provider := newTestProvider(t)
	ctx := secctx.ContextWithCredentials(context.Background(), secctx.Credentials{
		Authorization: "Bearer alice-token",
	})

	identity, err := provider.GetCurrentIdentity(ctx)
	if err != nil {
		t.Fatalf("GetCurrentIdentity() error = %v", err)
	}
	if identity == nil || identity.ID != "alice" {
		t.Fatalf("identity = %+v, want alice", identity)
	}
}

func TestStaticProviderResolvesSessionToken(t *testing.T) {
	provider := newTestProvider(t)
	ctx := secctx.ContextWithCredentials(context.Background(), secctx.Credentials{
		SessionToken: "alice-token",
	})

	identity, err := provider.GetCurrentIdentity(ctx)
	if err != nil {
		t.Fatalf("GetCurrentIdentity() error = %v", err)
	}
	if identity == nil || identity.ID != "alice" {
		t.Fatalf("identity = %+v, want alice", identity)
	}
}

func TestStaticProviderAnonymous(t *testing.T) {
	provider := newTestProvider(t)

	tests := []struct {
		name  string
		creds secctx.Credentials
	}{
		{"no credentials", secctx.Credentials{}},
		{"unknown token", secctx.Credentials{SessionToken: "nope"}},
		{"non bearer authorization", secctx.Credentials{Authorization: "Basic abc"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := secctx.ContextWithCredentials(context.Background(), tt.creds)
			identity, err := provider.GetCurrentIdentity(ctx)
			if err != nil {
				t.Fatalf("GetCurrentIdentity() error = %v", err)
			}
			if identity != nil {
				t.Errorf("identity = %+v, want nil", identity)
			}
		})
	}
}

func TestStaticTenantResolver(t *testing.T) {
	resolver := NewStaticTenantResolver(map[string]string{"alice": "tenant-1"})

	tenant, err := resolver.Resolve(context.Background(), &secctx.Identity{ID: "alice"})
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}
	if tenant.TenantID != "tenant-1" || tenant.UserID != "alice" {
		t.Errorf("tenant = %+v", tenant)
	}

	_, err = resolver.Resolve(context.Background(), &secctx.Identity{ID: "stranger"})
	if !errors.Is(err, secctx.ErrMissingTenantContext) {
		t.Errorf("unmapped user error = %v, want ErrMissingTenantContext", err)
	}
}

func TestStaticRoleRepository(t *testing.T) {
	repo := NewStaticRoleRepository(map[string][]string{"alice": {"admin", "user"}})

	roles, err := repo.GetRoles(context.Background(), "alice", "tenant-1")
	if err != nil {
		t.Fatalf("GetRoles() error = %v", err)
	}
	if len(roles) != 2 || roles[0] != "admin" {
		t.Errorf("roles = %v", roles)
	}

	roles, err = repo.GetRoles(context.Background(), "stranger", "tenant-1")
	if err != nil {
		t.Fatalf("GetRoles() error = %v", err)
	}
	if len(roles) != 0 {
		t.Errorf("unknown subject roles = %v, want none", roles)
	}
}
