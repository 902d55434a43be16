// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wmitrus/gateward/internal/action"
	"github.com/wmitrus/gateward/internal/audit"
	"github.com/wmitrus/gateward/internal/authz"
	"github.com/wmitrus/gateward/internal/config"
	"github.com/wmitrus/gateward/internal/identity"
	"github.com/wmitrus/gateward/internal/ratelimit"
	"github.com/wmitrus/gateward/internal/routes"
	"github.com/wmitrus/gateward/internal/secctx"
)

type noteInput struct {
	Text string `validate:"required"`
}

type allowNoteCreate struct{}

func (allowNoteCreate) GetPolicies(context.Context, *authz.Context) ([]authz.Policy, error) {
	return []authz.Policy{authz.NewPolicy(authz.EffectAllow, "note", "note:create")}, nil
}

// The pipeline authenticates the request, and a secure action invoked from
// the downstream handler must resolve the same principal from the request
// context rather than falling back to guest.
func TestPipelineActionSharesAuthenticatedPrincipal(t *testing.T) {
	hash, err := identity.HashToken("alice-token")
	if err != nil {
		t.Fatalf("HashToken() error = %v", err)
	}
	provider := identity.NewStaticProvider(identity.StaticUser{ID: "alice", TokenHash: hash})
	builder := secctx.NewBuilder(secctx.BuilderConfig{
		Identity: provider,
		Tenants:  identity.NewStaticTenantResolver(map[string]string{"alice": "tenant-1"}),
		Roles:    identity.NewStaticRoleRepository(map[string][]string{"alice": {"user"}}),
		Timeout:  2 * time.Second,
	})

	deps := &action.Deps{
		Builder:    builder,
		Authorizer: authz.NewAuthorizer(allowNoteCreate{}),
		Audit:      audit.NewLogger(audit.NewMemoryStore(16), nil, &audit.Config{Enabled: false}),
		Validate:   validator.New(),
		Replay:     action.NewReplayVerifier([]byte("integration-test-secret"), 0),
	}
	createNote := action.New(deps, action.Config[noteInput, string]{
		Name:         "note.create",
		RequiredRole: authz.RoleUser,
		Resource:     "note",
		Verb:         "create",
		Handler: func(_ context.Context, input noteInput, sc *secctx.SecurityContext) (string, error) {
			return sc.User.ID + ":" + input.Text, nil
		},
	})

	cfg := &config.Config{}
	cfg.Server.Environment = "development"
	limiter := ratelimit.New(ratelimit.Config{Requests: 100, Window: time.Minute})
	p := NewPipeline(cfg, routes.NewClassifier(), builder, limiter)

	var result action.Result[string]
	h := p.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sc := SecurityContextFromContext(r.Context())
		if !sc.IsAuthenticated() {
			t.Error("pipeline did not authenticate the request")
		}
		result = createNote(r.Context(), action.Request[noteInput]{
			Input: noteInput{Text: "hello"},
			Meta: secctx.RequestMeta{
				IP:            sc.IP,
				UserAgent:     sc.UserAgent,
				CorrelationID: sc.CorrelationID,
				RequestID:     sc.RequestID,
			},
		})
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/notes", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	req.Header.Set("Authorization", "Bearer alice-token")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if result.Status != action.StatusSuccess {
		t.Fatalf("action status = %q (error %q), want success", result.Status, result.Error)
	}
	if result.Data != "alice:hello" {
		t.Errorf("action data = %q, want alice:hello", result.Data)
	}
}
