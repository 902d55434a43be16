// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/wmitrus/gateward/internal/audit"
	"github.com/wmitrus/gateward/internal/authz"
	"github.com/wmitrus/gateward/internal/secctx"
)

type fakeIdentity struct {
	identity *secctx.Identity
}

func (f *fakeIdentity) GetCurrentIdentity(ctx context.Context) (*secctx.Identity, error) {
	return f.identity, nil
}

type fakeTenants struct{}

func (fakeTenants) Resolve(ctx context.Context, identity *secctx.Identity) (*secctx.TenantContext, error) {
	return &secctx.TenantContext{TenantID: "tenant-1", UserID: identity.ID}, nil
}

type fakeRoles struct {
	roles []string
}

func (f *fakeRoles) GetRoles(ctx context.Context, subjectID, tenantID string) ([]string, error) {
	return f.roles, nil
}

// staticSource returns a fixed policy list for every check.
type staticSource struct {
	policies []authz.Policy
}

func (s *staticSource) GetPolicies(ctx context.Context, check *authz.Context) ([]authz.Policy, error) {
	return s.policies, nil
}

type reportInput struct {
	Title string `validate:"required,min=3"`
	Pages int    `validate:"gte=1"`
}

// testDeps wires an authenticated user with the given roles and policies.
func testDeps(t *testing.T, roles []string, policies []authz.Policy) (*Deps, *audit.MemoryStore, func()) {
	t.Helper()

	store := audit.NewMemoryStore(100)
	auditor := audit.NewLogger(store, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = auditor.Serve(ctx)
	}()
	stop := func() {
		cancel()
		<-done
	}

	var identity *secctx.Identity
	if roles != nil {
		identity = &secctx.Identity{ID: "user-1"}
	}

	deps := &Deps{
		Builder: secctx.NewBuilder(secctx.BuilderConfig{
			Identity: &fakeIdentity{identity: identity},
			Tenants:  fakeTenants{},
			Roles:    &fakeRoles{roles: roles},
		}),
		Authorizer: authz.NewAuthorizer(&staticSource{policies: policies}),
		Audit:      auditor,
		Validate:   validator.New(),
		Replay:     NewReplayVerifier([]byte("test-secret"), 0),
	}
	return deps, store, stop
}

func allowReportWrite() []authz.Policy {
	return []authz.Policy{
		authz.NewPolicy(authz.EffectAllow, "report", "report:create", "report:delete"),
	}
}

func createReportAction(deps *Deps, handlerErr error) Invoker[reportInput, string] {
	return New(deps, Config[reportInput, string]{
		Name:         "createReport",
		RequiredRole: authz.RoleUser,
		Resource:     "report",
		Verb:         "create",
		Handler: func(ctx context.Context, in reportInput, sc *secctx.SecurityContext) (string, error) {
			if handlerErr != nil {
				return "", handlerErr
			}
			return "report-for-" + sc.User.ID, nil
		},
	})
}

func waitForAudit(t *testing.T, store *audit.MemoryStore, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.Len() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("audit store has %d events, want %d", store.Len(), want)
}

func TestActionSuccess(t *testing.T) {
	deps, store, stop := testDeps(t, []string{"user"}, allowReportWrite())
	defer stop()

	invoke := createReportAction(deps, nil)
	result := invoke(context.Background(), Request[reportInput]{
		Input: reportInput{Title: "Quarterly", Pages: 12},
	})

	if result.Status != StatusSuccess {
		t.Fatalf("status = %q (%s), want success", result.Status, result.Error)
	}
	if result.Data != "report-for-user-1" {
		t.Errorf("data = %q, want handler output", result.Data)
	}

	waitForAudit(t, store, 1)
	events, _ := store.Query(context.Background(), audit.QueryFilter{})
	if events[0].Type != audit.EventTypeActionExecuted {
		t.Errorf("audit type = %q, want action.executed", events[0].Type)
	}
	if events[0].Actor.ID != "user-1" {
		t.Errorf("audit actor = %q, want user-1", events[0].Actor.ID)
	}
}

func TestActionUnauthenticatedGuest(t *testing.T) {
	deps, store, stop := testDeps(t, nil, allowReportWrite())
	defer stop()

	invoke := createReportAction(deps, nil)
	result := invoke(context.Background(), Request[reportInput]{
		Input: reportInput{Title: "Quarterly", Pages: 12},
	})

	if result.Status != StatusUnauthorized {
		t.Fatalf("status = %q, want unauthorized for guest", result.Status)
	}

	waitForAudit(t, store, 1)
	events, _ := store.Query(context.Background(), audit.QueryFilter{})
	if events[0].Type != audit.EventTypeActionRejected {
		t.Errorf("audit type = %q, want action.rejected", events[0].Type)
	}
}

func TestActionPolicyDenial(t *testing.T) {
	policies := append(allowReportWrite(),
		authz.NewPolicy(authz.EffectDeny, "report", "report:create"))
	deps, store, stop := testDeps(t, []string{"user"}, policies)
	defer stop()

	invoke := createReportAction(deps, nil)
	result := invoke(context.Background(), Request[reportInput]{
		Input: reportInput{Title: "Quarterly", Pages: 12},
	})

	if result.Status != StatusUnauthorized {
		t.Fatalf("status = %q, want unauthorized on deny-override", result.Status)
	}
	waitForAudit(t, store, 1)
}

func TestActionValidationFailure(t *testing.T) {
	deps, store, stop := testDeps(t, []string{"user"}, allowReportWrite())
	defer stop()

	invoke := createReportAction(deps, nil)
	result := invoke(context.Background(), Request[reportInput]{
		Input: reportInput{Title: "ab", Pages: 0},
	})

	if result.Status != StatusValidationError {
		t.Fatalf("status = %q, want validation_error", result.Status)
	}
	if _, ok := result.Errors["Title"]; !ok {
		t.Errorf("missing Title field error: %v", result.Errors)
	}
	if _, ok := result.Errors["Pages"]; !ok {
		t.Errorf("missing Pages field error: %v", result.Errors)
	}

	waitForAudit(t, store, 1)
	events, _ := store.Query(context.Background(), audit.QueryFilter{})
	if events[0].Type != audit.EventTypeActionRejected {
		t.Errorf("audit type = %q, want action.rejected", events[0].Type)
	}
}

func TestActionReplayToken(t *testing.T) {
	deps, store, stop := testDeps(t, []string{"user"}, allowReportWrite())
	defer stop()

	invoke := createReportAction(deps, nil)
	input := reportInput{Title: "Quarterly", Pages: 12}

	t.Run("valid token passes", func(t *testing.T) {
		token, err := deps.Replay.Mint()
		if err != nil {
			t.Fatalf("Mint: %v", err)
		}
		result := invoke(context.Background(), Request[reportInput]{Input: input, ReplayToken: token})
		if result.Status != StatusSuccess {
			t.Fatalf("status = %q (%s), want success", result.Status, result.Error)
		}
	})

	t.Run("stale token is rejected", func(t *testing.T) {
		stale := NewReplayVerifier([]byte("test-secret"), 0)
		stale.now = func() time.Time { return time.Now().Add(-10 * time.Minute) }
		token, err := stale.Mint()
		if err != nil {
			t.Fatalf("Mint: %v", err)
		}

		result := invoke(context.Background(), Request[reportInput]{Input: input, ReplayToken: token})
		if result.Status != StatusError {
			t.Fatalf("status = %q, want error for stale token", result.Status)
		}
	})

	t.Run("missing token passes by default", func(t *testing.T) {
		result := invoke(context.Background(), Request[reportInput]{Input: input})
		if result.Status != StatusSuccess {
			t.Fatalf("status = %q, want success without token", result.Status)
		}
	})

	t.Run("missing token fails when required", func(t *testing.T) {
		deps.RequireReplayToken = true
		defer func() { deps.RequireReplayToken = false }()

		result := invoke(context.Background(), Request[reportInput]{Input: input})
		if result.Status != StatusError {
			t.Fatalf("status = %q, want error when token is mandatory", result.Status)
		}
	})

	waitForAudit(t, store, 4)
}

func TestActionHandlerError(t *testing.T) {
	deps, store, stop := testDeps(t, []string{"user"}, allowReportWrite())
	defer stop()

	invoke := createReportAction(deps, errors.New("storage offline"))
	result := invoke(context.Background(), Request[reportInput]{
		Input: reportInput{Title: "Quarterly", Pages: 12},
	})

	if result.Status != StatusError {
		t.Fatalf("status = %q, want error", result.Status)
	}
	if result.Error != "storage offline" {
		t.Errorf("error = %q, want handler error", result.Error)
	}
	waitForAudit(t, store, 1)
}

func TestActionCancelledRequestSkipsAudit(t *testing.T) {
	deps, store, stop := testDeps(t, []string{"user"}, allowReportWrite())
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	invoke := createReportAction(deps, nil)
	result := invoke(ctx, Request[reportInput]{
		Input: reportInput{Title: "Quarterly", Pages: 12},
	})

	if result.Status != StatusError {
		t.Fatalf("status = %q, want error on cancelled request", result.Status)
	}

	time.Sleep(50 * time.Millisecond)
	if store.Len() != 0 {
		t.Errorf("audit store has %d events, want 0 after cancellation", store.Len())
	}
}
