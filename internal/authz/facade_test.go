// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package authz

import (
	"context"
	"errors"
	"testing"
)

// staticSource returns a fixed policy list for every check.
type staticSource struct {
	policies []Policy
	err      error
}

func (s *staticSource) GetPolicies(_ context.Context, _ *Context) ([]Policy, error) {
	return s.policies, s.err
}

func TestAuthorizerCan(t *testing.T) {
	tests := []struct {
		name     string
		policies []Policy
		want     bool
	}{
		{"no policies denies", nil, false},
		{"matching allow grants", []Policy{NewPolicy(EffectAllow, "report", "report:read")}, true},
		{"deny wins", []Policy{
			NewPolicy(EffectAllow, "report", "report:read"),
			NewPolicy(EffectDeny, "report", "report:read"),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := NewAuthorizer(&staticSource{policies: tt.policies})
			got, err := a.Can(context.Background(), checkContext())
			if err != nil {
				t.Fatalf("Can() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Can() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestAuthorizeReturnsTypedError(t *testing.T) {
	a := NewAuthorizer(&staticSource{})

	err := a.Authorize(context.Background(), checkContext(), "read reports")
	var denied *AuthorizationError
	if !errors.As(err, &denied) {
		t.Fatalf("Authorize() = %v, want *AuthorizationError", err)
	}
	if denied.Message != "read reports" {
		t.Errorf("denial message = %q", denied.Message)
	}
}

func TestAuthorizePassesOnAllow(t *testing.T) {
	a := NewAuthorizer(&staticSource{policies: []Policy{NewPolicy(EffectAllow, "*", "*")}})

	if err := a.Authorize(context.Background(), checkContext(), "anything"); err != nil {
		t.Errorf("Authorize() = %v, want nil", err)
	}
}

func TestAuthorizerPropagatesSourceError(t *testing.T) {
	wantErr := errors.New("store down")
	a := NewAuthorizer(&staticSource{err: wantErr})

	_, err := a.Can(context.Background(), checkContext())
	if !errors.Is(err, wantErr) {
		t.Errorf("Can() error = %v, want wrapped %v", err, wantErr)
	}
}
