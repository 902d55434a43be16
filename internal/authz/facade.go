// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package authz

import (
	"context"
	"fmt"

	"github.com/wmitrus/gateward/internal/logging"
	"github.com/wmitrus/gateward/internal/metrics"
)

// PolicySource loads the policies relevant to a check. Implementations
// filter by action and resource before returning (repository-side
// filtering); the engine assumes every returned policy is relevant.
type PolicySource interface {
	GetPolicies(ctx context.Context, check *Context) ([]Policy, error)
}

// Authorizer is the authorization facade: coarse role checks through the
// hierarchy, fine-grained decisions through the policy engine.
type Authorizer struct {
	source   PolicySource
	security *logging.SecurityLogger
}

// NewAuthorizer creates an authorizer over a policy source.
func NewAuthorizer(source PolicySource) *Authorizer {
	return &Authorizer{
		source:   source,
		security: logging.NewSecurityLogger(),
	}
}

// Can evaluates the policies for the check and reports the decision.
// It never throws on a deny; use Authorize for the error-returning form.
func (a *Authorizer) Can(ctx context.Context, check *Context) (bool, error) {
	policies, err := a.source.GetPolicies(ctx, check)
	if err != nil {
		return false, fmt.Errorf("loading policies: %w", err)
	}

	allowed, err := Evaluate(check, policies)
	if err != nil {
		return false, err
	}

	if allowed {
		metrics.AuthzDecisions.WithLabelValues("allow").Inc()
	} else {
		metrics.AuthzDecisions.WithLabelValues("deny").Inc()
	}
	return allowed, nil
}

// Authorize calls Can and converts a denial into a typed error. The message
// is surfaced to the caller, so it should describe the operation, not the
// policy internals.
func (a *Authorizer) Authorize(ctx context.Context, check *Context, message string) error {
	allowed, err := a.Can(ctx, check)
	if err != nil {
		return err
	}
	if !allowed {
		a.security.LogAuthzDenied(
			check.Subject.ID,
			check.Tenant.TenantID,
			string(check.Action),
			check.Resource.Type,
			message,
		)
		return &AuthorizationError{Message: message, Action: check.Action}
	}
	return nil
}
