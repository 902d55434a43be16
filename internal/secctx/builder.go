// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package secctx

import (
	"context"
	"fmt"
	"time"

	"github.com/wmitrus/gateward/internal/authz"
	"github.com/wmitrus/gateward/internal/logging"
	"github.com/wmitrus/gateward/internal/metrics"
)

// Builder assembles security contexts from the configured providers.
type Builder struct {
	identity IdentityProvider
	tenants  TenantResolver
	roles    RoleRepository

	runtime     Runtime
	environment Environment
	timeout     time.Duration

	security *logging.SecurityLogger
}

// BuilderConfig configures a Builder.
type BuilderConfig struct {
	Identity    IdentityProvider
	Tenants     TenantResolver
	Roles       RoleRepository
	Runtime     Runtime
	Environment Environment

	// Timeout bounds BuildWithTimeout. Zero means DefaultBuildTimeout.
	Timeout time.Duration
}

// NewBuilder creates a security context builder.
func NewBuilder(cfg BuilderConfig) *Builder {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultBuildTimeout
	}
	runtime := cfg.Runtime
	if runtime == "" {
		runtime = RuntimeNode
	}
	environment := cfg.Environment
	if environment == "" {
		environment = EnvDevelopment
	}
	return &Builder{
		identity:    cfg.Identity,
		tenants:     cfg.Tenants,
		roles:       cfg.Roles,
		runtime:     runtime,
		environment: environment,
		timeout:     timeout,
		security:    logging.NewSecurityLogger(),
	}
}

// Build resolves the full security context. The unauthenticated case is not
// an error: a nil identity produces a guest context. Errors are reserved for
// authenticated identities whose tenant or roles cannot be resolved.
func (b *Builder) Build(ctx context.Context, meta RequestMeta) (*SecurityContext, error) {
	sc := b.guestContext(meta)

	identity, err := b.identity.GetCurrentIdentity(ctx)
	if err != nil {
		return nil, fmt.Errorf("resolving identity: %w", err)
	}
	if identity == nil {
		return sc, nil
	}

	tenant, err := b.tenants.Resolve(ctx, identity)
	if err != nil {
		return nil, fmt.Errorf("resolving tenant for %s: %w", identity.ID, err)
	}

	roleNames, err := b.roles.GetRoles(ctx, identity.ID, tenant.TenantID)
	if err != nil {
		return nil, fmt.Errorf("loading roles for %s: %w", identity.ID, err)
	}

	sc.User = &User{
		ID:       identity.ID,
		Role:     string(authz.EffectiveRole(roleNames)),
		TenantID: tenant.TenantID,
	}
	return sc, nil
}

// BuildWithTimeout races Build against the configured timeout. Timeout and
// resolution failures degrade to a guest context carrying the cause in
// Degraded; only cancellation of the caller's own request aborts the build.
// The availability trade-off is deliberate: a slow identity store must not
// take the whole request down with it.
func (b *Builder) BuildWithTimeout(ctx context.Context, meta RequestMeta) (*SecurityContext, error) {
	type result struct {
		sc  *SecurityContext
		err error
	}

	// Buffered so the worker never leaks when the race is lost.
	ch := make(chan result, 1)
	go func() {
		sc, err := b.Build(ctx, meta)
		ch <- result{sc, err}
	}()

	timer := time.NewTimer(b.timeout)
	defer timer.Stop()

	select {
	case r := <-ch:
		if r.err != nil {
			return b.degrade(ctx, meta, r.err), nil
		}
		return r.sc, nil
	case <-timer.C:
		return b.degrade(ctx, meta, fmt.Errorf("security context build timed out after %s", b.timeout)), nil
	case <-ctx.Done():
		// The request itself is gone; no degraded context, no side effects.
		return nil, ctx.Err()
	}
}

// degrade produces the guest fallback context, logging and counting the
// failure so a degraded fleet is visible before users notice.
func (b *Builder) degrade(ctx context.Context, meta RequestMeta, cause error) *SecurityContext {
	metrics.ContextFallbacks.Inc()
	logging.Ctx(ctx).Warn().Err(cause).Str("ip", meta.IP).Msg("degrading to guest security context")
	b.security.LogDegradedContext(meta.IP, cause.Error())

	sc := b.guestContext(meta)
	sc.Degraded = cause
	return sc
}

// guestContext builds the unauthenticated base context, generating tracing
// IDs when the request did not carry them.
func (b *Builder) guestContext(meta RequestMeta) *SecurityContext {
	correlationID := meta.CorrelationID
	if correlationID == "" {
		correlationID = logging.GenerateCorrelationID()
	}
	requestID := meta.RequestID
	if requestID == "" {
		requestID = logging.GenerateRequestID()
	}
	return &SecurityContext{
		IP:            meta.IP,
		UserAgent:     meta.UserAgent,
		CorrelationID: correlationID,
		RequestID:     requestID,
		Runtime:       b.runtime,
		Environment:   b.environment,
	}
}
