// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package middleware

import (
	"context"

	"github.com/wmitrus/gateward/internal/routes"
	"github.com/wmitrus/gateward/internal/secctx"
)

type contextKey string

const (
	routeContextKey    contextKey = "gateward.route"
	securityContextKey contextKey = "gateward.secctx"
)

// RouteFromContext returns the route classification computed by the pipeline.
// The zero Context is returned for requests that never passed through it.
func RouteFromContext(ctx context.Context) routes.Context {
	rc, _ := ctx.Value(routeContextKey).(routes.Context)
	return rc
}

// SecurityContextFromContext returns the per-request security context, or nil
// when the pipeline did not build one (static assets, direct handler tests).
func SecurityContextFromContext(ctx context.Context) *secctx.SecurityContext {
	sc, _ := ctx.Value(securityContextKey).(*secctx.SecurityContext)
	return sc
}

func withRouteContext(ctx context.Context, rc routes.Context) context.Context {
	return context.WithValue(ctx, routeContextKey, rc)
}

func withSecurityContext(ctx context.Context, sc *secctx.SecurityContext) context.Context {
	return context.WithValue(ctx, securityContextKey, sc)
}
