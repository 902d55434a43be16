// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

/*
Package middleware composes the ordered request security pipeline.

Every inbound request flows through the same chain:

 1. Correlation: reuse or generate x-correlation-id / X-Request-ID, echo
    them on the response, seed the logging context.
 2. Metrics: request counters, latency histogram, in-flight gauge.
 3. Security headers: frame denial, nosniff, referrer and permissions
    policies, the computed Content-Security-Policy, HSTS in production.
 4. CORS, when origins are configured.
 5. Route classification: one pure classify call whose result rides the
    request context.
 6. Static fast path: assets skip the remaining stages.
 7. Security context build: identity, tenant and roles resolved under a
    deadline, degrading to guest on slow providers.
 8. Guard: authenticated redirect rules around auth and onboarding pages,
    sign-in redirect or 401 for unauthenticated access.
 9. Internal API guard: constant-time shared-secret check on /api/internal.
 10. Rate limit: per-client sliding window on API routes, with the usual
    X-RateLimit response headers and 429 + Retry-After when exhausted.

Stages either pass the request along or short-circuit with a complete
response; nothing downstream runs after a short circuit.

Handlers read the classification and security context back with
RouteFromContext and SecurityContextFromContext.
*/
package middleware
