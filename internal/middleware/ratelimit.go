// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/wmitrus/gateward/internal/audit"
)

// checkRateLimit enforces the per-client budget on API routes. The limit
// headers are set on every checked response so clients can pace themselves
// before hitting the wall.
func (p *Pipeline) checkRateLimit(w http.ResponseWriter, r *http.Request) bool {
	ip := ClientIP(r, p.cfg.Security.TrustedProxies)
	result := p.limiter.Check(r.Context(), ip)

	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(result.Reset.Unix(), 10))

	if result.Allowed {
		return true
	}

	if p.auditor != nil {
		sc := SecurityContextFromContext(r.Context())
		actor := audit.GuestActor()
		if sc.IsAuthenticated() {
			actor = audit.ActorFromUser(sc.User.ID, sc.User.Role, sc.User.TenantID)
		}
		p.auditor.LogRateLimitExceeded(r.Context(), actor, p.sourceFor(r), ip, result.Limit)
	}

	h.Set("Retry-After", strconv.Itoa(result.RetryAfter(time.Now())))
	writeJSON(w, http.StatusTooManyRequests, `{"status":"server_error","code":"RATE_LIMITED"}`)
	return false
}
