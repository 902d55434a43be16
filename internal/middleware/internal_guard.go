// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/wmitrus/gateward/internal/logging"
	"github.com/wmitrus/gateward/internal/metrics"
)

// HeaderInternalAPISecret authenticates service-to-service calls on
// /api/internal routes.
const HeaderInternalAPISecret = "x-internal-api-secret"

// checkInternalAPI verifies the shared secret on internal API routes.
// Comparison is constant time. An empty configured secret means the internal
// surface is disabled and everything is denied.
func (p *Pipeline) checkInternalAPI(w http.ResponseWriter, r *http.Request) bool {
	presented := r.Header.Get(HeaderInternalAPISecret)
	secret := p.cfg.Security.InternalAPISecret
	if secret != "" && presented != "" &&
		subtle.ConstantTimeCompare([]byte(presented), []byte(secret)) == 1 {
		return true
	}

	metrics.InternalAPIDenied.Inc()
	logging.Ctx(r.Context()).Warn().
		Str("path", r.URL.Path).
		Str("ip", ClientIP(r, p.cfg.Security.TrustedProxies)).
		Msg("internal API access denied")
	if p.auditor != nil {
		p.auditor.LogInternalDenied(r.Context(), p.sourceFor(r))
	}

	writeJSON(w, http.StatusForbidden, `{"error":"Forbidden: Internal Access Only"}`)
	return false
}
