// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package middleware

import (
	"net/http"
	"strings"

	"github.com/wmitrus/gateward/internal/config"
)

// SecurityHeaders sets browser security headers on every response. HSTS is
// only emitted in production behind TLS so local development over plain HTTP
// does not poison the browser's HSTS cache.
func SecurityHeaders(cfg *config.Config) func(http.Handler) http.Handler {
	csp := buildCSP(cfg)
	production := cfg.IsProduction()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "geolocation=(), microphone=(), camera=()")
			h.Set("Content-Security-Policy", csp)

			if production && (r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https") {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}

			next.ServeHTTP(w, r)
		})
	}
}

// buildCSP assembles the Content-Security-Policy once at startup. Every
// directive is anchored on 'self' and extended with configured sources.
// Development relaxes script and style so hot-reload tooling works.
func buildCSP(cfg *config.Config) string {
	scriptExtra := cfg.Security.CSP.ScriptSrc
	styleExtra := cfg.Security.CSP.StyleSrc
	connectExtra := cfg.Security.CSP.ConnectSrc
	if cfg.IsDevelopment() {
		scriptExtra = append([]string{"'unsafe-eval'", "'unsafe-inline'"}, scriptExtra...)
		styleExtra = append([]string{"'unsafe-inline'"}, styleExtra...)
		connectExtra = append([]string{"ws:", "wss:"}, connectExtra...)
	}

	directives := []string{
		"default-src 'self'",
		cspDirective("script-src", scriptExtra),
		cspDirective("style-src", styleExtra),
		cspDirective("img-src", append([]string{"data:", "blob:"}, cfg.Security.CSP.ImgSrc...)),
		cspDirective("connect-src", connectExtra),
		cspDirective("frame-src", cfg.Security.CSP.FrameSrc),
		"object-src 'none'",
		"base-uri 'self'",
		"form-action 'self'",
		"frame-ancestors 'none'",
	}
	return strings.Join(directives, "; ")
}

func cspDirective(name string, extra []string) string {
	parts := append([]string{name, "'self'"}, extra...)
	return strings.Join(parts, " ")
}
