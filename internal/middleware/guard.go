// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package middleware

import (
	"context"
	"net/http"

	"github.com/wmitrus/gateward/internal/routes"
	"github.com/wmitrus/gateward/internal/secctx"
)

// Well-known page destinations the guard redirects to.
const (
	pathHome       = "/"
	pathSignIn     = "/sign-in"
	pathOnboarding = "/onboarding"
)

// OnboardingCheck reports whether the principal has completed onboarding.
// Guests are never asked.
type OnboardingCheck func(ctx context.Context, sc *secctx.SecurityContext) bool

// guardDecision is what the guard wants done with the request. The zero
// value passes the request through.
type guardDecision struct {
	redirect     string
	unauthorized bool
}

// guard decides access for a classified request. Authenticated principals
// are steered away from auth pages and towards onboarding until it is
// complete. Unauthenticated requests to non-public pages are redirected to
// sign-in, while unauthenticated API calls get a 401 so machine clients see
// a status code instead of a login page. Webhook and internal API routes are
// exempt: those authenticate by signature or shared secret downstream.
func guard(ctx context.Context, rc routes.Context, sc *secctx.SecurityContext, onboarded OnboardingCheck) guardDecision {
	if sc.IsAuthenticated() {
		complete := onboarded == nil || onboarded(ctx, sc)
		if rc.IsAuthRoute {
			if complete {
				return guardDecision{redirect: pathHome}
			}
			return guardDecision{redirect: pathOnboarding}
		}
		if !complete && !rc.IsOnboardingRoute && !rc.IsPublicRoute && !rc.IsAPI {
			return guardDecision{redirect: pathOnboarding}
		}
		return guardDecision{}
	}

	if rc.IsPublicRoute || rc.IsWebhook || rc.IsInternalAPI {
		// Webhooks verify signatures and internal routes verify the shared
		// secret; neither carries a user session.
		return guardDecision{}
	}
	if rc.IsAPI {
		return guardDecision{unauthorized: true}
	}
	return guardDecision{redirect: pathSignIn}
}

func (d guardDecision) apply(w http.ResponseWriter, r *http.Request) bool {
	switch {
	case d.unauthorized:
		writeJSON(w, http.StatusUnauthorized, `{"error":"Unauthorized"}`)
		return true
	case d.redirect != "":
		http.Redirect(w, r, d.redirect, http.StatusFound)
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}
