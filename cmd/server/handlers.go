// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package main

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	json "github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wmitrus/gateward/internal/action"
	"github.com/wmitrus/gateward/internal/config"
	"github.com/wmitrus/gateward/internal/fetch"
	"github.com/wmitrus/gateward/internal/logging"
	"github.com/wmitrus/gateward/internal/middleware"
	"github.com/wmitrus/gateward/internal/secctx"
)

// reportInput is the demo secure action's payload.
type reportInput struct {
	Title string `json:"title" validate:"required,min=3"`
	Body  string `json:"body"  validate:"required"`
}

// report is the demo secure action's output.
type report struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Author    string    `json:"author"`
	TenantID  string    `json:"tenant_id"`
	CreatedAt time.Time `json:"created_at"`
}

// server holds the demo handlers' collaborators.
type server struct {
	cfg          *config.Config
	fetcher      *fetch.Client
	replay       *action.ReplayVerifier
	createReport action.Invoker[reportInput, report]
}

// routes mounts the demo surface. Everything here sits behind the security
// pipeline; the handlers only show how a protected application reads the
// request's security context back.
func (s *server) routes() *chi.Mux {
	r := chi.NewRouter()

	r.Get("/", s.handlePage("home"))
	r.Get("/dashboard", s.handlePage("dashboard"))
	r.Get("/onboarding", s.handlePage("onboarding"))
	r.Get("/healthz", s.handleHealthz)
	r.Handle("/metrics", promhttp.Handler())

	// Brute-force cap on the sign-in endpoint, separate from the API
	// window.
	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(s.cfg.Security.AuthRateLimitReqs, time.Minute))
		r.Get("/sign-in", s.handlePage("sign-in"))
		r.Post("/sign-in", s.handleSignIn)
	})

	r.Route("/api", func(r chi.Router) {
		r.Get("/data", s.handleData)
		r.Get("/preview", s.handlePreview)
		r.Get("/reports/token", s.handleReportToken)
		r.Post("/reports", s.handleCreateReport)
		r.Get("/internal/jobs", s.handleInternalJobs)
	})

	return r
}

func (s *server) handlePage(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sc := middleware.SecurityContextFromContext(r.Context())
		page := map[string]any{"page": name}
		if sc.IsAuthenticated() {
			page["user"] = sc.User.ID
			page["role"] = sc.User.Role
		}
		writeJSON(w, http.StatusOK, page)
	}
}

func (s *server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleSignIn stores the presented token as the session cookie. Whether the
// token resolves to a principal is the identity provider's call on the next
// request; the endpoint itself never confirms validity.
func (s *server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Token == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "token is required"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     middleware.SessionCookieName,
		Value:    body.Token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.cfg.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, "/", http.StatusFound)
}

func (s *server) handleData(w http.ResponseWriter, r *http.Request) {
	sc := middleware.SecurityContextFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"data":   []string{"alpha", "beta", "gamma"},
		"user":   sc.User.ID,
		"tenant": sc.User.TenantID,
	})
}

func (s *server) handleInternalJobs(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"jobs": []map[string]string{
			{"id": "audit-cleanup", "state": "scheduled"},
			{"id": "policy-reload", "state": "idle"},
		},
	})
}

// handlePreview fetches an allow-listed URL through the SSRF-guarded client
// and relays the response.
func (s *server) handlePreview(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("url")
	if target == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is required"})
		return
	}
	if _, err := url.ParseRequestURI(target); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is invalid"})
		return
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodGet, target, nil)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "url is invalid"})
		return
	}

	resp, err := s.fetcher.Do(req)
	if err != nil {
		var blocked *fetch.SSRFBlockedError
		if errors.As(err, &blocked) {
			writeJSON(w, http.StatusForbidden, map[string]string{"error": blocked.Error()})
			return
		}
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "upstream fetch failed"})
		return
	}
	defer resp.Body.Close()

	w.Header().Set("Content-Type", resp.Header.Get("Content-Type"))
	w.WriteHeader(resp.StatusCode)
	_, _ = io.Copy(w, io.LimitReader(resp.Body, 1<<20))
}

// handleReportToken mints the anti-replay token a report form embeds.
func (s *server) handleReportToken(w http.ResponseWriter, _ *http.Request) {
	token, err := s.replay.Mint()
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "token minting failed"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (s *server) handleCreateReport(w http.ResponseWriter, r *http.Request) {
	var body struct {
		reportInput
		ReplayToken string `json:"replay_token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	result := s.createReport(r.Context(), action.Request[reportInput]{
		Input:       body.reportInput,
		ReplayToken: body.ReplayToken,
		Meta:        requestMeta(r),
	})
	writeJSON(w, statusCodeFor(result.Status), result)
}

func statusCodeFor(status action.Status) int {
	switch status {
	case action.StatusSuccess:
		return http.StatusOK
	case action.StatusValidationError:
		return http.StatusBadRequest
	case action.StatusUnauthorized:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func requestMeta(r *http.Request) secctx.RequestMeta {
	sc := middleware.SecurityContextFromContext(r.Context())
	if sc != nil {
		return secctx.RequestMeta{
			IP:            sc.IP,
			UserAgent:     sc.UserAgent,
			CorrelationID: sc.CorrelationID,
			RequestID:     sc.RequestID,
		}
	}
	return secctx.RequestMeta{
		IP:            r.RemoteAddr,
		UserAgent:     r.UserAgent(),
		CorrelationID: logging.CorrelationIDFromContext(r.Context()),
		RequestID:     logging.RequestIDFromContext(r.Context()),
	}
}

// newReportHandler is the demo action's application logic.
func newReportHandler() action.Handler[reportInput, report] {
	return func(_ context.Context, input reportInput, sc *secctx.SecurityContext) (report, error) {
		return report{
			ID:        uuid.NewString(),
			Title:     input.Title,
			Author:    sc.User.ID,
			TenantID:  sc.User.TenantID,
			CreatedAt: time.Now().UTC(),
		}, nil
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
