// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package middleware

import (
	"net/http"

	"github.com/go-chi/cors"

	"github.com/wmitrus/gateward/internal/audit"
	"github.com/wmitrus/gateward/internal/config"
	"github.com/wmitrus/gateward/internal/logging"
	"github.com/wmitrus/gateward/internal/ratelimit"
	"github.com/wmitrus/gateward/internal/routes"
	"github.com/wmitrus/gateward/internal/secctx"
)

// SessionCookieName is the cookie the pipeline lifts into the identity
// provider's credentials.
const SessionCookieName = "gateward_session"

// Pipeline is the ordered security chain every request passes through.
// Static assets take a fast path past everything but correlation, metrics
// and response headers.
type Pipeline struct {
	cfg        *config.Config
	classifier *routes.Classifier
	builder    *secctx.Builder
	limiter    *ratelimit.Limiter
	auditor    *audit.Logger
	onboarded  OnboardingCheck
}

// PipelineOption customizes a Pipeline.
type PipelineOption func(*Pipeline)

// WithAuditLogger wires security decisions into the audit trail.
func WithAuditLogger(l *audit.Logger) PipelineOption {
	return func(p *Pipeline) { p.auditor = l }
}

// WithOnboardingCheck supplies the onboarding-complete predicate. Without
// one, every authenticated principal counts as onboarded.
func WithOnboardingCheck(check OnboardingCheck) PipelineOption {
	return func(p *Pipeline) { p.onboarded = check }
}

// NewPipeline assembles the security pipeline. limiter may be nil when rate
// limiting is disabled.
func NewPipeline(cfg *config.Config, classifier *routes.Classifier, builder *secctx.Builder, limiter *ratelimit.Limiter, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		cfg:        cfg,
		classifier: classifier,
		builder:    builder,
		limiter:    limiter,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Handler wraps next in the full pipeline. Outer stages run on every
// request; the security core is skipped for static assets.
func (p *Pipeline) Handler(next http.Handler) http.Handler {
	var h http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p.serve(w, r, next)
	})
	h = p.corsStage()(h)
	h = SecurityHeaders(p.cfg)(h)
	h = Metrics(h)
	h = Correlation(h)
	return h
}

func (p *Pipeline) serve(w http.ResponseWriter, r *http.Request, next http.Handler) {
	rc := p.classifier.Classify(r.URL.Path)
	r = r.WithContext(withRouteContext(r.Context(), rc))

	if rc.IsStaticFile {
		next.ServeHTTP(w, r)
		return
	}

	// Credentials ride the request context so later context builds, like a
	// secure action inside the downstream handler, resolve the same
	// principal the pipeline just did.
	r = r.WithContext(secctx.ContextWithCredentials(r.Context(), credentialsFromRequest(r)))

	sc, ok := p.buildContext(w, r)
	if !ok {
		return
	}
	r = r.WithContext(withSecurityContext(r.Context(), sc))

	if guard(r.Context(), rc, sc, p.onboarded).apply(w, r) {
		return
	}
	if rc.IsInternalAPI && !p.checkInternalAPI(w, r) {
		return
	}
	if p.shouldRateLimit(rc) && !p.checkRateLimit(w, r) {
		return
	}

	next.ServeHTTP(w, r)
}

// buildContext resolves the security context for the request. The build
// degrades internally on slow or failing providers, so the only false return
// is a request whose own context is already gone.
func (p *Pipeline) buildContext(w http.ResponseWriter, r *http.Request) (*secctx.SecurityContext, bool) {
	ctx := r.Context()

	sc, err := p.builder.BuildWithTimeout(ctx, secctx.RequestMeta{
		IP:            ClientIP(r, p.cfg.Security.TrustedProxies),
		UserAgent:     r.UserAgent(),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RequestID:     logging.RequestIDFromContext(ctx),
	})
	if err != nil {
		// Client went away mid-build.
		w.WriteHeader(http.StatusServiceUnavailable)
		return nil, false
	}

	if sc.Degraded != nil && p.auditor != nil {
		p.auditor.LogAuthDegraded(r.Context(), p.sourceFor(r), sc.Degraded.Error())
	}
	return sc, true
}

// sourceFor builds the audit source with the client address resolved through
// the trusted-proxy gate, so audit trails record the same IP the rate
// limiter and logs use.
func (p *Pipeline) sourceFor(r *http.Request) audit.Source {
	src := audit.SourceFromRequest(r)
	src.IPAddress = ClientIP(r, p.cfg.Security.TrustedProxies)
	return src
}

func credentialsFromRequest(r *http.Request) secctx.Credentials {
	creds := secctx.Credentials{
		Authorization: r.Header.Get("Authorization"),
	}
	if cookie, err := r.Cookie(SessionCookieName); err == nil {
		creds.SessionToken = cookie.Value
	}
	return creds
}

func (p *Pipeline) shouldRateLimit(rc routes.Context) bool {
	if p.limiter == nil || p.cfg.Security.RateLimitDisabled {
		return false
	}
	return rc.IsAPI && !rc.IsWebhook
}

// corsStage builds the CORS layer from configuration. No configured origins
// means no CORS handling at all.
func (p *Pipeline) corsStage() func(http.Handler) http.Handler {
	origins := p.cfg.Security.CORSOrigins
	if len(origins) == 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", HeaderCorrelationID},
		ExposedHeaders:   []string{HeaderCorrelationID, "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
