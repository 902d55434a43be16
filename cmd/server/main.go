// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

// Package main is the entry point for the Gateward server.
//
// Gateward is a request security gateway: every inbound request is
// classified, given a security context, guarded, rate limited and audited
// before application handlers run. Application code invokes secure actions
// through the same policy engine.
//
// # Startup Order
//
//  1. Configuration: layered load via Koanf v2 (defaults, config file,
//     environment variables)
//  2. Logging: zerolog, JSON or console format
//  3. Store: embedded BadgerDB backing audit events and the distributed
//     rate limit window
//  4. Audit: async buffered writer plus in-process event fan-out
//  5. Policy: Casbin-backed policy source behind the authorization facade
//  6. Identity: static demo providers (real deployments supply their own)
//  7. Pipeline: the ordered security middleware chain
//  8. Supervision: suture tree running the audit writer, rate limit
//     janitor, store GC and the HTTP server
//
// # Configuration
//
// Common environment variables:
//
//	HTTP_PORT              listen port (default 8420)
//	APP_ENV                development, test or production
//	INTERNAL_API_SECRET    shared secret for /api/internal (32+ chars in production)
//	ACTION_TOKEN_SECRET    HS256 secret for action replay tokens
//	RATE_LIMIT_REQUESTS    API request budget per window (default 100)
//	RATE_LIMIT_WINDOW      window string like "60 s", "5 m", "1 h"
//	ALLOWED_FETCH_HOSTS    comma-separated outbound fetch allow-list
//	STORE_PATH             badger data directory (default /data/gateward)
//
// # Signal Handling
//
// SIGINT and SIGTERM trigger graceful shutdown: the listener drains
// in-flight requests and the audit writer flushes its queue before exit.
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/go-playground/validator/v10"

	"github.com/wmitrus/gateward/internal/action"
	"github.com/wmitrus/gateward/internal/audit"
	"github.com/wmitrus/gateward/internal/authz"
	"github.com/wmitrus/gateward/internal/config"
	"github.com/wmitrus/gateward/internal/fetch"
	"github.com/wmitrus/gateward/internal/identity"
	"github.com/wmitrus/gateward/internal/logging"
	"github.com/wmitrus/gateward/internal/middleware"
	"github.com/wmitrus/gateward/internal/ratelimit"
	"github.com/wmitrus/gateward/internal/routes"
	"github.com/wmitrus/gateward/internal/secctx"
	"github.com/wmitrus/gateward/internal/supervisor"
	"github.com/wmitrus/gateward/internal/supervisor/services"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
	})
	logging.Info().
		Str("environment", cfg.Server.Environment).
		Int("port", cfg.Server.Port).
		Msg("starting gateward")

	db, err := openStore(cfg)
	if err != nil {
		logging.Fatal().Err(err).Msg("opening store")
	}
	defer db.Close()

	// Audit trail: badger-backed store, async writer, in-process fan-out.
	publisher := audit.NewPublisher(nil)
	defer publisher.Close()
	auditStore := audit.NewBadgerStore(db, time.Duration(cfg.Audit.RetentionDays)*24*time.Hour)
	auditCfg := audit.DefaultConfig()
	auditCfg.Enabled = cfg.Audit.Enabled
	auditCfg.LogLevel = audit.Severity(cfg.Audit.LogLevel)
	auditCfg.RetentionDays = cfg.Audit.RetentionDays
	auditCfg.BufferSize = cfg.Audit.BufferSize
	auditCfg.LogToStdout = cfg.Audit.LogToStdout
	auditor := audit.NewLogger(auditStore, publisher, auditCfg)

	// Policy engine behind the facade.
	policySource, err := authz.NewCasbinPolicySource(authz.DefaultCasbinConfig())
	if err != nil {
		logging.Fatal().Err(err).Msg("loading policy source")
	}
	defer policySource.Close()
	authorizer := authz.NewAuthorizer(policySource)

	provider, tenants, roles := buildIdentity(cfg)
	builder := secctx.NewBuilder(secctx.BuilderConfig{
		Identity:    provider,
		Tenants:     tenants,
		Roles:       roles,
		Runtime:     secctx.Runtime(cfg.Server.Runtime),
		Environment: secctx.Environment(cfg.Server.Environment),
	})

	limiter := buildLimiter(cfg, db)

	fetcher := fetch.NewClient(fetch.Config{
		AllowedHosts: cfg.Security.AllowedFetchHosts,
		PerHostRPS:   2,
		PerHostBurst: 4,
	}, fetch.WithAuditLogger(auditor))

	replay := action.NewReplayVerifier([]byte(cfg.Security.ActionTokenSecret), 0)
	actionDeps := &action.Deps{
		Builder:            builder,
		Authorizer:         authorizer,
		Audit:              auditor,
		Validate:           validator.New(),
		Replay:             replay,
		RequireReplayToken: cfg.Security.RequireReplayToken,
	}

	srv := &server{
		cfg:     cfg,
		fetcher: fetcher,
		replay:  replay,
		createReport: action.New(actionDeps, action.Config[reportInput, report]{
			Name:         "report.create",
			RequiredRole: authz.RoleUser,
			Resource:     "report",
			Verb:         "create",
			Handler:      newReportHandler(),
		}),
	}

	classifier := buildClassifier(cfg)
	pipeline := middleware.NewPipeline(cfg, classifier, builder, limiter,
		middleware.WithAuditLogger(auditor),
		middleware.WithOnboardingCheck(func(_ context.Context, sc *secctx.SecurityContext) bool {
			// The demo has no onboarding flow; every principal counts as
			// onboarded.
			return sc.IsAuthenticated()
		}),
	)

	httpServer := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:           pipeline.Handler(srv.routes()),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       cfg.Server.Timeout,
		WriteTimeout:      cfg.Server.Timeout,
		IdleTimeout:       2 * cfg.Server.Timeout,
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tree := supervisor.NewTree(logging.NewSlogLogger(), supervisor.DefaultTreeConfig())
	tree.AddSecurityService(auditor)
	tree.AddSecurityService(limiter.Local())
	if !cfg.Store.InMemory {
		tree.AddSecurityService(services.NewBadgerGCService(db, 0))
	}
	tree.AddAPIService(services.NewHTTPServerService(httpServer, 10*time.Second))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("received shutdown signal")
		cancel()
	}()

	logging.Info().Str("addr", httpServer.Addr).Msg("serving")
	errCh := tree.ServeBackground(ctx)

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor error")
		}
	}
	for err := range errCh {
		if err != nil && !errors.Is(err, context.Canceled) {
			logging.Error().Err(err).Msg("supervisor shutdown error")
		}
	}

	unstopped, _ := tree.UnstoppedServiceReport()
	for _, svc := range unstopped {
		logging.Warn().Str("service", svc.Name).Msg("service failed to stop in time")
	}

	logging.Info().Msg("stopped")
}

func openStore(cfg *config.Config) (*badger.DB, error) {
	opts := badger.DefaultOptions(cfg.Store.Path).WithLogger(nil)
	if cfg.Store.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("opening badger at %s: %w", cfg.Store.Path, err)
	}
	return db, nil
}

// buildLimiter assembles the rate limiter. The local sliding window is
// always present; the badger-backed window is layered on when distributed
// limiting is enabled.
func buildLimiter(cfg *config.Config, db *badger.DB) *ratelimit.Limiter {
	window := ratelimit.ParseWindow(cfg.Security.RateLimitWindow, time.Minute)

	var store ratelimit.Store
	if cfg.Security.RateLimitDistributed {
		store = ratelimit.NewBadgerStore(db, cfg.Security.RateLimitReqs, window)
	}
	return ratelimit.New(ratelimit.Config{
		Requests: cfg.Security.RateLimitReqs,
		Window:   window,
		Store:    store,
	})
}

func buildClassifier(cfg *config.Config) *routes.Classifier {
	// Health and metrics endpoints stay reachable for probes and scrapers.
	public := []string{"/", "/about", "/pricing", "/terms", "/privacy", "/healthz", "/metrics"}
	public = append(public, cfg.Routes.PublicPrefixes...)

	opts := []routes.Option{routes.WithPublicPrefixes(public...)}
	if len(cfg.Routes.AuthPrefixes) > 0 {
		opts = append(opts, routes.WithAuthPrefixes(cfg.Routes.AuthPrefixes...))
	}
	return routes.NewClassifier(opts...)
}

// buildIdentity wires the static demo providers. Development gets two
// seeded principals; production starts empty and expects real provider
// implementations.
func buildIdentity(cfg *config.Config) (*identity.StaticProvider, *identity.StaticTenantResolver, *identity.StaticRoleRepository) {
	provider := identity.NewStaticProvider()
	tenantMap := map[string]string{}
	roleMap := map[string][]string{}

	if cfg.IsDevelopment() {
		seed := []struct {
			id    string
			token string
			roles []string
		}{
			{"alice", "dev-admin-token", []string{"admin"}},
			{"bob", "dev-user-token", []string{"user"}},
		}
		for _, u := range seed {
			hash, err := identity.HashToken(u.token)
			if err != nil {
				logging.Fatal().Err(err).Str("user", u.id).Msg("seeding demo users")
			}
			provider.AddUser(identity.StaticUser{ID: u.id, TokenHash: hash})
			tenantMap[u.id] = "tenant-demo"
			roleMap[u.id] = u.roles
		}
		logging.Info().Msg("seeded demo principals alice (admin) and bob (user)")
	}

	return provider, identity.NewStaticTenantResolver(tenantMap), identity.NewStaticRoleRepository(roleMap)
}
