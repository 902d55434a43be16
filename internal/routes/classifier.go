// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

// Package routes classifies request paths into the boolean facets the
// security pipeline branches on. Classification is a pure function over the
// path; flags are independent and not mutually exclusive.
package routes

import (
	"path"
	"strings"
)

// Context holds the classification facets for one request path.
// Computed once per request and consumed read-only by every pipeline stage.
type Context struct {
	IsAPI             bool
	IsWebhook         bool
	IsInternalAPI     bool
	IsAuthRoute       bool
	IsOnboardingRoute bool
	IsPublicRoute     bool
	IsStaticFile      bool
}

// Classifier maps paths to route contexts using configured prefix sets.
type Classifier struct {
	apiPrefix        string
	webhookPrefix    string
	internalPrefix   string
	onboardingPrefix string
	authPrefixes     []string
	publicPrefixes   []string
	staticExtensions map[string]bool
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithPublicPrefixes overrides the public-route prefix allow-list.
func WithPublicPrefixes(prefixes ...string) Option {
	return func(c *Classifier) { c.publicPrefixes = prefixes }
}

// WithAuthPrefixes overrides the auth-route prefixes.
func WithAuthPrefixes(prefixes ...string) Option {
	return func(c *Classifier) { c.authPrefixes = prefixes }
}

// defaultStaticExtensions lists file extensions served without any security
// processing. Keep this list tight: anything here bypasses the pipeline.
var defaultStaticExtensions = map[string]bool{
	".css":         true,
	".js":          true,
	".map":         true,
	".ico":         true,
	".png":         true,
	".jpg":         true,
	".jpeg":        true,
	".gif":         true,
	".svg":         true,
	".webp":        true,
	".avif":        true,
	".woff":        true,
	".woff2":       true,
	".ttf":         true,
	".txt":         true,
	".xml":         true,
	".webmanifest": true,
}

// NewClassifier creates a classifier with production defaults.
func NewClassifier(opts ...Option) *Classifier {
	c := &Classifier{
		apiPrefix:        "/api",
		webhookPrefix:    "/api/webhooks",
		internalPrefix:   "/api/internal",
		onboardingPrefix: "/onboarding",
		authPrefixes:     []string{"/sign-in", "/sign-up"},
		publicPrefixes:   []string{"/", "/about", "/pricing", "/terms", "/privacy"},
		staticExtensions: defaultStaticExtensions,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify computes the route context for a path.
func (c *Classifier) Classify(p string) Context {
	rc := Context{
		IsStaticFile:      c.isStaticFile(p),
		IsAPI:             matchesPrefix(p, c.apiPrefix),
		IsWebhook:         matchesPrefix(p, c.webhookPrefix),
		IsInternalAPI:     matchesPrefix(p, c.internalPrefix),
		IsOnboardingRoute: matchesPrefix(p, c.onboardingPrefix),
	}

	for _, prefix := range c.authPrefixes {
		if matchesPrefix(p, prefix) {
			rc.IsAuthRoute = true
			break
		}
	}

	// Public routes are the allow-list union with auth routes: a sign-in
	// page must be reachable without a session.
	rc.IsPublicRoute = rc.IsAuthRoute
	if !rc.IsPublicRoute {
		for _, prefix := range c.publicPrefixes {
			if matchesPrefix(p, prefix) {
				rc.IsPublicRoute = true
				break
			}
		}
	}

	return rc
}

// matchesPrefix reports whether p lives under prefix. Root matches only the
// exact root; for everything else the match is exact-path or a "/"-separated
// descendant, so "/sign-in-extra" does not match "/sign-in".
func matchesPrefix(p, prefix string) bool {
	if prefix == "/" {
		return p == "/"
	}
	return p == prefix || strings.HasPrefix(p, prefix+"/")
}

// isStaticFile detects static assets by extension allow-list.
func (c *Classifier) isStaticFile(p string) bool {
	ext := strings.ToLower(path.Ext(p))
	if ext == "" {
		return false
	}
	return c.staticExtensions[ext]
}
