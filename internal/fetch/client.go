// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

// Package fetch wraps outbound HTTP calls with an SSRF guard: destination
// hosts must be allow-listed and private network targets are always refused,
// whatever the allow-list says.
package fetch

import (
	"net/http"
	"net/netip"
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/wmitrus/gateward/internal/audit"
	"github.com/wmitrus/gateward/internal/logging"
	"github.com/wmitrus/gateward/internal/metrics"
)

// SSRFBlockedError reports an outbound request refused by the guard.
type SSRFBlockedError struct {
	// Host is the refused destination.
	Host string

	// Reason explains the refusal (not allow-listed, private address).
	Reason string
}

func (e *SSRFBlockedError) Error() string {
	return "outbound request to " + e.Host + " blocked: " + e.Reason
}

// coreHosts are always reachable regardless of configuration. They serve
// the gateway's own control plane.
var coreHosts = []string{
	"api.gateward.dev",
	"telemetry.gateward.dev",
}

// Config holds configuration for the outbound client.
type Config struct {
	// AllowedHosts lists permitted destination hosts. A host matches
	// exactly or as a subdomain ("x.allowed.com" matches "allowed.com").
	AllowedHosts []string

	// Timeout bounds each outbound request. Zero means 30s.
	Timeout time.Duration

	// PerHostRPS throttles requests per destination host. Zero disables
	// the throttle.
	PerHostRPS float64

	// PerHostBurst is the throttle burst size. Zero means 1.
	PerHostBurst int
}

// Client performs SSRF-guarded outbound HTTP requests.
type Client struct {
	allowed []string
	http    *http.Client
	seclog  *logging.SecurityLogger
	auditor *audit.Logger

	rps   float64
	burst int

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// Option configures a Client.
type Option func(*Client)

// WithAuditLogger records blocked requests in the audit trail.
func WithAuditLogger(auditor *audit.Logger) Option {
	return func(c *Client) {
		c.auditor = auditor
	}
}

// WithHTTPClient substitutes the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// NewClient creates a guarded outbound client.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	burst := cfg.PerHostBurst
	if burst <= 0 {
		burst = 1
	}

	allowed := make([]string, 0, len(cfg.AllowedHosts))
	for _, h := range cfg.AllowedHosts {
		h = strings.ToLower(strings.TrimSpace(h))
		if h != "" {
			allowed = append(allowed, h)
		}
	}

	c := &Client{
		allowed:  allowed,
		http:     &http.Client{Timeout: timeout},
		seclog:   logging.NewSecurityLogger(),
		rps:      cfg.PerHostRPS,
		burst:    burst,
		limiters: make(map[string]*rate.Limiter),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do performs the request if its destination passes the guard. The request's
// context governs cancellation, including any throttle wait.
func (c *Client) Do(req *http.Request) (*http.Response, error) {
	host := strings.ToLower(req.URL.Hostname())

	if reason, blocked := c.blockReason(host); blocked {
		metrics.SSRFBlocks.WithLabelValues(reason).Inc()
		c.seclog.LogSSRFBlocked(host, req.URL.String(), reason)
		if c.auditor != nil {
			c.auditor.LogSSRFBlocked(req.Context(), host, reason)
		}
		return nil, &SSRFBlockedError{Host: host, Reason: reason}
	}

	if c.rps > 0 {
		if err := c.limiterFor(host).Wait(req.Context()); err != nil {
			return nil, err
		}
	}

	return c.http.Do(req)
}

// blockReason decides whether the host may be contacted. Private network
// checks run first so an allow-listed private address still fails.
func (c *Client) blockReason(host string) (string, bool) {
	if host == "" {
		return "empty host", true
	}
	if isPrivateHost(host) {
		return "private address", true
	}
	if !c.hostAllowed(host) {
		return "host not allow-listed", true
	}
	return "", false
}

// hostAllowed reports whether host matches the allow-list exactly or as a
// subdomain of an allowed suffix.
func (c *Client) hostAllowed(host string) bool {
	for _, allowed := range coreHosts {
		if matchesHost(host, allowed) {
			return true
		}
	}
	for _, allowed := range c.allowed {
		if matchesHost(host, allowed) {
			return true
		}
	}
	return false
}

func matchesHost(host, allowed string) bool {
	return host == allowed || strings.HasSuffix(host, "."+allowed)
}

// isPrivateHost reports whether the host names a private network target:
// localhost, loopback, RFC1918 ranges, link-local or unspecified addresses.
// Hostnames that are not IP literals are judged by the allow-list alone;
// the guard does not resolve DNS.
func isPrivateHost(host string) bool {
	if host == "localhost" || strings.HasSuffix(host, ".localhost") {
		return true
	}

	addr, err := netip.ParseAddr(host)
	if err != nil {
		return false
	}
	return addr.IsLoopback() ||
		addr.IsPrivate() ||
		addr.IsLinkLocalUnicast() ||
		addr.IsLinkLocalMulticast() ||
		addr.IsUnspecified()
}

// limiterFor returns the per-host politeness throttle, creating it on first
// use for a host.
func (c *Client) limiterFor(host string) *rate.Limiter {
	c.mu.Lock()
	defer c.mu.Unlock()

	l, ok := c.limiters[host]
	if !ok {
		l = rate.NewLimiter(rate.Limit(c.rps), c.burst)
		c.limiters[host] = l
	}
	return l
}
