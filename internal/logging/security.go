// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package logging

import (
	"strings"

	"github.com/rs/zerolog"
)

// SecurityEvent represents a security-relevant occurrence worth alerting on:
// authorization denials, SSRF blocks, replay rejections, degraded-context
// fallbacks. It is logged through SecurityLogger with sensitive fields
// sanitized.
type SecurityEvent struct {
	// Event is the type of event (e.g. "authz_denied", "ssrf_blocked").
	Event string
	// UserID is the acting user's identifier (if known).
	UserID string
	// TenantID is the tenant the action was scoped to (if known).
	TenantID string
	// IPAddress is the client's IP address.
	IPAddress string
	// UserAgent is the client's user agent (truncated).
	UserAgent string
	// Resource is the resource or host the event concerns.
	Resource string
	// Action is the attempted action token ("<resource>:<verb>").
	Action string
	// Success indicates whether the operation was permitted.
	Success bool
	// Error is the failure reason, if any.
	Error string
	// Details contains additional sanitized details.
	Details map[string]string
}

// SecurityLogger provides structured logging for security events.
// Sensitive identifiers are sanitized before they reach the sink.
type SecurityLogger struct {
	logger zerolog.Logger
}

// NewSecurityLogger creates a security logger on top of the global logger.
func NewSecurityLogger() *SecurityLogger {
	return &SecurityLogger{
		logger: With().Str("component", "security").Logger(),
	}
}

// NewSecurityLoggerWithLogger creates a security logger with a custom sink.
//
//nolint:gocritic // zerolog.Logger is designed to be passed by value
func NewSecurityLoggerWithLogger(logger zerolog.Logger) *SecurityLogger {
	return &SecurityLogger{
		logger: logger.With().Str("component", "security").Logger(),
	}
}

// LogEvent logs a security event. Denials and failures are logged at warn
// severity so downstream alerting can key on level >= warn.
func (l *SecurityLogger) LogEvent(event *SecurityEvent) {
	var e *zerolog.Event
	if event.Success {
		e = l.logger.Info()
	} else {
		e = l.logger.Warn()
	}

	e = e.Str("event", event.Event)

	if event.UserID != "" {
		e = e.Str("user_id", SanitizeUserID(event.UserID))
	}
	if event.TenantID != "" {
		e = e.Str("tenant_id", event.TenantID)
	}
	if event.IPAddress != "" {
		e = e.Str("ip", event.IPAddress)
	}
	if event.UserAgent != "" {
		e = e.Str("user_agent", truncateString(event.UserAgent, 100))
	}
	if event.Resource != "" {
		e = e.Str("resource", event.Resource)
	}
	if event.Action != "" {
		e = e.Str("action", event.Action)
	}
	if event.Error != "" && !event.Success {
		e = e.Str("error", event.Error)
	}
	for k, v := range event.Details {
		e = e.Str(k, truncateString(v, 200))
	}

	e.Msg("security event")
}

// LogSSRFBlocked logs a blocked outbound request at error severity.
// SSRF attempts indicate either misconfiguration or active probing, so they
// bypass the usual warn level.
func (l *SecurityLogger) LogSSRFBlocked(hostname, requestURL, reason string) {
	l.logger.Error().
		Str("event", "ssrf_blocked").
		Str("hostname", hostname).
		Str("url", truncateString(redactQuery(requestURL), 200)).
		Str("reason", reason).
		Msg("blocked outbound request")
}

// LogAuthzDenied logs an authorization denial.
func (l *SecurityLogger) LogAuthzDenied(userID, tenantID, action, resource, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:    "authz_denied",
		UserID:   userID,
		TenantID: tenantID,
		Action:   action,
		Resource: resource,
		Success:  false,
		Error:    reason,
	})
}

// LogDegradedContext logs a security-context build that fell back to guest.
func (l *SecurityLogger) LogDegradedContext(ip, reason string) {
	l.LogEvent(&SecurityEvent{
		Event:     "context_degraded",
		IPAddress: ip,
		Success:   false,
		Error:     reason,
	})
}

// SanitizeUserID redacts the middle of a user identifier, keeping enough to
// correlate events without exposing the full ID in log sinks.
func SanitizeUserID(userID string) string {
	if len(userID) <= 8 {
		return userID
	}
	return userID[:4] + "..." + userID[len(userID)-4:]
}

// SanitizeToken fully redacts a token, keeping only a short prefix.
func SanitizeToken(token string) string {
	if len(token) <= 6 {
		return "[redacted]"
	}
	return token[:6] + "...[redacted]"
}

// truncateString limits a string to maxLen runes.
func truncateString(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}

// redactQuery strips query strings from URLs before logging; query parameters
// regularly carry tokens and API keys.
func redactQuery(rawURL string) string {
	if i := strings.IndexByte(rawURL, '?'); i >= 0 {
		return rawURL[:i] + "?[redacted]"
	}
	return rawURL
}
