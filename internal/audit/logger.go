// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package audit

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"

	"github.com/wmitrus/gateward/internal/logging"
	"github.com/wmitrus/gateward/internal/metrics"
)

// Config holds configuration for the audit logger.
type Config struct {
	// Enabled controls whether audit logging is active.
	Enabled bool `json:"enabled"`

	// LogLevel filters events by minimum severity.
	LogLevel Severity `json:"log_level"`

	// RetentionDays is how long to keep audit logs.
	RetentionDays int `json:"retention_days"`

	// CleanupInterval is how often to run retention cleanup.
	CleanupInterval time.Duration `json:"cleanup_interval"`

	// BufferSize is the size of the async write buffer.
	BufferSize int `json:"buffer_size"`

	// LogToStdout also mirrors events to the application log.
	LogToStdout bool `json:"log_to_stdout"`

	// IncludeDebug includes debug-level events.
	IncludeDebug bool `json:"include_debug"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Enabled:         true,
		LogLevel:        SeverityInfo,
		RetentionDays:   90,
		CleanupInterval: 24 * time.Hour,
		BufferSize:      1000,
		LogToStdout:     false,
		IncludeDebug:    false,
	}
}

// Logger is the audit logging service. Events are enqueued without blocking
// the request path and written by the Serve loop; a full buffer drops the
// event with a warning rather than stalling a handler.
type Logger struct {
	config    *Config
	store     Store
	publisher *Publisher
	eventChan chan *Event
	mu        sync.RWMutex
}

// NewLogger creates a new audit logger. The publisher is optional; when set,
// every persisted event is also fanned out to alerting subscribers.
func NewLogger(store Store, publisher *Publisher, config *Config) *Logger {
	if config == nil {
		config = DefaultConfig()
	}
	return &Logger{
		config:    config,
		store:     store,
		publisher: publisher,
		eventChan: make(chan *Event, config.BufferSize),
	}
}

// Serve implements suture.Service: it drains the event buffer into the store
// until the context is cancelled, then flushes whatever is still queued so a
// graceful shutdown loses nothing.
func (l *Logger) Serve(ctx context.Context) error {
	ticker := time.NewTicker(l.cleanupInterval())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			for {
				select {
				case event := <-l.eventChan:
					l.writeEvent(event)
				default:
					return ctx.Err()
				}
			}
		case event := <-l.eventChan:
			l.writeEvent(event)
		case <-ticker.C:
			l.runCleanup(ctx)
		}
	}
}

// writeEvent persists an event to the store and fans it out.
func (l *Logger) writeEvent(event *Event) {
	l.mu.RLock()
	config := l.config
	l.mu.RUnlock()

	if config.LogToStdout {
		l.mirrorToLog(event)
	}

	if l.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := l.store.Save(ctx, event); err != nil {
			logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to save audit event")
			return
		}
	}

	metrics.AuditEventsWritten.WithLabelValues(string(event.Type)).Inc()

	if l.publisher != nil {
		if err := l.publisher.Publish(event); err != nil {
			logging.Error().Err(err).Str("event_id", event.ID).Msg("Failed to publish audit event")
		}
	}
}

// mirrorToLog writes an event to the application log in JSON form.
func (l *Logger) mirrorToLog(event *Event) {
	data, err := json.Marshal(event)
	if err != nil {
		logging.Error().Err(err).Msg("Failed to marshal audit event")
		return
	}
	logging.Info().RawJSON("event", data).Msg("Audit event")
}

// Log records an audit event. Safe to call from request handlers.
func (l *Logger) Log(event *Event) {
	l.mu.RLock()
	config := l.config
	l.mu.RUnlock()

	if !config.Enabled {
		return
	}
	if !shouldLog(event.Severity, config) {
		return
	}

	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	select {
	case l.eventChan <- event:
	default:
		logging.Warn().Str("event_id", event.ID).Msg("Audit event buffer full, dropping event")
	}
}

// shouldLog returns true if the event severity meets the minimum level.
func shouldLog(severity Severity, config *Config) bool {
	if severity == SeverityDebug && !config.IncludeDebug {
		return false
	}

	severityOrder := map[Severity]int{
		SeverityDebug:    0,
		SeverityInfo:     1,
		SeverityWarning:  2,
		SeverityError:    3,
		SeverityCritical: 4,
	}

	return severityOrder[severity] >= severityOrder[config.LogLevel]
}

// runCleanup enforces the retention window.
func (l *Logger) runCleanup(ctx context.Context) {
	l.mu.RLock()
	retention := l.config.RetentionDays
	l.mu.RUnlock()

	if l.store == nil || retention <= 0 {
		return
	}

	cutoff := time.Now().AddDate(0, 0, -retention)
	count, err := l.store.Delete(ctx, cutoff)
	if err != nil {
		logging.Error().Err(err).Msg("Audit cleanup error")
	} else if count > 0 {
		logging.Info().Int64("count", count).Msg("Cleaned up old audit events")
	}
}

func (l *Logger) cleanupInterval() time.Duration {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.config.CleanupInterval <= 0 {
		return 24 * time.Hour
	}
	return l.config.CleanupInterval
}

// Query retrieves events matching the filter.
func (l *Logger) Query(ctx context.Context, filter QueryFilter) ([]Event, error) {
	return l.store.Query(ctx, filter)
}

// Count returns the number of events matching the filter.
func (l *Logger) Count(ctx context.Context, filter QueryFilter) (int64, error) {
	return l.store.Count(ctx, filter)
}

// SetEnabled enables or disables audit logging.
func (l *Logger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.config.Enabled = enabled
}

// Enabled returns whether audit logging is enabled.
func (l *Logger) Enabled() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.config.Enabled
}

// Helper methods for the gateway's common audit events

// LogAuthzGranted records a granted authorization decision.
//
//nolint:gocritic // hugeParam: Actor passed by value for API simplicity
func (l *Logger) LogAuthzGranted(ctx context.Context, actor Actor, source Source, resource, action string) {
	l.Log(&Event{
		Type:     EventTypeAuthzGranted,
		Severity: SeverityInfo,
		Outcome:  OutcomeSuccess,
		Actor:    actor,
		Source:   source,
		Action:   "authorize",
		Target: &Target{
			ID:   resource,
			Type: "resource",
		},
		Description: "Authorization granted for " + action + " on " + resource,
		Metadata: mustJSON(map[string]string{
			"resource":         resource,
			"requested_action": action,
		}),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// LogAuthzDenied records a denied authorization decision.
//
//nolint:gocritic // hugeParam: Actor passed by value for API simplicity
func (l *Logger) LogAuthzDenied(ctx context.Context, actor Actor, source Source, resource, action string) {
	l.Log(&Event{
		Type:     EventTypeAuthzDenied,
		Severity: SeverityWarning,
		Outcome:  OutcomeFailure,
		Actor:    actor,
		Source:   source,
		Action:   "authorize",
		Target: &Target{
			ID:   resource,
			Type: "resource",
		},
		Description: "Authorization denied for " + action + " on " + resource,
		Metadata: mustJSON(map[string]string{
			"resource":         resource,
			"requested_action": action,
		}),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// LogActionOutcome records a secure action invocation with its final status.
//
//nolint:gocritic // hugeParam: Actor passed by value for API simplicity
func (l *Logger) LogActionOutcome(ctx context.Context, actor Actor, source Source, actionName, status string, detail string) {
	eventType := EventTypeActionExecuted
	severity := SeverityInfo
	outcome := OutcomeSuccess
	switch status {
	case "success":
	case "expired":
		eventType = EventTypeActionExpired
		severity = SeverityWarning
		outcome = OutcomeFailure
	default:
		eventType = EventTypeActionRejected
		severity = SeverityWarning
		outcome = OutcomeFailure
	}

	l.Log(&Event{
		Type:     eventType,
		Severity: severity,
		Outcome:  outcome,
		Actor:    actor,
		Source:   source,
		Action:   actionName,
		Target: &Target{
			ID:   actionName,
			Type: "action",
		},
		Description: detail,
		Metadata: mustJSON(map[string]string{
			"status": status,
		}),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// LogRateLimitExceeded records a denied rate-limit check.
//
//nolint:gocritic // hugeParam: Actor passed by value for API simplicity
func (l *Logger) LogRateLimitExceeded(ctx context.Context, actor Actor, source Source, identifier string, limit int) {
	l.Log(&Event{
		Type:        EventTypeRateLimitExceeded,
		Severity:    SeverityWarning,
		Outcome:     OutcomeFailure,
		Actor:       actor,
		Source:      source,
		Action:      "ratelimit",
		Description: "Rate limit exceeded",
		Metadata: mustJSON(map[string]interface{}{
			"identifier": identifier,
			"limit":      limit,
		}),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// LogSSRFBlocked records a blocked outbound request.
func (l *Logger) LogSSRFBlocked(ctx context.Context, host, reason string) {
	l.Log(&Event{
		Type:     EventTypeSSRFBlocked,
		Severity: SeverityError,
		Outcome:  OutcomeFailure,
		Actor:    SystemActor(),
		Action:   "fetch",
		Target: &Target{
			ID:   host,
			Type: "host",
		},
		Description: "Outbound request blocked: " + reason,
		Metadata: mustJSON(map[string]string{
			"host":   host,
			"reason": reason,
		}),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// LogAuthDegraded records a security context build that fell back to guest.
func (l *Logger) LogAuthDegraded(ctx context.Context, source Source, reason string) {
	l.Log(&Event{
		Type:        EventTypeAuthDegraded,
		Severity:    SeverityWarning,
		Outcome:     OutcomeUnknown,
		Actor:       GuestActor(),
		Source:      source,
		Action:      "build_context",
		Description: "Security context degraded to guest: " + reason,
		Metadata: mustJSON(map[string]string{
			"reason": reason,
		}),
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// LogInternalDenied records a rejected internal API request.
func (l *Logger) LogInternalDenied(ctx context.Context, source Source) {
	l.Log(&Event{
		Type:          EventTypeInternalDenied,
		Severity:      SeverityCritical,
		Outcome:       OutcomeFailure,
		Actor:         GuestActor(),
		Source:        source,
		Action:        "internal_access",
		Description:   "Internal API request rejected for bad or missing secret",
		CorrelationID: logging.CorrelationIDFromContext(ctx),
		RequestID:     logging.RequestIDFromContext(ctx),
	})
}

// mustJSON converts a value to JSON, returning empty object on error.
func mustJSON(v interface{}) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		return json.RawMessage("{}")
	}
	return data
}

// SourceFromRequest creates a Source from an HTTP request. Only the direct
// peer address is used; forwarding headers are client-writable, and deciding
// which proxies to trust belongs to the caller, which can overwrite
// IPAddress with its resolved client address.
func SourceFromRequest(r *http.Request) Source {
	ip := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		ip = host
	}

	return Source{
		IPAddress: ip,
		UserAgent: r.UserAgent(),
		Path:      r.URL.Path,
	}
}

// ActorFromUser creates an Actor from resolved user information.
func ActorFromUser(id, role, tenantID string) Actor {
	return Actor{
		ID:       id,
		Type:     "user",
		Role:     role,
		TenantID: tenantID,
	}
}

// GuestActor returns an Actor for unauthenticated requests.
func GuestActor() Actor {
	return Actor{
		ID:   "guest",
		Type: "guest",
		Role: "guest",
	}
}

// SystemActor returns an Actor representing the gateway itself.
func SystemActor() Actor {
	return Actor{
		ID:   "system",
		Type: "system",
	}
}
