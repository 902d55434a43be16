// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package audit

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

// drainLogger runs the Serve loop until the returned stop function is
// called, which cancels the loop and waits for the shutdown flush.
func drainLogger(t *testing.T, l *Logger) func() {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = l.Serve(ctx)
	}()

	return func() {
		cancel()
		select {
		case <-done:
		case <-time.After(2 * time.Second):
			t.Fatal("audit writer did not stop")
		}
	}
}

func waitForEvents(t *testing.T, store *MemoryStore, want int) {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if store.Len() >= want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("store has %d events, want %d", store.Len(), want)
}

func TestLoggerWritesEvents(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, nil, nil)
	stop := drainLogger(t, logger)
	defer stop()

	logger.LogAuthzDenied(context.Background(),
		ActorFromUser("user-1", "user", "tenant-1"),
		Source{IPAddress: "203.0.113.9"},
		"report", "report:delete")

	waitForEvents(t, store, 1)

	events, err := store.Query(context.Background(), QueryFilter{
		Types: []EventType{EventTypeAuthzDenied},
	})
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("got %d denied events, want 1", len(events))
	}

	e := events[0]
	if e.ID == "" {
		t.Error("event ID not generated")
	}
	if e.Timestamp.IsZero() {
		t.Error("event timestamp not set")
	}
	if e.Outcome != OutcomeFailure {
		t.Errorf("outcome = %q, want failure", e.Outcome)
	}
	if e.Actor.TenantID != "tenant-1" {
		t.Errorf("actor tenant = %q, want tenant-1", e.Actor.TenantID)
	}
}

func TestLoggerSeverityFilter(t *testing.T) {
	store := NewMemoryStore(100)
	config := DefaultConfig()
	config.LogLevel = SeverityWarning
	logger := NewLogger(store, nil, config)
	stop := drainLogger(t, logger)
	defer stop()

	// Below the threshold, filtered out.
	logger.Log(&Event{Type: EventTypeAuthzGranted, Severity: SeverityInfo})
	// At the threshold, written.
	logger.Log(&Event{Type: EventTypeAuthzDenied, Severity: SeverityWarning})

	waitForEvents(t, store, 1)
	time.Sleep(20 * time.Millisecond)

	if got := store.Len(); got != 1 {
		t.Errorf("store has %d events, want 1 (info filtered out)", got)
	}
}

func TestLoggerDisabled(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, nil, nil)
	logger.SetEnabled(false)
	stop := drainLogger(t, logger)
	defer stop()

	logger.Log(&Event{Type: EventTypeAuthzDenied, Severity: SeverityWarning})

	time.Sleep(50 * time.Millisecond)
	if got := store.Len(); got != 0 {
		t.Errorf("store has %d events, want 0 when disabled", got)
	}
}

func TestLoggerFlushesOnShutdown(t *testing.T) {
	store := NewMemoryStore(100)
	logger := NewLogger(store, nil, nil)

	// Enqueue before the Serve loop runs; the shutdown drain must still
	// write them.
	for range 5 {
		logger.Log(&Event{Type: EventTypeActionExecuted, Severity: SeverityInfo})
	}

	stop := drainLogger(t, logger)
	stop()

	if got := store.Len(); got != 5 {
		t.Errorf("store has %d events after shutdown flush, want 5", got)
	}
}

func TestLoggerActionOutcomeMapping(t *testing.T) {
	tests := []struct {
		status   string
		wantType EventType
	}{
		{status: "success", wantType: EventTypeActionExecuted},
		{status: "expired", wantType: EventTypeActionExpired},
		{status: "validation_error", wantType: EventTypeActionRejected},
		{status: "unauthorized", wantType: EventTypeActionRejected},
	}

	for _, tc := range tests {
		t.Run(tc.status, func(t *testing.T) {
			store := NewMemoryStore(10)
			logger := NewLogger(store, nil, nil)
			stop := drainLogger(t, logger)
			defer stop()

			logger.LogActionOutcome(context.Background(),
				GuestActor(), Source{}, "deleteReport", tc.status, "test")

			waitForEvents(t, store, 1)
			events, err := store.Query(context.Background(), QueryFilter{})
			if err != nil {
				t.Fatalf("Query: %v", err)
			}
			if events[0].Type != tc.wantType {
				t.Errorf("event type = %q, want %q", events[0].Type, tc.wantType)
			}
		})
	}
}

func TestSourceFromRequestIgnoresForwardingHeaders(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/data", nil)
	req.RemoteAddr = "203.0.113.9:51234"
	req.Header.Set("X-Forwarded-For", "198.51.100.1")
	req.Header.Set("X-Real-IP", "198.51.100.2")
	req.Header.Set("User-Agent", "test-agent")

	src := SourceFromRequest(req)
	if src.IPAddress != "203.0.113.9" {
		t.Errorf("IPAddress = %q, want direct peer 203.0.113.9", src.IPAddress)
	}
	if src.UserAgent != "test-agent" {
		t.Errorf("UserAgent = %q", src.UserAgent)
	}
	if src.Path != "/api/data" {
		t.Errorf("Path = %q", src.Path)
	}
}
