// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package audit

import (
	"context"
	"testing"
	"time"
)

func TestPublisherFanOut(t *testing.T) {
	pub := NewPublisher(nil)
	t.Cleanup(func() {
		if err := pub.Close(); err != nil {
			t.Errorf("closing publisher: %v", err)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	messages, err := pub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	want := &Event{
		ID:       "evt-1",
		Type:     EventTypeSSRFBlocked,
		Severity: SeverityError,
		Outcome:  OutcomeFailure,
		Actor:    SystemActor(),
	}
	if err := pub.Publish(want); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case msg := <-messages:
		msg.Ack()

		if got := msg.Metadata.Get("event_type"); got != string(EventTypeSSRFBlocked) {
			t.Errorf("event_type metadata = %q, want %q", got, EventTypeSSRFBlocked)
		}

		event, err := DecodeEvent(msg)
		if err != nil {
			t.Fatalf("DecodeEvent: %v", err)
		}
		if event.ID != want.ID || event.Type != want.Type {
			t.Errorf("decoded event = %+v, want ID %q type %q", event, want.ID, want.Type)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message received")
	}
}

func TestLoggerPublishesPersistedEvents(t *testing.T) {
	pub := NewPublisher(nil)
	t.Cleanup(func() { _ = pub.Close() })

	store := NewMemoryStore(10)
	logger := NewLogger(store, pub, nil)
	stop := drainLogger(t, logger)
	defer stop()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	messages, err := pub.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	logger.LogSSRFBlocked(context.Background(), "169.254.169.254", "private address")

	select {
	case msg := <-messages:
		msg.Ack()
		event, err := DecodeEvent(msg)
		if err != nil {
			t.Fatalf("DecodeEvent: %v", err)
		}
		if event.Type != EventTypeSSRFBlocked {
			t.Errorf("published type = %q, want %q", event.Type, EventTypeSSRFBlocked)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("persisted event was not published")
	}

	if store.Len() != 1 {
		t.Errorf("store has %d events, want 1", store.Len())
	}
}
