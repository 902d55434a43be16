// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package ratelimit

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubStore scripts the distributed strategy for selector tests.
type stubStore struct {
	result Result
	err    error
	delay  time.Duration
	calls  int
}

func (s *stubStore) Check(ctx context.Context, identifier string) (Result, error) {
	s.calls++
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return Result{}, ctx.Err()
		}
	}
	return s.result, s.err
}

func TestLimiterLocalOnlyWithoutStore(t *testing.T) {
	t.Parallel()

	l := New(Config{Requests: 2, Window: time.Minute})

	if r := l.Check(context.Background(), "client-1"); !r.Allowed || r.Remaining != 1 {
		t.Errorf("first check: %+v, want allowed with remaining 1", r)
	}
	l.Check(context.Background(), "client-1")
	if r := l.Check(context.Background(), "client-1"); r.Allowed {
		t.Error("third check: allowed, want denied by local window")
	}
}

func TestLimiterPrefersStore(t *testing.T) {
	t.Parallel()

	store := &stubStore{result: Result{Allowed: true, Limit: 100, Remaining: 99}}
	l := New(Config{Requests: 1, Window: time.Minute, Store: store})

	r := l.Check(context.Background(), "client-1")
	if !r.Allowed || r.Limit != 100 {
		t.Errorf("Check() = %+v, want the store's result", r)
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1", store.calls)
	}
	// The local window stays untouched when the store answers.
	if got := l.local.size(); got != 0 {
		t.Errorf("local entries = %d, want 0", got)
	}
}

func TestLimiterFallsBackOnStoreError(t *testing.T) {
	t.Parallel()

	store := &stubStore{err: errors.New("store unavailable")}
	l := New(Config{Requests: 2, Window: time.Minute, Store: store})

	r := l.Check(context.Background(), "client-1")
	if !r.Allowed || r.Limit != 2 {
		t.Errorf("Check() = %+v, want local result with limit 2", r)
	}
	if store.calls != 1 {
		t.Errorf("store calls = %d, want 1", store.calls)
	}
}

func TestLimiterFallsBackOnSlowStore(t *testing.T) {
	t.Parallel()

	store := &stubStore{
		result: Result{Allowed: true, Limit: 100, Remaining: 99},
		delay:  200 * time.Millisecond,
	}
	l := New(Config{
		Requests:     2,
		Window:       time.Minute,
		Store:        store,
		StoreTimeout: 20 * time.Millisecond,
	})

	start := time.Now()
	r := l.Check(context.Background(), "client-1")
	if elapsed := time.Since(start); elapsed > 150*time.Millisecond {
		t.Errorf("Check took %v, want timeout well before the store answers", elapsed)
	}
	if !r.Allowed || r.Limit != 2 {
		t.Errorf("Check() = %+v, want local result after timeout", r)
	}
}

func TestLimiterBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	store := &stubStore{err: errors.New("store unavailable")}
	l := New(Config{Requests: 100, Window: time.Minute, Store: store})

	for range 8 {
		l.Check(context.Background(), "client-1")
	}

	// Five consecutive failures trip the breaker; later checks never reach
	// the store.
	if store.calls > 6 {
		t.Errorf("store calls = %d, want breaker to stop forwarding after 5 failures", store.calls)
	}
}

func TestLimiterFallbackDeniesWhenLocalExhausted(t *testing.T) {
	t.Parallel()

	store := &stubStore{err: errors.New("store unavailable")}
	l := New(Config{Requests: 1, Window: time.Minute, Store: store})

	if r := l.Check(context.Background(), "client-1"); !r.Allowed {
		t.Fatal("first fallback check denied, want allowed")
	}
	if r := l.Check(context.Background(), "client-1"); r.Allowed {
		t.Error("second fallback check allowed, want denied by local window")
	}
}
