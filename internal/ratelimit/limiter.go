// Gateward - Request Security Pipeline and Policy Authorization Engine
// Copyright 2026 W. Mitrus (wmitrus)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/wmitrus/gateward

package ratelimit

import (
	"context"
	"time"

	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/wmitrus/gateward/internal/logging"
	"github.com/wmitrus/gateward/internal/metrics"
)

// DefaultStoreTimeout bounds one distributed check. A store slower than
// this is treated as failed for the current request.
const DefaultStoreTimeout = 1500 * time.Millisecond

// Limiter is the strategy selector. With no store configured every check is
// local. With a store, checks go to the store through a circuit breaker and
// a hard timeout; any failure falls back to the local window for that single
// request (fail-open to local, not fail-closed).
type Limiter struct {
	local   *Local
	store   Store
	breaker *gobreaker.CircuitBreaker[Result]
	timeout time.Duration
}

// Config holds limiter configuration.
type Config struct {
	// Requests per window.
	Requests int

	// Window duration.
	Window time.Duration

	// Store is the optional distributed strategy.
	Store Store

	// StoreTimeout bounds one distributed check. Zero means
	// DefaultStoreTimeout.
	StoreTimeout time.Duration
}

// New creates a limiter from the configuration.
func New(cfg Config) *Limiter {
	timeout := cfg.StoreTimeout
	if timeout <= 0 {
		timeout = DefaultStoreTimeout
	}

	l := &Limiter{
		local:   NewLocal(cfg.Requests, cfg.Window),
		store:   cfg.Store,
		timeout: timeout,
	}

	if cfg.Store != nil {
		l.breaker = gobreaker.NewCircuitBreaker[Result](gobreaker.Settings{
			Name:        "ratelimit-store",
			MaxRequests: 3,
			Interval:    30 * time.Second,
			Timeout:     10 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 5
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logging.Warn().
					Str("breaker", name).
					Str("from", from.String()).
					Str("to", to.String()).
					Msg("rate limit store circuit state change")
			},
		})
	}

	return l
}

// Local returns the local strategy, e.g. to supervise its janitor.
func (l *Limiter) Local() *Local {
	return l.local
}

// Check performs one rate-limit check for the identifier.
func (l *Limiter) Check(ctx context.Context, identifier string) Result {
	if l.store == nil {
		return l.checkLocal(identifier)
	}

	result, err := l.checkStore(ctx, identifier)
	if err != nil {
		metrics.RateLimitFallbacks.Inc()
		logging.Ctx(ctx).Warn().
			Err(err).
			Str("identifier", identifier).
			Msg("distributed rate limiter unavailable, falling back to local")
		return l.checkLocal(identifier)
	}

	l.count("distributed", result)
	return result
}

// checkStore races the breaker-guarded store call against the timeout.
// The in-flight call is abandoned on timeout; ctx cancellation propagates so
// the store can stop early.
func (l *Limiter) checkStore(ctx context.Context, identifier string) (Result, error) {
	callCtx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	type outcome struct {
		result Result
		err    error
	}

	ch := make(chan outcome, 1)
	go func() {
		result, err := l.breaker.Execute(func() (Result, error) {
			return l.store.Check(callCtx, identifier)
		})
		ch <- outcome{result, err}
	}()

	select {
	case o := <-ch:
		return o.result, o.err
	case <-callCtx.Done():
		return Result{}, callCtx.Err()
	}
}

func (l *Limiter) checkLocal(identifier string) Result {
	result := l.local.Check(identifier)
	l.count("local", result)
	return result
}

func (l *Limiter) count(strategy string, result Result) {
	outcome := "allowed"
	if !result.Allowed {
		outcome = "limited"
	}
	metrics.RateLimitChecks.WithLabelValues(strategy, outcome).Inc()
}
